// Package alert notifies operators of critical ledger conditions.
//
// The only producer today is the gate's refund-failure branch: a refund that
// cannot be committed is a permanently lost credit and has to reach a human.
package alert

import (
	"context"
	"time"
)

// Event is a critical condition worth waking someone up for.
type Event struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	EditID     string    `json:"edit_id"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event kinds.
const (
	KindRefundFailed = "refund_failed"
)

// Alerter delivers critical events. Implementations must not block request
// handling; delivery is best effort on top of the critical log line.
type Alerter interface {
	Notify(ctx context.Context, event Event)
}

// NoopAlerter discards all events.
type NoopAlerter struct{}

// NewNoop returns an Alerter that discards all events.
func NewNoop() Alerter {
	return &NoopAlerter{}
}

// Notify is a no-op.
func (n *NoopAlerter) Notify(ctx context.Context, event Event) {}
