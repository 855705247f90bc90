// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Rejection reasons for IncEditRejected.
const (
	RejectUnauthenticated = "unauthenticated"
	RejectInvalidPayload  = "invalid_payload"
	RejectNoCredit        = "no_credit"
	RejectProfileMissing  = "profile_missing"
	RejectInProgress      = "edit_in_progress"
)

// Refund outcomes for IncRefund.
const (
	RefundOK     = "success"
	RefundFailed = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Edit pipeline metrics
	IncEditRequested()
	IncEditSucceeded()
	IncEditRejected(reason string)
	ObserveProviderDuration(duration time.Duration)

	// Ledger metrics
	IncProviderFailure()
	IncRefund(outcome string) // outcome: "success" or "failed"
	IncCreditsPurchased(amount int64)
	IncUserProvisioned()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
