package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncEditRequested is a no-op.
func (n *NoopRecorder) IncEditRequested() {}

// IncEditSucceeded is a no-op.
func (n *NoopRecorder) IncEditSucceeded() {}

// IncEditRejected is a no-op.
func (n *NoopRecorder) IncEditRejected(reason string) {}

// ObserveProviderDuration is a no-op.
func (n *NoopRecorder) ObserveProviderDuration(duration time.Duration) {}

// IncProviderFailure is a no-op.
func (n *NoopRecorder) IncProviderFailure() {}

// IncRefund is a no-op.
func (n *NoopRecorder) IncRefund(outcome string) {}

// IncCreditsPurchased is a no-op.
func (n *NoopRecorder) IncCreditsPurchased(amount int64) {}

// IncUserProvisioned is a no-op.
func (n *NoopRecorder) IncUserProvisioned() {}
