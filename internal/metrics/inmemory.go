package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	EditsRequested          uint64            `json:"edits_requested"`
	EditsSucceeded          uint64            `json:"edits_succeeded"`
	EditsRejected           map[string]uint64 `json:"edits_rejected"`
	ProviderFailures        uint64            `json:"provider_failures"`
	Refunds                 map[string]uint64 `json:"refunds"`
	CreditsPurchased        uint64            `json:"credits_purchased"`
	UsersProvisioned        uint64            `json:"users_provisioned"`
	ProviderDurationCount   uint64            `json:"provider_duration_count"`
	ProviderDurationTotalNs int64             `json:"provider_duration_total_ns"`
}

// InMemoryRecorder stores metrics in memory.
// Counters are cheap atomics; the labelled maps take a mutex.
type InMemoryRecorder struct {
	editsRequested          uint64
	editsSucceeded          uint64
	providerFailures        uint64
	creditsPurchased        uint64
	usersProvisioned        uint64
	providerDurationCount   uint64
	providerDurationTotalNs int64

	mu            sync.Mutex
	editsRejected map[string]uint64
	refunds       map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		editsRejected: make(map[string]uint64),
		refunds:       make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	rejected := make(map[string]uint64, len(m.editsRejected))
	for k, v := range m.editsRejected {
		rejected[k] = v
	}
	refunds := make(map[string]uint64, len(m.refunds))
	for k, v := range m.refunds {
		refunds[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		EditsRequested:          atomic.LoadUint64(&m.editsRequested),
		EditsSucceeded:          atomic.LoadUint64(&m.editsSucceeded),
		EditsRejected:           rejected,
		ProviderFailures:        atomic.LoadUint64(&m.providerFailures),
		Refunds:                 refunds,
		CreditsPurchased:        atomic.LoadUint64(&m.creditsPurchased),
		UsersProvisioned:        atomic.LoadUint64(&m.usersProvisioned),
		ProviderDurationCount:   atomic.LoadUint64(&m.providerDurationCount),
		ProviderDurationTotalNs: atomic.LoadInt64(&m.providerDurationTotalNs),
	}
}

// IncEditRequested increments the edit request counter.
func (m *InMemoryRecorder) IncEditRequested() {
	atomic.AddUint64(&m.editsRequested, 1)
}

// IncEditSucceeded increments the successful edit counter.
func (m *InMemoryRecorder) IncEditSucceeded() {
	atomic.AddUint64(&m.editsSucceeded, 1)
}

// IncEditRejected increments the rejection counter for a reason.
func (m *InMemoryRecorder) IncEditRejected(reason string) {
	m.mu.Lock()
	m.editsRejected[reason]++
	m.mu.Unlock()
}

// ObserveProviderDuration records a provider call duration.
func (m *InMemoryRecorder) ObserveProviderDuration(duration time.Duration) {
	atomic.AddUint64(&m.providerDurationCount, 1)
	atomic.AddInt64(&m.providerDurationTotalNs, duration.Nanoseconds())
}

// IncProviderFailure increments the provider failure counter.
func (m *InMemoryRecorder) IncProviderFailure() {
	atomic.AddUint64(&m.providerFailures, 1)
}

// IncRefund increments the refund counter for an outcome.
func (m *InMemoryRecorder) IncRefund(outcome string) {
	m.mu.Lock()
	m.refunds[outcome]++
	m.mu.Unlock()
}

// IncCreditsPurchased adds purchased credits to the counter.
func (m *InMemoryRecorder) IncCreditsPurchased(amount int64) {
	if amount > 0 {
		atomic.AddUint64(&m.creditsPurchased, uint64(amount))
	}
}

// IncUserProvisioned increments the provisioning counter.
func (m *InMemoryRecorder) IncUserProvisioned() {
	atomic.AddUint64(&m.usersProvisioned, 1)
}
