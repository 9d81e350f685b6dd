package adc

import (
	"sync"
	"time"
)

// Settle durations between clock edges. The fast setting gives quicker,
// noisier conversions; downstream smoothing has to absorb the extra noise.
const (
	DefaultSettle = 10 * time.Microsecond
	FastSettle    = time.Microsecond
)

// AcquisitionMode holds the process-wide conversion timing shared by every
// reader on the bus. It is explicit state rather than a hidden singleton:
// main constructs one instance and hands it to each reader, and toggling it
// affects all of them on their next conversion. Safe for concurrent use.
type AcquisitionMode struct {
	mu     sync.Mutex
	fast   bool
	settle time.Duration
	saved  time.Duration
}

// NewAcquisitionMode returns a mode running at the default settle time.
func NewAcquisitionMode() *AcquisitionMode {
	return &AcquisitionMode{settle: DefaultSettle}
}

// EnableFast switches to the fast conversion timing, saving the timing in
// effect so DisableFast can restore it exactly. Calling while already fast
// is a no-op.
func (m *AcquisitionMode) EnableFast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fast {
		return
	}
	m.saved = m.settle
	m.settle = FastSettle
	m.fast = true
}

// DisableFast restores the timing saved by EnableFast. Calling while fast
// mode is not active is a no-op.
func (m *AcquisitionMode) DisableFast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fast {
		return
	}
	m.settle = m.saved
	m.fast = false
}

// Settle returns the inter-edge settle duration currently in effect.
func (m *AcquisitionMode) Settle() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settle
}

// IsFast reports whether fast conversion timing is active.
func (m *AcquisitionMode) IsFast() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fast
}
