// Package status provides a thread-safe status tracker for the analog-sensor
// daemon. It is designed to be read by HTTP handlers and heartbeat events.
package status

import (
	"sync"
	"time"
)

// NetworkInfo contains network state reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Counts tracks filter activity since startup.
type Counts struct {
	Changes int // cycles where the conditioned output moved
	Wakes   int // transitions from sleeping to active
	Sleeps  int // transitions from active to sleeping
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs            int64
	HeartbeatMs       int64
	SnapMultiplier    float64
	ActivityThreshold float64
	Resolution        int
	Channel           int
	Broker            string
	HTTPAddr          string
	WSBroker          string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Value         int // conditioned output
	Raw           int // last unprocessed sample
	Sleeping      bool
	FastADC       bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the filter outputs and activity counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(value, raw int, sleeping bool, counts Counts) {
	t.mu.Lock()
	t.snap.Value = value
	t.snap.Raw = raw
	t.snap.Sleeping = sleeping
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetFastADC records whether fast acquisition timing is active.
func (t *Tracker) SetFastADC(fast bool) {
	t.mu.Lock()
	t.snap.FastADC = fast
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
