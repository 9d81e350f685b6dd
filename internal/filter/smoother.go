// Package filter implements adaptive smoothing of noisy analog samples.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time).
// It is a pure function over stored state: one Update call per poll cycle.
//
// The smoother is an exponential moving average whose blending weight is
// derived per cycle from the size of the deviation (the "snap curve"): tiny
// deviations are treated as noise and barely move the output, large ones
// pass through almost immediately. A second EMA over the signed deviation
// acts as an activity detector so the output can stop dead once the input
// settles, instead of creeping for many cycles.
package filter

import (
	"fmt"
	"math"
)

// Defaults applied by NewSmoother. Resolution matches a 10-bit converter.
const (
	DefaultSnapMultiplier    = 0.01
	DefaultActivityThreshold = 4.0
	DefaultResolution        = 1024
)

// errorSmoothing is the fixed EMA constant for the activity detector.
const errorSmoothing = 0.4

// Sampler supplies raw samples for pull-mode updates.
// adc.Reader satisfies it.
type Sampler interface {
	Read() (int, error)
}

// Smoother conditions one analog channel. Not safe for concurrent use;
// callers sharing a Smoother must serialize Update calls.
type Smoother struct {
	sleepEnabled      bool
	edgeSnapEnabled   bool
	snapMultiplier    float64
	activityThreshold float64
	resolution        int

	rawValue    int
	smoothValue float64
	errorEMA    float64
	sleeping    bool
	value       int
	prevValue   int
	changed     bool
}

// NewSmoother creates a smoother with the given sleep setting and snap
// multiplier. The multiplier is clamped to [0, 1]; edge snap is on by
// default and only takes effect while sleep is enabled.
func NewSmoother(sleepEnabled bool, snapMultiplier float64) *Smoother {
	s := &Smoother{
		sleepEnabled:      sleepEnabled,
		edgeSnapEnabled:   true,
		activityThreshold: DefaultActivityThreshold,
		resolution:        DefaultResolution,
	}
	s.SetSnapMultiplier(snapMultiplier)
	return s
}

// Update feeds one caller-supplied raw sample through the filter.
// This is the variant to use for deterministic testing and for samples
// that arrive from an external source.
func (s *Smoother) Update(raw int) {
	s.rawValue = raw
	s.prevValue = s.value
	s.value = s.respond(float64(raw))
	s.changed = s.value != s.prevValue
}

// UpdateFrom pulls one sample from src and feeds it through the filter.
// On a read error the filter state is left untouched.
func (s *Smoother) UpdateFrom(src Sampler) error {
	raw, err := src.Read()
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}
	s.Update(raw)
	return nil
}

// respond runs one cycle of the core algorithm and returns the truncated
// output value.
func (s *Smoother) respond(n float64) int {
	// When sleep and edge snap are enabled and the sample is close to a
	// rail, drag it a little past the rail. The sleep hysteresis would
	// otherwise make 0 and resolution-1 unreachable: deviations that small
	// never exceed the activity threshold.
	if s.sleepEnabled && s.edgeSnapEnabled {
		if n < s.activityThreshold {
			n = 2*n - s.activityThreshold
		} else if n > float64(s.resolution)-s.activityThreshold {
			n = 2*n - float64(s.resolution) + s.activityThreshold
		}
	}

	// Integer-truncated deviation magnitude drives the snap curve.
	diff := math.Trunc(math.Abs(n - s.smoothValue))

	// Second EMA over the signed deviation, used only as an activity
	// detector. Noise oscillating around the output cancels itself out
	// here; genuine movement accumulates with a consistent sign.
	s.errorEMA += ((n - s.smoothValue) - s.errorEMA) * errorSmoothing

	if s.sleepEnabled {
		s.sleeping = math.Abs(s.errorEMA) < s.activityThreshold
	}

	// While asleep the output is frozen; the raw value and the activity
	// detector above keep updating so a genuine move wakes the channel.
	if s.sleepEnabled && s.sleeping {
		return int(s.smoothValue)
	}

	snap := snapCurve(diff * s.snapMultiplier)
	s.smoothValue += (n - s.smoothValue) * snap

	if s.smoothValue < 0 {
		s.smoothValue = 0
	} else if s.smoothValue > float64(s.resolution-1) {
		s.smoothValue = float64(s.resolution - 1)
	}

	return int(s.smoothValue)
}

// snapCurve maps a scaled deviation to an EMA blending weight in [0, 1].
// snapCurve(0) = 0, monotonically increasing, saturates at 1 for x >= 1.
// Built from the hyperbola 1/(x+1): close to the current value the weight
// stays near zero (aggressive noise rejection), a modest distance away it
// climbs steeply toward full weight (snappy tracking).
func snapCurve(x float64) float64 {
	y := 1 / (x + 1)
	y = (1 - y) * 2
	if y > 1 {
		return 1
	}
	return y
}

// Value returns the conditioned output from the most recent cycle.
func (s *Smoother) Value() int {
	return s.value
}

// RawValue returns the unprocessed sample from the most recent cycle.
func (s *Smoother) RawValue() int {
	return s.rawValue
}

// HasChanged reports whether the most recent cycle produced a different
// output than the cycle before it.
func (s *Smoother) HasChanged() bool {
	return s.changed
}

// IsSleeping reports whether the filter is currently suppressing output
// updates. Always false while sleep is disabled.
func (s *Smoother) IsSleeping() bool {
	return s.sleeping
}

// SetSnapMultiplier sets the snap-curve input scale. Values outside [0, 1]
// are clamped, not rejected. Smaller values mean more smoothing and slower
// response; 1 effectively disables smoothing.
func (s *Smoother) SetSnapMultiplier(m float64) {
	if m > 1 {
		m = 1
	} else if m < 0 {
		m = 0
	}
	s.snapMultiplier = m
}

// SetActivityThreshold sets the deviation magnitude below which the channel
// is considered idle. Stored as given; callers own its validity.
func (s *Smoother) SetActivityThreshold(threshold float64) {
	s.activityThreshold = threshold
}

// SetResolution sets the exclusive upper bound of the sample range.
// Stored as given; callers own its validity.
func (s *Smoother) SetResolution(resolution int) {
	s.resolution = resolution
}

// EnableSleep allows the output to freeze once activity drops below the
// threshold.
func (s *Smoother) EnableSleep() {
	s.sleepEnabled = true
}

// DisableSleep keeps the output updating on every cycle. The sleeping flag
// is left as-is; it only suppresses updates while sleep is enabled, and the
// next enabled cycle recomputes it.
func (s *Smoother) DisableSleep() {
	s.sleepEnabled = false
}

// EnableEdgeSnap turns on rail pre-correction (only meaningful with sleep
// enabled).
func (s *Smoother) EnableEdgeSnap() {
	s.edgeSnapEnabled = true
}

// DisableEdgeSnap turns off rail pre-correction.
func (s *Smoother) DisableEdgeSnap() {
	s.edgeSnapEnabled = false
}
