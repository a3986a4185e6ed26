// Package feed turns raw snapshot channels into per-tick control vectors.
// It is the only code the real-time tick runs against network-derived
// data: reads are lock-free, cost is bounded, and values that stop
// arriving decay to neutral instead of freezing at their last reading.
package feed

// Smoother is a single-pole slew toward a target value. The coefficient
// is derived each tick from the ratio of tick period to time constant, so
// the time constant can change at runtime without discontinuities.
type Smoother struct {
	value float64
}

// Process moves the output toward target and returns it. smoothTime and
// dt are in seconds; smoothTime under a millisecond passes the target
// through unsmoothed.
func (s *Smoother) Process(target, smoothTime, dt float64) float64 {
	if smoothTime < 0.001 {
		s.value = target
	} else {
		alpha := dt / (smoothTime*0.5 + dt)
		s.value += alpha * (target - s.value)
	}
	return s.value
}

// Value returns the current output without advancing it.
func (s *Smoother) Value() float64 {
	return s.value
}

// Reset snaps the output to v.
func (s *Smoother) Reset(v float64) {
	s.value = v
}

// StalenessTracker measures time since the last observed channel update.
// It starts timed out: a consumer that never sees a packet must behave as
// if the stream were lost, not as if a zero snapshot were real.
type StalenessTracker struct {
	elapsed float64
	timeout float64
}

// NewStalenessTracker creates a tracker with the given timeout in
// seconds.
func NewStalenessTracker(timeoutSec float64) StalenessTracker {
	return StalenessTracker{elapsed: 999, timeout: timeoutSec}
}

// SetTimeout changes the timeout, clamped non-negative.
func (t *StalenessTracker) SetTimeout(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	t.timeout = seconds
}

// Tick accumulates elapsed tick time.
func (t *StalenessTracker) Tick(dt float64) {
	t.elapsed += dt
}

// Reset marks the stream fresh; call when the channel version changes.
func (t *StalenessTracker) Reset() {
	t.elapsed = 0
}

// TimedOut reports whether the stream has been silent past the timeout.
func (t *StalenessTracker) TimedOut() bool {
	return t.elapsed > t.timeout
}

// Elapsed returns seconds since the last observed update.
func (t *StalenessTracker) Elapsed() float64 {
	return t.elapsed
}
