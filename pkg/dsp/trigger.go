package dsp

// HysteresisTrigger converts a continuous 0..1 signal into clean edge
// events. Two thresholds give it chatter immunity: the input must rise
// above High to fire and fall below Low to re-arm, so oscillation between
// the thresholds produces no events at all.
//
// The same mechanism gates the voiced decision on the audio path and the
// gesture triggers on the sensor path.
type HysteresisTrigger struct {
	High float64
	Low  float64

	state bool
}

// NewHysteresisTrigger creates a trigger with the given thresholds.
// Low should be strictly below High; equal thresholds degenerate into a
// plain comparator with no chatter immunity.
func NewHysteresisTrigger(high, low float64) *HysteresisTrigger {
	return &HysteresisTrigger{High: high, Low: low}
}

// Process advances the trigger by one input value and reports edges.
// rose is true exactly when this value opened the trigger, fell exactly
// when it closed it.
func (t *HysteresisTrigger) Process(v float64) (rose, fell bool) {
	if !t.state && v > t.High {
		t.state = true
		return true, false
	}
	if t.state && v < t.Low {
		t.state = false
		return false, true
	}
	return false, false
}

// Open reports whether the trigger is currently in its high state.
func (t *HysteresisTrigger) Open() bool {
	return t.state
}

// Reset disarms the trigger without emitting an edge.
func (t *HysteresisTrigger) Reset() {
	t.state = false
}

// GestureTrigger is the sensor-side flavor: the threshold arrives per call
// because it tracks a runtime sensitivity control, and the low threshold
// is derived from it. Returns true on the rising edge only.
type GestureTrigger struct {
	state bool
}

// Process fires once when input crosses above threshold and re-arms once
// it falls below 60% of it.
func (t *GestureTrigger) Process(input, threshold float64) bool {
	if !t.state && input > threshold {
		t.state = true
		return true
	}
	if t.state && input < threshold*0.6 {
		t.state = false
	}
	return false
}

// Reset disarms the trigger.
func (t *GestureTrigger) Reset() {
	t.state = false
}
