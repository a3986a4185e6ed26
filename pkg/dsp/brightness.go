package dsp

// BrightnessTracker approximates spectral brightness from the
// zero-crossing rate. A real centroid needs an FFT; for control signals
// the crossing count over a window is close enough and costs one compare
// per sample. Typical voice ZCR sits in 0.01..0.3, so the normalized rate
// is scaled by 5 before clamping to 0..1.
type BrightnessTracker struct {
	prevSample  float64
	crossings   int
	sampleCount int

	// WindowSize is the number of samples per measurement. May be changed
	// between samples; the running window finishes at its old length.
	WindowSize int

	brightness float64
	smoothed   float64
}

// NewBrightnessTracker creates a tracker with the given window length.
func NewBrightnessTracker(windowSize int) *BrightnessTracker {
	if windowSize <= 0 {
		windowSize = 1024
	}
	return &BrightnessTracker{WindowSize: windowSize}
}

// Process advances the tracker by one sample and returns the low-pass
// smoothed brightness in 0..1.
func (b *BrightnessTracker) Process(sample float64) float64 {
	if (sample > 0 && b.prevSample <= 0) || (sample < 0 && b.prevSample >= 0) {
		b.crossings++
	}
	b.prevSample = sample
	b.sampleCount++

	if b.sampleCount >= b.WindowSize {
		zcr := float64(b.crossings) / float64(b.WindowSize)
		b.brightness = zcr * 5
		if b.brightness > 1 {
			b.brightness = 1
		}
		b.crossings = 0
		b.sampleCount = 0
	}

	// Heavy smoothing keeps the control usable for display.
	b.smoothed += (b.brightness - b.smoothed) * 0.001
	return b.smoothed
}

// Raw returns the last unsmoothed window measurement.
func (b *BrightnessTracker) Raw() float64 {
	return b.brightness
}

// Reset clears all state.
func (b *BrightnessTracker) Reset() {
	b.prevSample = 0
	b.crossings = 0
	b.sampleCount = 0
	b.brightness = 0
	b.smoothed = 0
}
