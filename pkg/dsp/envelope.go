package dsp

import "math"

// EnvelopeFollower tracks the amplitude of a signal with independent
// attack and release time constants. One-pole smoothing of the rectified
// sample: fast coefficient while the signal grows, slow while it decays.
type EnvelopeFollower struct {
	envelope     float64
	attackCoeff  float64
	releaseCoeff float64
}

// SetTimes derives the per-sample coefficients from attack/release times
// in milliseconds at the given sample rate.
func (f *EnvelopeFollower) SetTimes(attackMs, releaseMs, sampleRate float64) {
	if sampleRate <= 0 {
		return
	}
	f.attackCoeff = math.Exp(-1 / (attackMs * 0.001 * sampleRate))
	f.releaseCoeff = math.Exp(-1 / (releaseMs * 0.001 * sampleRate))
}

// Process advances the follower by one sample and returns the envelope.
func (f *EnvelopeFollower) Process(sample float64) float64 {
	rectified := math.Abs(sample)
	coeff := f.releaseCoeff
	if rectified > f.envelope {
		coeff = f.attackCoeff
	}
	f.envelope = coeff*f.envelope + (1-coeff)*rectified
	return f.envelope
}

// Level returns the current envelope without advancing it.
func (f *EnvelopeFollower) Level() float64 {
	return f.envelope
}

// Reset clears the envelope to silence.
func (f *EnvelopeFollower) Reset() {
	f.envelope = 0
}
