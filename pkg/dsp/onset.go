package dsp

import "math"

// Onset detection defaults. The ratio and margin gates both have to pass
// before an onset fires, so a slow swell or a noisy floor alone never
// triggers.
const (
	onsetWindowSize   = 512
	onsetRatioBase    = 1.5  // current/previous RMS must exceed this
	onsetMarginBase   = 1.2  // and current RMS must exceed adaptive × this
	onsetAdaptiveRate = 0.05 // EMA weight of the adaptive threshold
	onsetEnergyFloor  = 0.001
)

// OnsetDetector finds transients by comparing windowed RMS energy against
// the previous window and a slowly adapting running average. A retrigger
// cooldown stops a single transient from firing twice.
type OnsetDetector struct {
	windowSize  int
	sampleCount int
	energyAcc   float64

	prevEnergy    float64
	currentEnergy float64
	adaptive      float64

	ratioThreshold  float64
	marginThreshold float64

	cooldownSamples int
	cooldownMax     int
}

// NewOnsetDetector creates a detector with default thresholds and a 50ms
// cooldown at the given sample rate.
func NewOnsetDetector(sampleRate float64) *OnsetDetector {
	d := &OnsetDetector{
		windowSize:      onsetWindowSize,
		ratioThreshold:  onsetRatioBase,
		marginThreshold: onsetMarginBase,
	}
	d.SetCooldown(50, sampleRate)
	return d
}

// SetCooldown sets the minimum spacing between onsets in milliseconds.
func (d *OnsetDetector) SetCooldown(ms, sampleRate float64) {
	d.cooldownMax = int(ms * 0.001 * sampleRate)
}

// SetSensitivity maps a 0..1 control onto the detection thresholds.
// Higher sensitivity lowers both the ratio and the margin requirements.
func (d *OnsetDetector) SetSensitivity(s float64) {
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	d.ratioThreshold = onsetRatioBase + (0.5-s)*0.8
	d.marginThreshold = onsetMarginBase + (0.5-s)*0.4
}

// Process advances the detector by one sample. Returns true on onset.
func (d *OnsetDetector) Process(sample float64) bool {
	d.energyAcc += sample * sample
	d.sampleCount++

	if d.cooldownSamples > 0 {
		d.cooldownSamples--
	}

	if d.sampleCount < d.windowSize {
		return false
	}
	d.sampleCount = 0
	d.prevEnergy = d.currentEnergy
	d.currentEnergy = math.Sqrt(d.energyAcc / float64(d.windowSize))
	d.energyAcc = 0

	// Slow-moving average the absolute level is judged against.
	d.adaptive = d.adaptive*(1-onsetAdaptiveRate) + d.currentEnergy*onsetAdaptiveRate

	if d.prevEnergy > onsetEnergyFloor && d.cooldownSamples <= 0 {
		ratio := d.currentEnergy / d.prevEnergy
		if ratio > d.ratioThreshold && d.currentEnergy > d.adaptive*d.marginThreshold {
			d.cooldownSamples = d.cooldownMax
			return true
		}
	}
	return false
}

// Reset clears accumulated energy and the adaptive threshold.
func (d *OnsetDetector) Reset() {
	d.sampleCount = 0
	d.energyAcc = 0
	d.prevEnergy = 0
	d.currentEnergy = 0
	d.adaptive = 0
	d.cooldownSamples = 0
}
