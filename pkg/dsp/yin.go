package dsp

import "math"

// Quality selects the pitch analysis window size: a latency versus
// accuracy tradeoff the user picks at runtime.
type Quality int

const (
	// QualityLight is a 512-sample window, ~11ms latency at 44.1kHz.
	QualityLight Quality = iota
	// QualityBalanced is a 1024-sample window, ~23ms latency.
	QualityBalanced
	// QualityPremium is a 2048-sample window, ~46ms latency.
	QualityPremium
)

// WindowSize returns the analysis window length in samples.
func (q Quality) WindowSize() int {
	switch q {
	case QualityLight:
		return 512
	case QualityPremium:
		return 2048
	default:
		return 1024
	}
}

// String returns the preset name.
func (q Quality) String() string {
	switch q {
	case QualityLight:
		return "light"
	case QualityPremium:
		return "premium"
	default:
		return "balanced"
	}
}

// ParseQuality maps a config string onto a preset. Unknown names fall
// back to balanced.
func ParseQuality(s string) Quality {
	switch s {
	case "light":
		return QualityLight
	case "premium":
		return QualityPremium
	default:
		return QualityBalanced
	}
}

const (
	maxPitchWindow = 2048

	// First CMND dip below this accepts a lag candidate outright.
	yinThreshold = 0.15

	// defaultFallbackCeiling bounds the global-minimum fallback: if even
	// the best CMND value sits above it, the whole estimate is rejected.
	// This bound is heuristic, not tuned; it is exposed as
	// PitchDetector.FallbackCeiling rather than hardcoded.
	defaultFallbackCeiling = 0.5
)

// PitchDetector estimates the fundamental frequency of a live stream with
// the YIN difference-function method. Samples stream in one at a time;
// every half-window of new samples one analysis pass runs over the
// circular buffer. All storage is fixed at the maximum window size, so
// changing quality never allocates.
type PitchDetector struct {
	buffer [maxPitchWindow]float64
	diff   [maxPitchWindow / 2]float64
	cmnd   [maxPitchWindow / 2]float64

	windowSize  int
	hopSize     int
	writePos    int
	sampleCount int

	sampleRate float64
	minFreq    float64
	maxFreq    float64

	// FallbackCeiling rejects low-confidence global-minimum fallbacks.
	// See defaultFallbackCeiling.
	FallbackCeiling float64

	freq       float64
	confidence float64
}

// NewPitchDetector creates a detector for the given rate and preset,
// tracking 30Hz..5kHz by default.
func NewPitchDetector(sampleRate float64, q Quality) *PitchDetector {
	d := &PitchDetector{
		sampleRate:      sampleRate,
		minFreq:         30,
		maxFreq:         5000,
		FallbackCeiling: defaultFallbackCeiling,
	}
	d.SetQuality(q)
	return d
}

// SetQuality switches the window preset and re-derives the hop size.
// Analysis state restarts on the new window.
func (d *PitchDetector) SetQuality(q Quality) {
	d.windowSize = q.WindowSize()
	d.hopSize = d.windowSize / 2
	d.writePos = 0
	d.sampleCount = 0
}

// SetSampleRate updates the rate used to convert lags to frequencies.
func (d *PitchDetector) SetSampleRate(sr float64) {
	if sr > 0 {
		d.sampleRate = sr
	}
}

// SetBand restricts estimates to the given frequency range. Estimates
// outside it are rejected regardless of confidence.
func (d *PitchDetector) SetBand(minHz, maxHz float64) {
	if minHz > 0 && maxHz > minHz {
		d.minFreq = minHz
		d.maxFreq = maxHz
	}
}

// Process writes one sample into the window. Returns true when a new
// analysis pass just completed; Freq and Confidence are then current.
func (d *PitchDetector) Process(sample float64) bool {
	d.buffer[d.writePos] = sample
	d.writePos = (d.writePos + 1) % d.windowSize
	d.sampleCount++

	if d.sampleCount >= d.hopSize {
		d.sampleCount = 0
		d.analyze()
		return true
	}
	return false
}

// Freq returns the last estimated fundamental in Hz.
func (d *PitchDetector) Freq() float64 { return d.freq }

// Confidence returns the last estimate's confidence in 0..1. Zero means
// the pass rejected its estimate.
func (d *PitchDetector) Confidence() float64 { return d.confidence }

func (d *PitchDetector) analyze() {
	halfW := d.windowSize / 2

	// Difference function d(tau) over the circular window. writePos is
	// the oldest sample right after a hop completes.
	d.diff[0] = 0
	for tau := 1; tau < halfW; tau++ {
		sum := 0.0
		for j := 0; j < halfW; j++ {
			a := d.buffer[(d.writePos+j)%d.windowSize]
			b := d.buffer[(d.writePos+j+tau)%d.windowSize]
			delta := a - b
			sum += delta * delta
		}
		d.diff[tau] = sum
	}

	// Cumulative mean normalized difference.
	d.cmnd[0] = 1
	runningSum := 0.0
	for tau := 1; tau < halfW; tau++ {
		runningSum += d.diff[tau]
		if runningSum > 0 {
			d.cmnd[tau] = d.diff[tau] * float64(tau) / runningSum
		} else {
			d.cmnd[tau] = 1
		}
	}

	// Lag search band from the configured frequency band.
	minLag := int(d.sampleRate / d.maxFreq)
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(d.sampleRate / d.minFreq)
	if maxLag > halfW-1 {
		maxLag = halfW - 1
	}
	if minLag >= maxLag {
		d.confidence = 0
		return
	}

	// First dip below the absolute threshold, refined to its local
	// minimum.
	bestTau := -1
	for tau := minLag; tau < maxLag; tau++ {
		if d.cmnd[tau] < yinThreshold {
			for tau+1 < maxLag && d.cmnd[tau+1] < d.cmnd[tau] {
				tau++
			}
			bestTau = tau
			break
		}
	}

	// Fallback: global minimum, rejected outright when not confident.
	if bestTau < 0 {
		minVal := 1.0
		for tau := minLag; tau < maxLag; tau++ {
			if d.cmnd[tau] < minVal {
				minVal = d.cmnd[tau]
				bestTau = tau
			}
		}
		if minVal > d.FallbackCeiling {
			d.confidence = 0
			return
		}
	}
	if bestTau < minLag {
		d.confidence = 0
		return
	}

	// Parabolic interpolation around the chosen lag for sub-sample
	// precision.
	tauEstimate := float64(bestTau)
	if bestTau > 0 && bestTau < halfW-1 {
		s0 := d.cmnd[bestTau-1]
		s1 := d.cmnd[bestTau]
		s2 := d.cmnd[bestTau+1]
		denom := 2 * (2*s1 - s0 - s2)
		if math.Abs(denom) > 1e-6 {
			tauEstimate = float64(bestTau) + (s0-s2)/denom
		}
	}

	freq := d.sampleRate / tauEstimate
	if freq < d.minFreq || freq > d.maxFreq {
		d.confidence = 0
		return
	}

	d.freq = freq
	conf := 1 - d.cmnd[bestTau]
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	d.confidence = conf
}
