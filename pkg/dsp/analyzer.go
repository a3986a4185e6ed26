package dsp

import "math"

// AnalyzerConfig holds the tunable parameters of the audio analysis
// pipeline. All fields may change at runtime through Analyzer setters.
type AnalyzerConfig struct {
	SampleRate float64
	Quality    Quality

	// PitchFloorHz/PitchCeilHz bound plausible fundamentals.
	PitchFloorHz float64
	PitchCeilHz  float64

	// ConfidenceFloor gates pitch updates: estimates below it hold the
	// last accepted pitch instead of jumping.
	ConfidenceFloor float64

	// FallbackCeiling is handed through to the pitch detector.
	FallbackCeiling float64

	// Sensitivity (0..1) scales the voiced gate and onset thresholds.
	Sensitivity float64

	// Smoothing (0..1) scales envelope attack/release and pitch slew.
	Smoothing float64

	// OnsetCooldownMs is the minimum spacing between onset events.
	OnsetCooldownMs float64
}

// DefaultAnalyzerConfig returns the recommended analysis settings at
// 44.1kHz.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleRate:      44100,
		Quality:         QualityBalanced,
		PitchFloorHz:    30,
		PitchCeilHz:     5000,
		ConfidenceFloor: 0.3,
		FallbackCeiling: defaultFallbackCeiling,
		Sensitivity:     0.5,
		Smoothing:       0.4,
		OnsetCooldownMs: 50,
	}
}

// Frame is the per-sample output of the analyzer. Pitch is on the log2
// control scale and only advances on confident, voiced estimates.
type Frame struct {
	Pitch      float64 // smoothed log2 control value
	Freq       float64 // last accepted fundamental, Hz
	Confidence float64 // 0..1
	Envelope   float64 // 0..1-ish amplitude
	Brightness float64 // 0..1
	Gate       bool    // voiced decision
	GateRose   bool
	GateFell   bool
	Onset      bool
}

// Analyzer composes the streaming pitch, envelope, onset and brightness
// stages into one per-sample pipeline. It owns all analysis state and is
// meant to be driven from a single real-time goroutine; Process performs
// no allocation and no I/O.
type Analyzer struct {
	cfg AnalyzerConfig

	pitch  *PitchDetector
	env    EnvelopeFollower
	onset  *OnsetDetector
	bright *BrightnessTracker
	gate   *HysteresisTrigger

	harmonics Harmonics
	note      Note

	pitchValue    float64 // last accepted, unsmoothed
	smoothedPitch float64
	lastFreq      float64
	lastConf      float64
}

// NewAnalyzer builds the pipeline from a config.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	a := &Analyzer{
		cfg:    cfg,
		pitch:  NewPitchDetector(cfg.SampleRate, cfg.Quality),
		onset:  NewOnsetDetector(cfg.SampleRate),
		bright: NewBrightnessTracker(1024),
		gate:   NewHysteresisTrigger(0, 0),
	}
	a.apply()
	return a
}

// apply re-derives every stage constant from the config. Called on
// construction and after any setter.
func (a *Analyzer) apply() {
	cfg := &a.cfg
	if cfg.Sensitivity < 0 {
		cfg.Sensitivity = 0
	}
	if cfg.Sensitivity > 1 {
		cfg.Sensitivity = 1
	}
	if cfg.Smoothing < 0 {
		cfg.Smoothing = 0
	}
	if cfg.Smoothing > 1 {
		cfg.Smoothing = 1
	}

	a.pitch.SetSampleRate(cfg.SampleRate)
	a.pitch.SetBand(cfg.PitchFloorHz, cfg.PitchCeilHz)
	a.pitch.FallbackCeiling = cfg.FallbackCeiling

	a.onset.SetCooldown(cfg.OnsetCooldownMs, cfg.SampleRate)
	a.onset.SetSensitivity(cfg.Sensitivity)

	// Attack 1..50ms, release 10..500ms across the smoothing range.
	a.env.SetTimes(1+cfg.Smoothing*49, 10+cfg.Smoothing*490, cfg.SampleRate)

	// Voiced gate thresholds track sensitivity, with hysteresis spread
	// around the base threshold.
	base := 0.01 + (1-cfg.Sensitivity)*0.15
	a.gate.High = base * 1.2
	a.gate.Low = base * 0.8
}

// SetQuality switches the analysis window preset at runtime.
func (a *Analyzer) SetQuality(q Quality) {
	a.cfg.Quality = q
	a.pitch.SetQuality(q)
}

// SetSensitivity adjusts gate and onset thresholds (0..1).
func (a *Analyzer) SetSensitivity(s float64) {
	a.cfg.Sensitivity = s
	a.apply()
}

// SetSmoothing adjusts envelope and pitch slew (0..1).
func (a *Analyzer) SetSmoothing(s float64) {
	a.cfg.Smoothing = s
	a.apply()
}

// SetPitchBand restricts plausible fundamentals at runtime.
func (a *Analyzer) SetPitchBand(minHz, maxHz float64) {
	a.cfg.PitchFloorHz = minHz
	a.cfg.PitchCeilHz = maxHz
	a.pitch.SetBand(minHz, maxHz)
}

// SetOnsetCooldown adjusts the onset retrigger spacing in milliseconds.
func (a *Analyzer) SetOnsetCooldown(ms float64) {
	a.cfg.OnsetCooldownMs = ms
	a.onset.SetCooldown(ms, a.cfg.SampleRate)
}

// Config returns the current settings.
func (a *Analyzer) Config() AnalyzerConfig {
	return a.cfg
}

// Process advances every stage by one sample and returns the derived
// frame. The voiced gate rides the envelope through hysteresis; pitch
// only moves while the gate is open and the estimate is confident, so
// unvoiced stretches hold the last accepted pitch.
func (a *Analyzer) Process(sample float64) Frame {
	var out Frame

	envRaw := a.env.Process(sample)
	out.Envelope = envRaw

	out.GateRose, out.GateFell = a.gate.Process(envRaw)
	out.Gate = a.gate.Open()

	if a.pitch.Process(sample) {
		conf := a.pitch.Confidence()
		if conf > a.cfg.ConfidenceFloor && out.Gate {
			freq := a.pitch.Freq()
			a.pitchValue = PitchValue(freq)
			a.lastFreq = freq
			a.lastConf = conf
			a.note = NoteFromFreq(freq)
			a.harmonics.Analyze(freq, conf)
		}
	}

	// One-pole slew toward the accepted pitch, frozen while unvoiced so
	// silence cannot drag the value anywhere.
	if out.Gate {
		tc := a.cfg.Smoothing * 0.05
		if tc < 0.001 {
			tc = 0.001
		}
		coeff := 1 - math.Exp(-1/(tc*a.cfg.SampleRate))
		a.smoothedPitch += (a.pitchValue - a.smoothedPitch) * coeff
	}
	out.Pitch = a.smoothedPitch
	out.Freq = a.lastFreq
	out.Confidence = a.lastConf

	out.Onset = a.onset.Process(sample)
	out.Brightness = a.bright.Process(sample)

	return out
}

// Note returns the display reading of the last accepted pitch.
func (a *Analyzer) Note() Note {
	return a.note
}

// Harmonics returns the series derived from the last accepted pitch.
func (a *Analyzer) Harmonics() *Harmonics {
	return &a.harmonics
}

// Reset clears all analysis state, keeping the configuration.
func (a *Analyzer) Reset() {
	a.pitch.SetQuality(a.cfg.Quality)
	a.env.Reset()
	a.onset.Reset()
	a.bright.Reset()
	a.gate.Reset()
	a.harmonics.Count = 0
	a.pitchValue = 0
	a.smoothedPitch = 0
	a.lastFreq = 0
	a.lastConf = 0
	a.note = Note{}
}
