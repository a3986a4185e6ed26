package dsp

import (
	"math"
	"testing"
)

// runTone drives the analyzer with a sine and aggregates the edges seen.
func runTone(a *Analyzer, freq, amp float64, n int) (last Frame, rises, falls, onsets int) {
	sr := a.Config().SampleRate
	for i := 0; i < n; i++ {
		s := amp * math.Sin(2*math.Pi*freq*float64(i)/sr)
		last = a.Process(s)
		if last.GateRose {
			rises++
		}
		if last.GateFell {
			falls++
		}
		if last.Onset {
			onsets++
		}
	}
	return last, rises, falls, onsets
}

// A held tone opens the gate exactly once, produces a confident pitch
// within 1%, and fires an onset at the initial transient. Following
// silence closes the gate and holds the last pitch.
func TestAnalyzer_ToneThenSilence(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	last, rises, _, _ := runTone(a, 220, 0.5, 44100)
	if rises != 1 {
		t.Errorf("Expected exactly one gate rise on a held tone, got %d", rises)
	}
	if !last.Gate {
		t.Error("Expected gate open during the tone")
	}
	if last.Confidence < 0.3 {
		t.Errorf("Expected confident pitch, got %v", last.Confidence)
	}
	if math.Abs(last.Freq-220)/220 > 0.01 {
		t.Errorf("Expected ~220Hz, got %v", last.Freq)
	}
	want := PitchValue(last.Freq)
	if math.Abs(last.Pitch-want) > 0.05 {
		t.Errorf("Expected smoothed pitch near %v, got %v", want, last.Pitch)
	}
	n := a.Note()
	if n.Name != "A" || n.Octave != 3 {
		t.Errorf("Expected A3, got %s%d", n.Name, n.Octave)
	}

	held := last.Pitch
	var falls int
	for i := 0; i < 44100; i++ {
		last = a.Process(0)
		if last.GateFell {
			falls++
		}
	}
	if falls != 1 {
		t.Errorf("Expected exactly one gate fall into silence, got %d", falls)
	}
	if last.Gate {
		t.Error("Expected gate closed in silence")
	}
	if math.Abs(last.Pitch-held) > 1e-6 {
		t.Errorf("Expected pitch frozen at %v through silence, got %v", held, last.Pitch)
	}
	if last.Envelope > 0.01 {
		t.Errorf("Expected envelope decayed, got %v", last.Envelope)
	}
}

func TestAnalyzer_OnsetOnLoudnessJump(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	_, _, _, onsets := runTone(a, 220, 0.05, 22050)
	if onsets != 0 {
		t.Errorf("Expected no onsets on the quiet floor, got %d", onsets)
	}
	_, _, _, onsets = runTone(a, 220, 0.8, 22050)
	if onsets != 1 {
		t.Errorf("Expected exactly one onset on the loudness jump, got %d", onsets)
	}
}

func TestAnalyzer_QuietSignalStaysGated(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	cfg.Sensitivity = 0.2 // gate high threshold ≈ 0.16
	a := NewAnalyzer(cfg)

	last, rises, _, _ := runTone(a, 220, 0.05, 44100)
	if rises != 0 || last.Gate {
		t.Error("Expected a quiet tone to stay below the gate")
	}
	if last.Pitch != 0 {
		t.Errorf("Expected pitch untouched while gated, got %v", last.Pitch)
	}
}

func TestAnalyzer_HarmonicsFollowAcceptedPitch(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	runTone(a, 440, 0.5, 44100)

	h := a.Harmonics()
	if h.Count != MaxHarmonics {
		t.Fatalf("Expected %d harmonics for 440Hz, got %d", MaxHarmonics, h.Count)
	}
	if math.Abs(h.Freqs[1]-880) > 20 {
		t.Errorf("Expected second harmonic near 880Hz, got %v", h.Freqs[1])
	}
}

func TestAnalyzer_SettersRederiveThresholds(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	a.SetSensitivity(1)
	if got := a.gate.High; math.Abs(got-0.012) > 1e-9 {
		t.Errorf("Expected gate high 0.012 at full sensitivity, got %v", got)
	}
	a.SetSensitivity(0)
	if got := a.gate.High; math.Abs(got-0.192) > 1e-9 {
		t.Errorf("Expected gate high 0.192 at zero sensitivity, got %v", got)
	}

	a.SetPitchBand(100, 2000)
	if a.Config().PitchFloorHz != 100 || a.Config().PitchCeilHz != 2000 {
		t.Error("Expected pitch band stored in config")
	}

	a.SetQuality(QualityPremium)
	if a.Config().Quality != QualityPremium {
		t.Error("Expected quality stored in config")
	}
}

func TestAnalyzer_ResetClearsState(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	runTone(a, 220, 0.5, 22050)
	a.Reset()

	f := a.Process(0)
	if f.Pitch != 0 || f.Freq != 0 || f.Gate {
		t.Errorf("Expected clean state after reset, got %+v", f)
	}
	if a.Harmonics().Count != 0 {
		t.Error("Expected empty harmonic series after reset")
	}
}
