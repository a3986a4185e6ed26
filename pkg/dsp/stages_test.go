package dsp

import (
	"math"
	"testing"
)

func TestEnvelopeFollower_AttackAndRelease(t *testing.T) {
	var f EnvelopeFollower
	f.SetTimes(5, 100, 44100)

	// Full-scale input: the envelope must rise most of the way within a
	// few attack time constants.
	for i := 0; i < 2205; i++ { // 50ms
		f.Process(1)
	}
	peak := f.Level()
	if peak < 0.9 {
		t.Errorf("Expected envelope near 1 after 50ms of full scale, got %v", peak)
	}

	// Silence: the release is 20x slower, so 50ms of decay keeps most of
	// the level, and 500ms loses nearly all of it.
	for i := 0; i < 2205; i++ {
		f.Process(0)
	}
	after50 := f.Level()
	if after50 > peak {
		t.Error("Envelope must not grow during silence")
	}
	if after50 < peak*0.3 {
		t.Errorf("Release too fast: %v of %v left after 50ms", after50, peak)
	}

	for i := 0; i < 22050; i++ {
		f.Process(0)
	}
	if f.Level() > 0.05 {
		t.Errorf("Expected envelope near 0 after 500ms of silence, got %v", f.Level())
	}
}

func TestEnvelopeFollower_Reset(t *testing.T) {
	var f EnvelopeFollower
	f.SetTimes(5, 100, 44100)
	for i := 0; i < 1000; i++ {
		f.Process(1)
	}
	f.Reset()
	if f.Level() != 0 {
		t.Errorf("Expected 0 after reset, got %v", f.Level())
	}
}

// feedLevel pushes one constant-level analysis window into the detector
// and reports whether any sample fired an onset.
func feedLevel(d *OnsetDetector, level float64) bool {
	fired := false
	for i := 0; i < onsetWindowSize; i++ {
		if d.Process(level) {
			fired = true
		}
	}
	return fired
}

func TestOnsetDetector_FiresOnTransient(t *testing.T) {
	d := NewOnsetDetector(44100)
	d.SetCooldown(10, 44100)

	if feedLevel(d, 0.05) {
		t.Error("Quiet floor must not fire")
	}
	if !feedLevel(d, 0.8) {
		t.Error("Expected onset on a 16x energy jump")
	}
	if feedLevel(d, 0.8) {
		t.Error("Sustained level must not refire")
	}
}

func TestOnsetDetector_CooldownSuppressesRetrigger(t *testing.T) {
	d := NewOnsetDetector(44100) // 50ms cooldown = 2205 samples
	feedLevel(d, 0.05)
	if !feedLevel(d, 0.8) {
		t.Fatal("Expected first onset")
	}

	// A second transient 512 samples later is well inside the cooldown.
	feedLevel(d, 0.05)
	if feedLevel(d, 0.8) {
		t.Error("Expected cooldown to suppress the second onset")
	}
}

func TestOnsetDetector_RefiresAfterCooldown(t *testing.T) {
	d := NewOnsetDetector(44100)
	d.SetCooldown(10, 44100) // 441 samples, shorter than one window

	feedLevel(d, 0.05)
	if !feedLevel(d, 0.8) {
		t.Fatal("Expected first onset")
	}
	feedLevel(d, 0.05)
	if !feedLevel(d, 0.8) {
		t.Error("Expected onset to refire after cooldown expired")
	}
}

func TestOnsetDetector_SilenceNeverFires(t *testing.T) {
	d := NewOnsetDetector(44100)
	for i := 0; i < 8*onsetWindowSize; i++ {
		if d.Process(0) {
			t.Fatal("Silence fired an onset")
		}
	}
}

func TestBrightnessTracker_OrdersByFrequency(t *testing.T) {
	low := NewBrightnessTracker(1024)
	high := NewBrightnessTracker(1024)

	for i := 0; i < 44100; i++ {
		ph := float64(i) / 44100
		low.Process(math.Sin(2 * math.Pi * 200 * ph))
		high.Process(math.Sin(2 * math.Pi * 4000 * ph))
	}

	if high.Raw() <= low.Raw() {
		t.Errorf("Expected 4kHz brighter than 200Hz, got %v vs %v", high.Raw(), low.Raw())
	}
	if l := low.Process(0); l < 0 || l > 1 {
		t.Errorf("Brightness out of range: %v", l)
	}
}

func TestHysteresisTrigger_ChatterImmunity(t *testing.T) {
	tr := NewHysteresisTrigger(0.6, 0.4)

	rose, fell := tr.Process(0.7)
	if !rose || fell {
		t.Error("Expected rising edge crossing High")
	}
	if !tr.Open() {
		t.Error("Expected trigger open after rise")
	}

	// Oscillation between the thresholds produces no edges.
	for _, v := range []float64{0.55, 0.45, 0.59, 0.41, 0.5} {
		rose, fell = tr.Process(v)
		if rose || fell {
			t.Errorf("Unexpected edge at %v inside the hysteresis band", v)
		}
	}

	rose, fell = tr.Process(0.3)
	if rose || !fell {
		t.Error("Expected falling edge crossing Low")
	}
	if tr.Open() {
		t.Error("Expected trigger closed after fall")
	}
}

func TestHysteresisTrigger_CountsEdgesOnce(t *testing.T) {
	tr := NewHysteresisTrigger(0.6, 0.4)
	edges := 0
	signal := []float64{0.1, 0.7, 0.8, 0.9, 0.3, 0.1, 0.7, 0.2}
	for _, v := range signal {
		if rose, _ := tr.Process(v); rose {
			edges++
		}
	}
	if edges != 2 {
		t.Errorf("Expected exactly 2 rising edges, got %d", edges)
	}
}

func TestGestureTrigger_RearmBelow60Percent(t *testing.T) {
	var tr GestureTrigger

	if !tr.Process(0.8, 0.5) {
		t.Error("Expected fire above threshold")
	}
	if tr.Process(0.9, 0.5) {
		t.Error("Expected no refire while held")
	}
	// Dropping below threshold but above 60% of it must not rearm.
	if tr.Process(0.4, 0.5) {
		t.Error("Expected no fire at 0.4")
	}
	if tr.Process(0.8, 0.5) {
		t.Error("Expected still armed-off: 0.4 > 0.3 rearm point")
	}
	// Below 60% rearms; the next crossing fires.
	tr.Process(0.2, 0.5)
	if !tr.Process(0.8, 0.5) {
		t.Error("Expected fire after rearm")
	}
}
