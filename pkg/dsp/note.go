package dsp

import "math"

// RefPitchHz is the tuning reference for pitch control values:
// C4 maps to 0.0 and every octave adds 1.0.
const RefPitchHz = 261.626

// PitchValue converts a frequency to the log2 control scale.
func PitchValue(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return math.Log2(freq / RefPitchHz)
}

var noteNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// Note is a musical reading of a frequency for display.
type Note struct {
	Name   string
	Octave int
	Cents  float64
}

// NoteFromFreq maps a frequency to its nearest equal-tempered note and
// the deviation in cents. Frequencies below 10Hz read as no note.
func NoteFromFreq(freq float64) Note {
	if freq < 10 {
		return Note{Name: "---"}
	}
	midi := 69 + 12*math.Log2(freq/440)
	midiNote := int(math.Round(midi))
	idx := ((midiNote % 12) + 12) % 12
	return Note{
		Name:   noteNames[idx],
		Octave: midiNote/12 - 1,
		Cents:  (midi - float64(midiNote)) * 100,
	}
}

// MaxHarmonics bounds the synthesized harmonic series.
const MaxHarmonics = 8

// Harmonics derives the theoretical harmonic series of a detected
// fundamental as pitch control values. Harmonics above 16kHz are cut; an
// unconfident or sub-audible fundamental yields an empty series.
type Harmonics struct {
	Freqs  [MaxHarmonics]float64
	Values [MaxHarmonics]float64
	Count  int
}

// Analyze rebuilds the series for the given fundamental.
func (h *Harmonics) Analyze(fundamental, confidence float64) {
	if fundamental < 20 || confidence < 0.3 {
		h.Count = 0
		return
	}
	h.Count = MaxHarmonics
	for i := 0; i < MaxHarmonics; i++ {
		freq := fundamental * float64(i+1)
		if freq > 16000 {
			h.Count = i
			break
		}
		h.Freqs[i] = freq
		h.Values[i] = PitchValue(freq)
	}
}
