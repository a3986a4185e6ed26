package feed

import (
	"github.com/soma-labs/go-soma/pkg/dsp"
	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/wire"
)

// FaceVector is the per-tick output of a FaceFeed: one smoothed value per
// face channel, plus freshness for consumers that want to dim or park
// themselves while the stream is lost.
type FaceVector struct {
	Values    [wire.FaceChannels]float64
	Raw       [wire.FaceChannels]float64 // unsmoothed snapshot values, zero while stale
	Fresh     bool
	FaceCount int
	Staleness float64 // seconds since last snapshot
}

// FaceFeed reads a face snapshot channel once per tick, applies staleness
// decay and per-channel slew, and exposes the result to the real-time
// consumer. Owned by the tick goroutine; no locks, no allocation, no I/O.
type FaceFeed struct {
	ch *latest.Channel[wire.FaceSnapshot]

	smoothers   [wire.FaceChannels]Smoother
	tracker     StalenessTracker
	lastVersion uint64

	smoothTime float64 // seconds
}

// NewFaceFeed creates a feed over the given channel with the given
// staleness timeout and smoothing time constant (both seconds).
func NewFaceFeed(ch *latest.Channel[wire.FaceSnapshot], timeoutSec, smoothSec float64) *FaceFeed {
	f := &FaceFeed{
		ch:      ch,
		tracker: NewStalenessTracker(timeoutSec),
	}
	f.SetSmoothTime(smoothSec)
	return f
}

// SetSmoothTime adjusts the slew time constant at runtime, clamped
// non-negative. Zero means pass-through.
func (f *FaceFeed) SetSmoothTime(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	f.smoothTime = seconds
}

// SetTimeout adjusts the staleness timeout at runtime.
func (f *FaceFeed) SetTimeout(seconds float64) {
	f.tracker.SetTimeout(seconds)
}

// Tick advances the feed by one tick of dt seconds and fills out.
// When the stream is stale or the snapshot invalid the targets are the
// neutral vector, so outputs glide to rest rather than holding a dead
// reading forever.
func (f *FaceFeed) Tick(dt float64, out *FaceVector) {
	if v := f.ch.Version(); v != f.lastVersion {
		f.lastVersion = v
		f.tracker.Reset()
	}
	f.tracker.Tick(dt)

	snap := f.ch.Read()
	fresh := snap.Valid && !f.tracker.TimedOut()

	if fresh {
		out.Raw = snap.Chans
	} else {
		out.Raw = [wire.FaceChannels]float64{}
	}
	for ch := 0; ch < wire.FaceChannels; ch++ {
		target := 0.0
		if fresh {
			target = snap.Chans[ch]
		}
		out.Values[ch] = f.smoothers[ch].Process(target, f.smoothTime, dt)
	}

	out.Fresh = fresh
	out.FaceCount = snap.FaceCount
	out.Staleness = f.tracker.Elapsed()
}

// Reset snaps all smoothers to zero and marks the stream stale.
func (f *FaceFeed) Reset() {
	for i := range f.smoothers {
		f.smoothers[i].Reset(0)
	}
	f.tracker = NewStalenessTracker(f.tracker.timeout)
	f.lastVersion = 0
}

// Face gestures derived from raw channels. Each maps one channel through
// a hysteresis trigger; velocity rides the expression channel.
const (
	GestureBlink = iota
	GestureJaw
	GestureBrowL
	GestureBrowR
	GestureTongue

	GestureCount
)

// GestureNames maps gesture indices to stable event names.
var GestureNames = [GestureCount]string{
	"blink", "jaw", "brow_l", "brow_r", "tongue",
}

// FaceGestures detects discrete trigger events on the face stream.
// Sensitivity is 0..1; higher fires on smaller movements.
type FaceGestures struct {
	triggers [GestureCount]dsp.GestureTrigger
}

// Tick evaluates all gestures against the current (unsmoothed) vector.
// fired is per-gesture; velocity is shared, 0.5..1 from expression.
func (g *FaceGestures) Tick(v *FaceVector, sensitivity float64) (fired [GestureCount]bool, velocity float64) {
	if !v.Fresh {
		return fired, 0
	}
	thresh := 1 - sensitivity

	blink := v.Raw[wire.FaceBlinkL]
	if v.Raw[wire.FaceBlinkR] > blink {
		blink = v.Raw[wire.FaceBlinkR]
	}

	fired[GestureBlink] = g.triggers[GestureBlink].Process(blink, thresh)
	fired[GestureJaw] = g.triggers[GestureJaw].Process(v.Raw[wire.FaceJaw], thresh)
	fired[GestureBrowL] = g.triggers[GestureBrowL].Process(v.Raw[wire.FaceBrowL], thresh)
	fired[GestureBrowR] = g.triggers[GestureBrowR].Process(v.Raw[wire.FaceBrowR], thresh)
	// The tongue blendshape runs much weaker than the others.
	fired[GestureTongue] = g.triggers[GestureTongue].Process(v.Raw[wire.FaceTongue], thresh*0.3)

	velocity = 0.5 + v.Raw[wire.FaceExpression]*0.5
	return fired, velocity
}

// Reset disarms all gesture triggers.
func (g *FaceGestures) Reset() {
	for i := range g.triggers {
		g.triggers[i].Reset()
	}
}
