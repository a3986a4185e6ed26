package feed

import (
	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/wire"
)

// BodyVector is the per-tick output of a BodyFeed.
type BodyVector struct {
	Values    [wire.BodyChannels]float64
	Fresh     bool
	Source    wire.Source
	BodyCount int
	Staleness float64
}

// BodyFeed is the depth-stream counterpart of FaceFeed: staleness decay
// plus per-channel slew over the eight body CVs.
type BodyFeed struct {
	ch *latest.Channel[wire.BodySnapshot]

	smoothers   [wire.BodyChannels]Smoother
	tracker     StalenessTracker
	lastVersion uint64

	smoothTime float64
}

// NewBodyFeed creates a feed over the given channel.
func NewBodyFeed(ch *latest.Channel[wire.BodySnapshot], timeoutSec, smoothSec float64) *BodyFeed {
	f := &BodyFeed{
		ch:      ch,
		tracker: NewStalenessTracker(timeoutSec),
	}
	f.SetSmoothTime(smoothSec)
	return f
}

// SetSmoothTime adjusts the slew time constant, clamped non-negative.
func (f *BodyFeed) SetSmoothTime(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	f.smoothTime = seconds
}

// SetTimeout adjusts the staleness timeout.
func (f *BodyFeed) SetTimeout(seconds float64) {
	f.tracker.SetTimeout(seconds)
}

// Tick advances the feed by dt seconds and fills out.
func (f *BodyFeed) Tick(dt float64, out *BodyVector) {
	if v := f.ch.Version(); v != f.lastVersion {
		f.lastVersion = v
		f.tracker.Reset()
	}
	f.tracker.Tick(dt)

	snap := f.ch.Read()
	fresh := snap.Valid && !f.tracker.TimedOut()

	for ch := 0; ch < wire.BodyChannels; ch++ {
		target := 0.0
		if fresh {
			target = snap.Chans[ch]
		}
		out.Values[ch] = f.smoothers[ch].Process(target, f.smoothTime, dt)
	}

	out.Fresh = fresh
	out.Source = snap.Source
	out.BodyCount = snap.BodyCount
	out.Staleness = f.tracker.Elapsed()
}

// Reset snaps all smoothers to zero and marks the stream stale.
func (f *BodyFeed) Reset() {
	for i := range f.smoothers {
		f.smoothers[i].Reset(0)
	}
	f.tracker = NewStalenessTracker(f.tracker.timeout)
	f.lastVersion = 0
}

// SkeletonView is the per-tick reading of the skeleton stream. Joints are
// handed through unsmoothed: they are spatial positions, not control
// voltages, and consumers interpolate them themselves.
type SkeletonView struct {
	Frame     wire.SkeletonFrame
	Fresh     bool
	Staleness float64
}

// SkeletonFeed applies staleness tracking to the skeleton channel.
type SkeletonFeed struct {
	ch          *latest.Channel[wire.SkeletonFrame]
	tracker     StalenessTracker
	lastVersion uint64
}

// NewSkeletonFeed creates a feed over the given channel.
func NewSkeletonFeed(ch *latest.Channel[wire.SkeletonFrame], timeoutSec float64) *SkeletonFeed {
	return &SkeletonFeed{
		ch:      ch,
		tracker: NewStalenessTracker(timeoutSec),
	}
}

// SetTimeout adjusts the staleness timeout.
func (f *SkeletonFeed) SetTimeout(seconds float64) {
	f.tracker.SetTimeout(seconds)
}

// Tick advances the feed by dt seconds and fills out.
func (f *SkeletonFeed) Tick(dt float64, out *SkeletonView) {
	if v := f.ch.Version(); v != f.lastVersion {
		f.lastVersion = v
		f.tracker.Reset()
	}
	f.tracker.Tick(dt)

	out.Frame = *f.ch.Read()
	out.Fresh = !f.tracker.TimedOut() && out.Frame.BodyCount > 0
	out.Staleness = f.tracker.Elapsed()
}
