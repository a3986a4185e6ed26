// Package latest provides a wait-free single-writer/single-reader
// latest-value handoff. It is the only crossing point between the
// arrival-driven network goroutines and the deadline-driven control tick:
// the writer publishes complete snapshots, the reader always sees the most
// recent one, and neither side ever blocks the other.
//
// There is deliberately no queue. A reader that ticks slower than the
// writer skips intermediate values; freshness matters more than history.
package latest

import "sync/atomic"

// state packs the index of the in-flight slot with a fresh bit. The
// atomic exchange on state is what carries the publish ordering: a slot's
// contents are fully written before its index lands in state, so a reader
// that claims the index can never observe a torn value.
const freshBit = 0x4

// Channel is a latest-value cell for exactly one writer goroutine and one
// reader goroutine. Three pre-allocated slots rotate between the writer,
// the reader, and the in-flight position; ownership moves only through the
// atomic state word, and neither Write nor Read allocates after New.
type Channel[T any] struct {
	slots   [3]T
	state   atomic.Uint32 // in-flight slot index, plus freshBit when unread
	version atomic.Uint64 // bumped once per publish

	wIdx uint32 // writer-owned scratch slot
	rIdx uint32 // reader-owned stable slot
}

// New creates an empty channel. The zero snapshot is what readers see
// until the first Write.
func New[T any]() *Channel[T] {
	c := &Channel[T]{wIdx: 0, rIdx: 1}
	c.state.Store(2)
	return c
}

// Write publishes a new value, replacing any previous value the reader has
// not yet claimed. Writer goroutine only.
func (c *Channel[T]) Write(v T) {
	c.slots[c.wIdx] = v
	old := c.state.Swap(c.wIdx | freshBit)
	c.wIdx = old &^ freshBit
	c.version.Add(1)
}

// Read returns the most recently published value. The pointer stays valid
// and unchanged until the next Read. Reader goroutine only.
func (c *Channel[T]) Read() *T {
	for {
		s := c.state.Load()
		if s&freshBit == 0 {
			// Nothing new since our last claim.
			return &c.slots[c.rIdx]
		}
		// Trade our slot for the freshly published one. The CAS fails
		// only if the writer published again meanwhile; retry claims
		// the even newer value.
		if c.state.CompareAndSwap(s, c.rIdx) {
			c.rIdx = s &^ freshBit
			return &c.slots[c.rIdx]
		}
	}
}

// Version returns the publish counter. A change between two calls means at
// least one new value was written in between; equal values mean none was.
func (c *Channel[T]) Version() uint64 {
	return c.version.Load()
}
