// Package receiver owns the background UDP listen loops that feed the
// snapshot channels. Each loop reads datagrams with a short deadline,
// decodes them through pkg/wire, and publishes complete snapshots; a
// malformed packet is dropped and counted, never fatal. The loops are the
// single writer of their channels, so stopping a receiver before
// reconfiguring guarantees no write races the change.
package receiver

import (
	"math"
	"net"
	"sync/atomic"
	"time"
)

// readTimeout bounds how long a loop blocks in a receive call, which is
// also how promptly it observes Stop.
const readTimeout = 100 * time.Millisecond

// rateWindow is the packets-per-second measurement window.
const rateWindow = time.Second

// Stats is a point-in-time snapshot of a receiver's counters.
type Stats struct {
	Port          int     `json:"port"`
	Running       bool    `json:"running"`
	Packets       uint64  `json:"packets"`
	Dropped       uint64  `json:"dropped"`
	PacketsPerSec float64 `json:"packets_per_sec"`
}

// counters is the shared hot-path telemetry: plain atomics, sampled once
// per window, never locked against the decode path.
type counters struct {
	packets atomic.Uint64
	dropped atomic.Uint64
	rate    atomic.Uint64 // float64 bits
}

func (c *counters) setRate(v float64) {
	c.rate.Store(math.Float64bits(v))
}

func (c *counters) stats(port int, running bool) Stats {
	return Stats{
		Port:          port,
		Running:       running,
		Packets:       c.packets.Load(),
		Dropped:       c.dropped.Load(),
		PacketsPerSec: math.Float64frombits(c.rate.Load()),
	}
}

// rateMeter folds received-packet counts into a rolling rate. Owned by
// one receive loop.
type rateMeter struct {
	count int
	since time.Time
}

func newRateMeter() rateMeter {
	return rateMeter{since: time.Now()}
}

// tick counts n packets and publishes the rate once per window.
func (m *rateMeter) tick(n int, c *counters) {
	m.count += n
	if elapsed := time.Since(m.since); elapsed >= rateWindow {
		c.setRate(float64(m.count) / elapsed.Seconds())
		m.count = 0
		m.since = time.Now()
	}
}

var monotonicEpoch = time.Now()

// monotonicMicros returns microseconds since process start on the
// monotonic clock. Used to stamp snapshots whose sender supplied no
// timestamp: staleness logic downstream always needs one.
func monotonicMicros() uint64 {
	return uint64(time.Since(monotonicEpoch).Microseconds())
}

// bindUDP opens a loopback UDP socket on the given port.
func bindUDP(port int) (*net.UDPConn, error) {
	return net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
}

// deadline returns the next read deadline for a receive loop.
func deadline() time.Time {
	return time.Now().Add(readTimeout)
}

// isTimeout reports whether a receive error is just the read deadline.
func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
