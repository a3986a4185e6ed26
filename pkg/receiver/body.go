package receiver

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/wire"
)

// BodyReceiver listens on one port shared by the BODY and SKEL streams
// and dispatches each datagram by its magic tag, so the fixed-size depth
// summary and the variable-size skeleton packets cannot block each other.
// Decoded snapshots go to two independent channels.
//
// Skeleton packets carry one body each; the receiver accumulates them
// into a frame it owns (it is the channel's single writer and must not
// read it back) and publishes a copy on every merge.
type BodyReceiver struct {
	port   int
	bodyCh *latest.Channel[wire.BodySnapshot]
	skelCh *latest.Channel[wire.SkeletonFrame]
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	counters      counters
	lastBodyCount atomic.Int32
}

// NewBodyReceiver creates a shared-port receiver publishing into bodyCh
// and skelCh.
func NewBodyReceiver(port int, bodyCh *latest.Channel[wire.BodySnapshot], skelCh *latest.Channel[wire.SkeletonFrame], logger *slog.Logger) *BodyReceiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BodyReceiver{
		port:   port,
		bodyCh: bodyCh,
		skelCh: skelCh,
		logger: logger.With("receiver", "body", "port", port),
	}
}

// Start binds the socket and launches the receive loop. Idempotent.
func (r *BodyReceiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	conn, err := bindUDP(r.port)
	if err != nil {
		return fmt.Errorf("body receiver: bind port %d: %w", r.port, err)
	}

	r.stopCh = make(chan struct{})
	r.running = true
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer conn.Close()

		var buf [wire.MaxPacketSize]byte
		var frame wire.SkeletonFrame // writer-owned accumulator
		meter := newRateMeter()

		for {
			select {
			case <-r.stopCh:
				return
			default:
			}

			conn.SetReadDeadline(deadline())
			n, err := conn.Read(buf[:])
			if err != nil {
				if !isTimeout(err) {
					select {
					case <-r.stopCh:
						return
					default:
						r.logger.Warn("receive error", "err", err)
					}
				}
				meter.tick(0, &r.counters)
				continue
			}

			switch wire.DetectKind(buf[:n]) {
			case wire.KindBody:
				snap, err := wire.DecodeBody(buf[:n])
				if err != nil {
					r.counters.dropped.Add(1)
					continue
				}
				if snap.Timestamp == 0 {
					snap.Timestamp = monotonicMicros()
				}
				r.bodyCh.Write(snap)
				r.lastBodyCount.Store(int32(snap.BodyCount))

			case wire.KindSkeleton:
				body, err := wire.DecodeSkeleton(buf[:n])
				if err != nil {
					r.counters.dropped.Add(1)
					continue
				}
				idx := body.Index
				if idx >= wire.MaxSkeletonBodies {
					idx = wire.MaxSkeletonBodies - 1
				}
				frame.Bodies[idx] = body
				if idx+1 > frame.BodyCount {
					frame.BodyCount = idx + 1
				}
				frame.Timestamp = wire.SkeletonTimestamp(buf[:n])
				if frame.Timestamp == 0 {
					frame.Timestamp = monotonicMicros()
				}
				r.skelCh.Write(frame)

			default:
				r.counters.dropped.Add(1)
				continue
			}

			r.counters.packets.Add(1)
			meter.tick(1, &r.counters)
		}
	}()

	r.logger.Info("body receiver started")
	return nil
}

// Stop joins the receive loop before returning. Idempotent.
func (r *BodyReceiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.running = false
	r.counters.setRate(0)
	r.logger.Info("body receiver stopped")
}

// IsRunning reports whether the receive loop is active.
func (r *BodyReceiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Port returns the configured listen port.
func (r *BodyReceiver) Port() int {
	return r.port
}

// Stats returns current telemetry.
func (r *BodyReceiver) Stats() Stats {
	return r.counters.stats(r.port, r.IsRunning())
}

// LastBodyCount returns the body count of the most recent BODY packet.
func (r *BodyReceiver) LastBodyCount() int {
	return int(r.lastBodyCount.Load())
}
