package receiver

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/wire"
)

// FaceReceiver listens on one port for FACE packets and publishes decoded
// snapshots into a latest-value channel.
type FaceReceiver struct {
	port   int
	ch     *latest.Channel[wire.FaceSnapshot]
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	counters counters
}

// NewFaceReceiver creates a receiver for the given port, publishing into
// ch.
func NewFaceReceiver(port int, ch *latest.Channel[wire.FaceSnapshot], logger *slog.Logger) *FaceReceiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &FaceReceiver{
		port:   port,
		ch:     ch,
		logger: logger.With("receiver", "face", "port", port),
	}
}

// Start binds the socket and launches the receive loop. Starting a
// running receiver is a no-op.
func (r *FaceReceiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	conn, err := bindUDP(r.port)
	if err != nil {
		return fmt.Errorf("face receiver: bind port %d: %w", r.port, err)
	}

	r.stopCh = make(chan struct{})
	r.running = true
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer conn.Close()

		var buf [wire.MaxPacketSize]byte
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

			snap, err := wire.DecodeFace(buf[:n])
			if err != nil {
				r.counters.dropped.Add(1)
				continue
			}
			if snap.Timestamp == 0 {
				snap.Timestamp = monotonicMicros()
			}

			r.ch.Write(snap)
			r.counters.packets.Add(1)
			meter.tick(1, &r.counters)
		}
	}()

	r.logger.Info("face receiver started")
	return nil
}

// Stop joins the receive loop before returning; after Stop no further
// writes reach the channel. Stopping a stopped receiver is a no-op.
func (r *FaceReceiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.running = false
	r.counters.setRate(0)
	r.logger.Info("face receiver stopped")
}

// IsRunning reports whether the receive loop is active.
func (r *FaceReceiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Port returns the configured listen port.
func (r *FaceReceiver) Port() int {
	return r.port
}

// Stats returns current telemetry.
func (r *FaceReceiver) Stats() Stats {
	return r.counters.stats(r.port, r.IsRunning())
}
