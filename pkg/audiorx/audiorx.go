// Package audiorx receives audio over RTP on a loopback UDP socket and
// hands decoded samples to the analysis tick as normalized float64 PCM.
// Two payload formats are accepted: raw big-endian 16-bit linear PCM
// and Opus frames.
package audiorx

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"gopkg.in/hraban/opus.v2"
)

const (
	// Dynamic payload types the sender is expected to use.
	PayloadL16  = 96
	PayloadOpus = 111

	readTimeout = 100 * time.Millisecond

	// ringCapacity holds about half a second at 48kHz. A stalled
	// analysis loop loses the oldest audio, never the newest.
	ringCapacity = 24000

	maxDatagram = 1500
)

// Stats is a snapshot of receiver telemetry.
type Stats struct {
	Port    int    `json:"port"`
	Running bool   `json:"running"`
	Packets uint64 `json:"packets"`
	Bad     uint64 `json:"bad"`
	Overrun uint64 `json:"overrun"`
}

// Receiver ingests RTP datagrams and buffers decoded samples.
type Receiver struct {
	port       int
	sampleRate int
	logger     *slog.Logger

	ring *sampleRing

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	packets atomic.Uint64
	bad     atomic.Uint64
}

// NewReceiver creates a receiver for the given port and sample rate.
// Opus decoding is mono at the configured rate.
func NewReceiver(port, sampleRate int, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		port:       port,
		sampleRate: sampleRate,
		logger:     logger.With("receiver", "audio", "port", port),
		ring:       newSampleRing(ringCapacity),
	}
}

// Start binds the socket and launches the receive loop. Idempotent.
func (r *Receiver) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: r.port,
	})
	if err != nil {
		return fmt.Errorf("audio receiver: bind port %d: %w", r.port, err)
	}

	dec, err := opus.NewDecoder(r.sampleRate, 1)
	if err != nil {
		conn.Close()
		return fmt.Errorf("audio receiver: opus decoder: %w", err)
	}

	r.stopCh = make(chan struct{})
	r.running = true
	r.wg.Add(1)

	go r.loop(conn, dec)

	r.logger.Info("audio receiver started", "rate", r.sampleRate)
	return nil
}

func (r *Receiver) loop(conn *net.UDPConn, dec *opus.Decoder) {
	defer r.wg.Done()
	defer conn.Close()

	var buf [maxDatagram]byte
	var pkt rtp.Packet
	pcm := make([]int16, 5760) // one 120ms Opus frame at 48kHz
	samples := make([]float64, 0, 5760)

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf[:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-r.stopCh:
				return
			default:
				r.logger.Warn("receive error", "err", err)
				continue
			}
		}

		if err := pkt.Unmarshal(buf[:n]); err != nil {
			r.bad.Add(1)
			continue
		}

		samples = samples[:0]
		switch pkt.PayloadType {
		case PayloadL16:
			if len(pkt.Payload)%2 != 0 {
				r.bad.Add(1)
				continue
			}
			for i := 0; i+1 < len(pkt.Payload); i += 2 {
				v := int16(binary.BigEndian.Uint16(pkt.Payload[i:]))
				samples = append(samples, float64(v)/32768.0)
			}

		case PayloadOpus:
			m, err := dec.Decode(pkt.Payload, pcm)
			if err != nil {
				r.bad.Add(1)
				continue
			}
			for _, v := range pcm[:m] {
				samples = append(samples, float64(v)/32768.0)
			}

		default:
			r.bad.Add(1)
			continue
		}

		r.ring.push(samples)
		r.packets.Add(1)
	}
}

// Read drains up to len(out) buffered samples and returns the count.
// Safe to call from the analysis tick while the loop is running.
func (r *Receiver) Read(out []float64) int {
	return r.ring.pop(out)
}

// Stop joins the receive loop. Idempotent.
func (r *Receiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.running = false
	r.ring.reset()
	r.logger.Info("audio receiver stopped")
}

// IsRunning reports whether the receive loop is active.
func (r *Receiver) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Port returns the configured listen port.
func (r *Receiver) Port() int {
	return r.port
}

// Stats returns current telemetry.
func (r *Receiver) Stats() Stats {
	return Stats{
		Port:    r.port,
		Running: r.IsRunning(),
		Packets: r.packets.Load(),
		Bad:     r.bad.Load(),
		Overrun: r.ring.dropped(),
	}
}
