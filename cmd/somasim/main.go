// Command somasim feeds a running daemon with synthetic sensor traffic:
// animated FACE, BODY, and SKEL packets, and optionally a sine tone
// over RTP. Useful for exercising the full pipeline without hardware.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/rtp"

	"github.com/soma-labs/go-soma/internal/log"
	"github.com/soma-labs/go-soma/pkg/audiorx"
	"github.com/soma-labs/go-soma/pkg/wire"
)

func main() {
	facePort := flag.Int("face-port", 9000, "Face stream destination port")
	bodyPort := flag.Int("body-port", 9005, "Body stream destination port")
	audioPort := flag.Int("audio-port", 0, "RTP audio destination port (0 disables)")
	rate := flag.Int("rate", 60, "Sensor packets per second")
	toneHz := flag.Float64("tone", 220, "Sine tone frequency for the audio stream")
	sampleRate := flag.Int("sample-rate", 44100, "Audio sample rate")
	version := flag.Int("face-version", 2, "FACE packet version (1 or 2)")
	flag.Parse()

	log.Init("info")
	logger := log.L().With("component", "somasim")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	faceConn, err := dial(*facePort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "somasim: %v\n", err)
		os.Exit(1)
	}
	defer faceConn.Close()

	bodyConn, err := dial(*bodyPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "somasim: %v\n", err)
		os.Exit(1)
	}
	defer bodyConn.Close()

	if *audioPort > 0 {
		audioConn, err := dial(*audioPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "somasim: %v\n", err)
			os.Exit(1)
		}
		defer audioConn.Close()
		go sendTone(ctx, audioConn, *toneHz, *sampleRate)
		logger.Info("audio tone running", "freq", *toneHz, "port", *audioPort)
	}

	logger.Info("sending sensor packets",
		"facePort", *facePort, "bodyPort", *bodyPort, "rate", *rate)

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("simulator stopped")
			return
		case <-ticker.C:
			t := time.Since(start).Seconds()
			ts := uint64(time.Since(start).Microseconds())
			faceConn.Write(wire.EncodeFace(animateFace(t, ts), *version))
			bodyConn.Write(wire.EncodeBody(animateBody(t, ts)))
			bodyConn.Write(wire.EncodeSkeleton(animateSkeleton(t), ts))
		}
	}
}

func dial(port int) (*net.UDPConn, error) {
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial port %d: %w", port, err)
	}
	return conn, nil
}

// animateFace sweeps each channel with an offset sine so every lane of
// the pipeline sees movement.
func animateFace(t float64, ts uint64) wire.FaceSnapshot {
	var snap wire.FaceSnapshot
	for ch := 0; ch < wire.FaceChannels; ch++ {
		phase := t*0.7 + float64(ch)*0.37
		if wire.FaceBipolar(ch) {
			snap.Chans[ch] = math.Sin(phase)
		} else {
			snap.Chans[ch] = 0.5 + 0.5*math.Sin(phase)
		}
	}
	// Blink hard every few seconds so the gesture trigger fires.
	blink := 0.0
	if math.Mod(t, 3) < 0.15 {
		blink = 1
	}
	snap.Chans[wire.FaceBlinkL] = blink
	snap.Chans[wire.FaceBlinkR] = blink
	snap.FaceCount = 1
	snap.Timestamp = ts
	return snap
}

func animateBody(t float64, ts uint64) wire.BodySnapshot {
	var snap wire.BodySnapshot
	for ch := 0; ch < wire.BodyChannels; ch++ {
		phase := t*0.4 + float64(ch)*0.61
		if wire.BodyBipolar(ch) {
			snap.Chans[ch] = math.Sin(phase)
		} else {
			snap.Chans[ch] = 0.5 + 0.5*math.Sin(phase)
		}
	}
	snap.Source = wire.SourceSimulated
	snap.BodyCount = 1
	snap.Timestamp = ts
	return snap
}

// animateSkeleton swings a 17-joint figure around the sensor origin.
func animateSkeleton(t float64) wire.SkeletonBody {
	body := wire.SkeletonBody{Index: 0, JointCount: 17, Valid: true}
	for j := 0; j < body.JointCount; j++ {
		phase := t*0.5 + float64(j)*0.2
		body.Joints[j] = wire.Joint{
			X: 0.5 * math.Sin(phase),
			Y: float64(j)/17.0*2 - 1,
			Z: 0.3 * math.Cos(phase),
		}
	}
	return body
}

// sendTone streams a sine wave as 20ms L16 RTP packets.
func sendTone(ctx context.Context, conn *net.UDPConn, freq float64, sampleRate int) {
	samplesPerPacket := sampleRate / 50
	payload := make([]byte, samplesPerPacket*2)

	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:     2,
			PayloadType: audiorx.PayloadL16,
			SSRC:        0x50414E44,
		},
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * freq / float64(sampleRate)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := 0; i < samplesPerPacket; i++ {
				v := int16(math.Sin(phase) * 0.5 * 32767)
				binary.BigEndian.PutUint16(payload[i*2:], uint16(v))
				phase += step
			}
			pkt.Payload = payload
			data, err := pkt.Marshal()
			if err != nil {
				return
			}
			conn.Write(data)
			pkt.SequenceNumber++
			pkt.Timestamp += uint32(samplesPerPacket)
		}
	}
}
