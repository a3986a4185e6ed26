package receiver

import (
	"net"
	"testing"
	"time"

	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/wire"
)

func sendTo(t *testing.T, port int, packets ...[]byte) {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	for _, p := range packets {
		if _, err := conn.Write(p); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
}

// waitVersion polls until the channel version reaches want or the
// deadline passes.
func waitVersion[T any](t *testing.T, ch *latest.Channel[T], want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ch.Version() < want {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for version %d, at %d", want, ch.Version())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFaceReceiver_DeliversSnapshots(t *testing.T) {
	const port = 19710
	ch := latest.New[wire.FaceSnapshot]()
	r := NewFaceReceiver(port, ch, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	var snap wire.FaceSnapshot
	snap.Chans[wire.FaceJaw] = 0.8
	snap.FaceCount = 1
	snap.Timestamp = 777
	sendTo(t, port, wire.EncodeFace(snap, 2))

	waitVersion(t, ch, 1)
	got := ch.Read()
	if got.Chans[wire.FaceJaw] != 0.8 {
		t.Errorf("Expected jaw 0.8, got %v", got.Chans[wire.FaceJaw])
	}
	if got.Timestamp != 777 {
		t.Errorf("Expected sender timestamp kept, got %d", got.Timestamp)
	}

	stats := r.Stats()
	if stats.Packets != 1 || stats.Dropped != 0 {
		t.Errorf("Expected 1 packet 0 dropped, got %+v", stats)
	}
}

func TestFaceReceiver_StampsMissingTimestamp(t *testing.T) {
	const port = 19711
	ch := latest.New[wire.FaceSnapshot]()
	r := NewFaceReceiver(port, ch, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	var snap wire.FaceSnapshot
	snap.FaceCount = 1
	sendTo(t, port, wire.EncodeFace(snap, 2)) // zero timestamp

	waitVersion(t, ch, 1)
	if ch.Read().Timestamp == 0 {
		t.Error("Expected receiver to stamp a missing timestamp")
	}
}

func TestFaceReceiver_CountsMalformed(t *testing.T) {
	const port = 19712
	ch := latest.New[wire.FaceSnapshot]()
	r := NewFaceReceiver(port, ch, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	var snap wire.FaceSnapshot
	snap.FaceCount = 1
	sendTo(t, port, []byte("garbage"), wire.EncodeFace(snap, 2))

	waitVersion(t, ch, 1)
	// The garbage datagram may land after the good one; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for r.Stats().Dropped == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected malformed packet counted as dropped")
		}
		time.Sleep(time.Millisecond)
	}
	if r.Stats().Packets != 1 {
		t.Errorf("Expected only the valid packet counted, got %d", r.Stats().Packets)
	}
}

func TestFaceReceiver_StartStopIdempotent(t *testing.T) {
	const port = 19713
	ch := latest.New[wire.FaceSnapshot]()
	r := NewFaceReceiver(port, ch, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Errorf("Second Start must be a no-op, got %v", err)
	}
	if !r.IsRunning() {
		t.Error("Expected running")
	}

	r.Stop()
	r.Stop()
	if r.IsRunning() {
		t.Error("Expected stopped")
	}
	if r.Stats().PacketsPerSec != 0 {
		t.Error("Expected rate zeroed after stop")
	}

	// Restartable after stop.
	if err := r.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	r.Stop()
}

func TestFaceReceiver_BindConflict(t *testing.T) {
	const port = 19714
	ch := latest.New[wire.FaceSnapshot]()
	a := NewFaceReceiver(port, ch, nil)
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	b := NewFaceReceiver(port, latest.New[wire.FaceSnapshot](), nil)
	if err := b.Start(); err == nil {
		b.Stop()
		t.Fatal("Expected bind error on an occupied port")
	}
	if b.IsRunning() {
		t.Error("Expected failed receiver not running")
	}
}

func TestBodyReceiver_DispatchesByMagic(t *testing.T) {
	const port = 19715
	bodyCh := latest.New[wire.BodySnapshot]()
	skelCh := latest.New[wire.SkeletonFrame]()
	r := NewBodyReceiver(port, bodyCh, skelCh, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	var body wire.BodySnapshot
	body.Chans[wire.BodyMotion] = 0.4
	body.Source = wire.SourceAzure
	body.BodyCount = 1
	body.Timestamp = 10

	skel := wire.SkeletonBody{Index: 0, JointCount: 3, Valid: true}
	skel.Joints[1] = wire.Joint{X: 0.5}

	sendTo(t, port, wire.EncodeBody(body), wire.EncodeSkeleton(skel, 11))

	waitVersion(t, bodyCh, 1)
	waitVersion(t, skelCh, 1)

	gotBody := bodyCh.Read()
	if gotBody.Chans[wire.BodyMotion] != 0.4 || gotBody.Source != wire.SourceAzure {
		t.Errorf("Unexpected body snapshot: %+v", gotBody)
	}

	gotSkel := skelCh.Read()
	if gotSkel.BodyCount != 1 {
		t.Errorf("Expected 1 body, got %d", gotSkel.BodyCount)
	}
	if gotSkel.Bodies[0].Joints[1].X != 0.5 {
		t.Errorf("Expected joint x 0.5, got %v", gotSkel.Bodies[0].Joints[1].X)
	}
	if gotSkel.Timestamp != 11 {
		t.Errorf("Expected skeleton timestamp 11, got %d", gotSkel.Timestamp)
	}
}

func TestBodyReceiver_MergesSkeletonBodies(t *testing.T) {
	const port = 19716
	bodyCh := latest.New[wire.BodySnapshot]()
	skelCh := latest.New[wire.SkeletonFrame]()
	r := NewBodyReceiver(port, bodyCh, skelCh, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	first := wire.SkeletonBody{Index: 0, JointCount: 1, Valid: true}
	first.Joints[0] = wire.Joint{X: 0.1}
	second := wire.SkeletonBody{Index: 1, JointCount: 1, Valid: true}
	second.Joints[0] = wire.Joint{X: 0.2}

	sendTo(t, port, wire.EncodeSkeleton(first, 1), wire.EncodeSkeleton(second, 2))

	waitVersion(t, skelCh, 2)
	got := skelCh.Read()
	if got.BodyCount != 2 {
		t.Fatalf("Expected 2 merged bodies, got %d", got.BodyCount)
	}
	if got.Bodies[0].Joints[0].X != 0.1 || got.Bodies[1].Joints[0].X != 0.2 {
		t.Errorf("Expected both bodies kept, got %v and %v",
			got.Bodies[0].Joints[0].X, got.Bodies[1].Joints[0].X)
	}
}

func TestBodyReceiver_UnknownMagicDropped(t *testing.T) {
	const port = 19717
	bodyCh := latest.New[wire.BodySnapshot]()
	skelCh := latest.New[wire.SkeletonFrame]()
	r := NewBodyReceiver(port, bodyCh, skelCh, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	sendTo(t, port, []byte("FACEnope"))

	deadline := time.Now().Add(2 * time.Second)
	for r.Stats().Dropped == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected foreign packet counted as dropped")
		}
		time.Sleep(time.Millisecond)
	}
	if bodyCh.Version() != 0 || skelCh.Version() != 0 {
		t.Error("Expected no snapshot published for a foreign packet")
	}
}
