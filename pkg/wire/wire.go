// Package wire defines the binary sensor protocol shared between go-soma
// and the capture bridges that feed it. Each datagram starts with a 4-byte
// magic tag and a little-endian uint16 version; unknown magics and versions
// are rejected, never guessed at.
package wire

import "errors"

// Decode failure classes. Every malformed datagram maps onto exactly one
// of these; none of them is fatal for a receive loop.
var (
	ErrTruncated          = errors.New("wire: packet too short")
	ErrBadMagic           = errors.New("wire: unknown magic tag")
	ErrUnsupportedVersion = errors.New("wire: unsupported protocol version")
	ErrBadCount           = errors.New("wire: count field out of range")
)

// Kind identifies which snapshot variant a datagram carries.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFace
	KindBody
	KindSkeleton
)

// String returns the kind's wire tag name.
func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindBody:
		return "body"
	case KindSkeleton:
		return "skeleton"
	default:
		return "unknown"
	}
}

// Magic tags. 4 ASCII bytes at offset 0 of every packet.
var (
	magicFace = [4]byte{'F', 'A', 'C', 'E'}
	magicBody = [4]byte{'B', 'O', 'D', 'Y'}
	magicSkel = [4]byte{'S', 'K', 'E', 'L'}
)

// DetectKind sniffs the magic tag so a shared socket can dispatch a
// datagram before committing to a full decode.
func DetectKind(buf []byte) Kind {
	if len(buf) < 4 {
		return KindUnknown
	}
	var m [4]byte
	copy(m[:], buf[:4])
	switch m {
	case magicFace:
		return KindFace
	case magicBody:
		return KindBody
	case magicSkel:
		return KindSkeleton
	default:
		return KindUnknown
	}
}

// Face channel indices. v1 packets carry the first 17, v2 adds the rest.
const (
	FaceHeadX = iota // -1..1
	FaceHeadY        // -1..1
	FaceHeadZ        // -1..1
	FaceDist         // 0..1
	FaceEyeL         // 0..1
	FaceEyeR         // 0..1
	FaceGazeX        // -1..1
	FaceGazeY        // -1..1
	FaceMouthW       // 0..1
	FaceMouthH       // 0..1
	FaceJaw          // 0..1
	FaceLips         // 0..1
	FaceBrowL        // 0..1
	FaceBrowR        // 0..1
	FaceBlinkL       // 0 or 1
	FaceBlinkR       // 0 or 1
	FaceExpression   // 0..1

	FaceTongue      // 0..1, v2
	FaceBrowInnerUp // 0..1, v2
	FaceBrowDownL   // 0..1, v2
	FaceBrowDownR   // 0..1, v2

	FaceChannels
)

const faceChannelsV1 = 17

// FaceChannelNames maps channel indices to stable control names.
var FaceChannelNames = [FaceChannels]string{
	"head_x", "head_y", "head_z", "dist",
	"eye_l", "eye_r", "gaze_x", "gaze_y",
	"mouth_w", "mouth_h", "jaw", "lips",
	"brow_l", "brow_r", "blink_l", "blink_r",
	"expression",
	"tongue", "brow_inner_up", "brow_down_l", "brow_down_r",
}

// faceBipolar marks channels whose semantic range is -1..1 instead of 0..1.
var faceBipolar = [FaceChannels]bool{
	FaceHeadX: true, FaceHeadY: true, FaceHeadZ: true,
	FaceGazeX: true, FaceGazeY: true,
}

// FaceBipolar reports whether a face channel is ranged -1..1.
func FaceBipolar(ch int) bool {
	return ch >= 0 && ch < FaceChannels && faceBipolar[ch]
}

// FaceSnapshot is one fully-decoded, validated face state.
// Chans values are clamped to their documented range at decode time.
type FaceSnapshot struct {
	Chans     [FaceChannels]float64
	Timestamp uint64 // capture time, microseconds
	FaceCount int    // 1..4
	Proto     int    // wire version the packet declared
	Valid     bool
}

// Body channel indices.
const (
	BodyDist = iota // nearest foreground depth, 0..1
	BodyMotion      // frame-to-frame motion energy, 0..1
	BodyCentroidX   // horizontal centroid, -1..1
	BodyCentroidY   // vertical centroid, -1..1
	BodyArea        // foreground fraction, 0..1
	BodyZoneL       // left zone mean depth, 0..1
	BodyZoneR       // right zone mean depth, 0..1
	BodyEntropy     // depth field complexity, 0..1

	BodyChannels
)

// BodyChannelNames maps body channel indices to stable control names.
var BodyChannelNames = [BodyChannels]string{
	"depth_dist", "depth_motion", "centroid_x", "centroid_y",
	"depth_area", "zone_l", "zone_r", "entropy",
}

var bodyBipolar = [BodyChannels]bool{
	BodyCentroidX: true, BodyCentroidY: true,
}

// BodyBipolar reports whether a body channel is ranged -1..1.
func BodyBipolar(ch int) bool {
	return ch >= 0 && ch < BodyChannels && bodyBipolar[ch]
}

// Source identifies the depth sensor feeding the BODY stream.
type Source uint8

const (
	SourceK360 Source = iota
	SourceKOne
	SourceAzure
	SourceSimulated
	SourceUnknown Source = 255
)

// String returns a human-readable sensor name.
func (s Source) String() string {
	switch s {
	case SourceK360:
		return "Kinect 360"
	case SourceKOne:
		return "Kinect One"
	case SourceAzure:
		return "Azure Kinect"
	case SourceSimulated:
		return "Simulated"
	default:
		return "Unknown"
	}
}

// BodySnapshot is one fully-decoded depth field summary.
type BodySnapshot struct {
	Chans     [BodyChannels]float64
	Source    Source
	BodyCount int
	Timestamp uint64
	Valid     bool
}

// Skeleton capacity. Counts on the wire beyond these are clamped, never
// used to index storage.
const (
	MaxSkeletonBodies = 2
	MaxSkeletonJoints = 32
)

// Joint is one 3D joint position, each axis in -1..1.
type Joint struct {
	X, Y, Z float64
}

// SkeletonBody is the tracked joint set for one body.
// Joints past JointCount are not meaningful and must be ignored.
type SkeletonBody struct {
	Index      int
	JointCount int
	Joints     [MaxSkeletonJoints]Joint
	Valid      bool
}

// SkeletonFrame aggregates the bodies seen on the skeleton stream.
type SkeletonFrame struct {
	Bodies    [MaxSkeletonBodies]SkeletonBody
	BodyCount int
	Timestamp uint64
}

func clampUnipolar(v float64) float64 {
	if v != v { // NaN from noise or a hostile sender decodes as neutral
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBipolar(v float64) float64 {
	if v != v {
		return 0
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
