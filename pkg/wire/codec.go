package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Packet layout constants. The header is magic[4] + version uint16 LE,
// followed by two kind-specific count bytes, then the field block, then a
// trailing uint64 LE timestamp in microseconds.
const (
	headerSize = 8

	FacePacketV1Size = headerSize + faceChannelsV1*4 + 8 // 84
	FacePacketV2Size = headerSize + FaceChannels*4 + 8   // 100

	BodyPacketSize = headerSize + BodyChannels*4 + 8 // 48

	skelMinSize   = headerSize + 8 // header + timestamp, no joints
	skelJointSize = 12             // 3 × float32
)

// MaxPacketSize bounds every defined layout; receive buffers of this size
// never truncate a well-formed datagram.
const MaxPacketSize = headerSize + MaxSkeletonJoints*skelJointSize + 8

func readF32(buf []byte, off int) float64 {
	bits := binary.LittleEndian.Uint32(buf[off:])
	return float64(math.Float32frombits(bits))
}

// DecodeFace decodes a FACE packet. The version field selects the channel
// layout; the packet length is only checked for consistency against it.
func DecodeFace(buf []byte) (FaceSnapshot, error) {
	var snap FaceSnapshot

	if len(buf) < headerSize {
		return snap, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}
	if !bytes.Equal(buf[:4], magicFace[:]) {
		return snap, ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(buf[4:])
	if version < 1 || version > 2 {
		return snap, fmt.Errorf("%w: face v%d", ErrUnsupportedVersion, version)
	}

	want := FacePacketV1Size
	nchans := faceChannelsV1
	if version == 2 {
		want = FacePacketV2Size
		nchans = FaceChannels
	}
	if len(buf) < want {
		return snap, fmt.Errorf("%w: face v%d needs %d bytes, got %d", ErrTruncated, version, want, len(buf))
	}

	faceCount := int(binary.LittleEndian.Uint16(buf[6:]))
	if faceCount < 1 || faceCount > 4 {
		return snap, fmt.Errorf("%w: face count %d", ErrBadCount, faceCount)
	}

	for ch := 0; ch < nchans; ch++ {
		v := readF32(buf, headerSize+ch*4)
		switch {
		case ch == FaceBlinkL || ch == FaceBlinkR:
			// Blink arrives as a soft probability; binarize it here so
			// downstream triggers see clean edges.
			if v > 0.5 {
				v = 1
			} else {
				v = 0
			}
		case faceBipolar[ch]:
			v = clampBipolar(v)
		default:
			v = clampUnipolar(v)
		}
		snap.Chans[ch] = v
	}

	snap.Timestamp = binary.LittleEndian.Uint64(buf[headerSize+nchans*4:])
	snap.FaceCount = faceCount
	snap.Proto = int(version)
	snap.Valid = true
	return snap, nil
}

// DecodeBody decodes a 48-byte BODY packet.
func DecodeBody(buf []byte) (BodySnapshot, error) {
	var snap BodySnapshot

	if len(buf) < headerSize {
		return snap, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}
	if !bytes.Equal(buf[:4], magicBody[:]) {
		return snap, ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(buf[4:])
	if version != 1 {
		return snap, fmt.Errorf("%w: body v%d", ErrUnsupportedVersion, version)
	}
	if len(buf) < BodyPacketSize {
		return snap, fmt.Errorf("%w: body needs %d bytes, got %d", ErrTruncated, BodyPacketSize, len(buf))
	}

	src := Source(buf[6])
	if src > SourceSimulated {
		src = SourceUnknown
	}

	for ch := 0; ch < BodyChannels; ch++ {
		v := readF32(buf, headerSize+ch*4)
		if bodyBipolar[ch] {
			v = clampBipolar(v)
		} else {
			v = clampUnipolar(v)
		}
		snap.Chans[ch] = v
	}

	snap.Source = src
	snap.BodyCount = int(buf[7])
	snap.Timestamp = binary.LittleEndian.Uint64(buf[headerSize+BodyChannels*4:])
	snap.Valid = true
	return snap, nil
}

// DecodeSkeleton decodes one SKEL packet into a single body. The wire
// joint count is clamped to MaxSkeletonJoints before it is used to size
// anything; excess joints in the payload are ignored.
func DecodeSkeleton(buf []byte) (SkeletonBody, error) {
	var body SkeletonBody

	if len(buf) < skelMinSize {
		return body, fmt.Errorf("%w: %d bytes", ErrTruncated, len(buf))
	}
	if !bytes.Equal(buf[:4], magicSkel[:]) {
		return body, ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(buf[4:])
	if version != 1 {
		return body, fmt.Errorf("%w: skeleton v%d", ErrUnsupportedVersion, version)
	}

	jc := int(buf[7])
	if jc > MaxSkeletonJoints {
		jc = MaxSkeletonJoints
	}
	want := headerSize + jc*skelJointSize + 8
	if len(buf) < want {
		return body, fmt.Errorf("%w: skeleton with %d joints needs %d bytes, got %d", ErrTruncated, jc, want, len(buf))
	}

	for i := 0; i < jc; i++ {
		base := headerSize + i*skelJointSize
		body.Joints[i] = Joint{
			X: clampBipolar(readF32(buf, base)),
			Y: clampBipolar(readF32(buf, base+4)),
			Z: clampBipolar(readF32(buf, base+8)),
		}
	}

	body.Index = int(buf[6])
	body.JointCount = jc
	body.Valid = true
	return body, nil
}

// SkeletonTimestamp reads the trailing timestamp of a SKEL packet.
// Valid only after DecodeSkeleton accepted the buffer.
func SkeletonTimestamp(buf []byte) uint64 {
	if len(buf) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(buf[len(buf)-8:])
}
