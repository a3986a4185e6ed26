package wire

import (
	"encoding/binary"
	"math"
)

// Encoders build well-formed packets for the sender simulator and for
// loopback tests. They are the mirror image of the decoders and do not
// clamp: senders are trusted to stay in range, receivers are not.

func putF32(buf []byte, off int, v float64) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v)))
}

// EncodeFace builds a FACE packet. Version 1 carries the first 17
// channels, version 2 all of them.
func EncodeFace(snap FaceSnapshot, version int) []byte {
	size := FacePacketV1Size
	nchans := faceChannelsV1
	if version >= 2 {
		size = FacePacketV2Size
		nchans = FaceChannels
	}

	buf := make([]byte, size)
	copy(buf, magicFace[:])
	binary.LittleEndian.PutUint16(buf[4:], uint16(version))
	binary.LittleEndian.PutUint16(buf[6:], uint16(snap.FaceCount))
	for ch := 0; ch < nchans; ch++ {
		putF32(buf, headerSize+ch*4, snap.Chans[ch])
	}
	binary.LittleEndian.PutUint64(buf[headerSize+nchans*4:], snap.Timestamp)
	return buf
}

// EncodeBody builds a 48-byte BODY packet.
func EncodeBody(snap BodySnapshot) []byte {
	buf := make([]byte, BodyPacketSize)
	copy(buf, magicBody[:])
	binary.LittleEndian.PutUint16(buf[4:], 1)
	buf[6] = byte(snap.Source)
	buf[7] = byte(snap.BodyCount)
	for ch := 0; ch < BodyChannels; ch++ {
		putF32(buf, headerSize+ch*4, snap.Chans[ch])
	}
	binary.LittleEndian.PutUint64(buf[headerSize+BodyChannels*4:], snap.Timestamp)
	return buf
}

// EncodeSkeleton builds a SKEL packet for one body.
func EncodeSkeleton(body SkeletonBody, timestamp uint64) []byte {
	jc := body.JointCount
	if jc > MaxSkeletonJoints {
		jc = MaxSkeletonJoints
	}

	buf := make([]byte, headerSize+jc*skelJointSize+8)
	copy(buf, magicSkel[:])
	binary.LittleEndian.PutUint16(buf[4:], 1)
	buf[6] = byte(body.Index)
	buf[7] = byte(jc)
	for i := 0; i < jc; i++ {
		base := headerSize + i*skelJointSize
		putF32(buf, base, body.Joints[i].X)
		putF32(buf, base+4, body.Joints[i].Y)
		putF32(buf, base+8, body.Joints[i].Z)
	}
	binary.LittleEndian.PutUint64(buf[headerSize+jc*skelJointSize:], timestamp)
	return buf
}
