// Package framing encodes and decodes the 8-byte tunnel header that prefixes
// every datagram on the wire: {session_id, packet_seq}, big-endian, followed
// by the raw IP payload. There is no version byte and no length prefix — the
// UDP datagram boundary is the frame boundary.
package framing

import (
	"encoding/binary"
	"errors"
)

// HeaderLen is the fixed size of the tunnel header in bytes.
const HeaderLen = 8

// ErrShortFrame is returned by Decode when a datagram is too short to carry
// a tunnel header.
var ErrShortFrame = errors.New("framing: datagram shorter than header")

// Frame is a decoded tunnel datagram.
type Frame struct {
	SessionID uint32
	Seq       uint32
	Payload   []byte
}

// Encode writes sessionID and seq as two big-endian u32s followed by payload
// into dst, growing it if necessary, and returns the resulting slice.
func Encode(dst []byte, sessionID, seq uint32, payload []byte) []byte {
	need := HeaderLen + len(payload)
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}
	binary.BigEndian.PutUint32(dst[0:4], sessionID)
	binary.BigEndian.PutUint32(dst[4:8], seq)
	copy(dst[HeaderLen:], payload)
	return dst
}

// Decode parses the tunnel header from data. The returned Payload aliases
// data[HeaderLen:] — callers that retain it across the next receive must
// copy it first.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderLen {
		return Frame{}, ErrShortFrame
	}
	return Frame{
		SessionID: binary.BigEndian.Uint32(data[0:4]),
		Seq:       binary.BigEndian.Uint32(data[4:8]),
		Payload:   data[HeaderLen:],
	}, nil
}
