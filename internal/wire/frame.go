package wire

import (
	"encoding/binary"
	"errors"

	"github.com/hydradns/aresgo/internal/helpers"
)

// ErrFrameIncomplete is returned by DecodeTCPFrame when the buffer does not
// yet hold a complete length-prefixed message. Callers should retain the
// buffer and retry once more bytes have arrived.
var ErrFrameIncomplete = errors.New("wire: incomplete TCP frame")

// EncodeTCPFrame prepends the 2-byte big-endian length prefix DNS-over-TCP
// uses (RFC 1035 Section 4.2.2).
func EncodeTCPFrame(msg []byte) []byte {
	out := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(out[0:2], helpers.ClampIntToUint16(len(msg)))
	copy(out[2:], msg)
	return out
}

// DecodeTCPFrame attempts to consume one length-prefixed DNS message from
// the front of buf. On success it returns the message payload and the
// number of bytes consumed from buf (2 + length). On ErrFrameIncomplete,
// callers must not advance their read position: more bytes are needed
// before the next attempt.
func DecodeTCPFrame(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) < 2 {
		return nil, 0, ErrFrameIncomplete
	}
	length := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+length {
		return nil, 0, ErrFrameIncomplete
	}
	return buf[2 : 2+length], 2 + length, nil
}
