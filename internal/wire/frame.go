// Package wire implements the gateway's framing and message envelope.
//
// A frame is a 4-byte big-endian length followed by exactly that many bytes
// of UTF-8 JSON. One request frame and one response frame travel per TCP
// connection.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/graphgate/internal/gwerr"
)

const (
	// HeaderSize is the length prefix size in bytes.
	HeaderSize = 4

	// MaxMessageSize caps a single payload at 100 MiB.
	MaxMessageSize = 100 * 1024 * 1024
)

// ErrConnectionClosed is returned when the peer closes before a full frame.
var ErrConnectionClosed = errors.New("connection closed")

// ReadFrame reads exactly one frame from r and returns its payload.
// A zero length or a length above limit is a protocol error. A peer that
// closes mid-frame yields ErrConnectionClosed; the partial payload is never
// returned. A limit <= 0 means MaxMessageSize.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = MaxMessageSize
	}

	var header [HeaderSize]byte
	if err := readExact(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return nil, gwerr.Protocol("empty frame")
	}
	if uint64(n) > uint64(limit) {
		return nil, gwerr.Protocol("message too large: %d bytes (max %d)", n, limit)
	}

	payload := make([]byte, n)
	if err := readExact(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// readExact loops until buf is full. io.ReadFull already retries short reads;
// both EOF flavours collapse into ErrConnectionClosed.
func readExact(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrConnectionClosed
		}
		return fmt.Errorf("read frame: %w", err)
	}
	return nil
}

// WriteFrame writes payload with its length prefix in a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxMessageSize {
		return gwerr.Protocol("message too large: %d bytes (max %d)", len(payload), MaxMessageSize)
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
