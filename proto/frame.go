package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Wire frame: 16-byte type id, 4-byte little-endian payload length,
// payload bytes.
const (
	// MaxPayloadSize bounds a single frame's payload. Anything outside
	// [0, MaxPayloadSize] is a protocol violation fatal to the
	// connection.
	MaxPayloadSize = 10_000_000

	frameHeaderSize = 20
)

var (
	ErrPayloadSize   = errors.New("payload size out of bounds")
	ErrUnknownType   = errors.New("unrecognized message type id")
	ErrTrailingBytes = errors.New("unconsumed payload bytes")
)

// WriteMessage frames m and writes it to w in a single Write call, so
// callers serializing writes with a lock never interleave partial
// frames.
func WriteMessage(w io.Writer, m Message) error {
	var pw Writer
	m.Encode(&pw)
	payload := pw.Bytes()

	buf := make([]byte, frameHeaderSize+len(payload))
	id := m.ID()
	copy(buf[:16], id[:])
	binary.LittleEndian.PutUint32(buf[16:frameHeaderSize], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadMessage blocks until one complete frame is available on r, then
// decodes it using reg. A clean disconnect between frames surfaces as
// io.EOF; a stream that closes mid-frame surfaces as
// io.ErrUnexpectedEOF. Both, like any other returned error, are fatal
// to the connection.
func ReadMessage(r io.Reader, reg *Registry) (Message, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:16]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, header[16:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	id := uuid.UUID(header[:16])
	size := binary.LittleEndian.Uint32(header[16:frameHeaderSize])
	if size > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d", ErrPayloadSize, int32(size))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	ctor, ok := reg.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	m := ctor()
	rd := NewReader(payload)
	if err := m.Decode(rd); err != nil {
		return nil, fmt.Errorf("decode %T: %w", m, err)
	}
	// Nothing in this protocol relies on forward-compatible trailing
	// fields, so leftovers mean the peer encoded something else.
	if rd.Remaining() > 0 {
		return nil, fmt.Errorf("%w: %T, %d bytes", ErrTrailingBytes, m, rd.Remaining())
	}
	return m, nil
}
