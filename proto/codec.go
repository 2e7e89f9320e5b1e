package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var (
	ErrShortPayload = errors.New("payload too short")
)

// Writer accumulates an encoded message payload in memory so the frame
// length is known before anything hits the wire.
//
// Field encoding is fixed and platform independent: strings are UTF-8
// with an unsigned LEB128 byte-length prefix, integers are 4-byte
// little-endian, booleans are a single byte.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) WriteString(s string) {
	w.WriteUvarint(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *Writer) WriteInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) WriteUint8(v byte) {
	w.buf.WriteByte(v)
}

func (w *Writer) WriteUvarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	w.buf.Write(b[:n])
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader decodes a message payload. Errors are sticky: after the first
// failed read every subsequent read returns a zero value, and Err()
// reports what went wrong. This keeps Decode bodies a strict mirror of
// their Encode counterparts.
type Reader struct {
	r   *bytes.Reader
	err error
}

func NewReader(p []byte) *Reader {
	return &Reader{r: bytes.NewReader(p)}
}

func (r *Reader) ReadString() string {
	n := r.ReadUvarint()
	if r.err != nil {
		return ""
	}
	if n > uint64(r.r.Len()) {
		r.err = ErrShortPayload
		return ""
	}
	b := make([]byte, n)
	_, _ = r.r.Read(b)
	return string(b)
}

func (r *Reader) ReadInt32() int32 {
	var b [4]byte
	if r.err != nil {
		return 0
	}
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		r.err = ErrShortPayload
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b[:]))
}

func (r *Reader) ReadBool() bool {
	return r.ReadUint8() != 0
}

func (r *Reader) ReadUint8() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = ErrShortPayload
		return 0
	}
	return b
}

func (r *Reader) ReadUvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(r.r)
	if err != nil {
		r.err = ErrShortPayload
		return 0
	}
	return v
}

// Remaining reports how many payload bytes were left unconsumed.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

func (r *Reader) Err() error {
	return r.err
}
