package proto

import "github.com/google/uuid"

// Message is one unit of wire communication. Every variant has a
// stable 128-bit type identifier and a fixed-shape payload. Messages
// carry no sequence numbers; identity is type plus field values.
type Message interface {
	// ID returns the variant's type identifier. It is constant per
	// variant and shared between client and server.
	ID() uuid.UUID

	Encode(w *Writer)

	Decode(r *Reader) error
}
