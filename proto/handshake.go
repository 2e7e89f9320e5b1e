package proto

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Identification handshake, exchanged over the raw stream before
// message framing begins. The client sends its id string, a four-part
// version and a username; the server answers with its own id string
// and version. An unknown peer id ends the connection before any
// session exists.
const (
	ClientID = "InstaPoker.Client"
	ServerID = "InstaPoker.Server"

	maxHandshakeString = 256
)

var (
	ErrUnknownPeer = errors.New("unrecognized peer id")
)

// Version is a four-part build version, each part 7-bit varint encoded
// on the wire.
type Version struct {
	Major    int32
	Minor    int32
	Build    int32
	Revision int32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// ClientHello is what a connecting client presents before any session
// is created for it.
type ClientHello struct {
	Version  Version
	Username string
}

// WriteClientHello sends the client side of the handshake.
func WriteClientHello(w io.Writer, hello ClientHello) error {
	var pw Writer
	pw.WriteString(ClientID)
	writeVersion(&pw, hello.Version)
	pw.WriteString(hello.Username)
	_, err := w.Write(pw.Bytes())
	return err
}

// ReadClientHello consumes the client side of the handshake from br.
// It fails with ErrUnknownPeer when the peer does not identify itself
// as an InstaPoker client.
func ReadClientHello(br *bufio.Reader) (ClientHello, error) {
	var hello ClientHello
	id, err := readHandshakeString(br)
	if err != nil {
		return hello, err
	}
	if id != ClientID {
		return hello, fmt.Errorf("%w: %q", ErrUnknownPeer, id)
	}
	if hello.Version, err = readVersion(br); err != nil {
		return hello, err
	}
	hello.Username, err = readHandshakeString(br)
	return hello, err
}

// WriteServerHello sends the server side of the handshake.
func WriteServerHello(w io.Writer, v Version) error {
	var pw Writer
	pw.WriteString(ServerID)
	writeVersion(&pw, v)
	_, err := w.Write(pw.Bytes())
	return err
}

// ReadServerHello consumes the server side of the handshake from br
// and returns the server's version.
func ReadServerHello(br *bufio.Reader) (Version, error) {
	id, err := readHandshakeString(br)
	if err != nil {
		return Version{}, err
	}
	if id != ServerID {
		return Version{}, fmt.Errorf("%w: %q", ErrUnknownPeer, id)
	}
	return readVersion(br)
}

func writeVersion(w *Writer, v Version) {
	w.WriteUvarint(uint64(uint32(v.Major)))
	w.WriteUvarint(uint64(uint32(v.Minor)))
	w.WriteUvarint(uint64(uint32(v.Build)))
	w.WriteUvarint(uint64(uint32(v.Revision)))
}

func readVersion(br *bufio.Reader) (Version, error) {
	var (
		v     Version
		parts [4]int32
	)
	for i := range parts {
		part, err := binary.ReadUvarint(br)
		if err != nil {
			return v, err
		}
		parts[i] = int32(uint32(part))
	}
	v.Major, v.Minor, v.Build, v.Revision = parts[0], parts[1], parts[2], parts[3]
	return v, nil
}

func readHandshakeString(br *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return "", err
	}
	if n > maxHandshakeString {
		return "", fmt.Errorf("%w: handshake string of %d bytes", ErrPayloadSize, n)
	}
	buf := make([]byte, n)
	if _, err = io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
