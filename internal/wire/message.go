package wire

import "encoding/binary"

// HeaderSize is the number of bytes in a frame header: a 4-byte kind
// followed by a 4-byte body length, both little-endian (§9's resolved
// Open Question: the wire format is explicit and packed, never a
// host-order memcpy).
const HeaderSize = 8

// Message is a single framed unit: an 8-byte header plus exactly
// size(body) bytes of opaque payload. An empty body is legal.
type Message struct {
	Kind Kind
	Body []byte
}

// Encode appends the wire representation of m to dst and returns the
// extended slice.
func (m Message) Encode(dst []byte) []byte {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(m.Kind))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(m.Body)))
	dst = append(dst, header[:]...)
	dst = append(dst, m.Body...)
	return dst
}
