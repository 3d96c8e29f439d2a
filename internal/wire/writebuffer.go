package wire

import (
	"encoding/binary"
	"io"
)

// DefaultCapacity is the suggested per-connection send buffer size:
// a small multiple of a typical Ethernet MTU, tuned to coalesce
// bursts of small sends into near-MTU writes.
const DefaultCapacity = 64 * 1024

// WriteBuffer batches writes to an underlying stream. Send appends a
// message's wire encoding, flushing first if the append would overflow
// the buffer, and chunking body segments that alone exceed the
// buffer's capacity. Nothing reaches the stream until Flush is called
// explicitly or the buffer fills.
type WriteBuffer struct {
	dst      io.Writer
	capacity int
	buf      []byte
}

// NewWriteBuffer returns a WriteBuffer of the given capacity writing to dst.
func NewWriteBuffer(dst io.Writer, capacity int) *WriteBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &WriteBuffer{dst: dst, capacity: capacity, buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes currently buffered and not yet flushed.
func (w *WriteBuffer) Len() int {
	return len(w.buf)
}

// Send appends msg's header and body to the buffer, flushing as needed
// so that the buffer never grows past its capacity; a body larger than
// the capacity passes through the buffer in pieces, one flush per
// filled buffer.
func (w *WriteBuffer) Send(msg Message) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(msg.Kind))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(msg.Body)))

	if err := w.appendChunked(header[:]); err != nil {
		return err
	}
	if len(msg.Body) > 0 {
		if err := w.appendChunked(msg.Body); err != nil {
			return err
		}
	}
	return nil
}

// appendChunked appends data to the buffer, flushing whenever the
// buffer would overflow: data that does not fit is copied in as far as
// there is room, flushed, and the rest continues into the emptied
// buffer.
func (w *WriteBuffer) appendChunked(data []byte) error {
	for len(data) > 0 {
		room := w.capacity - len(w.buf)
		if room <= 0 {
			if err := w.Flush(); err != nil {
				return err
			}
			room = w.capacity
		}

		if len(data) <= room {
			w.buf = append(w.buf, data...)
			return nil
		}

		// data doesn't fit even in an empty buffer's worth of room; take
		// what fits, flush, and keep going.
		w.buf = append(w.buf, data[:room]...)
		data = data[room:]
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Flush dispatches any buffered bytes to the underlying stream.
func (w *WriteBuffer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.dst.Write(w.buf)
	w.buf = w.buf[:0]
	return err
}
