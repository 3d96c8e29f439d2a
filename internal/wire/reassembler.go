package wire

import "encoding/binary"

// readMode is the receiver's position within the current frame.
type readMode int

const (
	modeHeader readMode = iota
	modeBody
)

// Reassembler consumes an arbitrary sequence of input chunks and
// reconstructs the Message stream framed by the sender, dispatching
// each completed frame in arrival order. Partial frames carry across
// Feed calls without re-copying the bytes already accumulated: each
// call only appends the newly-arrived bytes to whichever buffer
// (header or body) is currently being filled.
type Reassembler struct {
	mode readMode

	header    [HeaderSize]byte
	headerLen int

	kind    Kind
	size    uint32
	body    []byte
	bodyLen int
}

// NewReassembler returns a Reassembler ready to receive the start of a
// new frame.
func NewReassembler() *Reassembler {
	return &Reassembler{mode: modeHeader}
}

// Feed consumes chunk, invoking dispatch once per frame it completes.
// It never blocks and never copies bytes belonging to a frame it has
// already dispatched.
func (r *Reassembler) Feed(chunk []byte, dispatch func(Message)) {
	for len(chunk) > 0 {
		switch r.mode {
		case modeHeader:
			n := copy(r.header[r.headerLen:], chunk)
			r.headerLen += n
			chunk = chunk[n:]

			if r.headerLen == HeaderSize {
				r.kind = Kind(binary.LittleEndian.Uint32(r.header[0:4]))
				r.size = binary.LittleEndian.Uint32(r.header[4:8])
				r.headerLen = 0

				if r.size == 0 {
					dispatch(Message{Kind: r.kind, Body: nil})
					continue
				}

				r.body = make([]byte, r.size)
				r.bodyLen = 0
				r.mode = modeBody
			}

		case modeBody:
			n := copy(r.body[r.bodyLen:], chunk)
			r.bodyLen += n
			chunk = chunk[n:]

			if uint32(r.bodyLen) == r.size {
				dispatch(Message{Kind: r.kind, Body: r.body})
				r.body = nil
				r.mode = modeHeader
			}
		}
	}
}
