// Package asset implements the handoff between the scene-script
// producer thread and the reactor that streams meshes to workers
// (§4.5).
package asset

import "github.com/ogre/flexrender/internal/protocol"

// Mesh pairs a freshly-assigned mesh id with its payload.
type Mesh struct {
	ID      uint32
	Payload protocol.MeshPayload
}

// Streamer is the producer/consumer rendezvous. The reference
// implementation uses two counting semaphores (mesh_read,
// mesh_synced); this is the channel-of-capacity-1 replacement its own
// design notes recommend (§9): Emit blocks until the reactor has
// taken the previous mesh, so at most one mesh is ever in flight, and
// end-of-stream is a channel close rather than a sentinel id.
type Streamer struct {
	ch     chan Mesh
	nextID uint32
	closed bool
}

// NewStreamer returns a Streamer ready to accept the first mesh.
func NewStreamer() *Streamer {
	return &Streamer{ch: make(chan Mesh, 1)}
}

// Emit is called from the producer goroutine for every mesh the scene
// script yields. It blocks until the reactor has consumed whatever it
// last emitted, then hands off the new one and returns the mesh's
// freshly assigned id so the script can resolve later references to it.
func (s *Streamer) Emit(mesh protocol.MeshPayload) uint32 {
	s.nextID++
	id := s.nextID
	s.ch <- Mesh{ID: id, Payload: mesh}
	return id
}

// Close signals end-of-assets. Called exactly once, after the
// producer's last Emit.
func (s *Streamer) Close() {
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
}

// Chan exposes the handoff channel for the reactor to select on
// directly in place of the reference's try-wait idle poll.
func (s *Streamer) Chan() <-chan Mesh {
	return s.ch
}
