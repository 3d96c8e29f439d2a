// Package conn wraps one worker's TCP socket: framed sends through a
// batching write buffer, framed receives through a streaming
// reassembler, and the rolling statistics window used by the
// runaway/interesting monitors.
package conn

import (
	"fmt"
	"net"

	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/internal/wire"
)

// readChunkSize is the size of each raw read off the socket, handed to
// the Reassembler; it has no relationship to frame boundaries.
const readChunkSize = 32 * 1024

// Connection is one worker's transport handle. All of its state is
// only ever touched from the single engine goroutine that owns it,
// except for ReadLoop, which runs on its own goroutine and only ever
// touches the socket's read side, the reassembler (which nothing else
// uses) and the events channel it was given — so no locking is needed.
type Connection struct {
	WorkerID uint32
	Addr     string

	conn        net.Conn
	writer      *wire.WriteBuffer
	reassembler *wire.Reassembler
	stats       *StatsWindow

	flushedThisTick bool
}

// New wraps an already-established socket for workerID, sizing its
// rolling statistics window to maxIntervals samples (§4.6) and its
// send buffer to writeBufferBytes (an operator-tunable override, see
// internal/settings).
func New(workerID uint32, c net.Conn, maxIntervals int, writeBufferBytes int) *Connection {
	return &Connection{
		WorkerID:    workerID,
		Addr:        c.RemoteAddr().String(),
		conn:        c,
		writer:      wire.NewWriteBuffer(c, writeBufferBytes),
		reassembler: wire.NewReassembler(),
		stats:       NewStatsWindow(maxIntervals),
	}
}

// ReadLoop blocks reading raw bytes off the socket, feeding them to
// the reassembler, and posting one Event per completed frame (or one
// final Event carrying a non-nil Err on disconnect) to events. It is
// meant to run on its own goroutine; the engine's single reactor
// goroutine is the only consumer of events, which is what keeps
// message handling itself serialized despite reads happening
// concurrently across workers.
func (c *Connection) ReadLoop(events chan<- Event) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.reassembler.Feed(buf[:n], func(msg wire.Message) {
				events <- Event{WorkerID: c.WorkerID, Message: msg}
			})
		}
		if err != nil {
			events <- Event{WorkerID: c.WorkerID, Err: err}
			return
		}
	}
}

// Send buffers a raw message for later flushing.
func (c *Connection) Send(kind wire.Kind, body []byte) error {
	return c.writer.Send(wire.Message{Kind: kind, Body: body})
}

// SendConfig buffers SYNC_CONFIG.
func (c *Connection) SendConfig(p protocol.ConfigPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return c.Send(wire.SyncConfig, body)
}

// SendShader buffers SYNC_SHADER.
func (c *Connection) SendShader(p protocol.ShaderPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode shader: %w", err)
	}
	return c.Send(wire.SyncShader, body)
}

// SendTexture buffers SYNC_TEXTURE.
func (c *Connection) SendTexture(p protocol.TexturePayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode texture: %w", err)
	}
	return c.Send(wire.SyncTexture, body)
}

// SendMaterial buffers SYNC_MATERIAL.
func (c *Connection) SendMaterial(p protocol.MaterialPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode material: %w", err)
	}
	return c.Send(wire.SyncMaterial, body)
}

// SendMesh buffers SYNC_MESH.
func (c *Connection) SendMesh(p protocol.MeshPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode mesh: %w", err)
	}
	return c.Send(wire.SyncMesh, body)
}

// SendCamera buffers SYNC_CAMERA.
func (c *Connection) SendCamera(p protocol.CameraPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode camera: %w", err)
	}
	return c.Send(wire.SyncCamera, body)
}

// SendEmissive buffers SYNC_EMISSIVE — the worker ids hosting at least
// one emissive mesh. §4.2's send_light_list is this message under its
// wire name (§6): no light data ever crosses the wire, only the
// routing hint a worker needs to sample emissive geometry hosted
// elsewhere.
func (c *Connection) SendEmissive(workerIDs []uint32) error {
	body, err := protocol.EmissiveListPayload{WorkerIDs: workerIDs}.Encode()
	if err != nil {
		return fmt.Errorf("encode emissive list: %w", err)
	}
	return c.Send(wire.SyncEmissive, body)
}

// SendInit buffers INIT.
func (c *Connection) SendInit(workerID uint32) error {
	return c.Send(wire.Init, protocol.EncodeInitBody(workerID))
}

// SendBuildBVH buffers BUILD_BVH.
func (c *Connection) SendBuildBVH() error {
	return c.Send(wire.BuildBVH, nil)
}

// SendWBVH buffers SYNC_WBVH.
func (c *Connection) SendWBVH(p protocol.WBVHPayload) error {
	body, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode wbvh: %w", err)
	}
	return c.Send(wire.SyncWBVH, body)
}

// SendRenderStart buffers RENDER_START with this worker's image-slab
// partition (§4.4).
func (c *Connection) SendRenderStart(offset, chunkSize uint16) error {
	return c.Send(wire.RenderStart, protocol.EncodeRenderStartBody(offset, chunkSize))
}

// SendRenderStop, SendRenderPause and SendRenderResume all carry empty bodies.
func (c *Connection) SendRenderStop() error   { return c.Send(wire.RenderStop, nil) }
func (c *Connection) SendRenderPause() error  { return c.Send(wire.RenderPause, nil) }
func (c *Connection) SendRenderResume() error { return c.Send(wire.RenderResume, nil) }

// Flush dispatches everything buffered to the socket and marks this
// connection as flushed for the current tick, so the flush monitor
// (internal/monitor) can skip connections it already flushed this
// pass through some other code path (e.g. a state transition that
// flushes eagerly).
func (c *Connection) Flush() error {
	err := c.writer.Flush()
	c.flushedThisTick = true
	return err
}

// FlushedThisTick reports whether Flush has run since the last
// ResetTick call.
func (c *Connection) FlushedThisTick() bool { return c.flushedThisTick }

// HasBuffered reports whether any bytes are waiting to be flushed.
func (c *Connection) HasBuffered() bool { return c.writer.Len() > 0 }

// ResetTick clears the flushed-this-tick flag; called by the flush
// monitor on each pass, after it has checked this connection.
func (c *Connection) ResetTick() { c.flushedThisTick = false }

// RecordStats appends a freshly-received stats sample to the rolling window.
func (c *Connection) RecordStats(p protocol.StatsPayload) {
	c.stats.Append(StatsSample{Produced: p.Produced, Killed: p.Killed, Queued: p.Queued, Progress: p.Progress})
}

// Progress returns the most recent progress reported by this worker.
func (c *Connection) Progress() float32 {
	return c.stats.Progress()
}

// IsInteresting reports whether this worker has shown ray activity
// within its last maxIntervals stats windows (§4.6).
func (c *Connection) IsInteresting(maxIntervals int) bool {
	return c.stats.Interesting(maxIntervals)
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}
