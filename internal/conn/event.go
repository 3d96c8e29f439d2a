package conn

import "github.com/ogre/flexrender/internal/wire"

// Event is what a Connection's read loop posts to the engine's single
// event channel for every completed frame (or terminal read error),
// the same "goroutine per worker, funnel through a channel" shape the
// teacher uses for its per-worker heartbeat goroutines
// (master/pool/pool.go's heartbeat), adapted here so that message
// handling itself stays serialized in one consumer goroutine even
// though reading is not.
type Event struct {
	WorkerID uint32
	Message  wire.Message
	Err      error
}
