package engine

import (
	"github.com/ogre/flexrender/internal/conn"
	"github.com/ogre/flexrender/pkg/geom"
)

// Worker is one configured worker's immutable identity plus its
// current lifecycle state (§3, §4.4). All fields are only ever
// touched from the engine's reactor goroutine.
type Worker struct {
	ID    uint32
	Addr  string
	Conn  *conn.Connection
	State State
	Bounds geom.Box

	// configuringAcked is set once this worker's own OK closing
	// CONFIGURING has arrived; it stays true (and the worker's State
	// stays Configuring) until fence #1 releases every worker into
	// SyncingAssets together.
	configuringAcked bool
}
