package engine

import (
	"time"

	"github.com/ogre/flexrender/internal/settings"
	"github.com/ogre/flexrender/pkg/geom"
)

// Config is everything the coordinator needs for one render: the
// scene-derived shape from the config script (§6) plus the operator's
// tunable overrides (internal/settings).
type Config struct {
	Workers      []string // "host[:port]", port defaults to Tunables.DefaultPort
	Runaway      float32  // fractional progress margin, e.g. 0.05 for "runaway: 5"
	ImageWidth   uint32
	ImageHeight  uint32
	ImageName    string
	Buffers      []string
	SceneMin     geom.Vector
	SceneMax     geom.Vector
	LinearScan   bool
	MaxIntervals int

	Tunables settings.Tunables
}

func (c Config) flushPeriod() time.Duration {
	if c.Tunables.FlushPeriod == 0 {
		return 10 * time.Millisecond
	}
	return c.Tunables.FlushPeriod
}

func (c Config) statsPeriod() time.Duration {
	if c.Tunables.StatsPeriod == 0 {
		return 100 * time.Millisecond
	}
	return c.Tunables.StatsPeriod
}

func (c Config) writeBufferBytes() int {
	if c.Tunables.WriteBufferBytes == 0 {
		return 64 * 1024
	}
	return c.Tunables.WriteBufferBytes
}

func (c Config) defaultPort() int {
	if c.Tunables.DefaultPort == 0 {
		return 19400
	}
	return c.Tunables.DefaultPort
}
