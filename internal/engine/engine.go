// Package engine bundles the coordinator's module-level mutable state
// into a single value (per §9's design notes) and drives it through
// engine_init/engine_run: the reactor loop that owns every worker
// connection, the asset-streaming handoff, and the flush/interesting/
// runaway monitors.
package engine

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ogre/flexrender/internal/asset"
	"github.com/ogre/flexrender/internal/conn"
	"github.com/ogre/flexrender/internal/library"
	"github.com/ogre/flexrender/internal/merge"
	"github.com/ogre/flexrender/internal/monitor"
	"github.com/ogre/flexrender/internal/script"
	"github.com/ogre/flexrender/internal/xerrors"
)

// Engine is the coordinator's entire mutable state for one render.
type Engine struct {
	log     *zap.Logger
	cfg     Config
	lib     *library.Library
	metrics *monitor.Metrics

	workers []*Worker
	byID    map[uint32]*Worker

	events chan conn.Event

	scene    script.SceneDecl
	streamer *asset.Streamer

	pendingMeshWorker uint32 // 0 when no mesh is currently in flight
	pendingMeshID     uint32

	boundsCollected int

	accum        merge.Image
	statsHistory map[uint32][]merge.StatsRow
	imagesDone   map[uint32]bool
	imagesLost   map[uint32]bool
	tick         int

	// finished guards done from being closed twice: either abort or
	// finish can win the race, never both.
	finished bool
	err      error

	loadStart, buildStart, renderStart time.Time

	flushTicker      *time.Ticker
	interestingTicker *time.Ticker
	runawayTicker    *time.Ticker

	done chan struct{}
}

// New constructs an Engine ready to run against the given scene and config.
func New(log *zap.Logger, cfg Config, scene script.SceneDecl, metrics *monitor.Metrics) *Engine {
	return &Engine{
		log:          log,
		cfg:          cfg,
		lib:          library.New(cfg.SceneMin, cfg.SceneMax),
		metrics:      metrics,
		byID:         make(map[uint32]*Worker),
		events:       make(chan conn.Event, 256),
		scene:        scene,
		streamer:     asset.NewStreamer(),
		statsHistory: make(map[uint32][]merge.StatsRow),
		imagesDone:   make(map[uint32]bool),
		imagesLost:   make(map[uint32]bool),
		done:         make(chan struct{}),
	}
}

// Run connects to every configured worker and drives the render to
// completion, returning once the merged output has been written.
func (e *Engine) Run() error {
	e.loadStart = time.Now()

	if err := e.dialAll(); err != nil {
		return err
	}
	e.lib.RegisterWorkerIDs(e.workerIDs())
	e.lib.SetCamera(e.scene.Camera)
	for i, s := range e.scene.Shaders {
		s := s
		e.lib.Shaders.Store(uint32(i+1), &s)
	}
	for i, t := range e.scene.Textures {
		t := t
		e.lib.Textures.Store(uint32(i+1), &t)
	}
	for i, m := range e.scene.Materials {
		e.lib.StoreMaterial(uint32(i+1), m)
	}

	for _, w := range e.workers {
		go w.Conn.ReadLoop(e.events)
	}

	for _, w := range e.workers {
		e.initWorker(w)
	}

	go e.runProducer()

	e.reactorLoop()
	return e.err
}

// dialAll opens one TCP connection per configured worker, assigning
// dense 1-based ids in configuration order (§3).
func (e *Engine) dialAll() error {
	for i, addr := range e.cfg.Workers {
		id := uint32(i + 1)
		full := e.withDefaultPort(addr)

		c, err := net.DialTimeout("tcp", full, 5*time.Second)
		if err != nil {
			return xerrors.NewFatal(xerrors.Connect, fmt.Errorf("dial worker %d (%s): %w", id, full, err))
		}

		w := &Worker{ID: id, Addr: full, Conn: conn.New(id, c, e.cfg.MaxIntervals, e.cfg.writeBufferBytes()), State: Connected}
		e.workers = append(e.workers, w)
		e.byID[id] = w
	}
	return nil
}

func (e *Engine) withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(e.cfg.defaultPort()))
}

func (e *Engine) workerIDs() []uint32 {
	ids := make([]uint32, len(e.workers))
	for i, w := range e.workers {
		ids[i] = w.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// initWorker sends INIT and moves the worker into INITIALIZING (§4.4).
func (e *Engine) initWorker(w *Worker) {
	if !e.checkWrite(w, w.Conn.SendInit(w.ID)) {
		return
	}
	if !e.checkWrite(w, w.Conn.Flush()) {
		return
	}
	w.State = Initializing
}

// runProducer evaluates the scene's mesh declarations on its own
// goroutine, streaming them through the Streamer one at a time. Besides
// the reactor and the per-worker read loops, it is the only goroutine
// the engine starts (§2, §5).
func (e *Engine) runProducer() {
	for _, decl := range e.scene.Meshes {
		mesh, err := script.LoadMesh(decl)
		if err != nil {
			e.log.Error("failed to load mesh", zap.String("file", decl.ObjFile), zap.Error(err))
			continue
		}
		if id, ok := e.lib.MaterialIDByName(decl.Material); ok {
			mesh.MaterialID = id
		}
		e.streamer.Emit(mesh)
	}
	e.streamer.Close()
}
