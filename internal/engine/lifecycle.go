package engine

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ogre/flexrender/internal/asset"
	"github.com/ogre/flexrender/internal/bvh"
	"github.com/ogre/flexrender/internal/conn"
	"github.com/ogre/flexrender/internal/merge"
	"github.com/ogre/flexrender/internal/monitor"
	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/internal/wire"
	"github.com/ogre/flexrender/internal/xerrors"
	"github.com/ogre/flexrender/pkg/geom"
)

// reactorLoop is the single goroutine that ever touches worker state
// (§5): it selects over inbound connection events, the asset
// streamer's mesh channel, and the monitor timers, disabling the mesh
// channel case with a nil channel whenever a mesh is already in
// flight or no worker is still waiting on assets — the idiomatic Go
// replacement for the reference's try-wait idle poll.
func (e *Engine) reactorLoop() {
	for {
		var meshCh <-chan asset.Mesh
		if e.pendingMeshWorker == 0 && e.streamerActive() {
			meshCh = e.streamer.Chan()
		}

		var flushC, interestingC, runawayC <-chan time.Time
		if e.flushTicker != nil {
			flushC = e.flushTicker.C
		}
		if e.interestingTicker != nil {
			interestingC = e.interestingTicker.C
		}
		if e.runawayTicker != nil {
			runawayC = e.runawayTicker.C
		}

		select {
		case ev := <-e.events:
			e.handleEvent(ev)
		case mesh, ok := <-meshCh:
			if ok {
				e.handleMesh(mesh)
			} else {
				e.handleAssetsDone()
			}
		case <-flushC:
			e.tickFlush()
		case <-interestingC:
			e.tickInteresting()
		case <-runawayC:
			e.tickRunaway()
		case <-e.done:
			return
		}
	}
}

// streamerActive reports whether the mesh channel is still relevant:
// once every worker has moved past SYNCING_ASSETS there is nothing
// left to pull.
func (e *Engine) streamerActive() bool {
	for _, w := range e.workers {
		if w.State == SyncingAssets {
			return true
		}
	}
	return false
}

func (e *Engine) handleEvent(ev conn.Event) {
	w, ok := e.byID[ev.WorkerID]
	if !ok {
		return
	}

	if ev.Err != nil {
		e.handleDisconnect(w, ev.Err)
		return
	}

	switch ev.Message.Kind {
	case wire.OK:
		e.handleOK(w, ev.Message.Body)
	case wire.RenderStats:
		e.handleStats(w, ev.Message.Body)
	case wire.SyncImage:
		e.handleImage(w, ev.Message.Body)
	default:
		pv := xerrors.NewProtocolViolation(w.ID, "unexpected message kind "+ev.Message.Kind.String()+" in state "+w.State.String())
		e.log.Warn("protocol violation", zap.Error(pv))
	}
}

// handleDisconnect processes a read failure (including a clean EOF) on
// w's connection. A worker lost while SYNCING_IMAGES is treated as
// producing no tile: the merge still runs over whatever tiles did
// arrive rather than blocking finish() forever. Any other state's
// disconnect is a transport error and is fatal to the whole render
// (§4.1, §7).
func (e *Engine) handleDisconnect(w *Worker, err error) {
	if w.State == SyncingImages {
		e.log.Warn("worker disconnected before its tile arrived; merging without it",
			zap.Uint32("worker", w.ID), zap.Error(err))
		w.State = Done
		e.imagesLost[w.ID] = true
		if len(e.imagesDone)+len(e.imagesLost) == len(e.workers) {
			e.finish()
		}
		return
	}

	e.abort(xerrors.NewFatal(xerrors.Transport, fmt.Errorf("lost worker %d: %w", w.ID, err)))
}

// checkWrite reports whether a send/flush to w succeeded. A write
// error is fatal to the render (§4.1): it aborts every worker, not
// just w, since the workers' states can no longer be kept coherent
// once one of them stops receiving instructions.
func (e *Engine) checkWrite(w *Worker, err error) bool {
	if err == nil {
		return true
	}
	e.abort(xerrors.NewFatal(xerrors.Transport, fmt.Errorf("write to worker %d: %w", w.ID, err)))
	return false
}

// abort records a fatal error and tears down the render; Run returns
// this error once reactorLoop exits. Idempotent: only the first caller
// (abort or finish, whichever the reactor loop reaches first) actually
// closes done.
func (e *Engine) abort(err error) {
	if e.finished {
		return
	}
	e.finished = true
	e.err = err
	e.log.Error("aborting render", zap.Error(err))
	for _, w := range e.workers {
		_ = w.Conn.Close()
	}
	close(e.done)
}

func (e *Engine) handleOK(w *Worker, body []byte) {
	switch w.State {
	case Initializing:
		e.sendConfiguring(w)

	case Configuring:
		w.configuringAcked = true
		if e.allWorkers(func(w *Worker) bool { return w.configuringAcked }) {
			e.startSync()
		}

	case SyncingAssets:
		if w.ID == e.pendingMeshWorker {
			e.lib.ReleaseMesh(e.pendingMeshID)
			e.pendingMeshWorker = 0
			e.pendingMeshID = 0
		}

	case SyncingCamera:
		w.State = SyncingEmissive
		if e.checkWrite(w, w.Conn.SendEmissive(e.lib.EmissiveWorkerIDs())) {
			e.checkWrite(w, w.Conn.Flush())
		}

	case SyncingEmissive:
		w.State = BuildingBVH
		if e.checkWrite(w, w.Conn.SendBuildBVH()) {
			e.checkWrite(w, w.Conn.Flush())
		}

	case BuildingBVH:
		bounds, err := protocol.DecodeBounds(body)
		if err != nil {
			pv := xerrors.NewProtocolViolation(w.ID, "malformed BUILD_BVH ack: "+err.Error())
			e.log.Warn("protocol violation", zap.Error(pv))
			return
		}
		w.Bounds = geom.Box{MinCorner: bounds.Min, MaxCorner: bounds.Max}
		e.boundsCollected++

		if e.cfg.LinearScan {
			w.State = Ready
			e.maybeStartRender()
			return
		}
		if e.boundsCollected == len(e.workers) {
			e.buildAndShipWBVH()
		}

	case SyncingWBVH:
		w.State = Ready
		e.maybeStartRender()

	case SyncingImages:
		// SYNC_IMAGE itself carries the payload; a bare OK is not expected here.

	default:
		pv := xerrors.NewProtocolViolation(w.ID, "OK received in unexpected state "+w.State.String())
		e.log.Warn("protocol violation", zap.Error(pv))
	}
}

// sendConfiguring sends the CONFIGURING sequence required by §4.4:
// SYNC_CONFIG, then every SYNC_SHADER, then every SYNC_TEXTURE, then
// every SYNC_MATERIAL — shaders and textures must land before the
// materials that may reference them by name.
func (e *Engine) sendConfiguring(w *Worker) {
	w.State = Configuring
	sceneMin, sceneMax := e.lib.SceneBounds()

	ok := e.checkWrite(w, w.Conn.SendConfig(protocol.ConfigPayload{
		SceneMin:    sceneMin,
		SceneMax:    sceneMax,
		ImageWidth:  e.cfg.ImageWidth,
		ImageHeight: e.cfg.ImageHeight,
		Buffers:     e.cfg.Buffers,
	}))
	e.lib.Shaders.ForEach(func(id uint32, s *protocol.ShaderPayload) {
		if ok {
			ok = e.checkWrite(w, w.Conn.SendShader(*s))
		}
	})
	e.lib.Textures.ForEach(func(id uint32, t *protocol.TexturePayload) {
		if ok {
			ok = e.checkWrite(w, w.Conn.SendTexture(*t))
		}
	})
	e.lib.Materials.ForEach(func(id uint32, m *protocol.MaterialPayload) {
		if ok {
			ok = e.checkWrite(w, w.Conn.SendMaterial(*m))
		}
	})
	if ok {
		e.checkWrite(w, w.Conn.Flush())
	}
}

func (e *Engine) allWorkers(pred func(*Worker) bool) bool {
	for _, w := range e.workers {
		if !pred(w) {
			return false
		}
	}
	return true
}

// startSync fires fence #1: every worker has finished CONFIGURING, so
// they all move to SYNCING_ASSETS together and the producer's mesh
// channel becomes live (§4.4, §4.5).
func (e *Engine) startSync() {
	for _, w := range e.workers {
		w.State = SyncingAssets
	}
}

func (e *Engine) handleMesh(mesh asset.Mesh) {
	target := e.lib.RouteMesh(mesh.Payload.Centroid)
	e.lib.StoreMesh(mesh.ID, mesh.Payload)
	if e.lib.IsEmissiveMesh(mesh.ID) {
		e.lib.MarkEmissiveHost(target)
	}

	w, ok := e.byID[target]
	if !ok {
		e.abort(xerrors.NewFatal(xerrors.Invariant, fmt.Errorf("mesh %d routed to unknown worker %d", mesh.ID, target)))
		return
	}

	e.pendingMeshWorker = target
	e.pendingMeshID = mesh.ID
	if !e.checkWrite(w, w.Conn.SendMesh(mesh.Payload)) {
		return
	}
	e.checkWrite(w, w.Conn.Flush())
}

// handleAssetsDone fires fence #2: the producer has emitted every
// mesh (§4.5 step 2), so every worker moves on to SYNCING_CAMERA.
func (e *Engine) handleAssetsDone() {
	e.buildStart = time.Now()
	camera := e.lib.Camera()
	for _, w := range e.workers {
		w.State = SyncingCamera
		if camera != nil {
			if !e.checkWrite(w, w.Conn.SendCamera(*camera)) {
				return
			}
		}
		if !e.checkWrite(w, w.Conn.Flush()) {
			return
		}
	}
}

func (e *Engine) buildAndShipWBVH() {
	entries := make([]bvh.Entry, 0, len(e.workers))
	for _, w := range e.workers {
		entries = append(entries, bvh.Entry{WorkerID: w.ID, Box: w.Bounds})
	}
	payload := bvh.Build(entries)

	for _, w := range e.workers {
		w.State = SyncingWBVH
		if !e.checkWrite(w, w.Conn.SendWBVH(payload)) {
			return
		}
		if !e.checkWrite(w, w.Conn.Flush()) {
			return
		}
	}
}

// maybeStartRender fires fence #4: once every worker is READY, ship
// each its image-slab partition and start the render (§4.4).
func (e *Engine) maybeStartRender() {
	if !e.allWorkers(func(w *Worker) bool { return w.State == Ready }) {
		return
	}

	n := len(e.workers)
	for i, w := range e.workers {
		part := PartitionImage(e.cfg.ImageWidth, n, i+1)
		w.State = Rendering
		if !e.checkWrite(w, w.Conn.SendRenderStart(part.Offset, part.Chunk)) {
			return
		}
		if !e.checkWrite(w, w.Conn.Flush()) {
			return
		}
	}

	e.renderStart = time.Now()
	e.accum = merge.NewAccumulator(e.cfg.ImageWidth, e.cfg.ImageHeight, e.cfg.Buffers)
	e.startMonitors()
}

func (e *Engine) startMonitors() {
	statsPeriod := e.cfg.statsPeriod()
	e.flushTicker = time.NewTicker(e.cfg.flushPeriod())
	e.interestingTicker = time.NewTicker(statsPeriod * time.Duration(e.cfg.MaxIntervals))
	e.runawayTicker = time.NewTicker(statsPeriod)
}

func (e *Engine) stopMonitors() {
	if e.flushTicker != nil {
		e.flushTicker.Stop()
	}
	if e.interestingTicker != nil {
		e.interestingTicker.Stop()
	}
	if e.runawayTicker != nil {
		e.runawayTicker.Stop()
	}
}

func (e *Engine) handleStats(w *Worker, body []byte) {
	stats, err := protocol.DecodeStats(body)
	if err != nil {
		pv := xerrors.NewProtocolViolation(w.ID, "malformed RENDER_STATS: "+err.Error())
		e.log.Warn("protocol violation", zap.Error(pv))
		return
	}
	w.Conn.RecordStats(stats)
	e.statsHistory[w.ID] = append(e.statsHistory[w.ID], merge.StatsRow{
		Tick: e.tick, Produced: stats.Produced, Killed: stats.Killed, Queued: stats.Queued, Progress: stats.Progress,
	})

	if e.metrics != nil {
		label := workerLabel(w.ID)
		e.metrics.Progress.WithLabelValues(label).Set(float64(stats.Progress))
		e.metrics.RaysProduced.WithLabelValues(label).Set(float64(stats.Produced))
		e.metrics.RaysKilled.WithLabelValues(label).Set(float64(stats.Killed))
		e.metrics.RaysQueued.WithLabelValues(label).Set(float64(stats.Queued))
	}
}

func (e *Engine) tickFlush() {
	for _, w := range e.workers {
		if monitor.ShouldFlush(w.Conn.HasBuffered(), w.Conn.FlushedThisTick()) {
			if !e.checkWrite(w, w.Conn.Flush()) {
				return
			}
		}
		w.Conn.ResetTick()
	}
}

func (e *Engine) tickInteresting() {
	var interesting []bool
	for _, w := range e.workers {
		if w.State == Rendering || w.State == Paused {
			interesting = append(interesting, w.Conn.IsInteresting(e.cfg.MaxIntervals))
		}
	}
	if monitor.AllUninteresting(interesting) {
		e.stopRender()
	}
}

func (e *Engine) tickRunaway() {
	e.tick++
	progresses := make([]monitor.WorkerProgress, 0, len(e.workers))
	for _, w := range e.workers {
		var st monitor.RunState
		switch w.State {
		case Rendering:
			st = monitor.Rendering
		case Paused:
			st = monitor.Paused
		default:
			continue
		}
		progresses = append(progresses, monitor.WorkerProgress{WorkerID: w.ID, State: st, Progress: w.Conn.Progress()})
	}

	for _, t := range monitor.Runaway(progresses, e.cfg.Runaway) {
		w := e.byID[t.WorkerID]
		switch t.Action {
		case monitor.Pause:
			w.State = Paused
			if !e.checkWrite(w, w.Conn.SendRenderPause()) {
				return
			}
			if !e.checkWrite(w, w.Conn.Flush()) {
				return
			}
			if e.metrics != nil {
				e.metrics.RunawayPauses.Inc()
			}
		case monitor.Resume:
			w.State = Rendering
			if !e.checkWrite(w, w.Conn.SendRenderResume()) {
				return
			}
			if !e.checkWrite(w, w.Conn.Flush()) {
				return
			}
		}
	}
}

// stopRender fires on quiescence (§4.6): every worker stops rendering
// and moves to image sync.
func (e *Engine) stopRender() {
	for _, w := range e.workers {
		if w.State == Rendering || w.State == Paused {
			w.State = SyncingImages
			if !e.checkWrite(w, w.Conn.SendRenderStop()) {
				return
			}
			if !e.checkWrite(w, w.Conn.Flush()) {
				return
			}
		}
	}
	e.stopMonitors()
	if e.metrics != nil {
		e.metrics.QuiescenceStops.Inc()
	}
}

func (e *Engine) handleImage(w *Worker, body []byte) {
	payload, err := protocol.DecodeImage(body)
	if err != nil {
		pv := xerrors.NewProtocolViolation(w.ID, "malformed SYNC_IMAGE: "+err.Error())
		e.log.Warn("protocol violation", zap.Error(pv))
		return
	}
	tile := merge.FromPayload(payload)

	base := workerFileBase(e.cfg.ImageName, w.Addr)
	if err := merge.WriteEXR(base+".exr", tile); err != nil {
		e.log.Error("failed to write per-worker EXR", zap.Uint32("worker", w.ID), zap.Error(err))
	}
	if err := merge.WriteStatsCSV(base+".csv", e.statsHistory[w.ID]); err != nil {
		e.log.Error("failed to write per-worker CSV", zap.Uint32("worker", w.ID), zap.Error(err))
	}

	if err := e.accum.Merge(tile); err != nil {
		e.log.Error("failed to merge tile", zap.Uint32("worker", w.ID), zap.Error(err))
	}

	w.State = Done
	e.imagesDone[w.ID] = true
	if len(e.imagesDone)+len(e.imagesLost) == len(e.workers) {
		e.finish()
	}
}

// finish writes the merged output and tears down every connection.
// Idempotent for the same reason abort is: whichever of the two the
// reactor loop reaches first closes done.
func (e *Engine) finish() {
	if e.finished {
		return
	}
	e.finished = true

	mergedPath := e.cfg.ImageName + ".exr"
	if err := merge.WriteEXR(mergedPath, e.accum); err != nil {
		e.log.Error("failed to write merged EXR", zap.Error(err))
	}

	now := time.Now()
	e.log.Info("render complete",
		zap.Duration("sync", e.buildStart.Sub(e.loadStart)),
		zap.Duration("build", e.renderStart.Sub(e.buildStart)),
		zap.Duration("render", now.Sub(e.renderStart)))

	for _, w := range e.workers {
		_ = w.Conn.Close()
	}
	close(e.done)
}

func workerLabel(id uint32) string {
	return "worker-" + strconv.FormatUint(uint64(id), 10)
}

func workerFileBase(name, addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return name + "-" + addr
	}
	return name + "-" + host + "_" + port
}
