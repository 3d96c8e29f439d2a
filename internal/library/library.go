package library

import (
	"sort"

	"github.com/ogre/flexrender/internal/morton"
	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/pkg/geom"
)

// Library is the coordinator's process-wide scene registry. It is
// owned entirely by the reactor goroutine; the asset producer
// goroutine only reads the material name index (MaterialIDByName),
// which is filled before the producer starts. Mesh slots are stored by
// the reactor as it takes each mesh off the internal/asset Streamer.
type Library struct {
	Shaders   SlotTable[protocol.ShaderPayload]
	Textures  SlotTable[protocol.TexturePayload]
	Materials SlotTable[protocol.MaterialPayload]
	Meshes    SlotTable[protocol.MeshPayload]

	materialByName  map[string]uint32
	emissiveMeshIDs []uint32
	emissiveMeshSet map[uint32]struct{}
	emissiveHosts   map[uint32]struct{}

	sceneMin, sceneMax geom.Vector
	router             *morton.Router

	workerIDs []uint32
	camera    *protocol.CameraPayload
}

// New returns an empty Library scoped to the given scene bounds, used
// both for spatial encoding (§4.3) and shipped to workers via
// SYNC_CONFIG.
func New(sceneMin, sceneMax geom.Vector) *Library {
	return &Library{
		materialByName:  make(map[string]uint32),
		emissiveMeshSet: make(map[uint32]struct{}),
		emissiveHosts:   make(map[uint32]struct{}),
		sceneMin:        sceneMin,
		sceneMax:        sceneMax,
	}
}

func (l *Library) SceneBounds() (geom.Vector, geom.Vector) {
	return l.sceneMin, l.sceneMax
}

// StoreMaterial stores a material and updates the name index. Storing
// over an existing name silently repoints it at the new id, matching
// the teacher's "replace on store" convention.
func (l *Library) StoreMaterial(id uint32, m protocol.MaterialPayload) {
	l.Materials.Store(id, &m)
	l.materialByName[m.Name] = id
}

// MaterialIDByName looks up a previously-stored material by name.
func (l *Library) MaterialIDByName(name string) (uint32, bool) {
	id, ok := l.materialByName[name]
	return id, ok
}

// StoreMesh stores a mesh and, if its material is emissive, appends it
// to the emissive index. The emissive index is append-only: storing
// nil in the mesh's slot (as ReleaseMesh does) does not retract
// membership, matching §9's documented — not fixed — behavior. This is
// safe because the coordinator never reuses a mesh id.
func (l *Library) StoreMesh(id uint32, m protocol.MeshPayload) {
	l.Meshes.Store(id, &m)

	if mat := l.Materials.Lookup(m.MaterialID); mat != nil && mat.Emissive {
		l.emissiveMeshIDs = append(l.emissiveMeshIDs, id)
		l.emissiveMeshSet[id] = struct{}{}
	}
}

// IsEmissiveMesh reports whether id was ever stored with an emissive
// material — consulted by the asset streamer at dispatch time, before
// the mesh's slot is released.
func (l *Library) IsEmissiveMesh(id uint32) bool {
	_, ok := l.emissiveMeshSet[id]
	return ok
}

// MarkEmissiveHost records that workerID has received at least one
// emissive mesh. Called by the asset streamer at dispatch time, since
// by the time SYNC_EMISSIVE is computed the mesh itself may already
// have been released (§5's resource policy releases a mesh as soon as
// its target worker ACKs it).
func (l *Library) MarkEmissiveHost(workerID uint32) {
	l.emissiveHosts[workerID] = struct{}{}
}

// ReleaseMesh drops the coordinator's copy of a mesh once its target
// worker has acknowledged receiving it (§4.5, §5's resource policy).
// It does not touch the emissive index (§9).
func (l *Library) ReleaseMesh(id uint32) {
	l.Meshes.Store(id, nil)
}

// EmissiveMeshIDs returns the append-only emissive index.
func (l *Library) EmissiveMeshIDs() []uint32 {
	return l.emissiveMeshIDs
}

// SetCamera stores the current camera.
func (l *Library) SetCamera(c protocol.CameraPayload) {
	l.camera = &c
}

// Camera returns the current camera, or nil if none has been set yet.
func (l *Library) Camera() *protocol.CameraPayload {
	return l.camera
}

// RegisterWorkerIDs records the full set of worker ids once every
// worker has connected, in ascending order, and builds the spatial
// routing table over them (§4.3). Must be called exactly once, after
// all workers are known and before any mesh is routed.
func (l *Library) RegisterWorkerIDs(ids []uint32) {
	sorted := append([]uint32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	l.workerIDs = sorted
	l.router = morton.NewRouter(sorted, l.sceneMin, l.sceneMax)
}

// RouteMesh returns the worker id that should host a mesh's centroid.
// RegisterWorkerIDs must have been called first.
func (l *Library) RouteMesh(centroid geom.Vector) uint32 {
	if l.router == nil {
		return 0
	}
	return l.router.Route(centroid)
}

// WorkerIDs returns the registered worker ids in ascending order.
func (l *Library) WorkerIDs() []uint32 {
	return l.workerIDs
}

// EmissiveWorkerIDs returns the set of worker ids that have received at
// least one emissive mesh. This is what SYNC_EMISSIVE ships to every
// worker (§4.4).
func (l *Library) EmissiveWorkerIDs() []uint32 {
	return protocol.WorkerIDsFrom(l.emissiveHosts)
}
