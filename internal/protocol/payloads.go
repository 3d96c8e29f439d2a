package protocol

import (
	"encoding/binary"
	"sort"

	"github.com/ogre/flexrender/pkg/geom"
)

// ConfigPayload accompanies SYNC_CONFIG: the scene bounds workers need
// for spatial reasoning, plus the output image's shape.
type ConfigPayload struct {
	SceneMin, SceneMax geom.Vector
	ImageWidth         uint32
	ImageHeight        uint32
	Buffers            []string
}

func (p ConfigPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeConfig(data []byte) (ConfigPayload, error) {
	var p ConfigPayload
	err := decode(data, &p)
	return p, err
}

// ShaderPayload and TexturePayload are opaque named assets: the
// coordinator never interprets their contents (the ray-tracing kernel
// that consumes them lives entirely on the worker).
type ShaderPayload struct {
	Name string
	Data []byte
}

func (p ShaderPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeShader(data []byte) (ShaderPayload, error) {
	var p ShaderPayload
	err := decode(data, &p)
	return p, err
}

type TexturePayload struct {
	Name   string
	Width  uint32
	Height uint32
	Pixels []byte
}

func (p TexturePayload) Encode() ([]byte, error) { return encode(p) }
func DecodeTexture(data []byte) (TexturePayload, error) {
	var p TexturePayload
	err := decode(data, &p)
	return p, err
}

// MaterialPayload carries the shading coefficients a mesh face refers
// to by index; Emissive promotes any mesh using it into the emissive index (§4.3).
type MaterialPayload struct {
	Name     string
	Ka       [3]float64
	Kd       [3]float64
	Ks       [3]float64
	Ns       float64
	Emissive bool
}

func (p MaterialPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeMaterial(data []byte) (MaterialPayload, error) {
	var p MaterialPayload
	err := decode(data, &p)
	return p, err
}

// Face is a triangle referencing three vertex indices and one material index.
type Face struct {
	Verts    [3]uint32
	Material uint32
}

// MeshPayload is the geometry shipped for SYNC_MESH. Centroid and
// MaterialID are computed once by the loader and travel alongside the
// geometry so the coordinator's spatial router (§4.3) never has to
// re-derive them.
type MeshPayload struct {
	Vertices   []geom.Vector
	Faces      []Face
	Centroid   geom.Vector
	MaterialID uint32
}

func (p MeshPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeMesh(data []byte) (MeshPayload, error) {
	var p MeshPayload
	err := decode(data, &p)
	return p, err
}

// Bounds computes the axis-aligned bounding box of the mesh's vertices.
func (p MeshPayload) Bounds() geom.Box {
	if len(p.Vertices) == 0 {
		return geom.Box{}
	}
	box := geom.NewBox(p.Vertices[0], p.Vertices[0])
	for _, v := range p.Vertices[1:] {
		box = box.Union(geom.NewBox(v, v))
	}
	return box
}

// CameraPayload accompanies SYNC_CAMERA.
type CameraPayload struct {
	Pos, Forward, Up, Left geom.Vector
	Fov                    float64
}

func (p CameraPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeCamera(data []byte) (CameraPayload, error) {
	var p CameraPayload
	err := decode(data, &p)
	return p, err
}

// EmissiveListPayload accompanies SYNC_EMISSIVE: the worker ids that
// host at least one emissive mesh.
type EmissiveListPayload struct {
	WorkerIDs []uint32
}

func (p EmissiveListPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeEmissiveList(data []byte) (EmissiveListPayload, error) {
	var p EmissiveListPayload
	err := decode(data, &p)
	return p, err
}

// WBVHNode is one node of the flattened worker-level BVH shipped via
// SYNC_WBVH: a leaf if WorkerID != 0, else an interior node pointing
// at its two children by index.
type WBVHNode struct {
	Min, Max    geom.Vector
	WorkerID    uint32
	Left, Right int32
}

type WBVHPayload struct {
	Nodes []WBVHNode
}

func (p WBVHPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeWBVH(data []byte) (WBVHPayload, error) {
	var p WBVHPayload
	err := decode(data, &p)
	return p, err
}

// BoundsPayload rides on the OK that follows BUILD_BVH: each worker
// reports the bounding box of the geometry it locally holds.
type BoundsPayload struct {
	Min, Max geom.Vector
}

func (p BoundsPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeBounds(data []byte) (BoundsPayload, error) {
	var p BoundsPayload
	err := decode(data, &p)
	return p, err
}

// StatsPayload is RENDER_STATS's body.
type StatsPayload struct {
	Produced uint64
	Killed   uint64
	Queued   uint64
	Progress float32
}

func (p StatsPayload) Encode() ([]byte, error) { return encode(p) }
func DecodeStats(data []byte) (StatsPayload, error) {
	var p StatsPayload
	err := decode(data, &p)
	return p, err
}

// ImagePayload is SYNC_IMAGE's body: one or more named float buffers
// over a width*height grid, addition being the only composition the
// coordinator performs on them (§3).
type ImagePayload struct {
	Width   uint32
	Height  uint32
	Buffers map[string][]float32
}

func (p ImagePayload) Encode() ([]byte, error) { return encode(p) }
func DecodeImage(data []byte) (ImagePayload, error) {
	var p ImagePayload
	err := decode(data, &p)
	return p, err
}

// EncodeInitBody encodes the assigned worker id as a bare little-endian
// u32 — INIT's body is a single fixed-width field, not a gob blob,
// matching §6's table.
func EncodeInitBody(workerID uint32) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, workerID)
	return body
}

// EncodeRenderStartBody packs (offset<<16)|chunkSize into a
// little-endian u32, per §4.4's image-slab partition scheme.
func EncodeRenderStartBody(offset, chunkSize uint16) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(offset)<<16|uint32(chunkSize))
	return body
}

// DecodeRenderStartBody is the worker-side inverse, included here for
// symmetry and unit-testability even though the coordinator only encodes it.
func DecodeRenderStartBody(body []byte) (offset, chunkSize uint16) {
	v := binary.LittleEndian.Uint32(body)
	return uint16(v >> 16), uint16(v & 0xFFFF)
}

// WorkerIDsFrom flattens a worker-id set into a stable, ascending-order
// slice for EmissiveListPayload.
func WorkerIDsFrom(ids map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
