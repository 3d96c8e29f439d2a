// Package wire implements the coordinator's length-prefixed message
// framing over a reliable byte stream: encode/decode of individual
// frames, streaming reassembly across arbitrary chunk boundaries, and
// per-connection write batching.
package wire

import "fmt"

// Kind identifies the payload carried by a frame. The set is closed;
// any value outside this enum received from a worker is a protocol
// violation (§7) rather than a programming error.
type Kind uint32

const (
	OK Kind = 1

	SyncConfig   Kind = 200
	SyncShader   Kind = 201
	SyncTexture  Kind = 202
	SyncMaterial Kind = 203
	SyncMesh     Kind = 204
	SyncCamera   Kind = 205
	SyncEmissive Kind = 206

	Init Kind = 100

	BuildBVH Kind = 250
	SyncWBVH Kind = 260

	RenderStart  Kind = 300
	RenderStop   Kind = 301
	RenderPause  Kind = 303
	RenderResume Kind = 304

	RenderStats Kind = 302
	SyncImage   Kind = 290
)

// String renders a Kind for logging; unrecognized values print their
// numeric form so a protocol violation is still legible in a log line.
func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case SyncConfig:
		return "SYNC_CONFIG"
	case SyncShader:
		return "SYNC_SHADER"
	case SyncTexture:
		return "SYNC_TEXTURE"
	case SyncMaterial:
		return "SYNC_MATERIAL"
	case SyncMesh:
		return "SYNC_MESH"
	case SyncCamera:
		return "SYNC_CAMERA"
	case SyncEmissive:
		return "SYNC_EMISSIVE"
	case Init:
		return "INIT"
	case BuildBVH:
		return "BUILD_BVH"
	case SyncWBVH:
		return "SYNC_WBVH"
	case RenderStart:
		return "RENDER_START"
	case RenderStop:
		return "RENDER_STOP"
	case RenderPause:
		return "RENDER_PAUSE"
	case RenderResume:
		return "RENDER_RESUME"
	case RenderStats:
		return "RENDER_STATS"
	case SyncImage:
		return "SYNC_IMAGE"
	default:
		return fmt.Sprintf("KIND(%d)", uint32(k))
	}
}
