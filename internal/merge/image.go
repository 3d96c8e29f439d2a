// Package merge accumulates per-worker image tiles into a final
// high-dynamic-range output and writes the per-worker and merged
// files (§4.7).
package merge

import (
	"fmt"

	"github.com/ogre/flexrender/internal/protocol"
)

// Image is a width*height grid of one or more named float buffers.
// Addition (Merge) is the only composition the coordinator performs
// on image data (§3) — everything else is the ray-tracing kernel's concern.
type Image struct {
	Width, Height uint32
	Buffers       map[string][]float32
}

// FromPayload copies a wire ImagePayload into an owned Image.
func FromPayload(p protocol.ImagePayload) Image {
	buffers := make(map[string][]float32, len(p.Buffers))
	for name, buf := range p.Buffers {
		cp := make([]float32, len(buf))
		copy(cp, buf)
		buffers[name] = cp
	}
	return Image{Width: p.Width, Height: p.Height, Buffers: buffers}
}

// NewAccumulator returns a zero-valued image of the given shape ready
// to receive tiles via Merge.
func NewAccumulator(width, height uint32, bufferNames []string) Image {
	buffers := make(map[string][]float32, len(bufferNames))
	for _, name := range bufferNames {
		buffers[name] = make([]float32, width*height)
	}
	return Image{Width: width, Height: height, Buffers: buffers}
}

// Merge adds other into img pointwise, per matching buffer name.
// Buffers present in other but not img are an error: the accumulator's
// shape is fixed at construction from the coordinator's own config.
func (img *Image) Merge(other Image) error {
	if img.Width != other.Width || img.Height != other.Height {
		return fmt.Errorf("merge: shape mismatch: accumulator %dx%d, tile %dx%d", img.Width, img.Height, other.Width, other.Height)
	}
	for name, tile := range other.Buffers {
		dst, ok := img.Buffers[name]
		if !ok {
			return fmt.Errorf("merge: unknown buffer %q", name)
		}
		if len(dst) != len(tile) {
			return fmt.Errorf("merge: buffer %q length mismatch: %d vs %d", name, len(dst), len(tile))
		}
		for i, v := range tile {
			dst[i] += v
		}
	}
	return nil
}
