// Package morton computes the 63-bit Morton (Z-order) space code used
// to route meshes to workers by spatial locality (§4.3), and the
// contiguous-partition router built on top of it.
package morton

import "github.com/ogre/flexrender/pkg/geom"

// bitsPerAxis is how many bits of each of X, Y, Z go into the
// interleaved code: 3*21 = 63, the largest multiple of 3 that fits in
// a positive int64.
const bitsPerAxis = 21

// SpaceCodeMax is the largest value SpaceEncode can return.
const SpaceCodeMax uint64 = (1 << (3 * bitsPerAxis)) - 1

// spread takes the low 21 bits of v and spreads them out so that two
// zero bits follow every original bit, leaving room to interleave two
// more axes into the gaps.
func spread(v uint64) uint64 {
	v &= (1 << bitsPerAxis) - 1
	v = (v | (v << 32)) & 0x1f00000000ffff
	v = (v | (v << 16)) & 0x1f0000ff0000ff
	v = (v | (v << 8)) & 0x100f00f00f00f00f
	v = (v | (v << 4)) & 0x10c30c30c30c30c3
	v = (v | (v << 2)) & 0x1249249249249249
	return v
}

// SpaceEncode computes the 63-bit Morton code of centroid c within the
// axis-aligned box [min, max]. Points outside the box are clamped, so
// SpaceEncode is total over all of R^3, not just the box's interior.
func SpaceEncode(c, min, max geom.Vector) uint64 {
	nx := normalize(c.X, min.X, max.X)
	ny := normalize(c.Y, min.Y, max.Y)
	nz := normalize(c.Z, min.Z, max.Z)

	return spread(nx) | (spread(ny) << 1) | (spread(nz) << 2)
}

// normalize maps v from [lo, hi] onto the bitsPerAxis-bit integer
// range, clamping out-of-range values to the extremes.
func normalize(v, lo, hi float64) uint64 {
	const scale = float64(uint64(1) << bitsPerAxis)

	if hi <= lo {
		return 0
	}

	t := (v - lo) / (hi - lo)
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return (1 << bitsPerAxis) - 1
	default:
		return uint64(t * scale)
	}
}

// Router assigns mesh centroids to workers by partitioning the Morton
// curve into n contiguous chunks, one per worker, in worker-id order.
type Router struct {
	sceneMin, sceneMax geom.Vector
	workerIDs          []uint32
	chunk              uint64
}

// NewRouter builds a router over the given scene bounds and worker
// ids. workerIDs is copied and used in the order given — callers
// should pass ids already sorted ascending, as §4.3 requires ("worker
// ids in id order").
func NewRouter(workerIDs []uint32, sceneMin, sceneMax geom.Vector) *Router {
	n := uint64(len(workerIDs))
	ids := append([]uint32(nil), workerIDs...)

	var chunk uint64
	if n > 0 {
		chunk = (SpaceCodeMax + 1 + n - 1) / n // ceil((SPACECODE_MAX+1) / n)
	}

	return &Router{sceneMin: sceneMin, sceneMax: sceneMax, workerIDs: ids, chunk: chunk}
}

// Route returns the worker id that should host a mesh with the given centroid.
func (r *Router) Route(centroid geom.Vector) uint32 {
	if len(r.workerIDs) == 0 {
		return 0
	}

	code := SpaceEncode(centroid, r.sceneMin, r.sceneMax)
	idx := code / r.chunk
	if idx >= uint64(len(r.workerIDs)) {
		idx = uint64(len(r.workerIDs)) - 1
	}
	return r.workerIDs[idx]
}
