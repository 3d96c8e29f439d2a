// Package bvh builds the worker-level BVH (WBVH) shipped to every
// worker after fence #3 (§4.4): a binary tree over each worker's
// locally-built bounding box, used by workers to forward rays that
// leave their partition.
package bvh

import (
	"sort"

	"github.com/mwindels/rtreego"
	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/pkg/geom"
)

// boundEpsilon is the smallest extent an R-tree rectangle is allowed
// in any dimension, matching the teacher's own convention for
// degenerate (flat) bounding boxes.
const boundEpsilon = 0.0001

// Entry is one row of the worker-bounds table: a worker's id and the
// bounding box of the geometry it holds locally.
type Entry struct {
	WorkerID uint32
	Box      geom.Box
}

// spatialEntry adapts Entry to rtreego.Spatial, the same pattern the
// teacher uses to index mesh faces (shared/state/mesh.go).
type spatialEntry struct {
	entry Entry
}

func (s spatialEntry) Bounds() *rtreego.Rect {
	lengths := s.entry.Box.Lengths()
	rect, err := rtreego.NewRect(
		rtreego.Point{s.entry.Box.MinCorner.X, s.entry.Box.MinCorner.Y, s.entry.Box.MinCorner.Z},
		[]float64{
			max(lengths.X, boundEpsilon),
			max(lengths.Y, boundEpsilon),
			max(lengths.Z, boundEpsilon),
		},
	)
	if err != nil {
		panic(err)
	}
	return rect
}

// Build constructs the WBVH from the worker-bounds table. Entries are
// first indexed in an R-tree — the same structure the teacher uses to
// index mesh geometry — purely to obtain a spatially-coherent visiting
// order; that order is then recursively split on its longest axis at
// the median to build the binary tree actually shipped over the wire.
// rtreego's own node topology is never serialized (nor is the
// teacher's, which always re-derives its tree from a flat list of
// primitives on the receiving end); only leaf-level (id, box) pairs
// and this function's own split tree cross the wire.
func Build(entries []Entry) protocol.WBVHPayload {
	if len(entries) == 0 {
		return protocol.WBVHPayload{}
	}

	tree := rtreego.NewTree(3, 2, 5)
	for _, e := range entries {
		tree.Insert(spatialEntry{entry: e})
	}

	ordered := make([]Entry, 0, len(entries))
	for _, s := range tree.SearchCondition(func(*rtreego.Rect) bool { return true }) {
		ordered = append(ordered, s.(spatialEntry).entry)
	}

	var nodes []protocol.WBVHNode
	buildRange(ordered, &nodes)
	return protocol.WBVHPayload{Nodes: nodes}
}

// buildRange recursively splits entries on their combined bounding
// box's longest axis at the median, appending nodes depth-first and
// returning the index of the node it just appended.
func buildRange(entries []Entry, nodes *[]protocol.WBVHNode) int32 {
	bounds := entries[0].Box
	for _, e := range entries[1:] {
		bounds = bounds.Union(e.Box)
	}

	if len(entries) == 1 {
		idx := int32(len(*nodes))
		*nodes = append(*nodes, protocol.WBVHNode{
			Min:      bounds.MinCorner,
			Max:      bounds.MaxCorner,
			WorkerID: entries[0].WorkerID,
			Left:     -1,
			Right:    -1,
		})
		return idx
	}

	axis := longestAxis(bounds)
	sort.Slice(entries, func(i, j int) bool {
		return axisValue(entries[i].Box.Center(), axis) < axisValue(entries[j].Box.Center(), axis)
	})

	idx := int32(len(*nodes))
	*nodes = append(*nodes, protocol.WBVHNode{Min: bounds.MinCorner, Max: bounds.MaxCorner, WorkerID: 0, Left: -1, Right: -1})

	mid := len(entries) / 2
	left := buildRange(entries[:mid], nodes)
	right := buildRange(entries[mid:], nodes)
	(*nodes)[idx].Left = left
	(*nodes)[idx].Right = right

	return idx
}

func longestAxis(b geom.Box) int {
	lengths := b.Lengths()
	switch {
	case lengths.X >= lengths.Y && lengths.X >= lengths.Z:
		return 0
	case lengths.Y >= lengths.Z:
		return 1
	default:
		return 2
	}
}

func axisValue(v geom.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
