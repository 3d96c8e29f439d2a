package bvh

import (
	"testing"

	"github.com/ogre/flexrender/pkg/geom"
	"github.com/stretchr/testify/require"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float64) geom.Box {
	return geom.Box{
		MinCorner: geom.Vector{X: minX, Y: minY, Z: minZ},
		MaxCorner: geom.Vector{X: maxX, Y: maxY, Z: maxZ},
	}
}

func TestBuildSingleEntryIsALeaf(t *testing.T) {
	entries := []Entry{{WorkerID: 1, Box: box(0, 0, 0, 1, 1, 1)}}
	payload := Build(entries)

	require.Len(t, payload.Nodes, 1)
	require.Equal(t, uint32(1), payload.Nodes[0].WorkerID)
	require.Equal(t, int32(-1), payload.Nodes[0].Left)
	require.Equal(t, int32(-1), payload.Nodes[0].Right)
}

func TestBuildEveryWorkerReachableAsALeaf(t *testing.T) {
	entries := []Entry{
		{WorkerID: 1, Box: box(0, 0, 0, 1, 1, 1)},
		{WorkerID: 2, Box: box(10, 0, 0, 11, 1, 1)},
		{WorkerID: 3, Box: box(0, 10, 0, 1, 11, 1)},
		{WorkerID: 4, Box: box(0, 0, 10, 1, 1, 11)},
	}
	payload := Build(entries)

	leaves := map[uint32]bool{}
	interior := 0
	for _, n := range payload.Nodes {
		if n.Left == -1 && n.Right == -1 {
			leaves[n.WorkerID] = true
		} else {
			interior++
		}
	}

	require.Len(t, leaves, 4)
	for _, e := range entries {
		require.True(t, leaves[e.WorkerID])
	}
	require.Equal(t, len(entries)-1, interior)
}

func TestBuildEmpty(t *testing.T) {
	payload := Build(nil)
	require.Empty(t, payload.Nodes)
}
