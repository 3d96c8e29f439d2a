package morton

import (
	"testing"

	"github.com/ogre/flexrender/pkg/geom"
	"github.com/stretchr/testify/require"
)

func TestSpaceEncodeIsPureAndStable(t *testing.T) {
	min := geom.Vector{X: -10, Y: -10, Z: -10}
	max := geom.Vector{X: 10, Y: 10, Z: 10}
	c := geom.Vector{X: 1, Y: 2, Z: 3}

	a := SpaceEncode(c, min, max)
	b := SpaceEncode(c, min, max)
	require.Equal(t, a, b)

	origin := SpaceEncode(geom.Vector{}, min, max)
	require.Equal(t, uint64(0), SpaceEncode(min, min, min)) // degenerate box clamps to 0
	require.NotEqual(t, origin, SpaceEncode(max, min, max))
}

func TestRouterPartitionS5(t *testing.T) {
	// S5: 3 meshes with codes 10, 900, SpaceCodeMax, 2 workers.
	// chunk = ceil((SpaceCodeMax+1)/2), so codes 10 and 900 land in
	// worker 1's chunk and SpaceCodeMax lands in worker 2's.
	ids := []uint32{1, 2}
	r := &Router{workerIDs: ids, chunk: (SpaceCodeMax + 1 + 1) / 2}

	classify := func(code uint64) uint32 {
		idx := code / r.chunk
		if idx >= uint64(len(r.workerIDs)) {
			idx = uint64(len(r.workerIDs)) - 1
		}
		return r.workerIDs[idx]
	}

	require.Equal(t, uint32(1), classify(10))
	require.Equal(t, uint32(1), classify(900))
	require.Equal(t, uint32(2), classify(SpaceCodeMax))
}

func TestRouterStableAssignmentSameCentroid(t *testing.T) {
	min := geom.Vector{X: 0, Y: 0, Z: 0}
	max := geom.Vector{X: 100, Y: 100, Z: 100}
	r := NewRouter([]uint32{1, 2, 3, 4}, min, max)

	c := geom.Vector{X: 42, Y: 17, Z: 63}
	first := r.Route(c)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, r.Route(c))
	}
}

func TestRouterDiagonalReachesFirstAndLastWorkers(t *testing.T) {
	min := geom.Vector{X: 0, Y: 0, Z: 0}
	max := geom.Vector{X: 1, Y: 1, Z: 1}
	ids := []uint32{1, 2, 3}
	r := NewRouter(ids, min, max)

	seen := map[uint32]bool{}
	for i := 0; i <= 20; i++ {
		t := float64(i) / 20.0
		c := geom.Vector{X: t, Y: t, Z: t}
		seen[r.Route(c)] = true
	}
	require.True(t, seen[1])
	require.True(t, seen[3])
}
