package library

import (
	"testing"

	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/pkg/geom"
	"github.com/stretchr/testify/require"
)

func TestStoreMaterialUpdatesNameIndex(t *testing.T) {
	lib := New(geom.Vector{}, geom.Vector{X: 1, Y: 1, Z: 1})
	lib.StoreMaterial(1, protocol.MaterialPayload{Name: "glass"})

	id, ok := lib.MaterialIDByName("glass")
	require.True(t, ok)
	require.Equal(t, uint32(1), id)
}

func TestStoreMeshAppendsEmissiveIndexOnce(t *testing.T) {
	lib := New(geom.Vector{}, geom.Vector{X: 1, Y: 1, Z: 1})
	lib.StoreMaterial(1, protocol.MaterialPayload{Name: "lamp", Emissive: true})
	lib.StoreMesh(1, protocol.MeshPayload{MaterialID: 1})

	require.Equal(t, []uint32{1}, lib.EmissiveMeshIDs())
	require.True(t, lib.IsEmissiveMesh(1))

	// Releasing the mesh does not retract emissive membership (§9).
	lib.ReleaseMesh(1)
	require.Equal(t, []uint32{1}, lib.EmissiveMeshIDs())
	require.True(t, lib.IsEmissiveMesh(1))
	require.Nil(t, lib.Meshes.Lookup(1))
}

func TestRouteMeshRequiresRegisteredWorkers(t *testing.T) {
	lib := New(geom.Vector{}, geom.Vector{X: 100, Y: 100, Z: 100})
	require.Equal(t, uint32(0), lib.RouteMesh(geom.Vector{X: 1, Y: 1, Z: 1}))

	lib.RegisterWorkerIDs([]uint32{2, 1, 3})
	require.Equal(t, []uint32{1, 2, 3}, lib.WorkerIDs())

	id := lib.RouteMesh(geom.Vector{X: 1, Y: 1, Z: 1})
	require.Contains(t, []uint32{1, 2, 3}, id)
}

func TestEmissiveWorkerIDsReflectsMarkedHosts(t *testing.T) {
	lib := New(geom.Vector{}, geom.Vector{X: 1, Y: 1, Z: 1})
	lib.MarkEmissiveHost(2)
	lib.MarkEmissiveHost(2)
	lib.MarkEmissiveHost(5)

	got := lib.EmissiveWorkerIDs()
	require.ElementsMatch(t, []uint32{2, 5}, got)
}
