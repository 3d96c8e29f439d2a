package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionImageEvenSplit(t *testing.T) {
	require.Equal(t, Partition{Offset: 0, Chunk: 320}, PartitionImage(640, 2, 1))
	require.Equal(t, Partition{Offset: 320, Chunk: 320}, PartitionImage(640, 2, 2))
}

func TestPartitionImageRemainderGoesToLastWorker(t *testing.T) {
	require.Equal(t, Partition{Offset: 0, Chunk: 213}, PartitionImage(641, 3, 1))
	require.Equal(t, Partition{Offset: 213, Chunk: 213}, PartitionImage(641, 3, 2))
	require.Equal(t, Partition{Offset: 426, Chunk: 215}, PartitionImage(641, 3, 3))
}
