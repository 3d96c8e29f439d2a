package asset

import (
	"testing"
	"time"

	"github.com/ogre/flexrender/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestEmitBlocksUntilConsumed(t *testing.T) {
	s := NewStreamer()
	emitted := make(chan uint32, 2)

	go func() {
		emitted <- s.Emit(protocol.MeshPayload{})
		emitted <- s.Emit(protocol.MeshPayload{})
		s.Close()
	}()

	require.Equal(t, uint32(1), <-emitted)

	// The second Emit cannot have completed yet: capacity is 1 and
	// nobody has drained the first item.
	select {
	case <-emitted:
		t.Fatal("second Emit returned before the first mesh was consumed")
	case <-time.After(20 * time.Millisecond):
	}

	first := <-s.Chan()
	require.Equal(t, uint32(1), first.ID)

	second := <-s.Chan()
	require.Equal(t, uint32(2), second.ID)

	_, ok := <-s.Chan()
	require.False(t, ok, "channel should be closed after Close")
}
