package conn

import (
	"net"
	"testing"
	"time"

	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestSendConfigThenFlushDeliversFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := New(1, client, 3, wire.DefaultCapacity)

	go func() {
		require.NoError(t, c.SendConfig(protocol.ConfigPayload{ImageWidth: 640, ImageHeight: 480}))
		require.NoError(t, c.Flush())
	}()

	events := make(chan Event, 4)
	serverConn := New(1, server, 3, wire.DefaultCapacity)
	go serverConn.ReadLoop(events)

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
		require.Equal(t, wire.SyncConfig, ev.Message.Kind)
		p, err := protocol.DecodeConfig(ev.Message.Body)
		require.NoError(t, err)
		require.Equal(t, uint32(640), p.ImageWidth)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestReadLoopReportsDisconnect(t *testing.T) {
	client, server := net.Pipe()
	c := New(2, server, 3, wire.DefaultCapacity)

	events := make(chan Event, 1)
	go c.ReadLoop(events)

	require.NoError(t, client.Close())

	select {
	case ev := <-events:
		require.Error(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for disconnect event")
	}
}

func TestStatsAndProgressAccumulate(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := New(1, client, 2, wire.DefaultCapacity)
	c.RecordStats(protocol.StatsPayload{Produced: 10, Progress: 0.1})
	c.RecordStats(protocol.StatsPayload{Produced: 0, Killed: 0, Queued: 0, Progress: 0.2})

	require.Equal(t, float32(0.2), c.Progress())
	require.True(t, c.IsInteresting(2), "one nonzero sample within the window is enough")

	c.RecordStats(protocol.StatsPayload{Progress: 0.2})
	require.False(t, c.IsInteresting(2), "window is now all zero-activity samples")
}

func TestFlushTracksTickState(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := New(1, client, 2, wire.DefaultCapacity)
	require.False(t, c.FlushedThisTick())
	require.NoError(t, c.SendRenderStop())

	done := make(chan error, 1)
	go func() { done <- c.Flush() }()
	buf := make([]byte, wire.HeaderSize)
	_, err := server.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.True(t, c.FlushedThisTick())
	c.ResetTick()
	require.False(t, c.FlushedThisTick())
}
