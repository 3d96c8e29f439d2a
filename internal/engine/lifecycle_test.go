package engine

import (
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ogre/flexrender/internal/conn"
	"github.com/ogre/flexrender/internal/merge"
	"github.com/ogre/flexrender/internal/protocol"
	"github.com/ogre/flexrender/internal/wire"
	"github.com/ogre/flexrender/internal/xerrors"
	"github.com/stretchr/testify/require"
)

// TestTickInterestingStopsEveryQuiescentWorkerExactlyOnce covers S3:
// four workers each report max_intervals consecutive zero-activity
// stats windows, so the interesting monitor must fire exactly one
// RENDER_STOP at each of them.
func TestTickInterestingStopsEveryQuiescentWorkerExactlyOnce(t *testing.T) {
	const maxIntervals = 3

	e := &Engine{
		log:  zap.NewNop(),
		cfg:  Config{MaxIntervals: maxIntervals},
		byID: make(map[uint32]*Worker),
	}

	type endpoint struct {
		server net.Conn
		frames chan struct{}
	}
	var endpoints []endpoint

	for i := 1; i <= 4; i++ {
		client, server := net.Pipe()
		id := uint32(i)

		c := conn.New(id, client, maxIntervals, wire.DefaultCapacity)
		for k := 0; k < maxIntervals; k++ {
			c.RecordStats(protocol.StatsPayload{})
		}

		w := &Worker{ID: id, Conn: c, State: Rendering}
		e.workers = append(e.workers, w)
		e.byID[id] = w

		frames := make(chan struct{}, 4)
		go func(server net.Conn, frames chan struct{}) {
			buf := make([]byte, 4096)
			for {
				_, err := server.Read(buf)
				if err != nil {
					return
				}
				frames <- struct{}{}
			}
		}(server, frames)

		endpoints = append(endpoints, endpoint{server: server, frames: frames})
		defer client.Close()
		defer server.Close()
	}

	e.tickInteresting()

	for i, ep := range endpoints {
		select {
		case <-ep.frames:
		case <-time.After(time.Second):
			t.Fatalf("worker %d never received a stop frame", i+1)
		}
		require.Equal(t, SyncingImages, e.workers[i].State)

		select {
		case <-ep.frames:
			t.Fatalf("worker %d received more than one frame", i+1)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// TestWriteFailureAbortsRender covers §4.1/§7: a write error to any
// worker is fatal to the whole render, not just logged.
func TestWriteFailureAbortsRender(t *testing.T) {
	client, server := net.Pipe()
	require.NoError(t, server.Close())
	defer client.Close()

	c := conn.New(1, client, 3, wire.DefaultCapacity)
	w := &Worker{ID: 1, Conn: c, State: Rendering}

	e := &Engine{
		log:     zap.NewNop(),
		byID:    map[uint32]*Worker{1: w},
		workers: []*Worker{w},
		done:    make(chan struct{}),
	}

	require.NoError(t, w.Conn.SendRenderStop())
	ok := e.checkWrite(w, w.Conn.Flush())

	require.False(t, ok)
	require.True(t, e.finished)
	require.Error(t, e.err)

	var fatal *xerrors.Fatal
	require.ErrorAs(t, e.err, &fatal)
	require.Equal(t, xerrors.Transport, fatal.Kind)

	select {
	case <-e.done:
	default:
		t.Fatal("done was not closed")
	}
}

// TestHandleDisconnectDuringSyncingImagesStillFinishes covers
// SUPPLEMENTED FEATURE #6: a worker lost while SYNCING_IMAGES doesn't
// wedge finish() forever waiting on a tile that will never arrive.
func TestHandleDisconnectDuringSyncingImagesStillFinishes(t *testing.T) {
	dir := t.TempDir()

	client1, server1 := net.Pipe()
	defer client1.Close()
	defer server1.Close()
	w1 := &Worker{ID: 1, Conn: conn.New(1, client1, 3, wire.DefaultCapacity), State: Done}

	client2, server2 := net.Pipe()
	defer client2.Close()
	defer server2.Close()
	w2 := &Worker{ID: 2, Conn: conn.New(2, client2, 3, wire.DefaultCapacity), State: SyncingImages}

	e := &Engine{
		log: zap.NewNop(),
		cfg: Config{
			ImageName:   filepath.Join(dir, "out"),
			ImageWidth:  2,
			ImageHeight: 2,
			Buffers:     []string{"color"},
		},
		byID:       map[uint32]*Worker{1: w1, 2: w2},
		workers:    []*Worker{w1, w2},
		imagesDone: map[uint32]bool{1: true},
		imagesLost: map[uint32]bool{},
		accum:      merge.NewAccumulator(2, 2, []string{"color"}),
		done:       make(chan struct{}),
	}

	e.handleDisconnect(w2, io.EOF)

	require.True(t, e.imagesLost[2])
	require.Equal(t, Done, w2.State)
	require.True(t, e.finished)
	require.NoError(t, e.err)
	require.FileExists(t, filepath.Join(dir, "out.exr"))

	select {
	case <-e.done:
	default:
		t.Fatal("done was not closed")
	}
}
