package wire

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReassemblerRoundTrip(t *testing.T) {
	msgs := []Message{
		{Kind: Init, Body: []byte{1, 2, 3, 4}},
		{Kind: OK, Body: nil},
		{Kind: SyncMesh, Body: bytes.Repeat([]byte{0xAB}, 300)},
		{Kind: RenderStats, Body: []byte{9}},
	}

	var wire []byte
	for _, m := range msgs {
		wire = m.Encode(wire)
	}

	var got []Message
	r := NewReassembler()
	r.Feed(wire, func(m Message) {
		body := append([]byte(nil), m.Body...)
		got = append(got, Message{Kind: m.Kind, Body: body})
	})

	require.Equal(t, msgs, got)
}

func TestReassemblerArbitrarySplit(t *testing.T) {
	msgs := []Message{
		{Kind: SyncCamera, Body: []byte("camera-payload")},
		{Kind: SyncMaterial, Body: []byte{}},
		{Kind: SyncImage, Body: bytes.Repeat([]byte{0x7F}, 1029)},
	}

	var wire []byte
	for _, m := range msgs {
		wire = m.Encode(wire)
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		var got []Message
		r := NewReassembler()

		remaining := wire
		for len(remaining) > 0 {
			n := 1 + rng.Intn(len(remaining))
			chunk := remaining[:n]
			remaining = remaining[n:]

			r.Feed(chunk, func(m Message) {
				body := append([]byte(nil), m.Body...)
				got = append(got, Message{Kind: m.Kind, Body: body})
			})
		}

		require.Len(t, got, len(msgs))
		for i, m := range msgs {
			require.Equal(t, m.Kind, got[i].Kind)
			if len(m.Body) == 0 {
				require.Empty(t, got[i].Body)
			} else {
				require.Equal(t, m.Body, got[i].Body)
			}
		}
	}
}

func TestReassemblerSingleByteChunks(t *testing.T) {
	// S6: sender fragments to 1-byte writes, receiver reads in 7-byte chunks.
	msgs := []Message{
		{Kind: BuildBVH, Body: nil},
		{Kind: SyncWBVH, Body: bytes.Repeat([]byte{0x01, 0x02}, 50)},
		{Kind: RenderStart, Body: []byte{1, 0, 0, 0}},
	}

	// A capacity-1 write buffer flushes every byte as its own write.
	var sent bytes.Buffer
	wb := NewWriteBuffer(&sent, 1)
	for _, m := range msgs {
		require.NoError(t, wb.Send(m))
	}
	require.NoError(t, wb.Flush())
	wire := sent.Bytes()

	var got []Message
	r := NewReassembler()
	for i := 0; i < len(wire); i += 7 {
		end := min(i+7, len(wire))
		r.Feed(wire[i:end], func(m Message) {
			body := append([]byte(nil), m.Body...)
			got = append(got, Message{Kind: m.Kind, Body: body})
		})
	}

	require.Len(t, got, len(msgs))
	for i, m := range msgs {
		require.Equal(t, m.Kind, got[i].Kind)
		require.Equal(t, m.Body, got[i].Body)
	}
}

func TestWriteBufferFlushesOnOverflowAndChunksLargeBodies(t *testing.T) {
	dst := &bytes.Buffer{}
	wb := NewWriteBuffer(dst, 16)

	small := Message{Kind: OK, Body: nil}
	require.NoError(t, wb.Send(small))
	require.Equal(t, HeaderSize, wb.Len())
	require.Equal(t, 0, dst.Len())

	big := Message{Kind: SyncMesh, Body: bytes.Repeat([]byte{0x55}, 100)}
	require.NoError(t, wb.Send(big))

	require.NoError(t, wb.Flush())

	var got []Message
	r := NewReassembler()
	r.Feed(dst.Bytes(), func(m Message) {
		body := append([]byte(nil), m.Body...)
		got = append(got, Message{Kind: m.Kind, Body: body})
	})

	require.Len(t, got, 2)
	require.Equal(t, small.Kind, got[0].Kind)
	require.Equal(t, big.Body, got[1].Body)
}
