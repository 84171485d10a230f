package audio

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChunkBytes(t *testing.T) {
	require.Equal(t, 8000, ChunkBytes(250*time.Millisecond))
	require.Equal(t, 640, ChunkBytes(20*time.Millisecond))
	require.Equal(t, BytesPerSample, ChunkBytes(0))
}

func TestCaptureWriteChunksAndStopFlushesPending(t *testing.T) {
	c := newCapture(Device{ID: "mic"}, 640)

	input := make([]byte, 640+111)
	for i := range input {
		input[i] = byte(i % 251)
	}

	n, err := c.write(input)
	require.NoError(t, err)
	require.Equal(t, len(input), n)
	require.Equal(t, int64(len(input)), c.BytesCaptured())

	first := <-c.Chunks()
	require.Equal(t, input[:640], first)

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())

	rest, ok := <-c.Chunks()
	require.True(t, ok)
	require.Equal(t, input[640:], rest)

	_, ok = <-c.Chunks()
	require.False(t, ok)
}

func TestCaptureWriteAfterStopReturnsEOF(t *testing.T) {
	c := newCapture(Device{ID: "mic"}, 640)
	require.NoError(t, c.Stop())

	n, err := c.write([]byte{1, 2, 3})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, c.BytesCaptured())
	require.Equal(t, "mic", c.Device().ID)
}
