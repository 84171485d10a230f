package playback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSamplesDecodesLittleEndian(t *testing.T) {
	require.Equal(t, []int16{1, -1, 32767}, Samples([]byte{0x01, 0x00, 0xff, 0xff, 0xff, 0x7f, 0x09}))
	require.Empty(t, Samples(nil))
}

func TestPlayEmptyBufferIsNoop(t *testing.T) {
	require.NoError(t, Pulse{}.Play(context.Background(), nil, 24000))
}

func TestPlayCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Pulse{}.Play(ctx, []byte{1, 0}, 24000), context.Canceled)
}

func TestPlayFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/edupal-missing-pulse-server")
	require.Error(t, Pulse{}.Play(context.Background(), []byte{1, 0}, 24000))
}
