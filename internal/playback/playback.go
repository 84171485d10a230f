// Package playback plays fully buffered PCM on the default PulseAudio sink.
package playback

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/jfreymuth/pulse"

	"github.com/subham2006/mentora/internal/audio"
)

// Player plays one contiguous mono s16le buffer and returns after the sink drained it.
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// Pulse is the live Player.
type Pulse struct {
	MediaName string
}

// Play blocks until the device reports the buffer fully played.
func (p Pulse) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	return p.PlaySamples(ctx, Samples(pcm), sampleRate)
}

// PlaySamples plays decoded samples.
func (p Pulse) PlaySamples(ctx context.Context, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := audio.Connect("audio-speakers")
	if err != nil {
		return err
	}
	defer client.Close()

	name := p.MediaName
	if name == "" {
		name = "edupal speech"
	}

	stream, err := client.NewPlayback(
		sampleReader(samples),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(name),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play pulse stream: %w", err)
	}
	return nil
}

// Samples decodes little-endian s16 PCM. A trailing odd byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return out
}

func sampleReader(samples []int16) pulse.Reader {
	cursor := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})
}
