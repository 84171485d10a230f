// Package audio discovers PulseAudio sources and streams microphone PCM.
package audio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// Capture format delivered to the transcription channel.
const (
	SampleRate     = 16000
	BytesPerSample = 2
)

// AppName is reported to the Pulse server for every stream edupal opens.
const AppName = "edupal"

// Connect opens a Pulse client tagged with the edupal application name.
func Connect(icon string) (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(AppName),
		pulse.ClientApplicationIconName(icon),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}
