package session

import (
	"context"
	"errors"

	"github.com/subham2006/mentora/internal/transcription"
)

var (
	// ErrRecorderUnavailable indicates no capture pipeline was wired.
	ErrRecorderUnavailable = errors.New("audio capture pipeline not configured")
	// ErrNotRecording is returned by Stop when no session is active.
	ErrNotRecording = errors.New("not recording")
)

// StopResult describes the capture side of one finished session.
type StopResult struct {
	AudioDevice   string
	BytesCaptured int64
	ChunksSent    int64
	ChunksDropped int64
}

// Recorder owns one capture source and its transcription channel.
//
// Stop halts capture before closing the channel. The events channel returned
// by Start or Reopen keeps delivering the service's final results after Stop
// and is closed once the channel has fully shut down.
type Recorder interface {
	Start(context.Context) (<-chan transcription.Event, error)
	Reopen(context.Context) (<-chan transcription.Event, error)
	Stop(context.Context) (StopResult, error)
}

type unavailableRecorder struct{}

func (unavailableRecorder) Start(context.Context) (<-chan transcription.Event, error) {
	return nil, ErrRecorderUnavailable
}

func (unavailableRecorder) Reopen(context.Context) (<-chan transcription.Event, error) {
	return nil, ErrRecorderUnavailable
}

func (unavailableRecorder) Stop(context.Context) (StopResult, error) {
	return StopResult{}, ErrRecorderUnavailable
}
