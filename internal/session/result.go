package session

import (
	"time"

	"github.com/subham2006/mentora/internal/fsm"
	"github.com/subham2006/mentora/internal/transcription"
)

// Result is the outcome of one Start or Stop request, or of an aborted session.
type Result struct {
	SessionID string
	State     fsm.State

	// AlreadyRecording is set when Start found a session in progress.
	AlreadyRecording bool
	// NotRecording is set when Stop found nothing to stop.
	NotRecording bool
	// Aborted is set on the first Stop after the channel failed and the
	// session was discarded; Err carries the cause.
	Aborted bool

	Transcript   string
	Sentiment    transcription.Sentiment
	HasImage     bool
	Submitted    bool
	TurnAppended bool
	Capture      StopResult

	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Snapshot is the observable controller state.
type Snapshot struct {
	State      fsm.State
	SessionID  string
	Transcript string
	Sentiment  transcription.Sentiment
	Reconnects int
	// LastError describes the most recent start failure or abort.
	LastError string
}
