package session

import (
	"context"

	"github.com/subham2006/mentora/internal/analysis"
	"github.com/subham2006/mentora/internal/character"
)

// Indicator plays audible lifecycle cues.
type Indicator interface {
	CueStart(context.Context)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
}

// Analyzer receives the finished session's transcript and whiteboard image.
type Analyzer interface {
	Submit(context.Context, analysis.Payload) (analysis.Response, error)
}

// Speaker plays one reply at a time.
type Speaker interface {
	Speak(ctx context.Context, text string, voiceID string) error
}

// CharacterSource reports the character currently selected in the UI.
type CharacterSource interface {
	Current() character.Character
}

type noopIndicator struct{}

func (noopIndicator) CueStart(context.Context)    {}
func (noopIndicator) CueStop(context.Context)     {}
func (noopIndicator) CueComplete(context.Context) {}
func (noopIndicator) CueCancel(context.Context)   {}

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, string, string) error { return nil }

type noopAnalyzer struct{}

func (noopAnalyzer) Submit(context.Context, analysis.Payload) (analysis.Response, error) {
	return analysis.Response{}, nil
}
