// Package voice owns the single playback slot: synthesis followed by
// device playback, one utterance at a time.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/subham2006/mentora/internal/playback"
	"github.com/subham2006/mentora/internal/synthesis"
)

// State is the observable playback state.
type State struct {
	Speaking      bool
	DisplayedText string
}

// Synthesizer produces a complete utterance before playback starts.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice synthesis.Voice) (synthesis.Audio, error)
}

// Speaker serialises Speak calls so at most one utterance is ever active.
type Speaker struct {
	synth  Synthesizer
	player playback.Player
	logger *slog.Logger

	slot chan struct{}

	mu        sync.RWMutex
	state     State
	observers []func(State)
}

// NewSpeaker wires a synthesizer to a player.
func NewSpeaker(synth Synthesizer, player playback.Player, logger *slog.Logger) *Speaker {
	return &Speaker{
		synth:  synth,
		player: player,
		logger: logger,
		slot:   make(chan struct{}, 1),
	}
}

// Subscribe registers fn to receive every state change. fn runs on the
// speaking goroutine and must not call Speak.
func (s *Speaker) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// State returns the current playback state.
func (s *Speaker) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Speak waits for the slot, then synthesises all of text and plays it.
// Speaking flips to true once and back to false once, after the device
// finished or any step failed.
func (s *Speaker) Speak(ctx context.Context, text string, voiceID string) error {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slot }()

	s.set(State{Speaking: true, DisplayedText: text})
	defer s.set(State{})

	audio, err := s.synth.Synthesize(ctx, text, synthesis.Voice{ID: voiceID})
	if err != nil {
		return fmt.Errorf("synthesize reply: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("playing reply", "voice", voiceID, "duration_ms", audio.Duration().Milliseconds())
	}
	if err := s.player.Play(ctx, audio.PCM, audio.SampleRate); err != nil {
		return fmt.Errorf("play reply: %w", err)
	}
	return nil
}

func (s *Speaker) set(next State) {
	s.mu.Lock()
	s.state = next
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}
