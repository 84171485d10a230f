// Package pipeline wires microphone capture to the transcription channel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subham2006/mentora/internal/audio"
	"github.com/subham2006/mentora/internal/config"
	"github.com/subham2006/mentora/internal/session"
	"github.com/subham2006/mentora/internal/transcription"
)

var errAlreadyStarted = errors.New("recorder already started")

type source interface {
	Chunks() <-chan []byte
	Stop() error
	BytesCaptured() int64
}

type stream interface {
	Events() <-chan transcription.Event
	Send([]byte) error
	Close() error
}

// Recorder is the live session.Recorder: Pulse capture forwarded to a
// transcription channel chunk by chunk.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	startCapture func(context.Context, audio.Device, time.Duration) (source, error)
	dial         func(context.Context, transcription.Config, *slog.Logger) (stream, error)

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   source
	channel   stream
	forwarded chan struct{}

	sent    atomic.Int64
	dropped atomic.Int64
}

// NewRecorder builds a recorder from runtime config.
func NewRecorder(cfg config.Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, d audio.Device, interval time.Duration) (source, error) {
			return audio.StartCapture(ctx, d, interval)
		},
		dial: func(ctx context.Context, c transcription.Config, l *slog.Logger) (stream, error) {
			return transcription.Dial(ctx, c, l)
		},
	}
}

var _ session.Recorder = (*Recorder)(nil)

// Start selects the microphone, opens the channel, then starts capture.
func (r *Recorder) Start(ctx context.Context) (<-chan transcription.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, errAlreadyStarted
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && r.logger != nil {
		r.logger.Warn(selection.Warning)
	}

	channel, err := r.dial(ctx, r.channelConfig(), r.logger)
	if err != nil {
		return nil, err
	}

	// Capture must outlive the caller's request context.
	capture, err := r.startCapture(context.WithoutCancel(ctx), selection.Device, r.interval())
	if err != nil {
		_ = channel.Close()
		return nil, err
	}

	r.started = true
	r.selection = selection
	r.capture = capture
	r.channel = channel
	r.forwarded = make(chan struct{})
	r.sent.Store(0)
	r.dropped.Store(0)

	go r.forward(capture, r.forwarded)
	return channel.Events(), nil
}

// Reopen replaces the channel after an unexpected close. Capture keeps running.
func (r *Recorder) Reopen(ctx context.Context) (<-chan transcription.Event, error) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return nil, session.ErrNotRecording
	}

	next, err := r.dial(ctx, r.channelConfig(), r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	prev := r.channel
	r.channel = next
	r.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return next.Events(), nil
}

// Stop halts capture, waits for the last chunk to be forwarded, then closes the channel.
func (r *Recorder) Stop(ctx context.Context) (session.StopResult, error) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return session.StopResult{}, session.ErrNotRecording
	}
	capture := r.capture
	forwarded := r.forwarded
	selection := r.selection
	r.mu.Unlock()

	_ = capture.Stop()

	select {
	case <-forwarded:
	case <-ctx.Done():
		r.logWarn("stop did not wait for audio forwarding", "error", ctx.Err().Error())
	}

	r.mu.Lock()
	channel := r.channel
	r.started = false
	r.capture = nil
	r.channel = nil
	r.mu.Unlock()

	closeErr := channel.Close()

	result := session.StopResult{
		AudioDevice:   describeDevice(selection.Device),
		BytesCaptured: capture.BytesCaptured(),
		ChunksSent:    r.sent.Load(),
		ChunksDropped: r.dropped.Load(),
	}
	if closeErr != nil {
		return result, closeErr
	}
	return result, nil
}

// forward sends every capture chunk to whichever channel is current.
func (r *Recorder) forward(capture source, done chan<- struct{}) {
	defer close(done)

	warned := false
	for chunk := range capture.Chunks() {
		if len(chunk) == 0 {
			continue
		}

		r.mu.Lock()
		channel := r.channel
		r.mu.Unlock()
		if channel == nil {
			r.dropped.Add(1)
			continue
		}

		if err := channel.Send(chunk); err != nil {
			r.dropped.Add(1)
			if !warned {
				r.logWarn("audio chunk not delivered", "error", err.Error())
				warned = true
			}
			continue
		}
		r.sent.Add(1)
	}
}

func (r *Recorder) channelConfig() transcription.Config {
	return transcription.Config{
		URL:         r.cfg.Transcription.URL,
		APIKey:      r.cfg.Credentials.TranscriptionKey,
		Model:       r.cfg.Transcription.Model,
		Language:    r.cfg.Transcription.Language,
		Sentiment:   r.cfg.Transcription.Sentiment,
		SampleRate:  audio.SampleRate,
		DialTimeout: time.Duration(r.cfg.Transcription.DialTimeoutMS) * time.Millisecond,
	}
}

func (r *Recorder) interval() time.Duration {
	return time.Duration(r.cfg.Audio.ChunkIntervalMS) * time.Millisecond
}

func (r *Recorder) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
