// Package indicator plays the audible session cues.
package indicator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/subham2006/mentora/internal/config"
)

type cue int

const (
	cueStart cue = iota + 1
	cueStop
	cueComplete
	cueCancel
)

func (c cue) String() string {
	switch c {
	case cueStart:
		return "start"
	case cueStop:
		return "stop"
	case cueComplete:
		return "complete"
	case cueCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

const fileCueTimeout = 4 * time.Second

// TonePlayer renders synthesized cue samples.
type TonePlayer interface {
	PlaySamples(ctx context.Context, samples []int16, sampleRate int) error
}

// Cues plays a sound file per cue when one is configured, and a built-in
// chime otherwise. Playback is asynchronous and serialized.
type Cues struct {
	cfg    config.IndicatorConfig
	tones  TonePlayer
	logger *slog.Logger

	// runFile plays path with argv; replaced in tests.
	runFile func(ctx context.Context, argv []string, path string) error

	mu      sync.Mutex
	pending sync.WaitGroup
}

// NewCues builds the cue player.
func NewCues(cfg config.IndicatorConfig, tones TonePlayer, logger *slog.Logger) *Cues {
	return &Cues{
		cfg:     cfg,
		tones:   tones,
		logger:  logger,
		runFile: runPlayer,
	}
}

func (c *Cues) CueStart(ctx context.Context)    { c.play(ctx, cueStart) }
func (c *Cues) CueStop(ctx context.Context)     { c.play(ctx, cueStop) }
func (c *Cues) CueComplete(ctx context.Context) { c.play(ctx, cueComplete) }
func (c *Cues) CueCancel(ctx context.Context)   { c.play(ctx, cueCancel) }

// Wait blocks until queued cues have played.
func (c *Cues) Wait() {
	c.pending.Wait()
}

func (c *Cues) play(ctx context.Context, kind cue) {
	if !c.cfg.SoundEnable {
		return
	}
	ctx = context.WithoutCancel(ctx)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.emit(ctx, kind); err != nil && c.logger != nil {
			c.logger.Debug("indicator cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

// emit prefers the configured file and falls back to the chime.
func (c *Cues) emit(ctx context.Context, kind cue) error {
	var fileErr error
	if path := c.filePath(kind); path != "" {
		fileErr = c.playFile(ctx, path)
		if fileErr == nil {
			return nil
		}
	}

	samples := chimeFor(kind).render()
	if len(samples) == 0 || c.tones == nil {
		return fileErr
	}
	if err := c.tones.PlaySamples(ctx, samples, toneRate); err != nil {
		return errors.Join(fileErr, err)
	}
	return nil
}

func (c *Cues) filePath(kind cue) string {
	var raw string
	switch kind {
	case cueStart:
		raw = c.cfg.SoundStartFile
	case cueStop:
		raw = c.cfg.SoundStopFile
	case cueComplete:
		raw = c.cfg.SoundCompleteFile
	case cueCancel:
		raw = c.cfg.SoundCancelFile
	}
	return config.ExpandUserPath(raw)
}

func (c *Cues) playFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	argv := c.cfg.PlayerCmd.Argv
	if len(argv) == 0 {
		argv = []string{"pw-play", "--media-role", "Notification"}
	}

	ctx, cancel := context.WithTimeout(ctx, fileCueTimeout)
	defer cancel()
	if err := c.runFile(ctx, argv, path); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

func runPlayer(ctx context.Context, argv []string, path string) error {
	args := append(append([]string(nil), argv[1:]...), path)
	return exec.CommandContext(ctx, argv[0], args...).Run()
}

func chimeFor(kind cue) chime {
	switch kind {
	case cueStart:
		return startChime
	case cueStop:
		return stopChime
	case cueComplete:
		return completeChime
	case cueCancel:
		return cancelChime
	default:
		return chime{}
	}
}
