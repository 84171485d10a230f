// Package session owns the recording lifecycle: start, live transcript
// accumulation, stop with whiteboard submission and turn logging, and the
// reply that follows.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/subham2006/mentora/internal/analysis"
	"github.com/subham2006/mentora/internal/conversation"
	"github.com/subham2006/mentora/internal/fsm"
	"github.com/subham2006/mentora/internal/reply"
	"github.com/subham2006/mentora/internal/transcript"
	"github.com/subham2006/mentora/internal/transcription"
	"github.com/subham2006/mentora/internal/whiteboard"
)

var (
	// ErrControllerStopped is returned for requests made after Run exited.
	ErrControllerStopped = errors.New("session controller is not running")
	// ErrChannelLost is the abort cause once reconnects are exhausted.
	ErrChannelLost = errors.New("transcription channel closed unexpectedly")
)

const stopTimeout = 10 * time.Second

// Options wires the controller's collaborators. Only Recorder is required
// for a useful controller; every other field has a no-op default.
type Options struct {
	Recorder   Recorder
	Surface    whiteboard.Surface
	Analyzer   Analyzer
	Log        *conversation.Log
	Responder  reply.Responder
	Speaker    Speaker
	Characters CharacterSource
	Indicator  Indicator
	Logger     *slog.Logger

	MaxReconnects      int
	ReconnectBackoff   time.Duration
	SubmitWithoutImage bool
	LogAssistant       bool
}

type requestKind int

const (
	requestStart requestKind = iota + 1
	requestStop
	requestToggle
)

type request struct {
	kind  requestKind
	ctx   context.Context
	reply chan Result
}

// recording is the loop-owned state of the active session.
type recording struct {
	id         string
	text       transcript.Accumulator
	sentiment  transcription.Sentiment
	startedAt  time.Time
	reconnects int
}

// Controller serialises every lifecycle request and channel event through
// one loop goroutine (Run). Session state is only touched from that loop.
type Controller struct {
	opts Options

	requests chan request
	done     chan struct{}

	// loop-owned
	active *recording
	events <-chan transcription.Event
	// aborted is reported to the next Stop after a session was discarded.
	aborted *Result

	mu        sync.RWMutex
	snapshot  Snapshot
	observers []func(Snapshot)

	replies sync.WaitGroup
}

// NewController applies defaults to opts.
func NewController(opts Options) *Controller {
	if opts.Recorder == nil {
		opts.Recorder = unavailableRecorder{}
	}
	if opts.Surface == nil {
		opts.Surface = whiteboard.FileSurface{}
	}
	if opts.Analyzer == nil {
		opts.Analyzer = noopAnalyzer{}
	}
	if opts.Log == nil {
		opts.Log = conversation.NewLog(nil)
	}
	if opts.Responder == nil {
		opts.Responder = reply.Fallback{Text: "Let's work through it together."}
	}
	if opts.Speaker == nil {
		opts.Speaker = noopSpeaker{}
	}
	if opts.Indicator == nil {
		opts.Indicator = noopIndicator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ReconnectBackoff <= 0 {
		opts.ReconnectBackoff = 250 * time.Millisecond
	}

	return &Controller{
		opts:     opts,
		requests: make(chan request),
		done:     make(chan struct{}),
		snapshot: Snapshot{State: fsm.StateIdle, Sentiment: transcription.Neutral()},
	}
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// State returns the current lifecycle state.
func (c *Controller) State() fsm.State {
	return c.Snapshot().State
}

// Subscribe registers fn for every snapshot change. fn runs on the loop
// goroutine and must not block or call back into the controller.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Log exposes the conversation history.
func (c *Controller) Log() *conversation.Log {
	return c.opts.Log
}

// Start opens a session. It is a no-op returning AlreadyRecording when one
// is active.
func (c *Controller) Start(ctx context.Context) Result {
	return c.do(ctx, requestStart)
}

// Stop finishes the active session. It is a no-op returning NotRecording
// when idle.
func (c *Controller) Stop(ctx context.Context) Result {
	return c.do(ctx, requestStop)
}

// Toggle stops when recording and starts otherwise.
func (c *Controller) Toggle(ctx context.Context) Result {
	return c.do(ctx, requestToggle)
}

func (c *Controller) do(ctx context.Context, kind requestKind) Result {
	req := request{kind: kind, ctx: ctx, reply: make(chan Result, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return Result{State: c.State(), Err: ctx.Err()}
	case <-c.done:
		return Result{State: c.State(), Err: ErrControllerStopped}
	}

	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return Result{State: c.State(), Err: ctx.Err()}
	}
}

// Run processes requests and channel events until ctx is cancelled. An
// active session is aborted on exit, and Run waits for in-flight replies.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.replies.Wait()

	for {
		select {
		case <-ctx.Done():
			if c.active != nil {
				c.abort(ctx.Err())
			}
			return ctx.Err()

		case req := <-c.requests:
			req.reply <- c.handle(ctx, req)

		case ev, ok := <-c.events:
			if !ok {
				c.events = nil
				c.channelEnded(ctx, transcription.Closed(false))
				continue
			}
			c.apply(ctx, ev)
		}
	}
}

func (c *Controller) handle(runCtx context.Context, req request) Result {
	switch req.kind {
	case requestStart:
		return c.start(req.ctx)
	case requestStop:
		return c.stop(runCtx)
	case requestToggle:
		if c.active != nil {
			return c.stop(runCtx)
		}
		return c.start(req.ctx)
	default:
		return Result{State: c.State(), Err: fmt.Errorf("unknown request %d", req.kind)}
	}
}

func (c *Controller) start(ctx context.Context) Result {
	if c.active != nil {
		return Result{SessionID: c.active.id, State: c.State(), AlreadyRecording: true, StartedAt: c.active.startedAt}
	}

	events, err := c.opts.Recorder.Start(ctx)
	if err != nil {
		c.opts.Logger.Error("session start failed", "error", err.Error())
		c.publish(func(s *Snapshot) { s.LastError = err.Error() })
		return Result{State: c.State(), Err: fmt.Errorf("start session: %w", err)}
	}

	c.transition(fsm.EventStart)
	c.aborted = nil
	c.active = &recording{
		id:        uuid.NewString(),
		sentiment: transcription.Neutral(),
		startedAt: time.Now(),
	}
	c.events = events
	c.publish(func(s *Snapshot) {
		s.SessionID = c.active.id
		s.Transcript = ""
		s.Sentiment = c.active.sentiment
		s.Reconnects = 0
		s.LastError = ""
	})
	c.opts.Indicator.CueStart(ctx)
	c.opts.Logger.Info("session started", "session_id", c.active.id)

	return Result{SessionID: c.active.id, State: fsm.StateRecording, StartedAt: c.active.startedAt}
}

// apply handles one channel event while recording.
func (c *Controller) apply(ctx context.Context, ev transcription.Event) {
	if c.active == nil {
		return
	}
	switch ev.Kind {
	case transcription.KindSegment:
		c.active.text.Append(ev.Transcript)
		c.active.sentiment = ev.Sentiment
		text, sentiment := c.active.text.Text(), c.active.sentiment
		c.publish(func(s *Snapshot) {
			s.Transcript = text
			s.Sentiment = sentiment
		})
	case transcription.KindClosed, transcription.KindError:
		c.channelEnded(ctx, ev)
	}
}

// channelEnded handles a close or error that we did not initiate.
func (c *Controller) channelEnded(ctx context.Context, ev transcription.Event) {
	if c.active == nil {
		return
	}
	if ev.Kind == transcription.KindError {
		c.abort(ev.Err)
		return
	}
	if err := c.reconnect(ctx); err != nil {
		c.abort(err)
	}
}

// reconnect reopens the channel while still recording, spending the
// session's remaining reconnect budget.
func (c *Controller) reconnect(ctx context.Context) error {
	if stale := c.events; stale != nil {
		c.events = nil
		go func() {
			for range stale {
			}
		}()
	}

	remaining := c.opts.MaxReconnects - c.active.reconnects
	if remaining <= 0 {
		return ErrChannelLost
	}

	backoff := retry.WithMaxRetries(uint64(remaining-1), retry.NewExponential(c.opts.ReconnectBackoff))
	var events <-chan transcription.Event
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c.active.reconnects++
		c.opts.Logger.Warn("transcription channel closed; reconnecting",
			"session_id", c.active.id, "attempt", c.active.reconnects)

		var err error
		events, err = c.opts.Recorder.Reopen(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChannelLost, err)
	}

	c.events = events
	attempts := c.active.reconnects
	c.publish(func(s *Snapshot) { s.Reconnects = attempts })
	return nil
}

// abort tears the session down without extraction, submission, turn or reply.
func (c *Controller) abort(cause error) {
	sess := c.active
	c.transition(fsm.EventAbort)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	capture, err := c.opts.Recorder.Stop(stopCtx)
	if err != nil {
		c.opts.Logger.Warn("recorder stop failed during abort", "session_id", sess.id, "error", err.Error())
	}
	c.drain(nil)

	c.active = nil
	c.transition(fsm.EventStopped)
	c.aborted = &Result{
		SessionID:    sess.id,
		State:        fsm.StateIdle,
		NotRecording: true,
		Aborted:      true,
		Sentiment:    transcription.Neutral(),
		Capture:      capture,
		StartedAt:    sess.startedAt,
		FinishedAt:   time.Now(),
		Err:          cause,
	}
	c.publish(func(s *Snapshot) {
		s.SessionID = ""
		s.Transcript = ""
		s.Sentiment = transcription.Neutral()
		s.LastError = cause.Error()
	})
	c.opts.Indicator.CueCancel(stopCtx)
	c.opts.Logger.Error("session aborted",
		"session_id", sess.id,
		"error", cause.Error(),
		"bytes_captured", capture.BytesCaptured,
	)
}

func (c *Controller) stop(runCtx context.Context) Result {
	if c.active == nil {
		if res := c.aborted; res != nil {
			c.aborted = nil
			return *res
		}
		return Result{State: c.State(), NotRecording: true}
	}

	sess := c.active
	c.transition(fsm.EventStop)
	c.opts.Indicator.CueStop(runCtx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), stopTimeout)
	defer cancel()

	capture, err := c.opts.Recorder.Stop(stopCtx)
	if err != nil {
		c.opts.Logger.Warn("recorder stop failed", "session_id", sess.id, "error", err.Error())
	}
	// Final results flushed by the service after close still belong to this session.
	c.drain(sess)

	result := Result{
		SessionID:  sess.id,
		Transcript: sess.text.Text(),
		Sentiment:  sess.sentiment,
		Capture:    capture,
		StartedAt:  sess.startedAt,
	}

	image, err := c.opts.Surface.ExtractImage()
	if err != nil {
		c.opts.Logger.Warn("whiteboard extraction failed", "session_id", sess.id, "error", err.Error())
		image = nil
	}
	result.HasImage = len(image) > 0

	result.Submitted = c.submit(stopCtx, sess.id, result.Transcript, image)

	if result.Transcript != "" {
		turn := conversation.NewTurn(sess.id, conversation.RoleUser, result.Transcript, sess.sentiment.Label, sess.sentiment.Score)
		if err := c.opts.Log.Append(stopCtx, turn); err != nil {
			c.opts.Logger.Warn("conversation persist failed", "session_id", sess.id, "error", err.Error())
		}
		result.TurnAppended = true
	}

	c.active = nil
	c.transition(fsm.EventStopped)
	c.publish(func(s *Snapshot) {
		s.SessionID = ""
		s.Transcript = ""
		s.Sentiment = transcription.Neutral()
	})
	c.opts.Indicator.CueComplete(stopCtx)

	result.State = fsm.StateIdle
	result.FinishedAt = time.Now()
	c.opts.Logger.Info("session finished",
		"session_id", sess.id,
		"transcript_chars", len(result.Transcript),
		"sentiment", sess.sentiment.Label,
		"has_image", result.HasImage,
		"submitted", result.Submitted,
		"turn_appended", result.TurnAppended,
		"audio_device", capture.AudioDevice,
		"bytes_captured", capture.BytesCaptured,
		"chunks_dropped", capture.ChunksDropped,
	)

	c.respond(runCtx, sess.id, result.Transcript, image)
	return result
}

// drain consumes what the closing channel still delivers. Segments are
// applied to sess when it is non-nil.
func (c *Controller) drain(sess *recording) {
	events := c.events
	c.events = nil
	if events == nil {
		return
	}
	for ev := range events {
		switch {
		case sess != nil && ev.Kind == transcription.KindSegment:
			sess.text.Append(ev.Transcript)
			sess.sentiment = ev.Sentiment
		case ev.Kind == transcription.KindError:
			c.opts.Logger.Warn("transcription error while closing", "error", ev.Err.Error())
		}
	}
}

func (c *Controller) submit(ctx context.Context, sessionID string, text string, image []byte) bool {
	if text == "" && len(image) == 0 {
		return false
	}
	if len(image) == 0 && !c.opts.SubmitWithoutImage {
		return false
	}

	resp, err := c.opts.Analyzer.Submit(ctx, analysis.NewPayload(text, image))
	if err != nil {
		c.opts.Logger.Warn("analysis submission failed",
			"session_id", sessionID, "status", resp.Status, "body", resp.Body, "error", err.Error())
		return true
	}
	c.opts.Logger.Info("analysis submitted", "session_id", sessionID, "status", resp.Status, "body", resp.Body)
	return true
}

// respond produces and plays the reply off the loop goroutine.
func (c *Controller) respond(ctx context.Context, sessionID string, text string, image []byte) {
	voice := ""
	name := ""
	if c.opts.Characters != nil {
		current := c.opts.Characters.Current()
		voice, name = current.VoiceID, current.Name
	}
	history := c.opts.Log.Turns()

	c.replies.Add(1)
	go func() {
		defer c.replies.Done()

		answer, err := c.opts.Responder.Reply(ctx, reply.Request{
			Transcript: text,
			Image:      image,
			Character:  name,
			History:    history,
		})
		if err != nil {
			c.opts.Logger.Warn("reply failed", "session_id", sessionID, "error", err.Error())
			return
		}
		if strings.TrimSpace(answer) == "" {
			return
		}

		if err := c.opts.Speaker.Speak(ctx, answer, voice); err != nil {
			c.opts.Logger.Warn("reply playback failed", "session_id", sessionID, "error", err.Error())
		}

		if c.opts.LogAssistant {
			turn := conversation.NewTurn(sessionID, conversation.RoleAssistant, answer, transcription.NeutralLabel, 0)
			if err := c.opts.Log.Append(context.WithoutCancel(ctx), turn); err != nil {
				c.opts.Logger.Warn("conversation persist failed", "session_id", sessionID, "error", err.Error())
			}
		}
	}()
}

// transition applies an FSM event. The loop only issues valid events, so a
// failure is a programming error and is logged rather than returned.
func (c *Controller) transition(event fsm.Event) {
	c.mu.Lock()
	next, err := fsm.Transition(c.snapshot.State, event)
	if err == nil {
		c.snapshot.State = next
	}
	c.mu.Unlock()

	if err != nil {
		c.opts.Logger.Error("session state transition rejected", "error", err.Error())
		return
	}
	c.notify()
}

func (c *Controller) publish(mutate func(*Snapshot)) {
	c.mu.Lock()
	mutate(&c.snapshot)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.RLock()
	snap := c.snapshot
	observers := slices.Clone(c.observers)
	c.mu.RUnlock()

	for _, fn := range observers {
		fn(snap)
	}
}
