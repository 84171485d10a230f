package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/subham2006/mentora/internal/analysis"
	"github.com/subham2006/mentora/internal/character"
	"github.com/subham2006/mentora/internal/config"
	"github.com/subham2006/mentora/internal/conversation"
	"github.com/subham2006/mentora/internal/fsm"
	"github.com/subham2006/mentora/internal/indicator"
	"github.com/subham2006/mentora/internal/ipc"
	"github.com/subham2006/mentora/internal/pipeline"
	"github.com/subham2006/mentora/internal/playback"
	"github.com/subham2006/mentora/internal/reply"
	"github.com/subham2006/mentora/internal/session"
	"github.com/subham2006/mentora/internal/synthesis"
	"github.com/subham2006/mentora/internal/voice"
	"github.com/subham2006/mentora/internal/whiteboard"
)

const (
	restoreTurns   = 50
	defaultHistory = 20
)

// owner is the process that holds the session: the controller and
// everything it drives, answering IPC requests.
type owner struct {
	logger     *slog.Logger
	store      *conversation.Store
	log        *conversation.Log
	characters *character.Selector
	board      *whiteboard.MemorySurface
	speaker    *voice.Speaker
	cues       *indicator.Cues
	controller *session.Controller
}

func newOwner(ctx context.Context, cfg config.Config, logger *slog.Logger) (*owner, error) {
	catalog, err := character.NewCatalog(cfg.Character.Voices)
	if err != nil {
		return nil, err
	}
	selector, err := character.NewSelector(catalog, cfg.Character.Default)
	if err != nil {
		return nil, err
	}

	storePath, err := config.ResolveStorePath(cfg.Conversation)
	if err != nil {
		return nil, err
	}
	store, err := conversation.OpenStore(storePath)
	if err != nil {
		return nil, err
	}
	history := conversation.NewLog(store)
	if err := history.Restore(ctx, restoreTurns); err != nil {
		_ = store.Close()
		return nil, err
	}

	background, err := config.ParseHexColor(cfg.Whiteboard.Background)
	if err != nil {
		background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	board := whiteboard.NewMemorySurface(background)
	surface := whiteboard.Chain{
		board,
		whiteboard.FileSurface{Path: config.ExpandUserPath(cfg.Whiteboard.Path), Background: background},
	}

	speaker := voice.NewSpeaker(newSynthesizer(cfg, logger), playback.Pulse{MediaName: "edupal reply"}, logger)
	cues := indicator.NewCues(cfg.Indicator, playback.Pulse{MediaName: "edupal cue"}, logger)

	controller := session.NewController(session.Options{
		Recorder:           pipeline.NewRecorder(cfg, logger),
		Surface:            surface,
		Analyzer:           analysis.NewClient(cfg.Analysis.BaseURL, time.Duration(cfg.Analysis.TimeoutMS)*time.Millisecond),
		Log:                history,
		Responder:          newResponder(ctx, cfg, logger),
		Speaker:            speaker,
		Characters:         selector,
		Indicator:          cues,
		Logger:             logger,
		MaxReconnects:      cfg.Transcription.MaxReconnects,
		SubmitWithoutImage: cfg.Analysis.SubmitWithoutImage,
		LogAssistant:       cfg.Conversation.LogAssistant,
	})

	logger.Info("session owner ready",
		"store", storePath,
		"restored_turns", history.Len(),
		"character", selector.Current().Name,
		"reply_provider", cfg.Reply.Provider,
	)

	return &owner{
		logger:     logger,
		store:      store,
		log:        history,
		characters: selector,
		board:      board,
		speaker:    speaker,
		cues:       cues,
		controller: controller,
	}, nil
}

func newSynthesizer(cfg config.Config, logger *slog.Logger) *synthesis.Client {
	return synthesis.NewClient(synthesis.Config{
		URL:         cfg.Synthesis.URL,
		Version:     cfg.Synthesis.Version,
		APIKey:      cfg.Credentials.SynthesisKey,
		Model:       cfg.Synthesis.Model,
		Speed:       cfg.Synthesis.Speed,
		Emotion:     cfg.Synthesis.Emotion,
		SampleRate:  cfg.Synthesis.SampleRate,
		DialTimeout: time.Duration(cfg.Transcription.DialTimeoutMS) * time.Millisecond,
	}, logger)
}

// newResponder prefers Gemini when configured and falls back to the fixed
// reply when the client cannot be built.
func newResponder(ctx context.Context, cfg config.Config, logger *slog.Logger) reply.Responder {
	fallback := reply.Fallback{Text: cfg.Reply.FallbackText}
	if cfg.Reply.Provider != config.ReplyProviderGemini {
		return fallback
	}
	g, err := reply.NewGemini(ctx, cfg.Credentials.GeminiKey, cfg.Reply.Model, cfg.Reply.FallbackText, logger)
	if err != nil {
		logger.Warn("gemini responder unavailable; using fallback reply", "error", err.Error())
		return fallback
	}
	return g
}

// Close waits for queued cues and closes the store. Call after Run returned.
func (o *owner) Close() error {
	o.cues.Wait()
	return o.store.Close()
}

// Handle answers one IPC request.
func (o *owner) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return o.status()
	case ipc.CommandStart:
		return o.result(o.controller.Start(ctx))
	case ipc.CommandStop:
		return o.result(o.controller.Stop(ctx))
	case ipc.CommandToggle:
		return o.result(o.controller.Toggle(ctx))
	case ipc.CommandCharacter:
		return o.selectCharacter(req.Arg)
	case ipc.CommandHistory:
		return o.history(req.Arg)
	case ipc.CommandWhiteboard:
		return o.whiteboard(req.Arg)
	default:
		return ipc.Failure(string(o.controller.State()), fmt.Errorf("unsupported command %q", req.Command))
	}
}

func (o *owner) status() ipc.Response {
	snap := o.controller.Snapshot()
	return ipc.Response{
		OK:         true,
		State:      string(snap.State),
		SessionID:  snap.SessionID,
		Transcript: snap.Transcript,
		Sentiment:  snap.Sentiment.Label,
		Character:  o.characters.Current().Name,
		Message:    snap.LastError,
	}
}

func (o *owner) result(res session.Result) ipc.Response {
	logSessionResult(o.logger, res)

	resp := ipc.Response{
		OK:         res.Err == nil || res.Aborted,
		State:      string(res.State),
		SessionID:  res.SessionID,
		Transcript: res.Transcript,
		Sentiment:  res.Sentiment.Label,
		Character:  o.characters.Current().Name,
		Message:    describeResult(res),
	}
	if res.Err != nil && !res.Aborted {
		resp.Error = res.Err.Error()
	}
	return resp
}

func describeResult(res session.Result) string {
	switch {
	case res.AlreadyRecording:
		return "already listening"
	case res.Aborted:
		if res.Err != nil {
			return "session aborted: " + res.Err.Error()
		}
		return "session aborted"
	case res.NotRecording:
		return "not listening"
	case res.Err != nil:
		return ""
	case res.State == fsm.StateRecording:
		return "listening"
	case res.Submitted:
		return "submitted"
	default:
		return "stopped"
	}
}

func (o *owner) selectCharacter(name string) ipc.Response {
	if strings.TrimSpace(name) != "" {
		if err := o.characters.Select(name); err != nil {
			return ipc.Failure(string(o.controller.State()), err)
		}
		o.logger.Info("character selected", "character", o.characters.Current().Name)
	}
	return ipc.Response{
		OK:        true,
		State:     string(o.controller.State()),
		Character: o.characters.Current().Name,
	}
}

func (o *owner) history(arg string) ipc.Response {
	limit, err := parseLimit(arg)
	if err != nil {
		return ipc.Failure(string(o.controller.State()), err)
	}
	turns := o.log.Turns()
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return ipc.Response{
		OK:    true,
		State: string(o.controller.State()),
		Lines: formatTurns(turns),
	}
}

func (o *owner) whiteboard(path string) ipc.Response {
	state := string(o.controller.State())
	if strings.TrimSpace(path) == "" {
		o.board.Clear()
		return ipc.Response{OK: true, State: state, Message: "whiteboard upload cleared"}
	}
	if err := o.board.Upload(path); err != nil {
		return ipc.Failure(state, err)
	}
	return ipc.Response{OK: true, State: state, Message: "whiteboard uploaded"}
}

func parseLimit(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return defaultHistory, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, errors.New("history count must be a positive integer")
	}
	return n, nil
}

func formatTurns(turns []conversation.Turn) []string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		line := fmt.Sprintf("%s  %-9s  %s", t.CreatedAt.Local().Format(time.DateTime), t.Role, t.Content)
		if t.Role == conversation.RoleUser && t.Sentiment != "" {
			line = fmt.Sprintf("%s  %-9s  [%s] %s", t.CreatedAt.Local().Format(time.DateTime), t.Role, t.Sentiment, t.Content)
		}
		lines = append(lines, line)
	}
	return lines
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil || result.AlreadyRecording || result.NotRecording {
		return
	}
	fields := []any{
		"session_id", result.SessionID,
		"state", result.State,
		"aborted", result.Aborted,
		"transcript_length", len(result.Transcript),
		"sentiment", result.Sentiment.Label,
		"has_image", result.HasImage,
		"submitted", result.Submitted,
		"turn_appended", result.TurnAppended,
		"audio_device", result.Capture.AudioDevice,
		"bytes_captured", result.Capture.BytesCaptured,
		"chunks_sent", result.Capture.ChunksSent,
		"chunks_dropped", result.Capture.ChunksDropped,
	}
	if !result.FinishedAt.IsZero() {
		fields = append(fields, "duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds())
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	if result.State == fsm.StateRecording {
		logger.Info("session started", fields...)
		return
	}
	logger.Info("session complete", fields...)
}
