// Package app dispatches edupal commands: it owns the session for `ui` and
// `serve`, and forwards control commands to that owner over IPC.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/subham2006/mentora/internal/audio"
	"github.com/subham2006/mentora/internal/character"
	"github.com/subham2006/mentora/internal/cli"
	"github.com/subham2006/mentora/internal/config"
	"github.com/subham2006/mentora/internal/conversation"
	"github.com/subham2006/mentora/internal/doctor"
	"github.com/subham2006/mentora/internal/ipc"
	"github.com/subham2006/mentora/internal/logging"
	"github.com/subham2006/mentora/internal/playback"
	"github.com/subham2006/mentora/internal/session"
	"github.com/subham2006/mentora/internal/synthesis"
	"github.com/subham2006/mentora/internal/tui"
	"github.com/subham2006/mentora/internal/version"
	"github.com/subham2006/mentora/internal/voice"
)

const (
	binaryName     = "edupal"
	forwardTimeout = 220 * time.Millisecond

	// start dials the transcription service; stop waits for the recorder
	// drain and the whiteboard submission.
	sessionForwardTimeout = 30 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	opts := logging.Options{Level: slog.LevelInfo}
	if parsed.Debug {
		opts.Level = slog.LevelDebug
	}
	if parsed.Command == cli.CommandServe {
		opts.Mirror = r.Stderr
	}
	logRuntime, err := logging.New(opts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		// the screen owns the terminal once it starts; warnings go to the log only
		if parsed.Command != cli.CommandUI {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	cfg := cfgLoaded.Config
	switch parsed.Command {
	case cli.CommandUI:
		return r.commandOwn(ctx, cfg, logger, true)
	case cli.CommandServe:
		return r.commandOwn(ctx, cfg, logger, false)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart, cli.CommandStop, cli.CommandToggle:
		return r.forwardOrFail(ctx, string(parsed.Command), "")
	case cli.CommandWhiteboard:
		return r.forwardOrFail(ctx, ipc.CommandWhiteboard, parsed.Arg())
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfg, parsed.Arg())
	case cli.CommandCharacters:
		return r.commandCharacters(ctx, cfg, parsed.Arg())
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandSay:
		return r.commandSay(ctx, cfg, logger, strings.Join(parsed.Args, " "), parsed.OutPath)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandOwn acquires the socket and runs the session owner until ctx is
// cancelled, or until the screen quits when withUI is set.
func (r Runner) commandOwn(ctx context.Context, cfg config.Config, logger *slog.Logger, withUI bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	o, err := newOwner(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("session owner setup failed", "error", err.Error())
		return 1
	}
	defer func() {
		if err := o.Close(); err != nil {
			logger.Warn("close session owner", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := o.controller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session controller: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := ipc.Serve(gctx, listener, o); err != nil {
			return fmt.Errorf("ipc server: %w", err)
		}
		return nil
	})

	if withUI {
		g.Go(func() error {
			defer cancel()
			return runScreen(gctx, o)
		})
	} else {
		fmt.Fprintf(r.Stdout, "listening for commands on %s\n", socketPath)
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("session owner failed", "error", err.Error())
		return 1
	}
	logger.Info("session owner stopped")
	return 0
}

func runScreen(ctx context.Context, o *owner) error {
	feed := tui.NewFeed()
	defer feed.Close()

	o.controller.Subscribe(func(session.Snapshot) { feed.Notify() })
	o.speaker.Subscribe(func(voice.State) { feed.Notify() })
	o.log.Subscribe(func(conversation.Turn) { feed.Notify() })

	model := tui.New(ctx, tui.Deps{
		Session:    o.controller,
		Characters: o.characters,
		History:    o.log,
		Speech:     o.speaker,
		Feed:       feed,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("screen: %w", err)
	}
	return nil
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if resp.Character != "" {
		fmt.Fprintf(r.Stdout, "character: %s\n", resp.Character)
	}
	if resp.Transcript != "" {
		fmt.Fprintf(r.Stdout, "transcript: %s\n", resp.Transcript)
	}
	if resp.Sentiment != "" && resp.Transcript != "" {
		fmt.Fprintf(r.Stdout, "sentiment: %s\n", resp.Sentiment)
	}
	if resp.Message != "" {
		fmt.Fprintf(r.Stdout, "last error: %s\n", resp.Message)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string, arg string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	timeout := forwardTimeout
	switch command {
	case ipc.CommandStart, ipc.CommandStop, ipc.CommandToggle:
		timeout = sessionForwardTimeout
	}
	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: command, Arg: arg}, timeout)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running edupal session; start one with `edupal ui` or `edupal serve`\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if resp.Transcript != "" && resp.State != "recording" {
		fmt.Fprintln(r.Stdout, resp.Transcript)
	}
	return 0
}

// commandHistory asks the owner first, then reads the store directly.
func (r Runner) commandHistory(ctx context.Context, cfg config.Config, arg string) int {
	limit, err := parseLimit(arg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandHistory, Arg: arg}, forwardTimeout)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			r.printLines(resp.Lines)
			return 0
		}
	}

	storePath, err := config.ResolveStorePath(cfg.Conversation)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if _, err := os.Stat(storePath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(r.Stdout, "no conversation history")
		return 0
	}
	store, err := conversation.OpenStore(storePath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	turns, err := store.List(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	r.printLines(formatTurns(turns))
	return 0
}

func (r Runner) printLines(lines []string) {
	if len(lines) == 0 {
		fmt.Fprintln(r.Stdout, "no conversation history")
		return
	}
	for _, line := range lines {
		fmt.Fprintln(r.Stdout, line)
	}
}

// commandCharacters selects name in the running session, or lists the
// catalog marking the current selection.
func (r Runner) commandCharacters(ctx context.Context, cfg config.Config, name string) int {
	catalog, err := character.NewCatalog(cfg.Character.Voices)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	socketPath, socketErr := ipc.RuntimeSocketPath()
	if name != "" {
		if socketErr != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", socketErr)
			return 1
		}
		return r.forwardOrFail(ctx, ipc.CommandCharacter, name)
	}

	current := cfg.Character.Default
	if socketErr == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandCharacter}, forwardTimeout)
		if handled && err == nil {
			current = resp.Character
		}
	}
	if current == "" {
		current = catalog.All()[0].Name
	}

	for _, c := range catalog.All() {
		mark := " "
		if strings.EqualFold(c.Name, current) {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %s | voice=%s\n", mark, c.Name, c.VoiceID)
	}
	return 0
}

// commandSay speaks text in the default character's voice, or writes it as
// a WAV file to outPath.
func (r Runner) commandSay(ctx context.Context, cfg config.Config, logger *slog.Logger, text string, outPath string) int {
	catalog, err := character.NewCatalog(cfg.Character.Voices)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	selector, err := character.NewSelector(catalog, cfg.Character.Default)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	speaker := selector.Current()

	utterance, err := newSynthesizer(cfg, logger).Synthesize(ctx, text, synthesis.Voice{ID: speaker.VoiceID})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if outPath == "" {
		if err := (playback.Pulse{MediaName: "edupal say"}).Play(ctx, utterance.PCM, utterance.SampleRate); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := synthesis.WriteWAV(f, utterance); err != nil {
		_ = f.Close()
		fmt.Fprintf(r.Stderr, "error: write %s: %v\n", outPath, err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "wrote %s (%s, voice %s)\n", outPath, utterance.Duration().Round(time.Millisecond), speaker.Name)
	return 0
}

// tryForward sends req to the owner. handled is false when nothing is
// listening on socketPath.
func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unreachable(err) {
		return ipc.Response{}, false, nil
	}
	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
