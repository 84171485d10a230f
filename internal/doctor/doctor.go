// Package doctor runs readiness diagnostics for config, credentials, audio,
// the analysis backend, the whiteboard snapshot, and the conversation store.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/subham2006/mentora/internal/audio"
	"github.com/subham2006/mentora/internal/config"
	"github.com/subham2006/mentora/internal/conversation"
)

// Check is one diagnostic result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

func (r Report) String() string {
	lines := make([]string, 0, len(r.Checks))
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", status, check.Name, check.Message))
	}
	return strings.Join(lines, "\n")
}

// probes are the live checks; tests replace them.
type probes struct {
	selectDevice func(ctx context.Context, input, fallback string) (audio.Selection, error)
	http         *http.Client
}

// Run executes every check against loaded.
func Run(ctx context.Context, loaded config.Loaded) Report {
	return run(ctx, loaded, probes{
		selectDevice: audio.SelectDevice,
		http:         &http.Client{Timeout: 2 * time.Second},
	})
}

func run(ctx context.Context, loaded config.Loaded, p probes) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}
	checks = append(checks, checkCredentials(cfg)...)
	if cfg.Indicator.SoundEnable {
		checks = append(checks, checkCommand(cfg.Indicator.PlayerCmd.Argv, "indicator.player_cmd"))
	}
	checks = append(checks,
		checkAudioSelection(ctx, cfg, p.selectDevice),
		checkAnalysis(ctx, cfg, p.http),
		checkWhiteboard(cfg),
		checkStore(ctx, cfg),
	)
	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	msg := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		msg += fmt.Sprintf(" (%d warnings)", n)
	}
	return Check{Name: "config", Pass: true, Message: msg}
}

func checkCredentials(cfg config.Config) []Check {
	keys := []struct {
		env   string
		value string
		need  bool
	}{
		{config.EnvTranscriptionKey, cfg.Credentials.TranscriptionKey, true},
		{config.EnvSynthesisKey, cfg.Credentials.SynthesisKey, true},
		{config.EnvGeminiKey, cfg.Credentials.GeminiKey, cfg.Reply.Provider == config.ReplyProviderGemini},
	}

	var checks []Check
	for _, key := range keys {
		if !key.need {
			continue
		}
		if key.value == "" {
			checks = append(checks, Check{Name: key.env, Pass: false, Message: "not set in environment or .env"})
			continue
		}
		checks = append(checks, Check{Name: key.env, Pass: true, Message: "set"})
	}
	return checks
}

// checkCommand validates that argv names a binary on PATH.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

func checkAudioSelection(
	ctx context.Context,
	cfg config.Config,
	selectDevice func(context.Context, string, string) (audio.Selection, error),
) Check {
	selection, err := selectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkAnalysis treats any HTTP answer as reachable; the backend has no
// health route.
func checkAnalysis(ctx context.Context, cfg config.Config, client *http.Client) Check {
	base := strings.TrimRight(cfg.Analysis.BaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Check{Name: "analysis.base_url", Pass: false, Message: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "analysis.base_url", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	return Check{Name: "analysis.base_url", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
}

func checkWhiteboard(cfg config.Config) Check {
	path := config.ExpandUserPath(cfg.Whiteboard.Path)
	if path == "" {
		return Check{Name: "whiteboard.path", Pass: true, Message: "not configured; sessions submit without an image"}
	}
	info, err := os.Stat(path)
	if err == nil {
		return Check{Name: "whiteboard.path", Pass: true, Message: fmt.Sprintf("snapshot present (%d bytes)", info.Size())}
	}
	if _, dirErr := os.Stat(filepath.Dir(path)); dirErr != nil {
		return Check{Name: "whiteboard.path", Pass: false, Message: fmt.Sprintf("directory missing: %s", filepath.Dir(path))}
	}
	return Check{Name: "whiteboard.path", Pass: true, Message: "no snapshot yet"}
}

func checkStore(ctx context.Context, cfg config.Config) Check {
	path, err := config.ResolveStorePath(cfg.Conversation)
	if err != nil {
		return Check{Name: "conversation.store", Pass: false, Message: err.Error()}
	}
	store, err := conversation.OpenStore(path)
	if err != nil {
		return Check{Name: "conversation.store", Pass: false, Message: err.Error()}
	}
	defer store.Close()

	turns, err := store.List(ctx, 0)
	if err != nil {
		return Check{Name: "conversation.store", Pass: false, Message: err.Error()}
	}
	return Check{Name: "conversation.store", Pass: true, Message: fmt.Sprintf("%s (%d turns)", path, len(turns))}
}
