package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/subham2006/mentora/internal/audio"
	"github.com/subham2006/mentora/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	require.Equal(t, "[OK] one: good\n[FAIL] two: bad", report.String())
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckCommand(t *testing.T) {
	require.False(t, checkCommand(nil, "indicator.player_cmd").Pass)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake-player"), []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-player", "--volume", "0.5"}, "indicator.player_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, filepath.Join(dir, "fake-player"))

	check = checkCommand([]string{"definitely-not-a-real-binary"}, "indicator.player_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCredentialsOnlyRequiresGeminiWhenSelected(t *testing.T) {
	cfg := config.Default()
	cfg.Credentials = config.Credentials{TranscriptionKey: "dg"}

	checks := checkCredentials(cfg)
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.False(t, checks[1].Pass)
	require.Equal(t, config.EnvSynthesisKey, checks[1].Name)

	cfg.Reply.Provider = config.ReplyProviderGemini
	checks = checkCredentials(cfg)
	require.Len(t, checks, 3)
	require.Equal(t, config.EnvGeminiKey, checks[2].Name)
	require.False(t, checks[2].Pass)
}

func TestCheckAnalysisReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Analysis.BaseURL = server.URL + "/"

	check := checkAnalysis(context.Background(), cfg, server.Client())
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 404")
}

func TestCheckAnalysisUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := config.Default()
	cfg.Analysis.BaseURL = url

	check := checkAnalysis(context.Background(), cfg, &http.Client{})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckAudioSelection(t *testing.T) {
	cfg := config.Default()

	check := checkAudioSelection(context.Background(), cfg, func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: "alsa_input.usb"}, Warning: "input unavailable; using fallback"}, nil
	})
	require.True(t, check.Pass)
	require.Equal(t, `selected "alsa_input.usb" (input unavailable; using fallback)`, check.Message)

	check = checkAudioSelection(context.Background(), cfg, func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{}, errors.New("no matching device")
	})
	require.False(t, check.Pass)
}

func TestCheckWhiteboard(t *testing.T) {
	cfg := config.Default()
	require.True(t, checkWhiteboard(cfg).Pass)

	dir := t.TempDir()
	cfg.Whiteboard.Path = filepath.Join(dir, "board.png")
	check := checkWhiteboard(cfg)
	require.True(t, check.Pass)
	require.Equal(t, "no snapshot yet", check.Message)

	require.NoError(t, os.WriteFile(cfg.Whiteboard.Path, []byte("png"), 0o600))
	require.Contains(t, checkWhiteboard(cfg).Message, "3 bytes")

	cfg.Whiteboard.Path = filepath.Join(dir, "missing", "board.png")
	require.False(t, checkWhiteboard(cfg).Pass)
}

func TestCheckStoreCreatesDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Conversation.StorePath = filepath.Join(t.TempDir(), "history.db")

	check := checkStore(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "(0 turns)")
	_, err := os.Stat(cfg.Conversation.StorePath)
	require.NoError(t, err)
}

func TestRunAggregatesChecks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Indicator.SoundEnable = false
	cfg.Analysis.BaseURL = server.URL
	cfg.Conversation.StorePath = filepath.Join(t.TempDir(), "history.db")
	cfg.Credentials = config.Credentials{TranscriptionKey: "dg", SynthesisKey: "ct"}

	report := run(context.Background(), config.Loaded{Path: "/tmp/edupal.jsonc", Config: cfg}, probes{
		selectDevice: func(context.Context, string, string) (audio.Selection, error) {
			return audio.Selection{Device: audio.Device{ID: "mic"}}, nil
		},
		http: server.Client(),
	})

	require.True(t, report.OK(), report.String())
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{
		"config",
		config.EnvTranscriptionKey,
		config.EnvSynthesisKey,
		"audio.device",
		"analysis.base_url",
		"whiteboard.path",
		"conversation.store",
	}, names)
}
