package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Audio.ChunkIntervalMS <= 0 {
		return nil, fmt.Errorf("audio.chunk_interval_ms must be > 0")
	}
	if cfg.Audio.ChunkIntervalMS > 2000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.chunk_interval_ms=%d delays transcripts noticeably", cfg.Audio.ChunkIntervalMS)})
	}

	if err := validateURL("transcription.url", cfg.Transcription.URL, "ws", "wss"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Transcription.Language) == "" {
		return nil, fmt.Errorf("transcription.language must not be empty")
	}
	if cfg.Transcription.MaxReconnects < 0 {
		return nil, fmt.Errorf("transcription.max_reconnects must be >= 0")
	}
	if cfg.Transcription.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("transcription.dial_timeout_ms must be > 0")
	}
	if !cfg.Transcription.Sentiment {
		warnings = append(warnings, Warning{Message: "transcription.sentiment is disabled; every turn will be logged as neutral"})
	}

	if err := validateURL("synthesis.url", cfg.Synthesis.URL, "ws", "wss"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Synthesis.Model) == "" {
		return nil, fmt.Errorf("synthesis.model must not be empty")
	}
	if cfg.Synthesis.SampleRate <= 0 {
		return nil, fmt.Errorf("synthesis.sample_rate must be > 0")
	}

	if err := validateURL("analysis.base_url", cfg.Analysis.BaseURL, "http", "https"); err != nil {
		return nil, err
	}
	if cfg.Analysis.TimeoutMS <= 0 {
		return nil, fmt.Errorf("analysis.timeout_ms must be > 0")
	}

	if strings.TrimSpace(cfg.Whiteboard.Path) == "" {
		warnings = append(warnings, Warning{Message: "whiteboard.path is empty; sessions are submitted without an image"})
	}
	if _, err := ParseHexColor(cfg.Whiteboard.Background); err != nil {
		return nil, fmt.Errorf("whiteboard.background: %w", err)
	}

	switch cfg.Reply.Provider {
	case ReplyProviderFallback, ReplyProviderGemini:
	default:
		return nil, fmt.Errorf("reply.provider must be one of: %s, %s", ReplyProviderFallback, ReplyProviderGemini)
	}
	if strings.TrimSpace(cfg.Reply.FallbackText) == "" {
		return nil, fmt.Errorf("reply.fallback_text must not be empty")
	}
	if cfg.Reply.Provider == ReplyProviderGemini && strings.TrimSpace(cfg.Reply.Model) == "" {
		return nil, fmt.Errorf("reply.model must not be empty when reply.provider=gemini")
	}

	if cfg.Indicator.SoundEnable && cfg.Indicator.PlayerCmd.Raw != "" && len(cfg.Indicator.PlayerCmd.Argv) == 0 {
		return nil, fmt.Errorf("indicator.player_cmd is configured but empty")
	}

	return warnings, nil
}

func validateURL(key string, raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, scheme := range schemes {
		if strings.EqualFold(u.Scheme, scheme) {
			if u.Host == "" {
				return fmt.Errorf("%s must include a host", key)
			}
			return nil
		}
	}
	return fmt.Errorf("%s must use scheme %s", key, strings.Join(schemes, " or "))
}
