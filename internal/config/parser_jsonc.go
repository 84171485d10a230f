package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Audio         *jsoncAudio         `json:"audio"`
	Transcription *jsoncTranscription `json:"transcription"`
	Synthesis     *jsoncSynthesis     `json:"synthesis"`
	Analysis      *jsoncAnalysis      `json:"analysis"`
	Whiteboard    *jsoncWhiteboard    `json:"whiteboard"`
	Conversation  *jsoncConversation  `json:"conversation"`
	Reply         *jsoncReply         `json:"reply"`
	Character     *jsoncCharacter     `json:"character"`
	Indicator     *jsoncIndicator     `json:"indicator"`
}

type jsoncAudio struct {
	Input           *string `json:"input"`
	Fallback        *string `json:"fallback"`
	ChunkIntervalMS *int    `json:"chunk_interval_ms"`
}

type jsoncTranscription struct {
	URL           *string `json:"url"`
	Model         *string `json:"model"`
	Language      *string `json:"language"`
	Sentiment     *bool   `json:"sentiment"`
	MaxReconnects *int    `json:"max_reconnects"`
	DialTimeoutMS *int    `json:"dial_timeout_ms"`
}

type jsoncSynthesis struct {
	URL        *string          `json:"url"`
	Version    *string          `json:"version"`
	Model      *string          `json:"model"`
	Speed      *string          `json:"speed"`
	Emotion    *jsoncStringList `json:"emotion"`
	SampleRate *int             `json:"sample_rate"`
}

type jsoncAnalysis struct {
	BaseURL            *string `json:"base_url"`
	TimeoutMS          *int    `json:"timeout_ms"`
	SubmitWithoutImage *bool   `json:"submit_without_image"`
}

type jsoncWhiteboard struct {
	Path       *string `json:"path"`
	Background *string `json:"background"`
}

type jsoncConversation struct {
	StorePath    *string `json:"store_path"`
	LogAssistant *bool   `json:"log_assistant"`
}

type jsoncReply struct {
	Provider     *string `json:"provider"`
	FallbackText *string `json:"fallback_text"`
	Model        *string `json:"model"`
}

type jsoncCharacter struct {
	Default *string           `json:"default"`
	Voices  map[string]string `json:"voices"`
}

type jsoncIndicator struct {
	SoundEnable  *bool   `json:"sound_enable"`
	PlayerCmd    *string `json:"player_cmd"`
	StartFile    *string `json:"start_file"`
	StopFile     *string `json:"stop_file"`
	CompleteFile *string `json:"complete_file"`
	CancelFile   *string `json:"cancel_file"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		out := make([]string, 0)
		for _, part := range strings.Split(single, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	cfg.Character.Voices = cloneVoices(base.Character.Voices)
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
		setInt(&cfg.Audio.ChunkIntervalMS, a.ChunkIntervalMS)
	}

	if tr := payload.Transcription; tr != nil {
		setString(&cfg.Transcription.URL, tr.URL)
		setString(&cfg.Transcription.Model, tr.Model)
		setString(&cfg.Transcription.Language, tr.Language)
		setBool(&cfg.Transcription.Sentiment, tr.Sentiment)
		setInt(&cfg.Transcription.MaxReconnects, tr.MaxReconnects)
		setInt(&cfg.Transcription.DialTimeoutMS, tr.DialTimeoutMS)
	}

	if s := payload.Synthesis; s != nil {
		setString(&cfg.Synthesis.URL, s.URL)
		setString(&cfg.Synthesis.Version, s.Version)
		setString(&cfg.Synthesis.Model, s.Model)
		setString(&cfg.Synthesis.Speed, s.Speed)
		if s.Emotion != nil {
			cfg.Synthesis.Emotion = append([]string(nil), (*s.Emotion)...)
		}
		setInt(&cfg.Synthesis.SampleRate, s.SampleRate)
	}

	if a := payload.Analysis; a != nil {
		setString(&cfg.Analysis.BaseURL, a.BaseURL)
		setInt(&cfg.Analysis.TimeoutMS, a.TimeoutMS)
		setBool(&cfg.Analysis.SubmitWithoutImage, a.SubmitWithoutImage)
	}

	if w := payload.Whiteboard; w != nil {
		setString(&cfg.Whiteboard.Path, w.Path)
		setString(&cfg.Whiteboard.Background, w.Background)
	}

	if c := payload.Conversation; c != nil {
		setString(&cfg.Conversation.StorePath, c.StorePath)
		setBool(&cfg.Conversation.LogAssistant, c.LogAssistant)
	}

	if r := payload.Reply; r != nil {
		if r.Provider != nil {
			cfg.Reply.Provider = strings.ToLower(strings.TrimSpace(*r.Provider))
		}
		if r.FallbackText != nil {
			cfg.Reply.FallbackText = *r.FallbackText
		}
		setString(&cfg.Reply.Model, r.Model)
	}

	if c := payload.Character; c != nil {
		setString(&cfg.Character.Default, c.Default)
		for name, voice := range c.Voices {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				return fmt.Errorf("character.voices contains an empty character name")
			}
			cfg.Character.Voices[trimmed] = strings.TrimSpace(voice)
		}
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		if ind.PlayerCmd != nil {
			raw := *ind.PlayerCmd
			argv, err := parseArgv(raw)
			if err != nil {
				return fmt.Errorf("invalid indicator.player_cmd: %w", err)
			}
			cfg.Indicator.PlayerCmd = CommandConfig{Raw: raw, Argv: argv}
		}
		setString(&cfg.Indicator.SoundStartFile, ind.StartFile)
		setString(&cfg.Indicator.SoundStopFile, ind.StopFile)
		setString(&cfg.Indicator.SoundCompleteFile, ind.CompleteFile)
		setString(&cfg.Indicator.SoundCancelFile, ind.CancelFile)
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func cloneVoices(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
