// Package config resolves, parses, validates, and defaults edupal configuration.
package config

// Config is the fully materialized runtime configuration used by edupal.
type Config struct {
	Audio         AudioConfig
	Transcription TranscriptionConfig
	Synthesis     SynthesisConfig
	Analysis      AnalysisConfig
	Whiteboard    WhiteboardConfig
	Conversation  ConversationConfig
	Reply         ReplyConfig
	Character     CharacterConfig
	Indicator     IndicatorConfig
	Credentials   Credentials
}

// AudioConfig controls input-source selection and capture chunking.
type AudioConfig struct {
	Input           string
	Fallback        string
	ChunkIntervalMS int
}

// TranscriptionConfig controls the streaming transcription + sentiment channel.
type TranscriptionConfig struct {
	URL           string
	Model         string
	Language      string
	Sentiment     bool
	MaxReconnects int
	DialTimeoutMS int
}

// SynthesisConfig controls the streaming text-to-speech channel.
type SynthesisConfig struct {
	URL        string
	Version    string
	Model      string
	Speed      string
	Emotion    []string
	SampleRate int
}

// AnalysisConfig controls whiteboard analysis submission.
type AnalysisConfig struct {
	BaseURL            string
	TimeoutMS          int
	SubmitWithoutImage bool
}

// WhiteboardConfig points at the exported whiteboard snapshot.
type WhiteboardConfig struct {
	Path       string
	Background string
}

// ConversationConfig controls conversation history persistence.
type ConversationConfig struct {
	StorePath    string
	LogAssistant bool
}

// ReplyConfig selects how the character's spoken reply is produced.
type ReplyConfig struct {
	Provider     string
	FallbackText string
	Model        string
}

// CharacterConfig controls the initially selected character and voice overrides.
type CharacterConfig struct {
	Default string
	Voices  map[string]string
}

// IndicatorConfig controls audible session cues.
type IndicatorConfig struct {
	SoundEnable       bool
	PlayerCmd         CommandConfig
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Credentials holds streaming-service secrets read once at process start.
// Empty values are allowed; the owning adapter fails when it first dials.
type Credentials struct {
	TranscriptionKey string
	SynthesisKey     string
	GeminiKey        string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
