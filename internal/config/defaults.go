package config

const (
	ReplyProviderFallback = "fallback"
	ReplyProviderGemini   = "gemini"
)

// DefaultFallbackReply is spoken after every session unless a responder produces something better.
const DefaultFallbackReply = "Great question! Let's look at your whiteboard together and work through it step by step."

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	player := "pw-play --media-role Notification"

	return Config{
		Audio: AudioConfig{
			Input:           "default",
			Fallback:        "default",
			ChunkIntervalMS: 250,
		},
		Transcription: TranscriptionConfig{
			URL:           "wss://api.deepgram.com/v1/listen",
			Model:         "nova-3",
			Language:      "en-US",
			Sentiment:     true,
			MaxReconnects: 3,
			DialTimeoutMS: 5000,
		},
		Synthesis: SynthesisConfig{
			URL:        "wss://api.cartesia.ai/tts/websocket",
			Version:    "2024-06-10",
			Model:      "sonic-english",
			Speed:      "normal",
			SampleRate: 24000,
		},
		Analysis: AnalysisConfig{
			BaseURL:            "http://127.0.0.1:5000",
			TimeoutMS:          15000,
			SubmitWithoutImage: true,
		},
		Whiteboard: WhiteboardConfig{
			Background: "#ffffff",
		},
		Conversation: ConversationConfig{},
		Reply: ReplyConfig{
			Provider:     ReplyProviderFallback,
			FallbackText: DefaultFallbackReply,
			Model:        "gemini-2.0-flash",
		},
		Character: CharacterConfig{
			Voices: map[string]string{},
		},
		Indicator: IndicatorConfig{
			SoundEnable: true,
			PlayerCmd:   CommandConfig{Raw: player, Argv: mustParseArgv(player)},
		},
	}
}
