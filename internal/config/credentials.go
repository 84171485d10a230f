package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvTranscriptionKey = "DEEPGRAM_API_KEY"
	EnvSynthesisKey     = "CARTESIA_API_KEY"
	EnvGeminiKey        = "GEMINI_API_KEY"
)

// LoadCredentials reads service keys once from the process environment after
// merging envFiles (missing files are skipped). Existing environment values win.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	for _, path := range envFiles {
		path = ExpandUserPath(path)
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Credentials{}, fmt.Errorf("load env file %q: %w", path, err)
		}
	}

	return Credentials{
		TranscriptionKey: strings.TrimSpace(os.Getenv(EnvTranscriptionKey)),
		SynthesisKey:     strings.TrimSpace(os.Getenv(EnvSynthesisKey)),
		GeminiKey:        strings.TrimSpace(os.Getenv(EnvGeminiKey)),
	}, nil
}

// Missing lists the environment variable names whose credential is empty.
func (c Credentials) Missing() []string {
	var missing []string
	if c.TranscriptionKey == "" {
		missing = append(missing, EnvTranscriptionKey)
	}
	if c.SynthesisKey == "" {
		missing = append(missing, EnvSynthesisKey)
	}
	return missing
}
