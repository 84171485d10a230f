package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "edupal", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "edupal", "config.jsonc"), nil
}

// ResolveStatePath places a file under $XDG_STATE_HOME/edupal, falling back to ~/.local/state.
func ResolveStatePath(name string) (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "edupal", name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for state fallback")
	}
	return filepath.Join(home, ".local", "state", "edupal", name), nil
}

// ExpandUserPath expands a leading ~ to the user's home directory.
func ExpandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	if raw == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
}

// ResolveStorePath returns the conversation database location, defaulting to
// history.db in the state directory.
func ResolveStorePath(c ConversationConfig) (string, error) {
	if p := ExpandUserPath(c.StorePath); p != "" {
		return p, nil
	}
	return ResolveStatePath("history.db")
}
