package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "pw-play --media-role Notification", want: []string{"pw-play", "--media-role", "Notification"}},
		{name: "quoted spaces", input: `paplay --client-name "edu pal"`, want: []string{"paplay", "--client-name", "edu pal"}},
		{name: "single quote", input: `pw-play '/usr/share/sounds/edu pal/start.wav'`, want: []string{"pw-play", "/usr/share/sounds/edu pal/start.wav"}},
		{name: "escaped space", input: `pw-play cue\ start.wav`, want: []string{"pw-play", "cue start.wav"}},
		{name: "leading comment", input: `# pw-play --volume 0.5`, want: nil},
		{name: "unterminated quote", input: `pw-play "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `pw-play cue\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseArgvExpandsHomeOnUnquotedWords(t *testing.T) {
	t.Setenv("HOME", "/home/learner")

	got, err := parseArgv(`~/bin/play '~/cues/start.wav'`)
	require.NoError(t, err)
	require.Equal(t, []string{"/home/learner/bin/play", "~/cues/start.wav"}, got)
}

func TestMustParseArgvPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseArgv(`paplay "unterminated`)
	})
}
