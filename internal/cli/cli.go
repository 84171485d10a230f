// Package cli parses the edupal command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandUI         Command = "ui"
	CommandServe      Command = "serve"
	CommandStart      Command = "start"
	CommandStop       Command = "stop"
	CommandToggle     Command = "toggle"
	CommandStatus     Command = "status"
	CommandHistory    Command = "history"
	CommandCharacters Command = "characters"
	CommandWhiteboard Command = "whiteboard"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandSay        Command = "say"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// operands is how many positional arguments each command accepts; -1 means any.
var operands = map[Command]int{
	CommandUI:         0,
	CommandServe:      0,
	CommandStart:      0,
	CommandStop:       0,
	CommandToggle:     0,
	CommandStatus:     0,
	CommandHistory:    1,
	CommandCharacters: 1,
	CommandWhiteboard: 1,
	CommandDevices:    0,
	CommandDoctor:     0,
	CommandSay:        -1,
	CommandVersion:    0,
	CommandHelp:       0,
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Debug      bool
	ShowHelp   bool
	// OutPath is `say --out`: write a WAV file instead of playing.
	OutPath string
}

// Parse reads global flags, one command, and that command's operands.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--debug":
			parsed.Debug = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	if i == len(args) {
		return parsed, nil
	}

	cmd := Command(args[i])
	limit, ok := operands[cmd]
	if !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", args[i])
	}
	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp

	rest := args[i+1:]
	if cmd == CommandSay {
		for j := 0; j < len(rest); j++ {
			if rest[j] != "--out" {
				parsed.Args = append(parsed.Args, rest[j])
				continue
			}
			j++
			if j >= len(rest) {
				return Parsed{}, errors.New("--out requires a path")
			}
			parsed.OutPath = rest[j]
		}
		if strings.TrimSpace(strings.Join(parsed.Args, " ")) == "" {
			return Parsed{}, errors.New("say requires text")
		}
		return parsed, nil
	}

	if len(rest) > limit {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	parsed.Args = rest
	return parsed, nil
}

// Arg returns the first operand or "".
func (p Parsed) Arg() string {
	if len(p.Args) == 0 {
		return ""
	}
	return p.Args[0]
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command> [args]

Commands:
  ui                 Open the tutor screen (owns the session)
  serve              Own the session without a screen; drive it with start/stop/toggle
  start              Start listening
  stop               Stop listening, submit the whiteboard, and hear the reply
  toggle             Start, or stop when already listening
  status             Print the session state and live transcript
  history [N]        Print the last N conversation turns (default 20)
  characters [NAME]  List characters, or select NAME in the running session
  whiteboard [PATH]  Use the image at PATH as the whiteboard, or clear the upload
  devices            List available input devices
  doctor             Run configuration and environment checks
  say TEXT [--out F] Speak TEXT in the default character's voice, or write a WAV to F
  version            Print version information
  help               Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/edupal/config.jsonc)
  --debug         Log at debug level
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
