// Package cli parses dictatectl's argv into a Command plus its
// arguments, mirroring the daemon's own HTTP surface one-for-one.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

// Command names one dictatectl subcommand.
type Command string

const (
	CommandStartRecording Command = "start-recording"
	CommandStopRecording  Command = "stop-recording"
	CommandTranscribe     Command = "transcribe"
	CommandEnhance        Command = "enhance"
	CommandListenStart    Command = "listen-start"
	CommandListenStop     Command = "listen-stop"
	CommandStatus         Command = "status"
	CommandDoctor         Command = "doctor"
	CommandVersion        Command = "version"
	CommandHelp           Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandStartRecording: {},
	CommandStopRecording:  {},
	CommandTranscribe:     {},
	CommandEnhance:        {},
	CommandListenStart:    {},
	CommandListenStop:     {},
	CommandStatus:         {},
	CommandDoctor:         {},
	CommandVersion:        {},
	CommandHelp:           {},
}

// Parsed is the result of parsing argv.
type Parsed struct {
	Command     Command
	ConfigPath  string
	SocketPath  string
	RecordingID string // --recording-id, for transcribe
	Text        string // --text, for enhance
	ShowHelp    bool
}

// Parse parses dictatectl's command-line arguments.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--socket":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--socket requires a path")
			}
			parsed.SocketPath = args[i]
		case "--recording-id":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--recording-id requires a value")
			}
			parsed.RecordingID = args[i]
		case "--text":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--text requires a value")
			}
			parsed.Text = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	return parsed, nil
}

// HelpText returns the usage text printed for `dictatectl help` and on
// parse errors.
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--socket PATH] <command> [args]

Commands:
  start-recording               Start a manual capture session
  stop-recording                Stop capture and persist the recording
  transcribe --recording-id ID  Transcribe a previously captured recording
  enhance --text TEXT           Turn raw text into a titled, tagged note
  listen-start                  Arm the wake-word + VAD listener
  listen-stop                   Disarm the listener
  status                        Print daemon and listener state
  doctor                        Run configuration and environment checks
  version                       Print version information
  help                          Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/dictate/config.jsonc)
  --socket PATH   Daemon unix-socket path (default: $XDG_RUNTIME_DIR/dictate.sock)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
