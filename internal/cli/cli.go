// Package cli parses hark command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun     Command = "run"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"

	// CommandEngineWorker hosts the transcription engine child process.
	// It is spawned by the recorder and is not listed in help output.
	CommandEngineWorker Command = "engine-worker"
)

var validCommands = map[Command]struct{}{
	CommandRun:          {},
	CommandDevices:      {},
	CommandDoctor:       {},
	CommandVersion:      {},
	CommandHelp:         {},
	CommandEngineWorker: {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	SocketPath string
	ShowHelp   bool
}

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

	if parsed.Command == CommandEngineWorker && strings.TrimSpace(parsed.SocketPath) == "" {
		return Parsed{}, errors.New("engine-worker requires --socket")
	}
	if parsed.Command != CommandEngineWorker && parsed.SocketPath != "" {
		return Parsed{}, fmt.Errorf("--socket is only valid with %s", CommandEngineWorker)
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run       Capture microphone audio and print transcribed utterances
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/hark/config.conf)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
