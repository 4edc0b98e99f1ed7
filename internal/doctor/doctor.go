// Package doctor runs runtime readiness diagnostics for config, models,
// audio capture, and the transcription engine.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/harkaudio/hark/internal/audio"
	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/ipc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/model checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMsg := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMsg = fmt.Sprintf("no file at %q, using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMsg})

	checks = append(checks, checkWarnings(cfg.Warnings))
	checks = append(checks, checkFile(cfg.Config.VAD.SileroModelPath, "vad.silero_model"))
	checks = append(checks, checkEngine(cfg.Config))
	checks = append(checks, checkWake(cfg.Config.Wake)...)
	checks = append(checks, checkAudioDevices(cfg.Config))
	checks = append(checks, checkSocketDir())

	return Report{Checks: checks}
}

// checkWarnings surfaces config validation warnings as a single check.
func checkWarnings(warnings []config.Warning) Check {
	if len(warnings) == 0 {
		return Check{Name: "config.warnings", Pass: true, Message: "no warnings"}
	}
	messages := make([]string, 0, len(warnings))
	for _, w := range warnings {
		messages = append(messages, w.Message)
	}
	return Check{Name: "config.warnings", Pass: false, Message: strings.Join(messages, "; ")}
}

// checkEngine validates the transcription engine: an external worker command
// when configured, the whisper model file otherwise.
func checkEngine(cfg config.Config) Check {
	if len(cfg.Engine.Binary.Argv) > 0 {
		return checkCommand(cfg.Engine.Binary.Argv, "engine.binary")
	}
	return checkFile(cfg.Engine.ModelPath, "engine.model")
}

// checkWake validates the wake-word configuration for the selected backend.
func checkWake(cfg config.WakeConfig) []Check {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil
	case "porcupine":
		checks := []Check{}
		if strings.TrimSpace(cfg.AccessKey) == "" {
			checks = append(checks, Check{Name: "wake.access_key", Pass: false,
				Message: "porcupine backend requires wake.access_key"})
		} else {
			checks = append(checks, Check{Name: "wake.access_key", Pass: true, Message: "set"})
		}
		if len(cfg.Words) == 0 {
			checks = append(checks, Check{Name: "wake.words", Pass: false, Message: "no wake words configured"})
		} else {
			checks = append(checks, Check{Name: "wake.words", Pass: true,
				Message: strings.Join(cfg.Words, ", ")})
		}
		return checks
	case "onnx":
		if len(cfg.ModelPaths) == 0 {
			return []Check{{Name: "wake.model_paths", Pass: false,
				Message: "onnx backend requires wake.model_paths"}}
		}
		checks := make([]Check, 0, len(cfg.ModelPaths))
		for _, path := range cfg.ModelPaths {
			checks = append(checks, checkFile(path, "wake.model"))
		}
		return checks
	default:
		return []Check{{Name: "wake.backend", Pass: false,
			Message: fmt.Sprintf("unknown wake backend %q", cfg.Backend)}}
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkFile validates that a configured path names a readable regular file.
func checkFile(path string, name string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: false, Message: "path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s (%d bytes)", path, info.Size())}
}

// checkAudioDevices runs live device enumeration to surface backend issues.
func checkAudioDevices(cfg config.Config) Check {
	backend, err := audio.NewBackend(cfg.Audio.Backend)
	if err != nil {
		return Check{Name: "audio.devices", Pass: false, Message: err.Error()}
	}
	devices, err := backend.Devices(context.Background())
	if err != nil {
		return Check{Name: "audio.devices", Pass: false, Message: err.Error()}
	}
	if len(devices) == 0 {
		return Check{Name: "audio.devices", Pass: false,
			Message: fmt.Sprintf("%s reports no input devices", backend.Name())}
	}
	return Check{Name: "audio.devices", Pass: true,
		Message: fmt.Sprintf("%s reports %d input device(s)", backend.Name(), len(devices))}
}

// checkSocketDir verifies the engine socket directory is writable.
func checkSocketDir() Check {
	dir := filepath.Dir(ipc.EngineSocketPath(os.Getpid()))
	probe, err := os.CreateTemp(dir, "hark-doctor-*")
	if err != nil {
		return Check{Name: "engine.socket_dir", Pass: false, Message: err.Error()}
	}
	probe.Close()
	os.Remove(probe.Name())
	return Check{Name: "engine.socket_dir", Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}
