package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harkaudio/hark/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "engine.binary")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o644))

	check := checkFile(path, "engine.model")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, path)

	check = checkFile(filepath.Join(dir, "missing.bin"), "engine.model")
	require.False(t, check.Pass)

	check = checkFile("", "engine.model")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "path is empty")

	check = checkFile(dir, "engine.model")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "directory")
}

func TestCheckEnginePrefersConfiguredBinary(t *testing.T) {
	binDir := t.TempDir()
	worker := filepath.Join(binDir, "fake-engine")
	require.NoError(t, os.WriteFile(worker, []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Engine.Binary = config.CommandConfig{Raw: "fake-engine", Argv: []string{"fake-engine"}}

	check := checkEngine(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "engine.binary")
}

func TestCheckEngineFallsBackToModelPath(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0o644))

	cfg := config.Default()
	cfg.Engine.ModelPath = model

	check := checkEngine(cfg)
	require.True(t, check.Pass)
	require.Equal(t, "engine.model", check.Name)
}

func TestCheckWakeDisabled(t *testing.T) {
	require.Empty(t, checkWake(config.WakeConfig{}))
}

func TestCheckWakePorcupineRequiresAccessKey(t *testing.T) {
	checks := checkWake(config.WakeConfig{Backend: "porcupine", Words: []string{"jarvis"}})
	require.Len(t, checks, 2)
	require.False(t, checks[0].Pass)
	require.Contains(t, checks[0].Message, "access_key")
	require.True(t, checks[1].Pass)

	checks = checkWake(config.WakeConfig{
		Backend:   "porcupine",
		AccessKey: "key",
		Words:     []string{"jarvis", "computer"},
	})
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.True(t, checks[1].Pass)
	require.Contains(t, checks[1].Message, "jarvis, computer")
}

func TestCheckWakeONNXModelPaths(t *testing.T) {
	checks := checkWake(config.WakeConfig{Backend: "onnx"})
	require.Len(t, checks, 1)
	require.False(t, checks[0].Pass)

	dir := t.TempDir()
	model := filepath.Join(dir, "hey.onnx")
	require.NoError(t, os.WriteFile(model, []byte("onnx"), 0o644))

	checks = checkWake(config.WakeConfig{
		Backend:    "onnx",
		ModelPaths: []string{model, filepath.Join(dir, "missing.onnx")},
	})
	require.Len(t, checks, 2)
	require.True(t, checks[0].Pass)
	require.False(t, checks[1].Pass)
}

func TestCheckWakeUnknownBackend(t *testing.T) {
	checks := checkWake(config.WakeConfig{Backend: "snowboy"})
	require.Len(t, checks, 1)
	require.False(t, checks[0].Pass)
	require.Contains(t, checks[0].Message, "snowboy")
}

func TestCheckWarnings(t *testing.T) {
	check := checkWarnings(nil)
	require.True(t, check.Pass)

	check = checkWarnings([]config.Warning{
		{Message: "vad.silero_model is unset"},
		{Message: "engine.model is unset"},
	})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "vad.silero_model is unset; engine.model is unset")
}

func TestCheckAudioDevicesFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Audio.Backend = "pulse"

	check := checkAudioDevices(cfg)
	require.False(t, check.Pass)
	require.Equal(t, "audio.devices", check.Name)
}

func TestCheckSocketDirWritable(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	check := checkSocketDir()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "writable")
}

func TestRunCollectsChecks(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	dir := t.TempDir()
	silero := filepath.Join(dir, "silero.onnx")
	model := filepath.Join(dir, "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(silero, []byte("onnx"), 0o644))
	require.NoError(t, os.WriteFile(model, []byte("weights"), 0o644))

	cfg := config.Default()
	cfg.Audio.Backend = "pulse"
	cfg.VAD.SileroModelPath = silero
	cfg.Engine.ModelPath = model

	report := Run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})
	require.NotEmpty(t, report.Checks)

	byName := map[string]Check{}
	for _, check := range report.Checks {
		byName[check.Name] = check
	}
	require.True(t, byName["config"].Pass)
	require.True(t, byName["config.warnings"].Pass)
	require.True(t, byName["vad.silero_model"].Pass)
	require.True(t, byName["engine.model"].Pass)
	require.True(t, byName["engine.socket_dir"].Pass)
	require.False(t, byName["audio.devices"].Pass)
	_, hasWake := byName["wake.access_key"]
	require.False(t, hasWake)
}
