package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/harkaudio/hark/internal/audio"
	"github.com/harkaudio/hark/internal/cli"
	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/doctor"
	"github.com/harkaudio/hark/internal/engine"
	"github.com/harkaudio/hark/internal/logging"
	"github.com/harkaudio/hark/internal/recorder"
	"github.com/harkaudio/hark/internal/vad"
	"github.com/harkaudio/hark/internal/version"
	"github.com/harkaudio/hark/internal/wakeword"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("hark"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("hark"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandEngineWorker:
		if err := engine.RunWorker(ctx, parsed.SocketPath, cfgLoaded.Config, logger); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			logger.Error("engine worker failed", "error", err.Error())
			return 1
		}
		return 0
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	backend, err := audio.NewBackend(cfg.Audio.Backend)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	devices, err := backend.Devices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio input devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | channels=%d | rate=%.0f\n",
			defaultMark,
			device.ID,
			device.Description,
			device.MaxInputChannels,
			device.DefaultSampleRate,
		)
	}

	return 0
}

// commandRun assembles the capture pipeline and prints each transcribed
// utterance to stdout until the context is cancelled.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	rec, err := buildRecorder(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("pipeline setup failed", "error", err.Error())
		return 1
	}
	defer func() { _ = rec.Shutdown() }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErrCh := make(chan error, 1)
	go func() { loopErrCh <- rec.Run(runCtx) }()

	exitCode := 0
	for {
		text, err := rec.Text(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, recorder.ErrAborted) {
				break
			}
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			logger.Error("transcription cycle failed", "error", err.Error())
			exitCode = 1
			break
		}
		if strings.TrimSpace(text) != "" {
			fmt.Fprintln(r.Stdout, text)
		}
	}

	cancel()
	if err := <-loopErrCh; err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: capture loop failed: %v\n", err)
		logger.Error("capture loop failed", "error", err.Error())
		return 1
	}
	return exitCode
}

// buildRecorder wires the audio backend, VAD gates, wake-word detector, and
// transcription engine into a recorder. On error everything already started
// is torn down.
func buildRecorder(ctx context.Context, cfg config.Config, logger *slog.Logger) (*recorder.Recorder, error) {
	queue := audio.NewQueue(cfg.Recording.AllowedLatencyLimit, cfg.Recording.HandleBufferOverflow)

	var capture *audio.Worker
	if cfg.Audio.Enabled {
		backend, err := audio.NewBackend(cfg.Audio.Backend)
		if err != nil {
			return nil, err
		}
		capture = audio.NewWorker(audio.WorkerConfig{
			Backend:    backend,
			Input:      cfg.Audio.Input,
			SampleRate: cfg.SampleRate,
			ChunkSize:  cfg.ChunkSize,
			Logger:     logger,
		}, queue)
	}

	fast, err := vad.NewWebRTC(cfg.SampleRate, cfg.VAD.WebRTCSensitivity)
	if err != nil {
		return nil, fmt.Errorf("webrtc vad: %w", err)
	}
	confirm, err := vad.NewSilero(cfg.VAD.SileroModelPath, cfg.SampleRate, cfg.VAD.SileroSensitivity)
	if err != nil {
		_ = fast.Close()
		return nil, fmt.Errorf("silero vad: %w", err)
	}
	dual := vad.NewDual(fast, confirm, logger)

	stopGate := fast.IsSpeechAllFrames
	if cfg.VAD.SileroDeactivityDetection {
		stopGate = confirm.IsSpeech
	}

	wakeDetector, err := wakeword.New(cfg.Wake)
	if err != nil {
		_ = dual.Close()
		return nil, fmt.Errorf("wake word: %w", err)
	}

	client := engine.NewClient(cfg.Engine, logger)
	if err := client.Start(ctx); err != nil {
		_ = dual.Close()
		if wakeDetector != nil {
			_ = wakeDetector.Close()
		}
		return nil, fmt.Errorf("start engine: %w", err)
	}

	callbacks := recorder.Callbacks{
		OnRecordingStart: func() { logger.Debug("utterance started") },
		OnRecordingStop:  func() { logger.Debug("utterance ended") },
		OnWakewordDetected: func(index int, word string) {
			logger.Info("wake word detected", "index", index, "word", word)
		},
	}

	return recorder.New(cfg, recorder.Deps{
		Queue:        queue,
		Capture:      capture,
		Dual:         dual,
		StopGate:     stopGate,
		WakeDetector: wakeDetector,
		WakeWords:    cfg.Wake.Words,
		Engine:       client,
		Logger:       logger,
	}, callbacks), nil
}
