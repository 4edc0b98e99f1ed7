package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/ipc"
)

// RunWorker is the child-process entry point. It dials the recorder's
// socket, loads the model, announces readiness, and serves transcription
// requests until the recorder disconnects or asks for shutdown.
func RunWorker(ctx context.Context, socketPath string, cfg config.Config, logger *slog.Logger) error {
	conn, err := ipc.Dial(ctx, socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	transcriber, err := NewWhisper(cfg.Engine.ModelPath, cfg.Language)
	if err != nil {
		_ = conn.Send(ipc.Message{Kind: ipc.KindResult, OK: false, Error: err.Error()})
		return err
	}
	defer transcriber.Close()

	if err := transcriber.Warmup(ctx); err != nil {
		logger.Warn("engine warmup failed", "error", err)
		forwardLog(conn, "warn", fmt.Sprintf("engine warmup failed: %v", err))
	}

	if err := conn.Send(ipc.Message{Kind: ipc.KindReady}); err != nil {
		return err
	}
	logger.Info("engine worker ready", "model", cfg.Engine.ModelPath)

	return serve(ctx, conn, transcriber, logger)
}

// serve processes protocol messages until the peer goes away. A read EOF
// means the recorder process exited; the worker must not outlive it.
func serve(ctx context.Context, conn *ipc.Conn, transcriber Transcriber, logger *slog.Logger) error {
	for {
		msg, err := conn.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("recorder disconnected; engine worker exiting")
				return nil
			}
			return fmt.Errorf("engine worker receive: %w", err)
		}

		switch msg.Kind {
		case ipc.KindShutdown:
			logger.Info("engine worker shutdown requested")
			return nil

		case ipc.KindTranscribe:
			text, err := transcriber.Transcribe(ctx, msg.Audio, msg.Language)
			switch {
			case errors.Is(err, context.Canceled):
				// An interrupted inference reports success with empty text
				// so the recorder's pending request always resolves.
				err = conn.Send(ipc.Message{Kind: ipc.KindResult, OK: true})
			case err != nil:
				logger.Error("transcription failed", "error", err)
				forwardLog(conn, "error", fmt.Sprintf("transcription failed: %v", err))
				err = conn.Send(ipc.Message{Kind: ipc.KindResult, OK: false, Error: err.Error()})
			default:
				err = conn.Send(ipc.Message{Kind: ipc.KindResult, OK: true, Text: text})
			}
			if err != nil {
				return fmt.Errorf("engine worker send result: %w", err)
			}

		default:
			logger.Warn("engine worker ignoring unknown message", "kind", msg.Kind)
		}
	}
}

// forwardLog mirrors a worker log record to the recorder's log stream. Send
// failures are ignored; the next protocol write will surface them.
func forwardLog(conn *ipc.Conn, level string, record string) {
	_ = conn.Send(ipc.Message{Kind: ipc.KindLog, Level: level, Record: record})
}

