package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

const reopenBackoff = 500 * time.Millisecond

// WorkerConfig describes one capture worker.
type WorkerConfig struct {
	Backend    Backend
	Input      string
	SampleRate int
	ChunkSize  int // samples per emitted chunk
	Logger     *slog.Logger
}

// Worker pulls PCM from a capture backend, resamples it to the target rate,
// and feeds fixed-size chunks into the shared queue. It reopens the stream
// after transient device failures instead of giving up.
type Worker struct {
	cfg     WorkerConfig
	queue   *Queue
	enabled atomic.Bool
}

// NewWorker builds a worker writing into queue. Capture starts enabled.
func NewWorker(cfg WorkerConfig, queue *Queue) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	w := &Worker{cfg: cfg, queue: queue}
	w.enabled.Store(true)
	return w
}

// SetEnabled toggles whether captured audio reaches the queue. The stream
// keeps running either way so re-enabling is instant.
func (w *Worker) SetEnabled(enabled bool) {
	w.enabled.Store(enabled)
}

// Run captures until the context ends. Device failures are logged and the
// stream is reopened after a short backoff.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		stream, err := w.cfg.Backend.Open(ctx, StreamRequest{
			Input:         w.cfg.Input,
			SampleRate:    w.cfg.SampleRate,
			FramesPerRead: w.cfg.ChunkSize,
		})
		if err != nil {
			w.cfg.Logger.Error("audio capture open failed",
				"backend", w.cfg.Backend.Name(),
				"input", w.cfg.Input,
				"error", err)
			if !sleepCtx(ctx, reopenBackoff) {
				return nil
			}
			continue
		}

		if stream.SampleRate() != w.cfg.SampleRate {
			w.cfg.Logger.Info("capture rate differs from target; resampling",
				"device_rate", stream.SampleRate(),
				"target_rate", w.cfg.SampleRate)
		}

		err = w.pump(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.cfg.Logger.Warn("audio capture interrupted; reopening",
				"backend", w.cfg.Backend.Name(),
				"error", err)
		}
		if !sleepCtx(ctx, reopenBackoff) {
			return nil
		}
	}
}

// pump reads frames from one open stream until it fails or the context ends.
func (w *Worker) pump(ctx context.Context, stream Stream) error {
	chunker := NewChunker(w.cfg.ChunkSize * 2)
	deviceRate := stream.SampleRate()
	defer func() {
		// An undersized tail is still audio the consumer should see.
		if rest := chunker.Flush(); len(rest) > 0 && w.enabled.Load() {
			w.queue.Push(rest)
		}
	}()

	for {
		samples, err := stream.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if !w.enabled.Load() {
			continue
		}

		if deviceRate != w.cfg.SampleRate {
			samples = Resample(samples, deviceRate, w.cfg.SampleRate)
		}

		for _, chunk := range chunker.Push(Int16ToBytes(samples)) {
			if discarded := w.queue.Push(chunk); discarded > 0 {
				w.cfg.Logger.Warn("audio queue overflow; discarded oldest chunks",
					"discarded", discarded,
					"limit", w.queue.limit)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
