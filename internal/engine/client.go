package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/ipc"
)

const killGrace = 3 * time.Second

// Client owns the transcription worker process. Requests are asynchronous:
// Submit sends audio immediately and Await collects results in order, so the
// recorder can start inference on a hot take of the audio while capture
// continues.
type Client struct {
	cfg    config.EngineConfig
	logger *slog.Logger

	socketPath string
	cmd        *exec.Cmd
	waitCh     chan error
	conn       *ipc.Conn

	results chan ipc.Message
	readyCh chan struct{}
	done    chan struct{}

	pending   atomic.Int32
	closeOnce sync.Once
}

// NewClient builds an unstarted client.
func NewClient(cfg config.EngineConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		results: make(chan ipc.Message, 8),
		readyCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker process and blocks until it reports ready or
// engine.ready_timeout elapses. By default the worker is this same binary
// re-executed with the hidden engine-worker command; engine.binary overrides
// that for custom workers speaking the same protocol.
func (c *Client) Start(ctx context.Context) error {
	c.socketPath = ipc.EngineSocketPath(os.Getpid())
	listener, err := ipc.Listen(c.socketPath)
	if err != nil {
		return err
	}

	argv, err := c.workerArgv()
	if err != nil {
		listener.Close()
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		listener.Close()
		return fmt.Errorf("start engine worker: %w", err)
	}
	c.cmd = cmd
	c.waitCh = make(chan error, 1)
	go func() { c.waitCh <- cmd.Wait() }()

	readyTimeout := time.Duration(c.cfg.ReadyTimeout * float64(time.Second))
	acceptCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	conn, err := ipc.AcceptOne(acceptCtx, listener)
	listener.Close()
	if err != nil {
		c.kill()
		return fmt.Errorf("engine worker did not connect: %w", err)
	}
	c.conn = conn
	go c.readLoop()

	select {
	case <-c.readyCh:
		return nil
	case <-c.done:
		c.kill()
		return errors.New("engine worker disconnected before becoming ready")
	case err := <-c.waitCh:
		return fmt.Errorf("engine worker exited during startup: %v", err)
	case <-acceptCtx.Done():
		c.kill()
		return fmt.Errorf("engine worker not ready within %s", readyTimeout)
	}
}

func (c *Client) workerArgv() ([]string, error) {
	argv := c.cfg.Binary.Argv
	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve own executable: %w", err)
		}
		argv = []string{exe, "engine-worker"}
	}
	return append(append([]string(nil), argv...), "--socket", c.socketPath), nil
}

// readLoop drains worker messages: results queue up for Await, forwarded log
// records go straight to the logger.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		msg, err := c.conn.Recv()
		if err != nil {
			return
		}
		switch msg.Kind {
		case ipc.KindReady:
			select {
			case <-c.readyCh:
			default:
				close(c.readyCh)
			}
		case ipc.KindLog:
			c.logger.Info("engine worker log", "level", msg.Level, "record", msg.Record)
		case ipc.KindResult:
			c.results <- msg
		}
	}
}

// Submit sends one transcription request without waiting for the result.
func (c *Client) Submit(pcm []byte, language string) error {
	select {
	case <-c.done:
		return errors.New("engine worker connection lost")
	default:
	}

	c.pending.Add(1)
	if err := c.conn.Send(ipc.Message{Kind: ipc.KindTranscribe, Audio: pcm, Language: language}); err != nil {
		c.pending.Add(-1)
		return err
	}
	return nil
}

// Await blocks for the next result. Results arrive in submission order.
func (c *Client) Await(ctx context.Context) (string, error) {
	select {
	case msg := <-c.results:
		c.pending.Add(-1)
		if !msg.OK {
			return "", fmt.Errorf("transcription failed: %s", msg.Error)
		}
		return msg.Text, nil
	case <-c.done:
		return "", errors.New("engine worker connection lost")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Transcribe is the synchronous convenience wrapper over Submit and Await.
func (c *Client) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if err := c.Submit(pcm, language); err != nil {
		return "", err
	}
	return c.Await(ctx)
}

// Pending reports submitted requests whose results have not been collected.
func (c *Client) Pending() int {
	return int(c.pending.Load())
}

// Close asks the worker to exit, waits briefly, and kills it if it lingers.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Send(ipc.Message{Kind: ipc.KindShutdown})
		}

		if c.waitCh != nil {
			select {
			case <-c.waitCh:
			case <-time.After(killGrace):
				c.logger.Warn("engine worker did not exit; killing")
				c.kill()
				<-c.waitCh
			}
		}

		if c.conn != nil {
			_ = c.conn.Close()
		}
		if c.socketPath != "" {
			_ = os.Remove(c.socketPath)
		}
	})
	return nil
}

func (c *Client) kill() {
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
}
