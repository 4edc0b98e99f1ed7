package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EngineSocketPath returns a per-process socket path for the engine channel,
// preferring $XDG_RUNTIME_DIR and falling back to the system temp dir.
func EngineSocketPath(pid int) string {
	name := fmt.Sprintf("hark-engine-%d.sock", pid)
	if runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); runtimeDir != "" {
		return filepath.Join(runtimeDir, name)
	}
	return filepath.Join(os.TempDir(), name)
}

// Listen binds the unix socket, replacing a stale file left by a previous
// process. The socket path is per-pid so an existing file is never live.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure socket dir: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err == nil {
		_ = os.Chmod(path, 0o600)
		return listener, nil
	}
	if !isAddrInUse(err) {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}

	if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
	}
	listener, err = net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}

// AcceptOne waits for a single connection, honoring the context.
func AcceptOne(ctx context.Context, listener net.Listener) (*Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := listener.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		listener.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("accept engine connection: %w", r.err)
		}
		return NewConn(r.conn), nil
	}
}

// Dial connects to the socket, retrying until it appears or the context ends.
// The listener side may not have bound yet when the peer process starts.
func Dial(ctx context.Context, path string) (*Conn, error) {
	dialer := net.Dialer{}
	for {
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return NewConn(conn), nil
		}
		if !errors.Is(err, os.ErrNotExist) && !isConnectionRefused(err) {
			return nil, fmt.Errorf("dial engine socket %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func isAddrInUse(err error) bool {
	return err != nil && strings.Contains(err.Error(), "address already in use")
}

func isConnectionRefused(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}
