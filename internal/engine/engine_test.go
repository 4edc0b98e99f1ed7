package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/ipc"
)

type fakeTranscriber struct {
	text   string
	err    error
	upper  bool // echo the language uppercased instead of fixed text
	closed bool
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.upper {
		return strings.ToUpper(language), nil
	}
	return f.text, nil
}

func (f *fakeTranscriber) Close() error {
	f.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startClient wires a client to an in-process serve loop over net.Pipe.
func startClient(t *testing.T, transcriber Transcriber) (*Client, context.CancelFunc) {
	t.Helper()

	parentEnd, workerEnd := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	workerConn := ipc.NewConn(workerEnd)
	go func() {
		_ = workerConn.Send(ipc.Message{Kind: ipc.KindReady})
		_ = serve(ctx, workerConn, transcriber, testLogger())
	}()

	client := NewClient(config.EngineConfig{ReadyTimeout: 5}, testLogger())
	client.conn = ipc.NewConn(parentEnd)
	go client.readLoop()

	select {
	case <-client.readyCh:
	case <-time.After(time.Second):
		t.Fatal("worker never reported ready")
	}

	return client, func() {
		cancel()
		parentEnd.Close()
		workerEnd.Close()
	}
}

func TestClientTranscribeRoundTrip(t *testing.T) {
	client, stop := startClient(t, &fakeTranscriber{text: "hello world"})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := client.Transcribe(ctx, []byte{1, 2, 3, 4}, "en")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Zero(t, client.Pending())
}

func TestClientSubmitThenAwait(t *testing.T) {
	client, stop := startClient(t, &fakeTranscriber{upper: true})
	defer stop()

	require.NoError(t, client.Submit([]byte{1, 2}, "en"))
	require.Equal(t, 1, client.Pending())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := client.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "EN", text)
	require.Zero(t, client.Pending())
}

func TestClientTranscriptionErrorSurfaces(t *testing.T) {
	client, stop := startClient(t, &fakeTranscriber{err: errors.New("model exploded")})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Transcribe(ctx, []byte{1, 2}, "en")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model exploded")
}

func TestClientInterruptedInferenceYieldsEmptyText(t *testing.T) {
	client, stop := startClient(t, &fakeTranscriber{err: context.Canceled})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := client.Transcribe(ctx, []byte{1, 2}, "en")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestServeExitsOnPeerEOF(t *testing.T) {
	parentEnd, workerEnd := net.Pipe()
	workerConn := ipc.NewConn(workerEnd)

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), workerConn, &fakeTranscriber{}, testLogger())
	}()

	parentEnd.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not exit after peer close")
	}
}

func TestServeExitsOnShutdownMessage(t *testing.T) {
	parentEnd, workerEnd := net.Pipe()
	parentConn := ipc.NewConn(parentEnd)
	workerConn := ipc.NewConn(workerEnd)

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), workerConn, &fakeTranscriber{}, testLogger())
	}()

	require.NoError(t, parentConn.Send(ipc.Message{Kind: ipc.KindShutdown}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("serve did not exit after shutdown")
	}
}

func TestAwaitFailsWhenWorkerVanishes(t *testing.T) {
	client, stop := startClient(t, &fakeTranscriber{text: "x"})
	stop() // kill the pipe before awaiting

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.Await(ctx)
	require.Error(t, err)
}
