package vad

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFast struct {
	mu      sync.Mutex
	result  bool
	err     error
	calls   int
	closed  bool
}

func (f *fakeFast) IsSpeech([]byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakeFast) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeConfirm struct {
	mu     sync.Mutex
	result bool
	err    error
	calls  int
	resets int
	closed bool
	block  chan struct{} // when set, IsSpeech waits for it
}

func (f *fakeConfirm) IsSpeech([]byte) (bool, error) {
	f.mu.Lock()
	block := f.block
	f.calls++
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeConfirm) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeConfirm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConfirm) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDualInactiveUntilConfirmAgrees(t *testing.T) {
	fast := &fakeFast{result: true}
	confirm := &fakeConfirm{result: true}
	d := NewDual(fast, confirm, discardLogger())

	require.True(t, d.Feed([]byte{1, 2}))
	require.True(t, d.FastActive())

	// The confirm gate runs asynchronously; both gates eventually agree.
	require.Eventually(t, d.Active, time.Second, time.Millisecond)
}

func TestDualFastSilenceShortCircuits(t *testing.T) {
	fast := &fakeFast{result: false}
	confirm := &fakeConfirm{result: true}
	d := NewDual(fast, confirm, discardLogger())

	require.False(t, d.Feed([]byte{1, 2}))
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, confirm.callCount())
	require.False(t, d.Active())
}

func TestDualSingleConfirmInFlight(t *testing.T) {
	fast := &fakeFast{result: true}
	confirm := &fakeConfirm{result: true, block: make(chan struct{})}
	d := NewDual(fast, confirm, discardLogger())

	d.Feed([]byte{1})
	d.Feed([]byte{2})
	d.Feed([]byte{3})

	close(confirm.block)
	d.wg.Wait()
	require.Equal(t, 1, confirm.callCount())
}

func TestDualResetClearsState(t *testing.T) {
	fast := &fakeFast{result: true}
	confirm := &fakeConfirm{result: true}
	d := NewDual(fast, confirm, discardLogger())

	d.Feed([]byte{1})
	require.Eventually(t, d.Active, time.Second, time.Millisecond)

	d.Reset()
	require.False(t, d.Active())
	require.Equal(t, 1, confirm.resets)
}

func TestDualFastErrorTreatedAsSilence(t *testing.T) {
	fast := &fakeFast{err: errors.New("boom")}
	confirm := &fakeConfirm{result: true}
	d := NewDual(fast, confirm, discardLogger())

	require.False(t, d.Feed([]byte{1}))
	require.False(t, d.Active())
}

func TestDualCloseReleasesGates(t *testing.T) {
	fast := &fakeFast{}
	confirm := &fakeConfirm{}
	d := NewDual(fast, confirm, discardLogger())

	require.NoError(t, d.Close())
	require.True(t, fast.closed)
	require.True(t, confirm.closed)
}
