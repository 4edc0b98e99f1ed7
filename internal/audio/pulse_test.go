package audio

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPulseStream() *pulseStream {
	s := &pulseStream{
		rate:   16000,
		frames: make(chan []int16, 4),
		stopCh: make(chan struct{}),
	}
	s.chunker = NewChunker(32)
	return s
}

func TestPulseStreamCloseRacesCallback(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := newTestPulseStream()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 64)
			for {
				if _, err := s.onPCM(buf); err == io.EOF {
					return
				}
			}
		}()

		require.NoError(t, s.Close())
		wg.Wait()
	}
}

func TestPulseStreamReadAfterClose(t *testing.T) {
	s := newTestPulseStream()
	require.NoError(t, s.Close())

	_, err := s.Read(context.Background())
	require.ErrorIs(t, err, io.EOF)

	// Closing twice is safe.
	require.NoError(t, s.Close())
}

func TestPulseStreamCallbackAfterCloseReportsEOF(t *testing.T) {
	s := newTestPulseStream()
	require.NoError(t, s.Close())

	_, err := s.onPCM(make([]byte, 64))
	require.ErrorIs(t, err, io.EOF)
}
