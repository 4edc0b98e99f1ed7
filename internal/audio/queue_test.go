package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(10, true)
	q.Push([]byte{1})
	q.Push([]byte{2})

	first, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, []byte{1}, first)

	second, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, []byte{2}, second)

	_, ok = q.TryPop()
	require.False(t, ok)
}

func TestQueueTrimsOldestPastLimit(t *testing.T) {
	q := NewQueue(2, true)
	q.Push([]byte{1})
	q.Push([]byte{2})
	discarded := q.Push([]byte{3})

	require.Equal(t, 1, discarded)
	require.Equal(t, int64(1), q.Dropped())
	require.Equal(t, 2, q.Len())

	oldest, _ := q.TryPop()
	require.Equal(t, []byte{2}, oldest)
}

func TestQueueGrowsWhenTrimDisabled(t *testing.T) {
	q := NewQueue(2, false)
	for i := 0; i < 10; i++ {
		require.Zero(t, q.Push([]byte{byte(i)}))
	}
	require.Equal(t, 10, q.Len())
	require.Zero(t, q.Dropped())
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(10, true)

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push([]byte{42})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	chunk, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{42}, chunk)
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewQueue(10, true)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueClear(t *testing.T) {
	q := NewQueue(10, true)
	q.Push([]byte{1})
	q.Push([]byte{2})
	q.Clear()
	require.Zero(t, q.Len())
}
