package audio

import (
	"context"
	"sync"
)

// Queue is the unbounded chunk queue between capture and the recorder loop.
// When trimming is enabled and the backlog exceeds the limit, the oldest
// chunks are discarded so the consumer always sees recent audio.
type Queue struct {
	mu      sync.Mutex
	items   [][]byte
	limit   int
	trim    bool
	dropped int64
	notify  chan struct{}
}

// NewQueue builds a queue with the given backlog limit. The limit is only
// enforced when trimOldest is set.
func NewQueue(limit int, trimOldest bool) *Queue {
	return &Queue{
		limit:  limit,
		trim:   trimOldest,
		notify: make(chan struct{}, 1),
	}
}

// Push enqueues one chunk, trimming the oldest entries past the limit.
// It reports how many chunks were discarded by this push.
func (q *Queue) Push(chunk []byte) int {
	q.mu.Lock()
	q.items = append(q.items, chunk)

	discarded := 0
	if q.trim {
		for len(q.items) > q.limit {
			q.items = q.items[1:]
			discarded++
		}
		q.dropped += int64(discarded)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return discarded
}

// Pop blocks until a chunk is available or the context ends.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	for {
		if chunk, ok := q.TryPop(); ok {
			return chunk, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// TryPop returns the oldest chunk without blocking.
func (q *Queue) TryPop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	chunk := q.items[0]
	q.items = q.items[1:]
	return chunk, true
}

// Clear discards all queued chunks.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Len reports the current backlog.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports the total chunks discarded by overflow trimming.
func (q *Queue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
