package audio

// PreRoll is a bounded deque of the most recent capture chunks. It lets a
// recording start include audio from just before the trigger fired.
type PreRoll struct {
	chunks   [][]byte
	capacity int
}

// NewPreRoll builds a buffer holding at most capacity chunks. A capacity of
// zero or less keeps the buffer permanently empty.
func NewPreRoll(capacity int) *PreRoll {
	return &PreRoll{capacity: capacity}
}

// PreRollCapacity converts a duration in seconds to a chunk count for the
// given stream geometry.
func PreRollCapacity(sampleRate int, chunkSamples int, seconds float64) int {
	if sampleRate <= 0 || chunkSamples <= 0 || seconds <= 0 {
		return 0
	}
	chunksPerSecond := float64(sampleRate) / float64(chunkSamples)
	return int(chunksPerSecond * seconds)
}

// Push appends a chunk, evicting the oldest when full.
func (p *PreRoll) Push(chunk []byte) {
	if p.capacity <= 0 {
		return
	}
	p.chunks = append(p.chunks, chunk)
	if len(p.chunks) > p.capacity {
		p.chunks = p.chunks[1:]
	}
}

// Drain returns the buffered chunks oldest-first and empties the buffer.
func (p *PreRoll) Drain() [][]byte {
	out := p.chunks
	p.chunks = nil
	return out
}

// Snapshot returns the buffered chunks oldest-first without clearing them.
func (p *PreRoll) Snapshot() [][]byte {
	out := make([][]byte, len(p.chunks))
	copy(out, p.chunks)
	return out
}

// TrimNewestBytes removes whole chunks from the newest end until at least n
// bytes are gone. It is used to excise wake-word audio from the pre-roll.
func (p *PreRoll) TrimNewestBytes(n int) {
	removed := 0
	for removed < n && len(p.chunks) > 0 {
		last := len(p.chunks) - 1
		removed += len(p.chunks[last])
		p.chunks = p.chunks[:last]
	}
}

// Len reports the number of buffered chunks.
func (p *PreRoll) Len() int {
	return len(p.chunks)
}
