package audio

// Chunker re-slices an arbitrary byte stream into fixed-size chunks. It keeps
// the remainder between pushes so chunk boundaries never split samples.
type Chunker struct {
	size    int
	pending []byte
}

// NewChunker returns a chunker emitting chunks of exactly size bytes.
func NewChunker(size int) *Chunker {
	return &Chunker{size: size}
}

// Push appends data and returns every complete chunk now available, in order.
func (c *Chunker) Push(data []byte) [][]byte {
	c.pending = append(c.pending, data...)

	var chunks [][]byte
	for len(c.pending) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.pending[:c.size])
		c.pending = c.pending[c.size:]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Flush returns the buffered remainder, if any, and resets the chunker.
func (c *Chunker) Flush() []byte {
	if len(c.pending) == 0 {
		return nil
	}
	out := make([]byte, len(c.pending))
	copy(out, c.pending)
	c.pending = nil
	return out
}

