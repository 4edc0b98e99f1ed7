package wakeword

import "github.com/harkaudio/hark/internal/audio"

// Framer adapts arbitrary capture chunks to the detector's fixed frame size,
// buffering the remainder between feeds.
type Framer struct {
	detector Detector
	pending  []int16
}

// NewFramer wraps a detector.
func NewFramer(detector Detector) *Framer {
	return &Framer{detector: detector}
}

// Feed consumes one PCM16 chunk and runs the detector over every complete
// frame now available. It returns the first detected wake-word index, or -1.
func (f *Framer) Feed(chunk []byte) (int, error) {
	f.pending = append(f.pending, audio.BytesToInt16(chunk)...)

	frameLen := f.detector.FrameLength()
	for len(f.pending) >= frameLen {
		frame := f.pending[:frameLen]
		f.pending = f.pending[frameLen:]

		index, err := f.detector.Process(frame)
		if err != nil {
			return -1, err
		}
		if index >= 0 {
			f.pending = nil
			return index, nil
		}
	}
	return -1, nil
}

// Reset drops buffered samples, e.g. when leaving the wake-word state.
func (f *Framer) Reset() {
	f.pending = nil
}
