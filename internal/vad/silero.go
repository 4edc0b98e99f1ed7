package vad

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/harkaudio/hark/internal/audio"
)

// Silero is the confirm gate backed by the Silero VAD ONNX model. Higher
// sensitivity lowers the detection threshold.
type Silero struct {
	mu       sync.Mutex
	detector *speech.Detector
}

// NewSilero loads the model. Sensitivity must be within [0, 1].
func NewSilero(modelPath string, sampleRate int, sensitivity float64) (*Silero, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("silero vad model path is empty")
	}
	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: sampleRate,
		Threshold:  float32(1.0 - sensitivity),
	})
	if err != nil {
		return nil, fmt.Errorf("load silero vad model %s: %w", modelPath, err)
	}
	return &Silero{detector: detector}, nil
}

// IsSpeech runs the model over one chunk and reports whether any speech
// segment was detected.
func (s *Silero) IsSpeech(chunk []byte) (bool, error) {
	samples := audio.Int16ToFloat32(audio.BytesToInt16(chunk))

	s.mu.Lock()
	defer s.mu.Unlock()
	segments, err := s.detector.Detect(samples)
	if err != nil {
		return false, fmt.Errorf("silero vad detect: %w", err)
	}
	return len(segments) > 0, nil
}

// Reset clears the model's internal state between recordings.
func (s *Silero) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.detector.Reset(); err != nil {
		return fmt.Errorf("reset silero vad: %w", err)
	}
	return nil
}

// Close releases the ONNX session.
func (s *Silero) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.detector.Destroy(); err != nil {
		return fmt.Errorf("destroy silero vad: %w", err)
	}
	return nil
}
