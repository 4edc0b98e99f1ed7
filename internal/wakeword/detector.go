// Package wakeword provides keyword spotting used to gate recording. Two
// engines are supported: Porcupine built-in keywords and ONNX keyword models.
package wakeword

import (
	"fmt"
	"strings"

	"github.com/harkaudio/hark/internal/config"
)

// Detector spots wake words in fixed-length PCM frames.
type Detector interface {
	// Process consumes exactly FrameLength samples and returns the index of
	// the detected wake word, or a negative value when none fired.
	Process(frame []int16) (int, error)
	// FrameLength is the sample count each Process call requires.
	FrameLength() int
	// SampleRate is the PCM rate the engine expects.
	SampleRate() int
	Close() error
}

// New builds the detector selected by wake.backend, or nil when wake-word
// gating is disabled.
func New(cfg config.WakeConfig) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "porcupine":
		return NewPorcupine(cfg.AccessKey, cfg.Words, cfg.Sensitivity)
	case "onnx":
		return NewONNX(cfg.ModelPaths, cfg.Sensitivity)
	default:
		return nil, fmt.Errorf("unknown wake backend %q", cfg.Backend)
	}
}
