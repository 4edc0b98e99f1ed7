package wakeword

import (
	"fmt"
	"strings"

	porcupine "github.com/Picovoice/porcupine/binding/go/v2"
)

// Porcupine wraps the Picovoice engine for built-in keywords.
type Porcupine struct {
	engine porcupine.Porcupine
	words  []string
}

// NewPorcupine initializes the engine with one shared sensitivity across all
// keywords, matching how a single wake.sensitivity knob is exposed.
func NewPorcupine(accessKey string, words []string, sensitivity float64) (*Porcupine, error) {
	if len(words) == 0 {
		return nil, fmt.Errorf("porcupine requires at least one wake word")
	}

	keywords := make([]porcupine.BuiltInKeyword, len(words))
	sensitivities := make([]float32, len(words))
	for i, word := range words {
		keywords[i] = porcupine.BuiltInKeyword(strings.ToLower(strings.TrimSpace(word)))
		sensitivities[i] = float32(sensitivity)
	}

	p := &Porcupine{
		engine: porcupine.Porcupine{
			AccessKey:       accessKey,
			BuiltInKeywords: keywords,
			Sensitivities:   sensitivities,
		},
		words: words,
	}
	if err := p.engine.Init(); err != nil {
		return nil, fmt.Errorf("init porcupine engine: %w", err)
	}
	return p, nil
}

// Process checks one frame for any configured keyword.
func (p *Porcupine) Process(frame []int16) (int, error) {
	index, err := p.engine.Process(frame)
	if err != nil {
		return -1, fmt.Errorf("porcupine process: %w", err)
	}
	return index, nil
}

// FrameLength returns the engine's fixed frame size.
func (p *Porcupine) FrameLength() int {
	return porcupine.FrameLength
}

// SampleRate returns the engine's required PCM rate.
func (p *Porcupine) SampleRate() int {
	return porcupine.SampleRate
}

// Words returns the configured keywords in index order.
func (p *Porcupine) Words() []string {
	return p.words
}

// Close releases the engine.
func (p *Porcupine) Close() error {
	return p.engine.Delete()
}
