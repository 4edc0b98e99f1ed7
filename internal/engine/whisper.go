package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/harkaudio/hark/internal/audio"
)

// Whisper transcribes with the whisper.cpp bindings. The model loads once;
// each call gets a fresh context because contexts are not reusable across
// concurrent inferences.
type Whisper struct {
	model    whisperlib.Model
	language string
}

// NewWhisper loads the ggml model from path. The language is the default for
// requests that do not carry one; "auto" enables language detection.
func NewWhisper(modelPath string, language string) (*Whisper, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("engine.model_path is not configured")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", modelPath, err)
	}
	return &Whisper{model: model, language: language}, nil
}

// Warmup runs one inference over a second of silence so the first real
// request does not pay model initialization latency.
func (w *Whisper) Warmup(ctx context.Context) error {
	silence := make([]byte, 16000*2)
	_, err := w.Transcribe(ctx, silence, w.language)
	return err
}

// Transcribe runs one inference and returns the joined segment text.
func (w *Whisper) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	samples := audio.Int16ToFloat32(audio.BytesToInt16(pcm))

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}

	if language == "" {
		language = w.language
	}
	if language != "" {
		if err := wctx.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language %q: %w", language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read whisper segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the model.
func (w *Whisper) Close() error {
	return w.model.Close()
}
