// Package engine runs speech-to-text in a separate worker process and gives
// the recorder an asynchronous client for it. Keeping inference out of
// process isolates the capture loop from model crashes and GIL-style stalls
// in native inference libraries.
package engine

import "context"

// Transcriber converts 16kHz mono PCM16 audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, language string) (string, error)
	Close() error
}
