package vad

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtc-vad"
)

// WebRTC is the fast gate. It slices each chunk into 10ms frames; speech
// onset uses any-frame voting while end-of-speech uses the stricter
// every-frame voting.
type WebRTC struct {
	vad        *webrtcvad.VAD
	sampleRate int
	frameBytes int
}

// NewWebRTC builds the gate. Sensitivity is the WebRTC aggressiveness mode,
// 0 (most permissive) through 3 (most aggressive filtering).
func NewWebRTC(sampleRate int, sensitivity int) (*WebRTC, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("create webrtc vad: %w", err)
	}
	if err := v.SetMode(sensitivity); err != nil {
		return nil, fmt.Errorf("set webrtc vad mode %d: %w", sensitivity, err)
	}
	return &WebRTC{
		vad:        v,
		sampleRate: sampleRate,
		frameBytes: sampleRate / 100 * 2, // 10ms of s16 mono
	}, nil
}

// IsSpeech reports speech when any complete 10ms frame in the chunk is
// voiced. Trailing bytes short of a frame are ignored.
func (w *WebRTC) IsSpeech(chunk []byte) (bool, error) {
	voiced, frames, err := w.count(chunk)
	if err != nil {
		return false, err
	}
	return frames > 0 && voiced > 0, nil
}

// IsSpeechAllFrames reports speech only when every complete frame is voiced.
func (w *WebRTC) IsSpeechAllFrames(chunk []byte) (bool, error) {
	voiced, frames, err := w.count(chunk)
	if err != nil {
		return false, err
	}
	return frames > 0 && voiced == frames, nil
}

func (w *WebRTC) count(chunk []byte) (voiced int, frames int, err error) {
	for offset := 0; offset+w.frameBytes <= len(chunk); offset += w.frameBytes {
		frames++
		active, err := w.vad.Process(w.sampleRate, chunk[offset:offset+w.frameBytes])
		if err != nil {
			return 0, 0, fmt.Errorf("webrtc vad process: %w", err)
		}
		if active {
			voiced++
		}
	}
	return voiced, frames, nil
}

// Close releases nothing today but keeps the gate symmetric with the
// model-backed detectors.
func (w *WebRTC) Close() error {
	return nil
}
