// Package audio handles device discovery, PCM capture, and chunk plumbing.
package audio

import (
	"context"
	"fmt"
	"strings"
)

// Backend opens PCM input streams from one audio subsystem.
type Backend interface {
	Name() string
	Open(ctx context.Context, req StreamRequest) (Stream, error)
	Devices(ctx context.Context) ([]Device, error)
}

// StreamRequest describes the capture stream the caller wants. The backend
// may substitute a different sample rate when the hardware rejects the
// requested one; callers must check Stream.SampleRate.
type StreamRequest struct {
	Input         string
	SampleRate    int
	FramesPerRead int
}

// Stream is one open mono 16-bit capture stream.
type Stream interface {
	SampleRate() int
	Read(ctx context.Context) ([]int16, error)
	Close() error
}

// Device describes one input source surfaced to diagnostics and selection.
type Device struct {
	ID                string
	Description       string
	MaxInputChannels  int
	DefaultSampleRate int
	Default           bool
}

// NewBackend constructs the configured capture backend.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "portaudio":
		return &PortAudioBackend{}, nil
	case "pulse":
		return &PulseBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// candidateRates returns the probe order for opening a capture stream: the
// requested rate first, then the device's native rate, then 48kHz.
func candidateRates(requested int, deviceDefault int) []int {
	rates := make([]int, 0, 3)
	seen := make(map[int]bool)
	for _, rate := range []int{requested, deviceDefault, 48000} {
		if rate <= 0 || seen[rate] {
			continue
		}
		seen[rate] = true
		rates = append(rates, rate)
	}
	return rates
}
