package audio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudioBackend captures through PortAudio, the default backend.
type PortAudioBackend struct{}

// Name identifies the backend in logs and diagnostics.
func (b *PortAudioBackend) Name() string { return "portaudio" }

// Devices lists PortAudio input devices.
func (b *PortAudioBackend) Devices(_ context.Context) ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	defaultInput, _ := portaudio.DefaultInputDevice()

	devices := make([]Device, 0, len(infos))
	for i, info := range infos {
		if info == nil || info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			ID:                strconv.Itoa(i),
			Description:       info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: int(info.DefaultSampleRate),
			Default:           defaultInput != nil && info.Name == defaultInput.Name,
		})
	}
	return devices, nil
}

// Open resolves the requested input device and starts a capture stream,
// probing sample rates until one the hardware accepts is found.
func (b *PortAudioBackend) Open(_ context.Context, req StreamRequest) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	info, err := resolvePortAudioDevice(req.Input)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	frames := req.FramesPerRead
	if frames <= 0 {
		frames = 512
	}

	var lastErr error
	for _, rate := range candidateRates(req.SampleRate, int(info.DefaultSampleRate)) {
		for _, channels := range []int{1, 2} {
			if channels > info.MaxInputChannels {
				continue
			}
			stream, err := openPortAudioStream(info, rate, channels, frames)
			if err != nil {
				lastErr = err
				continue
			}
			return stream, nil
		}
	}

	portaudio.Terminate()
	if lastErr == nil {
		lastErr = errors.New("no usable sample rate")
	}
	return nil, fmt.Errorf("open capture on %q: %w", info.Name, lastErr)
}

func resolvePortAudioDevice(input string) (*portaudio.DeviceInfo, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" || input == "default" {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("resolve default input device: %w", err)
		}
		return info, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	for i, info := range infos {
		if info == nil || info.MaxInputChannels <= 0 {
			continue
		}
		if strconv.Itoa(i) == input || strings.Contains(strings.ToLower(info.Name), input) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("audio.input %q did not match any input device", input)
}

func openPortAudioStream(info *portaudio.DeviceInfo, rate int, channels int, frames int) (*portAudioStream, error) {
	buf := make([]int16, frames*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: frames,
	}

	stream, err := portaudio.OpenStream(params, &buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	s := &portAudioStream{stream: stream, buf: buf, rate: rate, channels: channels}

	// Trial read to confirm the rate/channel combination actually delivers.
	if _, err := s.Read(context.Background()); err != nil {
		s.closeStream()
		return nil, err
	}
	return s, nil
}

type portAudioStream struct {
	stream   *portaudio.Stream
	buf      []int16
	rate     int
	channels int
	closed   bool
}

func (s *portAudioStream) SampleRate() int { return s.rate }

func (s *portAudioStream) Read(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("read portaudio stream: %w", err)
	}

	samples := make([]int16, len(s.buf))
	copy(samples, s.buf)
	if s.channels == 2 {
		samples = DownmixStereo(samples)
	}
	return samples, nil
}

func (s *portAudioStream) Close() error {
	s.closeStream()
	return nil
}

func (s *portAudioStream) closeStream() {
	if s.closed {
		return
	}
	s.closed = true
	s.stream.Stop()
	s.stream.Close()
	portaudio.Terminate()
}
