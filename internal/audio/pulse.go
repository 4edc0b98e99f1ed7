package audio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// PulseBackend captures through a PulseAudio (or PipeWire) server.
type PulseBackend struct{}

// Name identifies the backend in logs and diagnostics.
func (b *PulseBackend) Name() string { return "pulse" }

// Devices lists Pulse input sources with default metadata.
func (b *PulseBackend) Devices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:                source.SourceName,
			Description:       source.Device,
			MaxInputChannels:  int(source.SampleSpec.Channels),
			DefaultSampleRate: int(source.SampleSpec.Rate),
			Default:           source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// Open starts a mono s16 record stream on the resolved source.
func (b *PulseBackend) Open(ctx context.Context, req StreamRequest) (Stream, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := resolvePulseSource(ctx, b, client, req.Input)
	if err != nil {
		client.Close()
		return nil, err
	}

	rate := req.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	frames := req.FramesPerRead
	if frames <= 0 {
		frames = 512
	}

	s := &pulseStream{
		client: client,
		rate:   rate,
		frames: make(chan []int16, 128),
		stopCh: make(chan struct{}),
	}
	s.chunker = NewChunker(frames * 2)

	writer := pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE)
	record, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(rate),
		pulse.RecordBufferFragmentSize(uint32(frames*2)),
		pulse.RecordMediaName("hark capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	s.record = record
	record.Start()
	return s, nil
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("hark"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

func resolvePulseSource(ctx context.Context, b *PulseBackend, client *pulse.Client, input string) (*pulse.Source, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" || input == "default" {
		source, err := client.DefaultSource()
		if err != nil {
			return nil, fmt.Errorf("resolve default source: %w", err)
		}
		return source, nil
	}

	devices, err := b.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if deviceMatches(dev, input) {
			source, err := client.SourceByID(dev.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve source %q: %w", dev.ID, err)
			}
			return source, nil
		}
	}
	return nil, fmt.Errorf("audio.input %q did not match any pulse source", input)
}

// pulseStream adapts the pulse writer callback to blocking frame reads.
type pulseStream struct {
	client *pulse.Client
	record *pulse.RecordStream
	rate   int

	frames chan []int16
	stopCh chan struct{}

	mu      sync.Mutex
	chunker *Chunker
	stopped bool
}

func (s *pulseStream) SampleRate() int { return s.rate }

func (s *pulseStream) Read(ctx context.Context) ([]int16, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopCh:
		return nil, io.EOF
	case frame := <-s.frames:
		return frame, nil
	}
}

// Close halts the record stream exactly once. The frames channel is never
// closed: the pulse callback may still be sending when Close runs, so both
// sides rely on stopCh instead.
func (s *pulseStream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	if s.record != nil {
		s.record.Stop()
		s.record.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// onPCM receives raw frames from Pulse and emits fixed-size sample slices.
func (s *pulseStream) onPCM(buffer []byte) (int, error) {
	select {
	case <-s.stopCh:
		return 0, io.EOF
	default:
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	chunks := s.chunker.Push(buffer)
	s.mu.Unlock()

	for _, chunk := range chunks {
		select {
		case <-s.stopCh:
			return 0, io.EOF
		case s.frames <- BytesToInt16(chunk):
		}
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
