// Package recorder drives the capture lifecycle: it consumes audio chunks,
// gates them through voice activity and wake-word detection, manages the
// recording state machine, and hands finished recordings to the
// transcription engine.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harkaudio/hark/internal/audio"
	"github.com/harkaudio/hark/internal/config"
	"github.com/harkaudio/hark/internal/fsm"
	"github.com/harkaudio/hark/internal/transcript"
	"github.com/harkaudio/hark/internal/vad"
	"github.com/harkaudio/hark/internal/wakeword"
)

// ErrAborted is returned to waiters when Abort cancels the current cycle.
var ErrAborted = errors.New("recording aborted")

// resumeChunkSamples is the chunk size used when backdated audio is
// re-queued into the pre-roll buffer for the next recording.
const resumeChunkSamples = 2048

// paddingSeconds of silence surround every recording sent to the engine;
// whisper-style models truncate words at the clip edges without it.
const paddingSeconds = 1.0

// Engine is the transcription channel the recorder submits audio to.
// engine.Client implements it; tests substitute fakes.
type Engine interface {
	Submit(pcm []byte, language string) error
	Await(ctx context.Context) (string, error)
	Pending() int
	Close() error
}

// Callbacks notify the embedding application of lifecycle events. All fields
// are optional and are invoked from the decision loop goroutine.
type Callbacks struct {
	OnRecordingStart func()
	OnRecordingStop  func()

	OnVadDetectStart func()
	OnVadDetectStop  func()

	OnWakewordDetectionStart func()
	OnWakewordDetectionEnd   func()
	OnWakewordDetected       func(index int, word string)
	OnWakewordTimeout        func()

	OnTranscriptionStart func()

	// OnRecordedChunk receives every chunk appended to an active recording.
	OnRecordedChunk func(chunk []byte)
}

// Deps carries the recorder's collaborators. Queue is required; the rest may
// be nil to disable the corresponding feature.
type Deps struct {
	Queue   *audio.Queue
	Capture *audio.Worker

	Dual     *vad.Dual
	StopGate func(chunk []byte) (bool, error)

	WakeDetector wakeword.Detector
	WakeWords    []string

	Engine Engine
	Logger *slog.Logger
}

// Recorder is the speech-capture engine facade.
type Recorder struct {
	cfg     config.Config
	logger  *slog.Logger
	cb      Callbacks
	machine *fsm.Machine

	queue    *audio.Queue
	capture  *audio.Worker
	dual     *vad.Dual
	stopGate func(chunk []byte) (bool, error)

	wake      *wakeword.Framer
	wakeImpl  wakeword.Detector
	wakeWords []string

	engine Engine

	feedMu sync.Mutex
	feed   *audio.Chunker

	mu             sync.Mutex
	preRoll        *audio.PreRoll
	frames         [][]byte
	lastAudio      []byte
	recording      bool
	recordingStart time.Time
	recordingStop  time.Time
	listenStart    time.Time
	silenceStart   time.Time
	startOnVoice   bool
	wakeDetected   bool
	wakeDetectAt   time.Time
	earlySubmitted bool

	startedCh chan struct{}
	stoppedCh chan struct{}
	abortedCh chan struct{}

	now func() time.Time

	closeOnce sync.Once
}

// New assembles a recorder from configuration and collaborators.
func New(cfg config.Config, deps Deps, callbacks Callbacks) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		cfg:       cfg,
		logger:    logger,
		cb:        callbacks,
		queue:     deps.Queue,
		capture:   deps.Capture,
		dual:      deps.Dual,
		stopGate:  deps.StopGate,
		wakeImpl:  deps.WakeDetector,
		wakeWords: deps.WakeWords,
		engine:    deps.Engine,
		feed:      audio.NewChunker(cfg.ChunkSize * 2),
		preRoll: audio.NewPreRoll(audio.PreRollCapacity(
			cfg.SampleRate, cfg.ChunkSize, cfg.Recording.PreRecordingBufferDuration)),
		startedCh: make(chan struct{}),
		stoppedCh: make(chan struct{}),
		abortedCh: make(chan struct{}),
		now:       time.Now,
	}
	if deps.WakeDetector != nil {
		r.wake = wakeword.NewFramer(deps.WakeDetector)
	}

	r.machine = fsm.New(fsm.Callbacks{
		OnListenStart:        callbacks.OnVadDetectStart,
		OnListenStop:         callbacks.OnVadDetectStop,
		OnWakewordStart:      callbacks.OnWakewordDetectionStart,
		OnWakewordEnd:        callbacks.OnWakewordDetectionEnd,
		OnTranscriptionStart: callbacks.OnTranscriptionStart,
	})
	return r
}

// State exposes the current lifecycle state.
func (r *Recorder) State() fsm.State {
	return r.machine.State()
}

// Listen arms voice-triggered recording and begins a fresh capture cycle.
func (r *Recorder) Listen() {
	r.mu.Lock()
	r.startedCh = make(chan struct{})
	r.stoppedCh = make(chan struct{})
	r.abortedCh = make(chan struct{})
	r.startOnVoice = true
	r.wakeDetected = false
	r.listenStart = r.now()
	r.mu.Unlock()

	if r.dual != nil {
		r.dual.Reset()
	}
	if r.wake != nil {
		r.wake.Reset()
	}
	if err := r.machine.Set(fsm.StateListening); err != nil {
		r.logger.Error("enter listening failed", "error", err)
	}
}

// Wakeup restarts the wake-word activation delay window, as if listening had
// just begun.
func (r *Recorder) Wakeup() {
	r.mu.Lock()
	r.listenStart = r.now()
	r.mu.Unlock()
}

// Start begins recording immediately, bypassing voice and wake-word gates.
// It fails when the minimum gap since the previous recording has not passed.
func (r *Recorder) Start() error {
	if !r.startRecording() {
		return fmt.Errorf("recording not started: min gap of %.2fs not met",
			r.cfg.Recording.MinGapBetweenRecordings)
	}
	return nil
}

// Stop ends the active recording. backdateStop shifts the effective stop
// time into the past, trimming that much trailing audio; backdateResume
// re-queues that much tail audio so the next recording can resume from it.
// Stopping is refused while the recording is shorter than the configured
// minimum length.
func (r *Recorder) Stop(backdateStop float64, backdateResume float64) error {
	if !r.stopRecording(backdateStop, backdateResume) {
		return fmt.Errorf("recording not stopped: min length of %.2fs not met",
			r.cfg.Recording.MinLengthOfRecording)
	}
	return nil
}

// Abort cancels the in-flight cycle: recording state is dropped and any
// WaitAudio or Text callers return ErrAborted.
func (r *Recorder) Abort() {
	r.mu.Lock()
	r.startOnVoice = false
	r.wakeDetected = false
	r.recording = false
	r.frames = nil
	r.earlySubmitted = false
	select {
	case <-r.abortedCh:
	default:
		close(r.abortedCh)
	}
	r.mu.Unlock()

	if err := r.machine.Set(fsm.StateInactive); err != nil {
		r.logger.Error("abort transition failed", "error", err)
	}
}

// WaitAudio blocks until one full recording cycle completes: speech starts,
// speech ends, and the audio is assembled. It arms listening if needed.
func (r *Recorder) WaitAudio(ctx context.Context) error {
	r.mu.Lock()
	armed := r.startOnVoice || r.recording
	started, stopped, aborted := r.startedCh, r.stoppedCh, r.abortedCh
	r.mu.Unlock()

	if !armed {
		r.Listen()
		r.mu.Lock()
		started, stopped, aborted = r.startedCh, r.stoppedCh, r.abortedCh
		r.mu.Unlock()
	}

	select {
	case <-started:
	case <-aborted:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-stopped:
		return nil
	case <-aborted:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transcribe sends the last completed recording to the engine and returns
// the cleaned transcript. When an early transcription for the same audio is
// already in flight its result is reused.
func (r *Recorder) Transcribe(ctx context.Context) (string, error) {
	if err := r.machine.Set(fsm.StateTranscribing); err != nil {
		return "", err
	}
	defer func() {
		if err := r.machine.Set(fsm.StateInactive); err != nil {
			r.logger.Error("leave transcribing failed", "error", err)
		}
	}()

	r.mu.Lock()
	pcm := append([]byte(nil), r.lastAudio...)
	useEarly := r.earlySubmitted
	r.earlySubmitted = false
	aborted := r.abortedCh
	r.mu.Unlock()

	// Superseded early submissions and results orphaned by an abort are
	// still queued in the engine; drain them so the next result collected
	// belongs to this recording.
	keep := 0
	if useEarly {
		keep = 1
	}
	for r.engine.Pending() > keep {
		if _, err := r.await(ctx, aborted); err != nil {
			return "", err
		}
	}

	if !useEarly {
		if err := r.engine.Submit(r.pad(pcm), r.cfg.Language); err != nil {
			return "", err
		}
	}

	text, err := r.await(ctx, aborted)
	if err != nil {
		return "", err
	}
	return transcript.Clean(text, r.cfg.Transcript, false), nil
}

// await collects one engine result, abandoning the wait when the current
// cycle is aborted. An abandoned result stays queued in the engine and is
// drained by the next Transcribe.
func (r *Recorder) await(ctx context.Context, aborted <-chan struct{}) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-aborted:
			cancel()
		case <-ctx.Done():
		}
	}()

	text, err := r.engine.Await(ctx)
	if err != nil {
		select {
		case <-aborted:
			return "", ErrAborted
		default:
		}
		return "", err
	}
	return text, nil
}

// Text runs one full capture-and-transcribe cycle.
func (r *Recorder) Text(ctx context.Context) (string, error) {
	if err := r.WaitAudio(ctx); err != nil {
		return "", err
	}
	return r.Transcribe(ctx)
}

// FeedAudio injects external PCM16 audio into the pipeline, resampled from
// sourceRate and re-chunked to the configured chunk size. It serves
// push-style sources such as network streams when the microphone is
// disabled.
func (r *Recorder) FeedAudio(pcm []byte, sourceRate int) {
	if sourceRate > 0 && sourceRate != r.cfg.SampleRate {
		samples := audio.Resample(audio.BytesToInt16(pcm), sourceRate, r.cfg.SampleRate)
		pcm = audio.Int16ToBytes(samples)
	}

	r.feedMu.Lock()
	chunks := r.feed.Push(pcm)
	r.feedMu.Unlock()

	for _, chunk := range chunks {
		r.queue.Push(chunk)
	}
}

// SetMicrophone toggles whether captured microphone audio enters the queue.
func (r *Recorder) SetMicrophone(enabled bool) {
	if r.capture != nil {
		r.capture.SetEnabled(enabled)
	}
}

// ClearAudioQueue discards all buffered, unprocessed audio, including the
// pre-roll, so stale input is never replayed into a new cycle.
func (r *Recorder) ClearAudioQueue() {
	r.queue.Clear()
	r.mu.Lock()
	r.preRoll.Drain()
	r.mu.Unlock()
}

// LastTranscriptionAudio returns a copy of the most recent assembled
// recording, without the silence padding.
func (r *Recorder) LastTranscriptionAudio() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.lastAudio...)
}

// Shutdown releases the engine and detection resources. The decision loop
// stops when its context is canceled.
func (r *Recorder) Shutdown() error {
	var err error
	r.closeOnce.Do(func() {
		r.Abort()
		if r.engine != nil {
			err = r.engine.Close()
		}
		if r.dual != nil {
			if cerr := r.dual.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if r.wakeImpl != nil {
			if cerr := r.wakeImpl.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

// pad surrounds a recording with leading and trailing silence before engine
// submission.
func (r *Recorder) pad(pcm []byte) []byte {
	silence := make([]byte, int(float64(r.cfg.SampleRate)*paddingSeconds)*2)
	padded := make([]byte, 0, len(silence)*2+len(pcm))
	padded = append(padded, silence...)
	padded = append(padded, pcm...)
	return append(padded, silence...)
}
