package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harkaudio/hark/internal/audio"
	"github.com/harkaudio/hark/internal/fsm"
)

// Run drives capture and the decision loop until the context ends.
func (r *Recorder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if r.capture != nil {
		g.Go(func() error { return r.capture.Run(ctx) })
	}
	g.Go(func() error { return r.loop(ctx) })

	return g.Wait()
}

// loop pops chunks off the shared queue and routes them by recording state.
func (r *Recorder) loop(ctx context.Context) error {
	for {
		chunk, err := r.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		r.mu.Lock()
		recording := r.recording
		r.mu.Unlock()

		if recording {
			r.processRecording(chunk)
		} else {
			r.processIdle(chunk)
		}
	}
}

// processIdle maintains the pre-roll buffer and watches for the recording
// trigger: wake word first when armed, then voice activity.
func (r *Recorder) processIdle(chunk []byte) {
	r.mu.Lock()
	r.preRoll.Push(chunk)
	startOnVoice := r.startOnVoice
	wakeDetected := r.wakeDetected
	listenStart := r.listenStart
	wakeDetectAt := r.wakeDetectAt
	r.mu.Unlock()

	state := r.machine.State()
	if state == fsm.StateInactive || state == fsm.StateTranscribing {
		return
	}

	now := r.now()
	useWake := r.wake != nil

	// The activation delay keeps plain voice triggering active for its
	// duration; once it elapses the wake word becomes mandatory. A zero
	// delay means wake-word-always.
	wakeRequired := useWake
	if useWake && r.cfg.Wake.ActivationDelay > 0 {
		wakeRequired = now.Sub(listenStart) >= seconds(r.cfg.Wake.ActivationDelay)
	}

	if wakeRequired && !wakeDetected {
		if state == fsm.StateListening {
			if err := r.machine.Set(fsm.StateWakeword); err != nil {
				r.logger.Error("enter wakeword failed", "error", err)
			}
		}

		index, err := r.wake.Feed(r.wakeChunk(chunk))
		if err != nil {
			r.logger.Warn("wake word detection failed", "error", err)
		} else if index >= 0 {
			r.onWakeDetected(index, now)
			wakeDetected = true
		}
	}

	if useWake && wakeDetected && r.cfg.Wake.Timeout > 0 &&
		now.Sub(wakeDetectAt) > seconds(r.cfg.Wake.Timeout) && !wakeDetectAt.IsZero() {
		r.mu.Lock()
		r.wakeDetected = false
		r.mu.Unlock()
		wakeDetected = false
		r.logger.Info("wake word activation timed out")
		if r.cb.OnWakewordTimeout != nil {
			r.cb.OnWakewordTimeout()
		}
	}

	voiceGateArmed := wakeDetected || (startOnVoice && !wakeRequired)
	if voiceGateArmed && r.dual != nil {
		r.dual.Feed(chunk)
		if r.dual.Active() {
			r.startRecording()
		}
	}
}

// onWakeDetected excises the spoken wake word from the pre-roll and marks
// the activation window.
func (r *Recorder) onWakeDetected(index int, now time.Time) {
	excise := int(r.cfg.Wake.BufferDuration*float64(r.cfg.SampleRate)) * 2

	r.mu.Lock()
	r.preRoll.TrimNewestBytes(excise)
	r.wakeDetected = true
	r.wakeDetectAt = now
	r.mu.Unlock()

	word := ""
	if index < len(r.wakeWords) {
		word = r.wakeWords[index]
	}
	r.logger.Info("wake word detected", "index", index, "word", word)
	if r.cb.OnWakewordDetected != nil {
		r.cb.OnWakewordDetected(index, word)
	}
}

// wakeChunk converts a capture chunk to the wake engine's sample rate.
func (r *Recorder) wakeChunk(chunk []byte) []byte {
	engineRate := r.wakeImpl.SampleRate()
	if engineRate == r.cfg.SampleRate {
		return chunk
	}
	samples := audio.Resample(audio.BytesToInt16(chunk), r.cfg.SampleRate, engineRate)
	return audio.Int16ToBytes(samples)
}

// processRecording appends the chunk and watches for the silence that ends
// the recording, optionally submitting an early transcription while waiting
// out the post-speech window.
func (r *Recorder) processRecording(chunk []byte) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.frames = append(r.frames, chunk)
	r.mu.Unlock()

	if r.cb.OnRecordedChunk != nil {
		r.cb.OnRecordedChunk(chunk)
	}

	// Without a stop gate the recording only ends on an explicit Stop.
	if r.stopGate == nil {
		return
	}
	speech, err := r.stopGate(chunk)
	if err != nil {
		r.logger.Warn("stop-gate detection failed", "error", err)
		speech = false
	}

	now := r.now()
	var earlyAudio []byte
	doStop := false

	r.mu.Lock()
	if speech {
		r.silenceStart = time.Time{}
		// Renewed speech supersedes any in-flight early submission; the
		// next silence window may submit again. The superseded result is
		// drained at Transcribe time.
		r.earlySubmitted = false
	} else {
		if r.silenceStart.IsZero() {
			r.silenceStart = now
		}
		silence := now.Sub(r.silenceStart)

		earlyAfter := time.Duration(r.cfg.Recording.EarlyTranscriptionOnSilence) * time.Millisecond
		if earlyAfter > 0 && !r.earlySubmitted && r.engine != nil &&
			silence >= earlyAfter &&
			now.Sub(r.recordingStart) >= seconds(r.cfg.Recording.MinLengthOfRecording) {
			earlyAudio = concatChunks(r.frames)
			r.earlySubmitted = true
		}

		if silence >= seconds(r.cfg.Recording.PostSpeechSilenceDuration) {
			doStop = true
		}
	}
	// While the silence timer runs the chunk also seeds the next cycle's
	// pre-roll, so audio right after this recording is not lost to it.
	if !r.silenceStart.IsZero() {
		r.preRoll.Push(chunk)
	}
	r.mu.Unlock()

	if earlyAudio != nil {
		if err := r.engine.Submit(r.pad(earlyAudio), r.cfg.Language); err != nil {
			r.logger.Warn("early transcription submit failed", "error", err)
			r.mu.Lock()
			r.earlySubmitted = false
			r.mu.Unlock()
		} else {
			r.logger.Debug("early transcription submitted", "bytes", len(earlyAudio))
		}
	}

	if doStop {
		r.stopRecording(0, 0)
	}
}

// startRecording flips into the recording state, seeding frames with the
// pre-roll so the utterance onset is not lost. It refuses to start before
// the minimum gap since the previous recording has passed.
func (r *Recorder) startRecording() bool {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return true
	}

	now := r.now()
	if !r.recordingStop.IsZero() &&
		now.Sub(r.recordingStop) < seconds(r.cfg.Recording.MinGapBetweenRecordings) {
		r.mu.Unlock()
		r.logger.Warn("recording suppressed by min gap",
			"min_gap_s", r.cfg.Recording.MinGapBetweenRecordings)
		return false
	}

	r.frames = r.preRoll.Drain()
	r.recording = true
	r.recordingStart = now
	r.silenceStart = time.Time{}
	r.wakeDetected = false
	r.earlySubmitted = false
	started := r.startedCh
	r.mu.Unlock()

	// A verdict latched during the idle phase must not leak into the
	// deactivation checks of this recording.
	if r.dual != nil {
		r.dual.Reset()
	}

	if err := r.machine.Set(fsm.StateRecording); err != nil {
		r.logger.Error("enter recording failed", "error", err)
	}
	closeOnceCh(started)
	r.logger.Info("recording started")
	if r.cb.OnRecordingStart != nil {
		r.cb.OnRecordingStart()
	}
	return true
}

// stopRecording assembles the final audio, applying backdating, and wakes
// WaitAudio callers. It refuses to stop before the minimum recording length.
func (r *Recorder) stopRecording(backdateStop float64, backdateResume float64) bool {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return false
	}

	now := r.now()
	if now.Sub(r.recordingStart) < seconds(r.cfg.Recording.MinLengthOfRecording) {
		r.mu.Unlock()
		return false
	}

	duration := now.Sub(r.recordingStart)
	r.recording = false
	r.recordingStop = now.Add(-seconds(backdateStop))
	r.startOnVoice = false

	full := concatChunks(r.frames)
	r.frames = nil

	final := full
	if backdateStop > 0 {
		cut := int(backdateStop*float64(r.cfg.SampleRate)) * 2
		if cut >= len(final) {
			final = nil
		} else {
			final = final[:len(final)-cut]
		}
	}
	r.lastAudio = final

	if backdateResume > 0 {
		keep := int(backdateResume*float64(r.cfg.SampleRate)) * 2
		start := len(full) - keep
		if start < 0 {
			start = 0
		}
		r.requeueTail(full[start:])
	}

	stopped := r.stoppedCh
	r.mu.Unlock()

	// Leave the recording state before releasing waiters so a following
	// Transcribe never races its own transition.
	if err := r.machine.Set(fsm.StateInactive); err != nil {
		r.logger.Error("leave recording failed", "error", err)
	}
	closeOnceCh(stopped)
	r.logger.Info("recording stopped",
		"duration_s", duration.Seconds(),
		"bytes", len(final))
	if r.cb.OnRecordingStop != nil {
		r.cb.OnRecordingStop()
	}

	if r.cfg.Debug.EnableAudioDump {
		r.dumpRecording(final)
	}
	return true
}

// requeueTail re-chunks backdated tail audio into the pre-roll so the next
// recording resumes with it. Caller holds r.mu.
func (r *Recorder) requeueTail(tail []byte) {
	chunker := audio.NewChunker(resumeChunkSamples * 2)
	for _, chunk := range chunker.Push(tail) {
		r.preRoll.Push(chunk)
	}
	if rest := chunker.Flush(); rest != nil {
		r.preRoll.Push(rest)
	}
}

func (r *Recorder) dumpRecording(pcm []byte) {
	path := filepath.Join(os.TempDir(), "hark-last-recording.wav")
	if err := audio.DumpWAV(path, pcm, r.cfg.SampleRate); err != nil {
		r.logger.Warn("audio dump failed", "error", err)
		return
	}
	r.logger.Info("recording dumped", "path", path)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func concatChunks(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func closeOnceCh(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}
