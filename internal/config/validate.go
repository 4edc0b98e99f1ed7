package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample_rate must be > 0")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be > 0")
	}
	if strings.TrimSpace(cfg.Language) == "" {
		return nil, fmt.Errorf("language must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Audio.Backend))
	if backend != "portaudio" && backend != "pulse" {
		return nil, fmt.Errorf("audio.backend must be one of: portaudio, pulse")
	}

	if cfg.VAD.SileroSensitivity < 0 || cfg.VAD.SileroSensitivity > 1 {
		return nil, fmt.Errorf("vad.silero_sensitivity must be within [0, 1]")
	}
	if cfg.VAD.WebRTCSensitivity < 0 || cfg.VAD.WebRTCSensitivity > 3 {
		return nil, fmt.Errorf("vad.webrtc_sensitivity must be within [0, 3]")
	}
	if strings.TrimSpace(cfg.VAD.SileroModelPath) == "" {
		warnings = append(warnings, Warning{
			Message: "vad.silero_model_path is unset; voice-triggered recording requires a Silero VAD model",
		})
	}

	if cfg.Recording.PostSpeechSilenceDuration < 0 {
		return nil, fmt.Errorf("recording.post_speech_silence_duration must be >= 0")
	}
	if cfg.Recording.MinLengthOfRecording < 0 {
		return nil, fmt.Errorf("recording.min_length_of_recording must be >= 0")
	}
	if cfg.Recording.MinGapBetweenRecordings < 0 {
		return nil, fmt.Errorf("recording.min_gap_between_recordings must be >= 0")
	}
	if cfg.Recording.PreRecordingBufferDuration < 0 {
		return nil, fmt.Errorf("recording.pre_recording_buffer_duration must be >= 0")
	}
	if cfg.Recording.EarlyTranscriptionOnSilence < 0 {
		return nil, fmt.Errorf("recording.early_transcription_on_silence must be >= 0")
	}
	if cfg.Recording.AllowedLatencyLimit <= 0 {
		return nil, fmt.Errorf("recording.allowed_latency_limit must be > 0")
	}

	wakeBackend := strings.ToLower(strings.TrimSpace(cfg.Wake.Backend))
	switch wakeBackend {
	case "", "porcupine", "onnx":
	default:
		return nil, fmt.Errorf("wake.backend must be one of: porcupine, onnx (or empty to disable)")
	}
	if cfg.Wake.Sensitivity < 0 || cfg.Wake.Sensitivity > 1 {
		return nil, fmt.Errorf("wake.sensitivity must be within [0, 1]")
	}
	if cfg.Wake.ActivationDelay < 0 {
		return nil, fmt.Errorf("wake.activation_delay must be >= 0")
	}
	if cfg.Wake.Timeout < 0 {
		return nil, fmt.Errorf("wake.timeout must be >= 0")
	}
	if cfg.Wake.BufferDuration < 0 {
		return nil, fmt.Errorf("wake.buffer_duration must be >= 0")
	}
	if wakeBackend == "porcupine" {
		if len(cfg.Wake.Words) == 0 {
			return nil, fmt.Errorf("wake.words must not be empty when wake.backend=porcupine")
		}
		if strings.TrimSpace(cfg.Wake.AccessKey) == "" {
			warnings = append(warnings, Warning{
				Message: "wake.access_key is unset; the porcupine engine will fail at startup without it",
			})
		}
	}
	if wakeBackend == "onnx" && len(cfg.Wake.ModelPaths) == 0 {
		return nil, fmt.Errorf("wake.model_paths must not be empty when wake.backend=onnx")
	}

	if cfg.Engine.ReadyTimeout <= 0 {
		return nil, fmt.Errorf("engine.ready_timeout must be > 0")
	}
	if strings.TrimSpace(cfg.Engine.ModelPath) == "" {
		warnings = append(warnings, Warning{
			Message: "engine.model_path is unset; transcription requires a speech model",
		})
	}
	if cfg.Engine.Binary.Raw != "" && len(cfg.Engine.Binary.Argv) == 0 {
		return nil, fmt.Errorf("engine.binary is configured but empty")
	}

	return warnings, nil
}
