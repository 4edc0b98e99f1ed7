package config

import "runtime"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	// macOS CoreAudio reports overflow differently, so backlog trimming
	// stays off there, matching long-standing capture behavior.
	handleOverflow := runtime.GOOS != "darwin"

	return Config{
		SampleRate: 16000,
		ChunkSize:  512,
		Language:   "auto",
		Audio: AudioConfig{
			Backend: "portaudio",
			Input:   "default",
			Enabled: true,
		},
		VAD: VADConfig{
			SileroSensitivity:         0.4,
			SileroModelPath:           "",
			SileroDeactivityDetection: false,
			WebRTCSensitivity:         3,
		},
		Recording: RecordingConfig{
			PostSpeechSilenceDuration:   0.6,
			MinLengthOfRecording:        0.5,
			MinGapBetweenRecordings:     0,
			PreRecordingBufferDuration:  1.0,
			EarlyTranscriptionOnSilence: 0,
			HandleBufferOverflow:        handleOverflow,
			AllowedLatencyLimit:         100,
		},
		Wake: WakeConfig{
			Backend:         "",
			Sensitivity:     0.6,
			ActivationDelay: 0,
			Timeout:         5.0,
			BufferDuration:  0.1,
		},
		Engine: EngineConfig{
			ReadyTimeout: 30,
		},
		Transcript: TranscriptConfig{
			EnsureUppercase: true,
			EnsurePeriod:    true,
		},
		Debug: DebugConfig{},
	}
}
