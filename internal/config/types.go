// Package config resolves, parses, validates, and defaults hark configuration.
package config

// Config is the fully materialized runtime configuration used by hark.
type Config struct {
	SampleRate int
	ChunkSize  int
	Language   string

	Audio      AudioConfig
	VAD        VADConfig
	Recording  RecordingConfig
	Wake       WakeConfig
	Engine     EngineConfig
	Transcript TranscriptConfig
	Debug      DebugConfig
}

// AudioConfig controls capture backend and input-source selection.
type AudioConfig struct {
	Backend string
	Input   string
	Enabled bool
}

// VADConfig controls both voice-activity gates.
type VADConfig struct {
	SileroSensitivity         float64
	SileroModelPath           string
	SileroDeactivityDetection bool
	WebRTCSensitivity         int
}

// RecordingConfig controls recording lifecycle timing and backpressure.
type RecordingConfig struct {
	PostSpeechSilenceDuration   float64
	MinLengthOfRecording        float64
	MinGapBetweenRecordings     float64
	PreRecordingBufferDuration  float64
	EarlyTranscriptionOnSilence int
	HandleBufferOverflow        bool
	AllowedLatencyLimit         int
}

// WakeConfig controls wake-word detection.
type WakeConfig struct {
	Backend         string
	Words           []string
	Sensitivity     float64
	ActivationDelay float64
	Timeout         float64
	BufferDuration  float64
	ModelPaths      []string
	AccessKey       string
}

// EngineConfig controls the out-of-process transcription worker.
type EngineConfig struct {
	ModelPath    string
	Binary       CommandConfig
	ReadyTimeout float64
}

// TranscriptConfig controls transcript post-processing.
type TranscriptConfig struct {
	EnsureUppercase bool
	EnsurePeriod    bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
