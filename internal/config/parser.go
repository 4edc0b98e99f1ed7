package config

import (
	"fmt"
	"strconv"
	"strings"
)

const legacyFormatWarning = "legacy key=value config format is deprecated; migrate to JSONC"

// Parse reads configuration content as JSONC (preferred) or legacy key/value format.
//
// JSONC is selected when the first non-whitespace character is `{`.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		return parseJSONC(content, base)
	}

	cfg, warnings, err := parseLegacy(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append([]Warning{{Message: legacyFormatWarning}}, warnings...)
	return cfg, warnings, nil
}

// parseLegacy reads `key = value` lines with dotted section prefixes.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	for lineNo, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return Config{}, nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo+1, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if err := applyLegacyKey(&cfg, key, value); err != nil {
			if _, unknown := err.(unknownKeyError); unknown {
				warnings = append(warnings, Warning{Line: lineNo + 1, Message: err.Error()})
				continue
			}
			return Config{}, nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

type unknownKeyError string

func (e unknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key %q ignored", string(e))
}

func applyLegacyKey(cfg *Config, key string, value string) error {
	switch key {
	case "sample_rate":
		return setInt(&cfg.SampleRate, value)
	case "chunk_size":
		return setInt(&cfg.ChunkSize, value)
	case "language":
		cfg.Language = value
	case "audio.backend":
		cfg.Audio.Backend = value
	case "audio.input":
		cfg.Audio.Input = value
	case "audio.enabled":
		return setBool(&cfg.Audio.Enabled, value)
	case "vad.silero_sensitivity":
		return setFloat(&cfg.VAD.SileroSensitivity, value)
	case "vad.silero_model_path":
		cfg.VAD.SileroModelPath = value
	case "vad.silero_deactivity_detection":
		return setBool(&cfg.VAD.SileroDeactivityDetection, value)
	case "vad.webrtc_sensitivity":
		return setInt(&cfg.VAD.WebRTCSensitivity, value)
	case "recording.post_speech_silence_duration":
		return setFloat(&cfg.Recording.PostSpeechSilenceDuration, value)
	case "recording.min_length_of_recording":
		return setFloat(&cfg.Recording.MinLengthOfRecording, value)
	case "recording.min_gap_between_recordings":
		return setFloat(&cfg.Recording.MinGapBetweenRecordings, value)
	case "recording.pre_recording_buffer_duration":
		return setFloat(&cfg.Recording.PreRecordingBufferDuration, value)
	case "recording.early_transcription_on_silence":
		return setInt(&cfg.Recording.EarlyTranscriptionOnSilence, value)
	case "recording.handle_buffer_overflow":
		return setBool(&cfg.Recording.HandleBufferOverflow, value)
	case "recording.allowed_latency_limit":
		return setInt(&cfg.Recording.AllowedLatencyLimit, value)
	case "wake.backend":
		cfg.Wake.Backend = value
	case "wake.words":
		cfg.Wake.Words = splitCommaList(value)
	case "wake.sensitivity":
		return setFloat(&cfg.Wake.Sensitivity, value)
	case "wake.activation_delay":
		return setFloat(&cfg.Wake.ActivationDelay, value)
	case "wake.timeout":
		return setFloat(&cfg.Wake.Timeout, value)
	case "wake.buffer_duration":
		return setFloat(&cfg.Wake.BufferDuration, value)
	case "wake.model_paths":
		cfg.Wake.ModelPaths = splitCommaList(value)
	case "wake.access_key":
		cfg.Wake.AccessKey = value
	case "engine.model_path":
		cfg.Engine.ModelPath = value
	case "engine.binary":
		argv, err := parseArgv(value)
		if err != nil {
			return err
		}
		cfg.Engine.Binary = CommandConfig{Raw: value, Argv: argv}
	case "engine.ready_timeout":
		return setFloat(&cfg.Engine.ReadyTimeout, value)
	case "transcript.ensure_uppercase":
		return setBool(&cfg.Transcript.EnsureUppercase, value)
	case "transcript.ensure_period":
		return setBool(&cfg.Transcript.EnsurePeriod, value)
	case "debug.audio_dump":
		return setBool(&cfg.Debug.EnableAudioDump, value)
	default:
		return unknownKeyError(key)
	}
	return nil
}

func setInt(dst *int, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", value)
	}
	*dst = parsed
	return nil
}

func setFloat(dst *float64, value string) error {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %q", value)
	}
	*dst = parsed
	return nil
}

func setBool(dst *bool, value string) error {
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return fmt.Errorf("expected boolean, got %q", value)
	}
	*dst = parsed
	return nil
}

func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
