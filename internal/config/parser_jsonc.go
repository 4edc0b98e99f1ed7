package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	SampleRate *int              `json:"sample_rate"`
	ChunkSize  *int              `json:"chunk_size"`
	Language   *string           `json:"language"`
	Audio      *jsoncAudio       `json:"audio"`
	VAD        *jsoncVAD         `json:"vad"`
	Recording  *jsoncRecording   `json:"recording"`
	Wake       *jsoncWake        `json:"wake"`
	Engine     *jsoncEngine      `json:"engine"`
	Transcript *jsoncTranscript `json:"transcript"`
	Debug      *jsoncDebug       `json:"debug"`
}

type jsoncAudio struct {
	Backend *string `json:"backend"`
	Input   *string `json:"input"`
	Enabled *bool   `json:"enabled"`
}

type jsoncVAD struct {
	SileroSensitivity         *float64 `json:"silero_sensitivity"`
	SileroModelPath           *string  `json:"silero_model_path"`
	SileroDeactivityDetection *bool    `json:"silero_deactivity_detection"`
	WebRTCSensitivity         *int     `json:"webrtc_sensitivity"`
}

type jsoncRecording struct {
	PostSpeechSilenceDuration  *float64 `json:"post_speech_silence_duration"`
	MinLengthOfRecording       *float64 `json:"min_length_of_recording"`
	MinGapBetweenRecordings    *float64 `json:"min_gap_between_recordings"`
	PreRecordingBufferDuration *float64 `json:"pre_recording_buffer_duration"`
	EarlyTranscriptionOnSilence *int    `json:"early_transcription_on_silence"`
	HandleBufferOverflow       *bool    `json:"handle_buffer_overflow"`
	AllowedLatencyLimit        *int     `json:"allowed_latency_limit"`
}

type jsoncWake struct {
	Backend         *string   `json:"backend"`
	Words           *[]string `json:"words"`
	Sensitivity     *float64  `json:"sensitivity"`
	ActivationDelay *float64  `json:"activation_delay"`
	Timeout         *float64  `json:"timeout"`
	BufferDuration  *float64  `json:"buffer_duration"`
	ModelPaths      *[]string `json:"model_paths"`
	AccessKey       *string   `json:"access_key"`
}

type jsoncEngine struct {
	ModelPath    *string  `json:"model_path"`
	Binary       *string  `json:"binary"`
	ReadyTimeout *float64 `json:"ready_timeout"`
}

type jsoncTranscript struct {
	EnsureUppercase *bool `json:"ensure_uppercase"`
	EnsurePeriod    *bool `json:"ensure_period"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized := normalizeJSONC(content)

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var parsed jsoncConfig
	if err := decoder.Decode(&parsed); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := parsed.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (j *jsoncConfig) applyTo(cfg *Config) error {
	if j.SampleRate != nil {
		cfg.SampleRate = *j.SampleRate
	}
	if j.ChunkSize != nil {
		cfg.ChunkSize = *j.ChunkSize
	}
	if j.Language != nil {
		cfg.Language = *j.Language
	}
	if j.Audio != nil {
		if j.Audio.Backend != nil {
			cfg.Audio.Backend = *j.Audio.Backend
		}
		if j.Audio.Input != nil {
			cfg.Audio.Input = *j.Audio.Input
		}
		if j.Audio.Enabled != nil {
			cfg.Audio.Enabled = *j.Audio.Enabled
		}
	}
	if j.VAD != nil {
		if j.VAD.SileroSensitivity != nil {
			cfg.VAD.SileroSensitivity = *j.VAD.SileroSensitivity
		}
		if j.VAD.SileroModelPath != nil {
			cfg.VAD.SileroModelPath = *j.VAD.SileroModelPath
		}
		if j.VAD.SileroDeactivityDetection != nil {
			cfg.VAD.SileroDeactivityDetection = *j.VAD.SileroDeactivityDetection
		}
		if j.VAD.WebRTCSensitivity != nil {
			cfg.VAD.WebRTCSensitivity = *j.VAD.WebRTCSensitivity
		}
	}
	if j.Recording != nil {
		if j.Recording.PostSpeechSilenceDuration != nil {
			cfg.Recording.PostSpeechSilenceDuration = *j.Recording.PostSpeechSilenceDuration
		}
		if j.Recording.MinLengthOfRecording != nil {
			cfg.Recording.MinLengthOfRecording = *j.Recording.MinLengthOfRecording
		}
		if j.Recording.MinGapBetweenRecordings != nil {
			cfg.Recording.MinGapBetweenRecordings = *j.Recording.MinGapBetweenRecordings
		}
		if j.Recording.PreRecordingBufferDuration != nil {
			cfg.Recording.PreRecordingBufferDuration = *j.Recording.PreRecordingBufferDuration
		}
		if j.Recording.EarlyTranscriptionOnSilence != nil {
			cfg.Recording.EarlyTranscriptionOnSilence = *j.Recording.EarlyTranscriptionOnSilence
		}
		if j.Recording.HandleBufferOverflow != nil {
			cfg.Recording.HandleBufferOverflow = *j.Recording.HandleBufferOverflow
		}
		if j.Recording.AllowedLatencyLimit != nil {
			cfg.Recording.AllowedLatencyLimit = *j.Recording.AllowedLatencyLimit
		}
	}
	if j.Wake != nil {
		if j.Wake.Backend != nil {
			cfg.Wake.Backend = *j.Wake.Backend
		}
		if j.Wake.Words != nil {
			cfg.Wake.Words = *j.Wake.Words
		}
		if j.Wake.Sensitivity != nil {
			cfg.Wake.Sensitivity = *j.Wake.Sensitivity
		}
		if j.Wake.ActivationDelay != nil {
			cfg.Wake.ActivationDelay = *j.Wake.ActivationDelay
		}
		if j.Wake.Timeout != nil {
			cfg.Wake.Timeout = *j.Wake.Timeout
		}
		if j.Wake.BufferDuration != nil {
			cfg.Wake.BufferDuration = *j.Wake.BufferDuration
		}
		if j.Wake.ModelPaths != nil {
			cfg.Wake.ModelPaths = *j.Wake.ModelPaths
		}
		if j.Wake.AccessKey != nil {
			cfg.Wake.AccessKey = *j.Wake.AccessKey
		}
	}
	if j.Engine != nil {
		if j.Engine.ModelPath != nil {
			cfg.Engine.ModelPath = *j.Engine.ModelPath
		}
		if j.Engine.Binary != nil {
			argv, err := parseArgv(*j.Engine.Binary)
			if err != nil {
				return fmt.Errorf("engine.binary: %w", err)
			}
			cfg.Engine.Binary = CommandConfig{Raw: *j.Engine.Binary, Argv: argv}
		}
		if j.Engine.ReadyTimeout != nil {
			cfg.Engine.ReadyTimeout = *j.Engine.ReadyTimeout
		}
	}
	if j.Transcript != nil {
		if j.Transcript.EnsureUppercase != nil {
			cfg.Transcript.EnsureUppercase = *j.Transcript.EnsureUppercase
		}
		if j.Transcript.EnsurePeriod != nil {
			cfg.Transcript.EnsurePeriod = *j.Transcript.EnsurePeriod
		}
	}
	if j.Debug != nil {
		if j.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *j.Debug.AudioDump
		}
	}
	return nil
}

// normalizeJSONC blanks // and /* */ comments and trailing commas with
// spaces so the result parses as plain JSON. Blanking instead of deleting
// keeps every byte offset identical to the user's file, so the line and
// column in decode errors point at the right place. String literals are
// left untouched.
func normalizeJSONC(content string) string {
	out := []byte(content)

	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)
	state := stateCode
	escape := false
	var lastValue byte

	for i := 0; i < len(out); i++ {
		c := out[i]
		var next byte
		if i+1 < len(out) {
			next = out[i+1]
		}

		switch state {
		case stateCode:
			switch {
			case c == '"':
				state = stateString
			case c == '/' && next == '/':
				state = stateLineComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				out[i], out[i+1] = ' ', ' '
				i++
			case c == ',':
				// A comma is only trailing when it follows a complete
				// value and the next significant character closes the
				// containing object or array. A misplaced comma is kept
				// so the decoder reports it at its true position.
				if closesValue(lastValue) && jsoncCommaIsTrailing(out, i+1) {
					out[i] = ' '
				} else {
					lastValue = c
				}
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			default:
				lastValue = c
			}
		case stateString:
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				state = stateCode
				lastValue = c
			}
		case stateLineComment:
			if c == '\n' || c == '\r' {
				state = stateCode
			} else {
				out[i] = ' '
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateCode
				out[i], out[i+1] = ' ', ' '
				i++
			} else if c != '\n' && c != '\r' && c != '\t' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

// closesValue reports whether c can be the final byte of a JSON value:
// a closing quote or bracket, a digit, or a letter ending true/false/null.
func closesValue(c byte) bool {
	switch {
	case c == '"' || c == '}' || c == ']':
		return true
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	}
	return false
}

func jsoncCommaIsTrailing(content []byte, start int) bool {
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			continue
		case c == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(content) && content[i+1] == '*':
			i += 2
			for i+1 < len(content) && !(content[i] == '*' && content[i+1] == '/') {
				i++
			}
			i++
		case c == '}' || c == ']':
			return true
		default:
			return false
		}
	}
	return false
}

func wrapJSONDecodeError(normalized string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		line, col := offsetToLineCol(normalized, syntaxErr.Offset)
		return fmt.Errorf("config syntax error at line %d, column %d: %s", line, col, syntaxErr.Error())
	case errors.As(err, &typeErr):
		line, col := offsetToLineCol(normalized, typeErr.Offset)
		return fmt.Errorf("config type error at line %d, column %d: field %q expects %s", line, col, typeErr.Field, typeErr.Type)
	default:
		return fmt.Errorf("config parse error: %w", err)
	}
}

func offsetToLineCol(content string, offset int64) (int, int) {
	line, col := 1, 1
	for i, c := range content {
		if int64(i) >= offset {
			break
		}
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
