// Package ipc carries the JSON-lines protocol between the recorder and the
// out-of-process transcription worker over a unix socket.
package ipc

// Message kinds.
const (
	KindReady      = "ready"      // worker -> recorder: model loaded, accepting work
	KindTranscribe = "transcribe" // recorder -> worker: audio to transcribe
	KindResult     = "result"     // worker -> recorder: transcription outcome
	KindLog        = "log"        // worker -> recorder: forwarded log record
	KindShutdown   = "shutdown"   // recorder -> worker: finish and exit
)

// Message is one protocol frame. Audio travels base64-encoded inside the
// JSON line; only the fields matching the kind are populated.
type Message struct {
	Kind string `json:"kind"`

	// transcribe
	Audio    []byte `json:"audio,omitempty"`
	Language string `json:"language,omitempty"`

	// result
	OK    bool   `json:"ok,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`

	// log
	Level  string `json:"level,omitempty"`
	Record string `json:"record,omitempty"`
}
