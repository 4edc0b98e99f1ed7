// Package vad implements the two-stage voice activity detection used to
// trigger and stop recordings: a cheap per-chunk gate runs on every chunk,
// and a heavier model-based gate confirms speech asynchronously.
package vad

// FastGate is the low-latency first-stage detector. It must keep up with the
// capture chunk rate.
type FastGate interface {
	IsSpeech(chunk []byte) (bool, error)
	Close() error
}

// ConfirmGate is the accurate second-stage detector. Calls may be slow, so
// the pipeline never runs more than one at a time.
type ConfirmGate interface {
	IsSpeech(chunk []byte) (bool, error)
	Reset() error
	Close() error
}
