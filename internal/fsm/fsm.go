// Package fsm tracks the capture lifecycle and fires boundary callbacks on
// state changes.
package fsm

import (
	"fmt"
	"sync"
)

type State string

const (
	StateInactive     State = "inactive"
	StateListening    State = "listening"
	StateWakeword     State = "wakeword"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
)

// Valid reports whether s names a known lifecycle state.
func Valid(s State) bool {
	switch s {
	case StateInactive, StateListening, StateWakeword, StateRecording, StateTranscribing:
		return true
	}
	return false
}

// Callbacks fire when the machine crosses a state boundary. All fields are
// optional. Exit callbacks run before the state changes, enter callbacks
// after.
type Callbacks struct {
	OnListenStart        func() // entering listening
	OnListenStop         func() // leaving listening
	OnWakewordStart      func() // entering wakeword
	OnWakewordEnd        func() // leaving wakeword
	OnTranscriptionStart func() // entering transcribing
}

// Machine serializes state changes and callback dispatch.
type Machine struct {
	mu        sync.Mutex
	state     State
	callbacks Callbacks
}

// New builds a machine starting in the inactive state.
func New(callbacks Callbacks) *Machine {
	return &Machine{state: StateInactive, callbacks: callbacks}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine is currently in s.
func (m *Machine) Is(s State) bool {
	return m.State() == s
}

// Set moves the machine to next, running exit and enter callbacks for the
// boundaries crossed. Setting the current state again is a no-op. Unknown
// states are rejected without touching the current state.
func (m *Machine) Set(next State) error {
	if !Valid(next) {
		return fmt.Errorf("unknown state %q", next)
	}

	m.mu.Lock()
	current := m.state
	if current == next {
		m.mu.Unlock()
		return nil
	}
	m.state = next
	m.mu.Unlock()

	switch current {
	case StateListening:
		fire(m.callbacks.OnListenStop)
	case StateWakeword:
		fire(m.callbacks.OnWakewordEnd)
	}

	switch next {
	case StateListening:
		fire(m.callbacks.OnListenStart)
	case StateWakeword:
		fire(m.callbacks.OnWakewordStart)
	case StateTranscribing:
		fire(m.callbacks.OnTranscriptionStart)
	}
	return nil
}

func fire(cb func()) {
	if cb != nil {
		cb()
	}
}
