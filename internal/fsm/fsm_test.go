package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineStartsInactive(t *testing.T) {
	m := New(Callbacks{})
	require.Equal(t, StateInactive, m.State())
	require.True(t, m.Is(StateInactive))
}

func TestSetRunsEnterAndExitCallbacks(t *testing.T) {
	var events []string
	m := New(Callbacks{
		OnListenStart:        func() { events = append(events, "listen-start") },
		OnListenStop:         func() { events = append(events, "listen-stop") },
		OnWakewordStart:      func() { events = append(events, "wakeword-start") },
		OnWakewordEnd:        func() { events = append(events, "wakeword-end") },
		OnTranscriptionStart: func() { events = append(events, "transcription-start") },
	})

	require.NoError(t, m.Set(StateListening))
	require.NoError(t, m.Set(StateWakeword))
	require.NoError(t, m.Set(StateRecording))
	require.NoError(t, m.Set(StateTranscribing))

	require.Equal(t, []string{
		"listen-start",
		"listen-stop",
		"wakeword-start",
		"wakeword-end",
		"transcription-start",
	}, events)
}

func TestSetSameStateIsNoOp(t *testing.T) {
	calls := 0
	m := New(Callbacks{OnListenStart: func() { calls++ }})

	require.NoError(t, m.Set(StateListening))
	require.NoError(t, m.Set(StateListening))
	require.Equal(t, 1, calls)
	require.Equal(t, StateListening, m.State())
}

func TestSetRejectsUnknownState(t *testing.T) {
	m := New(Callbacks{})
	require.NoError(t, m.Set(StateListening))

	err := m.Set(State("daydreaming"))
	require.Error(t, err)
	require.Equal(t, StateListening, m.State())
}

func TestValid(t *testing.T) {
	for _, s := range []State{StateInactive, StateListening, StateWakeword, StateRecording, StateTranscribing} {
		require.True(t, Valid(s))
	}
	require.False(t, Valid(State("paused")))
}

func TestLeavingListeningWithoutEnterCallback(t *testing.T) {
	stops := 0
	m := New(Callbacks{OnListenStop: func() { stops++ }})

	require.NoError(t, m.Set(StateListening))
	require.NoError(t, m.Set(StateRecording))
	require.Equal(t, 1, stops)
}
