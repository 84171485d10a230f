package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventStopped)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionAbortTearsDownThroughStopping(t *testing.T) {
	next, err := Transition(StateRecording, EventAbort)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventStopped)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle stop", state: StateIdle, event: EventStop},
		{name: "idle abort", state: StateIdle, event: EventAbort},
		{name: "idle stopped", state: StateIdle, event: EventStopped},
		{name: "recording start", state: StateRecording, event: EventStart},
		{name: "recording stopped", state: StateRecording, event: EventStopped},
		{name: "stopping start", state: StateStopping, event: EventStart},
		{name: "stopping stop", state: StateStopping, event: EventStop},
		{name: "stopping abort", state: StateStopping, event: EventAbort},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
