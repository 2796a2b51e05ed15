// Package fsm defines the lifecycle states of one listen invocation.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateDone         State = "done"
	StateError        State = "error"
)

const (
	EventLoad        Event = "load"
	EventStart       Event = "start"
	EventLoaded      Event = "loaded"
	EventStop        Event = "stop"
	EventCancel      Event = "cancel"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

// transitions lists the accepted events per state. EventFail is accepted
// from every state and is not listed.
var transitions = map[State]map[Event]State{
	StateIdle:         {EventLoad: StateLoading, EventStart: StateRecording},
	StateLoading:      {EventLoaded: StateTranscribing},
	StateRecording:    {EventStop: StateTranscribing, EventCancel: StateIdle},
	StateTranscribing: {EventTranscribed: StateDone},
	StateDone:         {EventReset: StateIdle},
	StateError:        {EventReset: StateIdle},
}

// Transition returns the state reached from current on event.
func Transition(current State, event Event) (State, error) {
	edges, known := transitions[current]
	if !known {
		return current, fmt.Errorf("unknown state %q", current)
	}
	if event == EventFail {
		return StateError, nil
	}
	next, ok := edges[event]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
	}
	return next, nil
}

// Terminal reports whether s ends an invocation.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}
