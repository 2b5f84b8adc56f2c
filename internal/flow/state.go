package flow

import (
	"errors"
	"fmt"
)

// State of a contact disclosure flow.
type State int

const (
	Idle State = iota
	AuthCheck
	NDAPresentation
	MessageComposition
	// Submitting is MessageComposition with a create call outstanding.
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AuthCheck:
		return "auth_check"
	case NDAPresentation:
		return "nda_presentation"
	case MessageComposition:
		return "message_composition"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives a transition.
type Event int

const (
	EventStart Event = iota
	EventAuthenticated
	EventUnauthenticated
	EventAcceptNDA
	EventDeclineNDA
	EventSubmit
	EventSubmitSucceeded
	EventSubmitFailed
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventAuthenticated:
		return "authenticated"
	case EventUnauthenticated:
		return "unauthenticated"
	case EventAcceptNDA:
		return "accept_nda"
	case EventDeclineNDA:
		return "decline_nda"
	case EventSubmit:
		return "submit"
	case EventSubmitSucceeded:
		return "submit_succeeded"
	case EventSubmitFailed:
		return "submit_failed"
	case EventCancel:
		return "cancel"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var (
	ErrInvalidTransition  = errors.New("invalid flow transition")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

var transitions = map[State]map[Event]State{
	Idle: {
		EventStart: AuthCheck,
	},
	AuthCheck: {
		EventAuthenticated:   NDAPresentation,
		EventUnauthenticated: Idle,
		EventCancel:          Idle,
	},
	NDAPresentation: {
		EventAcceptNDA:  MessageComposition,
		EventDeclineNDA: Idle,
		EventCancel:     Idle,
	},
	MessageComposition: {
		EventSubmit: Submitting,
		EventCancel: Idle,
	},
	Submitting: {
		EventSubmitSucceeded: Submitted,
		EventSubmitFailed:    MessageComposition,
	},
}

// Next is the transition function of the flow. Submitted is terminal.
func Next(s State, e Event) (State, error) {
	if s == Submitting && (e == EventSubmit || e == EventCancel) {
		return s, ErrSubmissionInFlight
	}
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}
