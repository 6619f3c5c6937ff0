// Package workflow holds the quiz, exam, and flashcard session state machines.
//
// Each machine is a plain value moved between phases only by named transition
// methods. Transitions never mutate the receiver; they return the next state.
// Reduce dispatches an Action to the matching transition.
package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBank     = errors.New("cannot start with an empty bank")
	ErrNotInProgress = errors.New("session is not in progress")
	ErrNotEnded      = errors.New("session has not ended")
	ErrAlreadyGraded = errors.New("exam has already been graded")
	ErrGradeCount    = errors.New("grade count does not match answers")
	ErrStaleGrades   = errors.New("grades belong to a different exam")
	ErrUnsupported   = errors.New("action not supported by this workflow")
	ErrUnknownAction = errors.New("unknown action")
)

// Phase is the position of a workflow in its lifecycle.
type Phase int

const (
	NotStarted Phase = iota
	InProgress
	Ended
	Reviewing
)

var phaseNames = [...]string{"not_started", "in_progress", "ended", "reviewing"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Finished reports whether the workflow reached Ended, with or without review open.
func (p Phase) Finished() bool {
	return p == Ended || p == Reviewing
}

// toggleReview flips between Ended and Reviewing.
func toggleReview(p Phase) (Phase, error) {
	switch p {
	case Ended:
		return Reviewing, nil
	case Reviewing:
		return Ended, nil
	default:
		return p, ErrNotEnded
	}
}
