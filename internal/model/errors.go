package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
)

// TransitionReason identifies why a stage transition was rejected.
type TransitionReason string

const (
	// TransitionReasonSameStage is used when the transition targets the current stage.
	TransitionReasonSameStage TransitionReason = "same_stage"
	// TransitionReasonBackward is used when the transition goes back to a stage other than the start one.
	TransitionReasonBackward TransitionReason = "backward"
	// TransitionReasonSkip is used when the transition jumps over one or more stages.
	TransitionReasonSkip TransitionReason = "skip"
)

// TransitionError is the error returned for a rejected stage transition.
// It wraps ErrNotValid.
type TransitionError struct {
	From   Stage
	To     Stage
	Reason TransitionReason
}

func (e *TransitionError) Error() string {
	switch e.Reason {
	case TransitionReasonSameStage:
		return fmt.Sprintf("already in stage %s", e.To)
	case TransitionReasonBackward:
		return fmt.Sprintf("cannot go backwards from %s to %s unless returning to planning", e.From, e.To)
	case TransitionReasonSkip:
		return fmt.Sprintf("cannot skip from %s to %s; must progress sequentially", e.From, e.To)
	default:
		return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
	}
}

func (e *TransitionError) Unwrap() error { return ErrNotValid }
