package model

import "time"

// StageTransition is an immutable record of a successful move between stages.
type StageTransition struct {
	From        Stage
	To          Stage
	Timestamp   time.Time
	TriggeredBy string            // Optional caller identifier (e.g. "ui", "ws").
	Metadata    map[string]string // Optional.
}

// IsRestart returns true if the transition sends the run back to the start stage.
func (t StageTransition) IsRestart() bool {
	return t.To == StartStage && t.From != StartStage
}

// ValidateTransition checks if moving from one stage to another is allowed.
// Only forward moves of exactly one stage are allowed, except moving to the
// start stage which is allowed from any stage. It returns nil when the
// transition is legal, otherwise a *TransitionError.
//
// The policy is strict: leaving the start stage has no skip exemption, so
// PLANNING -> PUBLISH_BACKLOG is rejected as a skip.
func ValidateTransition(from, to Stage) error {
	switch {
	case from == to:
		return &TransitionError{From: from, To: to, Reason: TransitionReasonSameStage}
	case to < from && to != StartStage:
		return &TransitionError{From: from, To: to, Reason: TransitionReasonBackward}
	case to > from+1 && to != StartStage:
		return &TransitionError{From: from, To: to, Reason: TransitionReasonSkip}
	}

	return nil
}

// TransitionCheck is the verdict of validating a transition without applying it.
type TransitionCheck struct {
	From    Stage
	To      Stage
	Allowed bool
	Restart bool
	// Reason and Message are only set on rejected transitions.
	Reason  TransitionReason
	Message string
}
