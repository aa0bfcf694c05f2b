package metrics

import (
	"time"

	"github.com/slok/stagetrack/internal/model"
)

// Recorder knows how to record stage tracking metrics.
type Recorder interface {
	ObserveEvent(stage model.Stage, eventType model.StageEventType)
	ObserveTransition(from, to model.Stage)
	ObserveRejectedTransition(reason model.TransitionReason)
	ObserveStageDuration(stage model.Stage, duration time.Duration)
}

// Noop is a Recorder that doesn't record anything.
const Noop = noop(0)

type noop int

func (noop) ObserveEvent(model.Stage, model.StageEventType)   {}
func (noop) ObserveTransition(model.Stage, model.Stage)       {}
func (noop) ObserveRejectedTransition(model.TransitionReason) {}
func (noop) ObserveStageDuration(model.Stage, time.Duration)  {}
