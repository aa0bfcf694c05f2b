package model

import "time"

// StageEventType is the kind of a stage event.
type StageEventType string

const (
	StageEventTypeProgress  StageEventType = "progress"
	StageEventTypeStarted   StageEventType = "started"
	StageEventTypeCompleted StageEventType = "completed"
	StageEventTypeFailed    StageEventType = "failed"
)

// StageEvent is an immutable telemetry record for a single stage.
type StageEvent struct {
	Stage     Stage
	Type      StageEventType
	Timestamp time.Time
	Progress  *int   // 0-100, optional.
	Message   string // Optional.
	Data      any    // Optional opaque payload.
}

// StageMetrics are the timing and error statistics of a stage.
type StageMetrics struct {
	Stage      Stage
	StartTime  time.Time
	EndTime    *time.Time
	Duration   *time.Duration
	ErrorCount int
}

// Finalized returns true if the stage end has already been recorded.
func (m StageMetrics) Finalized() bool { return m.EndTime != nil }
