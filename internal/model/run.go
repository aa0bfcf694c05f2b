package model

import (
	"fmt"
	"maps"
	"regexp"
	"time"
)

// Run is a point in time snapshot of a pipeline run tracked by a tracker.
type Run struct {
	ID              string
	Name            string
	CreatedAt       time.Time
	CurrentStage    *Stage
	History         []StageTransition
	Events          []StageEvent
	Metrics         []StageMetrics // Ordered by stage.
	ExecutionStages ExecutionStagesState
}

var runNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateRunName checks that a name can be used as a run name.
func ValidateRunName(name string) error {
	if !runNameRegexp.MatchString(name) {
		return fmt.Errorf("run name %q must be alphanumeric with '-', '_' or '.': %w", name, ErrNotValid)
	}
	return nil
}

// Validate validates the run.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required: %w", ErrNotValid)
	}
	if err := ValidateRunName(r.Name); err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("run creation time is required: %w", ErrNotValid)
	}
	if r.CurrentStage != nil && !r.CurrentStage.IsValid() {
		return fmt.Errorf("run current stage %s is unknown: %w", r.CurrentStage, ErrNotValid)
	}

	return nil
}

// Failed returns true if any stage of the run recorded an error.
func (r Run) Failed() bool {
	for _, m := range r.Metrics {
		if m.ErrorCount > 0 {
			return true
		}
	}
	return false
}

// Clone returns a copy of the run that doesn't share slices, maps or pointers
// with the original. Event and panel data payloads are shared.
func (r Run) Clone() Run {
	c := r
	if r.CurrentStage != nil {
		s := *r.CurrentStage
		c.CurrentStage = &s
	}
	if r.History != nil {
		c.History = make([]StageTransition, 0, len(r.History))
		for _, tr := range r.History {
			tr.Metadata = maps.Clone(tr.Metadata)
			c.History = append(c.History, tr)
		}
	}
	if r.Events != nil {
		c.Events = make([]StageEvent, 0, len(r.Events))
		for _, ev := range r.Events {
			if ev.Progress != nil {
				p := *ev.Progress
				ev.Progress = &p
			}
			c.Events = append(c.Events, ev)
		}
	}
	if r.Metrics != nil {
		c.Metrics = make([]StageMetrics, 0, len(r.Metrics))
		for _, m := range r.Metrics {
			if m.EndTime != nil {
				e := *m.EndTime
				m.EndTime = &e
			}
			if m.Duration != nil {
				d := *m.Duration
				m.Duration = &d
			}
			c.Metrics = append(c.Metrics, m)
		}
	}
	if r.ExecutionStages != nil {
		c.ExecutionStages = r.ExecutionStages.Clone()
	}
	return c
}
