package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is a phase of the execution pipeline. Stages are totally ordered by
// their number, which uses the product-wide stage numbering.
type Stage int

const (
	// StagePlanning is the start stage, the only one a run can return to.
	StagePlanning Stage = 7
	// StageCreateRepo creates the project repository.
	StageCreateRepo Stage = 8
	// StagePublishBacklog publishes the backlog to the repository tracker.
	StagePublishBacklog Stage = 9
	// StageAgentDeployment deploys the coding agents.
	StageAgentDeployment Stage = 10
	// StageParallelExecution runs the agents in parallel on the backlog.
	StageParallelExecution Stage = 11
	// StageValidation validates the produced work.
	StageValidation Stage = 12
)

// StartStage is the designated stage every restart goes back to.
const StartStage = StagePlanning

// Stages returns all tracked stages in order.
func Stages() []Stage {
	return []Stage{
		StagePlanning,
		StageCreateRepo,
		StagePublishBacklog,
		StageAgentDeployment,
		StageParallelExecution,
		StageValidation,
	}
}

var stageNames = map[Stage]string{
	StagePlanning:          "PLANNING",
	StageCreateRepo:        "CREATE_REPO",
	StagePublishBacklog:    "PUBLISH_BACKLOG",
	StageAgentDeployment:   "AGENT_DEPLOYMENT",
	StageParallelExecution: "PARALLEL_EXECUTION",
	StageValidation:        "VALIDATION",
}

// String returns the stage name, or the number for unknown stages.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return strconv.Itoa(int(s))
}

// IsValid returns true if the stage is one of the tracked stages.
func (s Stage) IsValid() bool {
	_, ok := stageNames[s]
	return ok
}

// ParseStage parses a stage from its name (`AGENT_DEPLOYMENT`), its execution
// panel key (`agentDeployment`) or its number (`10`). Matching is case insensitive.
func ParseStage(s string) (Stage, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("stage cannot be empty: %w", ErrNotValid)
	}

	if n, err := strconv.Atoi(s); err == nil {
		st := Stage(n)
		if !st.IsValid() {
			return 0, fmt.Errorf("unknown stage number %d: %w", n, ErrNotValid)
		}
		return st, nil
	}

	for st, name := range stageNames {
		if strings.EqualFold(name, s) {
			return st, nil
		}
	}

	for key, n := range executionStageNumbers {
		if strings.EqualFold(string(key), s) {
			return Stage(n), nil
		}
	}

	return 0, fmt.Errorf("unknown stage %q: %w", s, ErrNotValid)
}
