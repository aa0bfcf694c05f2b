package model

// ReplayStepKind is the kind of operation a replay step applies on a tracker.
type ReplayStepKind string

const (
	ReplayStepKindTrack      ReplayStepKind = "track"
	ReplayStepKindTransition ReplayStepKind = "transition"
	ReplayStepKindFail       ReplayStepKind = "fail"
)

// ReplayScript is a scripted sequence of tracker operations that simulates a run.
type ReplayScript struct {
	Name string
	// Strict aborts the replay on the first rejected transition.
	Strict bool
	Steps  []ReplayStep
}

// ReplayStep is a single tracker operation. Only the fields of its kind are used.
type ReplayStep struct {
	Kind ReplayStepKind

	// Track and fail.
	Stage    Stage
	Progress int
	Message  string
	Data     any
	Error    string

	// Transition.
	From        Stage
	To          Stage
	TriggeredBy string
	Metadata    map[string]string
}

// ReplayStepResult is the outcome of applying a replay step.
type ReplayStepResult struct {
	Index int
	Step  ReplayStep
	// Err is the rejection of a transition step, nil if the step was applied.
	Err error
}

// ReplayResult is the outcome of replaying a script.
type ReplayResult struct {
	Script string
	Run    Run
	Steps  []ReplayStepResult
	Saved  bool
}

// Rejected returns the number of rejected steps.
func (r ReplayResult) Rejected() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}
