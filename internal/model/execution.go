package model

// ExecutionStageKey is the execution panel key of a stage.
type ExecutionStageKey string

const (
	ExecutionStageKeyPlanning          ExecutionStageKey = "planning"
	ExecutionStageKeyCreateRepo        ExecutionStageKey = "createRepo"
	ExecutionStageKeyPublishBacklog    ExecutionStageKey = "publishBacklog"
	ExecutionStageKeyAgentDeployment   ExecutionStageKey = "agentDeployment"
	ExecutionStageKeyParallelExecution ExecutionStageKey = "parallelExecution"
)

// ExecutionStageKeys returns the panel keys ordered by stage number.
func ExecutionStageKeys() []ExecutionStageKey {
	return []ExecutionStageKey{
		ExecutionStageKeyPlanning,
		ExecutionStageKeyCreateRepo,
		ExecutionStageKeyPublishBacklog,
		ExecutionStageKeyAgentDeployment,
		ExecutionStageKeyParallelExecution,
	}
}

// executionStageNumbers maps the panel keys to the global stage numbers (7-11).
var executionStageNumbers = map[ExecutionStageKey]int{
	ExecutionStageKeyPlanning:          int(StagePlanning),
	ExecutionStageKeyCreateRepo:        int(StageCreateRepo),
	ExecutionStageKeyPublishBacklog:    int(StagePublishBacklog),
	ExecutionStageKeyAgentDeployment:   int(StageAgentDeployment),
	ExecutionStageKeyParallelExecution: int(StageParallelExecution),
}

var executionStageKeys = map[int]ExecutionStageKey{
	int(StagePlanning):          ExecutionStageKeyPlanning,
	int(StageCreateRepo):        ExecutionStageKeyCreateRepo,
	int(StagePublishBacklog):    ExecutionStageKeyPublishBacklog,
	int(StageAgentDeployment):   ExecutionStageKeyAgentDeployment,
	int(StageParallelExecution): ExecutionStageKeyParallelExecution,
}

var executionStageLabels = map[ExecutionStageKey]string{
	ExecutionStageKeyPlanning:          "Planning",
	ExecutionStageKeyCreateRepo:        "Create Repository",
	ExecutionStageKeyPublishBacklog:    "Publish Backlog",
	ExecutionStageKeyAgentDeployment:   "Agent Deployment",
	ExecutionStageKeyParallelExecution: "Parallel Execution",
}

// ExecutionStageKeyFromNumber returns the panel key of a stage number.
func ExecutionStageKeyFromNumber(n int) (ExecutionStageKey, bool) {
	k, ok := executionStageKeys[n]
	return k, ok
}

// ExecutionStageNumberFromKey returns the stage number of a panel key.
func ExecutionStageNumberFromKey(k ExecutionStageKey) (int, bool) {
	n, ok := executionStageNumbers[k]
	return n, ok
}

// Label returns the human readable label of the key.
func (k ExecutionStageKey) Label() string {
	if l, ok := executionStageLabels[k]; ok {
		return l
	}
	return string(k)
}

// StageStatus is the execution status of a stage in the panel.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusFailed     StageStatus = "failed"
)

// StageStatuses returns all the stage statuses.
func StageStatuses() []StageStatus {
	return []StageStatus{StageStatusPending, StageStatusInProgress, StageStatusCompleted, StageStatusFailed}
}

// ExecutionStageState is the status and progress of a single panel stage.
type ExecutionStageState struct {
	Status   StageStatus
	Progress int // 0-100.
	Data     any
}

// ExecutionStagesState is the per-stage status of the execution panel, keyed by
// panel key. A complete state has exactly the 5 panel keys.
type ExecutionStagesState map[ExecutionStageKey]ExecutionStageState

// Clone returns a shallow copy of the state.
func (s ExecutionStagesState) Clone() ExecutionStagesState {
	c := make(ExecutionStagesState, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
