package printer

import "github.com/slok/stagetrack/internal/model"

// Printer knows how to print run information in different formats.
type Printer interface {
	PrintRunList(runs []model.Run) error
	PrintRun(run model.Run) error
	PrintReplayResults(results []model.ReplayResult) error
	PrintTransitionCheck(check model.TransitionCheck) error
	PrintStages() error
	PrintMessage(msg string) error
}

// stageMetrics indexes the run metrics by stage.
func stageMetrics(run model.Run) map[model.Stage]model.StageMetrics {
	ms := make(map[model.Stage]model.StageMetrics, len(run.Metrics))
	for _, m := range run.Metrics {
		ms[m.Stage] = m
	}
	return ms
}
