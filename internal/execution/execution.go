// Package execution has the read only projections over the execution panel
// state (model.ExecutionStagesState) used to present a run: progress
// percentages, the stage that should be expanded, icons, colors and durations.
//
// None of the functions mutate the state they receive.
package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/slok/stagetrack/internal/model"
)

// NewExecutionStages returns a state with all the panel stages pending.
func NewExecutionStages() model.ExecutionStagesState {
	s := make(model.ExecutionStagesState, len(model.ExecutionStageKeys()))
	for _, k := range model.ExecutionStageKeys() {
		s[k] = model.ExecutionStageState{Status: model.StageStatusPending, Progress: 0, Data: nil}
	}
	return s
}

// StageKeyFromNumber returns the panel key of a stage number (7-11).
func StageKeyFromNumber(n int) (model.ExecutionStageKey, bool) {
	return model.ExecutionStageKeyFromNumber(n)
}

// StageNumberFromKey returns the stage number of a panel key.
func StageNumberFromKey(k model.ExecutionStageKey) (int, bool) {
	return model.ExecutionStageNumberFromKey(k)
}

// AccordionID returns the UI identifier of the panel of a stage number.
func AccordionID(n int) string { return fmt.Sprintf("stage-%d", n) }

// StageStatus returns the status of a stage number, unknown or missing stages are pending.
func StageStatus(n int, state model.ExecutionStagesState) model.StageStatus {
	k, ok := StageKeyFromNumber(n)
	if !ok {
		return model.StageStatusPending
	}
	s, ok := state[k]
	if !ok || s.Status == "" {
		return model.StageStatusPending
	}
	return s.Status
}

// IsCurrentStage returns true if the stage is in progress.
func IsCurrentStage(n int, state model.ExecutionStagesState) bool {
	return StageStatus(n, state) == model.StageStatusInProgress
}

// CurrentAccordion returns the accordion that should be expanded:
//   - The first stage in progress.
//   - Otherwise the stage after the last completed one, none if the last completed is the final stage.
//   - Otherwise the first stage.
func CurrentAccordion(state model.ExecutionStagesState) (string, bool) {
	numbers := stageNumbers()

	for _, n := range numbers {
		if StageStatus(n, state) == model.StageStatusInProgress {
			return AccordionID(n), true
		}
	}

	lastCompleted := -1
	for _, n := range numbers {
		if StageStatus(n, state) == model.StageStatusCompleted {
			lastCompleted = n
		}
	}
	if lastCompleted != -1 {
		next := lastCompleted + 1
		if _, ok := StageKeyFromNumber(next); !ok {
			return "", false
		}
		return AccordionID(next), true
	}

	return AccordionID(numbers[0]), true
}

// TotalProgress returns the mean progress of all the panel stages.
func TotalProgress(state model.ExecutionStagesState) int {
	keys := model.ExecutionStageKeys()
	total := 0
	for _, k := range keys {
		total += state[k].Progress
	}
	return int(math.Round(float64(total) / float64(len(keys))))
}

// OverallProgress returns the weighted completion percentage of the run: each
// completed stage counts as a whole and each in progress stage counts by its progress.
func OverallProgress(state model.ExecutionStagesState) int {
	keys := model.ExecutionStageKeys()
	done := 0.0
	for _, k := range keys {
		s := state[k]
		switch s.Status {
		case model.StageStatusCompleted:
			done++
		case model.StageStatusInProgress:
			done += float64(s.Progress) / 100
		}
	}
	return int(math.Round(done / float64(len(keys)) * 100))
}

// StageView is the presentation of a single panel stage.
type StageView struct {
	Number      int
	Key         model.ExecutionStageKey
	Label       string
	Status      model.StageStatus
	Progress    int
	IsActive    bool
	IsCompleted bool
	IsFailed    bool
}

// ProgressVisualization returns the view of every panel stage ordered by stage number.
func ProgressVisualization(state model.ExecutionStagesState) []StageView {
	views := make([]StageView, 0, len(model.ExecutionStageKeys()))
	for _, k := range model.ExecutionStageKeys() {
		n, _ := StageNumberFromKey(k)
		status := StageStatus(n, state)
		views = append(views, StageView{
			Number:      n,
			Key:         k,
			Label:       k.Label(),
			Status:      status,
			Progress:    state[k].Progress,
			IsActive:    status == model.StageStatusInProgress,
			IsCompleted: status == model.StageStatusCompleted,
			IsFailed:    status == model.StageStatusFailed,
		})
	}
	return views
}

var statusIcons = map[model.StageStatus]string{
	model.StageStatusPending:    "○",
	model.StageStatusInProgress: "●",
	model.StageStatusCompleted:  "✓",
	model.StageStatusFailed:     "✗",
}

var statusColors = map[model.StageStatus]string{
	model.StageStatusPending:    "gray",
	model.StageStatusInProgress: "blue",
	model.StageStatusCompleted:  "green",
	model.StageStatusFailed:     "red",
}

// StatusIcon returns the glyph of a status.
func StatusIcon(s model.StageStatus) string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return statusIcons[model.StageStatusPending]
}

// StatusColor returns the color token of a status.
func StatusColor(s model.StageStatus) string {
	if color, ok := statusColors[s]; ok {
		return color
	}
	return statusColors[model.StageStatusPending]
}

// FormatStageDuration formats a stage duration as "Xs", "Xm Ys" or "Xh Ym",
// truncating each unit. Nil durations are "N/A".
func FormatStageDuration(d *time.Duration) string {
	if d == nil {
		return "N/A"
	}

	seconds := int64(*d / time.Second)
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}

	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func stageNumbers() []int {
	keys := model.ExecutionStageKeys()
	ns := make([]int, 0, len(keys))
	for _, k := range keys {
		n, _ := StageNumberFromKey(k)
		ns = append(ns, n)
	}
	return ns
}
