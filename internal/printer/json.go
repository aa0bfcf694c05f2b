package printer

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/slok/stagetrack/internal/execution"
	"github.com/slok/stagetrack/internal/model"
)

// JSONPrinter prints run information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents a run in the list output (subset of fields).
type listItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CurrentStage *string   `json:"current_stage"`
	Progress     int       `json:"progress"`
	Failed       bool      `json:"failed"`
	CreatedAt    time.Time `json:"created_at"`
}

// runOutput represents the full run output.
type runOutput struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	CreatedAt        time.Time          `json:"created_at"`
	CurrentStage     *string            `json:"current_stage"`
	CurrentAccordion *string            `json:"current_accordion"`
	Progress         int                `json:"progress"`
	Failed           bool               `json:"failed"`
	ExecutionStages  []stageOutput      `json:"execution_stages"`
	Metrics          []metricsOutput    `json:"metrics"`
	History          []transitionOutput `json:"history"`
	Events           []eventOutput      `json:"events"`
}

type stageOutput struct {
	Number   int    `json:"number"`
	Key      string `json:"key"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Data     any    `json:"data,omitempty"`
}

type metricsOutput struct {
	Stage      string     `json:"stage"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	DurationMS *int64     `json:"duration_ms"`
	Duration   string     `json:"duration"`
	ErrorCount int        `json:"error_count"`
}

type transitionOutput struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	Timestamp   time.Time         `json:"timestamp"`
	TriggeredBy string            `json:"triggered_by,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type eventOutput struct {
	Stage     string    `json:"stage"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Progress  *int      `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
}

type replayOutput struct {
	Script   string           `json:"script"`
	Run      listItem         `json:"run"`
	Steps    int              `json:"steps"`
	Rejected []rejectedOutput `json:"rejected"`
	Saved    bool             `json:"saved"`
}

type rejectedOutput struct {
	Step   int    `json:"step"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error"`
}

type checkOutput struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Allowed bool   `json:"allowed"`
	Restart bool   `json:"restart"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

type stageCatalogOutput struct {
	Number    int    `json:"number"`
	Name      string `json:"name"`
	Start     bool   `json:"start"`
	Key       string `json:"key,omitempty"`
	Label     string `json:"label,omitempty"`
	Accordion string `json:"accordion,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintRunList prints runs in JSON format with a subset of fields.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]listItem, len(runs))
	for i, r := range runs {
		items[i] = toListItem(r)
	}

	return j.encode(items)
}

// PrintRun prints the full run in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run) error {
	output := runOutput{
		ID:              run.ID,
		Name:            run.Name,
		CreatedAt:       run.CreatedAt.UTC(),
		CurrentStage:    stageName(run.CurrentStage),
		Progress:        execution.OverallProgress(run.ExecutionStages),
		Failed:          run.Failed(),
		ExecutionStages: []stageOutput{},
		Metrics:         []metricsOutput{},
		History:         []transitionOutput{},
		Events:          []eventOutput{},
	}

	if acc, ok := execution.CurrentAccordion(run.ExecutionStages); ok {
		output.CurrentAccordion = &acc
	}

	for _, v := range execution.ProgressVisualization(run.ExecutionStages) {
		output.ExecutionStages = append(output.ExecutionStages, stageOutput{
			Number:   v.Number,
			Key:      string(v.Key),
			Label:    v.Label,
			Status:   string(v.Status),
			Progress: v.Progress,
			Data:     run.ExecutionStages[v.Key].Data,
		})
	}

	for _, m := range run.Metrics {
		mo := metricsOutput{
			Stage:      m.Stage.String(),
			StartTime:  m.StartTime.UTC(),
			Duration:   execution.FormatStageDuration(m.Duration),
			ErrorCount: m.ErrorCount,
		}
		if m.EndTime != nil {
			end := m.EndTime.UTC()
			mo.EndTime = &end
		}
		if m.Duration != nil {
			ms := m.Duration.Milliseconds()
			mo.DurationMS = &ms
		}
		output.Metrics = append(output.Metrics, mo)
	}

	for _, tr := range run.History {
		output.History = append(output.History, transitionOutput{
			From:        tr.From.String(),
			To:          tr.To.String(),
			Timestamp:   tr.Timestamp.UTC(),
			TriggeredBy: tr.TriggeredBy,
			Metadata:    tr.Metadata,
		})
	}

	for _, ev := range run.Events {
		output.Events = append(output.Events, eventOutput{
			Stage:     ev.Stage.String(),
			Type:      string(ev.Type),
			Timestamp: ev.Timestamp.UTC(),
			Progress:  ev.Progress,
			Message:   ev.Message,
			Data:      ev.Data,
		})
	}

	return j.encode(output)
}

// PrintReplayResults prints the replay results in JSON format.
func (j *JSONPrinter) PrintReplayResults(results []model.ReplayResult) error {
	items := make([]replayOutput, len(results))
	for i, r := range results {
		item := replayOutput{
			Script:   r.Script,
			Run:      toListItem(r.Run),
			Steps:    len(r.Steps),
			Rejected: []rejectedOutput{},
			Saved:    r.Saved,
		}
		for _, s := range r.Steps {
			if s.Err == nil {
				continue
			}
			ro := rejectedOutput{Step: s.Index, Error: s.Err.Error()}
			var terr *model.TransitionError
			if errors.As(s.Err, &terr) {
				ro.Reason = string(terr.Reason)
			}
			item.Rejected = append(item.Rejected, ro)
		}
		items[i] = item
	}

	return j.encode(items)
}

// PrintTransitionCheck prints the verdict of a transition check in JSON format.
func (j *JSONPrinter) PrintTransitionCheck(check model.TransitionCheck) error {
	return j.encode(checkOutput{
		From:    check.From.String(),
		To:      check.To.String(),
		Allowed: check.Allowed,
		Restart: check.Restart,
		Reason:  string(check.Reason),
		Message: check.Message,
	})
}

// PrintStages prints the stage catalog in JSON format.
func (j *JSONPrinter) PrintStages() error {
	stages := model.Stages()
	items := make([]stageCatalogOutput, 0, len(stages))
	for _, s := range stages {
		item := stageCatalogOutput{Number: int(s), Name: s.String(), Start: s == model.StartStage}
		if k, ok := execution.StageKeyFromNumber(int(s)); ok {
			item.Key, item.Label, item.Accordion = string(k), k.Label(), execution.AccordionID(int(s))
		}
		items = append(items, item)
	}

	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toListItem(r model.Run) listItem {
	return listItem{
		ID:           r.ID,
		Name:         r.Name,
		CurrentStage: stageName(r.CurrentStage),
		Progress:     execution.OverallProgress(r.ExecutionStages),
		Failed:       r.Failed(),
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func stageName(s *model.Stage) *string {
	if s == nil {
		return nil
	}
	name := s.String()
	return &name
}
