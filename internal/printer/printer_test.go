package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/printer"
)

func runFixture() model.Run {
	createdAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	transitionAt := createdAt.Add(125 * time.Second)
	stage := model.StageCreateRepo
	p50, p100, p0 := 50, 100, 0
	d := 125 * time.Second

	return model.Run{
		ID:           "01HZX4Q8J6G2N0R7S5T3V1W9YB",
		Name:         "demo-run",
		CreatedAt:    createdAt,
		CurrentStage: &stage,
		History: []model.StageTransition{
			{From: model.StagePlanning, To: model.StageCreateRepo, Timestamp: transitionAt, TriggeredBy: "ui", Metadata: map[string]string{"repo": "acme", "branch": "main"}},
		},
		Events: []model.StageEvent{
			{Stage: model.StagePlanning, Type: model.StageEventTypeProgress, Timestamp: createdAt, Progress: &p50, Message: "drafting plan"},
			{Stage: model.StagePlanning, Type: model.StageEventTypeCompleted, Timestamp: transitionAt, Progress: &p100},
			{Stage: model.StageCreateRepo, Type: model.StageEventTypeStarted, Timestamp: transitionAt, Progress: &p0},
			{Stage: model.StageCreateRepo, Type: model.StageEventTypeFailed, Timestamp: transitionAt, Message: "github timeout"},
		},
		Metrics: []model.StageMetrics{
			{Stage: model.StagePlanning, StartTime: createdAt, EndTime: &transitionAt, Duration: &d},
			{Stage: model.StageCreateRepo, StartTime: transitionAt, ErrorCount: 1},
		},
		ExecutionStages: model.ExecutionStagesState{
			model.ExecutionStageKeyPlanning:          {Status: model.StageStatusCompleted, Progress: 100},
			model.ExecutionStageKeyCreateRepo:        {Status: model.StageStatusFailed},
			model.ExecutionStageKeyPublishBacklog:    {Status: model.StageStatusPending},
			model.ExecutionStageKeyAgentDeployment:   {Status: model.StageStatusPending},
			model.ExecutionStageKeyParallelExecution: {Status: model.StageStatusPending},
		},
	}
}

func TestTablePrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintRun(runFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Name:       demo-run")
	assert.Contains(t, out, "Stage:      CREATE_REPO")
	assert.Contains(t, out, "Accordion:  stage-8")
	assert.Contains(t, out, "Progress:   [####----------------] 20%")
	assert.Contains(t, out, "Failed:     yes")
	assert.Contains(t, out, "2m 5s")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "branch=main,repo=acme")
	assert.Contains(t, out, "github timeout")
	assert.Contains(t, out, "10:02:05.000")
}

func TestTablePrinterPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintRunList(nil))
	assert.Empty(t, buf.String())

	require.NoError(t, p.PrintRunList([]model.Run{runFixture(), {ID: "x", Name: "fresh", CreatedAt: time.Now()}}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^NAME\s+STAGE\s+PROGRESS\s+FAILED\s+CREATED$`, lines[0])
	assert.Regexp(t, `^demo-run\s+CREATE_REPO\s+20%\s+yes\s+`, lines[1])
	assert.Regexp(t, `^fresh\s+-\s+0%\s+no\s+`, lines[2])
}

func TestTablePrinterPrintReplayResults(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	res := model.ReplayResult{
		Script: "demo.yaml",
		Run:    runFixture(),
		Steps: []model.ReplayStepResult{
			{Index: 0},
			{Index: 1, Err: &model.TransitionError{From: model.StagePlanning, To: model.StagePublishBacklog, Reason: model.TransitionReasonSkip}},
		},
		Saved: true,
	}
	require.NoError(t, p.PrintReplayResults([]model.ReplayResult{res}))

	out := buf.String()
	assert.Regexp(t, `demo\.yaml\s+demo-run\s+CREATE_REPO\s+20%\s+2\s+1\s+yes`, out)
	assert.Contains(t, out, "demo.yaml: step 1 rejected: cannot skip from PLANNING to PUBLISH_BACKLOG; must progress sequentially")
}

func TestTablePrinterPrintTransitionCheck(t *testing.T) {
	tests := map[string]struct {
		check  model.TransitionCheck
		expOut string
	}{
		"allowed": {
			check:  model.TransitionCheck{From: model.StagePlanning, To: model.StageCreateRepo, Allowed: true},
			expOut: "PLANNING -> CREATE_REPO: allowed\n",
		},
		"restart": {
			check:  model.TransitionCheck{From: model.StageValidation, To: model.StagePlanning, Allowed: true, Restart: true},
			expOut: "VALIDATION -> PLANNING: allowed (restart)\n",
		},
		"rejected": {
			check:  model.TransitionCheck{From: model.StageCreateRepo, To: model.StageCreateRepo, Reason: model.TransitionReasonSameStage, Message: "already in stage CREATE_REPO"},
			expOut: "CREATE_REPO -> CREATE_REPO: rejected (same_stage): already in stage CREATE_REPO\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printer.NewTablePrinter(&buf).PrintTransitionCheck(test.check))
			assert.Equal(t, test.expOut, buf.String())
		})
	}
}

func TestTablePrinterPrintStages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&buf).PrintStages())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 7)
	assert.Regexp(t, `^7\s+PLANNING \(start\)\s+planning\s+Planning\s+stage-7$`, lines[1])
	assert.Regexp(t, `^12\s+VALIDATION\s+-\s+-\s+-$`, lines[6])
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}

func TestJSONPrinterPrintRun(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintRun(runFixture())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "demo-run", out["name"])
	assert.Equal(t, "CREATE_REPO", out["current_stage"])
	assert.Equal(t, "stage-8", out["current_accordion"])
	assert.Equal(t, 20.0, out["progress"])
	assert.Equal(t, true, out["failed"])
	assert.Len(t, out["execution_stages"], 5)
	assert.Len(t, out["events"], 4)

	metrics := out["metrics"].([]any)
	require.Len(t, metrics, 2)
	m0 := metrics[0].(map[string]any)
	assert.Equal(t, "2m 5s", m0["duration"])
	assert.Equal(t, 125000.0, m0["duration_ms"])
	m1 := metrics[1].(map[string]any)
	assert.Equal(t, "N/A", m1["duration"])
	assert.Nil(t, m1["end_time"])

	assert.Contains(t, buf.String(), `"timestamp": "2026-10-01T10:02:05Z"`)
}

func TestJSONPrinterPrintReplayResults(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	res := model.ReplayResult{
		Script: "demo.yaml",
		Run:    runFixture(),
		Steps: []model.ReplayStepResult{
			{Index: 0, Err: &model.TransitionError{From: model.StagePlanning, To: model.StageValidation, Reason: model.TransitionReasonSkip}},
		},
	}
	require.NoError(t, p.PrintReplayResults([]model.ReplayResult{res}))

	out := buf.String()
	assert.Contains(t, out, `"script": "demo.yaml"`)
	assert.Contains(t, out, `"reason": "skip"`)
	assert.Contains(t, out, `"saved": false`)
}

func TestJSONPrinterPrintStages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintStages())

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 6)
	assert.Equal(t, true, out[0]["start"])
	assert.Equal(t, "createRepo", out[1]["key"])
	_, hasKey := out[5]["key"]
	assert.False(t, hasKey)
}

func TestJSONPrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&buf).PrintMessage("done"))
	assert.JSONEq(t, `{"message": "done"}`, buf.String())
}
