package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoScript = `name: demo
steps:
  - track: {stage: planning, progress: 50, message: "drafting plan"}
  - transition: {from: planning, to: createRepo, by: ui}
  - transition: {from: createRepo, to: agentDeployment}
  - fail: {stage: createRepo, error: "github timeout"}
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), append([]string{"stagetrack"}, args...), nil, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunCheck(t *testing.T) {
	tests := map[string]struct {
		args   []string
		expOut string
		expErr bool
	}{
		"An allowed transition should be reported as allowed.": {
			args:   []string{"check", "planning", "createRepo"},
			expOut: "PLANNING -> CREATE_REPO: allowed\n",
		},
		"A restart should be reported as allowed restart.": {
			args:   []string{"check", "12", "7"},
			expOut: "VALIDATION -> PLANNING: allowed (restart)\n",
		},
		"A skip should be rejected.": {
			args:   []string{"check", "PLANNING", "PUBLISH_BACKLOG"},
			expOut: "PLANNING -> PUBLISH_BACKLOG: rejected (skip): cannot skip from PLANNING to PUBLISH_BACKLOG; must progress sequentially\n",
		},
		"Unknown stages should fail.": {
			args:   []string{"check", "planning", "deploy"},
			expErr: true,
		},
		"Missing arguments should fail.": {
			args:   []string{"check", "planning"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := runCLI(t, test.args...)

			if test.expErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expOut, out)
		})
	}
}

func TestRunStages(t *testing.T) {
	out, err := runCLI(t, "stages", "--format", "json")
	require.NoError(t, err)

	var stages []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stages))
	require.Len(t, stages, 6)
	assert.Equal(t, "PLANNING", stages[0]["name"])
	assert.Equal(t, "stage-11", stages[4]["accordion"])
}

func TestRunReplayAndArchive(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stagetrack.db")
	scriptPath := filepath.Join(dir, "demo.yaml")
	metricsPath := filepath.Join(dir, "replay.prom")
	require.NoError(os.WriteFile(scriptPath, []byte(demoScript), 0o644))

	// Replay and archive.
	out, err := runCLI(t, "--no-log", "--db-path", dbPath, "replay", scriptPath, "--save", "--metrics-out", metricsPath, "-m", "env=test")
	require.NoError(err)
	assert.Contains(t, out, "CREATE_REPO")
	assert.Contains(t, out, "step 2 rejected: cannot skip from CREATE_REPO to AGENT_DEPLOYMENT")

	metricsData, err := os.ReadFile(metricsPath)
	require.NoError(err)
	assert.Contains(t, string(metricsData), "stagetrack_")

	// The run is archived.
	out, err = runCLI(t, "--db-path", dbPath, "runs", "list", "--format", "json", "--failed")
	require.NoError(err)
	var runs []map[string]any
	require.NoError(json.Unmarshal([]byte(out), &runs))
	require.Len(runs, 1)
	name := runs[0]["name"].(string)
	assert.Equal(t, "CREATE_REPO", runs[0]["current_stage"])

	out, err = runCLI(t, "--db-path", dbPath, "runs", "list", "--stage", "validation")
	require.NoError(err)
	assert.Empty(t, out)

	out, err = runCLI(t, "--db-path", dbPath, "runs", "show", name, "--format", "json")
	require.NoError(err)
	var run map[string]any
	require.NoError(json.Unmarshal([]byte(out), &run))
	history := run["history"].([]any)
	require.Len(history, 1)
	assert.Equal(t, map[string]any{"env": "test"}, history[0].(map[string]any)["metadata"])

	// Removal.
	out, err = runCLI(t, "--no-log", "--db-path", dbPath, "runs", "rm", name)
	require.NoError(err)
	assert.Equal(t, "Removed run: "+name+"\n", out)

	_, err = runCLI(t, "--db-path", dbPath, "runs", "show", name)
	assert.Error(t, err)
}

func TestRunReplayStrict(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "demo.yaml")
	require.NoError(t, os.WriteFile(scriptPath, []byte(demoScript), 0o644))

	_, err := runCLI(t, "--no-log", "--db-path", filepath.Join(dir, "db"), "replay", "--strict", scriptPath)
	assert.Error(t, err)
}

func TestRunReplayInvalidScriptNameArchivesNothing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stagetrack.db")
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(demoScript), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("name: demo run\nsteps:\n  - track: {stage: planning}\n"), 0o644))

	_, err := runCLI(t, "--no-log", "--db-path", dbPath, "replay", "--save", good, bad)
	assert.Error(t, err)

	out, err := runCLI(t, "--db-path", dbPath, "runs", "list", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
