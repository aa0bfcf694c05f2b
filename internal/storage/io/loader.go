package io

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/slok/stagetrack/internal/model"
)

// ReplayScriptYAMLRepository loads replay scripts from YAML files.
type ReplayScriptYAMLRepository struct {
	fs fs.FS
}

// NewReplayScriptYAMLRepository creates a new YAML replay script repository.
func NewReplayScriptYAMLRepository(filesystem fs.FS) *ReplayScriptYAMLRepository {
	return &ReplayScriptYAMLRepository{fs: filesystem}
}

// GetReplayScript loads a replay script from a YAML file and returns a validated domain model.
// Scripts without name are named after the file.
func (r *ReplayScriptYAMLRepository) GetReplayScript(ctx context.Context, p string) (model.ReplayScript, error) {
	data, err := fs.ReadFile(r.fs, p)
	if err != nil {
		return model.ReplayScript{}, fmt.Errorf("reading replay script file: %w", err)
	}

	if ctx.Err() != nil {
		return model.ReplayScript{}, ctx.Err()
	}

	var script ReplayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return model.ReplayScript{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if script.Name == "" {
		script.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}

	s, err := script.toModel()
	if err != nil {
		return model.ReplayScript{}, fmt.Errorf("invalid replay script: %w", err)
	}

	return s, nil
}

// ReplayScript represents the YAML structure of a replay script.
type ReplayScript struct {
	Name   string       `yaml:"name"`
	Strict bool         `yaml:"strict"`
	Steps  []ReplayStep `yaml:"steps"`
}

// ReplayStep represents the YAML structure of a replay step, exactly one operation must be set.
type ReplayStep struct {
	Track      *TrackStep      `yaml:"track,omitempty"`
	Transition *TransitionStep `yaml:"transition,omitempty"`
	Fail       *FailStep       `yaml:"fail,omitempty"`
}

// TrackStep represents the YAML structure of a progress step.
type TrackStep struct {
	Stage    string `yaml:"stage"`
	Progress int    `yaml:"progress"`
	Message  string `yaml:"message"`
	Data     any    `yaml:"data"`
}

// TransitionStep represents the YAML structure of a transition step.
type TransitionStep struct {
	From     string            `yaml:"from"`
	To       string            `yaml:"to"`
	By       string            `yaml:"by"`
	Metadata map[string]string `yaml:"metadata"`
}

// FailStep represents the YAML structure of a failure step.
type FailStep struct {
	Stage string `yaml:"stage"`
	Error string `yaml:"error"`
	Data  any    `yaml:"data"`
}

func (s ReplayScript) toModel() (model.ReplayScript, error) {
	if len(s.Steps) == 0 {
		return model.ReplayScript{}, fmt.Errorf("at least one step is required")
	}
	// Replayed runs are named after the script.
	if err := model.ValidateRunName(s.Name); err != nil {
		return model.ReplayScript{}, fmt.Errorf("invalid name: %w", err)
	}

	script := model.ReplayScript{
		Name:   s.Name,
		Strict: s.Strict,
		Steps:  make([]model.ReplayStep, 0, len(s.Steps)),
	}
	for i, step := range s.Steps {
		ms, err := step.toModel()
		if err != nil {
			return model.ReplayScript{}, fmt.Errorf("step %d: %w", i, err)
		}
		script.Steps = append(script.Steps, ms)
	}

	return script, nil
}

func (s ReplayStep) validate() error {
	ops := 0
	for _, set := range []bool{s.Track != nil, s.Transition != nil, s.Fail != nil} {
		if set {
			ops++
		}
	}
	if ops != 1 {
		return fmt.Errorf("exactly one of track, transition or fail must be specified, got %d", ops)
	}

	if s.Track != nil && (s.Track.Progress < 0 || s.Track.Progress > 100) {
		return fmt.Errorf("progress must be between 0 and 100, got: %d", s.Track.Progress)
	}

	return nil
}

func (s ReplayStep) toModel() (model.ReplayStep, error) {
	if err := s.validate(); err != nil {
		return model.ReplayStep{}, err
	}

	switch {
	case s.Track != nil:
		stage, err := model.ParseStage(s.Track.Stage)
		if err != nil {
			return model.ReplayStep{}, fmt.Errorf("track stage: %w", err)
		}
		return model.ReplayStep{
			Kind:     model.ReplayStepKindTrack,
			Stage:    stage,
			Progress: s.Track.Progress,
			Message:  s.Track.Message,
			Data:     normalizeData(s.Track.Data),
		}, nil

	case s.Transition != nil:
		from, err := model.ParseStage(s.Transition.From)
		if err != nil {
			return model.ReplayStep{}, fmt.Errorf("transition from: %w", err)
		}
		to, err := model.ParseStage(s.Transition.To)
		if err != nil {
			return model.ReplayStep{}, fmt.Errorf("transition to: %w", err)
		}
		return model.ReplayStep{
			Kind:        model.ReplayStepKindTransition,
			From:        from,
			To:          to,
			TriggeredBy: s.Transition.By,
			Metadata:    s.Transition.Metadata,
		}, nil

	default:
		stage, err := model.ParseStage(s.Fail.Stage)
		if err != nil {
			return model.ReplayStep{}, fmt.Errorf("fail stage: %w", err)
		}
		return model.ReplayStep{
			Kind:  model.ReplayStepKindFail,
			Stage: stage,
			Error: s.Fail.Error,
			Data:  normalizeData(s.Fail.Data),
		}, nil
	}
}

// normalizeData converts the mappings YAML decodes with non string keys
// (map[any]any) into map[string]any so payloads can be encoded as JSON.
func normalizeData(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = normalizeData(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[k] = normalizeData(v)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, v := range t {
			s[i] = normalizeData(v)
		}
		return s
	default:
		return v
	}
}
