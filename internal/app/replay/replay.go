package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/metrics"
	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/storage"
	"github.com/slok/stagetrack/internal/tracker"
	"github.com/slok/stagetrack/internal/utils/kv"
)

// ScriptRepository knows how to get replay scripts.
type ScriptRepository interface {
	GetReplayScript(ctx context.Context, path string) (model.ReplayScript, error)
}

// ServiceConfig is the configuration for the replay service.
type ServiceConfig struct {
	ScriptRepository ScriptRepository
	// RunRepository is only required to save the replayed runs.
	RunRepository storage.RunRepository
	Recorder      metrics.Recorder
	// Observer receives every event of every replayed run (optional).
	Observer func(run string, ev model.StageEvent)
	// MaxConcurrency is the number of scripts replayed at the same time.
	MaxConcurrency int
	IDGen          func() string
	Now            func() time.Time
	Logger         log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.ScriptRepository == nil {
		return fmt.Errorf("script repository is required")
	}

	if c.Recorder == nil {
		c.Recorder = metrics.Noop
	}

	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}

	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}

	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Replay"})

	return nil
}

// Service replays scripts through fresh trackers, one per script.
type Service struct {
	scripts        ScriptRepository
	runs           storage.RunRepository
	recorder       metrics.Recorder
	observer       func(run string, ev model.StageEvent)
	maxConcurrency int
	idGen          func() string
	now            func() time.Time
	logger         log.Logger
}

// NewService creates a new replay service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		scripts:        cfg.ScriptRepository,
		runs:           cfg.RunRepository,
		recorder:       cfg.Recorder,
		observer:       cfg.Observer,
		maxConcurrency: cfg.MaxConcurrency,
		idGen:          cfg.IDGen,
		now:            cfg.Now,
		logger:         cfg.Logger,
	}, nil
}

// Request represents the replay request parameters.
type Request struct {
	// Scripts are the paths of the scripts to replay.
	Scripts []string
	// Save archives the resulting runs.
	Save bool
	// Strict aborts on the first rejected transition, for every script.
	Strict bool
	// Metadata is added to every replayed transition, step metadata wins on conflicts.
	Metadata map[string]string
}

// Run replays the scripts concurrently, results are returned in the same order as the scripts.
// A rejected transition is recorded in the step result and the replay goes on, unless
// the script or the request are strict.
func (s *Service) Run(ctx context.Context, req Request) ([]model.ReplayResult, error) {
	if len(req.Scripts) == 0 {
		return nil, fmt.Errorf("at least one script is required: %w", model.ErrNotValid)
	}
	if req.Save && s.runs == nil {
		return nil, fmt.Errorf("saving runs requires a run repository: %w", model.ErrNotValid)
	}

	results := make([]model.ReplayResult, len(req.Scripts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, path := range req.Scripts {
		g.Go(func() error {
			res, err := s.replay(gctx, path, req)
			if err != nil {
				return fmt.Errorf("could not replay %s: %w", path, err)
			}
			results[i] = *res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.Save {
		// Nothing is archived unless every run can be.
		for _, res := range results {
			if err := res.Run.Validate(); err != nil {
				return nil, fmt.Errorf("could not save run %s: %w", res.Run.Name, err)
			}
		}
		for i := range results {
			if err := s.runs.CreateRun(ctx, results[i].Run); err != nil {
				return nil, fmt.Errorf("could not save run %s: %w", results[i].Run.Name, err)
			}
			results[i].Saved = true
			s.logger.Infof("saved run %s (ID: %s)", results[i].Run.Name, results[i].Run.ID)
		}
	}

	return results, nil
}

func (s *Service) replay(ctx context.Context, path string, req Request) (*model.ReplayResult, error) {
	script, err := s.scripts.GetReplayScript(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("could not load script: %w", err)
	}
	strict := req.Strict || script.Strict

	id := s.idGen()
	name := runName(script.Name, id)
	logger := s.logger.WithValues(log.Kv{"script": path, "run": name})

	var observer func(model.StageEvent)
	if s.observer != nil {
		observer = func(ev model.StageEvent) { s.observer(name, ev) }
	}

	t, err := tracker.New(tracker.Config{
		ID:       id,
		Name:     name,
		Observer: observer,
		Now:      s.now,
		Recorder: s.recorder,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create tracker: %w", err)
	}

	res := &model.ReplayResult{Script: path}
	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepRes := model.ReplayStepResult{Index: i, Step: step}
		switch step.Kind {
		case model.ReplayStepKindTrack:
			t.TrackStage(step.Stage, step.Progress, step.Message, step.Data)
		case model.ReplayStepKindTransition:
			_, err := t.TransitionStage(step.From, step.To, step.TriggeredBy, kv.MergeMaps(req.Metadata, step.Metadata))
			if err != nil {
				if strict {
					return nil, fmt.Errorf("step %d: %w", i, err)
				}
				logger.Warningf("step %d rejected: %s", i, err)
				stepRes.Err = err
			}
		case model.ReplayStepKindFail:
			var cause error
			if step.Error != "" {
				cause = errors.New(step.Error)
			}
			t.FailStage(step.Stage, cause, step.Data)
		default:
			return nil, fmt.Errorf("step %d: unknown step kind %q: %w", i, step.Kind, model.ErrNotValid)
		}
		res.Steps = append(res.Steps, stepRes)
	}

	res.Run = t.Snapshot()
	logger.Debugf("replayed %d steps (%d rejected)", len(res.Steps), res.Rejected())

	return res, nil
}

// runName names a run after its script, with an ID based suffix so replaying
// the same script more than once doesn't collide in the archive.
func runName(script, id string) string {
	suffix := strings.ToLower(id)
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("%s-%s", script, suffix)
}
