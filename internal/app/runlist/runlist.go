package runlist

import (
	"context"
	"fmt"

	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/storage"
)

// ServiceConfig is the configuration for the run list service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.RunList"})

	return nil
}

// Service lists archived runs with optional filtering.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new run list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the run list request parameters.
type Request struct {
	// StageFilter is an optional filter to only show runs whose current stage is this one.
	StageFilter *model.Stage
	// FailedOnly only shows runs with at least one failed stage.
	FailedOnly bool
}

// Run lists all archived runs, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	s.logger.Debugf("listing runs with stage filter: %v, failed only: %v", req.StageFilter, req.FailedOnly)

	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	filtered := make([]model.Run, 0, len(runs))
	for _, r := range runs {
		if req.StageFilter != nil && (r.CurrentStage == nil || *r.CurrentStage != *req.StageFilter) {
			continue
		}
		if req.FailedOnly && !r.Failed() {
			continue
		}
		filtered = append(filtered, r)
	}

	s.logger.Debugf("found %d runs", len(filtered))
	return filtered, nil
}
