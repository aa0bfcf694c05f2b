package runshow

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/storage"
)

// ServiceConfig is the configuration for the run show service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.RunShow"})

	return nil
}

// Service gets a single archived run.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new run show service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the run show request parameters.
type Request struct {
	// NameOrID is the run name or ID.
	NameOrID string
}

// Run returns the run by name or ID.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	if req.NameOrID == "" {
		return nil, fmt.Errorf("run name or id is required: %w", model.ErrNotValid)
	}

	s.logger.Debugf("getting run: %s", req.NameOrID)

	// Lookup run by name first, then by ID if it looks like a ULID.
	run, err := s.repo.GetRunByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(req.NameOrID) {
		run, err = s.repo.GetRun(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("run not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	return run, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
