package transitioncheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
)

// ServiceConfig is the configuration for the transition check service.
type ServiceConfig struct {
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TransitionCheck"})

	return nil
}

// Service checks if a stage transition would be accepted, without tracking anything.
type Service struct {
	logger log.Logger
}

// NewService creates a new transition check service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{logger: cfg.Logger}, nil
}

// Request represents the transition check request parameters.
type Request struct {
	// From and To accept stage names, panel keys or numbers.
	From string
	To   string
}

// Run checks the transition. Unknown stages are an error, rejected transitions are not.
func (s *Service) Run(ctx context.Context, req Request) (*model.TransitionCheck, error) {
	from, err := model.ParseStage(req.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from stage: %w", err)
	}
	to, err := model.ParseStage(req.To)
	if err != nil {
		return nil, fmt.Errorf("invalid to stage: %w", err)
	}

	res := &model.TransitionCheck{From: from, To: to, Allowed: true}

	err = model.ValidateTransition(from, to)
	var terr *model.TransitionError
	switch {
	case err == nil:
		res.Restart = model.StageTransition{From: from, To: to}.IsRestart()
	case errors.As(err, &terr):
		res.Allowed = false
		res.Reason = terr.Reason
		res.Message = terr.Error()
	default:
		return nil, fmt.Errorf("could not validate transition: %w", err)
	}

	s.logger.Debugf("checked transition %s -> %s: allowed=%v", from, to, res.Allowed)
	return res, nil
}
