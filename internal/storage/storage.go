package storage

import (
	"context"

	"github.com/slok/stagetrack/internal/model"
)

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name RunRepository --structname MockRepository --filename repository.go

// RunRepository is the interface for the archive of finished runs.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	GetRunByName(ctx context.Context, name string) (*model.Run, error)
	ListRuns(ctx context.Context) ([]model.Run, error)
	DeleteRun(ctx context.Context, id string) error
}
