package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("execution task not found")

// TaskRepository define las operaciones persistentes para Task. La
// ausencia se representa con nil, nunca con un error.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error

	// FindByID devuelve nil si no existe.
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)

	FindByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*Task, error)

	Update(ctx context.Context, t *Task) error

	DeleteByID(ctx context.Context, id uuid.UUID) error
}
