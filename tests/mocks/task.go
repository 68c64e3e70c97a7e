package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	taskDomain "github.com/davicafu/tallerlab/internal/task/domain"
)

// InMemoryTaskRepo simula TaskRepository.
type InMemoryTaskRepo struct {
	mu    sync.Mutex
	Tasks map[uuid.UUID]*taskDomain.Task
}

func NewInMemoryTaskRepo() *InMemoryTaskRepo {
	return &InMemoryTaskRepo{Tasks: make(map[uuid.UUID]*taskDomain.Task)}
}

func (r *InMemoryTaskRepo) Create(_ context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := t.Snapshot()
	r.Tasks[t.ID] = &stored
	return nil
}

func (r *InMemoryTaskRepo) FindByID(_ context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.Tasks[id]
	if !ok {
		return nil, nil
	}
	snapshot := t.Snapshot()
	return &snapshot, nil
}

func (r *InMemoryTaskRepo) FindByExecutionID(_ context.Context, executionID uuid.UUID) ([]*taskDomain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*taskDomain.Task
	for _, t := range r.Tasks {
		if t.ExecutionID == executionID {
			snapshot := t.Snapshot()
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (r *InMemoryTaskRepo) Update(_ context.Context, t *taskDomain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Tasks[t.ID]; !ok {
		return taskDomain.ErrTaskNotFound
	}
	stored := t.Snapshot()
	r.Tasks[t.ID] = &stored
	return nil
}

func (r *InMemoryTaskRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Tasks[id]; !ok {
		return taskDomain.ErrTaskNotFound
	}
	delete(r.Tasks, id)
	return nil
}

var _ taskDomain.TaskRepository = (*InMemoryTaskRepo)(nil)
