package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	executionDomain "github.com/davicafu/tallerlab/internal/execution/domain"
)

// InMemoryExecutionRepo simula ExecutionRepository.
type InMemoryExecutionRepo struct {
	mu         sync.Mutex
	Executions map[uuid.UUID]*executionDomain.Execution
}

func NewInMemoryExecutionRepo() *InMemoryExecutionRepo {
	return &InMemoryExecutionRepo{
		Executions: make(map[uuid.UUID]*executionDomain.Execution),
	}
}

func (r *InMemoryExecutionRepo) Create(_ context.Context, e *executionDomain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := e.Snapshot()
	r.Executions[e.ID] = &stored
	return nil
}

func (r *InMemoryExecutionRepo) FindByID(_ context.Context, id uuid.UUID) (*executionDomain.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.Executions[id]
	if !ok {
		return nil, nil
	}
	snapshot := e.Snapshot()
	return &snapshot, nil
}

func (r *InMemoryExecutionRepo) FindByServiceOrderID(_ context.Context, serviceOrderID int64) (*executionDomain.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.Executions {
		if e.ServiceOrderID == serviceOrderID {
			snapshot := e.Snapshot()
			return &snapshot, nil
		}
	}
	return nil, nil
}

func (r *InMemoryExecutionRepo) Update(_ context.Context, e *executionDomain.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Executions[e.ID]; !ok {
		return executionDomain.ErrExecutionNotFound
	}
	stored := e.Snapshot()
	r.Executions[e.ID] = &stored
	return nil
}

func (r *InMemoryExecutionRepo) FindAll(_ context.Context) ([]*executionDomain.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*executionDomain.Execution
	for _, e := range r.Executions {
		snapshot := e.Snapshot()
		out = append(out, &snapshot)
	}
	return out, nil
}

func (r *InMemoryExecutionRepo) FindAllFinished(_ context.Context) ([]*executionDomain.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*executionDomain.Execution
	for _, e := range r.Executions {
		if e.Status != executionDomain.ExecutionFinished && e.Status != executionDomain.ExecutionDelivered {
			continue
		}
		snapshot := e.Snapshot()
		out = append(out, &snapshot)
	}
	return out, nil
}

var _ executionDomain.ExecutionRepository = (*InMemoryExecutionRepo)(nil)
