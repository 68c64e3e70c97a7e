package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/tallerlab/internal/task/domain"
)

// TaskService define los casos de uso de las tareas de ejecución.
type TaskService struct {
	repo domain.TaskRepository
	log  *zap.Logger
}

func NewTaskService(repo domain.TaskRepository, log *zap.Logger) *TaskService {
	return &TaskService{repo: repo, log: log}
}

type UpdateTaskInput struct {
	Description        *string
	AssignedMechanicID *int64
}

func (s *TaskService) Create(ctx context.Context, input domain.CreateTaskInput) (*domain.Task, error) {
	task := domain.NewTask(input)
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("execution_id", input.ExecutionID.String()),
	)
	return task, nil
}

func (s *TaskService) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) FindByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*domain.Task, error) {
	return s.repo.FindByExecutionID(ctx, executionID)
}

func (s *TaskService) StartTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := task.StartTask(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("Task started", zap.String("task_id", id.String()))
	return task, nil
}

func (s *TaskService) CompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := task.CompleteTask(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("Task completed", zap.String("task_id", id.String()))
	return task, nil
}

// Update cambia descripción y/o mecánico asignado, nunca el estado.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.AssignedMechanicID != nil {
		task.AssignedMechanicID = input.AssignedMechanicID
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteByID(ctx, id)
}
