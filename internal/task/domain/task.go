package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// InvalidTransitionError: la tarea rechaza una transición fuera de orden.
type InvalidTransitionError struct {
	Current   TaskStatus
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s task in status %q", e.Attempted, e.Current)
}

// Task es una unidad de trabajo dentro de una ejecución; varias tareas
// por ejecución, sin restricción de unicidad.
type Task struct {
	ID                 uuid.UUID  `json:"id"`
	ExecutionID        uuid.UUID  `json:"executionId"`
	Description        string     `json:"description"`
	Status             TaskStatus `json:"status"`
	AssignedMechanicID *int64     `json:"assignedMechanicId"`
	StartedAt          *time.Time `json:"startedAt"`
	CompletedAt        *time.Time `json:"completedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type CreateTaskInput struct {
	ExecutionID        uuid.UUID
	Description        string
	AssignedMechanicID *int64
}

func NewTask(input CreateTaskInput) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:                 uuid.New(),
		ExecutionID:        input.ExecutionID,
		Description:        input.Description,
		Status:             TaskPending,
		AssignedMechanicID: input.AssignedMechanicID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// --- Métodos de dominio ---

// StartTask: pending → in_progress, estampa StartedAt una única vez.
func (t *Task) StartTask() error {
	if t.Status != TaskPending {
		return &InvalidTransitionError{Current: t.Status, Attempted: "start"}
	}
	now := time.Now().UTC()
	t.Status = TaskInProgress
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

// CompleteTask: in_progress → done, estampa CompletedAt una única vez.
func (t *Task) CompleteTask() error {
	if t.Status != TaskInProgress {
		return &InvalidTransitionError{Current: t.Status, Attempted: "complete"}
	}
	now := time.Now().UTC()
	t.Status = TaskDone
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Snapshot devuelve una copia defensiva.
func (t *Task) Snapshot() Task {
	copied := *t
	if t.AssignedMechanicID != nil {
		id := *t.AssignedMechanicID
		copied.AssignedMechanicID = &id
	}
	copied.StartedAt = cloneTime(t.StartedAt)
	copied.CompletedAt = cloneTime(t.CompletedAt)
	return copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
