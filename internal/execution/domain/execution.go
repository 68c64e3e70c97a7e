package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionWaiting    ExecutionStatus = "waiting"
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionFinished   ExecutionStatus = "finished"
	ExecutionDelivered  ExecutionStatus = "delivered"
)

// InvalidTransitionError: la entidad rechaza una transición fuera de
// orden. El estado queda intacto.
type InvalidTransitionError struct {
	Current   ExecutionStatus
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s execution in status %q", e.Attempted, e.Current)
}

// Execution representa una reparación, 1:1 con una orden de servicio.
// Las transiciones solo avanzan: waiting → in_progress → finished → delivered.
// La entidad no hace I/O; persistir es siempre un paso explícito del caller.
type Execution struct {
	ID             uuid.UUID       `json:"id"`
	ServiceOrderID int64           `json:"serviceOrderId"`
	MechanicID     int64           `json:"mechanicId"`
	Status         ExecutionStatus `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	StartedAt      *time.Time      `json:"startedAt"`
	FinishedAt     *time.Time      `json:"finishedAt"`
	DeliveredAt    *time.Time      `json:"deliveredAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type CreateExecutionInput struct {
	ServiceOrderID int64
	MechanicID     int64
	Notes          string
}

func NewExecution(input CreateExecutionInput) *Execution {
	now := time.Now().UTC()
	return &Execution{
		ID:             uuid.New(),
		ServiceOrderID: input.ServiceOrderID,
		MechanicID:     input.MechanicID,
		Status:         ExecutionWaiting,
		Notes:          input.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// --- Métodos de dominio ---

// Start: waiting → in_progress, estampa StartedAt una única vez.
func (e *Execution) Start() error {
	if e.Status != ExecutionWaiting {
		return &InvalidTransitionError{Current: e.Status, Attempted: "start"}
	}
	now := time.Now().UTC()
	e.Status = ExecutionInProgress
	e.StartedAt = &now
	e.UpdatedAt = now
	return nil
}

// Finish: in_progress → finished, estampa FinishedAt una única vez.
func (e *Execution) Finish() error {
	if e.Status != ExecutionInProgress {
		return &InvalidTransitionError{Current: e.Status, Attempted: "finish"}
	}
	now := time.Now().UTC()
	e.Status = ExecutionFinished
	e.FinishedAt = &now
	e.UpdatedAt = now
	return nil
}

// Deliver: finished → delivered, estampa DeliveredAt una única vez.
func (e *Execution) Deliver() error {
	if e.Status != ExecutionFinished {
		return &InvalidTransitionError{Current: e.Status, Attempted: "deliver"}
	}
	now := time.Now().UTC()
	e.Status = ExecutionDelivered
	e.DeliveredAt = &now
	e.UpdatedAt = now
	return nil
}

// ExecutionTime devuelve FinishedAt - StartedAt. Solo está definido con
// ambos timestamps presentes; en otro caso ok es false.
func (e *Execution) ExecutionTime() (time.Duration, bool) {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0, false
	}
	return e.FinishedAt.Sub(*e.StartedAt), true
}

// Snapshot devuelve una copia defensiva: mutar el resultado no afecta a
// la entidad.
func (e *Execution) Snapshot() Execution {
	copied := *e
	copied.StartedAt = cloneTime(e.StartedAt)
	copied.FinishedAt = cloneTime(e.FinishedAt)
	copied.DeliveredAt = cloneTime(e.DeliveredAt)
	return copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (e *Execution) PartitionKey() string {
	return fmt.Sprintf("%d", e.ServiceOrderID)
}
