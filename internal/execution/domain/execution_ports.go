package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrExecutionNotFound      = errors.New("execution not found")
	ErrExecutionAlreadyExists = errors.New("execution already exists for this service order")
	ErrAnalyticsUnavailable   = errors.New("execution analytics not configured")
)

// ---------- Interfaces (Ports) ----------

// ExecutionRepository define las operaciones persistentes para Execution.
// La ausencia se representa con nil, nunca con un error: el servicio
// decide si "no encontrado" es un fallo.
type ExecutionRepository interface {
	Create(ctx context.Context, e *Execution) error

	// FindByID devuelve nil si no existe.
	FindByID(ctx context.Context, id uuid.UUID) (*Execution, error)

	// FindByServiceOrderID devuelve nil si no existe.
	FindByServiceOrderID(ctx context.Context, serviceOrderID int64) (*Execution, error)

	Update(ctx context.Context, e *Execution) error

	FindAll(ctx context.Context) ([]*Execution, error)

	// FindAllFinished devuelve las ejecuciones en finished o delivered
	// con ambos timestamps de ejecución presentes.
	FindAllFinished(ctx context.Context) ([]*Execution, error)
}

// EventPublisher anuncia transiciones a otros servicios. Best-effort: el
// servicio registra el fallo y no revierte la transición ya persistida.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

// ExecutionCache guarda snapshots para lecturas calientes.
type ExecutionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error
	Delete(ctx context.Context, key string) error
}

// ExecutionAnalytics es un sink opcional de métricas de reparación.
type ExecutionAnalytics interface {
	LogFinished(ctx context.Context, executions []*Execution) error
	AverageExecutionTime(ctx context.Context, start, end time.Time) (time.Duration, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

func CacheKeyByID(id uuid.UUID) string {
	return "execution:id:" + id.String()
}

func CacheKeyByServiceOrder(serviceOrderID int64) string {
	return "execution:os:" + fmt.Sprint(serviceOrderID)
}
