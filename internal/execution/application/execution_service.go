package application

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/tallerlab/internal/execution/domain"
	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
)

// ExecutionService define los casos de uso del ciclo de vida de una
// ejecución. Cada transición persiste primero y publica después: un fallo
// de publicación se registra y se traga, nunca revierte el estado ya
// comprometido.
type ExecutionService struct {
	repo      domain.ExecutionRepository
	cache     domain.ExecutionCache
	events    domain.EventPublisher
	analytics domain.ExecutionAnalytics
	log       *zap.Logger
}

func NewExecutionService(
	repo domain.ExecutionRepository,
	cache domain.ExecutionCache,
	events domain.EventPublisher,
	analytics domain.ExecutionAnalytics,
	log *zap.Logger,
) *ExecutionService {
	return &ExecutionService{
		repo:      repo,
		cache:     cache,
		events:    events,
		analytics: analytics,
		log:       log,
	}
}

type ExecutionTimeResult struct {
	ExecutionID uuid.UUID `json:"executionId"`
	TimeMs      *int64    `json:"timeMs"`
}

type AverageExecutionTime struct {
	AverageMs int64 `json:"averageMs"`
	Count     int   `json:"count"`
}

// Create crea una ejecución nueva. Una por orden de servicio: la
// unicidad se comprueba aquí, no en la entidad.
func (s *ExecutionService) Create(ctx context.Context, input domain.CreateExecutionInput) (*domain.Execution, error) {
	existing, err := s.repo.FindByServiceOrderID(ctx, input.ServiceOrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrExecutionAlreadyExists
	}

	execution := domain.NewExecution(input)
	if err := s.repo.Create(ctx, execution); err != nil {
		return nil, err
	}

	s.cacheSet(execution)

	s.log.Info("Execution created",
		zap.String("execution_id", execution.ID.String()),
		zap.Int64("service_order_id", input.ServiceOrderID),
	)
	return execution, nil
}

func (s *ExecutionService) FindByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	if s.cache != nil {
		var e domain.Execution
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &e); ok {
			return &e, nil
		}
	}

	execution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, domain.ErrExecutionNotFound
	}

	s.cacheSet(execution)
	return execution, nil
}

func (s *ExecutionService) FindByServiceOrderID(ctx context.Context, serviceOrderID int64) (*domain.Execution, error) {
	execution, err := s.repo.FindByServiceOrderID(ctx, serviceOrderID)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, domain.ErrExecutionNotFound
	}
	return execution, nil
}

func (s *ExecutionService) FindAll(ctx context.Context) ([]*domain.Execution, error) {
	return s.repo.FindAll(ctx)
}

// Start arranca la reparación y anuncia execution.repair-started.
func (s *ExecutionService) Start(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := execution.Start(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, execution); err != nil {
		return nil, err
	}
	s.cacheSet(execution)

	s.publishEvent(ctx, sharedEvents.TypeRepairStarted, map[string]any{
		"executionId":    execution.ID.String(),
		"serviceOrderId": execution.ServiceOrderID,
		"mechanicId":     execution.MechanicID,
		"startedAt":      execution.StartedAt.Format(time.RFC3339Nano),
	})

	s.log.Info("Execution started", zap.String("execution_id", id.String()))
	return execution, nil
}

// Finish termina la reparación y anuncia execution.repair-finished con el
// tiempo de ejecución en milisegundos.
func (s *ExecutionService) Finish(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := execution.Finish(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, execution); err != nil {
		return nil, err
	}
	s.cacheSet(execution)

	payload := map[string]any{
		"executionId":    execution.ID.String(),
		"serviceOrderId": execution.ServiceOrderID,
		"mechanicId":     execution.MechanicID,
		"finishedAt":     execution.FinishedAt.Format(time.RFC3339Nano),
	}
	if d, ok := execution.ExecutionTime(); ok {
		payload["executionTimeMs"] = d.Milliseconds()
	}
	s.publishEvent(ctx, sharedEvents.TypeRepairFinished, payload)

	s.logFinishedAnalytics(execution)

	s.log.Info("Execution finished", zap.String("execution_id", id.String()))
	return execution, nil
}

// Deliver entrega el vehículo y anuncia execution.delivered.
func (s *ExecutionService) Deliver(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, err := s.findForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := execution.Deliver(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, execution); err != nil {
		return nil, err
	}
	s.cacheSet(execution)

	s.publishEvent(ctx, sharedEvents.TypeDelivered, map[string]any{
		"executionId":    execution.ID.String(),
		"serviceOrderId": execution.ServiceOrderID,
		"deliveredAt":    execution.DeliveredAt.Format(time.RFC3339Nano),
	})

	s.log.Info("Execution delivered", zap.String("execution_id", id.String()))
	return execution, nil
}

// GetExecutionTime devuelve el tiempo de reparación; TimeMs es nil si la
// ejecución aún no terminó.
func (s *ExecutionService) GetExecutionTime(ctx context.Context, id uuid.UUID) (ExecutionTimeResult, error) {
	execution, err := s.FindByID(ctx, id)
	if err != nil {
		return ExecutionTimeResult{}, err
	}

	result := ExecutionTimeResult{ExecutionID: execution.ID}
	if d, ok := execution.ExecutionTime(); ok {
		ms := d.Milliseconds()
		result.TimeMs = &ms
	}
	return result, nil
}

// GetAverageExecutionTime calcula la media sobre las ejecuciones
// terminadas con ambos timestamps; el conjunto vacío da {0, 0}.
func (s *ExecutionService) GetAverageExecutionTime(ctx context.Context) (AverageExecutionTime, error) {
	finished, err := s.repo.FindAllFinished(ctx)
	if err != nil {
		return AverageExecutionTime{}, err
	}

	var totalMs int64
	var count int
	for _, e := range finished {
		if d, ok := e.ExecutionTime(); ok {
			totalMs += d.Milliseconds()
			count++
		}
	}

	if count == 0 {
		return AverageExecutionTime{}, nil
	}
	return AverageExecutionTime{
		AverageMs: int64(math.Round(float64(totalMs) / float64(count))),
		Count:     count,
	}, nil
}

// AverageExecutionTimeRange consulta el sink analítico para un rango de
// fechas. Solo disponible con analytics configurado.
func (s *ExecutionService) AverageExecutionTimeRange(ctx context.Context, start, end time.Time) (time.Duration, error) {
	if s.analytics == nil {
		return 0, domain.ErrAnalyticsUnavailable
	}
	return s.analytics.AverageExecutionTime(ctx, start, end)
}

func (s *ExecutionService) findForUpdate(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	execution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if execution == nil {
		return nil, domain.ErrExecutionNotFound
	}
	return execution, nil
}

// publishEvent es best-effort: la notificación puede perderse, el estado
// de dominio nunca.
func (s *ExecutionService) publishEvent(ctx context.Context, eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.log.Error("⚠️ Failed to publish event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (s *ExecutionService) cacheSet(e *domain.Execution) {
	if s.cache == nil {
		return
	}
	snapshot := e.Snapshot()
	go func() {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = s.cache.Set(ctxCache, domain.CacheKeyByID(snapshot.ID), &snapshot, 60)
	}()
}

func (s *ExecutionService) logFinishedAnalytics(e *domain.Execution) {
	if s.analytics == nil {
		return
	}
	snapshot := e.Snapshot()
	go func() {
		ctxLog, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.analytics.LogFinished(ctxLog, []*domain.Execution{&snapshot}); err != nil {
			s.log.Warn("⚠️ Failed to log execution analytics", zap.Error(err))
		}
	}()
}
