package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	executionDomain "github.com/davicafu/tallerlab/internal/execution/domain"
	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	infraEvents "github.com/davicafu/tallerlab/internal/shared/infra/events"
	"github.com/davicafu/tallerlab/internal/shared/infra/idempotency"
	sharedUtils "github.com/davicafu/tallerlab/internal/shared/infra/utils"
)

// ExecutionService son los casos de uso que necesita este consumidor.
type ExecutionService interface {
	Create(ctx context.Context, input executionDomain.CreateExecutionInput) (*executionDomain.Execution, error)
	FindByServiceOrderID(ctx context.Context, serviceOrderID int64) (*executionDomain.Execution, error)
}

// ExecutionConsumer reacciona a los eventos upstream (presupuesto
// aprobado, pago confirmado) envolviendo cada handler con el ledger de
// idempotencia: un eventId ya procesado es un no-op exitoso.
type ExecutionConsumer struct {
	service     ExecutionService
	idempotency idempotency.Store
	log         *zap.Logger
}

func NewExecutionConsumer(service ExecutionService, store idempotency.Store, log *zap.Logger) *ExecutionConsumer {
	return &ExecutionConsumer{
		service:     service,
		idempotency: store,
		log:         log,
	}
}

// Register engancha los handlers de negocio al dispatcher. La taxonomía
// es cerrada: los tipos reservados no registran handler y el dispatcher
// los deja en la cola.
func (c *ExecutionConsumer) Register(consumer *infraEvents.Consumer) {
	consumer.On(sharedEvents.TypeOSBudgetApproved, c.withIdempotency(c.handleBudgetApproved))
	consumer.On(sharedEvents.TypePaymentConfirmed, c.withIdempotency(c.handlePaymentConfirmed))
}

// withIdempotency: si el evento ya está en el ledger se ignora (cuenta
// como éxito para el ack). Solo un handler sin error marca el evento; el
// fallo al marcar propaga para que el mensaje se reentregue.
func (c *ExecutionConsumer) withIdempotency(handler infraEvents.Handler) infraEvents.Handler {
	return func(ctx context.Context, env sharedEvents.Envelope) error {
		processed, err := c.idempotency.IsProcessed(ctx, env.EventID)
		if err != nil {
			return err
		}
		if processed {
			c.log.Warn("Evento ya procesado, ignorado",
				zap.String("event_id", env.EventID),
				zap.String("event_type", env.EventType),
			)
			return nil
		}

		if err := handler(ctx, env); err != nil {
			return err
		}
		return c.idempotency.MarkProcessed(ctx, env.EventID)
	}
}

// handleBudgetApproved crea la ejecución de la orden de servicio recién
// aprobada. Si ya existe (reentrega, carrera entre instancias) se trata
// como duplicado gestionado, no como fallo.
func (c *ExecutionConsumer) handleBudgetApproved(ctx context.Context, env sharedEvents.Envelope) error {
	serviceOrderID, ok := sharedUtils.PayloadInt64(env.Payload, "serviceOrderId")
	if !ok {
		return fmt.Errorf("budget-approved event %s without serviceOrderId", env.EventID)
	}
	mechanicID, _ := sharedUtils.PayloadInt64(env.Payload, "mechanicId") // 0 si falta

	c.log.Info("OS budget approved, creating execution",
		zap.Int64("service_order_id", serviceOrderID),
	)

	_, err := c.service.Create(ctx, executionDomain.CreateExecutionInput{
		ServiceOrderID: serviceOrderID,
		MechanicID:     mechanicID,
		Notes:          fmt.Sprintf("Auto-created from approved budget (OS #%d)", serviceOrderID),
	})
	if err != nil {
		if errors.Is(err, executionDomain.ErrExecutionAlreadyExists) {
			c.log.Info("Ejecución ya existente para la orden, duplicado gestionado",
				zap.Int64("service_order_id", serviceOrderID),
			)
			return nil
		}
		return err
	}
	return nil
}

// handlePaymentConfirmed es solo un hook de observabilidad: no muta
// estado, registra que la reparación puede arrancar.
func (c *ExecutionConsumer) handlePaymentConfirmed(ctx context.Context, env sharedEvents.Envelope) error {
	budgetID, _ := sharedUtils.PayloadInt64(env.Payload, "budgetId")
	serviceOrderID, ok := sharedUtils.PayloadInt64(env.Payload, "serviceOrderId")

	c.log.Info("Payment confirmed, execution can start",
		zap.Int64("budget_id", budgetID),
		zap.Int64("service_order_id", serviceOrderID),
	)

	if !ok {
		return nil
	}

	execution, err := c.service.FindByServiceOrderID(ctx, serviceOrderID)
	if err != nil {
		if errors.Is(err, executionDomain.ErrExecutionNotFound) {
			return nil
		}
		return err
	}

	if execution.Status == executionDomain.ExecutionWaiting {
		c.log.Info("Execution ready to start after payment confirmation",
			zap.String("execution_id", execution.ID.String()),
		)
	}
	return nil
}
