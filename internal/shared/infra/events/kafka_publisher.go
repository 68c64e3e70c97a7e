package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/tallerlab/internal/shared/infra/resilience"
)

// KafkaPublisher construye el envelope (eventId fresco, timestamp UTC,
// source fijo) y lo escribe en Kafka a través del circuit breaker que
// protege el broker.
type KafkaPublisher struct {
	writer  *kafka.Writer
	breaker *resilience.CircuitBreaker
	log     *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, breaker *resilience.CircuitBreaker, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, breaker: breaker, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	env := sharedEvents.Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    sharedEvents.Source,
		Payload:   payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.PartitionKey()),
		Value: data,
	}

	err = p.breaker.Execute(func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		p.log.Error("Error publishing to Kafka",
			zap.String("event_type", eventType),
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
		return err
	}

	p.log.Info("Event published",
		zap.String("event_type", eventType),
		zap.String("event_id", env.EventID),
	)
	return nil
}

// Verificación estática
var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
