package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
)

// Handler procesa un envelope ya parseado. Si devuelve error el mensaje
// queda sin ack y el broker lo reentrega.
type Handler func(ctx context.Context, env sharedEvents.Envelope) error

// Consumer escucha una cola y despacha por eventType. Los mensajes de un
// mismo batch se procesan secuencialmente, en el orden de recepción; el
// ack solo se hace tras un handler sin error.
type Consumer struct {
	source   sharedBus.MessageSource
	handlers map[string]Handler
	batch    int
	backoff  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
	done    chan struct{}
}

func NewConsumer(source sharedBus.MessageSource, batchSize int, backoff time.Duration, log *zap.Logger) *Consumer {
	return &Consumer{
		source:   source,
		handlers: make(map[string]Handler),
		batch:    batchSize,
		backoff:  backoff,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// On registra el handler de un tipo de evento. Un solo handler por tipo;
// la última llamada gana.
func (c *Consumer) On(eventType string, h Handler) {
	c.handlers[eventType] = h
}

// Start inicia el bucle de consumo en una goroutine. Sin transporte
// configurado no hay bucle: modo no-op explícito.
func (c *Consumer) Start(ctx context.Context) {
	if c.source == nil {
		c.log.Warn("⚠️ Cola de entrada no configurada, consumidor no arrancado")
		close(c.done)
		return
	}

	c.log.Info("🎧 Consumidor de eventos iniciado", zap.Int("batch_size", c.batch))

	go c.run(ctx)
}

// Stop es cooperativo: el bucle termina la iteración en curso (batch
// incluido) y sale. Bloquea hasta que el bucle ha terminado.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			c.log.Info("🛑 Consumidor detenido")
			return
		case <-ctx.Done():
			c.log.Info("Consumidor detenido por contexto cancelado")
			return
		default:
		}

		msgs, err := c.source.Receive(ctx, c.batch)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Error("Error receiving messages", zap.Error(err))
			c.wait(ctx)
			continue
		}

		for _, msg := range msgs {
			if !c.dispatch(ctx, msg) {
				// El resto del batch no se toca: un ack posterior
				// confirmaría offsets por encima del mensaje fallido.
				c.wait(ctx)
				break
			}
		}
	}
}

// dispatch procesa un mensaje: parsea, busca handler y hace ack solo si
// el handler terminó sin error. Devuelve false cuando el mensaje debe
// reentregarse (handler o ack fallidos), y en ese caso el batch se corta
// ahí: acks posteriores no pueden adelantar al mensaje pendiente. Un
// mensaje ilegible o sin handler nunca será procesable, así que no corta
// el batch.
func (c *Consumer) dispatch(ctx context.Context, msg sharedBus.Message) bool {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		c.log.Warn("Failed to unmarshal envelope", zap.String("key", msg.Key), zap.Error(err))
		return true
	}

	handler, ok := c.handlers[env.EventType]
	if !ok {
		c.log.Warn("No handler for event type", zap.String("event_type", env.EventType))
		return true
	}

	if err := handler(ctx, env); err != nil {
		c.log.Error("Handler failed, message left for redelivery",
			zap.String("event_type", env.EventType),
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
		return false
	}

	if err := c.source.Ack(ctx, msg); err != nil {
		c.log.Warn("Failed to ack message",
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
		return false
	}

	c.log.Info("Event processed",
		zap.String("event_type", env.EventType),
		zap.String("event_id", env.EventID),
	)
	return true
}

func (c *Consumer) wait(ctx context.Context) {
	select {
	case <-time.After(c.backoff):
	case <-c.stop:
	case <-ctx.Done():
	}
}
