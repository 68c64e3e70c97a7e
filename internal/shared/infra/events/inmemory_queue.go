package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
)

type queuedMessage struct {
	id             uint64
	body           []byte
	invisibleUntil time.Time
}

// InMemoryQueue simula una cola at-least-once en memoria para despliegues
// locales sin broker y para tests. Un mensaje recibido queda invisible
// durante el visibility timeout; si no se hace ack, reaparece.
type InMemoryQueue struct {
	mu         sync.Mutex
	messages   []queuedMessage
	nextID     uint64
	visibility time.Duration
}

func NewInMemoryQueue(visibility time.Duration) *InMemoryQueue {
	return &InMemoryQueue{visibility: visibility}
}

// Publish construye el envelope igual que el publisher de Kafka y lo
// encola localmente.
func (q *InMemoryQueue) Publish(_ context.Context, eventType string, payload map[string]any) error {
	env := sharedEvents.Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    sharedEvents.Source,
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	q.enqueue(data)
	return nil
}

// EnqueueRaw encola un cuerpo arbitrario, útil en tests.
func (q *InMemoryQueue) EnqueueRaw(body []byte) {
	q.enqueue(body)
}

func (q *InMemoryQueue) enqueue(body []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.messages = append(q.messages, queuedMessage{id: q.nextID, body: body})
}

// Receive devuelve hasta max mensajes visibles. Con la cola vacía espera
// un intervalo corto antes de devolver, imitando el long-poll del broker.
func (q *InMemoryQueue) Receive(ctx context.Context, max int) ([]sharedBus.Message, error) {
	q.mu.Lock()
	now := time.Now()
	var out []sharedBus.Message
	for i := range q.messages {
		if len(out) >= max {
			break
		}
		if q.messages[i].invisibleUntil.After(now) {
			continue
		}
		q.messages[i].invisibleUntil = now.Add(q.visibility)
		out = append(out, sharedBus.Message{
			Body:    q.messages[i].body,
			Receipt: q.messages[i].id,
		})
	}
	q.mu.Unlock()

	if len(out) == 0 {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (q *InMemoryQueue) Ack(_ context.Context, msg sharedBus.Message) error {
	id, ok := msg.Receipt.(uint64)
	if !ok {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.messages {
		if q.messages[i].id == id {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len devuelve los mensajes aún en cola (visibles o no).
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Verificación estática
var (
	_ sharedBus.EventPublisher = (*InMemoryQueue)(nil)
	_ sharedBus.MessageSource  = (*InMemoryQueue)(nil)
)
