package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
)

func enqueueEnvelope(t *testing.T, q *InMemoryQueue, env sharedEvents.Envelope) {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	q.EnqueueRaw(data)
}

func drainOnce(t *testing.T, c *Consumer, q *InMemoryQueue) {
	t.Helper()
	ctx := context.Background()
	msgs, err := q.Receive(ctx, 10)
	require.NoError(t, err)
	for _, m := range msgs {
		if !c.dispatch(ctx, m) {
			break
		}
	}
}

func TestConsumer_DispatchesAndAcks(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	var got []sharedEvents.Envelope
	c.On("os.budget-approved", func(_ context.Context, env sharedEvents.Envelope) error {
		got = append(got, env)
		return nil
	})

	enqueueEnvelope(t, q, sharedEvents.Envelope{
		EventID:   "evt-1",
		EventType: "os.budget-approved",
		Timestamp: time.Now().UTC(),
		Source:    "os-service",
		Payload:   map[string]any{"serviceOrderId": float64(100)},
	})

	drainOnce(t, c, q)

	// El handler se invocó exactamente una vez con el envelope parseado
	// y el mensaje fue eliminado de la cola tras el éxito.
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].EventID)
	assert.Equal(t, float64(100), got[0].Payload["serviceOrderId"])
	assert.Equal(t, 0, q.Len())
}

func TestConsumer_HandlerErrorLeavesMessage(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	calls := 0
	c.On("os.budget-approved", func(context.Context, sharedEvents.Envelope) error {
		calls++
		return errors.New("db down")
	})

	enqueueEnvelope(t, q, sharedEvents.Envelope{
		EventID:   "evt-2",
		EventType: "os.budget-approved",
	})

	drainOnce(t, c, q)

	// Sin ack: el mensaje queda en la cola para reentrega del broker.
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, q.Len())
}

func TestConsumer_BatchStopsAtFirstFailure(t *testing.T) {
	q := NewInMemoryQueue(10 * time.Millisecond)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	var seen []string
	failedOnce := false
	c.On("os.budget-approved", func(_ context.Context, env sharedEvents.Envelope) error {
		seen = append(seen, env.EventID)
		if env.EventID == "evt-fail" && !failedOnce {
			failedOnce = true
			return errors.New("db down")
		}
		return nil
	})

	for _, id := range []string{"evt-fail", "evt-next"} {
		enqueueEnvelope(t, q, sharedEvents.Envelope{EventID: id, EventType: "os.budget-approved"})
	}

	drainOnce(t, c, q)

	// El fallo corta el batch: evt-next no se procesa, porque su ack
	// confirmaría el offset por encima del mensaje fallido. Ambos quedan
	// en la cola para reentrega.
	assert.Equal(t, []string{"evt-fail"}, seen)
	assert.Equal(t, 2, q.Len())

	// En la reentrega el handler ya no falla y ambos se procesan.
	time.Sleep(20 * time.Millisecond) // expira el visibility timeout
	drainOnce(t, c, q)
	assert.Equal(t, []string{"evt-fail", "evt-fail", "evt-next"}, seen)
	assert.Equal(t, 0, q.Len())
}

func TestConsumer_UnhandledTypeLeftForExpiry(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	enqueueEnvelope(t, q, sharedEvents.Envelope{
		EventID:   "evt-3",
		EventType: "os.status-changed", // reservado, sin handler
	})

	drainOnce(t, c, q)

	assert.Equal(t, 1, q.Len())
}

func TestConsumer_MalformedBodyNotAcked(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	q.EnqueueRaw([]byte("{not json"))

	drainOnce(t, c, q)

	assert.Equal(t, 1, q.Len())
}

func TestConsumer_LastRegistrationWins(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	first, second := 0, 0
	c.On("billing.payment-confirmed", func(context.Context, sharedEvents.Envelope) error {
		first++
		return nil
	})
	c.On("billing.payment-confirmed", func(context.Context, sharedEvents.Envelope) error {
		second++
		return nil
	})

	enqueueEnvelope(t, q, sharedEvents.Envelope{
		EventID:   "evt-4",
		EventType: "billing.payment-confirmed",
	})

	drainOnce(t, c, q)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestConsumer_BatchProcessedInOrder(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, time.Millisecond, zap.NewNop())

	var order []string
	c.On("os.budget-approved", func(_ context.Context, env sharedEvents.Envelope) error {
		order = append(order, env.EventID)
		return nil
	})

	for _, id := range []string{"evt-a", "evt-b", "evt-c"} {
		enqueueEnvelope(t, q, sharedEvents.Envelope{EventID: id, EventType: "os.budget-approved"})
	}

	drainOnce(t, c, q)

	assert.Equal(t, []string{"evt-a", "evt-b", "evt-c"}, order)
}

func TestConsumer_NoSourceIsNoOp(t *testing.T) {
	var nilSource sharedBus.MessageSource
	c := NewConsumer(nilSource, 10, time.Millisecond, zap.NewNop())

	// Start no arranca bucle y Stop no se bloquea.
	c.Start(context.Background())
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked in no-op mode")
	}
}

func TestConsumer_StartStopLoop(t *testing.T) {
	q := NewInMemoryQueue(time.Minute)
	c := NewConsumer(q, 10, 5*time.Millisecond, zap.NewNop())

	processed := make(chan string, 1)
	c.On("os.budget-approved", func(_ context.Context, env sharedEvents.Envelope) error {
		processed <- env.EventID
		return nil
	})

	enqueueEnvelope(t, q, sharedEvents.Envelope{EventID: "evt-loop", EventType: "os.budget-approved"})

	c.Start(context.Background())
	select {
	case id := <-processed:
		assert.Equal(t, "evt-loop", id)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not processed by the loop")
	}
	c.Stop()
}
