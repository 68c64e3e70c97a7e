package mocks

import (
	"context"
	"errors"
	"sync"
)

// PublishedEvent es lo que el servicio entregó al publisher.
type PublishedEvent struct {
	EventType string
	Payload   map[string]any
}

// RecordingPublisher captura los eventos publicados; con Fail activo
// simula un transporte caído.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Fail   bool
}

func (p *RecordingPublisher) Publish(_ context.Context, eventType string, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return errors.New("transport unavailable")
	}
	p.Events = append(p.Events, PublishedEvent{EventType: eventType, Payload: payload})
	return nil
}

func (p *RecordingPublisher) Published() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.Events))
	copy(out, p.Events)
	return out
}

// DummyCache es un cache no-op para tests que no ejercitan cacheo.
type DummyCache struct{}

func (DummyCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (DummyCache) Set(context.Context, string, interface{}, int) error    { return nil }
func (DummyCache) Delete(context.Context, string) error                   { return nil }

// InMemoryIdempotency simula el ledger de idempotencia.
type InMemoryIdempotency struct {
	mu        sync.Mutex
	processed map[string]bool
}

func NewInMemoryIdempotency() *InMemoryIdempotency {
	return &InMemoryIdempotency{processed: make(map[string]bool)}
}

func (s *InMemoryIdempotency) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *InMemoryIdempotency) MarkProcessed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[eventID] = true
	return nil
}
