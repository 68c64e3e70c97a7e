package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen se devuelve sin invocar la llamada protegida: la
// dependencia se presume caída hasta que venza el resetTimeout.
var ErrCircuitOpen = errors.New("circuit breaker is OPEN")

type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// CircuitBreaker protege una dependencia poco fiable. Una instancia por
// dependencia, compartida por todas las llamadas concurrentes; todas las
// transiciones de estado se serializan bajo el mutex.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time // inyectable en tests
}

func New(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:        StateClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// State devuelve el modo actual.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute invoca fn según el estado del circuito. En OPEN falla rápido con
// ErrCircuitOpen; tras el resetTimeout deja pasar una única llamada de
// prueba (HALF_OPEN) que cierra o reabre el circuito.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			return ErrCircuitOpen
		}
		// Vencido el timeout, una única llamada de prueba.
		cb.state = StateHalfOpen
	case StateHalfOpen:
		// Ya hay una llamada de prueba en vuelo.
		return ErrCircuitOpen
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	if cb.state == StateHalfOpen {
		// La llamada de prueba falló: reabrir y reiniciar la ventana.
		cb.state = StateOpen
		cb.openedAt = cb.now()
		return
	}

	cb.failures++
	if cb.failures >= cb.threshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}
