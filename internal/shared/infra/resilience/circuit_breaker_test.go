package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := New(3, time.Second)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ExecutesInClosed(t *testing.T) {
	cb := New(3, time.Second)

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(3, time.Second)

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return errBoom })
		assert.ErrorIs(t, err, errBoom) // el fallo original se propaga
	}

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_BlocksWhenOpen(t *testing.T) {
	cb := New(1, time.Minute)

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called) // la función protegida no se invoca
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(1, 50*time.Millisecond)

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 50*time.Millisecond)

	_ = cb.Execute(func() error { return errBoom })
	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// La ventana se reinicia: sigue bloqueando antes del timeout.
	err = cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(3, time.Second)

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })

	// Un éxito reinicia el contador.
	assert.NoError(t, cb.Execute(func() error { return nil }))

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })

	assert.Equal(t, StateClosed, cb.State())
}
