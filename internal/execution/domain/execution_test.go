package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_HappyPath(t *testing.T) {
	e := NewExecution(CreateExecutionInput{ServiceOrderID: 100, MechanicID: 7})

	assert.Equal(t, ExecutionWaiting, e.Status)
	assert.Nil(t, e.StartedAt)
	assert.Nil(t, e.FinishedAt)
	assert.Nil(t, e.DeliveredAt)

	require.NoError(t, e.Start())
	assert.Equal(t, ExecutionInProgress, e.Status)
	require.NotNil(t, e.StartedAt)

	require.NoError(t, e.Finish())
	assert.Equal(t, ExecutionFinished, e.Status)
	require.NotNil(t, e.FinishedAt)

	d, ok := e.ExecutionTime()
	assert.True(t, ok)
	assert.Equal(t, e.FinishedAt.Sub(*e.StartedAt), d)

	require.NoError(t, e.Deliver())
	assert.Equal(t, ExecutionDelivered, e.Status)
	require.NotNil(t, e.DeliveredAt)

	// Repetir una transición tras la entrega falla.
	err := e.Finish()
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, ExecutionDelivered, invalid.Current)
	assert.Equal(t, "finish", invalid.Attempted)
}

func TestExecution_InvalidTransitionsLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Execution)
		call    func(*Execution) error
	}{
		{
			name:    "finish desde waiting",
			prepare: func(*Execution) {},
			call:    (*Execution).Finish,
		},
		{
			name:    "deliver desde waiting",
			prepare: func(*Execution) {},
			call:    (*Execution).Deliver,
		},
		{
			name: "start dos veces",
			prepare: func(e *Execution) {
				_ = e.Start()
			},
			call: (*Execution).Start,
		},
		{
			name: "deliver desde in_progress",
			prepare: func(e *Execution) {
				_ = e.Start()
			},
			call: (*Execution).Deliver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecution(CreateExecutionInput{ServiceOrderID: 1})
			tt.prepare(e)
			before := e.Snapshot()

			err := tt.call(e)

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, before.Status, e.Status)
			assert.Equal(t, before.UpdatedAt, e.UpdatedAt)
			assert.Equal(t, before.StartedAt, e.StartedAt)
			assert.Equal(t, before.FinishedAt, e.FinishedAt)
			assert.Equal(t, before.DeliveredAt, e.DeliveredAt)
		})
	}
}

func TestExecution_ExecutionTimeUndefined(t *testing.T) {
	e := NewExecution(CreateExecutionInput{ServiceOrderID: 2})

	_, ok := e.ExecutionTime()
	assert.False(t, ok)

	require.NoError(t, e.Start())
	_, ok = e.ExecutionTime()
	assert.False(t, ok) // falta FinishedAt
}

func TestExecution_SnapshotIsDefensive(t *testing.T) {
	e := NewExecution(CreateExecutionInput{ServiceOrderID: 3, Notes: "revisar frenos"})
	require.NoError(t, e.Start())

	snap := e.Snapshot()
	snap.Status = ExecutionDelivered
	*snap.StartedAt = snap.StartedAt.Add(time.Hour)

	assert.Equal(t, ExecutionInProgress, e.Status)
	assert.NotEqual(t, *snap.StartedAt, *e.StartedAt)
}
