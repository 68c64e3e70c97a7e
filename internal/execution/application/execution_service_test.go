package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/tallerlab/internal/execution/domain"
	sharedEvents "github.com/davicafu/tallerlab/internal/shared/events"
	"github.com/davicafu/tallerlab/tests/mocks"
)

func newService(repo *mocks.InMemoryExecutionRepo, pub *mocks.RecordingPublisher) *ExecutionService {
	return NewExecutionService(repo, mocks.DummyCache{}, pub, nil, zap.NewNop())
}

func TestCreateExecution_Success(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	pub := &mocks.RecordingPublisher{}
	service := newService(repo, pub)

	e, err := service.Create(context.Background(), domain.CreateExecutionInput{
		ServiceOrderID: 100,
		MechanicID:     5,
		Notes:          "cambio de aceite",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionWaiting, e.Status)
	assert.Equal(t, int64(100), e.ServiceOrderID)

	// Crear no publica eventos; solo las transiciones lo hacen.
	assert.Empty(t, pub.Published())
}

func TestCreateExecution_OnePerServiceOrder(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	service := newService(repo, &mocks.RecordingPublisher{})

	_, err := service.Create(context.Background(), domain.CreateExecutionInput{ServiceOrderID: 100})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), domain.CreateExecutionInput{ServiceOrderID: 100})
	assert.ErrorIs(t, err, domain.ErrExecutionAlreadyExists)
}

func TestStartFinishDeliver_PublishesLifecycleEvents(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	pub := &mocks.RecordingPublisher{}
	service := newService(repo, pub)
	ctx := context.Background()

	e, err := service.Create(ctx, domain.CreateExecutionInput{ServiceOrderID: 100, MechanicID: 3})
	require.NoError(t, err)

	started, err := service.Start(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	finished, err := service.Finish(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionFinished, finished.Status)

	delivered, err := service.Deliver(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionDelivered, delivered.Status)

	events := pub.Published()
	require.Len(t, events, 3)
	assert.Equal(t, sharedEvents.TypeRepairStarted, events[0].EventType)
	assert.Equal(t, sharedEvents.TypeRepairFinished, events[1].EventType)
	assert.Equal(t, sharedEvents.TypeDelivered, events[2].EventType)

	assert.Equal(t, int64(100), events[0].Payload["serviceOrderId"])
	assert.Equal(t, int64(3), events[0].Payload["mechanicId"])
	assert.Contains(t, events[1].Payload, "executionTimeMs")
	assert.Contains(t, events[2].Payload, "deliveredAt")
}

func TestTransition_PublishFailureDoesNotRollBack(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	pub := &mocks.RecordingPublisher{Fail: true}
	service := newService(repo, pub)
	ctx := context.Background()

	e, err := service.Create(ctx, domain.CreateExecutionInput{ServiceOrderID: 200})
	require.NoError(t, err)

	started, err := service.Start(ctx, e.ID)

	// El fallo de publicación se traga; el estado persistido avanza.
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionInProgress, started.Status)

	stored, _ := repo.FindByID(ctx, e.ID)
	assert.Equal(t, domain.ExecutionInProgress, stored.Status)
}

func TestTransition_InvalidOrderSurfacesError(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	pub := &mocks.RecordingPublisher{}
	service := newService(repo, pub)
	ctx := context.Background()

	e, err := service.Create(ctx, domain.CreateExecutionInput{ServiceOrderID: 300})
	require.NoError(t, err)

	_, err = service.Finish(ctx, e.ID)

	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.ExecutionWaiting, invalid.Current)

	// Nada publicado ni persistido para una transición rechazada.
	assert.Empty(t, pub.Published())
	stored, _ := repo.FindByID(ctx, e.ID)
	assert.Equal(t, domain.ExecutionWaiting, stored.Status)
}

func TestStart_NotFound(t *testing.T) {
	service := newService(mocks.NewInMemoryExecutionRepo(), &mocks.RecordingPublisher{})

	_, err := service.Start(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestGetExecutionTime(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	service := newService(repo, &mocks.RecordingPublisher{})
	ctx := context.Background()

	e, err := service.Create(ctx, domain.CreateExecutionInput{ServiceOrderID: 400})
	require.NoError(t, err)

	// Sin terminar: TimeMs nulo, nunca un error.
	result, err := service.GetExecutionTime(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, result.TimeMs)

	_, err = service.Start(ctx, e.ID)
	require.NoError(t, err)
	_, err = service.Finish(ctx, e.ID)
	require.NoError(t, err)

	result, err = service.GetExecutionTime(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, result.TimeMs)
	assert.GreaterOrEqual(t, *result.TimeMs, int64(0))
}

func TestGetAverageExecutionTime(t *testing.T) {
	repo := mocks.NewInMemoryExecutionRepo()
	service := newService(repo, &mocks.RecordingPublisher{})
	ctx := context.Background()

	// Conjunto vacío: {0, 0}.
	avg, err := service.GetAverageExecutionTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, AverageExecutionTime{AverageMs: 0, Count: 0}, avg)

	// Dos terminadas con tiempos conocidos, una sin timestamps completos.
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	addFinished := func(orderID int64, d time.Duration) {
		started := base
		finishedAt := base.Add(d)
		e := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: orderID})
		e.Status = domain.ExecutionFinished
		e.StartedAt = &started
		e.FinishedAt = &finishedAt
		require.NoError(t, repo.Create(ctx, e))
	}
	addFinished(1, 100*time.Millisecond)
	addFinished(2, 300*time.Millisecond)

	incomplete := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 3})
	incomplete.Status = domain.ExecutionFinished // terminado pero sin timestamps
	require.NoError(t, repo.Create(ctx, incomplete))

	avg, err = service.GetAverageExecutionTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), avg.AverageMs)
	assert.Equal(t, 2, avg.Count) // el incompleto queda fuera de suma y conteo
}
