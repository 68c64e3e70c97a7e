package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/davicafu/tallerlab/internal/execution/domain"
	"github.com/davicafu/tallerlab/internal/execution/infra/outbound/db/sqlite"
)

func setupExecutionDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlite.InitSQLite(db))
	return db
}

func TestExecutionSQLiteIntegration_CreateGetUpdate(t *testing.T) {
	db := setupExecutionDB(t)
	defer db.Close()

	repo := sqlite.NewExecutionRepoSQLite(db)
	ctx := context.Background()

	execution := domain.NewExecution(domain.CreateExecutionInput{
		ServiceOrderID: 501,
		MechanicID:     7,
		Notes:          "cambio de embrague",
	})
	require.NoError(t, repo.Create(ctx, execution))

	// Recuperar por id
	got, err := repo.FindByID(ctx, execution.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, execution.ID, got.ID)
	assert.Equal(t, int64(501), got.ServiceOrderID)
	assert.Equal(t, domain.ExecutionWaiting, got.Status)
	assert.Nil(t, got.StartedAt)

	// Recuperar por orden de servicio
	got, err = repo.FindByServiceOrderID(ctx, 501)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, execution.ID, got.ID)

	// Transicionar y persistir
	require.NoError(t, execution.Start())
	require.NoError(t, repo.Update(ctx, execution))

	got, err = repo.FindByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionInProgress, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestExecutionSQLiteIntegration_AbsenceIsNil(t *testing.T) {
	db := setupExecutionDB(t)
	defer db.Close()

	repo := sqlite.NewExecutionRepoSQLite(db)

	got, err := repo.FindByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindByServiceOrderID(context.Background(), 999)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestExecutionSQLiteIntegration_UniqueServiceOrder(t *testing.T) {
	db := setupExecutionDB(t)
	defer db.Close()

	repo := sqlite.NewExecutionRepoSQLite(db)
	ctx := context.Background()

	first := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 88, MechanicID: 1})
	require.NoError(t, repo.Create(ctx, first))

	// La restricción UNIQUE de service_order_id rechaza el duplicado.
	second := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 88, MechanicID: 2})
	assert.Error(t, repo.Create(ctx, second))
}

func TestExecutionSQLiteIntegration_UpdateMissing(t *testing.T) {
	db := setupExecutionDB(t)
	defer db.Close()

	repo := sqlite.NewExecutionRepoSQLite(db)

	ghost := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 1})
	err := repo.Update(context.Background(), ghost)
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestExecutionSQLiteIntegration_FindAllFinished(t *testing.T) {
	db := setupExecutionDB(t)
	defer db.Close()

	repo := sqlite.NewExecutionRepoSQLite(db)
	ctx := context.Background()

	finished := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 1})
	require.NoError(t, finished.Start())
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, finished.Finish())
	require.NoError(t, repo.Create(ctx, finished))

	waiting := domain.NewExecution(domain.CreateExecutionInput{ServiceOrderID: 2})
	require.NoError(t, repo.Create(ctx, waiting))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := repo.FindAllFinished(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, finished.ID, done[0].ID)
	require.NotNil(t, done[0].StartedAt)
	require.NotNil(t, done[0].FinishedAt)
}
