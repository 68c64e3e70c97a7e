package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL

	"github.com/davicafu/tallerlab/internal/execution/domain"
)

const uniqueViolation = "23505"

// ExecutionRepoPostgres implementa ExecutionRepository para PostgreSQL.
type ExecutionRepoPostgres struct {
	db *sql.DB
}

func NewExecutionRepoPostgres(db *sql.DB) *ExecutionRepoPostgres {
	return &ExecutionRepoPostgres{db: db}
}

// InitPostgres crea el esquema si no existe.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS executions (
		id               UUID PRIMARY KEY,
		service_order_id BIGINT NOT NULL UNIQUE,
		mechanic_id      BIGINT NOT NULL,
		status           TEXT NOT NULL,
		notes            TEXT,
		started_at       TIMESTAMPTZ,
		finished_at      TIMESTAMPTZ,
		delivered_at     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}
	return nil
}

const executionColumns = `id, service_order_id, mechanic_id, status, notes,
	started_at, finished_at, delivered_at, created_at, updated_at`

func (r *ExecutionRepoPostgres) Create(ctx context.Context, e *domain.Execution) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO executions (`+executionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.ServiceOrderID, e.MechanicID, string(e.Status), nullString(e.Notes),
		e.StartedAt, e.FinishedAt, e.DeliveredAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		// La restricción de unicidad respalda "una ejecución por orden"
		// bajo creación concurrente.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrExecutionAlreadyExists
		}
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

func (r *ExecutionRepoPostgres) FindByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)
	return scanExecution(row)
}

func (r *ExecutionRepoPostgres) FindByServiceOrderID(ctx context.Context, serviceOrderID int64) (*domain.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE service_order_id = $1`, serviceOrderID)
	return scanExecution(row)
}

func (r *ExecutionRepoPostgres) Update(ctx context.Context, e *domain.Execution) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE executions SET mechanic_id=$1, status=$2, notes=$3,
		 started_at=$4, finished_at=$5, delivered_at=$6, updated_at=$7
		 WHERE id=$8`,
		e.MechanicID, string(e.Status), nullString(e.Notes),
		e.StartedAt, e.FinishedAt, e.DeliveredAt, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrExecutionNotFound
	}
	return nil
}

func (r *ExecutionRepoPostgres) FindAll(ctx context.Context) ([]*domain.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

func (r *ExecutionRepoPostgres) FindAllFinished(ctx context.Context) ([]*domain.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions
		 WHERE status IN ('finished','delivered')
		   AND started_at IS NOT NULL AND finished_at IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// ------------------ Helpers de scan ------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*domain.Execution, error) {
	var e domain.Execution
	var status string
	var notes sql.NullString
	var startedAt, finishedAt, deliveredAt sql.NullTime

	err := row.Scan(&e.ID, &e.ServiceOrderID, &e.MechanicID, &status, &notes,
		&startedAt, &finishedAt, &deliveredAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // ausencia, no error
		}
		return nil, err
	}

	e.Status = domain.ExecutionStatus(status)
	e.Notes = notes.String
	e.StartedAt = timePtr(startedAt)
	e.FinishedAt = timePtr(finishedAt)
	e.DeliveredAt = timePtr(deliveredAt)
	return &e, nil
}

func scanExecutions(rows *sql.Rows) ([]*domain.Execution, error) {
	var out []*domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	c := t.Time
	return &c
}

var _ domain.ExecutionRepository = (*ExecutionRepoPostgres)(nil)
