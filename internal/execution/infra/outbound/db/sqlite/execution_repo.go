package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/tallerlab/internal/execution/domain"
)

type ExecutionRepoSQLite struct {
	db *sql.DB
}

func NewExecutionRepoSQLite(db *sql.DB) *ExecutionRepoSQLite {
	return &ExecutionRepoSQLite{db: db}
}

// InitSQLite crea el esquema si no existe. El índice único por orden de
// servicio respalda la regla "una ejecución por orden".
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS executions (
		id               TEXT PRIMARY KEY,
		service_order_id INTEGER NOT NULL UNIQUE,
		mechanic_id      INTEGER NOT NULL,
		status           TEXT NOT NULL,
		notes            TEXT,
		started_at       TIMESTAMP,
		finished_at      TIMESTAMP,
		delivered_at     TIMESTAMP,
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}
	return nil
}

const executionColumns = `id, service_order_id, mechanic_id, status, notes,
	started_at, finished_at, delivered_at, created_at, updated_at`

func (r *ExecutionRepoSQLite) Create(ctx context.Context, e *domain.Execution) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO executions (`+executionColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID.String(), e.ServiceOrderID, e.MechanicID, string(e.Status), nullString(e.Notes),
		nullTime(e.StartedAt), nullTime(e.FinishedAt), nullTime(e.DeliveredAt), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

func (r *ExecutionRepoSQLite) FindByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id.String())
	return scanExecution(row)
}

func (r *ExecutionRepoSQLite) FindByServiceOrderID(ctx context.Context, serviceOrderID int64) (*domain.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM executions WHERE service_order_id = ?`, serviceOrderID)
	return scanExecution(row)
}

func (r *ExecutionRepoSQLite) Update(ctx context.Context, e *domain.Execution) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE executions SET mechanic_id=?, status=?, notes=?,
		 started_at=?, finished_at=?, delivered_at=?, updated_at=?
		 WHERE id=?`,
		e.MechanicID, string(e.Status), nullString(e.Notes),
		nullTime(e.StartedAt), nullTime(e.FinishedAt), nullTime(e.DeliveredAt), e.UpdatedAt,
		e.ID.String(),
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

func (r *ExecutionRepoSQLite) FindAll(ctx context.Context) ([]*domain.Execution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+executionColumns+` FROM executions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExecutions(rows)
}

func (r *ExecutionRepoSQLite) FindAllFinished(ctx context.Context) ([]*domain.Execution, error) {
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
	var idStr, status string
	var notes sql.NullString
	var startedAt, finishedAt, deliveredAt sql.NullTime

	err := row.Scan(&idStr, &e.ServiceOrderID, &e.MechanicID, &status, &notes,
		&startedAt, &finishedAt, &deliveredAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // ausencia, no error
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	e.ID = id
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

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	c := t.Time
	return &c
}

var _ domain.ExecutionRepository = (*ExecutionRepoSQLite)(nil)
