package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/davicafu/tallerlab/internal/task/domain"
)

type TaskRepoSQLite struct {
	db *sql.DB
}

func NewTaskRepoSQLite(db *sql.DB) *TaskRepoSQLite {
	return &TaskRepoSQLite{db: db}
}

// InitSQLite crea el esquema si no existe.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS tasks (
		id                   TEXT PRIMARY KEY,
		execution_id         TEXT NOT NULL,
		description          TEXT NOT NULL,
		status               TEXT NOT NULL,
		assigned_mechanic_id INTEGER,
		started_at           TIMESTAMP,
		completed_at         TIMESTAMP,
		created_at           TIMESTAMP NOT NULL,
		updated_at           TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

const taskColumns = `id, execution_id, description, status, assigned_mechanic_id,
	started_at, completed_at, created_at, updated_at`

func (r *TaskRepoSQLite) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID.String(), t.ExecutionID.String(), t.Description, string(t.Status),
		nullInt64(t.AssignedMechanicID), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *TaskRepoSQLite) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	return scanTask(row)
}

func (r *TaskRepoSQLite) FindByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE execution_id = ? ORDER BY created_at ASC`,
		executionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TaskRepoSQLite) Update(ctx context.Context, t *domain.Task) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET description=?, status=?, assigned_mechanic_id=?,
		 started_at=?, completed_at=?, updated_at=?
		 WHERE id=?`,
		t.Description, string(t.Status), nullInt64(t.AssignedMechanicID),
		nullTime(t.StartedAt), nullTime(t.CompletedAt), t.UpdatedAt,
		t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepoSQLite) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ------------------ Helpers de scan ------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var idStr, executionIDStr, status string
	var mechanic sql.NullInt64
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&idStr, &executionIDStr, &t.Description, &status, &mechanic,
		&startedAt, &completedAt, &t.CreatedAt, &t.UpdatedAt)
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
	executionID, err := uuid.Parse(executionIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}

	t.ID = id
	t.ExecutionID = executionID
	t.Status = domain.TaskStatus(status)
	t.AssignedMechanicID = int64Ptr(mechanic)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	c := v.Int64
	return &c
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

var _ domain.TaskRepository = (*TaskRepoSQLite)(nil)
