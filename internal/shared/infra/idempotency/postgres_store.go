package idempotency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Driver de PostgreSQL
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// PostgresStore implementa Store sobre PostgreSQL para despliegues con
// varias instancias de consumidor compartiendo el ledger.
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresStore(db *sql.DB, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// InitPostgres crea la tabla del ledger si no existe.
func InitPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS idempotency_keys (
		event_id     TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create idempotency_keys table: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id FROM idempotency_keys WHERE event_id = $1`, eventID)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (event_id, processed_at) VALUES ($1, $2)`,
		eventID, time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			s.log.Warn("Evento ya procesado por otra instancia (duplicado)",
				zap.String("event_id", eventID))
			return nil
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
