package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"
)

// SQLiteStore implementa Store sobre SQLite. La PRIMARY KEY sobre
// event_id es el mecanismo real de deduplicación.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSQLiteStore(db *sql.DB, log *zap.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log}
}

// InitSQLite crea la tabla del ledger si no existe.
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS idempotency_keys (
		event_id     TEXT PRIMARY KEY,
		processed_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create idempotency_keys table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT event_id FROM idempotency_keys WHERE event_id = ?`, eventID)

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (event_id, processed_at) VALUES (?, ?)`,
		eventID, time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			s.log.Warn("Evento ya procesado por otra instancia (duplicado)",
				zap.String("event_id", eventID))
			return nil
		}
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
