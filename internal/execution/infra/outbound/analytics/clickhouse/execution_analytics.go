package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/davicafu/tallerlab/internal/execution/domain"
)

// ExecutionAnalyticsRepo registra reparaciones terminadas en ClickHouse
// y resuelve agregados históricos sobre ellas.
type ExecutionAnalyticsRepo struct {
	db *sql.DB
}

func NewExecutionAnalyticsRepo(addr string, dbName string) (*ExecutionAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &ExecutionAnalyticsRepo{db: conn}, nil
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *ExecutionAnalyticsRepo) InitSchema() error {
	// Particionada por mes y ordenada por los campos habituales de consulta.
	query := `
		CREATE TABLE IF NOT EXISTS executions_log (
			id               UUID,
			service_order_id Int64,
			mechanic_id      Int64,
			status           String,
			started_at       DateTime64(3),
			finished_at      DateTime64(3),
			execution_ms     Int64,
			event_time       DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (mechanic_id, status, event_time);
	`
	_, err := r.db.Exec(query)
	return err
}

// LogFinished inserta un lote de ejecuciones terminadas. ClickHouse funciona
// mejor con inserciones en lotes, así que agrupamos todo en una transacción.
func (r *ExecutionAnalyticsRepo) LogFinished(ctx context.Context, executions []*domain.Execution) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO executions_log (id, service_order_id, mechanic_id, status, started_at, finished_at, execution_ms, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	eventTime := time.Now()
	for _, e := range executions {
		elapsed, ok := e.ExecutionTime()
		if !ok {
			continue // sin ambos timestamps no hay métrica que registrar
		}
		if _, err := stmt.ExecContext(
			ctx,
			e.ID,
			e.ServiceOrderID,
			e.MechanicID,
			string(e.Status),
			*e.StartedAt,
			*e.FinishedAt,
			elapsed.Milliseconds(),
			eventTime,
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for execution %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// AverageExecutionTime devuelve el tiempo medio de reparación de las
// ejecuciones registradas en el rango dado.
func (r *ExecutionAnalyticsRepo) AverageExecutionTime(ctx context.Context, start, end time.Time) (time.Duration, error) {
	query := `
		SELECT avg(execution_ms) AS avg_ms
		FROM executions_log
		WHERE event_time BETWEEN ? AND ?
	`
	var avgMs sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, start, end).Scan(&avgMs)
	if err != nil {
		return 0, err
	}
	if !avgMs.Valid {
		return 0, nil // no hay datos en el rango
	}

	return time.Duration(avgMs.Float64) * time.Millisecond, nil
}

var _ domain.ExecutionAnalytics = (*ExecutionAnalyticsRepo)(nil)
