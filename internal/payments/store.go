package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the idempotent batch writer and reader over durable storage,
// keyed by correlation identifier.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore wraps a pgx connection pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// EnsureSchema creates the payments table if it does not already exist.
// The Python original does the analogous thing at startup
// (`create_tables()`) rather than assuming an external migration ran.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS payments (
		correlation_id UUID PRIMARY KEY,
		processor      TEXT NOT NULL,
		amount         DOUBLE PRECISION NOT NULL,
		requested_at   TIMESTAMPTZ NOT NULL
	)`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

const batchInsertRetries = 3

// SaveBatch inserts all rows in one statement, using correlation_id as
// a conflict key so re-submission is a no-op. On a storage-layer error
// it makes up to batchInsertRetries attempts in total, with linear
// back-off after each failure, then falls back to one row at a time.
func (s *Store) SaveBatch(ctx context.Context, batch []ProcessedPayment) error {
	if len(batch) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= batchInsertRetries; attempt++ {
		if err := s.insertBatch(ctx, batch); err == nil {
			return nil
		} else {
			lastErr = err
			s.logger.Error("batch insert failed, retrying", "attempt", attempt, "batchSize", len(batch), "error", err)
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}

	s.logger.Error("batch insert exhausted retries, falling back to per-row inserts", "batchSize", len(batch), "error", lastErr)
	return s.saveRowByRow(ctx, batch)
}

func (s *Store) insertBatch(ctx context.Context, batch []ProcessedPayment) error {
	query, args := buildBatchInsert(batch)
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// buildBatchInsert builds a single parameterized multi-row INSERT with
// an idempotent ON CONFLICT DO NOTHING clause. Split out from
// insertBatch so the statement shape is testable without a live pool.
func buildBatchInsert(batch []ProcessedPayment) (string, []any) {
	query := `INSERT INTO payments (correlation_id, processor, amount, requested_at) VALUES `
	args := make([]any, 0, len(batch)*4)
	for i, p := range batch {
		if i > 0 {
			query += ", "
		}
		base := i * 4
		query += fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, p.CorrelationID, string(p.Processor), p.Amount, p.RequestedAt)
	}
	query += " ON CONFLICT (correlation_id) DO NOTHING"
	return query, args
}

// saveRowByRow inserts each row individually, probing for existence
// first so a conflict never surfaces as an error. Rows that still fail
// are collected into a dead list, critical-logged, and dropped.
func (s *Store) saveRowByRow(ctx context.Context, batch []ProcessedPayment) error {
	var dead []ProcessedPayment
	for _, p := range batch {
		if err := s.Save(ctx, p); err != nil {
			dead = append(dead, p)
		}
	}
	if len(dead) > 0 {
		ids := make([]string, len(dead))
		for i, p := range dead {
			ids[i] = p.CorrelationID.String()
		}
		s.logger.Error("dropping payments that failed per-row insert", "count", len(dead), "correlationIds", ids)
	}
	return nil
}

// Save inserts a single row with the same idempotent conflict policy.
func (s *Store) Save(ctx context.Context, p ProcessedPayment) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE correlation_id = $1)`, p.CorrelationID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO payments (correlation_id, processor, amount, requested_at) VALUES ($1, $2, $3, $4) ON CONFLICT (correlation_id) DO NOTHING`,
		p.CorrelationID, string(p.Processor), p.Amount, p.RequestedAt)
	return err
}

// GetAll returns every ProcessedPayment. On failure it logs and returns
// an empty slice rather than propagating the error.
func (s *Store) GetAll(ctx context.Context) []ProcessedPayment {
	rows, err := s.pool.Query(ctx, `SELECT correlation_id, processor, amount, requested_at FROM payments`)
	if err != nil {
		s.logger.Error("failed to read payments", "error", err)
		return nil
	}
	defer rows.Close()

	var out []ProcessedPayment
	for rows.Next() {
		var p ProcessedPayment
		var processor string
		if err := rows.Scan(&p.CorrelationID, &processor, &p.Amount, &p.RequestedAt); err != nil {
			s.logger.Error("failed to scan payment row", "error", err)
			continue
		}
		p.Processor = Processor(processor)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("error iterating payment rows", "error", err)
		return nil
	}
	return out
}

// Purge deletes every row and returns the number removed. Errors are
// logged but do not propagate.
func (s *Store) Purge(ctx context.Context) int64 {
	tag, err := s.pool.Exec(ctx, `DELETE FROM payments`)
	if err != nil {
		s.logger.Error("failed to purge payments", "error", err)
		return 0
	}
	return tag.RowsAffected()
}
