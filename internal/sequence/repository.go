package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is satisfied by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository hands out monotonically increasing numbers per named counter.
type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// Advance atomically moves the counter forward by n and returns the new last value.
// Inside a transaction the counter row stays locked until commit, so concurrent
// callers are serialized and a rollback gives the numbers back.
func (r *Repository) Advance(ctx context.Context, name string, n int) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("counter name is required")
	}
	if n <= 0 {
		return 0, fmt.Errorf("advance %s: n must be positive, got %d", name, n)
	}

	var last int64
	err := r.executor.QueryRow(ctx, `
		INSERT INTO sequence_counter (name, last_value)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET last_value = sequence_counter.last_value + EXCLUDED.last_value, updated_at = now()
		RETURNING last_value
	`, name, int64(n)).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("advance %s: %w", name, err)
	}
	return last, nil
}

// Next is Advance by one, used for per-partition event sequences.
func (r *Repository) Next(ctx context.Context, name string) (int64, error) {
	return r.Advance(ctx, name, 1)
}

// Raise makes sure the counter is at least floor. It never lowers it.
func (r *Repository) Raise(ctx context.Context, name string, floor int64) error {
	_, err := r.executor.Exec(ctx, `
		INSERT INTO sequence_counter (name, last_value)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET last_value = GREATEST(sequence_counter.last_value, EXCLUDED.last_value), updated_at = now()
	`, name, floor)
	if err != nil {
		return fmt.Errorf("raise %s: %w", name, err)
	}
	return nil
}
