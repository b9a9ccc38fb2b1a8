package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUserNotFound = errors.New("user not found")

// Executor is satisfied by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	executor Executor
	logger   *log.Logger
}

func NewPostgresRepository(exec Executor, logger *log.Logger) *PostgresRepository {
	return &PostgresRepository{executor: exec, logger: logger}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *PostgresRepository) WithExecutor(exec Executor) *PostgresRepository {
	return &PostgresRepository{executor: exec, logger: r.logger}
}

// Lines returns the user's cart. A stored payload that is not valid JSON is
// treated as an empty cart.
func (r *PostgresRepository) Lines(ctx context.Context, userID string) ([]Line, error) {
	return r.load(ctx, userID, `SELECT cart FROM users WHERE user_id=$1`)
}

// LockLines is Lines with the user row locked until the surrounding
// transaction ends. Concurrent checkouts for one user queue up here, and the
// later ones read the cart the earlier one left behind.
func (r *PostgresRepository) LockLines(ctx context.Context, userID string) ([]Line, error) {
	return r.load(ctx, userID, `SELECT cart FROM users WHERE user_id=$1 FOR UPDATE`)
}

func (r *PostgresRepository) load(ctx context.Context, userID, query string) ([]Line, error) {
	var raw string
	err := r.executor.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	lines, err := ParseLines(raw)
	if err != nil {
		r.logger.Printf("cart payload for user=%s is not valid JSON, treating as empty: %v", userID, err)
		return nil, nil
	}
	return lines, nil
}

// Clear resets the stored cart to an empty document.
func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	tag, err := r.executor.Exec(ctx, `UPDATE users SET cart='[]', updated_at=now() WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ParseLines decodes a stored cart document. Blank payloads decode to an empty
// cart; entries without a product or with a non-positive quantity are dropped.
func ParseLines(raw string) ([]Line, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var decoded []Line
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(decoded))
	for _, ln := range decoded {
		if strings.TrimSpace(ln.ProductID) == "" || ln.Quantity <= 0 {
			continue
		}
		lines = append(lines, ln)
	}
	return lines, nil
}
