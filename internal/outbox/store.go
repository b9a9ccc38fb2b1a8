package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Message is what producers enqueue. Payload is marshalled to JSON.
type Message struct {
	EventID       string
	Kind          string
	PartitionKey  string
	CorrelationID string
	Payload       any
}

type Record struct {
	ID            int64           `json:"id"`
	EventID       string          `json:"event_id"`
	Kind          string          `json:"kind"`
	PartitionKey  string          `json:"partition_key"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Executor is satisfied by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	exec Executor
}

func NewStore(exec Executor) *Store {
	return &Store{exec: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (s *Store) WithExecutor(exec Executor) *Store {
	return &Store{exec: exec}
}

// Enqueue stores msg for later delivery. Call it with a transaction-bound
// store so the record commits or rolls back together with the business write.
func (s *Store) Enqueue(ctx context.Context, msg Message) error {
	if msg.Kind == "" {
		return errors.New("outbox: kind is required")
	}
	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("outbox: marshal %s payload: %w", msg.Kind, err)
	}
	_, err = s.exec.Exec(ctx,
		`INSERT INTO outbox (event_id, kind, partition_key, correlation_id, payload) VALUES ($1, $2, $3, $4, $5)`,
		msg.EventID, msg.Kind, msg.PartitionKey, msg.CorrelationID, data,
	)
	if err != nil {
		return fmt.Errorf("outbox: insert %s: %w", msg.Kind, err)
	}
	return nil
}

// Claim picks up to limit due records and pushes their next attempt past the
// lease, so other relays skip them while this one is dispatching. Rows locked
// by a concurrent claimer are skipped rather than waited on.
func (s *Store) Claim(ctx context.Context, limit int, lease time.Duration) ([]Record, error) {
	rows, err := s.exec.Query(ctx, `
		UPDATE outbox SET next_attempt_at = now() + $2::float8 * interval '1 second'
		WHERE id IN (
			SELECT id FROM outbox
			WHERE sent_at IS NULL AND failed_at IS NULL AND next_attempt_at <= now()
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, kind, partition_key, correlation_id, payload, attempts, created_at
	`, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Kind, &rec.PartitionKey, &rec.CorrelationID, &payload, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("outbox: scan: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: claim rows: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) MarkSent(ctx context.Context, id int64) error {
	_, err := s.exec.Exec(ctx, `UPDATE outbox SET sent_at = now(), last_error = '' WHERE id = $1`, id)
	return err
}

// Retry records a failed attempt and schedules the next one.
func (s *Store) Retry(ctx context.Context, id int64, attempts int, lastErr string, next time.Time) error {
	_, err := s.exec.Exec(ctx,
		`UPDATE outbox SET attempts = $2, last_error = $3, next_attempt_at = $4 WHERE id = $1`,
		id, attempts, lastErr, next,
	)
	return err
}

// Park stops delivery of a record for good. It stays in the table for inspection.
func (s *Store) Park(ctx context.Context, id int64, attempts int, lastErr string) error {
	_, err := s.exec.Exec(ctx,
		`UPDATE outbox SET attempts = $2, last_error = $3, failed_at = now() WHERE id = $1`,
		id, attempts, lastErr,
	)
	return err
}
