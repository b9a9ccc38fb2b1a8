package orderid

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
)

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Raiser interface {
	Raise(ctx context.Context, name string, floor int64) error
}

// Sync raises the counter to the highest suffix already present in the orders
// table, so rows written before the counter existed are never collided with.
// Malformed legacy identifiers are skipped.
func Sync(ctx context.Context, q Querier, counter Raiser, logger *log.Logger) (int64, error) {
	rows, err := q.Query(ctx, `SELECT order_id FROM orders WHERE order_id LIKE 'ORD%'`)
	if err != nil {
		return 0, fmt.Errorf("scan order ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("scan order ids: %w", err)
	}

	highest := MaxSuffix(ids)
	if err := counter.Raise(ctx, CounterName, highest); err != nil {
		return 0, err
	}
	logger.Printf("order id counter synced floor=%s scanned=%d", Format(highest), len(ids))
	return highest, nil
}
