package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNegativeStock  = errors.New("stock cannot be negative")
	ErrEmptyProductID = errors.New("product id is required")
)

// DBPool matches the methods from *pgxpool.Pool and pgx.Tx that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (StockItem, error)
	SetAvailable(ctx context.Context, productID string, available int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *PostgresRepository) WithExecutor(exec DBPool) *PostgresRepository {
	return &PostgresRepository{pool: exec}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (StockItem, error) {
	var item StockItem
	row := r.pool.QueryRow(ctx, `SELECT product_id, stock_quantity FROM products WHERE product_id=$1`, productID)
	if err := row.Scan(&item.ProductID, &item.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

// SetAvailable overwrites the stock of an existing product.
func (r *PostgresRepository) SetAvailable(ctx context.Context, productID string, available int) error {
	if productID == "" {
		return ErrEmptyProductID
	}
	if available < 0 {
		return ErrNegativeStock
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock_quantity=$2, updated_at=now()
		WHERE product_id=$1
	`, productID, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Decrement takes the given quantities off stock in one statement. A product
// is only touched when its stock covers the whole demand; if any product falls
// short the call returns *InsufficientStockError and the caller must roll the
// transaction back, since the rows that did qualify were already updated.
func (r *PostgresRepository) Decrement(ctx context.Context, lines []Line) error {
	demand := Demand(lines)
	if len(demand) == 0 {
		return nil
	}

	ids := make([]string, 0, len(demand))
	qtys := make([]int32, 0, len(demand))
	for _, d := range demand {
		ids = append(ids, d.ProductID)
		qtys = append(qtys, int32(d.Quantity))
	}

	rows, err := r.pool.Query(ctx, `
		UPDATE products AS p
		SET stock_quantity = p.stock_quantity - d.qty, updated_at = now()
		FROM unnest($1::text[], $2::int4[]) AS d(product_id, qty)
		WHERE p.product_id = d.product_id AND p.stock_quantity >= d.qty
		RETURNING p.product_id
	`, ids, qtys)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	updated, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if len(updated) == len(demand) {
		return nil
	}

	done := make(map[string]bool, len(updated))
	for _, id := range updated {
		done[id] = true
	}
	for _, d := range demand {
		if done[d.ProductID] {
			continue
		}
		shortErr := &InsufficientStockError{ProductID: d.ProductID, Requested: d.Quantity}
		if item, err := r.Get(ctx, d.ProductID); err == nil {
			shortErr.Available = item.Available
		}
		return shortErr
	}
	return fmt.Errorf("decrement stock: updated %d of %d products", len(updated), len(demand))
}
