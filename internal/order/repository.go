package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const columnList = `order_id, user_id, dealer_id, product_id, quantity, unit_price,
	customer_name, customer_email, customer_phone,
	shipping_address, shipping_pincode, order_date, order_status,
	total_amount, tax_amount, shipping_cost, discount_amount,
	payment_method, payment_status, transaction_id`

const columnCount = 20

// MaxBatchRows is the most rows one InsertBatch statement can carry within
// Postgres's limit of 65535 bind parameters.
const MaxBatchRows = 65535 / columnCount

// Executor is satisfied by *pgxpool.Pool and pgx.Tx.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	exec Executor
}

func NewPostgresRepository(exec Executor) *PostgresRepository {
	return &PostgresRepository{exec: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *PostgresRepository) WithExecutor(exec Executor) *PostgresRepository {
	return &PostgresRepository{exec: exec}
}

// InsertBatch writes all orders with one multi-row INSERT and reports the
// number of rows the database says it wrote.
func (r *PostgresRepository) InsertBatch(ctx context.Context, orders []Order) (int64, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	if len(orders) > MaxBatchRows {
		return 0, fmt.Errorf("insert orders: %d rows exceeds the limit of %d per statement", len(orders), MaxBatchRows)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO orders (")
	sb.WriteString(columnList)
	sb.WriteString(") VALUES ")
	args := make([]any, 0, len(orders)*columnCount)
	for i := range orders {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < columnCount; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(i*columnCount + c + 1))
		}
		sb.WriteByte(')')
		args = append(args, orders[i].args()...)
	}

	tag, err := r.exec.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
