package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/orderid"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/outbox"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/sequence"
)

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PostgresTxManager binds the repositories to a single pgx transaction.
type PostgresTxManager struct {
	db     TxBeginner
	seq    *sequence.Repository
	orders *order.PostgresRepository
	stock  *inventory.PostgresRepository
	carts  *cart.PostgresRepository
	outbox *outbox.Store
}

func NewPostgresTxManager(db TxBeginner, seq *sequence.Repository, orders *order.PostgresRepository, stock *inventory.PostgresRepository, carts *cart.PostgresRepository, ob *outbox.Store) *PostgresTxManager {
	return &PostgresTxManager{db: db, seq: seq, orders: orders, stock: stock, carts: carts, outbox: ob}
}

func (m *PostgresTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, w Writers) error) (err error) {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	w := Writers{
		IDs:    orderid.NewAllocator(m.seq.WithExecutor(tx)),
		Orders: m.orders.WithExecutor(tx),
		Stock:  m.stock.WithExecutor(tx),
		Carts:  m.carts.WithExecutor(tx),
		Outbox: m.outbox.WithExecutor(tx),
	}
	if err := fn(ctx, w); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
