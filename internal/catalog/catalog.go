package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Product struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	DealerID      string `json:"dealer_id"`
	PrimaryImage  string `json:"primary_image"`
}

type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresRepository struct {
	db Querier
}

func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetProducts loads every requested product in one round trip. Unknown ids
// are simply absent from the result.
func (r *PostgresRepository) GetProducts(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT product_id, name, stock_quantity, COALESCE(dealer_id, ''), COALESCE(primary_image, '')
		FROM products
		WHERE product_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ProductID, &p.Name, &p.StockQuantity, &p.DealerID, &p.PrimaryImage); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return products, nil
}
