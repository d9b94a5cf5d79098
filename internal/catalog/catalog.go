package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a purchasable catalog item. SKU is the public identifier used
// in carts and order lines. Prices are integer cents.
type Product struct {
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	BySKUs(ctx context.Context, skus []string) (map[string]Product, error)
	Replace(ctx context.Context, products []Product) error
}

type PgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{pool: pool}
}

func (r *PgxRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sku, name, description, price_cents, created_at
		FROM products
		ORDER BY sku`,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	return result, rows.Err()
}

func (r *PgxRepository) BySKUs(ctx context.Context, skus []string) (map[string]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sku, name, description, price_cents, created_at
		FROM products
		WHERE sku = ANY($1)`, skus,
	)
	if err != nil {
		return nil, fmt.Errorf("query products by sku: %w", err)
	}
	defer rows.Close()

	result := make(map[string]Product, len(skus))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.SKU, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.SKU] = p
	}

	return result, rows.Err()
}

// Replace upserts the given products and removes any others, so repeated
// seeding converges on the same fixed set.
func (r *PgxRepository) Replace(ctx context.Context, products []Product) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	keep := make([]string, 0, len(products))
	for _, p := range products {
		keep = append(keep, p.SKU)
		_, err := tx.Exec(ctx, `
			INSERT INTO products (sku, name, description, price_cents)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (sku) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    price_cents = EXCLUDED.price_cents`,
			p.SKU, p.Name, p.Description, p.PriceCents,
		)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE sku <> ALL($1)`, keep); err != nil {
		return fmt.Errorf("delete stray products: %w", err)
	}

	return tx.Commit(ctx)
}
