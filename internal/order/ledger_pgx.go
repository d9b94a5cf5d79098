package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shoply/shop-service/internal/contracts"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxLedger is the Postgres implementation of Ledger.
type PgxLedger struct {
	pool *pgxpool.Pool
}

func NewPgxLedger(pool *pgxpool.Pool) *PgxLedger {
	return &PgxLedger{pool: pool}
}

func (l *PgxLedger) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, session_token, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		o.ID, o.SessionToken, o.Status, o.TotalCents, o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrOrderConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_sku, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, line.ProductSKU, line.Quantity, line.UnitPriceCents,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", line.ProductSKU, err)
		}
	}

	return tx.Commit(ctx)
}

func (l *PgxLedger) MarkPaid(ctx context.Context, sessionToken string) (*Order, bool, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	var o Order
	err = tx.QueryRow(ctx, `
		SELECT id, session_token, status, total_cents, created_at, updated_at
		FROM orders
		WHERE session_token = $1
		FOR UPDATE`,
		sessionToken,
	).Scan(&o.ID, &o.SessionToken, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrOrderNotFound
		}
		return nil, false, fmt.Errorf("lock order: %w", err)
	}

	if o.Status == StatusPaid {
		// Duplicate delivery. Nothing to write.
		return &o, false, nil
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		o.ID, StatusPaid, now,
	); err != nil {
		return nil, false, fmt.Errorf("update order status: %w", err)
	}

	event := contracts.OrderPaidEvent{
		EventID:      uuid.NewString(),
		OrderID:      o.ID.String(),
		SessionToken: o.SessionToken,
		AmountCents:  o.TotalCents,
		PaidAt:       now,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, false, fmt.Errorf("marshal order paid event: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_outbox (event_id, event_type, payload)
		VALUES ($1, $2, $3)`,
		event.EventID, contracts.EventTypeOrderPaid, payload,
	); err != nil {
		return nil, false, fmt.Errorf("insert outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	o.Status = StatusPaid
	o.UpdatedAt = now
	return &o, true, nil
}

func (l *PgxLedger) Get(ctx context.Context, id string) (*Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	var o Order
	err = l.pool.QueryRow(ctx, `
		SELECT id, session_token, status, total_cents, created_at, updated_at
		FROM orders
		WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.SessionToken, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := l.loadLines(ctx, map[uuid.UUID]*Order{o.ID: &o}); err != nil {
		return nil, err
	}
	return &o, nil
}

func (l *PgxLedger) ListPaid(ctx context.Context) ([]Order, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, session_token, status, total_cents, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC`,
		StatusPaid,
	)
	if err != nil {
		return nil, fmt.Errorf("query paid orders: %w", err)
	}
	defer rows.Close()

	var result []Order
	byID := make(map[uuid.UUID]*Order)
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.SessionToken, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		byID[result[i].ID] = &result[i]
	}
	if err := l.loadLines(ctx, byID); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *PgxLedger) loadLines(ctx context.Context, orders map[uuid.UUID]*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for id := range orders {
		ids = append(ids, id)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT order_id, product_sku, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var line Line
		if err := rows.Scan(&orderID, &line.ProductSKU, &line.Quantity, &line.UnitPriceCents); err != nil {
			return err
		}
		if o, ok := orders[orderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}
	return rows.Err()
}
