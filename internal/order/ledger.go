package order

import "context"

// Ledger owns order persistence. No other component writes order status.
type Ledger interface {
	// CreateOrder persists the order and its lines in one transaction.
	// A duplicate session token is reported as ErrOrderConflict.
	CreateOrder(ctx context.Context, o *Order) error

	// MarkPaid transitions the order for the given session token to paid,
	// exactly once. It locks the order row for the read-check-write
	// sequence, so concurrent duplicate deliveries serialize: the first
	// writes, the rest observe paid and no-op. The bool result reports
	// whether this call performed the write. An order already paid is not
	// an error; a missing order is ErrOrderNotFound.
	MarkPaid(ctx context.Context, sessionToken string) (*Order, bool, error)

	Get(ctx context.Context, id string) (*Order, error)

	// ListPaid returns paid orders, newest first, lines included.
	ListPaid(ctx context.Context) ([]Order, error)
}
