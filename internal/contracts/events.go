package contracts

import "time"

// EventTypeOrderPaid is the routing key used when publishing OrderPaidEvent.
const EventTypeOrderPaid = "order.paid"

// OrderPaidEvent crosses the broker whenever an order transitions to paid.
// It is written to the outbox in the same transaction as the status update,
// so it is emitted at-least-once and consumers must dedup on EventID.
type OrderPaidEvent struct {
	EventID      string    `json:"event_id"`
	OrderID      string    `json:"order_id"`
	SessionToken string    `json:"session_token"`
	AmountCents  int64     `json:"amount_cents"`
	PaidAt       time.Time `json:"paid_at"`
}
