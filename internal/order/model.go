package order

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Order is one checkout attempt. SessionToken is the provider-assigned
// correlation key and is unique across all orders; status only ever moves
// forward (pending -> paid, pending -> failed), and paid is terminal.
type Order struct {
	ID           uuid.UUID `json:"id"`
	SessionToken string    `json:"session_token"`
	Status       Status    `json:"status"`
	TotalCents   int64     `json:"total_cents"`
	Lines        []Line    `json:"lines"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Line snapshots one cart entry at purchase time, unit price included, so
// later catalog edits cannot rewrite history.
type Line struct {
	ProductSKU     string `json:"product_sku"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// CartItem is a requested (item, quantity) pair as submitted by the client.
type CartItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}
