// Package payment models the hosted-checkout payment provider behind two
// operations: creating a checkout session and verifying a signed webhook
// event. The real HTTP client and the in-memory fake implement the same
// interface, so the rest of the system never knows which one it talks to.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrBadSignature covers every authenticity failure: bad HMAC,
	// malformed signature header, or a timestamp outside tolerance.
	ErrBadSignature = errors.New("webhook signature verification failed")
)

// EventCheckoutCompleted is the only actionable event kind; every other
// recognized kind is acknowledged and ignored.
const EventCheckoutCompleted = "checkout.session.completed"

type LineItem struct {
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// Session is a provider-hosted checkout flow. ID is the session token that
// correlates the eventual webhook with the local order.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified, parsed provider notification.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

type Provider interface {
	// CreateSession asks the provider to host a checkout for the given
	// line items. totalCents is the server-computed order total.
	CreateSession(ctx context.Context, items []LineItem, totalCents int64) (Session, error)

	// VerifyAndParse authenticates a raw webhook payload against its
	// signature header and decodes it. It must not be called with an
	// unverified trust assumption anywhere else; this is the only door.
	VerifyAndParse(payload []byte, sigHeader string) (Event, error)
}
