package order

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrDuplicateItem   = errors.New("duplicate item in cart")
	ErrUnknownItem     = errors.New("unknown catalog item")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")

	// ErrProvider wraps a failed call to the payment provider during
	// checkout initiation. Nothing has been persisted when it is returned.
	ErrProvider = errors.New("payment provider error")

	// ErrOrderConflict means an order with the same session token already
	// exists. The provider guarantees token uniqueness, so hitting this is
	// a server fault, not a client one.
	ErrOrderConflict = errors.New("order already exists for session")

	ErrOrderNotFound = errors.New("order not found")
)
