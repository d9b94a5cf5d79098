package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shoply/shop-service/internal/catalog"
	"shoply/shop-service/internal/payment"

	"github.com/google/uuid"
)

const maxLineQuantity = 99

// Resolver maps cart SKUs to catalog products; every SKU must resolve.
type Resolver interface {
	Resolve(ctx context.Context, skus []string) (map[string]catalog.Product, error)
}

// Service implements checkout initiation and payment confirmation on top of
// the ledger. It is the only writer of order state.
type Service struct {
	catalog  Resolver
	provider payment.Provider
	ledger   Ledger
	logger   *slog.Logger
}

func NewService(c Resolver, p payment.Provider, l Ledger, logger *slog.Logger) *Service {
	return &Service{catalog: c, provider: p, ledger: l, logger: logger}
}

type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Checkout validates the cart, computes the total server-side, creates a
// hosted checkout session with the provider, and then records the pending
// order. The order is written only after the provider call has succeeded, so
// a provider failure leaves no partial state.
func (s *Service) Checkout(ctx context.Context, items []CartItem) (CheckoutResult, error) {
	if len(items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	skus := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.SKU] {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrDuplicateItem, item.SKU)
		}
		seen[item.SKU] = true
		skus = append(skus, item.SKU)
	}

	products, err := s.catalog.Resolve(ctx, skus)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return CheckoutResult{}, fmt.Errorf("%w: %v", ErrUnknownItem, err)
		}
		return CheckoutResult{}, fmt.Errorf("resolve cart: %w", err)
	}

	var total int64
	lines := make([]Line, 0, len(items))
	lineItems := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > maxLineQuantity {
			return CheckoutResult{}, fmt.Errorf("%w: %s x%d", ErrInvalidQuantity, item.SKU, item.Quantity)
		}
		p := products[item.SKU]
		total += p.PriceCents * int64(item.Quantity)
		lines = append(lines, Line{
			ProductSKU:     p.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: p.PriceCents,
		})
		lineItems = append(lineItems, payment.LineItem{
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       item.Quantity,
		})
	}

	session, err := s.provider.CreateSession(ctx, lineItems, total)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	now := time.Now().UTC()
	o := &Order{
		ID:           uuid.New(),
		SessionToken: session.ID,
		Status:       StatusPending,
		TotalCents:   total,
		Lines:        lines,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.ledger.CreateOrder(ctx, o); err != nil {
		// The provider session exists but no order backs it. The session
		// simply expires unpaid on the provider side.
		return CheckoutResult{}, err
	}

	s.logger.InfoContext(ctx, "checkout session created",
		"order_id", o.ID, "session_token", session.ID, "total_cents", total)

	return CheckoutResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// ConfirmPayment processes one provider notification delivery. Any error
// returned here must translate to a non-2xx response, so the provider keeps
// the delivery alive and retries; a nil return is the acknowledgment that
// stops retries, whether or not this delivery performed the write.
func (s *Service) ConfirmPayment(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.provider.VerifyAndParse(payload, sigHeader)
	if err != nil {
		return err
	}

	if event.Type != payment.EventCheckoutCompleted {
		s.logger.InfoContext(ctx, "ignoring event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	o, wrote, err := s.ledger.MarkPaid(ctx, event.SessionID)
	if err != nil {
		return err
	}

	if wrote {
		s.logger.InfoContext(ctx, "order paid",
			"order_id", o.ID, "session_token", o.SessionToken, "total_cents", o.TotalCents)
	} else {
		s.logger.InfoContext(ctx, "duplicate confirmation ignored",
			"order_id", o.ID, "session_token", o.SessionToken)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.ledger.Get(ctx, id)
}

// ListPaid is the "my orders" projection: paid orders only.
func (s *Service) ListPaid(ctx context.Context) ([]Order, error) {
	return s.ledger.ListPaid(ctx)
}
