package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"shoply/shop-service/internal/catalog"
	"shoply/shop-service/internal/order"
	"shoply/shop-service/internal/payment"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Payment-Signature"

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

type CatalogService interface {
	List(ctx context.Context) ([]catalog.Product, error)
}

type OrderService interface {
	Checkout(ctx context.Context, items []order.CartItem) (order.CheckoutResult, error)
	ConfirmPayment(ctx context.Context, payload []byte, sigHeader string) error
	Get(ctx context.Context, id string) (*order.Order, error)
	ListPaid(ctx context.Context) ([]order.Order, error)
}

type Server struct {
	catalogSvc CatalogService
	orderSvc   OrderService
	logger     *slog.Logger
	router     chi.Router
}

// NewServer wires the HTTP surface. wsHandler may be nil, in which case the
// websocket route is not registered.
func NewServer(catalogSvc CatalogService, orderSvc OrderService, wsHandler http.HandlerFunc, logger *slog.Logger) *Server {
	s := &Server{
		catalogSvc: catalogSvc,
		orderSvc:   orderSvc,
		logger:     logger,
		router:     chi.NewRouter(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/products", s.listProducts)
	s.router.Post("/checkout/sessions", s.createCheckoutSession)
	s.router.Post("/webhooks/payment", s.paymentWebhook)
	s.router.Get("/orders", s.listPaidOrders)
	s.router.Get("/orders/{orderID}", s.getOrder)
	if wsHandler != nil {
		s.router.Get("/orders/{orderID}/ws", wsHandler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalogSvc.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list products", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

type checkoutRequest struct {
	Items []order.CartItem `json:"items"`
	// ClaimedTotalCents is accepted for forward compatibility with older
	// clients but never trusted; the total is always computed server-side.
	ClaimedTotalCents int64 `json:"claimed_total_cents,omitempty"`
}

func (s *Server) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.orderSvc.Checkout(r.Context(), req.Items)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrEmptyCart),
			errors.Is(err, order.ErrDuplicateItem),
			errors.Is(err, order.ErrUnknownItem),
			errors.Is(err, order.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, order.ErrProvider):
			s.logger.ErrorContext(r.Context(), "provider unavailable", "err", err)
			writeError(w, http.StatusBadGateway, "payment provider unavailable")
		case errors.Is(err, order.ErrOrderConflict):
			s.logger.ErrorContext(r.Context(), "session token collision", "err", err)
			writeError(w, http.StatusConflict, "order already exists for session")
		default:
			s.logger.ErrorContext(r.Context(), "checkout failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// paymentWebhook is the only code path that advances an order to paid. The
// client redirect after checkout never touches order state. A non-2xx
// response here keeps the provider's retry loop alive.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = s.orderSvc.ConfirmPayment(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrBadSignature):
			writeError(w, http.StatusBadRequest, "signature verification failed")
		case errors.Is(err, order.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "no order for session")
		default:
			s.logger.ErrorContext(r.Context(), "confirm payment", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) listPaidOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orderSvc.ListPaid(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list paid orders", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.orderSvc.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "get order", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
