package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"shoply/shop-service/internal/catalog"
	"shoply/shop-service/internal/order"
	"shoply/shop-service/internal/payment"
)

type mockCatalog struct {
	ListFunc func(ctx context.Context) ([]catalog.Product, error)
}

func (m *mockCatalog) List(ctx context.Context) ([]catalog.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

type mockOrders struct {
	CheckoutFunc       func(ctx context.Context, items []order.CartItem) (order.CheckoutResult, error)
	ConfirmPaymentFunc func(ctx context.Context, payload []byte, sigHeader string) error
	GetFunc            func(ctx context.Context, id string) (*order.Order, error)
	ListPaidFunc       func(ctx context.Context) ([]order.Order, error)
}

func (m *mockOrders) Checkout(ctx context.Context, items []order.CartItem) (order.CheckoutResult, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, items)
	}
	return order.CheckoutResult{}, nil
}

func (m *mockOrders) ConfirmPayment(ctx context.Context, payload []byte, sigHeader string) error {
	if m.ConfirmPaymentFunc != nil {
		return m.ConfirmPaymentFunc(ctx, payload, sigHeader)
	}
	return nil
}

func (m *mockOrders) Get(ctx context.Context, id string) (*order.Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, order.ErrOrderNotFound
}

func (m *mockOrders) ListPaid(ctx context.Context) ([]order.Order, error) {
	if m.ListPaidFunc != nil {
		return m.ListPaidFunc(ctx)
	}
	return nil, nil
}

func newTestServer(c CatalogService, o OrderService) *Server {
	return NewServer(c, o, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateCheckoutSessionStatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		checkoutErr error
		wantStatus  int
	}{
		{"empty cart", order.ErrEmptyCart, http.StatusBadRequest},
		{"unknown item", order.ErrUnknownItem, http.StatusBadRequest},
		{"invalid quantity", order.ErrInvalidQuantity, http.StatusBadRequest},
		{"duplicate item", order.ErrDuplicateItem, http.StatusBadRequest},
		{"provider outage", order.ErrProvider, http.StatusBadGateway},
		{"session conflict", order.ErrOrderConflict, http.StatusConflict},
		{"internal fault", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockCatalog{}, &mockOrders{
				CheckoutFunc: func(context.Context, []order.CartItem) (order.CheckoutResult, error) {
					return order.CheckoutResult{}, tt.checkoutErr
				},
			})

			body := bytes.NewBufferString(`{"items":[{"sku":"mouse","quantity":2}]}`)
			req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", body)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	var gotItems []order.CartItem
	srv := newTestServer(&mockCatalog{}, &mockOrders{
		CheckoutFunc: func(_ context.Context, items []order.CartItem) (order.CheckoutResult, error) {
			gotItems = items
			return order.CheckoutResult{SessionID: "sess_abc", CheckoutURL: "https://checkout.invalid/sess_abc"}, nil
		},
	})

	// A claimed total in the body is carried but never used; only the item
	// list reaches the service.
	body := bytes.NewBufferString(`{"items":[{"sku":"mouse","quantity":2}],"claimed_total_cents":1}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", body)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if len(gotItems) != 1 || gotItems[0].SKU != "mouse" || gotItems[0].Quantity != 2 {
		t.Fatalf("service received items %+v", gotItems)
	}

	var result order.CheckoutResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.SessionID != "sess_abc" {
		t.Fatalf("session id = %q", result.SessionID)
	}
}

func TestCreateCheckoutSessionInvalidJSON(t *testing.T) {
	srv := newTestServer(&mockCatalog{}, &mockOrders{})

	req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPaymentWebhookStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		confirmErr error
		wantStatus int
	}{
		{"acknowledged", nil, http.StatusOK},
		{"bad signature", payment.ErrBadSignature, http.StatusBadRequest},
		{"unknown session", order.ErrOrderNotFound, http.StatusNotFound},
		{"ledger fault", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSig string
			srv := newTestServer(&mockCatalog{}, &mockOrders{
				ConfirmPaymentFunc: func(_ context.Context, _ []byte, sig string) error {
					gotSig = sig
					return tt.confirmErr
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(`{"id":"evt_1"}`))
			req.Header.Set(SignatureHeader, "t=1,v1=abc")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotSig != "t=1,v1=abc" {
				t.Fatalf("signature header = %q", gotSig)
			}
		})
	}
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(&mockCatalog{
		ListFunc: func(context.Context) ([]catalog.Product, error) {
			return []catalog.Product{{SKU: "mouse", Name: "Wireless Mouse", PriceCents: 2999}}, nil
		},
	}, &mockOrders{})

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Products []catalog.Product `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].SKU != "mouse" {
		t.Fatalf("products = %+v", resp.Products)
	}
}

func TestListPaidOrdersProjection(t *testing.T) {
	srv := newTestServer(&mockCatalog{}, &mockOrders{
		ListPaidFunc: func(context.Context) ([]order.Order, error) {
			return []order.Order{{SessionToken: "sess_abc", Status: order.StatusPaid, TotalCents: 5998}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Orders []order.Order `json:"orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].Status != order.StatusPaid {
		t.Fatalf("orders = %+v", resp.Orders)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	srv := newTestServer(&mockCatalog{}, &mockOrders{})

	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
