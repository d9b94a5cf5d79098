package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"shoply/shop-service/internal/order"

	"github.com/go-chi/chi/v5"
	gw "github.com/gorilla/websocket"
)

type Conn = gw.Conn

var upgrader = gw.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub      *Hub
	orderSvc *order.Service
	logger   *slog.Logger
}

func NewHandler(hub *Hub, orderSvc *order.Service, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, orderSvc: orderSvc, logger: logger}
}

// ServeWS upgrades the connection and subscribes the client to status
// updates for one order. The current status is sent immediately, so a
// browser that connects after the webhook landed still sees paid.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	o, err := h.orderSvc.Get(r.Context(), orderID)
	if err != nil {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		orderID: orderID,
	}

	client.hub.register <- client
	go client.writePump()
	go client.readPump()

	upd := OrderUpdate{OrderID: orderID, Status: string(o.Status)}
	if b, err := json.Marshal(upd); err == nil {
		select {
		case client.send <- b:
		case <-time.After(1 * time.Second):
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(gw.TextMessage, msg); err != nil {
			return
		}
	}
}
