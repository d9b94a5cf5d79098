package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the real hosted-checkout API.
type Client struct {
	apiBase       string
	secretKey     string
	webhookSecret string
	tolerance     time.Duration
	httpClient    *http.Client
	now           func() time.Time
}

func NewClient(apiBase, secretKey, webhookSecret string, timeout, tolerance time.Duration) *Client {
	return &Client{
		apiBase:       apiBase,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
		httpClient:    &http.Client{Timeout: timeout},
		now:           time.Now,
	}
}

type createSessionRequest struct {
	LineItems  []LineItem `json:"line_items"`
	TotalCents int64      `json:"total_cents"`
}

func (c *Client) CreateSession(ctx context.Context, items []LineItem, totalCents int64) (Session, error) {
	body, err := json.Marshal(createSessionRequest{LineItems: items, TotalCents: totalCents})
	if err != nil {
		return Session{}, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, fmt.Errorf("create checkout session: provider returned %d: %s", resp.StatusCode, snippet)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return Session{}, fmt.Errorf("decode session response: %w", err)
	}
	if session.ID == "" {
		return Session{}, fmt.Errorf("decode session response: missing session id")
	}

	return session, nil
}

// eventEnvelope mirrors the provider's webhook payload shape.
type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (c *Client) VerifyAndParse(payload []byte, sigHeader string) (Event, error) {
	if err := verifySignature(c.webhookSecret, payload, sigHeader, c.tolerance, c.now()); err != nil {
		return Event{}, err
	}

	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("%w: undecodable payload", ErrBadSignature)
	}
	if env.ID == "" || env.Type == "" {
		return Event{}, fmt.Errorf("%w: incomplete event", ErrBadSignature)
	}

	return Event{ID: env.ID, Type: env.Type, SessionID: env.Data.Object.ID}, nil
}
