package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FakeProvider is the demo-mode variant: sessions are fabricated locally and
// webhook deliveries are verified with the same signature scheme under a
// fixed secret. It goes through the identical confirmation state machine as
// the real provider; there is no shortcut that marks orders paid directly.
type FakeProvider struct {
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func NewFakeProvider(secret string) *FakeProvider {
	return &FakeProvider{
		Secret:    secret,
		Tolerance: 5 * time.Minute,
		Now:       time.Now,
	}
}

func (f *FakeProvider) CreateSession(_ context.Context, _ []LineItem, _ int64) (Session, error) {
	id := "demo_" + uuid.NewString()
	return Session{ID: id, URL: "https://checkout.invalid/session/" + id}, nil
}

func (f *FakeProvider) VerifyAndParse(payload []byte, sigHeader string) (Event, error) {
	if err := verifySignature(f.Secret, payload, sigHeader, f.Tolerance, f.Now()); err != nil {
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

// CompletedEventPayload builds a signed checkout-completed delivery for the
// given session, as the hosted provider would send it. Demo tooling and
// tests use it to drive the webhook endpoint.
func (f *FakeProvider) CompletedEventPayload(sessionID string) (payload []byte, sigHeader string) {
	env := map[string]any{
		"id":   "evt_" + uuid.NewString(),
		"type": EventCheckoutCompleted,
		"data": map[string]any{"object": map[string]any{"id": sessionID}},
	}
	payload, _ = json.Marshal(env)
	return payload, SignatureHeader(f.Secret, f.Now(), payload)
}
