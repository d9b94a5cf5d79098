package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The webhook signature header has the form "t=<unix>,v1=<hex>" where the
// hex digest is HMAC-SHA256 over "<unix>.<raw body>" keyed by the shared
// webhook secret. The timestamp binds the signature to a delivery window so
// captured payloads cannot be replayed indefinitely.

func signPayload(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader produces a valid header for the given payload. Used by the
// fake provider and by tests; the real provider computes its own.
func SignatureHeader(secret string, ts time.Time, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), signPayload(secret, ts, payload))
}

func verifySignature(secret string, payload []byte, header string, tolerance time.Duration, now time.Time) error {
	var ts time.Time
	var sig string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			unix, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrBadSignature)
			}
			ts = time.Unix(unix, 0)
		case "v1":
			sig = v
		}
	}

	if ts.IsZero() || sig == "" {
		return fmt.Errorf("%w: malformed header", ErrBadSignature)
	}

	age := now.Sub(ts)
	if age < -tolerance || age > tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	expected := signPayload(secret, ts, payload)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: digest mismatch", ErrBadSignature)
	}

	return nil
}
