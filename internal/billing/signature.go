package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The payment provider signs webhook deliveries with
// "Stripe-Signature: t=<unix-seconds>,v1=<hex>", where v1 is HMAC-SHA256
// over "{t}.{raw-body}" keyed by the endpoint's webhook secret.
//
// Verification is done against the raw body bytes; the payload must not be
// parsed before the signature checks out. The SDK's own constructor is not
// used here because it folds "no secret configured" and "bad signature" into
// one error, and operators need to tell those apart.

const SignatureHeader = "Stripe-Signature"

var (
	// ErrNotConfigured means no webhook secret is set for this deployment.
	// Operator misconfiguration, not an attack.
	ErrNotConfigured = errors.New("billing: webhook secret not configured")

	ErrMissingSignature = errors.New("billing: missing signature header")
	ErrInvalidSignature = errors.New("billing: invalid signature")

	// ErrTimestampExpired marks a correctly signed but stale delivery,
	// rejected by the replay window.
	ErrTimestampExpired = errors.New("billing: signature timestamp outside tolerance")
)

// SignatureVerifier validates inbound payment-provider webhooks.
//
// Tolerance bounds how far the signed timestamp may lag behind (or lead) the
// clock. Zero disables the freshness check.
type SignatureVerifier struct {
	Secret    string
	Tolerance time.Duration

	Now func() time.Time
}

// Verify checks the header signature over the raw request body.
func (v SignatureVerifier) Verify(body []byte, header string) error {
	if v.Secret == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}

	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	expected := ComputeSignature(v.Secret, ts, body)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrInvalidSignature
	}

	if v.Tolerance > 0 {
		now := time.Now()
		if v.Now != nil {
			now = v.Now()
		}
		age := now.Sub(time.Unix(ts, 0))
		if age > v.Tolerance || age < -v.Tolerance {
			return ErrTimestampExpired
		}
	}
	return nil
}

// ComputeSignature produces the hex digest for a timestamp and body.
// Exposed so tests can sign synthetic deliveries.
func ComputeSignature(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload renders a complete header value for a body signed now.
func SignPayload(secret string, timestamp int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(secret, timestamp, body))
}

func parseSignatureHeader(header string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil || n <= 0 {
				return 0, "", ErrInvalidSignature
			}
			ts = n
		case "v1":
			// Keep the first v1; providers may send older scheme versions
			// alongside it.
			if sig == "" {
				sig = v
			}
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrInvalidSignature
	}
	return ts, sig, nil
}
