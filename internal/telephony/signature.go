package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// Twilio signs callbacks with HMAC-SHA1 over the full callback URL followed
// by every POST field, sorted by key, each as key+value. The base64 digest
// arrives in X-Twilio-Signature.
// Ref: https://www.twilio.com/docs/usage/security#validating-requests

const SignatureHeader = "X-Twilio-Signature"

var (
	// ErrSignatureNotConfigured means no auth token is set for this
	// deployment. Operator misconfiguration, not an attack.
	ErrSignatureNotConfigured = errors.New("telephony: auth token not configured")

	ErrInvalidSignature = errors.New("telephony: invalid signature")
)

// SignatureVerifier validates inbound Twilio callbacks.
//
// InsecureSkipVerify turns a missing auth token into an auto-pass. That is a
// deliberate escape hatch for local/dev environments where no Twilio account
// exists; config.Validate refuses the flag in production.
type SignatureVerifier struct {
	AuthToken          string
	InsecureSkipVerify bool
}

// Verify checks the header signature against the canonical request.
// The payload must never be processed when this returns an error.
func (v SignatureVerifier) Verify(url string, fields map[string]string, header string) error {
	if v.AuthToken == "" {
		if v.InsecureSkipVerify {
			return nil
		}
		return ErrSignatureNotConfigured
	}
	if header == "" {
		return ErrInvalidSignature
	}

	expected := ComputeSignature(v.AuthToken, url, fields)
	if !hmac.Equal([]byte(header), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeSignature builds the provider's canonical string and signs it.
// Exposed so tests (and outbound tooling) can produce valid signatures.
func ComputeSignature(authToken, url string, fields map[string]string) string {
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(canonicalize(url, fields)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func canonicalize(url string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		// A missing value contributes the key alone.
		b.WriteString(k)
		b.WriteString(fields[k])
	}
	return b.String()
}

// ResolveRequestURL reconstructs the externally visible callback URL. The
// provider signed the URL it dialed, and TLS usually terminates upstream, so
// the scheme comes from X-Forwarded-Proto when present. A configured public
// base URL wins over header reconstruction.
func ResolveRequestURL(r *http.Request, publicBaseURL string) string {
	if publicBaseURL != "" {
		return publicBaseURL + r.URL.RequestURI()
	}

	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
