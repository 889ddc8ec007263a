package telephony

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

const testAuthToken = "12345678901234567890123456789012"

func TestVerifyAcceptsValidSignature(t *testing.T) {
	url := "https://desk.example.com/webhooks/telephony/voice?tenantId=tenant-1"
	fields := map[string]string{
		"CallSid":    "CA001",
		"From":       "+15550001111",
		"To":         "+15550002222",
		"CallStatus": "ringing",
	}
	sig := ComputeSignature(testAuthToken, url, fields)

	v := SignatureVerifier{AuthToken: testAuthToken}
	if err := v.Verify(url, fields, sig); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifyRejectsTamperedRequest(t *testing.T) {
	url := "https://desk.example.com/webhooks/telephony/voice"
	fields := map[string]string{
		"CallSid": "CA001",
		"From":    "+15550001111",
	}
	sig := ComputeSignature(testAuthToken, url, fields)
	v := SignatureVerifier{AuthToken: testAuthToken}

	cases := []struct {
		name   string
		url    string
		fields map[string]string
		header string
	}{
		{"changed field value", url, map[string]string{"CallSid": "CA001", "From": "+15550009999"}, sig},
		{"added field", url, map[string]string{"CallSid": "CA001", "From": "+15550001111", "X": "1"}, sig},
		{"removed field", url, map[string]string{"CallSid": "CA001"}, sig},
		{"changed url", url + "x", fields, sig},
		{"garbage header", url, fields, "bm90IGEgc2lnbmF0dXJl"},
		{"empty header", url, fields, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.url, tc.fields, tc.header)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("Verify() = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestVerifyRejectsWrongToken(t *testing.T) {
	url := "https://desk.example.com/webhooks/telephony/voice"
	fields := map[string]string{"CallSid": "CA001"}
	sig := ComputeSignature("other-token", url, fields)

	v := SignatureVerifier{AuthToken: testAuthToken}
	if err := v.Verify(url, fields, sig); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify() = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	url := "https://desk.example.com/webhooks/telephony/voice"
	fields := map[string]string{"CallSid": "CA001"}

	v := SignatureVerifier{}
	if err := v.Verify(url, fields, "anything"); !errors.Is(err, ErrSignatureNotConfigured) {
		t.Fatalf("Verify() = %v, want ErrSignatureNotConfigured", err)
	}

	v.InsecureSkipVerify = true
	if err := v.Verify(url, fields, ""); err != nil {
		t.Fatalf("Verify() with InsecureSkipVerify = %v, want nil", err)
	}
}

func TestCanonicalizeSortsFields(t *testing.T) {
	url := "https://desk.example.com/hook"
	a := ComputeSignature(testAuthToken, url, map[string]string{"B": "2", "A": "1"})
	b := ComputeSignature(testAuthToken, url, map[string]string{"A": "1", "B": "2"})
	if a != b {
		t.Fatal("signature must not depend on field insertion order")
	}

	want := canonicalize(url, map[string]string{"B": "2", "A": "1"})
	if want != url+"A1B2" {
		t.Fatalf("canonicalize() = %q, want %q", want, url+"A1B2")
	}
}

func TestResolveRequestURL(t *testing.T) {
	r := httptest.NewRequest("POST", "http://internal:8080/webhooks/telephony/voice?tenantId=t1", nil)

	if got := ResolveRequestURL(r, "https://desk.example.com"); got != "https://desk.example.com/webhooks/telephony/voice?tenantId=t1" {
		t.Fatalf("with base url: got %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if got := ResolveRequestURL(r, ""); !strings.HasPrefix(got, "https://internal:8080/") {
		t.Fatalf("with forwarded proto: got %q", got)
	}

	r.Header.Del("X-Forwarded-Proto")
	if got := ResolveRequestURL(r, ""); !strings.HasPrefix(got, "http://internal:8080/") {
		t.Fatalf("plain http: got %q", got)
	}
}
