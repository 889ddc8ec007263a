package telephony

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"frontdesk-platform/internal/calls"
)

func postForm(values url.Values) CallbackForm {
	r := httptest.NewRequest("POST", "/webhooks/telephony/voice", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f, err := ParseCallbackForm(r)
	if err != nil {
		panic(err)
	}
	return f
}

func TestParseCallbackFormKeepsAllFields(t *testing.T) {
	f := postForm(url.Values{
		"CallSid":     {"CA001"},
		"From":        {"+15550001111"},
		"To":          {"+15550002222"},
		"CallStatus":  {"in-progress"},
		"ForwardedTo": {"+15550003333"},
	})

	if f.CallSid != "CA001" || f.From != "+15550001111" || f.CallStatus != "in-progress" {
		t.Fatalf("well-known fields not lifted: %+v", f)
	}
	if f.Fields["ForwardedTo"] != "+15550003333" {
		t.Fatal("unrecognized fields must be kept verbatim")
	}
}

func TestDurationSeconds(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"125", 125},
		{" 61 ", 61},
		{"abc", 0},
		{"-5", 0},
	}
	for _, tc := range cases {
		f := CallbackForm{CallDuration: tc.raw}
		if got := f.DurationSeconds(); got != tc.want {
			t.Errorf("DurationSeconds(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestInitiatedNormalization(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	f := postForm(url.Values{"CallSid": {"CA001"}})
	ev, err := f.Initiated("tenant-1", now)
	if err != nil {
		t.Fatalf("Initiated() error: %v", err)
	}
	if ev.From != "unknown" || ev.To != "unknown" {
		t.Fatalf("missing numbers must default to unknown, got %q/%q", ev.From, ev.To)
	}
	if ev.Status != calls.CallStatusQueued {
		t.Fatalf("missing status must default to queued, got %q", ev.Status)
	}
	if ev.EventID() != "CA001" {
		t.Fatalf("EventID() = %q, want CallSid", ev.EventID())
	}

	if _, err := (CallbackForm{}).Initiated("tenant-1", now); !errors.Is(err, ErrCallRefMissing) {
		t.Fatalf("want ErrCallRefMissing, got %v", err)
	}
}

func TestStatusUpdateNormalization(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	f := postForm(url.Values{
		"CallSid":      {"CA001"},
		"CallStatus":   {" Completed "},
		"CallDuration": {"125"},
	})
	ev, err := f.StatusUpdate("tenant-1", now)
	if err != nil {
		t.Fatalf("StatusUpdate() error: %v", err)
	}
	if ev.Status != calls.CallStatusCompleted {
		t.Fatalf("status not normalized: %q", ev.Status)
	}
	if ev.DurationSeconds != 125 {
		t.Fatalf("duration = %d, want 125", ev.DurationSeconds)
	}
	if ev.EventID() != "CA001:completed" {
		t.Fatalf("EventID() = %q, want call ref scoped to status", ev.EventID())
	}

	if _, err := (CallbackForm{CallSid: "CA001"}).StatusUpdate("tenant-1", now); err == nil {
		t.Fatal("missing CallStatus must be rejected")
	}
}

func TestStatusEventIDsDistinguishTransitions(t *testing.T) {
	a := CallStatusUpdated{ProviderCallRef: "CA001", Status: calls.CallStatusRinging}
	b := CallStatusUpdated{ProviderCallRef: "CA001", Status: calls.CallStatusCompleted}
	if a.EventID() == b.EventID() {
		t.Fatal("different lifecycle transitions must have distinct event ids")
	}
}
