package ledger

import (
	"context"
	"testing"
)

func TestReservationFailureOpen(t *testing.T) {
	// Without a Redis client every claim passes through to the ledger.
	var r *Reservation
	if !r.Claim(context.Background(), "twilio", "CA001") {
		t.Fatal("nil reservation must be failure-open")
	}
	r.Release(context.Background(), "twilio", "CA001")

	r = NewReservation(nil, 0)
	if !r.Claim(context.Background(), "stripe", "evt_1") {
		t.Fatal("clientless reservation must be failure-open")
	}
}

func TestReservationKeyNamespacesProviders(t *testing.T) {
	a := reservationKey("twilio", "id-1")
	b := reservationKey("stripe", "id-1")
	if a == b {
		t.Fatal("same event id from different providers must not collide")
	}
}
