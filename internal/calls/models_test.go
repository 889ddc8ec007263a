package calls

import (
	"context"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	if NormalizeStatus(" No-Answer ") != CallStatusNoAnswer {
		t.Fatalf("expected no-answer")
	}
	if NormalizeStatus("COMPLETED") != CallStatusCompleted {
		t.Fatalf("expected completed")
	}
	// unknown values pass through lowercased
	if NormalizeStatus("Whatever") != CallStatus("whatever") {
		t.Fatalf("expected passthrough")
	}
}

func TestStatusClassification(t *testing.T) {
	for _, s := range []CallStatus{CallStatusNoAnswer, CallStatusBusy, CallStatusFailed} {
		if !s.Missed() {
			t.Fatalf("expected %s to be missed", s)
		}
		if s.Billable() {
			t.Fatalf("did not expect %s to be billable", s)
		}
	}
	if CallStatusCompleted.Missed() {
		t.Fatalf("completed is not missed")
	}
	if !CallStatusCompleted.Billable() || !CallStatusInProgress.Billable() {
		t.Fatalf("expected completed and in-progress to be billable")
	}
}

func TestMemoryStore_CreateIfAbsentIsIdempotent(t *testing.T) {
	st := NewMemoryStore()
	c := Call{ID: "c1", TenantID: "t1", ProviderCallRef: "CA1", Status: CallStatusQueued}

	created, err := st.CreateIfAbsent(context.Background(), c)
	if err != nil || !created {
		t.Fatalf("expected create, got created=%v err=%v", created, err)
	}
	c.ID = "c2"
	created, err = st.CreateIfAbsent(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if created {
		t.Fatalf("expected second create to be a no-op")
	}
}

func TestMemoryStore_ApplyStatusMergesMetadata(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.CreateIfAbsent(context.Background(), Call{
		ID: "c1", TenantID: "t1", ProviderCallRef: "CA1",
		Status:      CallStatusQueued,
		RawMetadata: map[string]string{"From": "+15550001", "Direction": "inbound"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := st.ApplyStatus(context.Background(), "t1", "CA1", CallStatusCompleted, 125, map[string]string{
		"CallStatus": "completed",
		"From":       "+15550002",
	})
	if err != nil || !ok {
		t.Fatalf("apply: ok=%v err=%v", ok, err)
	}

	c, err := st.FindByProviderRef(context.Background(), "t1", "CA1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.Status != CallStatusCompleted || c.DurationSeconds != 125 {
		t.Fatalf("unexpected call: %+v", c)
	}
	// merged, not replaced
	if c.RawMetadata["Direction"] != "inbound" || c.RawMetadata["From"] != "+15550002" {
		t.Fatalf("expected merged metadata, got %v", c.RawMetadata)
	}
}

func TestMemoryStore_ApplyStatusUnknownCallIsNoop(t *testing.T) {
	st := NewMemoryStore()
	ok, err := st.ApplyStatus(context.Background(), "t1", "CA-missing", CallStatusCompleted, 10, nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected no-op for unknown call")
	}
}
