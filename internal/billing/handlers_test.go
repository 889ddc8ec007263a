package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/ledger"
	"frontdesk-platform/internal/tenant"

	"github.com/gin-gonic/gin"
)

type handlerFixture struct {
	router *gin.Engine
	subs   *tenant.MemorySubscriptionStore
	ledger *ledger.MemoryRepo
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	subs := tenant.NewMemorySubscriptionStore()
	repo := ledger.NewMemoryRepo()
	svc := ledger.NewService(repo)
	prices := testPriceTable()
	client := stubbedClient(prices)

	h := Handlers{
		Verifier:   SignatureVerifier{Secret: testWebhookSecret},
		Reconciler: NewReconciler(MemoryRunner(Stores{Subs: subs, Ledger: svc}), prices),
		Client:     client,
		Portal:     &PortalService{Client: client, Subs: subs, Ledger: svc},
	}

	r := gin.New()
	r.POST("/webhooks/billing", h.HandleWebhook)
	// Authenticated routes get their identity injected by middleware in
	// production; tests set it on the request context directly.
	r.POST("/v1/billing/checkout", h.HandleCheckout)
	r.POST("/v1/billing/portal", h.HandlePortal)

	return &handlerFixture{router: r, subs: subs, ledger: repo}
}

func (f *handlerFixture) seedLinked(t *testing.T, tenantID, customerRef string) {
	t.Helper()
	err := f.subs.Create(context.Background(), tenant.Subscription{
		ID: "sub-" + tenantID, TenantID: tenantID, Tier: tenant.TierStarter,
		Status: tenant.StatusActive, ProviderCustomerRef: customerRef,
	})
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func signedWebhook(body []byte) *http.Request {
	r := httptest.NewRequest("POST", "/webhooks/billing", strings.NewReader(string(body)))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set(SignatureHeader, SignPayload(testWebhookSecret, time.Now().Unix(), body))
	return r
}

func TestHandleWebhookAppliesAndDeduplicates(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedLinked(t, "tenant-1", "cus_300")

	body := subscriptionPayload("customer.subscription.updated")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedWebhook(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp["received"] != true {
		t.Fatalf("body = %v", resp)
	}
	if _, dup := resp["duplicate"]; dup {
		t.Fatal("first delivery must not be flagged duplicate")
	}

	sub, _ := f.subs.FindByTenant(context.Background(), "tenant-1")
	if sub.Tier != tenant.TierProfessional {
		t.Fatalf("tier = %q, want PROFESSIONAL", sub.Tier)
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, signedWebhook(body))
	if w.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp["duplicate"] != true {
		t.Fatalf("redelivery body = %v, want duplicate flag", resp)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedLinked(t, "tenant-1", "cus_300")

	body := subscriptionPayload("customer.subscription.updated")
	req := signedWebhook(body)
	req.Header.Set(SignatureHeader, "t=1,v1=deadbeef")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(f.ledger.Entries()) != 0 {
		t.Fatal("rejected payload must not be processed")
	}

	sub, _ := f.subs.FindByTenant(context.Background(), "tenant-1")
	if sub.Tier != tenant.TierStarter {
		t.Fatal("rejected payload must not mutate state")
	}
}

func TestHandleWebhookUnconfiguredSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := Handlers{Verifier: SignatureVerifier{}}
	r := gin.New()
	r.POST("/webhooks/billing", h.HandleWebhook)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, signedWebhook([]byte(`{}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Fatalf("body = %s, want configuration error", w.Body.String())
	}
}

func TestHandleWebhookMalformedEvent(t *testing.T) {
	f := newHandlerFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedWebhook([]byte(`{"type":"customer.subscription.updated"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleWebhookUnhandledTypeAcked(t *testing.T) {
	f := newHandlerFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedWebhook([]byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(f.ledger.Entries()) != 0 {
		t.Fatal("unhandled types must not write ledger entries")
	}
}

func authedJSON(target, tenantID, payload string) *http.Request {
	r := httptest.NewRequest("POST", target, strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		r = r.WithContext(auth.WithIdentity(r.Context(), "user-1", tenantID, "admin"))
	}
	return r
}

func TestHandleCheckout(t *testing.T) {
	f := newHandlerFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/checkout", "tenant-1",
		`{"tier":"professional","successUrl":"https://s","cancelUrl":"https://c"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "checkout.example.com") {
		t.Fatalf("body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/checkout", "tenant-1",
		`{"tier":"GOLD","successUrl":"https://s","cancelUrl":"https://c"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid tier: status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/checkout", "",
		`{"tier":"STARTER","successUrl":"https://s","cancelUrl":"https://c"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: status = %d, want 401", w.Code)
	}
}

func TestHandlePortal(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedLinked(t, "tenant-1", "cus_1")
	f.seedLinked(t, "tenant-2", "cus_2")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/portal", "tenant-1",
		`{"customerId":"cus_1","returnUrl":"https://r"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "portal.example.com") {
		t.Fatalf("body = %s", w.Body.String())
	}

	// Another tenant's valid customer ref is still denied.
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/portal", "tenant-1",
		`{"customerId":"cus_2","returnUrl":"https://r"}`))
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant ref: status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, authedJSON("/v1/billing/portal", "tenant-1", `{"customerId":"","returnUrl":""}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty fields: status = %d, want 400", w.Code)
	}
}
