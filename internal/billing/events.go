package billing

import (
	"encoding/json"
	"errors"
	"strings"
)

// Provider is the ledger/dedup namespace for billing events.
const Provider = "stripe"

// EventKind tags the normalized event union.
type EventKind string

const (
	KindSubscriptionCreated EventKind = "subscription_created"
	KindSubscriptionUpdated EventKind = "subscription_updated"
	KindSubscriptionDeleted EventKind = "subscription_deleted"
	KindUnhandled           EventKind = "unhandled"
)

var ErrMalformedEvent = errors.New("billing: malformed event payload")

// Event is a payment-provider webhook normalized to the fields the
// reconciler reads. The owning tenant is not known at this point; it is
// resolved downstream by matching CustomerRef against stored subscriptions.
//
// RawType carries the provider's own type string, kept for unhandled kinds
// and for logging. Extra keeps any object fields the normalizer did not lift,
// so new provider fields pass through without breaking parsing.
type Event struct {
	EventID string
	Kind    EventKind
	RawType string

	CustomerRef     string
	SubscriptionRef string
	PriceRef        string
	RawStatus       string

	Extra map[string]json.RawMessage
}

// wire shapes for the provider's envelope. Only the fields the normalizer
// lifts are declared; the rest lands in the object's raw map.
type wireEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type wireSubscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseEvent normalizes a raw webhook body. It must only be called after the
// signature verified. Unknown event types normalize to KindUnhandled with the
// provider type preserved; they are acknowledged upstream without mutation.
func ParseEvent(body []byte) (Event, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, ErrMalformedEvent
	}
	if env.ID == "" || env.Type == "" {
		return Event{}, ErrMalformedEvent
	}

	ev := Event{EventID: env.ID, RawType: env.Type}

	switch env.Type {
	case "customer.subscription.created":
		ev.Kind = KindSubscriptionCreated
	case "customer.subscription.updated":
		ev.Kind = KindSubscriptionUpdated
	case "customer.subscription.deleted":
		ev.Kind = KindSubscriptionDeleted
	default:
		ev.Kind = KindUnhandled
		return ev, nil
	}

	var sub wireSubscription
	if err := json.Unmarshal(env.Data.Object, &sub); err != nil {
		return Event{}, ErrMalformedEvent
	}
	if sub.Customer == "" {
		return Event{}, ErrMalformedEvent
	}

	ev.CustomerRef = sub.Customer
	ev.SubscriptionRef = sub.ID
	ev.RawStatus = strings.ToLower(strings.TrimSpace(sub.Status))
	if len(sub.Items.Data) > 0 {
		ev.PriceRef = sub.Items.Data[0].Price.ID
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(env.Data.Object, &extra); err == nil {
		for _, lifted := range []string{"id", "customer", "status", "items"} {
			delete(extra, lifted)
		}
		if len(extra) > 0 {
			ev.Extra = extra
		}
	}
	return ev, nil
}
