package dashboard

import (
	"context"
	"errors"
	"time"

	"frontdesk-platform/internal/auth"
	"frontdesk-platform/internal/calls"
	"frontdesk-platform/internal/notify"
	"frontdesk-platform/internal/tenant"
)

var ErrInvalidRequest = errors.New("dashboard: invalid request")

const (
	recentLimit = 5

	// activeWindow bounds how far back a call still counts as active on the
	// status endpoint.
	activeWindow = 5 * time.Minute
)

// Service aggregates tenant state for the operator dashboard.
//
// Tenant isolation: the acting tenant always comes from the authenticated
// session in ctx, never from request data.
type Service struct {
	Calls     calls.Store
	Subs      tenant.SubscriptionStore
	FollowUps notify.Store

	Now func() time.Time
}

// SubscriptionSnapshot is the billing view shown on the dashboard. The
// provider customer reference itself is not exposed, only whether checkout
// has linked one.
type SubscriptionSnapshot struct {
	Tier           tenant.Tier               `json:"tier"`
	Status         tenant.SubscriptionStatus `json:"status"`
	MeteredMinutes int64                     `json:"metered_minutes"`
	CustomerLinked bool                      `json:"customer_linked"`
}

type CallsSummary struct {
	Total                int `json:"total"`
	Completed            int `json:"completed"`
	Missed               int `json:"missed"`
	InProgress           int `json:"in_progress"`
	TotalDurationSeconds int `json:"total_duration_seconds"`
}

type Overview struct {
	Calls        []calls.Call             `json:"calls"`
	FollowUps    []notify.FollowUpMessage `json:"follow_ups"`
	Subscription *SubscriptionSnapshot    `json:"subscription"`
	Summary      CallsSummary             `json:"summary"`
}

type Status struct {
	ActiveCalls int       `json:"active_calls"`
	LastUpdate  time.Time `json:"last_update"`
}

// Overview returns the recent activity and billing snapshot for the acting
// tenant. A tenant without a subscription row gets a nil snapshot rather than
// an error; provisioning may still be in flight.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	tenantID, err := auth.TenantID(ctx)
	if err != nil || tenantID == "" {
		return Overview{}, ErrInvalidRequest
	}

	recent, err := s.Calls.ListRecent(ctx, tenantID, recentLimit)
	if err != nil {
		return Overview{}, err
	}
	followUps, err := s.FollowUps.ListByTenant(ctx, tenantID, recentLimit)
	if err != nil {
		return Overview{}, err
	}

	out := Overview{Calls: recent, FollowUps: followUps, Summary: summarize(recent)}

	sub, err := s.Subs.FindByTenant(ctx, tenantID)
	switch {
	case err == nil:
		out.Subscription = &SubscriptionSnapshot{
			Tier:           sub.Tier,
			Status:         sub.Status,
			MeteredMinutes: sub.MeteredMinutes,
			CustomerLinked: sub.ProviderCustomerRef != "",
		}
	case errors.Is(err, tenant.ErrNotFound):
		// provisioning race; leave the snapshot empty
	default:
		return Overview{}, err
	}
	return out, nil
}

// Status reports liveness counters for the acting tenant.
func (s *Service) Status(ctx context.Context) (Status, error) {
	tenantID, err := auth.TenantID(ctx)
	if err != nil || tenantID == "" {
		return Status{}, ErrInvalidRequest
	}

	now := s.now()
	recent, err := s.Calls.ListRecent(ctx, tenantID, 50)
	if err != nil {
		return Status{}, err
	}

	out := Status{LastUpdate: now}
	cutoff := now.Add(-activeWindow)
	for _, c := range recent {
		if c.CreatedAt.After(cutoff) && !terminal(c.Status) {
			out.ActiveCalls++
		}
	}
	return out, nil
}

func summarize(rows []calls.Call) CallsSummary {
	var out CallsSummary
	for _, c := range rows {
		out.Total++
		out.TotalDurationSeconds += c.DurationSeconds
		switch {
		case c.Status == calls.CallStatusCompleted:
			out.Completed++
		case c.Status.Missed():
			out.Missed++
		case c.Status == calls.CallStatusInProgress:
			out.InProgress++
		}
	}
	return out
}

func terminal(st calls.CallStatus) bool {
	return st == calls.CallStatusCompleted || st.Missed() || st == calls.CallStatusCanceled
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
