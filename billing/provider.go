// Package billing is a thin client for the external billing system the
// reconciler treats as the source of subscription truth. Sync is eventual:
// the kit pulls and reconciles; it never assumes real-time webhook delivery.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/subscription"
)

// Config for the billing API. Credentials use the OAuth2 client-credentials
// grant against the provider's token endpoint.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Provider fetches subscription records from the billing API.
type Provider struct {
	base string
	hc   *http.Client
}

// New builds a provider. ctx bounds the lifetime of the token source.
func New(ctx context.Context, cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	hc := cc.Client(ctx)
	hc.Timeout = timeout
	return &Provider{base: cfg.BaseURL, hc: hc}
}

// remoteSubscription is the provider's wire shape.
type remoteSubscription struct {
	ID               uuid.UUID  `json:"id"`
	UserID           uuid.UUID  `json:"user_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CanceledAt       *time.Time `json:"canceled_at"`
	GraceDays        int        `json:"grace_days"`
}

// FetchSubscriptions pulls one user's subscription records for a school.
// Failures are transient: callers retry with backoff and must never widen
// access because a fetch failed.
func (p *Provider) FetchSubscriptions(ctx context.Context, schoolID, userID uuid.UUID) ([]subscription.Subscription, error) {
	if p == nil || p.base == "" {
		return nil, nil
	}
	url := fmt.Sprintf("%s/schools/%s/users/%s/subscriptions", p.base, schoolID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, core.Transient("billing: fetch subscriptions", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, core.Transient("billing: fetch subscriptions", fmt.Errorf("status %d", resp.StatusCode))
	}
	var remote []remoteSubscription
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, core.Transient("billing: decode subscriptions", err)
	}
	out := make([]subscription.Subscription, 0, len(remote))
	for _, r := range remote {
		out = append(out, subscription.Subscription{
			ID:               r.ID,
			SchoolID:         schoolID,
			UserID:           r.UserID,
			CurrentPeriodEnd: r.CurrentPeriodEnd,
			CanceledAt:       r.CanceledAt,
			GraceDays:        r.GraceDays,
		})
	}
	return out, nil
}
