package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coursecheckout/internal/domain"
)

// LiveProvider talks to the real card provider over HTTPS. Every call is
// bounded by the client timeout; a timed-out create is surfaced to the
// caller, who must not assume the provider-side session does not exist.
type LiveProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLiveProvider(baseURL, apiKey string, timeout time.Duration) *LiveProvider {
	return &LiveProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type sessionPayload struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Status      string     `json:"status"`
	AmountCents int64      `json:"amount_cents"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (p *LiveProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(map[string]any{
		"reference":    req.OrderID.String(),
		"amount_cents": req.AmountCents,
		"currency":     req.Currency,
		"success_url":  req.SuccessURL,
		"cancel_url":   req.CancelURL,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("provider create session: unexpected status %d", resp.StatusCode)
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("provider create session: decode: %w", err)
	}
	return payload.toSession()
}

func (p *LiveProvider) FetchSessionStatus(ctx context.Context, sessionID string) (*Session, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider fetch session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider fetch session: unexpected status %d", resp.StatusCode)
	}

	var payload sessionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("provider fetch session: decode: %w", err)
	}
	return payload.toSession()
}

func (p *sessionPayload) toSession() (*Session, error) {
	status := domain.SessionStatus(p.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("provider returned unknown session status %q", p.Status)
	}
	return &Session{
		ID:          p.ID,
		URL:         p.URL,
		Status:      status,
		AmountCents: p.AmountCents,
		PaidAt:      p.PaidAt,
		ExpiresAt:   p.ExpiresAt,
	}, nil
}
