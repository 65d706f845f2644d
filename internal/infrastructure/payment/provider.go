package payment

import (
	"context"
	"errors"
	"time"

	"coursecheckout/internal/domain"

	"github.com/google/uuid"
)

// ErrSessionNotFound means the provider has no session with the given id.
var ErrSessionNotFound = errors.New("provider session not found")

type SessionRequest struct {
	OrderID     uuid.UUID
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Session is the provider's view of one checkout session.
type Session struct {
	ID          string
	URL         string
	Status      domain.SessionStatus
	AmountCents int64
	PaidAt      *time.Time
	ExpiresAt   *time.Time
}

// Provider is the single pluggable payment integration. One implementation
// is selected at startup from configuration and never mixed per request.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	FetchSessionStatus(ctx context.Context, sessionID string) (*Session, error)
}
