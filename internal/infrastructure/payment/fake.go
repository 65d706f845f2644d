package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coursecheckout/internal/domain"
)

// FakeProvider is a deterministic in-memory provider for environments
// without payment credentials. Sessions start pending; tests and the
// simulator drive them to a terminal status explicitly.
type FakeProvider struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	seq      int

	// CreateErr, when set, makes every CreateSession call fail with it.
	CreateErr error
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{sessions: make(map[string]*Session)}
}

func (p *FakeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	id := fmt.Sprintf("sim_%s_%d", req.OrderID, p.seq)
	expires := time.Now().Add(30 * time.Minute)
	sess := &Session{
		ID:          id,
		URL:         fmt.Sprintf("https://pay.simulated.local/checkout/%s", id),
		Status:      domain.SessionPending,
		AmountCents: req.AmountCents,
		ExpiresAt:   &expires,
	}
	p.sessions[id] = sess
	return copySession(sess), nil
}

func (p *FakeProvider) FetchSessionStatus(ctx context.Context, sessionID string) (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sess, ok := p.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Complete marks the session paid. Calling it twice is a no-op.
func (p *FakeProvider) Complete(sessionID string) bool {
	return p.settle(sessionID, domain.SessionCompleted)
}

// Fail marks the session failed unless it already settled.
func (p *FakeProvider) Fail(sessionID string) bool {
	return p.settle(sessionID, domain.SessionFailed)
}

func (p *FakeProvider) settle(sessionID string, status domain.SessionStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[sessionID]
	if !ok {
		return false
	}
	switch sess.Status {
	case domain.SessionCompleted, domain.SessionFailed, domain.SessionCancelled:
		return sess.Status == status
	}
	sess.Status = status
	if status == domain.SessionCompleted {
		now := time.Now()
		sess.PaidAt = &now
	}
	return true
}

func copySession(s *Session) *Session {
	out := *s
	return &out
}
