package domain

import "time"

// SessionStatus is the payment provider's view of a checkout session. It is
// never persisted on its own; the order row carries the denormalized outcome.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionRefunded   SessionStatus = "refunded"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionProcessing, SessionCompleted, SessionFailed, SessionCancelled, SessionRefunded:
		return true
	}
	return false
}

// ProviderEvent is one payment-status fact about a session, regardless of
// whether it arrived by webhook or by polling. Both entry points build this
// and feed it through the same ledger transition.
type ProviderEvent struct {
	EventID     string
	SessionID   string
	Status      SessionStatus
	AmountCents int64
	OccurredAt  time.Time
}
