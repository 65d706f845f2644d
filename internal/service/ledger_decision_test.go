package service

import (
	"testing"

	"coursecheckout/internal/domain"

	"github.com/stretchr/testify/assert"
)

func orderIn(status domain.OrderStatus, totalCents int64) *domain.Order {
	return &domain.Order{Status: status, TotalCents: totalCents}
}

func TestDecide_CompletedWithMatchingAmountPays(t *testing.T) {
	d := decide(orderIn(domain.OrderAwaitingPayment, 5000),
		domain.ProviderEvent{Status: domain.SessionCompleted, AmountCents: 5000})

	assert.Equal(t, OutcomeApplied, d.outcome)
	assert.Equal(t, domain.OrderPaid, d.to)
	assert.True(t, d.grant)
}

func TestDecide_AmountMismatchNeverPays(t *testing.T) {
	d := decide(orderIn(domain.OrderAwaitingPayment, 5000),
		domain.ProviderEvent{Status: domain.SessionCompleted, AmountCents: 4000})

	assert.Equal(t, OutcomeAmountMismatch, d.outcome)
	assert.False(t, d.grant)
}

func TestDecide_TerminalStatesNeverMove(t *testing.T) {
	events := []domain.ProviderEvent{
		{Status: domain.SessionCompleted, AmountCents: 5000},
		{Status: domain.SessionFailed},
		{Status: domain.SessionCancelled},
		{Status: domain.SessionProcessing},
	}
	for _, terminal := range []domain.OrderStatus{domain.OrderPaid, domain.OrderFailed, domain.OrderCancelled} {
		for _, ev := range events {
			d := decide(orderIn(terminal, 5000), ev)
			assert.Equal(t, OutcomeNoop, d.outcome,
				"order %s must ignore event %s", terminal, ev.Status)
			assert.False(t, d.grant)
		}
	}
}

func TestDecide_FailedEventFailsOrder(t *testing.T) {
	d := decide(orderIn(domain.OrderAwaitingPayment, 5000),
		domain.ProviderEvent{Status: domain.SessionFailed})

	assert.Equal(t, OutcomeApplied, d.outcome)
	assert.Equal(t, domain.OrderFailed, d.to)
	assert.False(t, d.grant)
}

func TestDecide_CancelledEventCancelsOrder(t *testing.T) {
	d := decide(orderIn(domain.OrderAwaitingPayment, 5000),
		domain.ProviderEvent{Status: domain.SessionCancelled})

	assert.Equal(t, OutcomeApplied, d.outcome)
	assert.Equal(t, domain.OrderCancelled, d.to)
}

func TestDecide_InterimStatusesAreNoops(t *testing.T) {
	for _, status := range []domain.SessionStatus{domain.SessionPending, domain.SessionProcessing, domain.SessionRefunded} {
		d := decide(orderIn(domain.OrderAwaitingPayment, 5000), domain.ProviderEvent{Status: status})
		assert.Equal(t, OutcomeNoop, d.outcome, "status %s", status)
	}
}

func TestDecide_ArrivalOrderDoesNotChangeFinalState(t *testing.T) {
	// failed-then-completed: the first terminal event wins.
	order := orderIn(domain.OrderAwaitingPayment, 5000)
	d := decide(order, domain.ProviderEvent{Status: domain.SessionFailed})
	order.Status = d.to
	d = decide(order, domain.ProviderEvent{Status: domain.SessionCompleted, AmountCents: 5000})
	assert.Equal(t, OutcomeNoop, d.outcome)
	assert.Equal(t, domain.OrderFailed, order.Status)
}

func TestEnrollActionFor(t *testing.T) {
	tests := []struct {
		name     string
		existing *domain.Enrollment
		want     enrollAction
	}{
		{"no enrollment", nil, enrollCreate},
		{"cancelled", &domain.Enrollment{Status: domain.EnrollmentCancelled}, enrollReactivate},
		{"suspended", &domain.Enrollment{Status: domain.EnrollmentSuspended}, enrollReactivate},
		{"active", &domain.Enrollment{Status: domain.EnrollmentActive}, enrollSkip},
		{"completed", &domain.Enrollment{Status: domain.EnrollmentCompleted}, enrollSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, enrollActionFor(tt.existing))
		})
	}
}
