package service

import "coursecheckout/internal/domain"

type decision struct {
	to      domain.OrderStatus
	grant   bool
	outcome Outcome
}

// decide maps a provider event onto the order state machine. Pure function:
// terminal orders never move, a completed event must match the frozen total
// exactly, and event arrival order never changes the final state.
func decide(order *domain.Order, ev domain.ProviderEvent) decision {
	if order.Status.IsTerminal() {
		return decision{outcome: OutcomeNoop}
	}

	switch ev.Status {
	case domain.SessionCompleted:
		if ev.AmountCents != order.TotalCents {
			return decision{outcome: OutcomeAmountMismatch}
		}
		return decision{to: domain.OrderPaid, grant: true, outcome: OutcomeApplied}
	case domain.SessionFailed:
		return decision{to: domain.OrderFailed, outcome: OutcomeApplied}
	case domain.SessionCancelled:
		return decision{to: domain.OrderCancelled, outcome: OutcomeApplied}
	default:
		// pending and processing carry no transition; a refund event for a
		// never-paid order has no local meaning either.
		return decision{outcome: OutcomeNoop}
	}
}

type enrollAction int

const (
	enrollCreate enrollAction = iota
	enrollReactivate
	enrollSkip
)

// enrollActionFor decides the idempotent upsert for one (user, course)
// pair: create when absent, reactivate when cancelled or suspended
// (progress preserved), otherwise leave untouched.
func enrollActionFor(existing *domain.Enrollment) enrollAction {
	if existing == nil {
		return enrollCreate
	}
	switch existing.Status {
	case domain.EnrollmentCancelled, domain.EnrollmentSuspended:
		return enrollReactivate
	default:
		return enrollSkip
	}
}
