package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/infrastructure/notify"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/repo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome describes what a reconciliation attempt did to the order.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeNoop           Outcome = "noop"
	OutcomeAmountMismatch Outcome = "amount_mismatch"
)

// txRunner is the slice of the data gateway the services need.
type txRunner interface {
	Transact(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// LedgerService owns the order state machine. Webhook delivery, client
// polling, and the reconciliation worker all funnel through ApplyEvent:
// one status-gated transition, never parallel code paths.
type LedgerService interface {
	ApplyEvent(ctx context.Context, ev domain.ProviderEvent) (Outcome, error)
}

type ledgerService struct {
	db          txRunner
	orders      repo.OrderRepo
	enrollments repo.EnrollmentRepo
	carts       repo.CartRepo
	notifier    notify.Notifier
	metrics     *metrics.PipelineMetrics
	log         zerolog.Logger
}

func NewLedgerService(
	db txRunner,
	orders repo.OrderRepo,
	enrollments repo.EnrollmentRepo,
	carts repo.CartRepo,
	notifier notify.Notifier,
	m *metrics.PipelineMetrics,
	log zerolog.Logger,
) LedgerService {
	return &ledgerService{
		db:          db,
		orders:      orders,
		enrollments: enrollments,
		carts:       carts,
		notifier:    notifier,
		metrics:     m,
		log:         log.With().Str("component", "ledger").Logger(),
	}
}

func (s *ledgerService) ApplyEvent(ctx context.Context, ev domain.ProviderEvent) (Outcome, error) {
	var (
		outcome Outcome
		paidEv  *notify.OrderPaidEvent
	)

	err := s.db.Transact(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.LockBySessionID(ctx, tx, ev.SessionID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}

		d := decide(order, ev)
		outcome = d.outcome

		switch d.outcome {
		case OutcomeNoop:
			s.log.Debug().
				Str("order_id", order.ID.String()).
				Str("order_status", order.Status.String()).
				Str("event_status", string(ev.Status)).
				Msg("event is a no-op for current order state")
			return nil
		case OutcomeAmountMismatch:
			s.metrics.AmountMismatches.Inc()
			s.log.Warn().
				Str("order_id", order.ID.String()).
				Str("session_id", ev.SessionID).
				Int64("order_total_cents", order.TotalCents).
				Int64("event_amount_cents", ev.AmountCents).
				Msg("rejected completed event: amount does not match order total")
			return nil
		}

		now := time.Now()
		order.Status = d.to
		order.UpdatedAt = now
		if d.to == domain.OrderPaid {
			paidAt := ev.OccurredAt
			if paidAt.IsZero() {
				paidAt = now
			}
			order.PaidAt = &paidAt
		}

		if err := s.orders.UpdateStatus(ctx, tx, order); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if d.grant {
			granted, err := s.materializeEnrollments(ctx, tx, order, now)
			if err != nil {
				return err
			}
			if err := s.carts.Clear(ctx, tx, order.UserID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
			s.metrics.EnrollmentsGranted.Add(float64(granted))

			courseIDs := make([]uuid.UUID, 0, len(order.Items))
			for _, item := range order.Items {
				courseIDs = append(courseIDs, item.CourseID)
			}
			paidEv = &notify.OrderPaidEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				TotalCents: order.TotalCents,
				CourseIDs:  courseIDs,
				PaidAt:     *order.PaidAt,
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// Fires only when this call actually moved the order to paid, so
	// redelivered webhooks never repeat the notification.
	if paidEv != nil {
		if err := s.notifier.OrderPaid(ctx, *paidEv); err != nil {
			s.log.Error().Err(err).
				Str("order_id", paidEv.OrderID.String()).
				Msg("failed to dispatch order paid notification")
		}
	}
	return outcome, nil
}

// materializeEnrollments upserts one enrollment per order item inside the
// same transaction as the paid transition. Returns how many rows were
// created or reactivated.
func (s *ledgerService) materializeEnrollments(ctx context.Context, tx *sql.Tx, order *domain.Order, now time.Time) (int, error) {
	granted := 0
	for _, item := range order.Items {
		existing, err := s.enrollments.FindForUpdate(ctx, tx, order.UserID, item.CourseID)
		if err != nil {
			return 0, fmt.Errorf("failed to read enrollment: %w", err)
		}

		switch enrollActionFor(existing) {
		case enrollCreate:
			orderID := order.ID
			e := &domain.Enrollment{
				ID:            uuid.New(),
				UserID:        order.UserID,
				CourseID:      item.CourseID,
				Status:        domain.EnrollmentActive,
				StartedAt:     now,
				SourceOrderID: &orderID,
			}
			if err := s.enrollments.Insert(ctx, tx, e); err != nil {
				return 0, fmt.Errorf("failed to create enrollment: %w", err)
			}
			granted++
		case enrollReactivate:
			if err := s.enrollments.Reactivate(ctx, tx, existing.ID, order.ID); err != nil {
				return 0, fmt.Errorf("failed to reactivate enrollment: %w", err)
			}
			granted++
		case enrollSkip:
			// already active or completed, idempotent re-grant
		}
	}
	return granted, nil
}
