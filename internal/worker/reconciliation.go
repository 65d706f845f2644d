package worker

import (
	"context"
	"time"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/repo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const batchSize = 50

type statusPoller interface {
	PollStatus(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

// ReconciliationWorker periodically resolves orders the webhook flow left
// behind: awaiting_payment orders whose webhook never arrived are polled
// against the provider, and pending orders that never got a provider
// session are expired.
type ReconciliationWorker struct {
	orders        repo.OrderRepo
	poller        statusPoller
	interval      time.Duration
	stuckAfter    time.Duration
	pendingExpiry time.Duration
	log           zerolog.Logger
}

func NewReconciliationWorker(
	orders repo.OrderRepo,
	poller statusPoller,
	interval, stuckAfter, pendingExpiry time.Duration,
	log zerolog.Logger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orders:        orders,
		poller:        poller,
		interval:      interval,
		stuckAfter:    stuckAfter,
		pendingExpiry: pendingExpiry,
		log:           log.With().Str("component", "reconciliation_worker").Logger(),
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.log.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}

func (w *ReconciliationWorker) process(ctx context.Context) error {
	// Orders with a provider session but no resolving webhook: ask the
	// provider for the truth and feed it through the normal ledger path.
	stuck, err := w.orders.FindStuck(ctx, domain.OrderAwaitingPayment, w.stuckAfter, batchSize)
	if err != nil {
		return err
	}
	for _, order := range stuck {
		fresh, err := w.poller.PollStatus(ctx, order.ID)
		if err != nil {
			w.log.Warn().Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to poll stuck order, will retry next pass")
			continue
		}
		if fresh.Status != order.Status {
			w.log.Info().
				Str("order_id", order.ID.String()).
				Str("from", order.Status.String()).
				Str("to", fresh.Status.String()).
				Msg("stuck order resolved by poll")
		}
	}

	// Orders that never got a provider session: nothing external can still
	// settle them, so expire.
	expired, err := w.orders.FindStuck(ctx, domain.OrderPending, w.pendingExpiry, batchSize)
	if err != nil {
		return err
	}
	for _, order := range expired {
		if order.ProviderSessionID != nil {
			continue
		}
		cancelled, err := w.orders.CancelExpiredPending(ctx, order.ID)
		if err != nil {
			w.log.Warn().Err(err).
				Str("order_id", order.ID.String()).
				Msg("failed to expire pending order")
			continue
		}
		if cancelled {
			w.log.Info().
				Str("order_id", order.ID.String()).
				Msg("expired pending order cancelled")
		}
	}
	return nil
}
