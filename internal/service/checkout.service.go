package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/infrastructure/payment"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/repo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const checkoutCurrency = "USD"

// CheckoutSession is what the UI needs to redirect the student to the
// provider's hosted payment page.
type CheckoutSession struct {
	OrderID    uuid.UUID
	SessionID  string
	SessionURL string
}

// CheckoutService is the payment session manager: it freezes the cart,
// creates the pending order, opens the provider session, and exposes the
// poll-side entry points into reconciliation.
type CheckoutService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*CheckoutSession, error)
	// PollStatus reconciles one order against the provider and returns its
	// refreshed state. Used by the worker.
	PollStatus(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	// ReconcileSession does the same keyed by provider session id. Used by
	// the post-redirect status endpoint and the force-reconcile escape hatch.
	ReconcileSession(ctx context.Context, sessionID string) (*domain.Order, error)
}

type checkoutService struct {
	db          txRunner
	carts       CartService
	orders      repo.OrderRepo
	provider    payment.Provider
	ledger      LedgerService
	metrics     *metrics.PipelineMetrics
	callTimeout time.Duration
	log         zerolog.Logger
}

func NewCheckoutService(
	db txRunner,
	carts CartService,
	orders repo.OrderRepo,
	provider payment.Provider,
	ledger LedgerService,
	m *metrics.PipelineMetrics,
	callTimeout time.Duration,
	log zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		db:          db,
		carts:       carts,
		orders:      orders,
		provider:    provider,
		ledger:      ledger,
		metrics:     m,
		callTimeout: callTimeout,
		log:         log.With().Str("component", "checkout").Logger(),
	}
}

func (s *checkoutService) CreateSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*CheckoutSession, error) {
	snapshot, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:         uuid.New(),
		UserID:     userID,
		TotalCents: snapshot.TotalCents,
		Status:     domain.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range snapshot.Items {
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:    order.ID,
			CourseID:   item.CourseID,
			PriceCents: item.SubtotalCents,
		})
	}

	err = s.db.Transact(ctx, func(tx *sql.Tx) error {
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// The provider call is an external, non-transactional side effect and
	// deliberately runs outside any database transaction.
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	sess, err := s.provider.CreateSession(pctx, payment.SessionRequest{
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    checkoutCurrency,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	})
	cancel()
	s.metrics.ProviderLatency.WithLabelValues("create_session").
		Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		if isProviderTimeout(err) {
			// The provider-side session may still have been created, so the
			// order stays pending; the reconciliation worker expires it or a
			// webhook resolves it.
			s.metrics.CheckoutSessions.WithLabelValues("provider_timeout").Inc()
			s.log.Warn().Err(err).
				Str("order_id", order.ID.String()).
				Msg("provider session creation timed out, leaving order pending")
			return nil, fmt.Errorf("%w: %v", domain.ErrPaymentInitiation, err)
		}

		s.metrics.CheckoutSessions.WithLabelValues("provider_error").Inc()
		s.log.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("provider rejected session creation, failing order")
		if mErr := s.orders.MarkFailedPending(ctx, order.ID); mErr != nil {
			s.log.Error().Err(mErr).
				Str("order_id", order.ID.String()).
				Msg("failed to mark order failed after provider rejection")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentInitiation, err)
	}

	// Single statement, retried by the gateway. The UNIQUE constraint on
	// provider_session_id guards against a session being linked twice.
	if err := s.orders.AttachSession(ctx, order.ID, sess.ID); err != nil {
		s.metrics.CheckoutSessions.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to attach provider session: %w", err)
	}

	s.metrics.CheckoutSessions.WithLabelValues("created").Inc()
	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("session_id", sess.ID).
		Int64("total_cents", order.TotalCents).
		Msg("checkout session created")

	return &CheckoutSession{OrderID: order.ID, SessionID: sess.ID, SessionURL: sess.URL}, nil
}

func (s *checkoutService) PollStatus(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.ProviderSessionID == nil || order.Status.IsTerminal() {
		return order, nil
	}
	return s.ReconcileSession(ctx, *order.ProviderSessionID)
}

func (s *checkoutService) ReconcileSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	sess, err := s.provider.FetchSessionStatus(pctx, sessionID)
	cancel()
	s.metrics.ProviderLatency.WithLabelValues("fetch_session").
		Observe(float64(time.Since(start).Milliseconds()))

	if errors.Is(err, payment.ErrSessionNotFound) {
		// Provider no longer knows the session; report local state as-is.
		return s.findBySession(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider session: %w", err)
	}

	ev := domain.ProviderEvent{
		SessionID:   sessionID,
		Status:      sess.Status,
		AmountCents: sess.AmountCents,
	}
	if sess.PaidAt != nil {
		ev.OccurredAt = *sess.PaidAt
	}
	if _, err := s.ledger.ApplyEvent(ctx, ev); err != nil {
		return nil, err
	}
	return s.findBySession(ctx, sessionID)
}

func (s *checkoutService) findBySession(ctx context.Context, sessionID string) (*domain.Order, error) {
	order, err := s.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func isProviderTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
