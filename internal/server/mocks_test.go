package server

import (
	"context"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type checkoutMock struct {
	session *service.CheckoutSession
	order   *domain.Order
	err     error

	reconciledWith string
}

func (m *checkoutMock) CreateSession(_ context.Context, _ uuid.UUID, _, _ string) (*service.CheckoutSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

func (m *checkoutMock) PollStatus(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *checkoutMock) ReconcileSession(_ context.Context, sessionID string) (*domain.Order, error) {
	m.reconciledWith = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type ledgerMock struct {
	outcome service.Outcome
	err     error

	applied []domain.ProviderEvent
}

func (m *ledgerMock) ApplyEvent(_ context.Context, ev domain.ProviderEvent) (service.Outcome, error) {
	m.applied = append(m.applied, ev)
	if m.err != nil {
		return "", m.err
	}
	return m.outcome, nil
}

func newTestServer(checkout *checkoutMock, ledger *ledgerMock) *Server {
	return New(Options{
		Checkout:      checkout,
		Ledger:        ledger,
		WebhookSecret: "whsec_test",
		Metrics:       metrics.NewPipelineMetrics(prometheus.NewRegistry()),
		Log:           zerolog.Nop(),
	})
}
