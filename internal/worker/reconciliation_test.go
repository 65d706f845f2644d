package worker

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"coursecheckout/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderRepoFake struct {
	stuckAwaiting []domain.Order
	stuckPending  []domain.Order

	cancelled []uuid.UUID
	findErr   error
}

func (f *orderRepoFake) Create(context.Context, *sql.Tx, *domain.Order) error { return nil }
func (f *orderRepoFake) FindByID(context.Context, uuid.UUID) (*domain.Order, error) {
	return nil, nil
}
func (f *orderRepoFake) FindBySessionID(context.Context, string) (*domain.Order, error) {
	return nil, nil
}
func (f *orderRepoFake) LockBySessionID(context.Context, *sql.Tx, string) (*domain.Order, error) {
	return nil, nil
}
func (f *orderRepoFake) AttachSession(context.Context, uuid.UUID, string) error { return nil }
func (f *orderRepoFake) MarkFailedPending(context.Context, uuid.UUID) error     { return nil }
func (f *orderRepoFake) UpdateStatus(context.Context, *sql.Tx, *domain.Order) error {
	return nil
}

func (f *orderRepoFake) CancelExpiredPending(_ context.Context, id uuid.UUID) (bool, error) {
	f.cancelled = append(f.cancelled, id)
	return true, nil
}

func (f *orderRepoFake) FindStuck(_ context.Context, status domain.OrderStatus, _ time.Duration, _ int) ([]domain.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	switch status {
	case domain.OrderAwaitingPayment:
		return f.stuckAwaiting, nil
	case domain.OrderPending:
		return f.stuckPending, nil
	}
	return nil, nil
}

type pollerFake struct {
	polled []uuid.UUID
	errFor map[uuid.UUID]error
}

func (p *pollerFake) PollStatus(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	p.polled = append(p.polled, orderID)
	if err := p.errFor[orderID]; err != nil {
		return nil, err
	}
	return &domain.Order{ID: orderID, Status: domain.OrderPaid}, nil
}

func newWorker(repo *orderRepoFake, poller *pollerFake) *ReconciliationWorker {
	return NewReconciliationWorker(repo, poller, time.Minute, 5*time.Minute, 30*time.Minute, zerolog.Nop())
}

func awaitingOrder() domain.Order {
	sid := "sim_stuck_1"
	return domain.Order{ID: uuid.New(), Status: domain.OrderAwaitingPayment, ProviderSessionID: &sid}
}

func TestProcess_PollsStuckAwaitingOrders(t *testing.T) {
	first := awaitingOrder()
	second := awaitingOrder()
	repo := &orderRepoFake{stuckAwaiting: []domain.Order{first, second}}
	poller := &pollerFake{}
	w := newWorker(repo, poller)

	require.NoError(t, w.process(context.Background()))

	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, poller.polled)
	assert.Empty(t, repo.cancelled)
}

func TestProcess_PollFailureSkipsToNextOrder(t *testing.T) {
	broken := awaitingOrder()
	healthy := awaitingOrder()
	repo := &orderRepoFake{stuckAwaiting: []domain.Order{broken, healthy}}
	poller := &pollerFake{errFor: map[uuid.UUID]error{broken.ID: errors.New("provider 503")}}
	w := newWorker(repo, poller)

	require.NoError(t, w.process(context.Background()), "one bad order must not abort the pass")

	assert.Equal(t, []uuid.UUID{broken.ID, healthy.ID}, poller.polled)
}

func TestProcess_ExpiresSessionlessPendingOrders(t *testing.T) {
	sessionless := domain.Order{ID: uuid.New(), Status: domain.OrderPending}
	sid := "sim_late_1"
	withSession := domain.Order{ID: uuid.New(), Status: domain.OrderPending, ProviderSessionID: &sid}
	repo := &orderRepoFake{stuckPending: []domain.Order{sessionless, withSession}}
	poller := &pollerFake{}
	w := newWorker(repo, poller)

	require.NoError(t, w.process(context.Background()))

	assert.Equal(t, []uuid.UUID{sessionless.ID}, repo.cancelled,
		"orders holding a provider session are left for the poll path")
}

func TestProcess_RepoFailurePropagates(t *testing.T) {
	repo := &orderRepoFake{findErr: errors.New("connection reset")}
	w := newWorker(repo, &pollerFake{})

	assert.Error(t, w.process(context.Background()))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &orderRepoFake{}
	w := NewReconciliationWorker(repo, &pollerFake{}, time.Millisecond, time.Minute, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
