package service

import (
	"context"
	"database/sql"
	"time"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/infrastructure/notify"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the order, enrollment, and cart
// repositories plus the transactional gateway. Transact snapshots state and
// restores it when fn fails, mimicking a rollback.
type memStore struct {
	orders      []*domain.Order
	enrollments []*domain.Enrollment
	cart        map[uuid.UUID][]domain.CartLine

	createOrderErr  error
	insertEnrollErr error
	updateStatusErr error
}

func newMemStore() *memStore {
	return &memStore{cart: make(map[uuid.UUID][]domain.CartLine)}
}

func copyOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	return &out
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	for _, o := range s.orders {
		c.orders = append(c.orders, copyOrder(o))
	}
	for _, e := range s.enrollments {
		ec := *e
		c.enrollments = append(c.enrollments, &ec)
	}
	for k, v := range s.cart {
		c.cart[k] = append([]domain.CartLine(nil), v...)
	}
	return c
}

func (s *memStore) restore(c *memStore) {
	s.orders = c.orders
	s.enrollments = c.enrollments
	s.cart = c.cart
}

// --- txRunner ---

func (s *memStore) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	saved := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(saved)
		return err
	}
	return nil
}

// --- repo.OrderRepo ---

func (s *memStore) Create(_ context.Context, _ *sql.Tx, order *domain.Order) error {
	if s.createOrderErr != nil {
		return s.createOrderErr
	}
	s.orders = append(s.orders, copyOrder(order))
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memStore) FindBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	for _, o := range s.orders {
		if o.ProviderSessionID != nil && *o.ProviderSessionID == sessionID {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memStore) LockBySessionID(ctx context.Context, _ *sql.Tx, sessionID string) (*domain.Order, error) {
	return s.FindBySessionID(ctx, sessionID)
}

func (s *memStore) AttachSession(_ context.Context, orderID uuid.UUID, sessionID string) error {
	for _, o := range s.orders {
		if o.ID == orderID && o.Status == domain.OrderPending {
			sid := sessionID
			o.ProviderSessionID = &sid
			o.Status = domain.OrderAwaitingPayment
		}
	}
	return nil
}

func (s *memStore) MarkFailedPending(_ context.Context, orderID uuid.UUID) error {
	for _, o := range s.orders {
		if o.ID == orderID && o.Status == domain.OrderPending {
			o.Status = domain.OrderFailed
		}
	}
	return nil
}

func (s *memStore) CancelExpiredPending(_ context.Context, orderID uuid.UUID) (bool, error) {
	for _, o := range s.orders {
		if o.ID == orderID && o.Status == domain.OrderPending && o.ProviderSessionID == nil {
			o.Status = domain.OrderCancelled
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) UpdateStatus(_ context.Context, _ *sql.Tx, order *domain.Order) error {
	if s.updateStatusErr != nil {
		return s.updateStatusErr
	}
	for _, o := range s.orders {
		if o.ID == order.ID {
			o.Status = order.Status
			o.PaidAt = order.PaidAt
			o.UpdatedAt = order.UpdatedAt
		}
	}
	return nil
}

func (s *memStore) FindStuck(_ context.Context, status domain.OrderStatus, _ time.Duration, _ int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

// --- repo.CartRepo ---

func (s *memStore) Lines(_ context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	return append([]domain.CartLine(nil), s.cart[userID]...), nil
}

func (s *memStore) Clear(_ context.Context, _ *sql.Tx, userID uuid.UUID) error {
	delete(s.cart, userID)
	return nil
}

// --- repo.EnrollmentRepo ---

func (s *memStore) FindForUpdate(_ context.Context, _ *sql.Tx, userID, courseID uuid.UUID) (*domain.Enrollment, error) {
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			ec := *e
			return &ec, nil
		}
	}
	return nil, nil
}

func (s *memStore) Insert(_ context.Context, _ *sql.Tx, e *domain.Enrollment) error {
	if s.insertEnrollErr != nil {
		return s.insertEnrollErr
	}
	ec := *e
	s.enrollments = append(s.enrollments, &ec)
	return nil
}

func (s *memStore) Reactivate(_ context.Context, _ *sql.Tx, id uuid.UUID, sourceOrderID uuid.UUID) error {
	for _, e := range s.enrollments {
		if e.ID == id {
			e.Status = domain.EnrollmentActive
			src := sourceOrderID
			e.SourceOrderID = &src
		}
	}
	return nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Enrollment, error) {
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// countingNotifier records every dispatched order-paid event.
type countingNotifier struct {
	events []notify.OrderPaidEvent
}

func (n *countingNotifier) OrderPaid(_ context.Context, ev notify.OrderPaidEvent) error {
	n.events = append(n.events, ev)
	return nil
}
