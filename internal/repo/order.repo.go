package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"coursecheckout/internal/database"
	"coursecheckout/internal/domain"

	"github.com/google/uuid"
)

type OrderRepo interface {
	Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	// LockBySessionID re-reads the order row FOR UPDATE inside tx, items
	// included. The locked row is the serialization point for every
	// status-changing path.
	LockBySessionID(ctx context.Context, tx *sql.Tx, sessionID string) (*domain.Order, error)
	// AttachSession records the provider session on a pending order and
	// moves it to awaiting_payment. Single statement, status-gated.
	AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	// MarkFailedPending fails a pending order after a definite provider
	// rejection. Single statement, status-gated.
	MarkFailedPending(ctx context.Context, orderID uuid.UUID) error
	// CancelExpiredPending cancels a pending order that never got a
	// provider session. Returns true when a row was cancelled.
	CancelExpiredPending(ctx context.Context, orderID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindStuck(ctx context.Context, status domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	gw *database.Gateway
}

func NewOrderRepo(gw *database.Gateway) OrderRepo {
	return &orderRepo{gw: gw}
}

const orderColumns = "id, user_id, total_cents, status, provider_session_id, created_at, updated_at, paid_at"

func (r *orderRepo) Create(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_cents, status, provider_session_id, created_at, updated_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		order.ID, order.UserID, order.TotalCents, order.Status, order.ProviderSessionID,
		order.CreatedAt, order.UpdatedAt, order.PaidAt,
	)
	if err != nil {
		return err
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, course_id, price_cents, position)
			VALUES ($1, $2, $3, $4)`,
			order.ID, item.CourseID, item.PriceCents, i,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.gw.QueryRowScan(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1",
		[]any{id},
		&order.ID, &order.UserID, &order.TotalCents, &order.Status,
		&order.ProviderSessionID, &order.CreatedAt, &order.UpdatedAt, &order.PaidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) FindBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	var order domain.Order
	err := r.gw.QueryRowScan(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE provider_session_id = $1",
		[]any{sessionID},
		&order.ID, &order.UserID, &order.TotalCents, &order.Status,
		&order.ProviderSessionID, &order.CreatedAt, &order.UpdatedAt, &order.PaidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) LockBySessionID(ctx context.Context, tx *sql.Tx, sessionID string) (*domain.Order, error) {
	var order domain.Order
	err := tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE provider_session_id = $1 FOR UPDATE",
		sessionID,
	).Scan(
		&order.ID, &order.UserID, &order.TotalCents, &order.Status,
		&order.ProviderSessionID, &order.CreatedAt, &order.UpdatedAt, &order.PaidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT order_id, course_id, price_cents FROM order_items WHERE order_id = $1 ORDER BY position",
		order.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.CourseID, &item.PriceCents); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return &order, rows.Err()
}

func (r *orderRepo) AttachSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	_, err := r.gw.Exec(ctx, `
		UPDATE orders
		SET provider_session_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		orderID, sessionID, domain.OrderAwaitingPayment, domain.OrderPending,
	)
	return err
}

func (r *orderRepo) MarkFailedPending(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.gw.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		orderID, domain.OrderFailed, domain.OrderPending,
	)
	return err
}

func (r *orderRepo) CancelExpiredPending(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res, err := r.gw.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3 AND provider_session_id IS NULL`,
		orderID, domain.OrderCancelled, domain.OrderPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, paid_at = $2, updated_at = $3 WHERE id = $4`,
		order.Status, order.PaidAt, order.UpdatedAt, order.ID,
	)
	return err
}

func (r *orderRepo) FindStuck(ctx context.Context, status domain.OrderStatus, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.gw.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3",
		status, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.TotalCents, &order.Status,
			&order.ProviderSessionID, &order.CreatedAt, &order.UpdatedAt, &order.PaidAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *orderRepo) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.gw.Query(ctx,
		"SELECT order_id, course_id, price_cents FROM order_items WHERE order_id = $1 ORDER BY position",
		order.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.CourseID, &item.PriceCents); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
