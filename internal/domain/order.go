package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderAwaitingPayment OrderStatus = "awaiting_payment"
	OrderPaid            OrderStatus = "paid"
	OrderFailed          OrderStatus = "failed"
	OrderCancelled       OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderPaid || s == OrderFailed || s == OrderCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	OrderID    uuid.UUID
	CourseID   uuid.UUID
	PriceCents int64
}

// Order is the durable record of one checkout attempt. TotalCents is frozen at
// creation and always equals the sum of its items' captured prices; later
// catalog price changes never affect an existing order.
type Order struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Items             []OrderItem
	TotalCents        int64
	Status            OrderStatus
	ProviderSessionID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
}
