package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one row of a user's live cart, with the unit price read from
// the catalog at lookup time.
type CartLine struct {
	CourseID       uuid.UUID
	Quantity       int32
	UnitPriceCents int64
}

type CartSnapshotItem struct {
	CourseID       uuid.UUID
	Quantity       int32
	UnitPriceCents int64
	SubtotalCents  int64
}

// CartSnapshot freezes the cart contents for a single checkout attempt.
// It is immutable once built; the live cart is untouched until the resulting
// order is confirmed.
type CartSnapshot struct {
	UserID     uuid.UUID
	Items      []CartSnapshotItem
	TotalCents int64
	CapturedAt time.Time
}
