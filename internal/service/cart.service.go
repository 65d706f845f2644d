package service

import (
	"context"
	"fmt"
	"time"

	"coursecheckout/internal/domain"
	"coursecheckout/internal/repo"

	"github.com/google/uuid"
)

type CartService interface {
	// Snapshot freezes the user's current cart into an immutable line-item
	// list for a single checkout attempt. The live cart is not touched.
	Snapshot(ctx context.Context, userID uuid.UUID) (*domain.CartSnapshot, error)
}

type cartService struct {
	carts repo.CartRepo
}

func NewCartService(carts repo.CartRepo) CartService {
	return &cartService{carts: carts}
}

func (s *cartService) Snapshot(ctx context.Context, userID uuid.UUID) (*domain.CartSnapshot, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	snapshot := &domain.CartSnapshot{
		UserID:     userID,
		Items:      make([]domain.CartSnapshotItem, 0, len(lines)),
		CapturedAt: time.Now(),
	}
	for _, line := range lines {
		subtotal := line.UnitPriceCents * int64(line.Quantity)
		snapshot.Items = append(snapshot.Items, domain.CartSnapshotItem{
			CourseID:       line.CourseID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			SubtotalCents:  subtotal,
		})
		snapshot.TotalCents += subtotal
	}
	return snapshot, nil
}
