package service

import (
	"context"
	"testing"

	"coursecheckout/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_EmptyCartRejected(t *testing.T) {
	store := newMemStore()
	svc := NewCartService(store)

	_, err := svc.Snapshot(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestSnapshot_FreezesPricesAndTotals(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	store.cart[userID] = []domain.CartLine{
		{CourseID: first, Quantity: 1, UnitPriceCents: 5000},
		{CourseID: second, Quantity: 2, UnitPriceCents: 1250},
	}
	svc := NewCartService(store)

	snap, err := svc.Snapshot(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, first, snap.Items[0].CourseID, "line order is preserved")
	assert.Equal(t, int64(5000), snap.Items[0].SubtotalCents)
	assert.Equal(t, int64(2500), snap.Items[1].SubtotalCents)
	assert.Equal(t, int64(7500), snap.TotalCents)
	assert.False(t, snap.CapturedAt.IsZero())
}

func TestSnapshot_DoesNotTouchCart(t *testing.T) {
	store := newMemStore()
	userID := uuid.New()
	store.cart[userID] = []domain.CartLine{
		{CourseID: uuid.New(), Quantity: 1, UnitPriceCents: 900},
	}
	svc := NewCartService(store)

	_, err := svc.Snapshot(context.Background(), userID)
	require.NoError(t, err)

	lines, _ := store.Lines(context.Background(), userID)
	assert.Len(t, lines, 1, "snapshotting must not clear the cart")
}
