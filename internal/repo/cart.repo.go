package repo

import (
	"context"
	"database/sql"

	"coursecheckout/internal/database"
	"coursecheckout/internal/domain"

	"github.com/google/uuid"
)

type CartRepo interface {
	// Lines returns the user's live cart joined with current catalog prices,
	// in the order the items were added.
	Lines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	// Clear removes the user's cart lines inside tx.
	Clear(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
}

type cartRepo struct {
	gw *database.Gateway
}

func NewCartRepo(gw *database.Gateway) CartRepo {
	return &cartRepo{gw: gw}
}

func (r *cartRepo) Lines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := r.gw.Query(ctx, `
		SELECT ci.course_id, ci.quantity, c.price_cents
		FROM cart_items ci
		JOIN courses c ON c.id = ci.course_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at, ci.course_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.CourseID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *cartRepo) Clear(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return err
}
