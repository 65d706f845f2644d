package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderPaidEvent is published exactly once per order that actually
// transitioned to paid, never on idempotent replays.
type OrderPaidEvent struct {
	OrderID    uuid.UUID   `json:"order_id"`
	UserID     uuid.UUID   `json:"user_id"`
	TotalCents int64       `json:"total_cents"`
	CourseIDs  []uuid.UUID `json:"course_ids"`
	PaidAt     time.Time   `json:"paid_at"`
}

type Notifier interface {
	OrderPaid(ctx context.Context, ev OrderPaidEvent) error
}

// LogNotifier stands in when no broker is configured.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) OrderPaid(_ context.Context, ev OrderPaidEvent) error {
	n.Log.Info().
		Str("order_id", ev.OrderID.String()).
		Str("user_id", ev.UserID.String()).
		Int64("total_cents", ev.TotalCents).
		Msg("order paid notification")
	return nil
}
