// Command simulate drives the fulfillment pipeline end to end against a
// real database with the simulated payment provider: checkout, duplicate
// completed events, an amount-mismatch event, and a repurchase after
// cancellation. Useful for eyeballing the reconciliation behavior without a
// provider account.
package main

import (
	"context"
	"os"
	"time"

	"coursecheckout/internal/config"
	"coursecheckout/internal/database"
	"coursecheckout/internal/domain"
	"coursecheckout/internal/infrastructure/notify"
	"coursecheckout/internal/infrastructure/payment"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/repo"
	"coursecheckout/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	gw := database.NewGateway(db, log.Logger)
	orderRepo := repo.NewOrderRepo(gw)
	cartRepo := repo.NewCartRepo(gw)
	enrollmentRepo := repo.NewEnrollmentRepo(gw)
	provider := payment.NewFakeProvider()
	m := metrics.NewPipelineMetrics(prometheus.NewRegistry())

	cartService := service.NewCartService(cartRepo)
	ledger := service.NewLedgerService(gw, orderRepo, enrollmentRepo, cartRepo, notify.LogNotifier{Log: log.Logger}, m, log.Logger)
	checkout := service.NewCheckoutService(gw, cartService, orderRepo, provider, ledger, m, cfg.ProviderTimeout, log.Logger)

	userID := uuid.New()
	courseID := seedCourseAndCart(ctx, gw, userID, 5000)

	// 1. Checkout a $50 course.
	sess, err := checkout.CreateSession(ctx, userID, "https://shop.local/success", "https://shop.local/cancel")
	if err != nil {
		log.Fatal().Err(err).Msg("checkout failed")
	}
	log.Info().Str("order_id", sess.OrderID.String()).Str("session_id", sess.SessionID).Msg("checkout session created")

	// 2. Provider settles; the same completed event arrives twice.
	provider.Complete(sess.SessionID)
	completed := domain.ProviderEvent{SessionID: sess.SessionID, Status: domain.SessionCompleted, AmountCents: 5000, OccurredAt: time.Now()}
	for i := 0; i < 2; i++ {
		outcome, err := ledger.ApplyEvent(ctx, completed)
		if err != nil {
			log.Fatal().Err(err).Msg("reconciliation failed")
		}
		log.Info().Int("delivery", i+1).Str("outcome", string(outcome)).Msg("completed event applied")
	}
	printOrder(ctx, orderRepo, sess.OrderID)

	// 3. A tampered amount never marks an order paid.
	addToCart(ctx, gw, userID, courseID)
	cancelEnrollment(ctx, gw, userID, courseID)
	sess2, err := checkout.CreateSession(ctx, userID, "https://shop.local/success", "https://shop.local/cancel")
	if err != nil {
		log.Fatal().Err(err).Msg("second checkout failed")
	}
	outcome, err := ledger.ApplyEvent(ctx, domain.ProviderEvent{SessionID: sess2.SessionID, Status: domain.SessionCompleted, AmountCents: 4000})
	if err != nil {
		log.Fatal().Err(err).Msg("mismatch reconciliation errored")
	}
	log.Info().Str("outcome", string(outcome)).Msg("mismatched event rejected")
	printOrder(ctx, orderRepo, sess2.OrderID)

	// 4. The honest amount reactivates the cancelled enrollment.
	outcome, err = ledger.ApplyEvent(ctx, domain.ProviderEvent{SessionID: sess2.SessionID, Status: domain.SessionCompleted, AmountCents: 5000, OccurredAt: time.Now()})
	if err != nil {
		log.Fatal().Err(err).Msg("repurchase reconciliation failed")
	}
	log.Info().Str("outcome", string(outcome)).Msg("repurchase applied")
	printOrder(ctx, orderRepo, sess2.OrderID)

	enrollments, err := enrollmentRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list enrollments")
	}
	for _, e := range enrollments {
		log.Info().
			Str("course_id", e.CourseID.String()).
			Str("status", string(e.Status)).
			Int("progress", e.ProgressPercentage).
			Msg("enrollment")
	}
}

func seedCourseAndCart(ctx context.Context, gw *database.Gateway, userID uuid.UUID, priceCents int64) uuid.UUID {
	courseID := uuid.New()
	if _, err := gw.Exec(ctx,
		"INSERT INTO courses (id, title, price_cents) VALUES ($1, $2, $3)",
		courseID, "Simulated Course", priceCents,
	); err != nil {
		log.Fatal().Err(err).Msg("failed to seed course")
	}
	addToCart(ctx, gw, userID, courseID)
	return courseID
}

func addToCart(ctx context.Context, gw *database.Gateway, userID, courseID uuid.UUID) {
	if _, err := gw.Exec(ctx,
		"INSERT INTO cart_items (user_id, course_id, quantity) VALUES ($1, $2, 1) ON CONFLICT DO NOTHING",
		userID, courseID,
	); err != nil {
		log.Fatal().Err(err).Msg("failed to fill cart")
	}
}

func cancelEnrollment(ctx context.Context, gw *database.Gateway, userID, courseID uuid.UUID) {
	if _, err := gw.Exec(ctx,
		"UPDATE enrollments SET status = $3, progress_percentage = 40 WHERE user_id = $1 AND course_id = $2",
		userID, courseID, domain.EnrollmentCancelled,
	); err != nil {
		log.Fatal().Err(err).Msg("failed to cancel enrollment")
	}
}

func printOrder(ctx context.Context, orders repo.OrderRepo, id uuid.UUID) {
	order, err := orders.FindByID(ctx, id)
	if err != nil || order == nil {
		log.Fatal().Err(err).Msg("failed to reload order")
	}
	log.Info().
		Str("order_id", order.ID.String()).
		Str("status", order.Status.String()).
		Int64("total_cents", order.TotalCents).
		Msg("order state")
}
