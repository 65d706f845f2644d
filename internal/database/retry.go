package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// IsTransient reports whether err is a failure worth retrying: connection
// trouble, deadlock, serialization conflict, or a network timeout.
// Constraint violations and malformed queries are programmer or data errors
// and are never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"57014", // query_canceled (statement timeout)
			"53300": // too_many_connections
			return true
		}
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// withRetry runs op up to attempts times with a fixed delay between tries,
// retrying only transient failures. On exhaustion the last underlying error
// is returned as-is.
func withRetry(ctx context.Context, attempts int, delay time.Duration, log zerolog.Logger, op func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("transient database error, retrying")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
	return err
}
