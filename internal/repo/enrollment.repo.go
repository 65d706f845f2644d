package repo

import (
	"context"
	"database/sql"
	"errors"

	"coursecheckout/internal/database"
	"coursecheckout/internal/domain"

	"github.com/google/uuid"
)

type EnrollmentRepo interface {
	// FindForUpdate locks the (userID, courseID) enrollment row inside tx.
	// Returns nil when no row exists.
	FindForUpdate(ctx context.Context, tx *sql.Tx, userID, courseID uuid.UUID) (*domain.Enrollment, error)
	Insert(ctx context.Context, tx *sql.Tx, e *domain.Enrollment) error
	// Reactivate flips a cancelled or suspended enrollment back to active
	// without touching its progress.
	Reactivate(ctx context.Context, tx *sql.Tx, id uuid.UUID, sourceOrderID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Enrollment, error)
}

type enrollmentRepo struct {
	gw *database.Gateway
}

func NewEnrollmentRepo(gw *database.Gateway) EnrollmentRepo {
	return &enrollmentRepo{gw: gw}
}

const enrollmentColumns = "id, user_id, course_id, status, progress_percentage, started_at, completed_at, certificate_url, source_order_id"

func (r *enrollmentRepo) FindForUpdate(ctx context.Context, tx *sql.Tx, userID, courseID uuid.UUID) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := tx.QueryRowContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = $1 AND course_id = $2 FOR UPDATE",
		userID, courseID,
	).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage,
		&e.StartedAt, &e.CompletedAt, &e.CertificateURL, &e.SourceOrderID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) Insert(ctx context.Context, tx *sql.Tx, e *domain.Enrollment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO enrollments (id, user_id, course_id, status, progress_percentage, started_at, completed_at, certificate_url, source_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.CourseID, e.Status, e.ProgressPercentage,
		e.StartedAt, e.CompletedAt, e.CertificateURL, e.SourceOrderID,
	)
	return err
}

func (r *enrollmentRepo) Reactivate(ctx context.Context, tx *sql.Tx, id uuid.UUID, sourceOrderID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE enrollments SET status = $2, source_order_id = $3 WHERE id = $1`,
		id, domain.EnrollmentActive, sourceOrderID,
	)
	return err
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Enrollment, error) {
	rows, err := r.gw.Query(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = $1 ORDER BY started_at",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage,
			&e.StartedAt, &e.CompletedAt, &e.CertificateURL, &e.SourceOrderID,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
