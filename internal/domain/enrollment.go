package domain

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentSuspended EnrollmentStatus = "suspended"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment grants a user access to a course. At most one row exists per
// (UserID, CourseID); cancellation is a status change, never a delete.
// SourceOrderID is nil for admin-granted enrollments.
type Enrollment struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	CourseID           uuid.UUID
	Status             EnrollmentStatus
	ProgressPercentage int
	StartedAt          time.Time
	CompletedAt        *time.Time
	CertificateURL     *string
	SourceOrderID      *uuid.UUID
}
