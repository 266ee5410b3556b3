package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rentaldesk-bff/internal/domain"
)

// SubmissionRepository is the local journal of writes sent to the rental
// backend. At most one PENDING row may exist per rental.
type SubmissionRepository interface {
	// Claim inserts sub as PENDING. It fails with domain.ErrSubmissionInProgress
	// when the rental already has a pending submission.
	Claim(ctx context.Context, sub *domain.Submission) error
	Complete(ctx context.Context, sub *domain.Submission) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	ListByRental(ctx context.Context, rentalID string) ([]domain.Submission, error)

	// ReleaseStale marks PENDING rows created before olderThan as FAILED so
	// that a crashed request does not block the rental forever.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error)
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}
