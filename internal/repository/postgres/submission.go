package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/repository"
)

const uniqueViolation = "23505"

const submissionColumns = `id, rental_id, kind, status, user_id, transaction_number, total_amount, balance_amount, error, created_on, updated_on`

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Claim(ctx context.Context, sub *domain.Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	now := time.Now()
	sub.Status = domain.SubmissionStatusPending
	sub.CreatedOn = now
	sub.UpdatedOn = now

	query := `INSERT INTO rental_submissions (id, rental_id, kind, status, user_id, total_amount, balance_amount, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("Claim", query, "rental_id", sub.RentalID, "kind", sub.Kind)
	res, err := r.db.ExecContext(ctx, query, sub.ID, sub.RentalID, sub.Kind, sub.Status, sub.UserID, sub.TotalAmount, sub.BalanceAmount, sub.CreatedOn, sub.UpdatedOn)
	if err != nil {
		logger.DatabaseResult("Claim", 0, err)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrSubmissionInProgress
		}
		return fmt.Errorf("claim rental %s: %w", sub.RentalID, err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("Claim", n, nil)
	return nil
}

func (r *submissionRepository) Complete(ctx context.Context, sub *domain.Submission) error {
	sub.Status = domain.SubmissionStatusCompleted
	sub.UpdatedOn = time.Now()

	query := `UPDATE rental_submissions SET status=$1, transaction_number=$2, total_amount=$3, balance_amount=$4, updated_on=$5 WHERE id=$6`
	return r.exec(ctx, "Complete", query, sub.Status, sub.TransactionNumber, sub.TotalAmount, sub.BalanceAmount, sub.UpdatedOn, sub.ID)
}

func (r *submissionRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE rental_submissions SET status=$1, error=$2, updated_on=$3 WHERE id=$4`
	return r.exec(ctx, "Fail", query, domain.SubmissionStatusFailed, message, time.Now(), id)
}

func (r *submissionRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	logger.DatabaseCall(op, query)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult(op, 0, err)
		return err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(op, n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM rental_submissions WHERE id = $1`
	sub, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *submissionRepository) ListByRental(ctx context.Context, rentalID string) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM rental_submissions WHERE rental_id = $1 ORDER BY created_on DESC`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *submissionRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `UPDATE rental_submissions SET status=$1, error=$2, updated_on=$3 WHERE status=$4 AND created_on < $5`
	logger.DatabaseCall("ReleaseStale", query, "older_than", olderThan)
	res, err := r.db.ExecContext(ctx, query, domain.SubmissionStatusFailed, "abandoned", time.Now(), domain.SubmissionStatusPending, olderThan)
	if err != nil {
		logger.DatabaseResult("ReleaseStale", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("ReleaseStale", n, err)
	return n, err
}

func (r *submissionRepository) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM rental_submissions WHERE status <> $1 AND updated_on < $2`
	logger.DatabaseCall("PruneBefore", query, "before", before)
	res, err := r.db.ExecContext(ctx, query, domain.SubmissionStatusPending, before)
	if err != nil {
		logger.DatabaseResult("PruneBefore", 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("PruneBefore", n, err)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var sub domain.Submission
	err := row.Scan(&sub.ID, &sub.RentalID, &sub.Kind, &sub.Status, &sub.UserID, &sub.TransactionNumber,
		&sub.TotalAmount, &sub.BalanceAmount, &sub.Error, &sub.CreatedOn, &sub.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
