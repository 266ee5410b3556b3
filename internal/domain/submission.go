package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubmissionKind string

const (
	SubmissionKindReturn    SubmissionKind = "RETURN"
	SubmissionKindExtension SubmissionKind = "EXTENSION"
)

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "PENDING"
	SubmissionStatusCompleted SubmissionStatus = "COMPLETED"
	SubmissionStatusFailed    SubmissionStatus = "FAILED"
)

// Submission is one journal row for a write sent to the backend. A PENDING
// row doubles as the per-rental claim that keeps two workflows from
// submitting for the same rental at once.
type Submission struct {
	ID                uuid.UUID        `json:"id"`
	RentalID          string           `json:"rental_id"`
	Kind              SubmissionKind   `json:"kind"`
	Status            SubmissionStatus `json:"status"`
	UserID            string           `json:"user_id"`
	TransactionNumber string           `json:"transaction_number"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	BalanceAmount     decimal.Decimal  `json:"balance_amount"`
	Error             string           `json:"error"`
	CreatedOn         time.Time        `json:"created_on"`
	UpdatedOn         time.Time        `json:"updated_on"`
}
