package service

import (
	"context"

	"github.com/shopspring/decimal"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/session"
)

// PreviewRequest is a stateless preview over caller-supplied items. A nil
// LateFeePerItem uses the configured fee; an explicit zero waives it.
type PreviewRequest struct {
	IsOverdue      bool
	DaysLate       int
	LateFeePerItem *decimal.Decimal
	DepositAmount  decimal.Decimal
	Items          []domain.ReturnItemState
}

type ReturnService interface {
	OpenReturn(ctx context.Context, sess *session.Session, rentalID string) (*ReturnWorkflow, error)
	GetReturn(sess *session.Session, workflowID string) (*ReturnWorkflow, error)
	// Preview runs the calculator on caller-supplied items without touching
	// the backend.
	Preview(req PreviewRequest) *domain.FinancialPreview
}

type ExtensionService interface {
	OpenExtension(ctx context.Context, sess *session.Session, rentalID, lineID string) (*ExtensionWorkflow, error)
	GetExtension(sess *session.Session, workflowID string) (*ExtensionWorkflow, error)
}

type EmailService interface {
	SendReturnReceipt(ctx context.Context, rental *domain.Rental, result *domain.ReturnResult, preview *domain.FinancialPreview) error
	SendExtensionConfirmation(ctx context.Context, rental *domain.Rental, req *domain.ExtensionRequest, result *domain.ExtensionResult) error
}
