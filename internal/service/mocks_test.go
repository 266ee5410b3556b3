package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/session"
)

// MockBackendClient
type MockBackendClient struct {
	mock.Mock
}

func (m *MockBackendClient) GetRental(ctx context.Context, sess *session.Session, rentalID string) (*domain.Rental, error) {
	args := m.Called(ctx, sess, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockBackendClient) SubmitReturn(ctx context.Context, sess *session.Session, sub *domain.ReturnSubmission, idempotencyKey string) (*domain.ReturnResult, error) {
	args := m.Called(ctx, sess, sub, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnResult), args.Error(1)
}
func (m *MockBackendClient) CheckAvailability(ctx context.Context, sess *session.Session, lineID, newEndDate string) (*domain.AvailabilityResponse, error) {
	args := m.Called(ctx, sess, lineID, newEndDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityResponse), args.Error(1)
}
func (m *MockBackendClient) ConfirmExtension(ctx context.Context, sess *session.Session, conf *domain.ExtensionConfirmation, idempotencyKey string) (*domain.ExtensionResult, error) {
	args := m.Called(ctx, sess, conf, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtensionResult), args.Error(1)
}

// MockSubmissionRepo
type MockSubmissionRepo struct {
	mock.Mock
}

func (m *MockSubmissionRepo) Claim(ctx context.Context, sub *domain.Submission) error {
	args := m.Called(ctx, sub)
	if args.Error(0) == nil && sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return args.Error(0)
}
func (m *MockSubmissionRepo) Complete(ctx context.Context, sub *domain.Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}
func (m *MockSubmissionRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}
func (m *MockSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}
func (m *MockSubmissionRepo) ListByRental(ctx context.Context, rentalID string) ([]domain.Submission, error) {
	args := m.Called(ctx, rentalID)
	return args.Get(0).([]domain.Submission), args.Error(1)
}
func (m *MockSubmissionRepo) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockSubmissionRepo) PruneBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendReturnReceipt(ctx context.Context, rental *domain.Rental, result *domain.ReturnResult, preview *domain.FinancialPreview) error {
	args := m.Called(ctx, rental, result, preview)
	return args.Error(0)
}
func (m *MockEmailService) SendExtensionConfirmation(ctx context.Context, rental *domain.Rental, req *domain.ExtensionRequest, result *domain.ExtensionResult) error {
	args := m.Called(ctx, rental, req, result)
	return args.Error(0)
}
