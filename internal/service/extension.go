package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"rentaldesk-bff/internal/backend"
	"rentaldesk-bff/internal/cache"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/repository"
	"rentaldesk-bff/internal/session"
	"rentaldesk-bff/internal/utils"
)

type extensionService struct {
	client   backend.Client
	cache    *cache.QueryCache
	subRepo  repository.SubmissionRepository
	emailSvc EmailService
	registry *WorkflowRegistry
}

func NewExtensionService(
	client backend.Client,
	queryCache *cache.QueryCache,
	subRepo repository.SubmissionRepository,
	emailSvc EmailService,
	registry *WorkflowRegistry,
) ExtensionService {
	return &extensionService{
		client:   client,
		cache:    queryCache,
		subRepo:  subRepo,
		emailSvc: emailSvc,
		registry: registry,
	}
}

func (s *extensionService) OpenExtension(ctx context.Context, sess *session.Session, rentalID, lineID string) (*ExtensionWorkflow, error) {
	logger.EnterMethod("extensionService.OpenExtension", "rental_id", rentalID, "line_id", lineID)

	rental, err := loadRental(ctx, s.client, s.cache, sess, rentalID)
	if err != nil {
		logger.ExitMethodWithError("extensionService.OpenExtension", err, "rental_id", rentalID)
		return nil, err
	}
	line := rental.Line(lineID)
	if line == nil {
		logger.ExitMethodWithError("extensionService.OpenExtension", domain.ErrLineNotFound, "line_id", lineID)
		return nil, domain.ErrLineNotFound
	}
	if line.Status == domain.LineStatusReturned {
		err := domain.NewValidationError("line", "line %s has already been returned", lineID)
		logger.ExitMethodWithError("extensionService.OpenExtension", err, "line_id", lineID)
		return nil, err
	}

	wf := &ExtensionWorkflow{
		id:     uuid.NewString(),
		userID: sess.UserID,
		svc:    s,
		rental: rental,
		line:   *line,
		state:  domain.ExtensionStateIdle,
	}
	s.registry.Put(wf)

	logger.ExitMethod("extensionService.OpenExtension", "workflow_id", wf.id)
	return wf, nil
}

func (s *extensionService) GetExtension(sess *session.Session, workflowID string) (*ExtensionWorkflow, error) {
	wf, err := s.registry.Get(workflowID, sess.UserID)
	if err != nil {
		return nil, err
	}
	ew, ok := wf.(*ExtensionWorkflow)
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return ew, nil
}

// ExtensionWorkflow walks one line through
// IDLE -> CHECKING -> AVAILABLE|CONFLICT -> CONFIRMED.
// Any date change returns it to IDLE and drops the availability answer.
type ExtensionWorkflow struct {
	id     string
	userID string
	svc    *extensionService
	rental *domain.Rental
	line   domain.RentalLineItem

	mu           sync.Mutex
	state        domain.ExtensionState
	request      *domain.ExtensionRequest
	availability *domain.AvailabilityResponse
	generation   uint64
	confirming   bool
	closed       bool
	result       *domain.ExtensionResult
	lastError    string
}

// ExtensionWorkflowState is a point-in-time copy of an ExtensionWorkflow.
type ExtensionWorkflowState struct {
	ID         string                        `json:"id"`
	RentalID   string                        `json:"rental_id"`
	Line       domain.RentalLineItem         `json:"line"`
	State      domain.ExtensionState         `json:"state"`
	Request    *domain.ExtensionRequest      `json:"request,omitempty"`
	CanExtend  *bool                         `json:"can_extend,omitempty"`
	Conflicts  []domain.AvailabilityConflict `json:"conflicts,omitempty"`
	Eligible   bool                          `json:"eligible"`
	Processing bool                          `json:"processing"`
	Result     *domain.ExtensionResult       `json:"result,omitempty"`
	LastError  string                        `json:"last_error,omitempty"`
}

func (w *ExtensionWorkflow) ID() string     { return w.id }
func (w *ExtensionWorkflow) UserID() string { return w.userID }

func (w *ExtensionWorkflow) Close() {
	w.mu.Lock()
	w.closed = true
	w.generation++
	w.mu.Unlock()
}

func (w *ExtensionWorkflow) State() ExtensionWorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := ExtensionWorkflowState{
		ID:         w.id,
		RentalID:   w.rental.ID,
		Line:       w.line,
		State:      w.state,
		Eligible:   w.eligible(),
		Processing: w.state == domain.ExtensionStateChecking || w.confirming,
		Result:     w.result,
		LastError:  w.lastError,
	}
	if w.request != nil {
		req := *w.request
		st.Request = &req
	}
	if w.availability != nil {
		canExtend := w.availability.CanExtend
		st.CanExtend = &canExtend
		st.Conflicts = append([]domain.AvailabilityConflict(nil), w.availability.Conflicts...)
	}
	return st
}

// eligible must be called with mu held.
func (w *ExtensionWorkflow) eligible() bool {
	return w.state == domain.ExtensionStateAvailable && utils.ExtensionEligible(w.request, w.availability)
}

func (w *ExtensionWorkflow) terminal() error {
	if w.closed || w.state == domain.ExtensionStateConfirmed {
		return domain.ErrWorkflowClosed
	}
	return nil
}

// SetNewEndDate proposes a new end date. Whatever state the workflow was in,
// it goes back to IDLE and a pending availability answer will be ignored.
// A date on or before the current end date is accepted here but blocks Check.
func (w *ExtensionWorkflow) SetNewEndDate(newEndDate string) (*domain.ExtensionRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.terminal(); err != nil {
		return nil, err
	}
	if w.confirming {
		return nil, domain.ErrRequestInFlight
	}

	req, err := utils.CalculateExtension(w.line, newEndDate)
	if err != nil {
		w.lastError = backend.UserMessage(err)
		return nil, err
	}

	w.generation++
	w.state = domain.ExtensionStateIdle
	w.request = req
	w.availability = nil
	w.lastError = ""

	out := *req
	return &out, nil
}

// Check asks the backend whether the proposed date is free.
func (w *ExtensionWorkflow) Check(ctx context.Context, sess *session.Session) (domain.ExtensionState, error) {
	w.mu.Lock()
	if err := w.terminal(); err != nil {
		w.mu.Unlock()
		return "", err
	}
	if w.state == domain.ExtensionStateChecking || w.confirming {
		w.mu.Unlock()
		return "", domain.ErrRequestInFlight
	}
	if err := w.localCheck(); err != nil {
		w.lastError = backend.UserMessage(err)
		w.mu.Unlock()
		return "", err
	}
	w.state = domain.ExtensionStateChecking
	w.lastError = ""
	gen := w.generation
	req := *w.request
	w.mu.Unlock()

	resp, err := w.svc.checkAvailability(ctx, sess, req.LineID, req.NewEndDate)

	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.generation {
		logger.Debug("Discarding stale availability result", "workflow_id", w.id, "new_end_date", req.NewEndDate)
		return w.state, domain.ErrStaleResult
	}
	if err != nil {
		w.state = domain.ExtensionStateIdle
		w.lastError = backend.UserMessage(err)
		return w.state, err
	}

	w.availability = resp
	if utils.ExtensionEligible(w.request, resp) {
		w.state = domain.ExtensionStateAvailable
	} else {
		w.state = domain.ExtensionStateConflict
	}
	return w.state, nil
}

// localCheck must be called with mu held.
func (w *ExtensionWorkflow) localCheck() error {
	if w.request == nil {
		return domain.NewValidationError("new_end_date", "is required")
	}
	if !w.request.LocallyValid {
		return domain.NewValidationError("new_end_date", "must be after the current end date %s", w.request.CurrentEndDate)
	}
	return nil
}

// Confirm commits the extension. It is only allowed right after a
// successful availability check for the current date.
func (w *ExtensionWorkflow) Confirm(ctx context.Context, sess *session.Session, payment *domain.PaymentRecord) (*domain.ExtensionResult, error) {
	w.mu.Lock()
	if err := w.terminal(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.confirming || w.state == domain.ExtensionStateChecking {
		w.mu.Unlock()
		return nil, domain.ErrRequestInFlight
	}
	if !w.eligible() {
		err := domain.NewValidationError("new_end_date", "availability must be confirmed before extending")
		w.lastError = backend.UserMessage(err)
		w.mu.Unlock()
		return nil, err
	}
	if payment != nil {
		if payment.Amount.IsNegative() {
			w.mu.Unlock()
			return nil, domain.NewValidationError("payment.amount", "must not be negative")
		}
		if payment.Method == "" {
			w.mu.Unlock()
			return nil, domain.NewValidationError("payment.method", "is required")
		}
	}
	req := *w.request
	w.confirming = true
	w.lastError = ""
	w.mu.Unlock()

	result, err := w.svc.confirm(ctx, sess, w.rental, &req, payment)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirming = false
	if err != nil {
		w.lastError = backend.UserMessage(err)
		logger.WarnContext(ctx, "Extension failed", "workflow_id", w.id, "line_id", req.LineID, "error", err)
		return nil, err
	}
	w.state = domain.ExtensionStateConfirmed
	w.result = result
	return result, nil
}

// checkAvailability always asks the backend. Availability answers are never
// cached: an explicit check must reflect bookings made since the last one.
func (s *extensionService) checkAvailability(ctx context.Context, sess *session.Session, lineID, newEndDate string) (*domain.AvailabilityResponse, error) {
	return s.client.CheckAvailability(ctx, sess, lineID, newEndDate)
}

func (s *extensionService) confirm(ctx context.Context, sess *session.Session, rental *domain.Rental, req *domain.ExtensionRequest, payment *domain.PaymentRecord) (*domain.ExtensionResult, error) {
	journal := &domain.Submission{
		RentalID:      rental.ID,
		Kind:          domain.SubmissionKindExtension,
		UserID:        sess.UserID,
		TotalAmount:   req.ExtensionCharge,
		BalanceAmount: req.ExtensionCharge,
	}
	if payment != nil {
		journal.BalanceAmount = req.ExtensionCharge.Sub(payment.Amount)
	}
	if err := s.subRepo.Claim(ctx, journal); err != nil {
		return nil, err
	}

	conf := utils.BuildExtensionConfirmation(req, payment)
	result, err := s.client.ConfirmExtension(ctx, sess, conf, journal.ID.String())
	if err != nil {
		if ferr := s.subRepo.Fail(ctx, journal.ID, err.Error()); ferr != nil {
			logger.ErrorContext(ctx, "Failed to record submission failure", "submission_id", journal.ID, "error", ferr)
		}
		return nil, err
	}

	journal.TransactionNumber = result.TransactionNumber
	if err := s.subRepo.Complete(ctx, journal); err != nil {
		logger.ErrorContext(ctx, "Failed to record completed submission", "submission_id", journal.ID, "error", err)
	}

	s.cache.Invalidate(cache.RentalKey(rental.ID))

	if err := s.emailSvc.SendExtensionConfirmation(ctx, rental, req, result); err != nil {
		logger.WarnContext(ctx, "Failed to send extension confirmation", "rental_id", rental.ID, "error", err)
	}

	logger.InfoContext(ctx, "Extension confirmed", "rental_id", rental.ID, "line_id", req.LineID, "new_end_date", req.NewEndDate)
	return result, nil
}
