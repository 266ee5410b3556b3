package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentaldesk-bff/internal/backend"
	"rentaldesk-bff/internal/cache"
	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/repository"
	"rentaldesk-bff/internal/session"
	"rentaldesk-bff/internal/utils"
)

// ReturnPolicy holds the fee parameters applied to every return.
type ReturnPolicy struct {
	LateFeePerItem             decimal.Decimal
	DefaultDaysLate            int
	AllowNegativeDamagePenalty bool
}

func ReturnPolicyFromConfig(cfg *config.Config) ReturnPolicy {
	return ReturnPolicy{
		LateFeePerItem:             cfg.LateFeePerItem(),
		DefaultDaysLate:            cfg.Returns.DefaultDaysLate,
		AllowNegativeDamagePenalty: cfg.Returns.AllowNegativeDamagePenalty,
	}
}

// daysLate falls back to the configured default when the backend reports an
// overdue rental without a day count.
func (p ReturnPolicy) daysLate(rental *domain.Rental) int {
	if rental.DaysLate > 0 {
		return rental.DaysLate
	}
	return p.DefaultDaysLate
}

type returnService struct {
	client   backend.Client
	cache    *cache.QueryCache
	subRepo  repository.SubmissionRepository
	emailSvc EmailService
	registry *WorkflowRegistry
	policy   ReturnPolicy
}

func NewReturnService(
	client backend.Client,
	queryCache *cache.QueryCache,
	subRepo repository.SubmissionRepository,
	emailSvc EmailService,
	registry *WorkflowRegistry,
	policy ReturnPolicy,
) ReturnService {
	return &returnService{
		client:   client,
		cache:    queryCache,
		subRepo:  subRepo,
		emailSvc: emailSvc,
		registry: registry,
		policy:   policy,
	}
}

func (s *returnService) OpenReturn(ctx context.Context, sess *session.Session, rentalID string) (*ReturnWorkflow, error) {
	logger.EnterMethod("returnService.OpenReturn", "rental_id", rentalID, "user_id", sess.UserID)

	rental, err := loadRental(ctx, s.client, s.cache, sess, rentalID)
	if err != nil {
		logger.ExitMethodWithError("returnService.OpenReturn", err, "rental_id", rentalID)
		return nil, err
	}

	items := make([]domain.ReturnItemState, 0, len(rental.Lines))
	for _, line := range rental.Lines {
		if line.Status == domain.LineStatusReturned {
			continue
		}
		items = append(items, domain.NewReturnItemState(line))
	}
	if len(items) == 0 {
		err := domain.NewValidationError("rental", "rental %s has no outstanding lines", rentalID)
		logger.ExitMethodWithError("returnService.OpenReturn", err, "rental_id", rentalID)
		return nil, err
	}

	wf := &ReturnWorkflow{
		id:         uuid.NewString(),
		userID:     sess.UserID,
		rental:     rental,
		items:      items,
		returnDate: utils.Today(),
		svc:        s,
	}
	s.registry.Put(wf)

	logger.ExitMethod("returnService.OpenReturn", "workflow_id", wf.id, "lines", len(items))
	return wf, nil
}

func (s *returnService) GetReturn(sess *session.Session, workflowID string) (*ReturnWorkflow, error) {
	wf, err := s.registry.Get(workflowID, sess.UserID)
	if err != nil {
		return nil, err
	}
	rw, ok := wf.(*ReturnWorkflow)
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return rw, nil
}

func (s *returnService) Preview(req PreviewRequest) *domain.FinancialPreview {
	in := utils.ReturnPreviewInput{
		IsOverdue:      req.IsOverdue,
		DaysLate:       req.DaysLate,
		LateFeePerItem: s.policy.LateFeePerItem,
		DepositAmount:  req.DepositAmount,
		Items:          req.Items,
	}
	if req.LateFeePerItem != nil {
		in.LateFeePerItem = *req.LateFeePerItem
	}
	if in.IsOverdue && in.DaysLate <= 0 {
		in.DaysLate = s.policy.DefaultDaysLate
	}
	return utils.CalculateReturnPreview(in)
}

// ItemUpdate carries the fields of a ReturnItemState to change; nil fields
// are left untouched.
type ItemUpdate struct {
	Selected       *bool                `json:"selected,omitempty"`
	ReturnQuantity *int                 `json:"return_quantity,omitempty"`
	ReturnAction   *domain.ReturnAction `json:"return_action,omitempty"`
	ConditionNotes *string              `json:"condition_notes,omitempty"`
	DamageNotes    *string              `json:"damage_notes,omitempty"`
	DamagePenalty  *decimal.Decimal     `json:"damage_penalty,omitempty"`
}

// ReturnWorkflow is the state of one return dialog. It is safe for concurrent
// use; a submission holds the in-flight gate and blocks further edits until
// it finishes.
type ReturnWorkflow struct {
	id     string
	userID string
	svc    *returnService
	rental *domain.Rental

	mu         sync.Mutex
	items      []domain.ReturnItemState
	returnDate string
	notes      string
	processing bool
	submitted  bool
	closed     bool
	result     *domain.ReturnResult
	lastError  string
}

// ReturnWorkflowState is a point-in-time copy of a ReturnWorkflow.
type ReturnWorkflowState struct {
	ID                string                   `json:"id"`
	RentalID          string                   `json:"rental_id"`
	TransactionNumber string                   `json:"transaction_number"`
	CustomerName      string                   `json:"customer_name"`
	IsOverdue         bool                     `json:"is_overdue"`
	DaysLate          int                      `json:"days_late"`
	ReturnDate        string                   `json:"return_date"`
	Notes             string                   `json:"notes,omitempty"`
	Items             []domain.ReturnItemState `json:"items"`
	Preview           *domain.FinancialPreview `json:"preview"`
	Processing        bool                     `json:"processing"`
	Submitted         bool                     `json:"submitted"`
	Result            *domain.ReturnResult     `json:"result,omitempty"`
	LastError         string                   `json:"last_error,omitempty"`
}

func (w *ReturnWorkflow) ID() string     { return w.id }
func (w *ReturnWorkflow) UserID() string { return w.userID }

// Close discards the workflow. A submission already in flight still
// completes on the backend.
func (w *ReturnWorkflow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *ReturnWorkflow) Items() []domain.ReturnItemState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.copyItems()
}

func (w *ReturnWorkflow) copyItems() []domain.ReturnItemState {
	out := make([]domain.ReturnItemState, len(w.items))
	copy(out, w.items)
	return out
}

// editable must be called with mu held.
func (w *ReturnWorkflow) editable() error {
	switch {
	case w.closed, w.submitted:
		return domain.ErrWorkflowClosed
	case w.processing:
		return domain.ErrRequestInFlight
	}
	return nil
}

// UpdateItem applies upd to one line. Either every field is applied or, on a
// validation failure, none.
func (w *ReturnWorkflow) UpdateItem(lineID string, upd ItemUpdate) (domain.ReturnItemState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return domain.ReturnItemState{}, err
	}

	idx := -1
	for i := range w.items {
		if w.items[i].Line.ID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ReturnItemState{}, domain.ErrLineNotFound
	}

	item := w.items[idx]
	if upd.Selected != nil {
		item.Selected = *upd.Selected
	}
	if upd.ReturnQuantity != nil {
		if err := utils.ValidateReturnQuantity(item.Line, *upd.ReturnQuantity); err != nil {
			return domain.ReturnItemState{}, err
		}
		item.ReturnQuantity = *upd.ReturnQuantity
	}
	if upd.ReturnAction != nil {
		if !upd.ReturnAction.Valid() {
			return domain.ReturnItemState{}, domain.ErrUnknownReturnAction
		}
		item.ReturnAction = *upd.ReturnAction
	}
	if upd.ConditionNotes != nil {
		item.ConditionNotes = *upd.ConditionNotes
	}
	if upd.DamageNotes != nil {
		item.DamageNotes = *upd.DamageNotes
	}
	if upd.DamagePenalty != nil {
		if upd.DamagePenalty.IsNegative() && !w.svc.policy.AllowNegativeDamagePenalty {
			return domain.ReturnItemState{}, domain.NewValidationError("damage_penalty", "must not be negative")
		}
		item.DamagePenalty = *upd.DamagePenalty
	}

	w.items[idx] = item
	w.lastError = ""
	return item, nil
}

// SelectAll selects or deselects every line.
func (w *ReturnWorkflow) SelectAll(selected bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	for i := range w.items {
		w.items[i].Selected = selected
	}
	w.lastError = ""
	return nil
}

// SetReturnDate changes the date stamped on every returned line.
func (w *ReturnWorkflow) SetReturnDate(date string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editable(); err != nil {
		return err
	}
	if _, err := utils.ParseDate(date); err != nil {
		return domain.NewValidationError("return_date", "%v", err)
	}
	w.returnDate = date
	return nil
}

// Preview returns nil while no line is selected.
func (w *ReturnWorkflow) Preview() *domain.FinancialPreview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview()
}

func (w *ReturnWorkflow) preview() *domain.FinancialPreview {
	return utils.CalculateReturnPreview(utils.ReturnPreviewInput{
		IsOverdue:      w.rental.IsOverdue,
		DaysLate:       w.svc.policy.daysLate(w.rental),
		LateFeePerItem: w.svc.policy.LateFeePerItem,
		DepositAmount:  w.rental.DepositAmount,
		Items:          w.items,
	})
}

func (w *ReturnWorkflow) State() ReturnWorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return ReturnWorkflowState{
		ID:                w.id,
		RentalID:          w.rental.ID,
		TransactionNumber: w.rental.TransactionNumber,
		CustomerName:      w.rental.CustomerName,
		IsOverdue:         w.rental.IsOverdue,
		DaysLate:          w.rental.DaysLate,
		ReturnDate:        w.returnDate,
		Notes:             w.notes,
		Items:             w.copyItems(),
		Preview:           w.preview(),
		Processing:        w.processing,
		Submitted:         w.submitted,
		Result:            w.result,
		LastError:         w.lastError,
	}
}

// Submit sends the return to the backend. Local validation runs before any
// I/O. A failure is recorded as LastError and leaves the workflow editable
// for a manual retry; success makes it terminal.
func (w *ReturnWorkflow) Submit(ctx context.Context, sess *session.Session, notes string) (*domain.ReturnResult, error) {
	w.mu.Lock()
	if err := w.editable(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	submission, err := utils.BuildReturnSubmission(w.rental.ID, w.returnDate, notes, w.items)
	if err != nil {
		w.lastError = backend.UserMessage(err)
		w.mu.Unlock()
		return nil, err
	}
	preview := w.preview()
	w.notes = notes
	w.processing = true
	w.lastError = ""
	w.mu.Unlock()

	logger.InfoContext(ctx, "Submitting return", "workflow_id", w.id, "rental_id", w.rental.ID, "lines", len(submission.Items))

	result, err := w.svc.submit(ctx, sess, w.rental, submission, preview)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.processing = false
	if err != nil {
		w.lastError = backend.UserMessage(err)
		logger.WarnContext(ctx, "Return submission failed", "workflow_id", w.id, "rental_id", w.rental.ID, "error", err)
		return nil, err
	}
	w.submitted = true
	w.result = result
	return result, nil
}

func (s *returnService) submit(ctx context.Context, sess *session.Session, rental *domain.Rental, submission *domain.ReturnSubmission, preview *domain.FinancialPreview) (*domain.ReturnResult, error) {
	journal := &domain.Submission{
		RentalID:      rental.ID,
		Kind:          domain.SubmissionKindReturn,
		UserID:        sess.UserID,
		TotalAmount:   preview.TotalAmount,
		BalanceAmount: preview.BalanceAmount,
	}
	if err := s.subRepo.Claim(ctx, journal); err != nil {
		return nil, err
	}

	result, err := s.client.SubmitReturn(ctx, sess, submission, journal.ID.String())
	if err != nil {
		if ferr := s.subRepo.Fail(ctx, journal.ID, err.Error()); ferr != nil {
			logger.ErrorContext(ctx, "Failed to record submission failure", "submission_id", journal.ID, "error", ferr)
		}
		return nil, err
	}

	journal.TransactionNumber = result.TransactionNumber
	if !result.TotalAmount.IsZero() {
		journal.TotalAmount = result.TotalAmount
	}
	if err := s.subRepo.Complete(ctx, journal); err != nil {
		logger.ErrorContext(ctx, "Failed to record completed submission", "submission_id", journal.ID, "error", err)
	}

	s.cache.Invalidate(cache.RentalKey(rental.ID))

	if err := s.emailSvc.SendReturnReceipt(ctx, rental, result, preview); err != nil {
		logger.WarnContext(ctx, "Failed to send return receipt", "rental_id", rental.ID, "error", err)
	}

	logger.InfoContext(ctx, "Return submitted", "rental_id", rental.ID, "transaction_number", result.TransactionNumber)
	return result, nil
}

// loadRental reads a rental through the query cache. Entries are keyed by
// the caller's bearer token, so a cached answer is only served to the
// credential the backend authorized it for.
func loadRental(ctx context.Context, client backend.Client, qc *cache.QueryCache, sess *session.Session, rentalID string) (*domain.Rental, error) {
	key := cache.RentalKey(rentalID) + "?session=" + sess.CacheScope()
	v, err := qc.GetOrLoad(ctx, key, func(ctx context.Context) (interface{}, error) {
		return client.GetRental(ctx, sess, rentalID)
	})
	if err != nil {
		return nil, err
	}
	// workflows keep their own copy; the cached value stays untouched
	cached := v.(*domain.Rental)
	rental := *cached
	rental.Lines = append([]domain.RentalLineItem(nil), cached.Lines...)
	return &rental, nil
}
