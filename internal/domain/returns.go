package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReturnAction is the per-line decision taken during a return. The zero value
// is not a valid action.
type ReturnAction int

const (
	ReturnActionComplete ReturnAction = iota + 1
	ReturnActionPartial
	ReturnActionDamaged
	ReturnActionLate
)

var returnActionNames = map[ReturnAction]string{
	ReturnActionComplete: "COMPLETE_RETURN",
	ReturnActionPartial:  "PARTIAL_RETURN",
	ReturnActionDamaged:  "MARK_DAMAGED",
	ReturnActionLate:     "MARK_LATE",
}

func (a ReturnAction) String() string {
	if name, ok := returnActionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ReturnAction(%d)", int(a))
}

func (a ReturnAction) Valid() bool {
	_, ok := returnActionNames[a]
	return ok
}

// ParseReturnAction converts the wire name into a ReturnAction.
func ParseReturnAction(s string) (ReturnAction, error) {
	for action, name := range returnActionNames {
		if name == s {
			return action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownReturnAction, s)
}

func (a ReturnAction) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReturnAction, int(a))
	}
	return json.Marshal(a.String())
}

func (a *ReturnAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseReturnAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ReturnItemState is the user-editable decision for one rental line.
type ReturnItemState struct {
	Line           RentalLineItem  `json:"line"`
	Selected       bool            `json:"selected"`
	ReturnQuantity int             `json:"return_quantity"`
	ReturnAction   ReturnAction    `json:"return_action"`
	ConditionNotes string          `json:"condition_notes"`
	DamageNotes    string          `json:"damage_notes"`
	DamagePenalty  decimal.Decimal `json:"damage_penalty"`
}

// NewReturnItemState starts an unselected full return of the line.
func NewReturnItemState(line RentalLineItem) ReturnItemState {
	return ReturnItemState{
		Line:           line,
		ReturnQuantity: line.Quantity,
		ReturnAction:   ReturnActionComplete,
		DamagePenalty:  decimal.Zero,
	}
}

// FinancialPreview is derived from the current item states and never stored.
type FinancialPreview struct {
	SelectedCount   int             `json:"selected_count"`
	RentalSubtotal  decimal.Decimal `json:"rental_subtotal"`
	LateFees        decimal.Decimal `json:"late_fees"`
	DamagePenalties decimal.Decimal `json:"damage_penalties"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	BalanceAmount   decimal.Decimal `json:"balance_amount"`
}

// IsRefund reports whether the customer is owed money back.
func (p *FinancialPreview) IsRefund() bool {
	return p.BalanceAmount.IsNegative()
}

// ReturnLineRequest is the per-line body sent to the return-direct endpoint.
type ReturnLineRequest struct {
	LineID               string          `json:"line_id"`
	ItemID               string          `json:"item_id"`
	TotalReturnQuantity  int             `json:"total_return_quantity"`
	QuantityGood         int             `json:"quantity_good"`
	QuantityDamaged      int             `json:"quantity_damaged"`
	QuantityBeyondRepair int             `json:"quantity_beyond_repair"`
	QuantityLost         int             `json:"quantity_lost"`
	ReturnDate           string          `json:"return_date"`
	ReturnAction         ReturnAction    `json:"return_action"`
	ConditionNotes       string          `json:"condition_notes,omitempty"`
	DamageNotes          string          `json:"damage_notes,omitempty"`
	DamagePenalty        decimal.Decimal `json:"damage_penalty"`
}

// Validate checks the bucket invariant: every returned unit lands in exactly
// one condition bucket.
func (r *ReturnLineRequest) Validate() error {
	if r.TotalReturnQuantity < 1 {
		return NewValidationError("total_return_quantity", "must be at least 1 for line %s", r.LineID)
	}
	buckets := []int{r.QuantityGood, r.QuantityDamaged, r.QuantityBeyondRepair, r.QuantityLost}
	sum := 0
	for _, q := range buckets {
		if q < 0 {
			return NewValidationError("quantity", "negative bucket quantity for line %s", r.LineID)
		}
		sum += q
	}
	if sum != r.TotalReturnQuantity {
		return NewValidationError("quantity", "buckets sum to %d, expected %d for line %s", sum, r.TotalReturnQuantity, r.LineID)
	}
	if !r.ReturnAction.Valid() {
		return fmt.Errorf("%w for line %s", ErrUnknownReturnAction, r.LineID)
	}
	return nil
}

// ReturnSubmission is the request body of the return-direct endpoint.
type ReturnSubmission struct {
	RentalID   string              `json:"rental_id"`
	ReturnDate string              `json:"return_date"`
	Items      []ReturnLineRequest `json:"items"`
	Notes      string              `json:"notes,omitempty"`
}

// ReturnResult is the transaction summary returned by the backend.
type ReturnResult struct {
	TransactionID     string          `json:"transaction_id"`
	TransactionNumber string          `json:"transaction_number"`
	Status            string          `json:"status"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Message           string          `json:"message"`
}
