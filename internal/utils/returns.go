package utils

import (
	"fmt"

	"github.com/shopspring/decimal"

	"rentaldesk-bff/internal/domain"
)

// ReturnPreviewInput carries everything the return calculator needs.
// DaysLate is only consulted when IsOverdue is set; zero means one day.
type ReturnPreviewInput struct {
	IsOverdue      bool
	DaysLate       int
	LateFeePerItem decimal.Decimal
	DepositAmount  decimal.Decimal
	Items          []domain.ReturnItemState
}

// CalculateReturnPreview computes the financial impact of a return. It
// returns nil when no item is selected so callers cannot submit an empty
// preview.
//
// The subtotal charges each selected line for its full original quantity and
// period, regardless of how many units come back early.
func CalculateReturnPreview(in ReturnPreviewInput) *domain.FinancialPreview {
	subtotal := decimal.Zero
	damage := decimal.Zero
	selected := 0

	for _, item := range in.Items {
		if !item.Selected {
			continue
		}
		selected++

		line := item.Line
		period := int64(RentalPeriodDays(line))
		subtotal = subtotal.Add(
			line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Mul(decimal.NewFromInt(period)),
		)

		if item.ReturnAction == domain.ReturnActionDamaged {
			damage = damage.Add(item.DamagePenalty)
		}
	}

	if selected == 0 {
		return nil
	}

	lateFees := decimal.Zero
	if in.IsOverdue {
		daysLate := in.DaysLate
		if daysLate <= 0 {
			daysLate = 1
		}
		lateFees = in.LateFeePerItem.
			Mul(decimal.NewFromInt(int64(selected))).
			Mul(decimal.NewFromInt(int64(daysLate)))
	}

	total := subtotal.Add(lateFees).Add(damage)

	return &domain.FinancialPreview{
		SelectedCount:   selected,
		RentalSubtotal:  subtotal,
		LateFees:        lateFees,
		DamagePenalties: damage,
		TotalAmount:     total,
		DepositAmount:   in.DepositAmount,
		BalanceAmount:   total.Sub(in.DepositAmount),
	}
}

// ValidateReturnQuantity enforces 1 <= qty <= line quantity.
func ValidateReturnQuantity(line domain.RentalLineItem, qty int) error {
	if qty < 1 || qty > line.Quantity {
		return domain.NewValidationError("return_quantity",
			"must be between 1 and %d for line %s, got %d", line.Quantity, line.ID, qty)
	}
	return nil
}

// MapReturnLine translates one item state into the backend's per-line shape.
// Beyond-repair and lost quantities are never populated.
func MapReturnLine(item domain.ReturnItemState, returnDate string) (domain.ReturnLineRequest, error) {
	if err := ValidateReturnQuantity(item.Line, item.ReturnQuantity); err != nil {
		return domain.ReturnLineRequest{}, err
	}

	req := domain.ReturnLineRequest{
		LineID:              item.Line.ID,
		ItemID:              item.Line.ItemID,
		TotalReturnQuantity: item.ReturnQuantity,
		ReturnDate:          returnDate,
		ReturnAction:        item.ReturnAction,
		ConditionNotes:      item.ConditionNotes,
		DamageNotes:         item.DamageNotes,
		DamagePenalty:       item.DamagePenalty,
	}

	switch item.ReturnAction {
	case domain.ReturnActionDamaged:
		req.QuantityDamaged = item.ReturnQuantity
	case domain.ReturnActionLate:
		// late is a timing flag, the units themselves came back fine
		req.QuantityGood = item.ReturnQuantity
	case domain.ReturnActionComplete, domain.ReturnActionPartial:
		req.QuantityGood = item.ReturnQuantity
	default:
		return domain.ReturnLineRequest{}, fmt.Errorf("%w: %v on line %s", domain.ErrUnknownReturnAction, item.ReturnAction, item.Line.ID)
	}

	if err := req.Validate(); err != nil {
		return domain.ReturnLineRequest{}, err
	}
	return req, nil
}

// MapReturnLines maps every selected item; unselected items are skipped.
func MapReturnLines(items []domain.ReturnItemState, returnDate string) ([]domain.ReturnLineRequest, error) {
	lines := make([]domain.ReturnLineRequest, 0, len(items))
	for _, item := range items {
		if !item.Selected {
			continue
		}
		req, err := MapReturnLine(item, returnDate)
		if err != nil {
			return nil, err
		}
		lines = append(lines, req)
	}
	return lines, nil
}

// BuildReturnSubmission builds the return-direct request body.
func BuildReturnSubmission(rentalID, returnDate, notes string, items []domain.ReturnItemState) (*domain.ReturnSubmission, error) {
	if _, err := ParseDate(returnDate); err != nil {
		return nil, domain.NewValidationError("return_date", "%v", err)
	}
	lines, err := MapReturnLines(items, returnDate)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrNoItemsSelected
	}
	return &domain.ReturnSubmission{
		RentalID:   rentalID,
		ReturnDate: returnDate,
		Items:      lines,
		Notes:      notes,
	}, nil
}
