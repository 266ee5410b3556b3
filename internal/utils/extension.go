package utils

import (
	"github.com/shopspring/decimal"

	"rentaldesk-bff/internal/domain"
)

// CalculateExtension computes the duration and charge of moving a line's end
// date to newEndDate. A new end date on or before the current one yields a
// request with LocallyValid unset and a zero charge; only unparsable dates
// are errors.
func CalculateExtension(line domain.RentalLineItem, newEndDate string) (*domain.ExtensionRequest, error) {
	days, err := DaysBetween(line.RentalEndDate, newEndDate)
	if err != nil {
		return nil, domain.NewValidationError("new_end_date", "%v", err)
	}

	req := &domain.ExtensionRequest{
		LineID:          line.ID,
		CurrentEndDate:  line.RentalEndDate,
		NewEndDate:      newEndDate,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice,
		ExtensionDays:   days,
		ExtensionCharge: decimal.Zero,
	}
	if days <= 0 {
		return req, nil
	}

	req.LocallyValid = true
	req.ExtensionCharge = line.UnitPrice.
		Mul(decimal.NewFromInt(int64(line.Quantity))).
		Mul(decimal.NewFromInt(int64(days)))
	return req, nil
}

// ExtensionEligible is the final gate for confirming an extension: the local
// day count must be positive and the backend must allow it.
func ExtensionEligible(req *domain.ExtensionRequest, availability *domain.AvailabilityResponse) bool {
	if req == nil || !req.LocallyValid {
		return false
	}
	return availability != nil && availability.CanExtend
}

// BuildExtensionConfirmation builds the body that commits an extension.
func BuildExtensionConfirmation(req *domain.ExtensionRequest, payment *domain.PaymentRecord) *domain.ExtensionConfirmation {
	return &domain.ExtensionConfirmation{
		LineID:           req.LineID,
		NewEndDate:       req.NewEndDate,
		ExtendQuantity:   req.Quantity,
		ExtensionCharges: req.ExtensionCharge,
		Payment:          payment,
	}
}
