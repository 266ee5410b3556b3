package domain

import "github.com/shopspring/decimal"

type LineStatus string

const (
	LineStatusActive            LineStatus = "ACTIVE"
	LineStatusPartiallyReturned LineStatus = "PARTIALLY_RETURNED"
	LineStatusReturned          LineStatus = "RETURNED"
	LineStatusOverdue           LineStatus = "OVERDUE"
	LineStatusExtended          LineStatus = "EXTENDED"
)

// RentalLineItem is one leased line of a rental transaction as reported by
// the backend. It is treated as immutable for the duration of a workflow.
type RentalLineItem struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"item_id"`
	ItemName        string          `json:"item_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	RentalPeriod    int             `json:"rental_period"` // days
	RentalStartDate string          `json:"rental_start_date"`
	RentalEndDate   string          `json:"rental_end_date"`
	Status          LineStatus      `json:"current_rental_status"`
}

// Rental is the subset of a rental transaction the return and extension
// workflows need.
type Rental struct {
	ID                string           `json:"id"`
	TransactionNumber string           `json:"transaction_number"`
	CustomerName      string           `json:"customer_name"`
	CustomerEmail     string           `json:"customer_email"`
	IsOverdue         bool             `json:"is_overdue"`
	DaysLate          int              `json:"days_overdue"`
	DepositAmount     decimal.Decimal  `json:"deposit_amount"`
	Lines             []RentalLineItem `json:"lines"`
}

// Line returns the line with the given id, or nil.
func (r *Rental) Line(lineID string) *RentalLineItem {
	for i := range r.Lines {
		if r.Lines[i].ID == lineID {
			return &r.Lines[i]
		}
	}
	return nil
}
