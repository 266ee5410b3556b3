package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type ExtensionState string

const (
	ExtensionStateIdle      ExtensionState = "IDLE"
	ExtensionStateChecking  ExtensionState = "CHECKING"
	ExtensionStateAvailable ExtensionState = "AVAILABLE"
	ExtensionStateConflict  ExtensionState = "CONFLICT"
	ExtensionStateConfirmed ExtensionState = "CONFIRMED"
)

// ExtensionRequest is a candidate new end date for one line together with
// the locally computed duration and charge.
type ExtensionRequest struct {
	LineID          string          `json:"line_id"`
	CurrentEndDate  string          `json:"current_end_date"`
	NewEndDate      string          `json:"new_end_date"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ExtensionDays   int             `json:"extension_days"`
	ExtensionCharge decimal.Decimal `json:"extension_charge"`
	LocallyValid    bool            `json:"locally_valid"`
}

// AvailabilityConflict is a competing booking that blocks an extension.
type AvailabilityConflict struct {
	Key                  string `json:"key"`
	ItemName             string `json:"item_name"`
	EarliestConflictDate string `json:"earliest_conflict_date"`
}

// ConflictList keeps conflicts in the order the backend listed them. The
// backend sends an object keyed by resource id, so decoding walks the tokens
// instead of going through a map.
type ConflictList []AvailabilityConflict

func (c *ConflictList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("conflicts: expected object, got %v", tok)
	}

	var out ConflictList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("conflicts: expected key, got %v", keyTok)
		}
		var conflict AvailabilityConflict
		if err := dec.Decode(&conflict); err != nil {
			return fmt.Errorf("conflicts[%s]: %w", key, err)
		}
		conflict.Key = key
		out = append(out, conflict)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// AvailabilityResponse is the backend's answer to an availability check.
type AvailabilityResponse struct {
	CanExtend bool         `json:"can_extend"`
	Conflicts ConflictList `json:"conflicts"`
}

type PaymentRecord struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// ExtensionConfirmation is the request body that commits an extension.
type ExtensionConfirmation struct {
	LineID           string          `json:"line_id"`
	NewEndDate       string          `json:"new_end_date"`
	ExtendQuantity   int             `json:"extend_quantity"`
	ExtensionCharges decimal.Decimal `json:"extension_charges"`
	Payment          *PaymentRecord  `json:"payment,omitempty"`
}

type ExtensionResult struct {
	LineID            string          `json:"line_id"`
	NewEndDate        string          `json:"new_end_date"`
	ExtensionCharges  decimal.Decimal `json:"extension_charges"`
	TransactionNumber string          `json:"transaction_number"`
	Message           string          `json:"message"`
}
