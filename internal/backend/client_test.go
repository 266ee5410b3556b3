package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/session"
)

var testSession = &session.Session{UserID: "42", Token: "tok"}

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.BackendConfig{BaseURL: server.URL + "/api/v1", TimeoutSeconds: 5}, nil)
}

func TestGetRental(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/transactions/rentals/r-7", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get(HeaderRequestID))
		assert.Empty(t, r.Header.Get(HeaderIdempotencyKey))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "r-7",
			"transaction_number": "RNT-0007",
			"is_overdue": true,
			"days_overdue": 2,
			"deposit_amount": "100",
			"lines": [{"id": "l1", "item_id": "i1", "item_name": "Drill", "quantity": 3, "unit_price": "50", "rental_period": 4}]
		}`)
	})

	ctx := logger.WithRequestID(context.Background(), "req-1")
	rental, err := client.GetRental(ctx, testSession, "r-7")
	require.NoError(t, err)
	assert.Equal(t, "RNT-0007", rental.TransactionNumber)
	assert.Equal(t, 2, rental.DaysLate)
	require.Len(t, rental.Lines, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(rental.Lines[0].UnitPrice))
}

func TestSubmitReturn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transactions/rentals/r-7/return-direct", r.URL.Path)
		assert.Equal(t, "idem-1", r.Header.Get(HeaderIdempotencyKey))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r-7", body["rental_id"])
		items := body["items"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, "MARK_DAMAGED", items[0].(map[string]interface{})["return_action"])

		io.WriteString(w, `{"transaction_id":"t1","transaction_number":"RET-1","status":"COMPLETED","total_amount":"680"}`)
	})

	sub := &domain.ReturnSubmission{
		RentalID:   "r-7",
		ReturnDate: "2024-01-10",
		Items: []domain.ReturnLineRequest{{
			LineID:              "l1",
			TotalReturnQuantity: 3,
			QuantityDamaged:     3,
			ReturnAction:        domain.ReturnActionDamaged,
			DamagePenalty:       decimal.NewFromInt(75),
		}},
	}
	result, err := client.SubmitReturn(context.Background(), testSession, sub, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "RET-1", result.TransactionNumber)
}

func TestCheckAvailability_PreservesConflictOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rental-extensions/l1/availability", r.URL.Path)
		assert.Equal(t, "2024-01-17", r.URL.Query().Get("new_end_date"))
		io.WriteString(w, `{"can_extend":false,"conflicts":{
			"z-9":{"item_name":"Saw","earliest_conflict_date":"2024-01-12"},
			"a-1":{"item_name":"Drill","earliest_conflict_date":"2024-01-15"}}}`)
	})

	resp, err := client.CheckAvailability(context.Background(), testSession, "l1", "2024-01-17")
	require.NoError(t, err)
	assert.False(t, resp.CanExtend)
	require.Len(t, resp.Conflicts, 2)
	assert.Equal(t, "z-9", resp.Conflicts[0].Key)
	assert.Equal(t, "a-1", resp.Conflicts[1].Key)
}

func TestConfirmExtension(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/rental-extensions/l1/extend", r.URL.Path)
		assert.Equal(t, "idem-2", r.Header.Get(HeaderIdempotencyKey))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-01-17", body["new_end_date"])
		io.WriteString(w, `{"line_id":"l1","new_end_date":"2024-01-17","extension_charges":"1400","transaction_number":"EXT-1"}`)
	})

	result, err := client.ConfirmExtension(context.Background(), testSession, &domain.ExtensionConfirmation{
		LineID:           "l1",
		NewEndDate:       "2024-01-17",
		ExtendQuantity:   2,
		ExtensionCharges: decimal.NewFromInt(1400),
	}, "idem-2")
	require.NoError(t, err)
	assert.Equal(t, "EXT-1", result.TransactionNumber)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
		display string
	}{
		{
			name:    "422 detail array",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"loc":["body","items",0,"quantity_good"],"msg":"quantity exceeds rented quantity","type":"value_error"}]}`,
			kind:    KindValidation,
			message: "quantity exceeds rented quantity",
			display: "quantity exceeds rented quantity",
		},
		{
			name:    "422 without detail",
			status:  http.StatusUnprocessableEntity,
			body:    `not json`,
			kind:    KindValidation,
			display: msgValidation,
		},
		{
			name:    "404",
			status:  http.StatusNotFound,
			body:    `{"detail":"Rental not found"}`,
			kind:    KindNotFound,
			message: "Rental not found",
			display: msgNotFound,
		},
		{
			name:    "409",
			status:  http.StatusConflict,
			body:    `{"detail":"Rental already returned"}`,
			kind:    KindConflict,
			message: "Rental already returned",
			display: "Rental already returned",
		},
		{name: "401", status: http.StatusUnauthorized, body: `{}`, kind: KindUnauthorized, display: msgUnauthorized},
		{name: "403", status: http.StatusForbidden, body: `{}`, kind: KindUnauthorized, display: msgForbidden},
		{name: "500", status: http.StatusInternalServerError, body: ``, kind: KindServer, display: msgServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.GetRental(context.Background(), testSession, "r-1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.display, UserMessage(err))
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.BackendConfig{BaseURL: url, TimeoutSeconds: 1}, nil)
	_, err := client.GetRental(context.Background(), testSession, "r-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.True(t, apiErr.Retryable())
	assert.Equal(t, msgServer, UserMessage(err))
}

func TestUserMessage_Local(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "no items selected", UserMessage(domain.ErrNoItemsSelected))
	assert.Equal(t, "new_end_date: must be after 2024-01-10",
		UserMessage(domain.NewValidationError("new_end_date", "must be after %s", "2024-01-10")))
	assert.Equal(t, domain.ErrRequestInFlight.Error(), UserMessage(domain.ErrRequestInFlight))
	assert.Equal(t, msgServer, UserMessage(errors.New("boom")))
}

func TestFieldError_Field(t *testing.T) {
	f := FieldError{Loc: []interface{}{"body", "items", float64(0), "quantity_good"}}
	assert.Equal(t, "items.0.quantity_good", f.Field())
}
