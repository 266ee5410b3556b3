package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnAction_JSON(t *testing.T) {
	t.Run("Round trip of every action", func(t *testing.T) {
		for action, name := range returnActionNames {
			data, err := json.Marshal(action)
			require.NoError(t, err)
			assert.Equal(t, `"`+name+`"`, string(data))

			var decoded ReturnAction
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, action, decoded)
		}
	})

	t.Run("Unknown action fails to decode", func(t *testing.T) {
		var item struct {
			Action ReturnAction `json:"return_action"`
		}
		err := json.Unmarshal([]byte(`{"return_action":"MARK_LOST"}`), &item)
		assert.True(t, errors.Is(err, ErrUnknownReturnAction))
	})

	t.Run("Zero value fails to encode", func(t *testing.T) {
		_, err := json.Marshal(ReturnAction(0))
		assert.Error(t, err)
	})
}

func TestConflictList_PreservesBackendOrder(t *testing.T) {
	body := `{
		"can_extend": false,
		"conflicts": {
			"z-900": {"item_name": "Generator", "earliest_conflict_date": "2024-01-14"},
			"a-100": {"item_name": "Ladder", "earliest_conflict_date": "2024-01-12"},
			"m-500": {"item_name": "Trailer", "earliest_conflict_date": "2024-01-20"}
		}
	}`

	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.False(t, resp.CanExtend)
	require.Len(t, resp.Conflicts, 3)
	assert.Equal(t, "z-900", resp.Conflicts[0].Key)
	assert.Equal(t, "Generator", resp.Conflicts[0].ItemName)
	assert.Equal(t, "a-100", resp.Conflicts[1].Key)
	assert.Equal(t, "m-500", resp.Conflicts[2].Key)
	assert.Equal(t, "2024-01-20", resp.Conflicts[2].EarliestConflictDate)
}

func TestConflictList_NullAndEmpty(t *testing.T) {
	var resp AvailabilityResponse
	require.NoError(t, json.Unmarshal([]byte(`{"can_extend": true, "conflicts": null}`), &resp))
	assert.Empty(t, resp.Conflicts)

	require.NoError(t, json.Unmarshal([]byte(`{"can_extend": true, "conflicts": {}}`), &resp))
	assert.Empty(t, resp.Conflicts)

	err := json.Unmarshal([]byte(`{"conflicts": [1,2]}`), &resp)
	assert.Error(t, err)
}

func TestReturnLineRequest_Validate(t *testing.T) {
	valid := ReturnLineRequest{LineID: "l1", TotalReturnQuantity: 3, QuantityGood: 2, QuantityDamaged: 1, ReturnAction: ReturnActionPartial}
	assert.NoError(t, valid.Validate())

	mismatch := valid
	mismatch.QuantityLost = 1
	assert.True(t, IsValidationError(mismatch.Validate()))

	empty := ReturnLineRequest{LineID: "l1", ReturnAction: ReturnActionComplete}
	assert.True(t, IsValidationError(empty.Validate()))

	noAction := valid
	noAction.ReturnAction = 0
	assert.ErrorIs(t, noAction.Validate(), ErrUnknownReturnAction)
}

func TestRental_Line(t *testing.T) {
	r := &Rental{Lines: []RentalLineItem{{ID: "a"}, {ID: "b"}}}
	require.NotNil(t, r.Line("b"))
	assert.Equal(t, "b", r.Line("b").ID)
	assert.Nil(t, r.Line("c"))
}
