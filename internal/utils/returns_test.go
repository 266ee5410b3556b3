package utils

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldesk-bff/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func sampleLine(id string, qty int, price string, period int) domain.RentalLineItem {
	return domain.RentalLineItem{
		ID:              id,
		ItemID:          "item-" + id,
		ItemName:        "Scaffold " + id,
		Quantity:        qty,
		UnitPrice:       dec(price),
		RentalPeriod:    period,
		RentalStartDate: "2024-01-06",
		RentalEndDate:   "2024-01-10",
		Status:          domain.LineStatusActive,
	}
}

func selected(line domain.RentalLineItem, action domain.ReturnAction) domain.ReturnItemState {
	st := domain.NewReturnItemState(line)
	st.Selected = true
	st.ReturnAction = action
	return st
}

func TestCalculateReturnPreview(t *testing.T) {
	t.Run("Complete return, not overdue", func(t *testing.T) {
		in := ReturnPreviewInput{
			LateFeePerItem: dec("5"),
			DepositAmount:  dec("100"),
			Items:          []domain.ReturnItemState{selected(sampleLine("l1", 3, "50", 4), domain.ReturnActionComplete)},
		}

		p := CalculateReturnPreview(in)
		require.NotNil(t, p)
		assertDecimal(t, "600", p.RentalSubtotal)
		assertDecimal(t, "0", p.LateFees)
		assertDecimal(t, "0", p.DamagePenalties)
		assertDecimal(t, "600", p.TotalAmount)
		assertDecimal(t, "500", p.BalanceAmount)
		assert.Equal(t, 1, p.SelectedCount)
	})

	t.Run("Damaged and overdue", func(t *testing.T) {
		item := selected(sampleLine("l1", 3, "50", 4), domain.ReturnActionDamaged)
		item.DamagePenalty = dec("75")
		in := ReturnPreviewInput{
			IsOverdue:      true,
			DaysLate:       1,
			LateFeePerItem: dec("5"),
			DepositAmount:  dec("100"),
			Items:          []domain.ReturnItemState{item},
		}

		p := CalculateReturnPreview(in)
		require.NotNil(t, p)
		assertDecimal(t, "600", p.RentalSubtotal)
		assertDecimal(t, "5", p.LateFees)
		assertDecimal(t, "75", p.DamagePenalties)
		assertDecimal(t, "680", p.TotalAmount)
		assertDecimal(t, "580", p.BalanceAmount)
	})

	t.Run("Overdue without days late defaults to one day", func(t *testing.T) {
		in := ReturnPreviewInput{
			IsOverdue:      true,
			LateFeePerItem: dec("5"),
			Items: []domain.ReturnItemState{
				selected(sampleLine("l1", 1, "10", 1), domain.ReturnActionComplete),
				selected(sampleLine("l2", 1, "10", 1), domain.ReturnActionLate),
			},
		}

		p := CalculateReturnPreview(in)
		require.NotNil(t, p)
		assertDecimal(t, "10", p.LateFees) // 2 items * 5 * 1 day
	})

	t.Run("Late fee scales with days late", func(t *testing.T) {
		in := ReturnPreviewInput{
			IsOverdue:      true,
			DaysLate:       3,
			LateFeePerItem: dec("5"),
			Items:          []domain.ReturnItemState{selected(sampleLine("l1", 4, "10", 1), domain.ReturnActionComplete)},
		}

		p := CalculateReturnPreview(in)
		require.NotNil(t, p)
		assertDecimal(t, "15", p.LateFees) // per item, not per unit
	})

	t.Run("Unselected items contribute nothing", func(t *testing.T) {
		ignored := domain.NewReturnItemState(sampleLine("l2", 99, "1000", 30))
		ignored.ReturnAction = domain.ReturnActionDamaged
		ignored.DamagePenalty = dec("5000")

		in := ReturnPreviewInput{
			LateFeePerItem: dec("5"),
			Items: []domain.ReturnItemState{
				selected(sampleLine("l1", 2, "25", 2), domain.ReturnActionComplete),
				ignored,
			},
		}

		p := CalculateReturnPreview(in)
		require.NotNil(t, p)
		assertDecimal(t, "100", p.RentalSubtotal)
		assertDecimal(t, "0", p.DamagePenalties)
		assert.Equal(t, 1, p.SelectedCount)
	})

	t.Run("Partial return still charges the full line", func(t *testing.T) {
		item := selected(sampleLine("l1", 5, "20", 3), domain.ReturnActionPartial)
		item.ReturnQuantity = 2

		p := CalculateReturnPreview(ReturnPreviewInput{Items: []domain.ReturnItemState{item}})
		require.NotNil(t, p)
		assertDecimal(t, "300", p.RentalSubtotal)
	})

	t.Run("Penalty only counts for damaged action", func(t *testing.T) {
		item := selected(sampleLine("l1", 1, "10", 1), domain.ReturnActionComplete)
		item.DamagePenalty = dec("40")

		p := CalculateReturnPreview(ReturnPreviewInput{Items: []domain.ReturnItemState{item}})
		require.NotNil(t, p)
		assertDecimal(t, "0", p.DamagePenalties)
	})

	t.Run("Negative balance signals refund", func(t *testing.T) {
		p := CalculateReturnPreview(ReturnPreviewInput{
			DepositAmount: dec("500"),
			Items:         []domain.ReturnItemState{selected(sampleLine("l1", 1, "100", 2), domain.ReturnActionComplete)},
		})
		require.NotNil(t, p)
		assertDecimal(t, "-300", p.BalanceAmount)
		assert.True(t, p.IsRefund())
	})

	t.Run("Negative penalty passes through", func(t *testing.T) {
		item := selected(sampleLine("l1", 1, "100", 1), domain.ReturnActionDamaged)
		item.DamagePenalty = dec("-20")

		p := CalculateReturnPreview(ReturnPreviewInput{Items: []domain.ReturnItemState{item}})
		require.NotNil(t, p)
		assertDecimal(t, "80", p.TotalAmount)
	})

	t.Run("No selection yields nil", func(t *testing.T) {
		p := CalculateReturnPreview(ReturnPreviewInput{
			DepositAmount: dec("100"),
			Items:         []domain.ReturnItemState{domain.NewReturnItemState(sampleLine("l1", 1, "10", 1))},
		})
		assert.Nil(t, p)

		assert.Nil(t, CalculateReturnPreview(ReturnPreviewInput{}))
	})

	t.Run("Period derived from dates when missing", func(t *testing.T) {
		line := sampleLine("l1", 1, "10", 0) // 2024-01-06 to 2024-01-10
		p := CalculateReturnPreview(ReturnPreviewInput{Items: []domain.ReturnItemState{selected(line, domain.ReturnActionComplete)}})
		require.NotNil(t, p)
		assertDecimal(t, "40", p.RentalSubtotal)
	})
}

func TestMapReturnLine(t *testing.T) {
	line := sampleLine("l1", 4, "10", 2)

	t.Run("Damaged goes to damaged bucket", func(t *testing.T) {
		item := selected(line, domain.ReturnActionDamaged)
		item.ReturnQuantity = 3
		item.DamagePenalty = dec("12.50")
		item.DamageNotes = "cracked plank"

		req, err := MapReturnLine(item, "2024-01-12")
		require.NoError(t, err)
		assert.Equal(t, 3, req.TotalReturnQuantity)
		assert.Equal(t, 3, req.QuantityDamaged)
		assert.Equal(t, 0, req.QuantityGood)
		assert.Equal(t, 0, req.QuantityBeyondRepair)
		assert.Equal(t, 0, req.QuantityLost)
		assert.Equal(t, "cracked plank", req.DamageNotes)
		assertDecimal(t, "12.5", req.DamagePenalty)
	})

	for _, action := range []domain.ReturnAction{domain.ReturnActionComplete, domain.ReturnActionPartial, domain.ReturnActionLate} {
		t.Run(action.String()+" goes to good bucket", func(t *testing.T) {
			item := selected(line, action)
			item.ReturnQuantity = 2

			req, err := MapReturnLine(item, "2024-01-12")
			require.NoError(t, err)
			assert.Equal(t, 2, req.QuantityGood)
			assert.Equal(t, 0, req.QuantityDamaged)
			assert.Equal(t, action, req.ReturnAction)
			assert.Equal(t, "2024-01-12", req.ReturnDate)
			assert.Equal(t, "item-l1", req.ItemID)
		})
	}

	t.Run("Quantity out of range", func(t *testing.T) {
		for _, qty := range []int{0, -1, 5} {
			item := selected(line, domain.ReturnActionComplete)
			item.ReturnQuantity = qty
			_, err := MapReturnLine(item, "2024-01-12")
			assert.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
		}
	})

	t.Run("Unknown action is rejected", func(t *testing.T) {
		item := selected(line, domain.ReturnAction(42))
		_, err := MapReturnLine(item, "2024-01-12")
		assert.True(t, errors.Is(err, domain.ErrUnknownReturnAction))
	})
}

func TestBuildReturnSubmission(t *testing.T) {
	items := []domain.ReturnItemState{
		selected(sampleLine("l1", 2, "10", 1), domain.ReturnActionComplete),
		domain.NewReturnItemState(sampleLine("l2", 1, "10", 1)),
	}

	t.Run("Only selected lines", func(t *testing.T) {
		sub, err := BuildReturnSubmission("r1", "2024-01-12", "front desk", items)
		require.NoError(t, err)
		assert.Equal(t, "r1", sub.RentalID)
		assert.Equal(t, "front desk", sub.Notes)
		require.Len(t, sub.Items, 1)
		assert.Equal(t, "l1", sub.Items[0].LineID)
	})

	t.Run("No items selected", func(t *testing.T) {
		_, err := BuildReturnSubmission("r1", "2024-01-12", "", items[1:])
		assert.ErrorIs(t, err, domain.ErrNoItemsSelected)
		assert.Equal(t, "ValidationError: no items selected", err.Error())
	})

	t.Run("Bad return date", func(t *testing.T) {
		_, err := BuildReturnSubmission("r1", "12/01/2024", "", items)
		assert.True(t, domain.IsValidationError(err))
	})
}
