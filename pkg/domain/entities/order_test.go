package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyOrder_Validation(t *testing.T) {
	placed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	due := placed.Add(2 * time.Second)
	lines := []OrderLine{
		{Material: Lemons, Quantity: 100, UnitPrice: Money(0.5), Cost: Money(50)},
		{Material: Sugar, Quantity: 50, UnitPrice: Money(0.3), Cost: Money(15)},
	}

	order, err := NewSupplyOrder("stand-1", "supplier-1", Emergency, lines, placed, due)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, InTransit, order.Status)
	assert.True(t, decimal.NewFromInt(65).Equal(order.TotalCost))
	assert.Equal(t, Quantity(100), order.QuantityOf(Lemons))
	assert.Equal(t, Quantity(0), order.QuantityOf(Ice))

	testCases := []struct {
		name        string
		standID     string
		lines       []OrderLine
		due         time.Time
		expectError string
	}{
		{"empty stand", "", lines, due, "stand id cannot be empty"},
		{"no lines", "stand-1", nil, due, "supply order must have at least one line"},
		{"zero line", "stand-1", []OrderLine{{Material: Ice, Quantity: 0}}, due, "line quantity must be positive, got 0 for ice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSupplyOrder(tc.standID, "supplier-1", Routine, tc.lines, placed, tc.due)
			assert.EqualError(t, err, tc.expectError)
		})
	}

	_, err = NewSupplyOrder("stand-1", "supplier-1", Routine, lines, placed, placed.Add(-time.Second))
	assert.Error(t, err)
}

func TestSupplyOrder_MarkDelivered(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	order, err := NewSupplyOrder("stand-1", "supplier-1", Routine,
		[]OrderLine{{Material: Cups, Quantity: 100, UnitPrice: Money(0.1), Cost: Money(10)}}, now, now)
	require.NoError(t, err)

	order.MarkDelivered(now.Add(time.Minute))
	assert.Equal(t, Delivered, order.Status)
	assert.Equal(t, now.Add(time.Minute), order.DeliveredAt)
}

func TestOrderSeverity_String(t *testing.T) {
	assert.Equal(t, "Routine", Routine.String())
	assert.Equal(t, "Emergency", Emergency.String())
	assert.Equal(t, "Bulk", Bulk.String())
	assert.Equal(t, "Unknown", OrderSeverity(9).String())
}
