package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStand(t *testing.T) {
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	inv, err := NewInventoryLedger(DefaultMaxCapacity, DefaultConversionRatio, DefaultRawCapacity)
	require.NoError(t, err)

	s, err := NewStand("stand-1", "Pacific Beach", "San Diego", Money(2.5), inv, now)
	require.NoError(t, err)
	assert.True(t, s.IsActive())
	assert.True(t, Money(2.5).Equal(s.Price()))
	assert.True(t, DefaultUnitProductionCost.Equal(s.UnitProductionCost))
	assert.Equal(t, now.Add(DefaultPayrollPeriod), s.Payroll.NextPayrollDate)
	assert.Equal(t, Quantity(5), s.AutoOrdering.EmergencyThreshold)

	_, err = NewStand("", "x", "y", Money(1), inv, now)
	assert.EqualError(t, err, "stand: id cannot be empty")
	_, err = NewStand("s", "x", "y", decimal.Zero, inv, now)
	assert.Error(t, err)
	_, err = NewStand("s", "x", "y", Money(1), nil, now)
	assert.Error(t, err)
}

func TestPricing_Compute(t *testing.T) {
	p := Pricing{
		BasePrice:               Money(2.5),
		EnvironmentalMultiplier: Money(1.32),
		DemandMultiplier:        Money(1.1),
		SupplyMultiplier:        Money(0.9),
	}
	// 2.5 * 1.32 * 1.1 * 0.9 = 3.267
	assert.True(t, Money(3.27).Equal(p.Compute()))
	assert.True(t, p.Compute().Equal(p.Compute()))
}

func TestParseOrderingTier(t *testing.T) {
	tests := map[string]OrderingTier{
		"":         OrderingDefault,
		"premium":  OrderingPremium,
		"Midrange": OrderingMidrange,
		"budget":   OrderingBudget,
	}
	for in, want := range tests {
		got, err := ParseOrderingTier(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOrderingTier("luxury")
	assert.Error(t, err)
}

func TestSupplier_WithdrawAndRestock(t *testing.T) {
	now := time.Now()
	s, err := NewSupplier("sup-1", "Citrus Co", "Escondido", QualityPremium, 100, Money(0.5), now)
	require.NoError(t, err)

	require.NoError(t, s.Withdraw(60))
	assert.Equal(t, Quantity(40), s.Stock)
	assert.Equal(t, Quantity(60), s.TotalSold)

	err = s.Withdraw(41)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	s.Restock(500)
	assert.Equal(t, Quantity(540), s.Stock)
	assert.Equal(t, Quantity(200), s.Reorder.Threshold)
}

func TestSupplier_SellBooksOrderAndLedger(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewSupplier("sup-1", "Citrus Co", "Escondido", QualityPremium, 100, Money(0.5), now)
	require.NoError(t, err)

	order, err := s.Sell("stand-1", 40, Money(0.89), Money(0.35), now)
	require.NoError(t, err)
	assert.Equal(t, Quantity(60), s.Stock)
	assert.True(t, Money(35.6).Equal(order.TotalCost))
	assert.True(t, Money(14).Equal(order.COGS))
	require.Len(t, s.Orders, 1)
	assert.True(t, Money(35.6).Equal(s.Financial.Revenue))
	assert.True(t, Money(21.6).Equal(s.Financial.NetProfit))

	_, err = s.Sell("stand-1", 61, Money(0.89), Money(0.35), now)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Len(t, s.Orders, 1)

	s.Status = Closed
	_, err = s.Sell("stand-1", 1, Money(0.89), Money(0.35), now)
	assert.True(t, errors.Is(err, ErrEntityClosed))
}

func TestAgent_Debit(t *testing.T) {
	a, err := NewAgent("agent-1", "Buyer", Money(10))
	require.NoError(t, err)

	require.NoError(t, a.Debit(Money(7.5)))
	assert.True(t, Money(2.5).Equal(a.Wallet))

	err = a.Debit(Money(3))
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.True(t, Money(2.5).Equal(a.Wallet))
}
