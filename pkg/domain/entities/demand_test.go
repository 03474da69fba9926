package entities

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFulfillmentPlan_Validate(t *testing.T) {
	price := Money(3)
	valid := func() *FulfillmentPlan {
		return &FulfillmentPlan{
			RequestedQuantity: 15,
			Allocations: []Allocation{
				{StandID: "a", Quantity: 10, UnitCost: price, Tier: TierExistingStock},
				{StandID: "a", Quantity: 5, UnitCost: price, Tier: TierConvertRaw, RawConsumed: 10},
			},
			TotalCost: decimal.NewFromInt(45),
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(p *FulfillmentPlan)
	}{
		{"short quantity", func(p *FulfillmentPlan) { p.RequestedQuantity = 20 }},
		{"wrong total", func(p *FulfillmentPlan) { p.TotalCost = decimal.NewFromInt(44) }},
		{"zero allocation", func(p *FulfillmentPlan) { p.Allocations[0].Quantity = 0 }},
		{"negative raw", func(p *FulfillmentPlan) { p.Allocations[1].RawConsumed = -2 }},
		{"empty request", func(p *FulfillmentPlan) { p.RequestedQuantity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestUnsatisfiableError_MatchesSentinel(t *testing.T) {
	var err error = &UnsatisfiableError{Requested: 1000, Short: 740}
	assert.True(t, errors.Is(err, ErrAllocationUnsatisfiable))
	assert.False(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, "cannot fulfill 1000 units: short by 740 after all tiers", err.Error())
}

func TestFulfillmentTier_BuysFromSupplier(t *testing.T) {
	assert.False(t, TierExistingStock.BuysFromSupplier())
	assert.False(t, TierConvertRaw.BuysFromSupplier())
	assert.True(t, TierPreferredSupplier.BuysFromSupplier())
	assert.True(t, TierAnySupplier.BuysFromSupplier())
}
