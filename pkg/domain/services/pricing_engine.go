package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// DefaultSalesWindow is the trailing window used to gauge demand
const DefaultSalesWindow = 5 * time.Minute

var (
	levelStep        = decimal.NewFromFloat(0.1)
	lowSupplyRatio   = decimal.NewFromFloat(0.3)
	highSupplyRatio  = decimal.NewFromFloat(0.8)
	conditionFactors = map[entities.WeatherCondition]decimal.Decimal{
		entities.Sunny:  decimal.NewFromFloat(1.2),
		entities.Cloudy: decimal.NewFromFloat(0.9),
		entities.Rainy:  decimal.NewFromFloat(0.6),
		entities.Stormy: decimal.NewFromFloat(0.3),
	}
)

// PricingEngine derives a stand's unit price from its base price and three multipliers
type PricingEngine struct {
	salesWindow time.Duration
}

// NewPricingEngine creates a pricing engine with the given sales window
func NewPricingEngine(salesWindow time.Duration) *PricingEngine {
	if salesWindow <= 0 {
		salesWindow = DefaultSalesWindow
	}
	return &PricingEngine{salesWindow: salesWindow}
}

// EnvironmentalMultiplier maps a weather reading to a price multiplier
func (e *PricingEngine) EnvironmentalMultiplier(signal entities.EnvironmentalSignal) decimal.Decimal {
	var temp decimal.Decimal
	switch t := signal.TemperatureC; {
	case t > 30:
		temp = decimal.NewFromFloat(1.5)
	case t > 25:
		temp = decimal.NewFromFloat(1.3)
	case t > 20:
		temp = decimal.NewFromFloat(1.1)
	case t < 10:
		temp = decimal.NewFromFloat(0.5)
	case t < 15:
		temp = decimal.NewFromFloat(0.7)
	default:
		temp = decimal.NewFromInt(1)
	}

	if f, ok := conditionFactors[signal.Condition]; ok {
		return temp.Mul(f)
	}
	return temp
}

// Recompute writes the environmental multiplier and the derived current price.
// Calling it twice with the same stand state and signal yields the same price.
func (e *PricingEngine) Recompute(stand *entities.Stand, signal entities.EnvironmentalSignal, now time.Time) decimal.Decimal {
	stand.Pricing.EnvironmentalMultiplier = e.EnvironmentalMultiplier(signal)
	stand.Pricing.CurrentPrice = stand.Pricing.Compute()
	stand.Pricing.LastUpdated = now
	return stand.Pricing.CurrentPrice
}

// ObserveSale appends a sale to the trailing window
func (e *PricingEngine) ObserveSale(stand *entities.Stand, qty entities.Quantity, now time.Time) {
	stand.RecentSales = append(stand.RecentSales, entities.SaleRecord{Quantity: qty, At: now})
	stand.TotalSold += qty
}

// NudgeDemand moves the demand level one step based on average sale size in the window
func (e *PricingEngine) NudgeDemand(stand *entities.Stand, now time.Time) {
	cutoff := now.Add(-e.salesWindow)
	kept := stand.RecentSales[:0]
	for _, s := range stand.RecentSales {
		if s.At.After(cutoff) {
			kept = append(kept, s)
		}
	}
	stand.RecentSales = kept

	if len(kept) > 0 {
		var total entities.Quantity
		for _, s := range kept {
			total += s.Quantity
		}
		count := entities.Quantity(len(kept))
		level := stand.Market.DemandLevel
		switch {
		case total > 3*count:
			level = decimal.Min(level.Add(levelStep), entities.MaxDemandLevel)
		case total < count:
			level = decimal.Max(level.Sub(levelStep), entities.MinDemandLevel)
		}
		stand.Market.DemandLevel = level
	}

	stand.Pricing.DemandMultiplier = stand.Market.DemandLevel
	stand.Market.LastDemandUpdate = now
}

// NudgeSupply moves the supply level one step based on raw stock against reference capacity
func (e *PricingEngine) NudgeSupply(stand *entities.Stand, now time.Time) {
	inv := stand.Inventory
	ratio := decimal.NewFromInt(int64(inv.TotalRaw())).Div(decimal.NewFromInt(int64(inv.RawCapacity)))

	level := stand.Market.SupplyLevel
	switch {
	case ratio.LessThan(lowSupplyRatio):
		level = decimal.Max(level.Sub(levelStep), entities.MinSupplyLevel)
	case ratio.GreaterThan(highSupplyRatio):
		level = decimal.Min(level.Add(levelStep), entities.MaxSupplyLevel)
	}
	stand.Market.SupplyLevel = level
	stand.Pricing.SupplyMultiplier = level
	stand.Market.LastSupplyUpdate = now
}
