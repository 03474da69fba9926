package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

var (
	organicPremium     = decimal.NewFromFloat(1.3)
	washingSurcharge   = decimal.NewFromFloat(0.02)
	sortingSurcharge   = decimal.NewFromFloat(0.03)
	packagingSurcharge = decimal.NewFromFloat(0.05)
	coldSurcharge      = decimal.NewFromFloat(0.03)
	baseReliability    = decimal.NewFromFloat(0.9)
	reliabilityWeight  = decimal.NewFromFloat(0.1)

	sourceMultipliers = map[entities.SourceType]decimal.Decimal{
		entities.SourceLocal:    decimal.NewFromFloat(1.1),
		entities.SourceImported: decimal.NewFromFloat(0.9),
		entities.SourceDomestic: decimal.NewFromInt(1),
	}

	unitCostByQuality = map[entities.QualityTier]decimal.Decimal{
		entities.QualityPremium:  decimal.NewFromFloat(0.35),
		entities.QualityStandard: decimal.NewFromFloat(0.28),
		entities.QualityBudget:   decimal.NewFromFloat(0.20),
	}
	defaultUnitCost = decimal.NewFromFloat(0.25)
)

// SupplierPricingModel computes wholesale unit prices for the primary raw material
type SupplierPricingModel struct {
	floor decimal.Decimal
}

// NewSupplierPricingModel creates a pricing model that never quotes below floor
func NewSupplierPricingModel(floor decimal.Decimal) *SupplierPricingModel {
	return &SupplierPricingModel{floor: floor}
}

// Floor returns the minimum unit price enforced by QuoteWithFloor
func (m *SupplierPricingModel) Floor() decimal.Decimal {
	return m.floor
}

// Quote returns the unit price for buying qty units from a supplier.
// Suppliers without pricing factors quote their list price.
func (m *SupplierPricingModel) Quote(supplier *entities.Supplier, qty entities.Quantity) decimal.Decimal {
	f := supplier.Factors
	if f == nil {
		return entities.Round2(supplier.ListPrice)
	}

	price := f.BasePrice.Mul(f.QualityMultiplier)
	if f.FarmingPractice == entities.Organic {
		price = price.Mul(organicPremium)
	}
	if mult, ok := sourceMultipliers[f.SourceType]; ok {
		price = price.Mul(mult)
	}
	price = price.Mul(f.SeasonalAdjustment)

	if f.Services.Washing {
		price = price.Add(washingSurcharge)
	}
	if f.Services.Sorting {
		price = price.Add(sortingSurcharge)
	}
	if f.Services.PremiumPackaging {
		price = price.Add(packagingSurcharge)
	}
	if f.Services.ColdStorage {
		price = price.Add(coldSurcharge)
	}
	price = price.Add(f.TransportCost)

	price = price.Mul(VolumeDiscount(f.VolumeDiscounts, qty))
	price = price.Mul(ReliabilityAdjustment(f.Reliability))

	return entities.Round2(price)
}

// QuoteWithFloor returns Quote clamped to the configured floor
func (m *SupplierPricingModel) QuoteWithFloor(supplier *entities.Supplier, qty entities.Quantity) decimal.Decimal {
	return decimal.Max(m.Quote(supplier, qty), m.floor)
}

// VolumeDiscount returns the factor of the highest threshold not exceeding qty, or 1
func VolumeDiscount(table []entities.VolumeDiscount, qty entities.Quantity) decimal.Decimal {
	sorted := make([]entities.VolumeDiscount, len(table))
	copy(sorted, table)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Threshold > sorted[j].Threshold
	})

	for _, d := range sorted {
		if qty >= d.Threshold {
			return d.Factor
		}
	}
	return decimal.NewFromInt(1)
}

// ReliabilityAdjustment returns 1 + (reliability - 0.9) * 0.1
func ReliabilityAdjustment(reliability decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(reliability.Sub(baseReliability).Mul(reliabilityWeight))
}

// SupplierUnitCost returns the supplier's own cost per unit sold
func SupplierUnitCost(supplier *entities.Supplier) decimal.Decimal {
	if supplier.Factors == nil {
		return defaultUnitCost
	}
	if c, ok := unitCostByQuality[supplier.Quality]; ok {
		return c
	}
	return defaultUnitCost
}

// NextDiscountThreshold returns the smallest threshold strictly above qty
func NextDiscountThreshold(table []entities.VolumeDiscount, qty entities.Quantity) (entities.Quantity, bool) {
	var next entities.Quantity
	found := false
	for _, d := range table {
		if d.Threshold > qty && (!found || d.Threshold < next) {
			next = d.Threshold
			found = true
		}
	}
	return next, found
}

var (
	restockBasePrice = decimal.NewFromFloat(0.50)
	restockMinPrice  = decimal.NewFromFloat(0.30)
	restockMaxPrice  = decimal.NewFromFloat(0.80)
	restockNormStock = decimal.NewFromInt(1000)
)

// SeasonalDemandFactor returns the wholesale demand swing for a month
func SeasonalDemandFactor(month time.Month) decimal.Decimal {
	switch {
	case month >= time.June && month <= time.September:
		return decimal.NewFromFloat(0.3)
	case month == time.December || month <= time.March:
		return decimal.NewFromFloat(-0.2)
	default:
		return decimal.Zero
	}
}

// AdjustedListPrice reprices a supplier's list price from season and stock on hand,
// clamped to [0.30, 0.80]
func AdjustedListPrice(stock entities.Quantity, month time.Month) decimal.Decimal {
	supply := decimal.NewFromInt(int64(stock)).Div(restockNormStock)
	one := decimal.NewFromInt(1)
	price := restockBasePrice.
		Mul(one.Add(SeasonalDemandFactor(month))).
		Mul(one.Add(one.Sub(supply)))
	price = decimal.Max(restockMinPrice, decimal.Min(restockMaxPrice, price))
	return entities.Round2(price)
}
