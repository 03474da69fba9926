package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualityTier represents a supplier's product grade
type QualityTier int

const (
	QualityStandard QualityTier = iota
	QualityPremium
	QualityBudget
)

// String method for QualityTier enum
func (q QualityTier) String() string {
	switch q {
	case QualityStandard:
		return "standard"
	case QualityPremium:
		return "premium"
	case QualityBudget:
		return "budget"
	default:
		return "unknown"
	}
}

// ParseQualityTier converts a quality name into a QualityTier
func ParseQualityTier(s string) (QualityTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return QualityStandard, nil
	case "premium":
		return QualityPremium, nil
	case "budget":
		return QualityBudget, nil
	default:
		return 0, fmt.Errorf("unknown quality tier: %s", s)
	}
}

// FarmingPractice represents how the produce is grown
type FarmingPractice int

const (
	Conventional FarmingPractice = iota
	Organic
)

// String method for FarmingPractice enum
func (f FarmingPractice) String() string {
	if f == Organic {
		return "organic"
	}
	return "conventional"
}

// SourceType represents where the produce comes from
type SourceType int

const (
	SourceDomestic SourceType = iota
	SourceLocal
	SourceImported
)

// String method for SourceType enum
func (s SourceType) String() string {
	switch s {
	case SourceDomestic:
		return "domestic"
	case SourceLocal:
		return "local"
	case SourceImported:
		return "imported"
	default:
		return "unknown"
	}
}

// ParseSourceType converts a source name into a SourceType
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "domestic":
		return SourceDomestic, nil
	case "local":
		return SourceLocal, nil
	case "imported":
		return SourceImported, nil
	default:
		return 0, fmt.Errorf("unknown source type: %s", s)
	}
}

// ValueAddedServices lists the optional services a supplier bundles
type ValueAddedServices struct {
	Washing          bool `json:"washing"`
	Sorting          bool `json:"sorting"`
	PremiumPackaging bool `json:"premium_packaging"`
	ColdStorage      bool `json:"cold_storage"`
}

// VolumeDiscount maps a minimum order quantity to a price factor
type VolumeDiscount struct {
	Threshold Quantity        `json:"threshold"`
	Factor    decimal.Decimal `json:"factor"`
}

// PricingFactors are the inputs of the wholesale pricing formula
type PricingFactors struct {
	BasePrice          decimal.Decimal    `json:"base_price"`
	QualityMultiplier  decimal.Decimal    `json:"quality_multiplier"`
	FarmingPractice    FarmingPractice    `json:"farming_practice"`
	SourceType         SourceType         `json:"source_type"`
	SeasonalAdjustment decimal.Decimal    `json:"seasonal_adjustment"`
	Services           ValueAddedServices `json:"services"`
	TransportCost      decimal.Decimal    `json:"transport_cost"`
	VolumeDiscounts    []VolumeDiscount   `json:"volume_discounts"`
	Reliability        decimal.Decimal    `json:"reliability"`
}

// ReorderPolicy configures a supplier's own restocking
type ReorderPolicy struct {
	Threshold Quantity `json:"threshold"`
	Quantity  Quantity `json:"quantity"`
	Enabled   bool     `json:"enabled"`
}

// DefaultReorderPolicy returns the standard supplier restock policy
func DefaultReorderPolicy() ReorderPolicy {
	return ReorderPolicy{Threshold: 200, Quantity: 500, Enabled: true}
}

// SupplierOrder is an immutable record of stock sold by a supplier
type SupplierOrder struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Quantity   Quantity        `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	COGS       decimal.Decimal `json:"cogs"`
	At         time.Time       `json:"at"`
}

// Supplier is an upstream seller of the primary raw material
type Supplier struct {
	Party
	Quality   QualityTier     `json:"quality"`
	Stock     Quantity        `json:"stock"`
	ListPrice decimal.Decimal `json:"list_price"`
	Factors   *PricingFactors `json:"factors,omitempty"`
	Reorder   ReorderPolicy   `json:"reorder"`
	Orders    []SupplierOrder `json:"orders"`
	TotalSold Quantity        `json:"total_sold"`
}

// NewSupplier creates a validated Supplier
func NewSupplier(id, name, location string, quality QualityTier, stock Quantity, listPrice decimal.Decimal, now time.Time) (*Supplier, error) {
	party, err := newParty(id, name, location)
	if err != nil {
		return nil, fmt.Errorf("supplier: %w", err)
	}
	if stock < 0 {
		return nil, fmt.Errorf("supplier %s: stock cannot be negative, got %d", id, stock)
	}
	if !listPrice.IsPositive() {
		return nil, fmt.Errorf("supplier %s: list price must be positive, got %s", id, listPrice)
	}

	party.Payroll = NewPayrollSchedule(now, DefaultPayrollPeriod, true)
	return &Supplier{
		Party:     party,
		Quality:   quality,
		Stock:     stock,
		ListPrice: listPrice,
		Reorder:   DefaultReorderPolicy(),
		Orders:    []SupplierOrder{},
	}, nil
}

// Withdraw removes sold stock
func (s *Supplier) Withdraw(qty Quantity) error {
	mustNotBeNegative("withdraw quantity", qty)
	if s.Stock < qty {
		return fmt.Errorf("supplier %s has %d in stock, %d requested: %w", s.ID, s.Stock, qty, ErrInsufficientStock)
	}
	s.Stock -= qty
	s.TotalSold += qty
	return nil
}

// Sell withdraws qty from stock and books the sale on the supplier's ledger
func (s *Supplier) Sell(customerID string, qty Quantity, unitPrice, unitCost decimal.Decimal, at time.Time) (SupplierOrder, error) {
	if !s.IsActive() {
		return SupplierOrder{}, fmt.Errorf("supplier %s: %w", s.ID, ErrEntityClosed)
	}
	if err := s.Withdraw(qty); err != nil {
		return SupplierOrder{}, err
	}

	q := decimal.NewFromInt(int64(qty))
	order := SupplierOrder{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
		TotalCost:  Round2(unitPrice.Mul(q)),
		COGS:       Round2(unitCost.Mul(q)),
		At:         at,
	}
	s.Financial.RecordSale(at, order.TotalCost, order.COGS)
	s.Orders = append(s.Orders, order)
	return order, nil
}

// Restock adds delivered stock
func (s *Supplier) Restock(qty Quantity) {
	mustNotBeNegative("restock quantity", qty)
	s.Stock += qty
}
