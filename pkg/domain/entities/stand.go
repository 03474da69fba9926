package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderingTier selects the lemon ordering heuristic a stand follows
type OrderingTier int

const (
	OrderingDefault OrderingTier = iota
	OrderingPremium
	OrderingMidrange
	OrderingBudget
)

// String method for OrderingTier enum
func (t OrderingTier) String() string {
	switch t {
	case OrderingDefault:
		return "default"
	case OrderingPremium:
		return "premium"
	case OrderingMidrange:
		return "midrange"
	case OrderingBudget:
		return "budget"
	default:
		return "unknown"
	}
}

// ParseOrderingTier converts a tier name into an OrderingTier
func ParseOrderingTier(s string) (OrderingTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default", "none":
		return OrderingDefault, nil
	case "premium":
		return OrderingPremium, nil
	case "midrange", "mid-range":
		return OrderingMidrange, nil
	case "budget":
		return OrderingBudget, nil
	default:
		return 0, fmt.Errorf("unknown ordering tier: %s", s)
	}
}

// Demand and supply level bounds
var (
	MinDemandLevel = decimal.NewFromFloat(0.5)
	MaxDemandLevel = decimal.NewFromInt(2)
	MinSupplyLevel = decimal.NewFromFloat(0.5)
	MaxSupplyLevel = decimal.NewFromFloat(1.5)
)

// DefaultUnitProductionCost is the ingredient cost of one finished unit
var DefaultUnitProductionCost = decimal.NewFromFloat(1.80)

// Pricing holds a stand's base price, its multipliers and the derived price
type Pricing struct {
	BasePrice               decimal.Decimal `json:"base_price"`
	EnvironmentalMultiplier decimal.Decimal `json:"environmental_multiplier"`
	DemandMultiplier        decimal.Decimal `json:"demand_multiplier"`
	SupplyMultiplier        decimal.Decimal `json:"supply_multiplier"`
	CurrentPrice            decimal.Decimal `json:"current_price"`
	LastUpdated             time.Time       `json:"last_updated"`
}

// Compute returns round2(base * env * demand * supply)
func (p Pricing) Compute() decimal.Decimal {
	return Round2(p.BasePrice.
		Mul(p.EnvironmentalMultiplier).
		Mul(p.DemandMultiplier).
		Mul(p.SupplyMultiplier))
}

// MarketDynamics holds the bounded demand and supply levels
type MarketDynamics struct {
	DemandLevel      decimal.Decimal `json:"demand_level"`
	SupplyLevel      decimal.Decimal `json:"supply_level"`
	LastDemandUpdate time.Time       `json:"last_demand_update"`
	LastSupplyUpdate time.Time       `json:"last_supply_update"`
}

// SaleRecord is one entry in the trailing sales window
type SaleRecord struct {
	Quantity Quantity  `json:"quantity"`
	At       time.Time `json:"at"`
}

// AutoOrderingPolicy configures replenishment for a stand
type AutoOrderingPolicy struct {
	Enabled             bool                  `json:"enabled"`
	Thresholds          map[Material]Quantity `json:"thresholds"`
	MakeMoreThreshold   Quantity              `json:"make_more_threshold"`
	MaxFinishedTarget   Quantity              `json:"max_finished_target"`
	EmergencyThreshold  Quantity              `json:"emergency_threshold"`
	ReorderThreshold    Quantity              `json:"reorder_threshold"`
	PreferredSupplierID string                `json:"preferred_supplier_id"`
}

// DefaultAutoOrderingPolicy returns the standard replenishment policy
func DefaultAutoOrderingPolicy(preferredSupplierID string) AutoOrderingPolicy {
	return AutoOrderingPolicy{
		Enabled: true,
		Thresholds: map[Material]Quantity{
			Lemons: 10,
			Sugar:  5,
			Cups:   25,
			Ice:    10,
		},
		MakeMoreThreshold:   25,
		MaxFinishedTarget:   75,
		EmergencyThreshold:  5,
		ReorderThreshold:    25,
		PreferredSupplierID: preferredSupplierID,
	}
}

// Stand is a retail seller of finished goods
type Stand struct {
	Party
	Inventory          *InventoryLedger   `json:"inventory"`
	Pricing            Pricing            `json:"pricing"`
	Market             MarketDynamics     `json:"market"`
	RecentSales        []SaleRecord       `json:"recent_sales"`
	TotalSold          Quantity           `json:"total_sold"`
	AutoOrdering       AutoOrderingPolicy `json:"auto_ordering"`
	OrderingTier       OrderingTier       `json:"ordering_tier"`
	UnitProductionCost decimal.Decimal    `json:"unit_production_cost"`
	AgentID            string             `json:"agent_id"`
}

// NewStand creates a validated Stand with neutral multipliers
func NewStand(id, name, location string, basePrice decimal.Decimal, inventory *InventoryLedger, now time.Time) (*Stand, error) {
	party, err := newParty(id, name, location)
	if err != nil {
		return nil, fmt.Errorf("stand: %w", err)
	}
	if !basePrice.IsPositive() {
		return nil, fmt.Errorf("stand %s: base price must be positive, got %s", id, basePrice)
	}
	if inventory == nil {
		return nil, fmt.Errorf("stand %s: inventory cannot be nil", id)
	}

	party.Payroll = NewPayrollSchedule(now, DefaultPayrollPeriod, true)
	s := &Stand{
		Party:     party,
		Inventory: inventory,
		Pricing: Pricing{
			BasePrice:               basePrice,
			EnvironmentalMultiplier: decimal.NewFromInt(1),
			DemandMultiplier:        decimal.NewFromInt(1),
			SupplyMultiplier:        decimal.NewFromInt(1),
			LastUpdated:             now,
		},
		Market: MarketDynamics{
			DemandLevel:      decimal.NewFromInt(1),
			SupplyLevel:      decimal.NewFromInt(1),
			LastDemandUpdate: now,
			LastSupplyUpdate: now,
		},
		RecentSales:        []SaleRecord{},
		AutoOrdering:       DefaultAutoOrderingPolicy(""),
		UnitProductionCost: DefaultUnitProductionCost,
	}
	s.Pricing.CurrentPrice = s.Pricing.Compute()
	return s, nil
}

// Price returns the stand's current unit price
func (s *Stand) Price() decimal.Decimal {
	return s.Pricing.CurrentPrice
}
