package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentTier is one of the ordered sourcing strategies of the planner
type FulfillmentTier int

const (
	TierExistingStock FulfillmentTier = iota + 1
	TierConvertRaw
	TierPreferredSupplier
	TierAnySupplier
)

// String method for FulfillmentTier enum
func (t FulfillmentTier) String() string {
	switch t {
	case TierExistingStock:
		return "ExistingStock"
	case TierConvertRaw:
		return "ConvertRaw"
	case TierPreferredSupplier:
		return "PreferredSupplier"
	case TierAnySupplier:
		return "AnySupplier"
	default:
		return "Unknown"
	}
}

// BuysFromSupplier reports whether the tier purchases raw material upstream
func (t FulfillmentTier) BuysFromSupplier() bool {
	return t == TierPreferredSupplier || t == TierAnySupplier
}

// Allocation is one stand's share of a fulfillment plan
type Allocation struct {
	StandID           string          `json:"stand_id"`
	Quantity          Quantity        `json:"quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Tier              FulfillmentTier `json:"tier"`
	RawConsumed       Quantity        `json:"raw_consumed,omitempty"`
	SupplierID        string          `json:"supplier_id,omitempty"`
	RawPurchased      Quantity        `json:"raw_purchased,omitempty"`
	SupplierUnitPrice decimal.Decimal `json:"supplier_unit_price"`
}

// Cost returns what the buyer pays for this allocation
func (a Allocation) Cost() decimal.Decimal {
	return a.UnitCost.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// SupplierCost returns what the stand pays upstream for this allocation
func (a Allocation) SupplierCost() decimal.Decimal {
	return Round2(a.SupplierUnitPrice.Mul(decimal.NewFromInt(int64(a.RawPurchased))))
}

// FulfillmentPlan is a costed multi-source answer to a demand request
type FulfillmentPlan struct {
	RequestedQuantity Quantity        `json:"requested_quantity"`
	Allocations       []Allocation    `json:"allocations"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AllocatedQuantity sums every allocation
func (p *FulfillmentPlan) AllocatedQuantity() Quantity {
	var total Quantity
	for _, a := range p.Allocations {
		total += a.Quantity
	}
	return total
}

// Validate checks that the allocations cover the request and add up to the total
func (p *FulfillmentPlan) Validate() error {
	if p.RequestedQuantity <= 0 {
		return fmt.Errorf("requested quantity must be positive, got %d", p.RequestedQuantity)
	}
	sum := decimal.Zero
	for i, a := range p.Allocations {
		if a.Quantity <= 0 {
			return fmt.Errorf("allocation %d for stand %s has non-positive quantity %d", i, a.StandID, a.Quantity)
		}
		if a.RawPurchased < 0 || a.RawConsumed < 0 {
			return fmt.Errorf("allocation %d for stand %s has negative raw quantities", i, a.StandID)
		}
		sum = sum.Add(a.Cost())
	}
	if got := p.AllocatedQuantity(); got != p.RequestedQuantity {
		return fmt.Errorf("allocations sum to %d, requested %d", got, p.RequestedQuantity)
	}
	if !sum.Equal(p.TotalCost) {
		return fmt.Errorf("allocation costs sum to %s, plan total is %s", sum, p.TotalCost)
	}
	return nil
}

// UnsatisfiableError reports how far short the planner fell
type UnsatisfiableError struct {
	Requested Quantity
	Short     Quantity
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("cannot fulfill %d units: short by %d after all tiers", e.Requested, e.Short)
}

// Unwrap lets errors.Is match ErrAllocationUnsatisfiable
func (e *UnsatisfiableError) Unwrap() error {
	return ErrAllocationUnsatisfiable
}
