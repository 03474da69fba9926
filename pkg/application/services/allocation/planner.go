package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
)

// Planner turns a requested quantity into a costed multi-source fulfillment plan.
//
// Sourcing is a greedy pass over four tiers, each applied across every stand
// (cheapest first) before the next tier is tried:
//
//  1. finished goods already on hand
//  2. on-hand raw material converted at the stand's ratio
//  3. raw material bought from the stand's preferred supplier
//  4. raw material bought from any supplier with stock
//
// Planning never mutates stands or suppliers.
type Planner struct {
	pricing *services.SupplierPricingModel
	clock   clock.Clock
	logger  *zap.Logger
}

// NewPlanner creates a planner quoting supplier purchases with pricing
func NewPlanner(pricing *services.SupplierPricingModel, clk clock.Clock, logger *zap.Logger) *Planner {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{pricing: pricing, clock: clk, logger: logger}
}

type planState struct {
	remaining   entities.Quantity
	allocations []entities.Allocation
	stock       *StockSnapshot
}

// Plan builds a plan covering exactly quantity units or returns an *entities.UnsatisfiableError
func (p *Planner) Plan(
	ctx context.Context,
	quantity entities.Quantity,
	stands []*entities.Stand,
	suppliers []*entities.Supplier,
) (*entities.FulfillmentPlan, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("requested quantity must be positive, got %d: %w", quantity, entities.ErrInvalidInput)
	}

	candidates := activeByPrice(stands)
	suppliersByID := make(map[string]*entities.Supplier, len(suppliers))
	for _, s := range suppliers {
		suppliersByID[s.ID] = s
	}

	state := &planState{
		remaining: quantity,
		stock:     NewStockSnapshot(candidates, suppliers),
	}

	tiers := []func(context.Context, *planState, []*entities.Stand, []*entities.Supplier, map[string]*entities.Supplier){
		p.fromFinishedGoods,
		p.fromRawConversion,
		p.fromPreferredSupplier,
		p.fromAnySupplier,
	}
	for _, tier := range tiers {
		if state.remaining == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning cancelled: %w", err)
		}
		tier(ctx, state, candidates, suppliers, suppliersByID)
	}

	if state.remaining > 0 {
		p.logger.Debug("plan unsatisfiable",
			zap.Int64("requested", int64(quantity)),
			zap.Int64("short", int64(state.remaining)))
		return nil, &entities.UnsatisfiableError{Requested: quantity, Short: state.remaining}
	}

	plan := &entities.FulfillmentPlan{
		RequestedQuantity: quantity,
		Allocations:       state.allocations,
		TotalCost:         decimal.Zero,
		CreatedAt:         p.clock.Now(),
	}
	for _, a := range plan.Allocations {
		plan.TotalCost = plan.TotalCost.Add(a.Cost())
	}
	return plan, nil
}

func (p *Planner) fromFinishedGoods(_ context.Context, st *planState, stands []*entities.Stand, _ []*entities.Supplier, _ map[string]*entities.Supplier) {
	for _, stand := range stands {
		if st.remaining == 0 {
			return
		}
		took := st.stock.TakeFinished(stand.ID, st.remaining)
		if took == 0 {
			continue
		}
		st.add(entities.Allocation{
			StandID:  stand.ID,
			Quantity: took,
			UnitCost: stand.Price(),
			Tier:     entities.TierExistingStock,
		})
	}
}

func (p *Planner) fromRawConversion(_ context.Context, st *planState, stands []*entities.Stand, _ []*entities.Supplier, _ map[string]*entities.Supplier) {
	for _, stand := range stands {
		if st.remaining == 0 {
			return
		}
		units, raw := st.stock.TakeConverted(stand.ID, st.remaining)
		if units == 0 {
			continue
		}
		st.add(entities.Allocation{
			StandID:     stand.ID,
			Quantity:    units,
			UnitCost:    stand.Price(),
			Tier:        entities.TierConvertRaw,
			RawConsumed: raw,
		})
	}
}

func (p *Planner) fromPreferredSupplier(_ context.Context, st *planState, stands []*entities.Stand, _ []*entities.Supplier, byID map[string]*entities.Supplier) {
	for _, stand := range stands {
		if st.remaining == 0 {
			return
		}
		preferred := stand.AutoOrdering.PreferredSupplierID
		if preferred == "" {
			continue
		}
		supplier, ok := byID[preferred]
		if !ok {
			p.logger.Debug("preferred supplier not found, skipping stand",
				zap.String("stand_id", stand.ID),
				zap.String("supplier_id", preferred))
			continue
		}
		p.buy(st, stand, supplier, entities.TierPreferredSupplier)
	}
}

func (p *Planner) fromAnySupplier(_ context.Context, st *planState, stands []*entities.Stand, suppliers []*entities.Supplier, _ map[string]*entities.Supplier) {
	for _, stand := range stands {
		for _, supplier := range suppliers {
			if st.remaining == 0 {
				return
			}
			p.buy(st, stand, supplier, entities.TierAnySupplier)
		}
	}
}

func (p *Planner) buy(st *planState, stand *entities.Stand, supplier *entities.Supplier, tier entities.FulfillmentTier) {
	if !supplier.IsActive() {
		return
	}
	units, bought := st.stock.TakeFromSupplier(supplier.ID, st.remaining, stand.Inventory.ConversionRatio)
	if units == 0 {
		return
	}
	st.add(entities.Allocation{
		StandID:           stand.ID,
		Quantity:          units,
		UnitCost:          stand.Price(),
		Tier:              tier,
		SupplierID:        supplier.ID,
		RawPurchased:      bought,
		SupplierUnitPrice: p.pricing.QuoteWithFloor(supplier, bought),
	})
}

func (st *planState) add(a entities.Allocation) {
	st.allocations = append(st.allocations, a)
	st.remaining -= a.Quantity
}

// activeByPrice returns the active stands sorted by ascending price, ties in input order
func activeByPrice(stands []*entities.Stand) []*entities.Stand {
	active := make([]*entities.Stand, 0, len(stands))
	for _, s := range stands {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Price().LessThan(active[j].Price())
	})
	return active
}
