package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/application/dto"
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/identity"
	"github.com/vsinha/marketsim/pkg/infrastructure/locking"
)

// Replenisher is invoked for stands left under their reorder threshold by a plan
type Replenisher interface {
	Check(ctx context.Context, standID, supplierID string, largeOrder bool) (*dto.ReplenishmentResult, error)
}

// Executor applies fulfillment plans to stands, suppliers and the buyer
type Executor struct {
	stands      repositories.StandRepository
	suppliers   repositories.SupplierRepository
	agents      repositories.AgentRepository
	journal     repositories.TransactionRepository
	pricing     *services.PricingEngine
	locks       *locking.KeyedMutex
	verifier    identity.Verifier
	replenisher Replenisher
	events      events.EventStore
	clock       clock.Clock
	logger      *zap.Logger
}

// NewExecutor creates a plan executor. replenisher and store may be nil.
func NewExecutor(
	stands repositories.StandRepository,
	suppliers repositories.SupplierRepository,
	agents repositories.AgentRepository,
	journal repositories.TransactionRepository,
	pricing *services.PricingEngine,
	locks *locking.KeyedMutex,
	verifier identity.Verifier,
	replenisher Replenisher,
	store events.EventStore,
	clk clock.Clock,
	logger *zap.Logger,
) *Executor {
	if verifier == nil {
		verifier = identity.AllowAll{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		stands:      stands,
		suppliers:   suppliers,
		agents:      agents,
		journal:     journal,
		pricing:     pricing,
		locks:       locks,
		verifier:    verifier,
		replenisher: replenisher,
		events:      store,
		clock:       clk,
		logger:      logger,
	}
}

// Execute applies every allocation of plan on behalf of buyerID.
//
// Each allocation is applied atomically under the locks of the entities it
// touches. A failed allocation is reported in its outcome and does not undo
// allocations applied before it.
func (e *Executor) Execute(ctx context.Context, plan *entities.FulfillmentPlan, buyerID string) (*dto.ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("plan cannot be nil: %w", entities.ErrInvalidInput)
	}
	if err := plan.Validate(); err != nil {
		panic(fmt.Sprintf("invariant violated: invalid fulfillment plan: %v", err))
	}

	if err := e.checkFunds(buyerID, plan.TotalCost); err != nil {
		return nil, err
	}

	result := &dto.ExecutionResult{
		BuyerID:           buyerID,
		RequestedQuantity: plan.RequestedQuantity,
		Charged:           decimal.Zero,
		Outcomes:          make([]dto.AllocationOutcome, 0, len(plan.Allocations)),
	}

	touched := make([]string, 0, len(plan.Allocations))
	seen := make(map[string]bool, len(plan.Allocations))
	for _, alloc := range plan.Allocations {
		now := e.clock.Now()
		outcome := dto.AllocationOutcome{Allocation: alloc}

		txIDs, err := e.apply(ctx, alloc, buyerID, now)
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
			e.logger.Warn("allocation failed",
				zap.String("stand_id", alloc.StandID),
				zap.String("tier", alloc.Tier.String()),
				zap.Int64("quantity", int64(alloc.Quantity)),
				zap.Error(err))
			e.emit(events.NewAllocationFailedEvent(alloc, buyerID, err, now))
		} else {
			outcome.Applied = true
			outcome.TransactionIDs = txIDs
			result.DeliveredQuantity += alloc.Quantity
			result.Charged = result.Charged.Add(alloc.Cost())
			e.emit(events.NewAllocationAppliedEvent(alloc, buyerID, now))
			if !seen[alloc.StandID] {
				seen[alloc.StandID] = true
				touched = append(touched, alloc.StandID)
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.Replenishments = e.replenishTouched(ctx, touched)

	failed := len(result.Failed())
	e.emit(events.NewPlanExecutedEvent(events.PlanExecutedData{
		BuyerID:           buyerID,
		RequestedQuantity: plan.RequestedQuantity,
		DeliveredQuantity: result.DeliveredQuantity,
		Charged:           result.Charged,
		Applied:           len(result.Outcomes) - failed,
		Failed:            failed,
	}, e.clock.Now()))

	e.logger.Info("plan executed",
		zap.String("buyer_id", buyerID),
		zap.Int64("requested", int64(plan.RequestedQuantity)),
		zap.Int64("delivered", int64(result.DeliveredQuantity)),
		zap.String("charged", result.Charged.StringFixed(2)),
		zap.Int("failed", failed))

	return result, nil
}

func (e *Executor) checkFunds(buyerID string, total decimal.Decimal) error {
	unlock := e.locks.Lock(locking.AgentKey(buyerID))
	defer unlock()

	agent, err := e.agents.GetAgent(buyerID)
	if err != nil {
		return fmt.Errorf("buyer %s: %w", buyerID, err)
	}
	if !agent.CanAfford(total) {
		return fmt.Errorf("buyer %s has %s, plan costs %s: %w",
			buyerID, agent.Wallet.StringFixed(2), total.StringFixed(2), entities.ErrInsufficientFunds)
	}
	return nil
}

func (e *Executor) apply(ctx context.Context, alloc entities.Allocation, buyerID string, now time.Time) ([]string, error) {
	unlock := e.locks.Lock(
		locking.StandKey(alloc.StandID),
		locking.SupplierKey(alloc.SupplierID),
		locking.AgentKey(buyerID),
	)
	defer unlock()

	stand, err := e.stands.GetStand(alloc.StandID)
	if err != nil {
		return nil, err
	}
	agent, err := e.agents.GetAgent(buyerID)
	if err != nil {
		return nil, err
	}
	if !stand.IsActive() {
		return nil, fmt.Errorf("stand %s: %w", stand.ID, entities.ErrEntityClosed)
	}

	var supplier *entities.Supplier
	if alloc.Tier.BuysFromSupplier() {
		supplier, err = e.suppliers.GetSupplier(alloc.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("supplier %s: %w", alloc.SupplierID, entities.ErrSupplierNotFound)
		}
		if !supplier.IsActive() {
			return nil, fmt.Errorf("supplier %s: %w", supplier.ID, entities.ErrEntityClosed)
		}
	}

	for _, id := range []string{buyerID, stand.ID, alloc.SupplierID} {
		if id != "" && !e.verifier.Verify(ctx, id) {
			return nil, fmt.Errorf("party %s: %w", id, entities.ErrIdentityVerificationFailed)
		}
	}

	amount := alloc.Cost()
	if !agent.CanAfford(amount) {
		return nil, fmt.Errorf("buyer %s cannot cover %s: %w", buyerID, amount.StringFixed(2), entities.ErrInsufficientFunds)
	}
	if err := recheckStock(stand, supplier, alloc); err != nil {
		return nil, err
	}

	txIDs := make([]string, 0, 2)
	switch alloc.Tier {
	case entities.TierExistingStock:
		err = stand.Inventory.ConsumeFinished(alloc.Quantity)
	case entities.TierConvertRaw:
		err = stand.Inventory.ConvertPrimary(alloc.Quantity)
	case entities.TierPreferredSupplier, entities.TierAnySupplier:
		var id string
		id, err = e.purchase(stand, supplier, alloc, now)
		if err == nil {
			txIDs = append(txIDs, id)
		}
	default:
		err = fmt.Errorf("unknown fulfillment tier %d: %w", alloc.Tier, entities.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	if err := agent.Debit(amount); err != nil {
		return nil, err
	}
	agent.Purchased += alloc.Quantity

	cogs := entities.Round2(stand.UnitProductionCost.Mul(decimal.NewFromInt(int64(alloc.Quantity))))
	stand.Financial.RecordSale(now, amount, cogs)
	e.pricing.ObserveSale(stand, alloc.Quantity, now)

	sale, err := entities.NewTransaction(now, buyerID, stand.ID, amount, alloc.Quantity, entities.CategorySale,
		fmt.Sprintf("%d units from %s (%s)", alloc.Quantity, stand.Name, alloc.Tier))
	if err != nil {
		return nil, err
	}
	if err := e.journal.AppendTransaction(sale); err != nil {
		return nil, fmt.Errorf("failed to journal sale: %w", err)
	}
	txIDs = append(txIDs, sale.ID)

	if err := e.save(stand, supplier, agent); err != nil {
		return nil, err
	}
	e.emit(events.NewSaleRecordedEvent(stand.ID, buyerID, alloc.Quantity, amount, cogs, now))
	return txIDs, nil
}

// purchase moves raw material from supplier to stand for a supplier tier allocation
func (e *Executor) purchase(stand *entities.Stand, supplier *entities.Supplier, alloc entities.Allocation, now time.Time) (string, error) {
	order, err := supplier.Sell(stand.ID, alloc.RawPurchased, alloc.SupplierUnitPrice, services.SupplierUnitCost(supplier), now)
	if err != nil {
		return "", err
	}
	stand.Financial.RecordPurchase(now, order.TotalCost)

	tx, err := entities.NewTransaction(now, stand.ID, supplier.ID, order.TotalCost, alloc.RawPurchased,
		entities.CategorySupplyPurchase,
		fmt.Sprintf("%d %s at %s for %d units", alloc.RawPurchased, entities.Lemons, alloc.SupplierUnitPrice.StringFixed(2), alloc.Quantity))
	if err != nil {
		return "", err
	}
	if err := e.journal.AppendTransaction(tx); err != nil {
		return "", fmt.Errorf("failed to journal supply purchase: %w", err)
	}
	return tx.ID, nil
}

func recheckStock(stand *entities.Stand, supplier *entities.Supplier, alloc entities.Allocation) error {
	inv := stand.Inventory
	switch alloc.Tier {
	case entities.TierExistingStock:
		if inv.FinishedGoods < alloc.Quantity {
			return fmt.Errorf("stand %s has %d finished units, allocation needs %d: %w",
				stand.ID, inv.FinishedGoods, alloc.Quantity, entities.ErrInsufficientStock)
		}
	case entities.TierConvertRaw:
		if inv.MaxConvertible() < alloc.Quantity {
			return fmt.Errorf("stand %s can convert %d units, allocation needs %d: %w",
				stand.ID, inv.MaxConvertible(), alloc.Quantity, entities.ErrInsufficientStock)
		}
	case entities.TierPreferredSupplier, entities.TierAnySupplier:
		if supplier.Stock < alloc.RawPurchased {
			return fmt.Errorf("supplier %s has %d in stock, allocation needs %d: %w",
				supplier.ID, supplier.Stock, alloc.RawPurchased, entities.ErrInsufficientStock)
		}
	}
	return nil
}

func (e *Executor) save(stand *entities.Stand, supplier *entities.Supplier, agent *entities.Agent) error {
	if err := e.stands.SaveStand(stand); err != nil {
		return fmt.Errorf("failed to save stand %s: %w", stand.ID, err)
	}
	if supplier != nil {
		if err := e.suppliers.SaveSupplier(supplier); err != nil {
			return fmt.Errorf("failed to save supplier %s: %w", supplier.ID, err)
		}
	}
	if err := e.agents.SaveAgent(agent); err != nil {
		return fmt.Errorf("failed to save agent %s: %w", agent.ID, err)
	}
	return nil
}

func (e *Executor) replenishTouched(ctx context.Context, standIDs []string) []*dto.ReplenishmentResult {
	if e.replenisher == nil {
		return nil
	}
	var results []*dto.ReplenishmentResult
	for _, id := range standIDs {
		stand, err := e.stands.GetStand(id)
		if err != nil {
			continue
		}
		unlock := e.locks.Lock(locking.StandKey(id))
		below := stand.Inventory.FinishedGoods < stand.AutoOrdering.ReorderThreshold
		unlock()
		if !below {
			continue
		}

		res, err := e.replenisher.Check(ctx, id, "", false)
		if err != nil {
			e.logger.Warn("replenishment after plan failed",
				zap.String("stand_id", id),
				zap.Error(err))
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results
}

func (e *Executor) emit(event events.Event) {
	if err := events.Publish(e.events, event); err != nil {
		e.logger.Warn("failed to publish event", zap.String("event_type", event.Type()), zap.Error(err))
	}
}
