package replenishment

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
	"github.com/vsinha/marketsim/pkg/infrastructure/schedule"
)

// bumpWindow is how far below a volume-discount threshold a routine lemon order is rounded up
const bumpWindow entities.Quantity = 20

var (
	emergencyQuantities = map[entities.Material]entities.Quantity{
		entities.Lemons: 100,
		entities.Sugar:  50,
		entities.Cups:   200,
		entities.Ice:    100,
	}
	bulkQuantities = map[entities.Material]entities.Quantity{
		entities.Lemons: 150,
		entities.Sugar:  75,
		entities.Cups:   300,
		entities.Ice:    150,
	}
	routineQuantities = map[entities.Material]entities.Quantity{
		entities.Sugar: 25,
		entities.Cups:  100,
		entities.Ice:   50,
	}
)

// Settings holds delivery timing and flat ancillary material prices
type Settings struct {
	StandDeliveryDelay    time.Duration
	SupplierDeliveryDelay time.Duration
	AncillaryPrices       map[entities.Material]decimal.Decimal
}

// DefaultSettings returns the standard delivery delays and ancillary prices
func DefaultSettings() Settings {
	return Settings{
		StandDeliveryDelay:    2 * time.Second,
		SupplierDeliveryDelay: 3 * time.Second,
		AncillaryPrices: map[entities.Material]decimal.Decimal{
			entities.Sugar: decimal.NewFromFloat(0.30),
			entities.Cups:  decimal.NewFromFloat(0.10),
			entities.Ice:   decimal.NewFromFloat(0.20),
		},
	}
}

// Controller keeps stands stocked: it produces finished goods from raw stock
// and places supply orders whose delivery runs later on the schedule queue.
type Controller struct {
	stands    repositories.StandRepository
	suppliers repositories.SupplierRepository
	orders    repositories.SupplyOrderRepository
	journal   repositories.TransactionRepository
	pricing   *services.SupplierPricingModel
	locks     *locking.KeyedMutex
	verifier  identity.Verifier
	queue     *schedule.Queue
	events    events.EventStore
	clock     clock.Clock
	settings  Settings
	logger    *zap.Logger
}

// NewController creates a replenishment controller. store may be nil.
func NewController(
	stands repositories.StandRepository,
	suppliers repositories.SupplierRepository,
	orders repositories.SupplyOrderRepository,
	journal repositories.TransactionRepository,
	pricing *services.SupplierPricingModel,
	locks *locking.KeyedMutex,
	verifier identity.Verifier,
	queue *schedule.Queue,
	store events.EventStore,
	clk clock.Clock,
	settings Settings,
	logger *zap.Logger,
) *Controller {
	if verifier == nil {
		verifier = identity.AllowAll{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		stands:    stands,
		suppliers: suppliers,
		orders:    orders,
		journal:   journal,
		pricing:   pricing,
		locks:     locks,
		verifier:  verifier,
		queue:     queue,
		events:    store,
		clock:     clk,
		settings:  settings,
		logger:    logger,
	}
}

// Check runs one replenishment pass for a stand. An empty supplierID uses the
// stand's preferred supplier. Orders are chosen by severity: emergency when
// finished goods are at or under the emergency threshold, bulk when largeOrder
// is set, otherwise routine per-material thresholds.
func (c *Controller) Check(ctx context.Context, standID, supplierID string, largeOrder bool) (*dto.ReplenishmentResult, error) {
	stand, err := c.stands.GetStand(standID)
	if err != nil {
		return nil, fmt.Errorf("stand %s: %w", standID, err)
	}
	if supplierID == "" {
		supplierID = stand.AutoOrdering.PreferredSupplierID
	}

	unlock := c.locks.Lock(locking.StandKey(standID), locking.SupplierKey(supplierID))
	defer unlock()

	result := &dto.ReplenishmentResult{StandID: standID, SupplierID: supplierID}
	if !stand.AutoOrdering.Enabled {
		result.Disabled = true
		return result, nil
	}
	if !stand.IsActive() {
		return result, fmt.Errorf("stand %s: %w", standID, entities.ErrEntityClosed)
	}

	now := c.clock.Now()
	var supplier *entities.Supplier
	if supplierID != "" {
		if s, err := c.suppliers.GetSupplier(supplierID); err == nil {
			supplier = s
		}
	}

	severity, wants := c.assess(stand, supplier, largeOrder)

	made, err := c.makeMore(stand, now)
	if err != nil {
		c.logger.Warn("make more failed", zap.String("stand_id", standID), zap.Error(err))
	}
	result.Produced = made

	if len(wants) == 0 {
		return result, c.stands.SaveStand(stand)
	}
	if supplier == nil {
		if err := c.stands.SaveStand(stand); err != nil {
			return result, err
		}
		return result, fmt.Errorf("stand %s has no usable supplier %q: %w", standID, supplierID, entities.ErrSupplierNotFound)
	}

	order, suitability, err := c.placeOrder(ctx, stand, supplier, severity, wants, now)
	if err != nil {
		return result, err
	}
	result.Order = order
	result.Suitability = suitability
	return result, nil
}

// assess returns the order severity and the quantity wanted per material
func (c *Controller) assess(stand *entities.Stand, supplier *entities.Supplier, largeOrder bool) (entities.OrderSeverity, map[entities.Material]entities.Quantity) {
	policy := stand.AutoOrdering
	inv := stand.Inventory

	switch {
	case inv.FinishedGoods <= policy.EmergencyThreshold:
		return entities.Emergency, copyQuantities(emergencyQuantities)
	case largeOrder:
		return entities.Bulk, copyQuantities(bulkQuantities)
	}

	wants := make(map[entities.Material]entities.Quantity)
	for _, m := range entities.Materials {
		threshold, ok := policy.Thresholds[m]
		if !ok || inv.RawOnHand(m) > threshold {
			continue
		}
		if m == entities.Lemons {
			wants[m] = RoutineLemonQuantity(stand.OrderingTier, supplier)
			continue
		}
		wants[m] = routineQuantities[m]
	}
	return entities.Routine, wants
}

// RoutineLemonQuantity picks a routine lemon order size from the stand's ordering tier
// and the supplier's quality, rounded up to a nearby volume-discount threshold
func RoutineLemonQuantity(tier entities.OrderingTier, supplier *entities.Supplier) entities.Quantity {
	quality := entities.QualityStandard
	if supplier != nil {
		quality = supplier.Quality
	}

	var qty entities.Quantity
	switch tier {
	case entities.OrderingPremium:
		qty = 60
		if quality == entities.QualityPremium {
			qty = 75
		}
	case entities.OrderingMidrange:
		qty = 55
		if quality == entities.QualityStandard || quality == entities.QualityPremium {
			qty = 65
		}
	case entities.OrderingBudget:
		qty = 45
		if quality == entities.QualityBudget {
			qty = 80
		}
	default:
		qty = 50
	}

	if supplier != nil && supplier.Factors != nil {
		if next, ok := services.NextDiscountThreshold(supplier.Factors.VolumeDiscounts, qty); ok && next-qty <= bumpWindow {
			qty = next
		}
	}
	return qty
}

// makeMore produces finished goods when the stand is at or under its make-more threshold
func (c *Controller) makeMore(stand *entities.Stand, now time.Time) (entities.Quantity, error) {
	inv := stand.Inventory
	policy := stand.AutoOrdering
	if inv.FinishedGoods > policy.MakeMoreThreshold {
		return 0, nil
	}

	units := min(inv.MaxProducible(), policy.MaxFinishedTarget-inv.FinishedGoods)
	if units <= 0 {
		c.logger.Debug("not enough ingredients to make more", zap.String("stand_id", stand.ID))
		return 0, nil
	}
	if err := inv.Produce(units); err != nil {
		return 0, err
	}
	c.emit(events.NewProductionCompletedEvent(stand.ID, units, inv.FinishedGoods, now))
	return units, nil
}

func (c *Controller) placeOrder(
	ctx context.Context,
	stand *entities.Stand,
	supplier *entities.Supplier,
	severity entities.OrderSeverity,
	wants map[entities.Material]entities.Quantity,
	now time.Time,
) (*entities.SupplyOrder, *services.Suitability, error) {
	for _, id := range []string{stand.ID, supplier.ID} {
		if !c.verifier.Verify(ctx, id) {
			return nil, nil, fmt.Errorf("party %s: %w", id, entities.ErrIdentityVerificationFailed)
		}
	}
	if !supplier.IsActive() {
		return nil, nil, fmt.Errorf("supplier %s: %w", supplier.ID, entities.ErrEntityClosed)
	}

	var (
		lines       []entities.OrderLine
		suitability *services.Suitability
	)
	for _, m := range entities.Materials {
		want, ok := wants[m]
		if !ok || want <= 0 {
			continue
		}

		if m != entities.Lemons {
			price := c.settings.AncillaryPrices[m]
			lines = append(lines, entities.OrderLine{
				Material:  m,
				Quantity:  want,
				UnitPrice: price,
				Cost:      entities.Round2(price.Mul(decimal.NewFromInt(int64(want)))),
			})
			continue
		}

		qty := min(want, supplier.Stock)
		if qty <= 0 {
			c.logger.Info("supplier out of stock, ordering without lemons",
				zap.String("stand_id", stand.ID),
				zap.String("supplier_id", supplier.ID))
			continue
		}
		price := c.pricing.QuoteWithFloor(supplier, qty)
		sold, err := supplier.Sell(stand.ID, qty, price, services.SupplierUnitCost(supplier), now)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, entities.OrderLine{
			Material:  m,
			Quantity:  qty,
			UnitPrice: price,
			Cost:      sold.TotalCost,
		})

		s := services.EvaluateSupplierSuitability(stand, supplier)
		suitability = &s
		c.logger.Info("supplier evaluated",
			zap.String("stand_id", stand.ID),
			zap.String("supplier_id", supplier.ID),
			zap.String("score", s.Score.StringFixed(2)),
			zap.Bool("suitable", s.Suitable),
			zap.String("reason", s.Reason))
	}
	if len(lines) == 0 {
		return nil, suitability, nil
	}

	order, err := entities.NewSupplyOrder(stand.ID, supplier.ID, severity, lines, now, now.Add(c.settings.StandDeliveryDelay))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create supply order: %w", err)
	}
	stand.Financial.RecordPurchase(now, order.TotalCost)

	tx, err := entities.NewTransaction(now, stand.ID, supplier.ID, order.TotalCost, order.QuantityOf(entities.Lemons),
		entities.CategorySupplyPurchase, fmt.Sprintf("%s supply order %s", severity, order.ID))
	if err != nil {
		return nil, nil, err
	}
	if err := c.journal.AppendTransaction(tx); err != nil {
		return nil, nil, fmt.Errorf("failed to journal supply order: %w", err)
	}
	if err := c.orders.SaveOrder(order); err != nil {
		return nil, nil, fmt.Errorf("failed to save supply order: %w", err)
	}
	if err := c.stands.SaveStand(stand); err != nil {
		return nil, nil, err
	}
	if err := c.suppliers.SaveSupplier(supplier); err != nil {
		return nil, nil, err
	}

	orderID := order.ID
	c.queue.Schedule(order.DueAt, "deliver "+orderID, func(ctx context.Context, at time.Time) error {
		return c.Deliver(ctx, orderID, at)
	})

	c.emit(events.NewOrderPlacedEvent(order))
	c.logger.Info("supply order placed",
		zap.String("order_id", order.ID),
		zap.String("stand_id", stand.ID),
		zap.String("supplier_id", supplier.ID),
		zap.String("severity", severity.String()),
		zap.String("total", order.TotalCost.StringFixed(2)),
		zap.Time("due_at", order.DueAt))
	return order, suitability, nil
}

// Deliver moves an in-transit order into the stand's raw stock and then
// produces as many finished units as capacity and ingredients allow
func (c *Controller) Deliver(_ context.Context, orderID string, at time.Time) error {
	order, err := c.orders.GetOrder(orderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}

	unlock := c.locks.Lock(locking.StandKey(order.StandID))
	defer unlock()

	if order.Status == entities.Delivered {
		return nil
	}
	stand, err := c.stands.GetStand(order.StandID)
	if err != nil {
		return fmt.Errorf("order %s stand %s: %w", orderID, order.StandID, err)
	}

	for _, line := range order.Lines {
		stand.Inventory.Receive(line.Material, line.Quantity)
	}
	order.MarkDelivered(at)
	if err := c.orders.SaveOrder(order); err != nil {
		return err
	}
	c.emit(events.NewOrderDeliveredEvent(order, at))

	if units := stand.Inventory.MaxProducible(); units > 0 {
		if err := stand.Inventory.Produce(units); err != nil {
			return err
		}
		c.emit(events.NewProductionCompletedEvent(stand.ID, units, stand.Inventory.FinishedGoods, at))
	}

	c.logger.Info("supply order delivered",
		zap.String("order_id", order.ID),
		zap.String("stand_id", stand.ID),
		zap.Int64("finished_goods", int64(stand.Inventory.FinishedGoods)))
	return c.stands.SaveStand(stand)
}

func (c *Controller) emit(event events.Event) {
	if err := events.Publish(c.events, event); err != nil {
		c.logger.Warn("failed to publish event", zap.String("event_type", event.Type()), zap.Error(err))
	}
}

func copyQuantities(src map[entities.Material]entities.Quantity) map[entities.Material]entities.Quantity {
	out := make(map[entities.Material]entities.Quantity, len(src))
	for m, q := range src {
		out[m] = q
	}
	return out
}
