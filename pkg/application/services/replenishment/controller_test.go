package replenishment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/identity"
	"github.com/vsinha/marketsim/pkg/infrastructure/locking"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/marketsim/pkg/infrastructure/schedule"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	stands    *memory.StandRepository
	suppliers *memory.SupplierRepository
	orders    *memory.SupplyOrderRepository
	journal   *memory.TransactionRepository
	store     *events.InMemoryEventStore
	queue     *schedule.Queue
	clock     *clock.Manual
	locks     *locking.KeyedMutex

	stand    *entities.Stand
	supplier *entities.Supplier
}

func newFixture(t *testing.T, finished entities.Quantity) *fixture {
	t.Helper()
	inv, err := entities.NewInventoryLedger(entities.DefaultMaxCapacity, entities.DefaultConversionRatio, entities.DefaultRawCapacity)
	require.NoError(t, err)
	inv.FinishedGoods = finished
	stand, err := entities.NewStand("s1", "Harbor Stand", "San Diego", entities.Money(2.5), inv, testNow)
	require.NoError(t, err)
	supplier, err := entities.NewSupplier("sup1", "Citrus Co", "San Diego", entities.QualityStandard, 500, entities.Money(0.5), testNow)
	require.NoError(t, err)
	stand.AutoOrdering.PreferredSupplierID = supplier.ID

	f := &fixture{
		stands:    memory.NewStandRepository(1),
		suppliers: memory.NewSupplierRepository(1),
		orders:    memory.NewSupplyOrderRepository(),
		journal:   memory.NewTransactionRepository(),
		store:     events.NewInMemoryEventStore(nil),
		queue:     schedule.NewQueue(),
		clock:     clock.NewManual(testNow),
		locks:     locking.NewKeyedMutex(),
		stand:     stand,
		supplier:  supplier,
	}
	require.NoError(t, f.stands.SaveStand(stand))
	require.NoError(t, f.suppliers.SaveSupplier(supplier))
	return f
}

func (f *fixture) controller(verifier identity.Verifier) *Controller {
	return NewController(f.stands, f.suppliers, f.orders, f.journal,
		services.NewSupplierPricingModel(entities.Money(0.3)), f.locks, verifier,
		f.queue, f.store, f.clock, DefaultSettings(), nil)
}

func (f *fixture) stock(lemons, sugar, cups, ice entities.Quantity) {
	f.stand.Inventory.Receive(entities.Lemons, lemons)
	f.stand.Inventory.Receive(entities.Sugar, sugar)
	f.stand.Inventory.Receive(entities.Cups, cups)
	f.stand.Inventory.Receive(entities.Ice, ice)
}

func TestController_EmergencyAtThreshold(t *testing.T) {
	f := newFixture(t, 5)

	result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.True(t, result.Ordered())

	order := result.Order
	assert.Equal(t, entities.Emergency, order.Severity)
	assert.Equal(t, "sup1", order.SupplierID)
	assert.Equal(t, entities.Quantity(100), order.QuantityOf(entities.Lemons))
	assert.Equal(t, entities.Quantity(50), order.QuantityOf(entities.Sugar))
	assert.Equal(t, entities.Quantity(200), order.QuantityOf(entities.Cups))
	assert.Equal(t, entities.Quantity(100), order.QuantityOf(entities.Ice))
	// 100*0.50 + 50*0.30 + 200*0.10 + 100*0.20
	assert.True(t, entities.Money(105).Equal(order.TotalCost), "total %s", order.TotalCost)
	assert.Equal(t, testNow.Add(2*time.Second), order.DueAt)
	require.NotNil(t, result.Suitability)

	assert.Equal(t, entities.Quantity(400), f.supplier.Stock)
	assert.True(t, entities.Money(50).Equal(f.supplier.Financial.Revenue))
	assert.True(t, entities.Money(105).Equal(f.stand.Financial.Purchases))
	assert.Equal(t, 1, f.queue.Len())

	inTransit, err := f.orders.GetOrdersInTransit()
	require.NoError(t, err)
	assert.Len(t, inTransit, 1)

	txs, err := f.journal.GetTransactions()
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entities.CategorySupplyPurchase, txs[0].Category)
	assert.Equal(t, entities.Quantity(100), txs[0].Quantity)
}

func TestController_AboveEmergencyProducesWithoutOrdering(t *testing.T) {
	f := newFixture(t, 6)
	f.stock(100, 50, 100, 100)

	result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
	require.NoError(t, err)

	assert.False(t, result.Ordered())
	// capacity 50 leaves room for 44
	assert.Equal(t, entities.Quantity(44), result.Produced)
	assert.Equal(t, entities.Quantity(50), f.stand.Inventory.FinishedGoods)
	assert.Equal(t, 0, f.queue.Len())
	assert.Equal(t, entities.Quantity(500), f.supplier.Stock)
}

func TestController_RoutineOrdersOnlyLowMaterials(t *testing.T) {
	f := newFixture(t, 30)
	f.stock(8, 40, 100, 40)

	result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.True(t, result.Ordered())

	assert.Equal(t, entities.Routine, result.Order.Severity)
	require.Len(t, result.Order.Lines, 1)
	assert.Equal(t, entities.Lemons, result.Order.Lines[0].Material)
	assert.Equal(t, entities.Quantity(50), result.Order.Lines[0].Quantity)
	assert.Zero(t, result.Produced)
}

func TestController_BulkForLargeOrders(t *testing.T) {
	f := newFixture(t, 30)

	result, err := f.controller(nil).Check(context.Background(), "s1", "", true)
	require.NoError(t, err)
	require.True(t, result.Ordered())
	assert.Equal(t, entities.Bulk, result.Order.Severity)
	assert.Equal(t, entities.Quantity(150), result.Order.QuantityOf(entities.Lemons))
	assert.Equal(t, entities.Quantity(300), result.Order.QuantityOf(entities.Cups))
}

func TestController_LemonsCappedBySupplierStock(t *testing.T) {
	f := newFixture(t, 0)
	f.supplier.Stock = 30

	result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.True(t, result.Ordered())
	assert.Equal(t, entities.Quantity(30), result.Order.QuantityOf(entities.Lemons))
	assert.Zero(t, f.supplier.Stock)
}

func TestController_DeliveryRunsFromQueue(t *testing.T) {
	f := newFixture(t, 5)
	ctrl := f.controller(nil)

	result, err := ctrl.Check(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.True(t, result.Ordered())

	ran, err := f.queue.RunDue(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, ran)
	assert.Equal(t, entities.Quantity(5), f.stand.Inventory.FinishedGoods)

	due := f.clock.Advance(2 * time.Second)
	ran, err = f.queue.RunDue(context.Background(), due)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)

	order, err := f.orders.GetOrder(result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.Delivered, order.Status)
	assert.Equal(t, due, order.DeliveredAt)

	// 45 units fill capacity: 90 lemons, 45 sugar, 45 cups, 90 ice
	inv := f.stand.Inventory
	assert.Equal(t, entities.Quantity(50), inv.FinishedGoods)
	assert.Equal(t, entities.Quantity(10), inv.RawOnHand(entities.Lemons))
	assert.Equal(t, entities.Quantity(5), inv.RawOnHand(entities.Sugar))
	assert.Equal(t, entities.Quantity(155), inv.RawOnHand(entities.Cups))
	assert.Equal(t, entities.Quantity(10), inv.RawOnHand(entities.Ice))

	// a second delivery of the same order changes nothing
	require.NoError(t, ctrl.Deliver(context.Background(), order.ID, due))
	assert.Equal(t, entities.Quantity(10), inv.RawOnHand(entities.Lemons))

	all, err := f.store.ReadAllEvents(0)
	require.NoError(t, err)
	var types []string
	for _, e := range all {
		types = append(types, e.Type())
	}
	assert.Equal(t, []string{
		events.OrderPlacedEvent,
		events.OrderDeliveredEvent,
		events.ProductionCompletedEvent,
	}, types)
}

func TestController_Refusals(t *testing.T) {
	t.Run("auto ordering disabled", func(t *testing.T) {
		f := newFixture(t, 0)
		f.stand.AutoOrdering.Enabled = false
		result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
		require.NoError(t, err)
		assert.True(t, result.Disabled)
		assert.False(t, result.Ordered())
	})

	t.Run("closed stand", func(t *testing.T) {
		f := newFixture(t, 0)
		f.stand.Status = entities.Closed
		_, err := f.controller(nil).Check(context.Background(), "s1", "", false)
		assert.ErrorIs(t, err, entities.ErrEntityClosed)
	})

	t.Run("no preferred supplier", func(t *testing.T) {
		f := newFixture(t, 0)
		f.stand.AutoOrdering.PreferredSupplierID = ""
		result, err := f.controller(nil).Check(context.Background(), "s1", "", false)
		assert.ErrorIs(t, err, entities.ErrSupplierNotFound)
		assert.False(t, result.Ordered())
	})

	t.Run("unknown stand", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.controller(nil).Check(context.Background(), "nope", "", false)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("supplier fails verification", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.controller(identity.DenyList{"sup1": true}).Check(context.Background(), "s1", "", false)
		assert.ErrorIs(t, err, entities.ErrIdentityVerificationFailed)
		assert.Equal(t, entities.Quantity(500), f.supplier.Stock)
		assert.Equal(t, 0, f.queue.Len())
	})

	t.Run("closed supplier", func(t *testing.T) {
		f := newFixture(t, 0)
		f.supplier.Status = entities.Closed
		_, err := f.controller(nil).Check(context.Background(), "s1", "", false)
		assert.ErrorIs(t, err, entities.ErrEntityClosed)
	})
}

func TestRoutineLemonQuantity(t *testing.T) {
	supplierOf := func(q entities.QualityTier, discounts ...entities.VolumeDiscount) *entities.Supplier {
		s, err := entities.NewSupplier("sup", "Sup", "", q, 500, entities.Money(0.5), testNow)
		require.NoError(t, err)
		if len(discounts) > 0 {
			s.Factors = &entities.PricingFactors{VolumeDiscounts: discounts}
		}
		return s
	}
	tiers := []entities.VolumeDiscount{
		{Threshold: 100, Factor: entities.Money(0.95)},
		{Threshold: 250, Factor: entities.Money(0.9)},
	}

	tests := []struct {
		name     string
		tier     entities.OrderingTier
		supplier *entities.Supplier
		expected entities.Quantity
	}{
		{"default without supplier", entities.OrderingDefault, nil, 50},
		{"premium from premium", entities.OrderingPremium, supplierOf(entities.QualityPremium), 75},
		{"premium from standard", entities.OrderingPremium, supplierOf(entities.QualityStandard), 60},
		{"midrange from standard", entities.OrderingMidrange, supplierOf(entities.QualityStandard), 65},
		{"midrange from budget", entities.OrderingMidrange, supplierOf(entities.QualityBudget), 55},
		{"budget from budget", entities.OrderingBudget, supplierOf(entities.QualityBudget), 80},
		{"budget from premium", entities.OrderingBudget, supplierOf(entities.QualityPremium), 45},
		{"bumped to discount threshold", entities.OrderingBudget, supplierOf(entities.QualityBudget, tiers...), 100},
		{"threshold too far to bump", entities.OrderingPremium, supplierOf(entities.QualityStandard, tiers...), 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoutineLemonQuantity(tt.tier, tt.supplier))
		})
	}
}
