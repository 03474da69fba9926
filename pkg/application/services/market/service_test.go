package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/environment"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/memory"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type testMarket struct {
	*Service
	repos Repositories
	clock *clock.Manual
	store *events.InMemoryEventStore

	stand    *entities.Stand
	supplier *entities.Supplier
	buyer    *entities.Agent
}

func newTestMarket(t *testing.T, finished entities.Quantity, wallet float64) *testMarket {
	t.Helper()
	inv, err := entities.NewInventoryLedger(entities.DefaultMaxCapacity, entities.DefaultConversionRatio, entities.DefaultRawCapacity)
	require.NoError(t, err)
	inv.FinishedGoods = finished
	stand, err := entities.NewStand("s1", "Beach Stand", "San Diego", entities.Money(2.5), inv, testNow)
	require.NoError(t, err)
	supplier, err := entities.NewSupplier("sup1", "Citrus Co", "San Diego", entities.QualityStandard, 500, entities.Money(0.5), testNow)
	require.NoError(t, err)
	stand.AutoOrdering.PreferredSupplierID = supplier.ID
	buyer, err := entities.NewAgent("buyer", "Buyer", entities.Money(wallet))
	require.NoError(t, err)

	repos := Repositories{
		Stands:       memory.NewStandRepository(1),
		Suppliers:    memory.NewSupplierRepository(1),
		Agents:       memory.NewAgentRepository(),
		Transactions: memory.NewTransactionRepository(),
		Orders:       memory.NewSupplyOrderRepository(),
	}
	require.NoError(t, repos.Stands.SaveStand(stand))
	require.NoError(t, repos.Suppliers.SaveSupplier(supplier))
	require.NoError(t, repos.Agents.SaveAgent(buyer))

	clk := clock.NewManual(testNow)
	store := events.NewInMemoryEventStore(nil)
	svc := New(repos, Options{
		Clock:       clk,
		Events:      store,
		Environment: environment.Static{Reading: entities.EnvironmentalSignal{TemperatureC: 31, Condition: entities.Sunny}},
		Settings:    DefaultSettings(),
	})
	return &testMarket{
		Service:  svc,
		repos:    repos,
		clock:    clk,
		store:    store,
		stand:    stand,
		supplier: supplier,
		buyer:    buyer,
	}
}

func (m *testMarket) stock(lemons, sugar, cups, ice entities.Quantity) {
	m.stand.Inventory.Receive(entities.Lemons, lemons)
	m.stand.Inventory.Receive(entities.Sugar, sugar)
	m.stand.Inventory.Receive(entities.Cups, cups)
	m.stand.Inventory.Receive(entities.Ice, ice)
}

func TestService_PlanAndExecute(t *testing.T) {
	m := newTestMarket(t, 0, 500)
	m.stand.Pricing.BasePrice = entities.Money(3)
	m.stand.Pricing.CurrentPrice = m.stand.Pricing.Compute()
	m.stock(100, 0, 0, 0)

	plan, err := m.PlanFulfillment(context.Background(), 40)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 1)
	assert.Equal(t, entities.TierConvertRaw, plan.Allocations[0].Tier)
	assert.True(t, entities.Money(120).Equal(plan.TotalCost))

	result, err := m.ExecutePlan(context.Background(), plan, "buyer")
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(40), result.DeliveredQuantity)
	assert.True(t, entities.Money(380).Equal(m.buyer.Wallet))
	assert.Equal(t, entities.Quantity(20), m.stand.Inventory.RawOnHand(entities.Lemons))

	// the stand fell under its reorder threshold and placed an emergency order
	require.Len(t, result.Replenishments, 1)
	assert.True(t, result.Replenishments[0].Ordered())
	assert.Equal(t, entities.Emergency, result.Replenishments[0].Order.Severity)
	assert.Equal(t, entities.Quantity(400), m.supplier.Stock)
	assert.Equal(t, 1, m.PendingDeliveries())
}

func TestService_Sell(t *testing.T) {
	m := newTestMarket(t, 10, 100)
	m.stock(40, 20, 20, 40)

	sale, err := m.Sell(context.Background(), "s1", "buyer", 15)
	require.NoError(t, err)

	assert.Equal(t, entities.Quantity(5), sale.Produced)
	assert.True(t, entities.Money(2.5).Equal(sale.UnitPrice))
	assert.True(t, entities.Money(37.5).Equal(sale.Amount))
	assert.NotEmpty(t, sale.TransactionID)
	assert.True(t, sale.Pricing.CurrentPrice.Equal(sale.Pricing.Compute()))

	assert.True(t, entities.Money(62.5).Equal(m.buyer.Wallet))
	assert.Equal(t, entities.Quantity(15), m.buyer.Purchased)
	assert.True(t, entities.Money(37.5).Equal(m.stand.Financial.Revenue))
	assert.True(t, entities.Money(27).Equal(m.stand.Financial.COGS))
	assert.Equal(t, entities.Quantity(15), m.stand.TotalSold)

	// finished goods hit zero, so the follow-up check is an emergency order
	require.NotNil(t, sale.Replenishment)
	require.True(t, sale.Replenishment.Ordered())
	assert.Equal(t, entities.Emergency, sale.Replenishment.Order.Severity)
}

func TestService_SellRefusals(t *testing.T) {
	t.Run("insufficient funds", func(t *testing.T) {
		m := newTestMarket(t, 10, 1)
		_, err := m.Sell(context.Background(), "s1", "buyer", 2)
		assert.ErrorIs(t, err, entities.ErrInsufficientFunds)
		assert.Equal(t, entities.Quantity(10), m.stand.Inventory.FinishedGoods)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		m := newTestMarket(t, 2, 100)
		_, err := m.Sell(context.Background(), "s1", "buyer", 5)
		assert.ErrorIs(t, err, entities.ErrInsufficientStock)
		assert.Equal(t, entities.Quantity(2), m.stand.Inventory.FinishedGoods)
		assert.True(t, entities.Money(100).Equal(m.buyer.Wallet))
	})

	t.Run("closed stand", func(t *testing.T) {
		m := newTestMarket(t, 10, 100)
		m.stand.Status = entities.Closed
		_, err := m.Sell(context.Background(), "s1", "buyer", 1)
		assert.ErrorIs(t, err, entities.ErrEntityClosed)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		m := newTestMarket(t, 10, 100)
		_, err := m.Sell(context.Background(), "s1", "buyer", 0)
		assert.ErrorIs(t, err, entities.ErrInvalidInput)
	})
}

func TestService_ConcurrentSalesNeverOversell(t *testing.T) {
	m := newTestMarket(t, 10, 1000)
	m.stand.AutoOrdering.Enabled = false

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Sell(context.Background(), "s1", "buyer", 1); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	assert.Zero(t, m.stand.Inventory.FinishedGoods)
	assert.Equal(t, entities.Quantity(10), m.buyer.Purchased)
}

func TestService_QuoteSupplierPrice(t *testing.T) {
	m := newTestMarket(t, 0, 0)

	price, err := m.QuoteSupplierPrice(context.Background(), "sup1", 50)
	require.NoError(t, err)
	assert.True(t, entities.Money(0.5).Equal(price))

	m.supplier.ListPrice = entities.Money(0.04)
	price, err = m.QuoteSupplierPrice(context.Background(), "sup1", 50)
	require.NoError(t, err)
	assert.True(t, entities.Money(0.1).Equal(price), "floored at 0.10, got %s", price)

	_, err = m.QuoteSupplierPrice(context.Background(), "ghost", 50)
	assert.ErrorIs(t, err, entities.ErrSupplierNotFound)

	_, err = m.QuoteSupplierPrice(context.Background(), "sup1", 0)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}

func TestService_RecordTaxes(t *testing.T) {
	m := newTestMarket(t, 0, 0)
	m.stand.Financial.RecordSale(testNow, entities.Money(100), entities.Money(40))

	owed, err := m.RecordTaxes(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, entities.Money(15).Equal(owed))
	assert.True(t, entities.Money(45).Equal(m.stand.Financial.NetProfit))

	// recording again sets the same amount and journals nothing new
	owed, err = m.RecordTaxes(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, entities.Money(15).Equal(owed))

	txs, err := m.repos.Transactions.GetTransactionsForParty("s1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entities.CategoryTax, txs[0].Category)
	assert.Equal(t, TaxAuthority, txs[0].ToID)
	assert.True(t, entities.Money(15).Equal(txs[0].Amount))

	_, err = m.RecordTaxes(context.Background(), "nobody")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestService_RecomputePricing(t *testing.T) {
	m := newTestMarket(t, 0, 0)
	hot := entities.EnvironmentalSignal{TemperatureC: 31, Condition: entities.Sunny}

	pricing, err := m.RecomputePricing(context.Background(), "s1", hot)
	require.NoError(t, err)
	// 2.50 * 1.8
	assert.True(t, entities.Money(4.5).Equal(pricing.CurrentPrice))
	assert.Equal(t, hot, m.Signal("San Diego"))
	assert.Equal(t, entities.NeutralSignal, m.Signal("Oakland"))

	_, err = m.RecomputePricing(context.Background(), "ghost", hot)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestService_RefreshEnvironment(t *testing.T) {
	m := newTestMarket(t, 0, 0)

	n, err := m.RefreshEnvironment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, entities.Sunny, m.Signal("San Diego").Condition)
	assert.True(t, m.stand.Pricing.EnvironmentalMultiplier.Equal(entities.Money(1.8)))

	all, err := m.store.ReadAllEvents(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, events.EnvironmentRefreshedEvent, all[0].Type())
	assert.Equal(t, events.PricingRecomputedEvent, all[1].Type())
}

func TestService_TickDeliversAndRunsPayroll(t *testing.T) {
	m := newTestMarket(t, 0, 0)
	e, err := entities.NewEmployee("e1", "Sam", "Cashier", entities.Money(2200), entities.Money(350))
	require.NoError(t, err)
	m.stand.Hire(*e)

	repl, err := m.CheckReplenishment(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.True(t, repl.Ordered())

	delivered, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)

	m.clock.Advance(2 * time.Second)
	delivered, err = m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, entities.Quantity(50), m.stand.Inventory.FinishedGoods)

	status, err := m.PayrollStatus(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PayrollWaiting, status.State)
	assert.True(t, entities.Money(2200).Equal(status.Projected.GrossPayroll))

	m.clock.Advance(entities.DefaultPayrollPeriod)
	_, err = m.Tick(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.stand.Payroll.History, 1)
	assert.True(t, entities.Money(2200).Equal(m.stand.Financial.Payroll))

	rec, err := m.RunPayrollIfDue(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestService_TickRestocksLowSuppliers(t *testing.T) {
	m := newTestMarket(t, 30, 0)
	m.supplier.Stock = 100

	_, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.PendingDeliveries())

	m.clock.Advance(3 * time.Second)
	delivered, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, entities.Quantity(600), m.supplier.Stock)
}

func TestService_CompleteDeliveriesDrainsQueue(t *testing.T) {
	m := newTestMarket(t, 0, 0)
	_, err := m.CheckReplenishment(context.Background(), "s1", "", false)
	require.NoError(t, err)
	require.Equal(t, 1, m.PendingDeliveries())

	n, err := m.CompleteDeliveries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, m.PendingDeliveries())
	assert.Equal(t, entities.Quantity(50), m.stand.Inventory.FinishedGoods)
}

func TestService_FinancialReport(t *testing.T) {
	m := newTestMarket(t, 10, 100)
	_, err := m.Sell(context.Background(), "s1", "buyer", 4)
	require.NoError(t, err)

	report, err := m.FinancialReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Stands, 1)
	require.Len(t, report.Suppliers, 1)

	st := report.Stands[0]
	assert.Equal(t, "stand", st.Kind)
	assert.True(t, entities.Money(10).Equal(st.Revenue))
	assert.Equal(t, entities.Quantity(6), st.Stock)
	assert.True(t, report.TotalRevenue.Equal(st.Revenue.Add(report.Suppliers[0].Revenue)))
	assert.GreaterOrEqual(t, report.TransactionCount, 1)
}
