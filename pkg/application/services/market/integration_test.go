package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/environment"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/marketsim/pkg/infrastructure/testing"
)

func newSampleService(t testing.TB) (*Service, *testhelpers.SampleMarket, *clock.Manual) {
	t.Helper()
	m := testhelpers.BuildSampleMarket(testNow)
	clk := clock.NewManual(testNow)
	svc := New(Repositories{
		Stands:       m.Stands,
		Suppliers:    m.Suppliers,
		Agents:       m.Agents,
		Transactions: m.Transactions,
		Orders:       m.Orders,
	}, Options{
		Clock:       clk,
		Events:      events.NewInMemoryEventStore(nil),
		Environment: environment.Static{Reading: entities.EnvironmentalSignal{TemperatureC: 31, Condition: entities.Sunny}},
		Settings:    DefaultSettings(),
	})
	return svc, m, clk
}

func TestMarketIntegration_SampleScenario(t *testing.T) {
	ctx := context.Background()
	svc, m, clk := newSampleService(t)

	repriced, err := svc.RefreshEnvironment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repriced)

	plan, err := svc.PlanFulfillment(ctx, 60)
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	tiers := map[entities.FulfillmentTier]entities.Quantity{}
	for _, a := range plan.Allocations {
		tiers[a.Tier] += a.Quantity
	}
	assert.Equal(t, entities.Quantity(30), tiers[entities.TierExistingStock], "every finished unit is used first")
	assert.Equal(t, entities.Quantity(30), tiers[entities.TierConvertRaw])

	result, err := svc.ExecutePlan(ctx, plan, "buyer-2")
	require.NoError(t, err)
	assert.Equal(t, entities.Quantity(60), result.DeliveredQuantity)
	assert.Empty(t, result.Failed())
	assert.True(t, plan.TotalCost.Equal(result.Charged))

	buyer, err := m.Agents.GetAgent("buyer-2")
	require.NoError(t, err)
	assert.True(t, entities.Money(1200).Sub(result.Charged).Equal(buyer.Wallet))

	clk.Advance(10 * time.Second)
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	_, err = svc.CompleteDeliveries(ctx)
	require.NoError(t, err)
	assert.Zero(t, svc.PendingDeliveries())

	report, err := svc.FinancialReport(ctx)
	require.NoError(t, err)
	standRevenue := decimal.Zero
	for _, s := range report.Stands {
		standRevenue = standRevenue.Add(s.Revenue)
	}
	assert.True(t, result.Charged.Equal(standRevenue), "stand revenue %s, charged %s", standRevenue, result.Charged)
	assert.Zero(t, report.InTransitOrders)

	txs, err := m.Transactions.GetTransactions()
	require.NoError(t, err)
	sales := decimal.Zero
	for _, tx := range txs {
		if tx.Category == entities.CategorySale && tx.FromID == "buyer-2" {
			sales = sales.Add(tx.Amount)
		}
	}
	assert.True(t, result.Charged.Equal(sales), "journaled sales %s", sales)
}
