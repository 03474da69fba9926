package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/application/services/market"
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/environment"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	sample "github.com/vsinha/marketsim/pkg/infrastructure/testing"
)

func main() {
	ctx := context.Background()
	start := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	m := sample.BuildSampleMarket(start)
	store := events.NewInMemoryEventStore(logger)
	svc := market.New(market.Repositories{
		Stands:       m.Stands,
		Suppliers:    m.Suppliers,
		Agents:       m.Agents,
		Transactions: m.Transactions,
		Orders:       m.Orders,
	}, market.Options{
		Clock:       clk,
		Environment: environment.Static{Reading: entities.EnvironmentalSignal{TemperatureC: 31, Condition: entities.Sunny}},
		Events:      store,
		Logger:      logger,
		Settings:    market.DefaultSettings(),
	})

	// A hot Fourth of July pushes prices up before the festival order arrives
	if _, err := svc.RefreshEnvironment(ctx); err != nil {
		fmt.Printf("refresh failed: %v\n", err)
		return
	}

	fmt.Println("Planning 60 cups of lemonade for Festival Co...")
	plan, err := svc.PlanFulfillment(ctx, 60)
	if err != nil {
		fmt.Printf("planning failed: %v\n", err)
		return
	}
	for _, a := range plan.Allocations {
		fmt.Printf("  %-6s %-18s %3d @ %s\n", a.StandID, a.Tier, a.Quantity, a.UnitCost.StringFixed(2))
	}
	fmt.Printf("  total %s\n\n", plan.TotalCost.StringFixed(2))

	result, err := svc.ExecutePlan(ctx, plan, "buyer-2")
	if err != nil {
		fmt.Printf("execution failed: %v\n", err)
		return
	}
	fmt.Printf("Delivered %d, charged %s, %d replenishment checks\n\n",
		result.DeliveredQuantity, result.Charged.StringFixed(2), len(result.Replenishments))

	// Let the trucks arrive
	clk.Advance(5 * time.Second)
	delivered, err := svc.Tick(ctx)
	if err != nil {
		fmt.Printf("tick reported: %v\n", err)
	}
	fmt.Printf("Deliveries completed: %d\n", delivered)

	report, err := svc.FinancialReport(ctx)
	if err != nil {
		fmt.Printf("report failed: %v\n", err)
		return
	}
	for _, s := range report.Stands {
		fmt.Printf("  %-6s revenue %8s  net %8s  stock %d\n", s.ID, s.Revenue.StringFixed(2), s.NetProfit.StringFixed(2), s.Stock)
	}

	all, _ := store.ReadAllEvents(0)
	fmt.Printf("\n%d market events recorded\n", len(all))
}
