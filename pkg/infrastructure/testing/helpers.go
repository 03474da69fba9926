package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/memory"
)

// SampleMarket holds the repositories of a built-in scenario
type SampleMarket struct {
	Stands       *memory.StandRepository
	Suppliers    *memory.SupplierRepository
	Agents       *memory.AgentRepository
	Transactions *memory.TransactionRepository
	Orders       *memory.SupplyOrderRepository
}

// BuildSampleMarket builds the San Diego scenario: three stands, one per
// ordering tier, each preferring the supplier of the matching quality, and
// two buyers
func BuildSampleMarket(now time.Time) *SampleMarket {
	m := &SampleMarket{
		Stands:       memory.NewStandRepository(3),
		Suppliers:    memory.NewSupplierRepository(3),
		Agents:       memory.NewAgentRepository(),
		Transactions: memory.NewTransactionRepository(),
		Orders:       memory.NewSupplyOrderRepository(),
	}

	suppliers := []*entities.Supplier{
		mustCreateSupplier("citrus-prime", "Citrus Prime", "Escondido", entities.QualityPremium, 800, 0.75, now),
		mustCreateSupplier("grove-co", "Grove Co", "Riverside", entities.QualityStandard, 1000, 0.55, now),
		mustCreateSupplier("valley-bulk", "Valley Bulk", "Imperial Valley", entities.QualityBudget, 1500, 0.40, now),
	}
	suppliers[0].Factors = &entities.PricingFactors{
		BasePrice:          entities.Money(0.40),
		QualityMultiplier:  entities.Money(1.3),
		FarmingPractice:    entities.Organic,
		SourceType:         entities.SourceLocal,
		SeasonalAdjustment: decimal.NewFromInt(1),
		Services:           entities.ValueAddedServices{Washing: true, Sorting: true, PremiumPackaging: true},
		TransportCost:      entities.Money(0.03),
		VolumeDiscounts: []entities.VolumeDiscount{
			{Threshold: 100, Factor: entities.Money(0.95)},
			{Threshold: 250, Factor: entities.Money(0.90)},
		},
		Reliability: entities.Money(0.98),
	}
	suppliers[1].Factors = &entities.PricingFactors{
		BasePrice:          entities.Money(0.35),
		QualityMultiplier:  decimal.NewFromInt(1),
		FarmingPractice:    entities.Conventional,
		SourceType:         entities.SourceDomestic,
		SeasonalAdjustment: decimal.NewFromInt(1),
		Services:           entities.ValueAddedServices{Washing: true},
		TransportCost:      entities.Money(0.05),
		VolumeDiscounts:    []entities.VolumeDiscount{{Threshold: 200, Factor: entities.Money(0.95)}},
		Reliability:        entities.Money(0.92),
	}
	if err := m.Suppliers.LoadSuppliers(suppliers); err != nil {
		panic(err)
	}

	stands := []struct {
		id, name, supplier string
		price              float64
		tier               entities.OrderingTier
		finished           entities.Quantity
		raw                [4]entities.Quantity
	}{
		{"pier", "Pier Lemonade", "citrus-prime", 2.50, entities.OrderingPremium, 20, [4]entities.Quantity{40, 30, 60, 60}},
		{"park", "Balboa Park Stand", "grove-co", 2.25, entities.OrderingMidrange, 10, [4]entities.Quantity{20, 20, 40, 40}},
		{"beach", "Mission Beach Shack", "valley-bulk", 2.00, entities.OrderingBudget, 0, [4]entities.Quantity{60, 40, 80, 80}},
	}
	for _, s := range stands {
		stand := mustCreateStand(s.id, s.name, "San Diego", s.price, now)
		stand.OrderingTier = s.tier
		stand.AutoOrdering.PreferredSupplierID = s.supplier
		stand.Inventory.FinishedGoods = s.finished
		for i, mat := range entities.Materials {
			stand.Inventory.Receive(mat, s.raw[i])
		}
		if err := m.Stands.SaveStand(stand); err != nil {
			panic(err)
		}
	}

	pier, _ := m.Stands.GetStand("pier")
	pier.Hire(mustCreateEmployee("e1", "Ana", "Stand Manager", 2800, 400))
	pier.Hire(mustCreateEmployee("e2", "Ben", "Cashier", 2200, 350))
	pier.Hire(mustCreateEmployee("e3", "Chris", "Prep Cook", 2400, 380))
	suppliers[0].Hire(mustCreateEmployee("e4", "Dana", "Driver", 3000, 420))

	for _, a := range []struct {
		id, name string
		wallet   float64
	}{
		{"buyer-1", "Downtown Catering", 500},
		{"buyer-2", "Festival Co", 1200},
	} {
		agent, err := entities.NewAgent(a.id, a.name, entities.Money(a.wallet))
		if err != nil {
			panic(err)
		}
		if err := m.Agents.SaveAgent(agent); err != nil {
			panic(err)
		}
	}

	return m
}

// mustCreateStand is a helper for tests - panics on validation error
func mustCreateStand(id, name, location string, price float64, now time.Time) *entities.Stand {
	inv, err := entities.NewInventoryLedger(entities.DefaultMaxCapacity, entities.DefaultConversionRatio, entities.DefaultRawCapacity)
	if err != nil {
		panic(err)
	}
	stand, err := entities.NewStand(id, name, location, entities.Money(price), inv, now)
	if err != nil {
		panic(err)
	}
	return stand
}

// mustCreateSupplier is a helper for tests - panics on validation error
func mustCreateSupplier(id, name, location string, quality entities.QualityTier, stock entities.Quantity, listPrice float64, now time.Time) *entities.Supplier {
	s, err := entities.NewSupplier(id, name, location, quality, stock, entities.Money(listPrice), now)
	if err != nil {
		panic(err)
	}
	return s
}

// mustCreateEmployee is a helper for tests - panics on validation error
func mustCreateEmployee(id, name, role string, salary, healthcare float64) entities.Employee {
	e, err := entities.NewEmployee(id, name, role, entities.Money(salary), entities.Money(healthcare))
	if err != nil {
		panic(err)
	}
	return *e
}
