package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/application/dto"
	"github.com/vsinha/marketsim/pkg/application/services/allocation"
	"github.com/vsinha/marketsim/pkg/application/services/payroll"
	"github.com/vsinha/marketsim/pkg/application/services/replenishment"
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/config"
	"github.com/vsinha/marketsim/pkg/infrastructure/environment"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/identity"
	"github.com/vsinha/marketsim/pkg/infrastructure/locking"
	"github.com/vsinha/marketsim/pkg/infrastructure/schedule"
)

// TaxAuthority is the counterparty of tax transactions
const TaxAuthority = "tax-authority"

// Repositories groups the stores the market reads and mutates
type Repositories struct {
	Stands       repositories.StandRepository
	Suppliers    repositories.SupplierRepository
	Agents       repositories.AgentRepository
	Transactions repositories.TransactionRepository
	Orders       repositories.SupplyOrderRepository
}

// Settings holds the tunable parameters of the market
type Settings struct {
	SupplierPriceFloor  decimal.Decimal
	TaxRate             decimal.Decimal
	SalesWindow         time.Duration
	LargeOrderThreshold entities.Quantity
	Replenishment       replenishment.Settings
	PayrollRates        payroll.Rates
}

// DefaultSettings returns the built-in market settings
func DefaultSettings() Settings {
	return Settings{
		SupplierPriceFloor:  decimal.NewFromFloat(0.10),
		TaxRate:             decimal.NewFromFloat(0.25),
		SalesWindow:         services.DefaultSalesWindow,
		LargeOrderThreshold: 20,
		Replenishment:       replenishment.DefaultSettings(),
		PayrollRates:        payroll.DefaultRates(),
	}
}

// SettingsFromConfig maps loaded configuration onto market settings
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.SupplierPriceFloor = cfg.Pricing.SupplierPriceFloor
	s.TaxRate = cfg.Pricing.TaxRate
	s.SalesWindow = cfg.Simulation.SalesWindow
	s.LargeOrderThreshold = entities.Quantity(cfg.Simulation.LargeOrderThreshold)
	s.Replenishment.StandDeliveryDelay = cfg.Simulation.StandDeliveryDelay
	s.Replenishment.SupplierDeliveryDelay = cfg.Simulation.SupplierDeliveryDelay
	for name, price := range cfg.Pricing.AncillaryPrices {
		if m, err := entities.ParseMaterial(name); err == nil {
			s.Replenishment.AncillaryPrices[m] = price
		}
	}
	s.PayrollRates = payroll.Rates{
		PayrollTax:         cfg.Payroll.PayrollTaxRate,
		Unemployment:       cfg.Payroll.UnemploymentRate,
		DefaultWorkersComp: cfg.Payroll.DefaultWorkersCompRate,
		WorkersCompByRole:  cfg.Payroll.WorkersCompRates,
	}
	return s
}

// Options holds the collaborators injected into the market. Nil fields get defaults.
type Options struct {
	Clock       clock.Clock
	Verifier    identity.Verifier
	Environment environment.Provider
	Events      events.EventStore
	Logger      *zap.Logger
	Settings    Settings
}

// Service is the entry point to the marketplace: planning and executing
// fulfillment, pricing, replenishment, payroll, taxes and the event queue
type Service struct {
	repos           Repositories
	settings        Settings
	clock           clock.Clock
	verifier        identity.Verifier
	env             environment.Provider
	events          events.EventStore
	locks           *locking.KeyedMutex
	queue           *schedule.Queue
	pricing         *services.PricingEngine
	supplierPricing *services.SupplierPricingModel
	planner         *allocation.Planner
	executor        *allocation.Executor
	replenisher     *replenishment.Controller
	restocker       *replenishment.SupplierRestocker
	payroll         *payroll.Scheduler
	logger          *zap.Logger

	signalsMu sync.RWMutex
	signals   map[string]entities.EnvironmentalSignal
}

// New wires a market over the given repositories
func New(repos Repositories, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Verifier == nil {
		opts.Verifier = identity.AllowAll{}
	}
	if opts.Environment == nil {
		opts.Environment = environment.Static{Reading: entities.NeutralSignal}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Settings.Replenishment.AncillaryPrices == nil {
		opts.Settings = DefaultSettings()
	}

	s := &Service{
		repos:           repos,
		settings:        opts.Settings,
		clock:           opts.Clock,
		verifier:        opts.Verifier,
		env:             opts.Environment,
		events:          opts.Events,
		locks:           locking.NewKeyedMutex(),
		queue:           schedule.NewQueue(),
		pricing:         services.NewPricingEngine(opts.Settings.SalesWindow),
		supplierPricing: services.NewSupplierPricingModel(opts.Settings.SupplierPriceFloor),
		logger:          opts.Logger,
		signals:         make(map[string]entities.EnvironmentalSignal),
	}

	s.planner = allocation.NewPlanner(s.supplierPricing, s.clock, s.logger.Named("planner"))
	s.replenisher = replenishment.NewController(
		repos.Stands, repos.Suppliers, repos.Orders, repos.Transactions,
		s.supplierPricing, s.locks, s.verifier, s.queue, s.events, s.clock,
		s.settings.Replenishment, s.logger.Named("replenishment"))
	s.restocker = replenishment.NewSupplierRestocker(
		repos.Suppliers, s.locks, s.queue, s.events, s.clock,
		s.settings.Replenishment.SupplierDeliveryDelay, s.logger.Named("restock"))
	s.executor = allocation.NewExecutor(
		repos.Stands, repos.Suppliers, repos.Agents, repos.Transactions,
		s.pricing, s.locks, s.verifier, s.replenisher, s.events, s.clock,
		s.logger.Named("executor"))
	s.payroll = payroll.NewScheduler(s.settings.PayrollRates, repos.Transactions, s.events, s.clock, s.logger.Named("payroll"))
	return s
}

// PlanFulfillment builds a fulfillment plan for quantity units from the current market state
func (s *Service) PlanFulfillment(ctx context.Context, quantity entities.Quantity) (*entities.FulfillmentPlan, error) {
	stands, err := s.repos.Stands.GetAllStands()
	if err != nil {
		return nil, fmt.Errorf("failed to load stands: %w", err)
	}
	suppliers, err := s.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}

	keys := make([]string, 0, len(stands)+len(suppliers))
	for _, st := range stands {
		keys = append(keys, locking.StandKey(st.ID))
	}
	for _, sp := range suppliers {
		keys = append(keys, locking.SupplierKey(sp.ID))
	}
	unlock := s.locks.Lock(keys...)
	defer unlock()

	return s.planner.Plan(ctx, quantity, stands, suppliers)
}

// ExecutePlan applies a plan on behalf of a buyer
func (s *Service) ExecutePlan(ctx context.Context, plan *entities.FulfillmentPlan, buyerID string) (*dto.ExecutionResult, error) {
	return s.executor.Execute(ctx, plan, buyerID)
}

// RecomputePricing reprices a stand for an environmental signal and remembers
// the signal for the stand's location
func (s *Service) RecomputePricing(_ context.Context, standID string, signal entities.EnvironmentalSignal) (*entities.Pricing, error) {
	unlock := s.locks.Lock(locking.StandKey(standID))
	defer unlock()

	stand, err := s.repos.Stands.GetStand(standID)
	if err != nil {
		return nil, fmt.Errorf("stand %s: %w", standID, err)
	}
	s.setSignal(stand.Location, signal)

	now := s.clock.Now()
	s.pricing.Recompute(stand, signal, now)
	if err := s.repos.Stands.SaveStand(stand); err != nil {
		return nil, err
	}
	s.emit(events.NewPricingRecomputedEvent(stand, signal, now))

	pricing := stand.Pricing
	return &pricing, nil
}

// CheckReplenishment runs a replenishment pass for a stand against a supplier,
// or the stand's preferred supplier when supplierID is empty
func (s *Service) CheckReplenishment(ctx context.Context, standID, supplierID string, isLargeOrder bool) (*dto.ReplenishmentResult, error) {
	return s.replenisher.Check(ctx, standID, supplierID, isLargeOrder)
}

// RunPayrollIfDue processes payroll for a stand or supplier; the record is nil when nothing was due
func (s *Service) RunPayrollIfDue(ctx context.Context, partyID string) (*entities.PayrollRecord, error) {
	var rec *entities.PayrollRecord
	err := s.withParty(partyID, func(party *entities.Party) error {
		var err error
		rec, err = s.payroll.RunIfDue(ctx, party)
		return err
	})
	return rec, err
}

// PayrollStatus reports a party's payroll schedule without processing it
func (s *Service) PayrollStatus(_ context.Context, partyID string) (payroll.Status, error) {
	var status payroll.Status
	err := s.withParty(partyID, func(party *entities.Party) error {
		status = s.payroll.Status(party)
		return nil
	})
	return status, err
}

// QuoteSupplierPrice returns the floored unit price for buying quantity units from a supplier
func (s *Service) QuoteSupplierPrice(_ context.Context, supplierID string, quantity entities.Quantity) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, fmt.Errorf("quote quantity must be positive, got %d: %w", quantity, entities.ErrInvalidInput)
	}
	unlock := s.locks.Lock(locking.SupplierKey(supplierID))
	defer unlock()

	supplier, err := s.repos.Suppliers.GetSupplier(supplierID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("supplier %s: %w", supplierID, entities.ErrSupplierNotFound)
	}
	return s.supplierPricing.QuoteWithFloor(supplier, quantity), nil
}

// Sell sells quantity units from one stand to a buyer, producing on demand
// from raw stock when finished goods fall short
func (s *Service) Sell(ctx context.Context, standID, buyerID string, quantity entities.Quantity) (*dto.SaleResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("sale quantity must be positive, got %d: %w", quantity, entities.ErrInvalidInput)
	}

	result, err := s.sell(ctx, standID, buyerID, quantity)
	if err != nil {
		return nil, err
	}

	large := quantity >= s.settings.LargeOrderThreshold
	repl, err := s.replenisher.Check(ctx, standID, "", large)
	if err != nil {
		s.logger.Warn("replenishment after sale failed", zap.String("stand_id", standID), zap.Error(err))
	}
	result.Replenishment = repl
	return result, nil
}

func (s *Service) sell(ctx context.Context, standID, buyerID string, quantity entities.Quantity) (*dto.SaleResult, error) {
	unlock := s.locks.Lock(locking.StandKey(standID), locking.AgentKey(buyerID))
	defer unlock()

	stand, err := s.repos.Stands.GetStand(standID)
	if err != nil {
		return nil, fmt.Errorf("stand %s: %w", standID, err)
	}
	agent, err := s.repos.Agents.GetAgent(buyerID)
	if err != nil {
		return nil, fmt.Errorf("buyer %s: %w", buyerID, err)
	}
	if !stand.IsActive() {
		return nil, fmt.Errorf("stand %s: %w", standID, entities.ErrEntityClosed)
	}
	for _, id := range []string{buyerID, standID} {
		if !s.verifier.Verify(ctx, id) {
			return nil, fmt.Errorf("party %s: %w", id, entities.ErrIdentityVerificationFailed)
		}
	}

	now := s.clock.Now()
	inv := stand.Inventory
	price := stand.Price()
	amount := entities.Round2(price.Mul(decimal.NewFromInt(int64(quantity))))
	if !agent.CanAfford(amount) {
		return nil, fmt.Errorf("buyer %s cannot cover %s: %w", buyerID, amount.StringFixed(2), entities.ErrInsufficientFunds)
	}

	var produced entities.Quantity
	if inv.FinishedGoods < quantity {
		produced = min(quantity-inv.FinishedGoods, inv.MaxProducible())
		if produced > 0 {
			if err := inv.Produce(produced); err != nil {
				return nil, err
			}
			s.emit(events.NewProductionCompletedEvent(stand.ID, produced, inv.FinishedGoods, now))
		}
	}
	if err := inv.ConsumeFinished(quantity); err != nil {
		if saveErr := s.repos.Stands.SaveStand(stand); saveErr != nil {
			return nil, errors.Join(err, saveErr)
		}
		return nil, fmt.Errorf("stand %s: %w", standID, err)
	}

	if err := agent.Debit(amount); err != nil {
		return nil, err
	}
	agent.Purchased += quantity

	cogs := entities.Round2(stand.UnitProductionCost.Mul(decimal.NewFromInt(int64(quantity))))
	stand.Financial.RecordSale(now, amount, cogs)
	s.pricing.ObserveSale(stand, quantity, now)
	s.pricing.NudgeDemand(stand, now)
	s.pricing.NudgeSupply(stand, now)
	signal := s.signal(stand.Location)
	s.pricing.Recompute(stand, signal, now)

	tx, err := entities.NewTransaction(now, buyerID, standID, amount, quantity, entities.CategorySale,
		fmt.Sprintf("%d units from %s", quantity, stand.Name))
	if err != nil {
		return nil, err
	}
	if err := s.repos.Transactions.AppendTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to journal sale: %w", err)
	}
	if err := s.repos.Stands.SaveStand(stand); err != nil {
		return nil, err
	}
	if err := s.repos.Agents.SaveAgent(agent); err != nil {
		return nil, err
	}

	s.emit(events.NewSaleRecordedEvent(standID, buyerID, quantity, amount, cogs, now))
	s.emit(events.NewPricingRecomputedEvent(stand, signal, now))

	return &dto.SaleResult{
		StandID:       standID,
		BuyerID:       buyerID,
		Quantity:      quantity,
		UnitPrice:     price,
		Amount:        amount,
		Produced:      produced,
		TransactionID: tx.ID,
		Pricing:       stand.Pricing,
	}, nil
}

// RecordTaxes sets a party's tax from its current profit before tax and
// journals any increase over the previously recorded amount
func (s *Service) RecordTaxes(_ context.Context, partyID string) (decimal.Decimal, error) {
	var owed decimal.Decimal
	err := s.withParty(partyID, func(party *entities.Party) error {
		now := s.clock.Now()
		previous := party.Financial.Taxes
		owed = party.Financial.RecordTax(now, s.settings.TaxRate)

		if delta := owed.Sub(previous); delta.IsPositive() {
			tx, err := entities.NewTransaction(now, party.ID, TaxAuthority, delta, 0, entities.CategoryTax,
				fmt.Sprintf("tax at %s%%", s.settings.TaxRate.Mul(decimal.NewFromInt(100)).String()))
			if err != nil {
				return err
			}
			if err := s.repos.Transactions.AppendTransaction(tx); err != nil {
				return fmt.Errorf("failed to journal tax: %w", err)
			}
		}
		s.emit(events.NewTaxRecordedEvent(party.ID, s.settings.TaxRate, owed, now))
		return nil
	})
	return owed, err
}

// Tick fires every scheduled delivery that is due, reorders supplier stock
// that ran low and processes any payroll that fell due. It returns the number
// of deliveries run.
func (s *Service) Tick(ctx context.Context) (int, error) {
	var errs []error

	ran, err := s.queue.RunDue(ctx, s.clock.Now())
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := s.restocker.CheckAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("supplier restock: %w", err))
	}
	if err := s.runAllPayroll(ctx); err != nil {
		errs = append(errs, err)
	}
	return ran, errors.Join(errs...)
}

// CompleteDeliveries runs every queued delivery regardless of its due time
func (s *Service) CompleteDeliveries(ctx context.Context) (int, error) {
	return s.queue.Drain(ctx)
}

// PendingDeliveries returns the number of queued deliveries
func (s *Service) PendingDeliveries() int {
	return s.queue.Len()
}

// RefreshEnvironment reads a new signal for every stand's location, nudges
// demand and supply, and reprices the stand. It returns the number of stands repriced.
func (s *Service) RefreshEnvironment(ctx context.Context) (int, error) {
	stands, err := s.repos.Stands.GetAllStands()
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	fetched := make(map[string]entities.EnvironmentalSignal)
	repriced := 0
	for _, st := range stands {
		signal, ok := fetched[st.Location]
		if !ok {
			signal, err = s.env.Signal(ctx, st.Location, now)
			if err != nil {
				return repriced, fmt.Errorf("environment for %s: %w", st.Location, err)
			}
			fetched[st.Location] = signal
			s.setSignal(st.Location, signal)
			s.emit(events.NewEnvironmentRefreshedEvent(st.Location, signal, now))
		}

		if err := s.reprice(st.ID, signal, now); err != nil {
			return repriced, err
		}
		repriced++
	}
	return repriced, nil
}

func (s *Service) reprice(standID string, signal entities.EnvironmentalSignal, now time.Time) error {
	unlock := s.locks.Lock(locking.StandKey(standID))
	defer unlock()

	stand, err := s.repos.Stands.GetStand(standID)
	if err != nil {
		return err
	}
	s.pricing.NudgeDemand(stand, now)
	s.pricing.NudgeSupply(stand, now)
	s.pricing.Recompute(stand, signal, now)
	if err := s.repos.Stands.SaveStand(stand); err != nil {
		return err
	}
	s.emit(events.NewPricingRecomputedEvent(stand, signal, now))
	return nil
}

// FinancialReport summarizes the books of every stand and supplier
func (s *Service) FinancialReport(_ context.Context) (*dto.FinancialReport, error) {
	stands, err := s.repos.Stands.GetAllStands()
	if err != nil {
		return nil, err
	}
	suppliers, err := s.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return nil, err
	}
	txs, err := s.repos.Transactions.GetTransactions()
	if err != nil {
		return nil, err
	}
	inTransit, err := s.repos.Orders.GetOrdersInTransit()
	if err != nil {
		return nil, err
	}

	report := &dto.FinancialReport{
		Stands:           make([]dto.PartyReport, 0, len(stands)),
		Suppliers:        make([]dto.PartyReport, 0, len(suppliers)),
		TotalRevenue:     decimal.Zero,
		TotalNetProfit:   decimal.Zero,
		TransactionCount: len(txs),
		InTransitOrders:  len(inTransit),
	}
	for _, st := range stands {
		unlock := s.locks.Lock(locking.StandKey(st.ID))
		r := partyReport(&st.Party, "stand")
		r.Stock = st.Inventory.FinishedGoods
		r.Price = st.Price()
		unlock()
		report.Stands = append(report.Stands, r)
		report.TotalRevenue = report.TotalRevenue.Add(r.Revenue)
		report.TotalNetProfit = report.TotalNetProfit.Add(r.NetProfit)
	}
	for _, sp := range suppliers {
		unlock := s.locks.Lock(locking.SupplierKey(sp.ID))
		r := partyReport(&sp.Party, "supplier")
		r.Stock = sp.Stock
		r.Price = sp.ListPrice
		unlock()
		report.Suppliers = append(report.Suppliers, r)
		report.TotalRevenue = report.TotalRevenue.Add(r.Revenue)
		report.TotalNetProfit = report.TotalNetProfit.Add(r.NetProfit)
	}
	return report, nil
}

// Signal returns the last environmental signal seen for a location
func (s *Service) Signal(location string) entities.EnvironmentalSignal {
	return s.signal(location)
}

func partyReport(p *entities.Party, kind string) dto.PartyReport {
	f := p.Financial
	r := dto.PartyReport{
		ID:                p.ID,
		Name:              p.Name,
		Kind:              kind,
		Status:            p.Status.String(),
		Revenue:           f.Revenue,
		COGS:              f.COGS,
		GrossProfit:       f.GrossProfit,
		OperatingExpenses: f.OperatingExpenses,
		Purchases:         f.Purchases,
		Taxes:             f.Taxes,
		NetProfit:         f.NetProfit,
		ProfitMargin:      f.ProfitMargin(),
	}
	if p.Payroll != nil {
		r.NextPayroll = p.Payroll.NextPayrollDate.Format(time.RFC3339)
	}
	return r
}

func (s *Service) runAllPayroll(ctx context.Context) error {
	stands, err := s.repos.Stands.GetAllStands()
	if err != nil {
		return err
	}
	suppliers, err := s.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return err
	}

	var errs []error
	ids := make([]string, 0, len(stands)+len(suppliers))
	for _, st := range stands {
		ids = append(ids, st.ID)
	}
	for _, sp := range suppliers {
		ids = append(ids, sp.ID)
	}
	for _, id := range ids {
		if _, err := s.RunPayrollIfDue(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("payroll for %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// withParty runs fn on the stand or supplier with the given ID under its lock and saves it
func (s *Service) withParty(partyID string, fn func(*entities.Party) error) error {
	if stand, err := s.repos.Stands.GetStand(partyID); err == nil {
		unlock := s.locks.Lock(locking.StandKey(partyID))
		defer unlock()
		if err := fn(&stand.Party); err != nil {
			return err
		}
		return s.repos.Stands.SaveStand(stand)
	}
	if supplier, err := s.repos.Suppliers.GetSupplier(partyID); err == nil {
		unlock := s.locks.Lock(locking.SupplierKey(partyID))
		defer unlock()
		if err := fn(&supplier.Party); err != nil {
			return err
		}
		return s.repos.Suppliers.SaveSupplier(supplier)
	}
	return fmt.Errorf("party %s: %w", partyID, entities.ErrNotFound)
}

func (s *Service) signal(location string) entities.EnvironmentalSignal {
	s.signalsMu.RLock()
	defer s.signalsMu.RUnlock()
	if sig, ok := s.signals[location]; ok {
		return sig
	}
	return entities.NeutralSignal
}

func (s *Service) setSignal(location string, signal entities.EnvironmentalSignal) {
	s.signalsMu.Lock()
	defer s.signalsMu.Unlock()
	s.signals[location] = signal
}

func (s *Service) emit(event events.Event) {
	if err := events.Publish(s.events, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", event.Type()), zap.Error(err))
	}
}
