package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/application/services/market"
	"github.com/vsinha/marketsim/pkg/application/services/simulation"
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/config"
	"github.com/vsinha/marketsim/pkg/infrastructure/environment"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/identity"
	"github.com/vsinha/marketsim/pkg/infrastructure/logging"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/memory"
	sample "github.com/vsinha/marketsim/pkg/infrastructure/testing"
	"github.com/vsinha/marketsim/pkg/interfaces/cli/output"
)

// Action names a market command
type Action string

const (
	ActionPlan     Action = "plan"
	ActionQuote    Action = "quote"
	ActionSimulate Action = "simulate"
	ActionPayroll  Action = "payroll"
	ActionReport   Action = "report"
)

// Config holds configuration for the market command
type Config struct {
	ConfigPath  string
	ScenarioDir string // built-in sample market when empty
	OutputDir   string
	Format      string
	Verbose     bool

	Quantity      int64
	BuyerID       string
	Execute       bool
	Ticks         int
	DemandPerTick int64
	Concurrency   int
	WallClock     bool
	RunPayroll    bool
	RecordTaxes   bool

	Start  time.Time // time.Now when zero
	Logger *zap.Logger
	Out    io.Writer
}

// MarketCommand loads a market and runs one action against it
type MarketCommand struct {
	config   Config
	settings *config.Config
	logger   *zap.Logger
	clock    clock.Clock
	repos    market.Repositories
	market   *market.Service
	store    *events.InMemoryEventStore
	closers  []func() error
}

// NewMarketCommand creates a new market command with the given configuration
func NewMarketCommand(config Config) *MarketCommand {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Format == "" {
		config.Format = "text"
	}
	return &MarketCommand{config: config}
}

// Execute runs the action and writes its output
func (c *MarketCommand) Execute(ctx context.Context, action Action) (err error) {
	if err := c.validateInputs(action); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	defer func() {
		err = errors.Join(err, c.Close())
	}()
	if err := c.setup(ctx); err != nil {
		return err
	}

	start := time.Now()
	result := &output.Result{Command: string(action)}
	switch action {
	case ActionPlan:
		err = c.plan(ctx, result)
	case ActionQuote:
		err = c.quote(ctx, result)
	case ActionSimulate:
		err = c.simulate(ctx, result)
	case ActionPayroll:
		err = c.payroll(ctx, result)
	case ActionReport:
		err = c.report(ctx, result)
	}
	if err != nil {
		return err
	}

	return output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Elapsed:   time.Since(start),
		Writer:    c.config.Out,
	})
}

// Close releases the event publisher
func (c *MarketCommand) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *MarketCommand) validateInputs(action Action) error {
	switch action {
	case ActionPlan, ActionQuote:
		if c.config.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive, got %d", c.config.Quantity)
		}
	case ActionSimulate:
		if c.config.Ticks < 0 || c.config.DemandPerTick < 0 {
			return fmt.Errorf("ticks and demand must not be negative")
		}
		if c.config.WallClock && c.config.Ticks == 0 {
			return fmt.Errorf("a wall-clock simulation needs a tick limit")
		}
	case ActionPayroll, ActionReport:
	default:
		return fmt.Errorf("unknown command: %s", action)
	}

	switch c.config.Format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("unsupported output format: %s", c.config.Format)
	}
	if c.config.ScenarioDir != "" {
		if _, err := os.Stat(c.config.ScenarioDir); err != nil {
			return fmt.Errorf("scenario directory: %w", err)
		}
	}
	return nil
}

func (c *MarketCommand) setup(ctx context.Context) error {
	settings, err := config.Load(c.config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.settings = settings

	c.logger = c.config.Logger
	if c.logger == nil {
		logCfg := logging.FromConfig(settings.Log.Level, settings.Log.Format, settings.Log.Output)
		if c.config.Verbose {
			logCfg.Level = "debug"
		}
		if c.logger, err = logging.New(logCfg); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
	}

	now := c.config.Start
	if now.IsZero() {
		now = time.Now().UTC().Truncate(time.Second)
	}
	if c.config.WallClock {
		c.clock = clock.System{}
	} else {
		c.clock = clock.NewManual(now)
	}

	if err := c.loadRepositories(now); err != nil {
		return err
	}

	c.store = events.NewInMemoryEventStore(c.logger.Named("events"))
	if c.config.Verbose {
		if err := c.store.Subscribe([]string{events.AllEvents}, events.NewLoggingHandler(c.logger.Named("events"))); err != nil {
			return err
		}
	}
	if settings.Events.RedisEnabled {
		if err := c.connectRedis(ctx); err != nil {
			return err
		}
	}

	verifier, err := c.buildVerifier()
	if err != nil {
		return err
	}

	c.market = market.New(c.repos, market.Options{
		Clock:       c.clock,
		Verifier:    verifier,
		Environment: environment.NewSynthetic(settings.Environment.BaseTemperature, settings.Environment.Amplitude),
		Events:      c.store,
		Logger:      c.logger,
		Settings:    market.SettingsFromConfig(settings),
	})
	return nil
}

func (c *MarketCommand) loadRepositories(now time.Time) error {
	period := c.settings.Payroll.Period

	if c.config.ScenarioDir == "" {
		m := sample.BuildSampleMarket(now)
		c.repos = market.Repositories{
			Stands: m.Stands, Suppliers: m.Suppliers, Agents: m.Agents,
			Transactions: m.Transactions, Orders: m.Orders,
		}
		return c.reschedulePayroll(now, period)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "Loading scenario from %s\n", c.config.ScenarioDir)
	}
	scenario, err := csv.NewLoader(now, period).LoadScenario(c.config.ScenarioDir)
	if err != nil {
		return fmt.Errorf("error loading scenario: %w", err)
	}

	validation := services.NewScenarioValidator().ValidateScenario(scenario.Stands, scenario.Suppliers, scenario.Agents)
	if !validation.Valid() {
		return fmt.Errorf("scenario validation failed: %s", strings.Join(validation.Errors, "; "))
	}
	for _, w := range validation.Warnings {
		c.logger.Warn("scenario warning", zap.String("warning", w))
	}

	stands := memory.NewStandRepository(len(scenario.Stands))
	if err := stands.LoadStands(scenario.Stands); err != nil {
		return fmt.Errorf("failed to load stands into repository: %w", err)
	}
	suppliers := memory.NewSupplierRepository(len(scenario.Suppliers))
	if err := suppliers.LoadSuppliers(scenario.Suppliers); err != nil {
		return fmt.Errorf("failed to load suppliers into repository: %w", err)
	}
	agents := memory.NewAgentRepository()
	if err := agents.LoadAgents(scenario.Agents); err != nil {
		return fmt.Errorf("failed to load agents into repository: %w", err)
	}

	c.repos = market.Repositories{
		Stands:       stands,
		Suppliers:    suppliers,
		Agents:       agents,
		Transactions: memory.NewTransactionRepository(),
		Orders:       memory.NewSupplyOrderRepository(),
	}
	if c.config.Verbose {
		fmt.Fprintf(c.config.Out, "Loaded %d stands, %d suppliers, %d agents\n\n",
			len(scenario.Stands), len(scenario.Suppliers), len(scenario.Agents))
	}
	return nil
}

// reschedulePayroll applies the configured payroll period to the sample market
func (c *MarketCommand) reschedulePayroll(now time.Time, period time.Duration) error {
	if period == entities.DefaultPayrollPeriod {
		return nil
	}
	stands, err := c.repos.Stands.GetAllStands()
	if err != nil {
		return err
	}
	for _, s := range stands {
		s.Payroll = entities.NewPayrollSchedule(now, period, true)
	}
	suppliers, err := c.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return err
	}
	for _, s := range suppliers {
		s.Payroll = entities.NewPayrollSchedule(now, period, true)
	}
	return nil
}

func (c *MarketCommand) connectRedis(ctx context.Context) error {
	client, err := events.NewRedisClient(c.settings.Events)
	if err != nil {
		return fmt.Errorf("failed to configure redis: %w", err)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	c.closers = append(c.closers, client.Close)

	publisher := events.NewRedisPublisher(client, c.settings.Events.Stream, c.settings.Events.MaxLen, c.logger.Named("redis"))
	return c.store.Subscribe([]string{events.AllEvents}, publisher)
}

// buildVerifier issues every party a credential when identity mode is jwt
func (c *MarketCommand) buildVerifier() (identity.Verifier, error) {
	idCfg := c.settings.Identity
	if idCfg.Mode != "jwt" {
		return identity.AllowAll{}, nil
	}

	v := identity.NewJWTVerifier(idCfg.Secret, idCfg.Issuer, c.clock.Now, c.logger.Named("identity"))
	stands, err := c.repos.Stands.GetAllStands()
	if err != nil {
		return nil, err
	}
	for _, s := range stands {
		if err := v.IssueAndRegister(s.ID, "stand", idCfg.TokenTTL); err != nil {
			return nil, err
		}
	}
	suppliers, err := c.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return nil, err
	}
	for _, s := range suppliers {
		if err := v.IssueAndRegister(s.ID, "supplier", idCfg.TokenTTL); err != nil {
			return nil, err
		}
	}
	agents, err := c.repos.Agents.GetAllAgents()
	if err != nil {
		return nil, err
	}
	for _, a := range agents {
		if err := v.IssueAndRegister(a.ID, "agent", idCfg.TokenTTL); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (c *MarketCommand) plan(ctx context.Context, result *output.Result) error {
	plan, err := c.market.PlanFulfillment(ctx, entities.Quantity(c.config.Quantity))
	if err != nil {
		return fmt.Errorf("error planning fulfillment: %w", err)
	}
	result.Plan = plan
	if !c.config.Execute {
		return nil
	}

	buyer := c.config.BuyerID
	if buyer == "" {
		agents, err := c.repos.Agents.GetAllAgents()
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			return fmt.Errorf("no buyer given and the scenario has no agents")
		}
		buyer = agents[0].ID
	}

	exec, err := c.market.ExecutePlan(ctx, plan, buyer)
	if err != nil {
		return fmt.Errorf("error executing plan: %w", err)
	}
	result.Execution = exec
	if _, err := c.market.CompleteDeliveries(ctx); err != nil {
		return fmt.Errorf("error completing deliveries: %w", err)
	}
	return c.report(ctx, result)
}

func (c *MarketCommand) quote(ctx context.Context, result *output.Result) error {
	suppliers, err := c.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return err
	}
	qty := entities.Quantity(c.config.Quantity)
	for _, s := range suppliers {
		price, err := c.market.QuoteSupplierPrice(ctx, s.ID, qty)
		if err != nil {
			return fmt.Errorf("error quoting %s: %w", s.ID, err)
		}
		result.Quotes = append(result.Quotes, output.Quote{
			SupplierID: s.ID,
			Name:       s.Name,
			Quality:    s.Quality.String(),
			Quantity:   qty,
			UnitPrice:  price,
			Total:      entities.Round2(price.Mul(decimal.NewFromInt(int64(qty)))),
			Available:  s.Stock,
		})
	}
	return nil
}

func (c *MarketCommand) simulate(ctx context.Context, result *output.Result) error {
	agents, err := c.repos.Agents.GetAllAgents()
	if err != nil {
		return err
	}
	buyers := make([]string, 0, len(agents))
	for _, a := range agents {
		buyers = append(buyers, a.ID)
	}

	runner, err := simulation.NewRunner(c.market, c.clock, simulation.Config{
		TickInterval:        c.settings.Simulation.TickInterval,
		EnvironmentInterval: c.settings.Simulation.EnvironmentInterval,
		MaxTicks:            c.config.Ticks,
		DemandPerTick:       entities.Quantity(c.config.DemandPerTick),
		BuyerIDs:            buyers,
		MaxConcurrentBuyers: c.config.Concurrency,
	}, c.logger.Named("simulation"))
	if err != nil {
		return err
	}

	runErr := runner.Run(ctx)
	stats := runner.Stats()
	result.Simulation = &stats
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("simulation stopped: %w", runErr)
	}
	return c.report(ctx, result)
}

func (c *MarketCommand) payroll(ctx context.Context, result *output.Result) error {
	if manual, ok := c.clock.(*clock.Manual); ok && c.config.RunPayroll {
		manual.Advance(c.settings.Payroll.Period)
	}

	ids, err := c.partyIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		var line output.PayrollLine
		if c.config.RunPayroll {
			rec, err := c.market.RunPayrollIfDue(ctx, id)
			if err != nil {
				return fmt.Errorf("error running payroll for %s: %w", id, err)
			}
			line.Processed = rec
		}
		if line.Status, err = c.market.PayrollStatus(ctx, id); err != nil {
			return err
		}
		result.Payroll = append(result.Payroll, line)
	}
	return nil
}

func (c *MarketCommand) report(ctx context.Context, result *output.Result) error {
	if c.config.RecordTaxes {
		ids, err := c.partyIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := c.market.RecordTaxes(ctx, id); err != nil {
				return fmt.Errorf("error recording taxes for %s: %w", id, err)
			}
		}
	}
	report, err := c.market.FinancialReport(ctx)
	if err != nil {
		return fmt.Errorf("error building financial report: %w", err)
	}
	result.Report = report
	return nil
}

// partyIDs lists every stand then every supplier
func (c *MarketCommand) partyIDs() ([]string, error) {
	stands, err := c.repos.Stands.GetAllStands()
	if err != nil {
		return nil, err
	}
	suppliers, err := c.repos.Suppliers.GetAllSuppliers()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stands)+len(suppliers))
	for _, s := range stands {
		ids = append(ids, s.ID)
	}
	for _, s := range suppliers {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
