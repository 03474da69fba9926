package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/marketsim/pkg/application/dto"
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
)

// Market is the part of the market service the runner drives
type Market interface {
	Tick(ctx context.Context) (int, error)
	RefreshEnvironment(ctx context.Context) (int, error)
	PlanFulfillment(ctx context.Context, quantity entities.Quantity) (*entities.FulfillmentPlan, error)
	ExecutePlan(ctx context.Context, plan *entities.FulfillmentPlan, buyerID string) (*dto.ExecutionResult, error)
	CompleteDeliveries(ctx context.Context) (int, error)
}

// Advancer is a clock the runner can move forward itself
type Advancer interface {
	clock.Clock
	Advance(d time.Duration) time.Time
}

// Config controls the simulation loop
type Config struct {
	TickInterval        time.Duration
	EnvironmentInterval time.Duration
	MaxTicks            int // 0 runs until stopped
	DemandPerTick       entities.Quantity
	BuyerIDs            []string
	MaxConcurrentBuyers int
}

// Stats counts what the runner did
type Stats struct {
	Ticks           int               `json:"ticks"`
	Deliveries      int               `json:"deliveries"`
	Refreshes       int               `json:"refreshes"`
	PlansExecuted   int               `json:"plans_executed"`
	UnitsSold       entities.Quantity `json:"units_sold"`
	Unsatisfied     int               `json:"unsatisfied"`
	FailedPurchases int               `json:"failed_purchases"`
	DrainedAtStop   int               `json:"drained_at_stop"`
}

// Runner drives the market on a tick loop. With an Advancer clock every tick
// moves logical time by TickInterval without waiting; otherwise ticks follow
// the wall clock and the environment refreshes on its own loop.
type Runner struct {
	market Market
	clock  clock.Clock
	cfg    Config
	logger *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// NewRunner creates a runner for market
func NewRunner(market Market, clk clock.Clock, cfg Config, logger *zap.Logger) (*Runner, error) {
	if market == nil {
		return nil, fmt.Errorf("market cannot be nil: %w", entities.ErrInvalidInput)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v: %w", cfg.TickInterval, entities.ErrInvalidInput)
	}
	if cfg.DemandPerTick < 0 {
		return nil, fmt.Errorf("demand per tick cannot be negative: %w", entities.ErrInvalidInput)
	}
	if cfg.MaxConcurrentBuyers <= 0 {
		cfg.MaxConcurrentBuyers = 4
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		market: market,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
	}, nil
}

// Stop halts future ticks. Deliveries already queued still complete before Run returns.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Stats returns a copy of the runner's counters
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run ticks until Stop is called, MaxTicks is reached or ctx is cancelled.
// On return every queued delivery has been completed.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoops := context.WithCancel(gctx)
	defer cancelLoops()

	_, logical := r.clock.(Advancer)

	g.Go(func() error {
		defer cancelLoops()
		return r.tickLoop(loopCtx, logical)
	})
	if !logical && r.cfg.EnvironmentInterval > 0 {
		g.Go(func() error {
			return r.environmentLoop(loopCtx)
		})
	}

	runErr := g.Wait()

	drained, drainErr := r.market.CompleteDeliveries(context.WithoutCancel(ctx))
	r.update(func(s *Stats) { s.DrainedAtStop = drained })
	if drainErr != nil {
		r.logger.Warn("draining deliveries failed", zap.Error(drainErr))
	}

	stats := r.Stats()
	r.logger.Info("simulation stopped",
		zap.Int("ticks", stats.Ticks),
		zap.Int("plans_executed", stats.PlansExecuted),
		zap.Int64("units_sold", int64(stats.UnitsSold)),
		zap.Int("drained", drained))

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return ctx.Err()
}

func (r *Runner) tickLoop(ctx context.Context, logical bool) error {
	var ticker *time.Ticker
	if !logical {
		ticker = time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
	}
	lastRefresh := r.clock.Now()

	for n := 0; r.cfg.MaxTicks == 0 || n < r.cfg.MaxTicks; n++ {
		if logical {
			select {
			case <-r.stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			r.clock.(Advancer).Advance(r.cfg.TickInterval)
		} else {
			select {
			case <-r.stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		if logical && r.cfg.EnvironmentInterval > 0 {
			if now := r.clock.Now(); now.Sub(lastRefresh) >= r.cfg.EnvironmentInterval {
				r.refresh(ctx)
				lastRefresh = now
			}
		}
		if err := r.tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) environmentLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.EnvironmentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Runner) refresh(ctx context.Context) {
	n, err := r.market.RefreshEnvironment(ctx)
	if err != nil {
		r.logger.Warn("environment refresh failed", zap.Error(err))
		return
	}
	r.update(func(s *Stats) { s.Refreshes++ })
	r.logger.Debug("environment refreshed", zap.Int("stands", n))
}

func (r *Runner) tick(ctx context.Context) error {
	delivered, err := r.market.Tick(ctx)
	if err != nil {
		r.logger.Warn("tick reported errors", zap.Error(err))
	}
	r.update(func(s *Stats) {
		s.Ticks++
		s.Deliveries += delivered
	})

	if r.cfg.DemandPerTick == 0 || len(r.cfg.BuyerIDs) == 0 {
		return nil
	}

	buyers, bctx := errgroup.WithContext(ctx)
	buyers.SetLimit(r.cfg.MaxConcurrentBuyers)
	for _, buyerID := range r.cfg.BuyerIDs {
		buyerID := buyerID
		buyers.Go(func() error {
			return r.purchase(bctx, buyerID)
		})
	}
	return buyers.Wait()
}

// purchase plans and executes one buyer's demand; business failures are counted, not returned
func (r *Runner) purchase(ctx context.Context, buyerID string) error {
	plan, err := r.market.PlanFulfillment(ctx, r.cfg.DemandPerTick)
	if err != nil {
		if errors.Is(err, entities.ErrAllocationUnsatisfiable) {
			r.update(func(s *Stats) { s.Unsatisfied++ })
			return nil
		}
		return r.businessOrFatal(buyerID, err)
	}

	result, err := r.market.ExecutePlan(ctx, plan, buyerID)
	if err != nil {
		return r.businessOrFatal(buyerID, err)
	}
	r.update(func(s *Stats) {
		s.PlansExecuted++
		s.UnitsSold += result.DeliveredQuantity
		s.FailedPurchases += len(result.Failed())
	})
	return nil
}

func (r *Runner) businessOrFatal(buyerID string, err error) error {
	var domainErr *entities.DomainError
	if errors.As(err, &domainErr) {
		r.logger.Debug("purchase refused", zap.String("buyer_id", buyerID), zap.Error(err))
		r.update(func(s *Stats) { s.FailedPurchases++ })
		return nil
	}
	return fmt.Errorf("buyer %s: %w", buyerID, err)
}

func (r *Runner) update(fn func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}
