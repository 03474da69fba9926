package replenishment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
	"github.com/vsinha/marketsim/pkg/domain/services"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
	"github.com/vsinha/marketsim/pkg/infrastructure/locking"
	"github.com/vsinha/marketsim/pkg/infrastructure/schedule"
)

// SupplierRestocker reorders stock for suppliers that fall to their reorder
// threshold. At most one restock per supplier is in transit at a time.
type SupplierRestocker struct {
	suppliers repositories.SupplierRepository
	locks     *locking.KeyedMutex
	queue     *schedule.Queue
	events    events.EventStore
	clock     clock.Clock
	delay     time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
}

// NewSupplierRestocker creates a restocker whose deliveries arrive after delay
func NewSupplierRestocker(
	suppliers repositories.SupplierRepository,
	locks *locking.KeyedMutex,
	queue *schedule.Queue,
	store events.EventStore,
	clk clock.Clock,
	delay time.Duration,
	logger *zap.Logger,
) *SupplierRestocker {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierRestocker{
		suppliers: suppliers,
		locks:     locks,
		queue:     queue,
		events:    store,
		clock:     clk,
		delay:     delay,
		logger:    logger,
		pending:   make(map[string]bool),
	}
}

// CheckAll runs Check for every supplier and returns how many restocks were ordered
func (r *SupplierRestocker) CheckAll(ctx context.Context) (int, error) {
	suppliers, err := r.suppliers.GetAllSuppliers()
	if err != nil {
		return 0, err
	}
	ordered := 0
	for _, s := range suppliers {
		ok, err := r.Check(ctx, s.ID)
		if err != nil {
			return ordered, err
		}
		if ok {
			ordered++
		}
	}
	return ordered, nil
}

// Check orders a restock for one supplier when its stock is at or under the
// reorder threshold. It reports whether an order was placed.
func (r *SupplierRestocker) Check(_ context.Context, supplierID string) (bool, error) {
	unlock := r.locks.Lock(locking.SupplierKey(supplierID))
	defer unlock()

	supplier, err := r.suppliers.GetSupplier(supplierID)
	if err != nil {
		return false, fmt.Errorf("supplier %s: %w", supplierID, err)
	}
	policy := supplier.Reorder
	if !policy.Enabled || !supplier.IsActive() || supplier.Stock > policy.Threshold || policy.Quantity <= 0 {
		return false, nil
	}
	if !r.markPending(supplierID) {
		return false, nil
	}

	now := r.clock.Now()
	cost := entities.Round2(supplier.ListPrice.Mul(decimal.NewFromInt(int64(policy.Quantity))))
	supplier.Financial.RecordPurchase(now, cost)
	if err := r.suppliers.SaveSupplier(supplier); err != nil {
		r.clearPending(supplierID)
		return false, err
	}

	qty := policy.Quantity
	r.queue.Schedule(now.Add(r.delay), "restock "+supplierID, func(ctx context.Context, at time.Time) error {
		return r.deliver(ctx, supplierID, qty, at)
	})

	r.emit(events.NewSupplierRestockOrderedEvent(supplier, qty, cost, now))
	r.logger.Info("supplier restock ordered",
		zap.String("supplier_id", supplierID),
		zap.Int64("stock", int64(supplier.Stock)),
		zap.Int64("quantity", int64(qty)),
		zap.String("cost", cost.StringFixed(2)))
	return true, nil
}

func (r *SupplierRestocker) deliver(_ context.Context, supplierID string, qty entities.Quantity, at time.Time) error {
	defer r.clearPending(supplierID)

	unlock := r.locks.Lock(locking.SupplierKey(supplierID))
	defer unlock()

	supplier, err := r.suppliers.GetSupplier(supplierID)
	if err != nil {
		return fmt.Errorf("restock delivery for %s: %w", supplierID, err)
	}
	supplier.Restock(qty)
	supplier.ListPrice = services.AdjustedListPrice(supplier.Stock, at.Month())
	if err := r.suppliers.SaveSupplier(supplier); err != nil {
		return err
	}

	r.emit(events.NewSupplierRestockedEvent(supplier, qty, at))
	r.logger.Info("supplier restocked",
		zap.String("supplier_id", supplierID),
		zap.Int64("stock", int64(supplier.Stock)),
		zap.String("list_price", supplier.ListPrice.StringFixed(2)))
	return nil
}

// Pending reports whether a restock for the supplier is in transit
func (r *SupplierRestocker) Pending(supplierID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[supplierID]
}

func (r *SupplierRestocker) markPending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending[id] {
		return false
	}
	r.pending[id] = true
	return true
}

func (r *SupplierRestocker) clearPending(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

func (r *SupplierRestocker) emit(event events.Event) {
	if err := events.Publish(r.events, event); err != nil {
		r.logger.Warn("failed to publish event", zap.String("event_type", event.Type()), zap.Error(err))
	}
}
