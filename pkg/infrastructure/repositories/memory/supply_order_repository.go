package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
)

// SupplyOrderRepository provides in-memory supply order storage
type SupplyOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*entities.SupplyOrder
}

// NewSupplyOrderRepository creates a new in-memory supply order repository
func NewSupplyOrderRepository() *SupplyOrderRepository {
	return &SupplyOrderRepository{
		orders: make(map[string]*entities.SupplyOrder),
	}
}

// Verify interface compliance
var _ repositories.SupplyOrderRepository = (*SupplyOrderRepository)(nil)

// SaveOrder inserts or replaces an order
func (r *SupplyOrderRepository) SaveOrder(order *entities.SupplyOrder) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("supply order must have an id: %w", entities.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

// GetOrder returns the order with the given ID
func (r *SupplyOrderRepository) GetOrder(id string) (*entities.SupplyOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, fmt.Errorf("supply order %s: %w", id, entities.ErrNotFound)
	}
	return order, nil
}

// GetOrdersInTransit returns undelivered orders, earliest due first
func (r *SupplyOrderRepository) GetOrdersInTransit() ([]*entities.SupplyOrder, error) {
	return r.filter(func(o *entities.SupplyOrder) bool {
		return o.Status == entities.InTransit
	}), nil
}

// GetOrdersForStand returns every order placed by a stand, earliest due first
func (r *SupplyOrderRepository) GetOrdersForStand(standID string) ([]*entities.SupplyOrder, error) {
	return r.filter(func(o *entities.SupplyOrder) bool {
		return o.StandID == standID
	}), nil
}

func (r *SupplyOrderRepository) filter(keep func(*entities.SupplyOrder) bool) []*entities.SupplyOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.SupplyOrder
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].PlacedAt.Before(out[j].PlacedAt)
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}
