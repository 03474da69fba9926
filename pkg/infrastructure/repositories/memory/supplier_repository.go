package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
)

// SupplierRepository provides in-memory supplier storage in insertion order
type SupplierRepository struct {
	mu          sync.RWMutex
	suppliers   []*entities.Supplier
	supplierMap map[string]int
}

// NewSupplierRepository creates a new in-memory supplier repository
func NewSupplierRepository(expectedSuppliers int) *SupplierRepository {
	return &SupplierRepository{
		suppliers:   make([]*entities.Supplier, 0, expectedSuppliers),
		supplierMap: make(map[string]int, expectedSuppliers),
	}
}

// Verify interface compliance
var _ repositories.SupplierRepository = (*SupplierRepository)(nil)

// LoadSuppliers loads suppliers into the repository
func (r *SupplierRepository) LoadSuppliers(suppliers []*entities.Supplier) error {
	for _, s := range suppliers {
		if err := r.SaveSupplier(s); err != nil {
			return err
		}
	}
	return nil
}

// SaveSupplier inserts a supplier or replaces the one with the same ID
func (r *SupplierRepository) SaveSupplier(supplier *entities.Supplier) error {
	if supplier == nil || supplier.ID == "" {
		return fmt.Errorf("supplier must have an id: %w", entities.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.supplierMap[supplier.ID]; exists {
		r.suppliers[idx] = supplier
		return nil
	}
	r.supplierMap[supplier.ID] = len(r.suppliers)
	r.suppliers = append(r.suppliers, supplier)
	return nil
}

// GetSupplier returns the supplier with the given ID
func (r *SupplierRepository) GetSupplier(id string) (*entities.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.supplierMap[id]
	if !exists {
		return nil, fmt.Errorf("supplier %s: %w", id, entities.ErrNotFound)
	}
	return r.suppliers[idx], nil
}

// GetAllSuppliers returns all suppliers in insertion order
func (r *SupplierRepository) GetAllSuppliers() ([]*entities.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Supplier, len(r.suppliers))
	copy(out, r.suppliers)
	return out, nil
}
