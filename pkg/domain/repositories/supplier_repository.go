package repositories

import "github.com/vsinha/marketsim/pkg/domain/entities"

// SupplierRepository provides access to suppliers
type SupplierRepository interface {
	GetSupplier(id string) (*entities.Supplier, error)
	GetAllSuppliers() ([]*entities.Supplier, error)
	SaveSupplier(supplier *entities.Supplier) error
	LoadSuppliers(suppliers []*entities.Supplier) error
}
