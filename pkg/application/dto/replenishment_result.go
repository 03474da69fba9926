package dto

import (
	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/services"
)

// ReplenishmentResult reports what one replenishment check did for a stand
type ReplenishmentResult struct {
	StandID     string                `json:"stand_id"`
	SupplierID  string                `json:"supplier_id,omitempty"`
	Disabled    bool                  `json:"disabled,omitempty"`
	Order       *entities.SupplyOrder `json:"order,omitempty"`
	Produced    entities.Quantity     `json:"produced"`
	Suitability *services.Suitability `json:"suitability,omitempty"`
}

// Ordered reports whether a supply order was placed
func (r *ReplenishmentResult) Ordered() bool {
	return r != nil && r.Order != nil
}
