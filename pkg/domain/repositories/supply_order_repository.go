package repositories

import "github.com/vsinha/marketsim/pkg/domain/entities"

// SupplyOrderRepository tracks supply orders from placement through delivery
type SupplyOrderRepository interface {
	SaveOrder(order *entities.SupplyOrder) error
	GetOrder(id string) (*entities.SupplyOrder, error)
	GetOrdersInTransit() ([]*entities.SupplyOrder, error)
	GetOrdersForStand(standID string) ([]*entities.SupplyOrder, error)
}
