package repositories

import "github.com/vsinha/marketsim/pkg/domain/entities"

// StandRepository provides access to stands
type StandRepository interface {
	GetStand(id string) (*entities.Stand, error)
	GetAllStands() ([]*entities.Stand, error)
	SaveStand(stand *entities.Stand) error
	LoadStands(stands []*entities.Stand) error
}
