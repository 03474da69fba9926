package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
)

// StandRepository provides in-memory stand storage in insertion order
type StandRepository struct {
	mu       sync.RWMutex
	stands   []*entities.Stand
	standMap map[string]int
}

// NewStandRepository creates a new in-memory stand repository
func NewStandRepository(expectedStands int) *StandRepository {
	return &StandRepository{
		stands:   make([]*entities.Stand, 0, expectedStands),
		standMap: make(map[string]int, expectedStands),
	}
}

// Verify interface compliance
var _ repositories.StandRepository = (*StandRepository)(nil)

// LoadStands loads stands into the repository
func (r *StandRepository) LoadStands(stands []*entities.Stand) error {
	for _, s := range stands {
		if err := r.SaveStand(s); err != nil {
			return err
		}
	}
	return nil
}

// SaveStand inserts a stand or replaces the one with the same ID
func (r *StandRepository) SaveStand(stand *entities.Stand) error {
	if stand == nil || stand.ID == "" {
		return fmt.Errorf("stand must have an id: %w", entities.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.standMap[stand.ID]; exists {
		r.stands[idx] = stand
		return nil
	}
	r.standMap[stand.ID] = len(r.stands)
	r.stands = append(r.stands, stand)
	return nil
}

// GetStand returns the stand with the given ID
func (r *StandRepository) GetStand(id string) (*entities.Stand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.standMap[id]
	if !exists {
		return nil, fmt.Errorf("stand %s: %w", id, entities.ErrNotFound)
	}
	return r.stands[idx], nil
}

// GetAllStands returns all stands in insertion order
func (r *StandRepository) GetAllStands() ([]*entities.Stand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Stand, len(r.stands))
	copy(out, r.stands)
	return out, nil
}
