package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
)

// AgentRepository provides in-memory purchasing agent storage
type AgentRepository struct {
	mu       sync.RWMutex
	agents   []*entities.Agent
	agentMap map[string]int
}

// NewAgentRepository creates a new in-memory agent repository
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{
		agents:   []*entities.Agent{},
		agentMap: make(map[string]int),
	}
}

// Verify interface compliance
var _ repositories.AgentRepository = (*AgentRepository)(nil)

// LoadAgents loads agents into the repository
func (r *AgentRepository) LoadAgents(agents []*entities.Agent) error {
	for _, a := range agents {
		if err := r.SaveAgent(a); err != nil {
			return err
		}
	}
	return nil
}

// SaveAgent inserts an agent or replaces the one with the same ID
func (r *AgentRepository) SaveAgent(agent *entities.Agent) error {
	if agent == nil || agent.ID == "" {
		return fmt.Errorf("agent must have an id: %w", entities.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.agentMap[agent.ID]; exists {
		r.agents[idx] = agent
		return nil
	}
	r.agentMap[agent.ID] = len(r.agents)
	r.agents = append(r.agents, agent)
	return nil
}

// GetAgent returns the agent with the given ID
func (r *AgentRepository) GetAgent(id string) (*entities.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.agentMap[id]
	if !exists {
		return nil, fmt.Errorf("agent %s: %w", id, entities.ErrNotFound)
	}
	return r.agents[idx], nil
}

// GetAllAgents returns all agents in insertion order
func (r *AgentRepository) GetAllAgents() ([]*entities.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Agent, len(r.agents))
	copy(out, r.agents)
	return out, nil
}
