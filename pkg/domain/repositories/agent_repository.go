package repositories

import "github.com/vsinha/marketsim/pkg/domain/entities"

// AgentRepository provides access to purchasing agents
type AgentRepository interface {
	GetAgent(id string) (*entities.Agent, error)
	GetAllAgents() ([]*entities.Agent, error)
	SaveAgent(agent *entities.Agent) error
	LoadAgents(agents []*entities.Agent) error
}
