package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Agent is a purchasing agent that buys finished goods
type Agent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Wallet    decimal.Decimal `json:"wallet"`
	Purchased Quantity        `json:"purchased"`
}

// NewAgent creates a validated Agent
func NewAgent(id, name string, wallet decimal.Decimal) (*Agent, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id cannot be empty")
	}
	if wallet.IsNegative() {
		return nil, fmt.Errorf("agent %s: wallet cannot be negative, got %s", id, wallet)
	}
	return &Agent{ID: id, Name: name, Wallet: wallet}, nil
}

// CanAfford reports whether the wallet covers amount
func (a *Agent) CanAfford(amount decimal.Decimal) bool {
	return a.Wallet.GreaterThanOrEqual(amount)
}

// Debit pays amount out of the wallet
func (a *Agent) Debit(amount decimal.Decimal) error {
	mustNotBeNegativeMoney("debit amount", amount)
	if !a.CanAfford(amount) {
		return fmt.Errorf("agent %s has %s, needs %s: %w", a.ID, a.Wallet.StringFixed(2), amount.StringFixed(2), ErrInsufficientFunds)
	}
	a.Wallet = a.Wallet.Sub(amount)
	return nil
}
