package entities

import (
	"fmt"
	"strings"
)

// PartyStatus represents whether a party accepts transactions
type PartyStatus int

const (
	Active PartyStatus = iota
	Closed
)

// String method for PartyStatus enum
func (s PartyStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParsePartyStatus converts a status name into a PartyStatus
func ParsePartyStatus(s string) (PartyStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "open":
		return Active, nil
	case "closed":
		return Closed, nil
	default:
		return 0, fmt.Errorf("unknown status: %s", s)
	}
}

// Party holds what stands and suppliers share: identity, books and staff
type Party struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Location  string           `json:"location"`
	Status    PartyStatus      `json:"status"`
	Financial *FinancialState  `json:"financial"`
	Employees []Employee       `json:"employees"`
	Payroll   *PayrollSchedule `json:"payroll"`
}

// IsActive reports whether the party accepts transactions
func (p *Party) IsActive() bool {
	return p.Status == Active
}

// Hire adds an employee to the payroll
func (p *Party) Hire(e Employee) {
	p.Employees = append(p.Employees, e)
}

func newParty(id, name, location string) (Party, error) {
	if id == "" {
		return Party{}, fmt.Errorf("id cannot be empty")
	}
	if name == "" {
		return Party{}, fmt.Errorf("name cannot be empty")
	}

	return Party{
		ID:        id,
		Name:      name,
		Location:  location,
		Status:    Active,
		Financial: NewFinancialState(),
		Employees: []Employee{},
	}, nil
}
