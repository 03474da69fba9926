package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPayrollPeriod is the biweekly payroll cadence
const DefaultPayrollPeriod = 14 * 24 * time.Hour

// Employee represents a salaried worker at a stand or supplier
type Employee struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Role              string          `json:"role"`
	Salary            decimal.Decimal `json:"salary"`
	HealthcarePremium decimal.Decimal `json:"healthcare_premium"`
}

// NewEmployee creates a validated Employee
func NewEmployee(id, name, role string, salary, healthcare decimal.Decimal) (*Employee, error) {
	if id == "" {
		return nil, fmt.Errorf("employee id cannot be empty")
	}
	if role == "" {
		return nil, fmt.Errorf("employee role cannot be empty")
	}
	if salary.IsNegative() {
		return nil, fmt.Errorf("salary cannot be negative, got %s", salary)
	}
	if healthcare.IsNegative() {
		return nil, fmt.Errorf("healthcare premium cannot be negative, got %s", healthcare)
	}

	return &Employee{
		ID:                id,
		Name:              name,
		Role:              role,
		Salary:            salary,
		HealthcarePremium: healthcare,
	}, nil
}

// PayrollState is the scheduler state of one payroll schedule
type PayrollState int

const (
	PayrollWaiting PayrollState = iota
	PayrollDue
)

// String method for PayrollState enum
func (s PayrollState) String() string {
	switch s {
	case PayrollWaiting:
		return "Waiting"
	case PayrollDue:
		return "Due"
	default:
		return "Unknown"
	}
}

// PayrollRecord is the immutable result of one payroll run
type PayrollRecord struct {
	ID            string          `json:"id"`
	PartyID       string          `json:"party_id"`
	ProcessedAt   time.Time       `json:"processed_at"`
	EmployeeCount int             `json:"employee_count"`
	GrossPayroll  decimal.Decimal `json:"gross_payroll"`
	Healthcare    decimal.Decimal `json:"healthcare"`
	PayrollTax    decimal.Decimal `json:"payroll_tax"`
	Unemployment  decimal.Decimal `json:"unemployment"`
	WorkersComp   decimal.Decimal `json:"workers_comp"`
	Total         decimal.Decimal `json:"total"`
}

// PayrollSchedule tracks when a party last ran and next owes payroll
type PayrollSchedule struct {
	Period          time.Duration   `json:"period"`
	LastPayrollDate time.Time       `json:"last_payroll_date"`
	NextPayrollDate time.Time       `json:"next_payroll_date"`
	AutoProcess     bool            `json:"auto_process"`
	History         []PayrollRecord `json:"history"`
}

// NewPayrollSchedule creates a schedule whose first run is due one period after start
func NewPayrollSchedule(start time.Time, period time.Duration, autoProcess bool) *PayrollSchedule {
	if period <= 0 {
		period = DefaultPayrollPeriod
	}
	return &PayrollSchedule{
		Period:          period,
		LastPayrollDate: start,
		NextPayrollDate: start.Add(period),
		AutoProcess:     autoProcess,
		History:         []PayrollRecord{},
	}
}

// State reports whether payroll is due at now
func (s *PayrollSchedule) State(now time.Time) PayrollState {
	if now.Before(s.NextPayrollDate) {
		return PayrollWaiting
	}
	return PayrollDue
}

// Advance records a completed run and moves the next run one period past now
func (s *PayrollSchedule) Advance(now time.Time, rec PayrollRecord) {
	s.LastPayrollDate = now
	s.NextPayrollDate = now.Add(s.Period)
	s.History = append(s.History, rec)
}
