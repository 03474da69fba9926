package payroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
	"github.com/vsinha/marketsim/pkg/infrastructure/clock"
	"github.com/vsinha/marketsim/pkg/infrastructure/events"
)

// EmployeesAccount is the counterparty of payroll transactions
const EmployeesAccount = "employees"

// Rates holds the employer burden rates applied to gross payroll
type Rates struct {
	PayrollTax         decimal.Decimal
	Unemployment       decimal.Decimal
	DefaultWorkersComp decimal.Decimal
	WorkersCompByRole  map[string]decimal.Decimal // keyed by lowercase role
}

// DefaultRates returns the standard US employer rates
func DefaultRates() Rates {
	return Rates{
		PayrollTax:         decimal.NewFromFloat(0.0765),
		Unemployment:       decimal.NewFromFloat(0.03),
		DefaultWorkersComp: decimal.NewFromFloat(0.02),
		WorkersCompByRole: map[string]decimal.Decimal{
			"stand manager": decimal.NewFromFloat(0.02),
			"cashier":       decimal.NewFromFloat(0.015),
			"prep cook":     decimal.NewFromFloat(0.025),
		},
	}
}

// WorkersCompRate returns the rate for a role, falling back to the default
func (r Rates) WorkersCompRate(role string) decimal.Decimal {
	if rate, ok := r.WorkersCompByRole[strings.ToLower(strings.TrimSpace(role))]; ok {
		return rate
	}
	return r.DefaultWorkersComp
}

// Status is a read-only view of a party's payroll schedule
type Status struct {
	PartyID     string                 `json:"party_id"`
	State       entities.PayrollState  `json:"state"`
	LastPayroll time.Time              `json:"last_payroll"`
	NextPayroll time.Time              `json:"next_payroll"`
	AutoProcess bool                   `json:"auto_process"`
	Projected   entities.PayrollRecord `json:"projected"`
}

// Scheduler runs payroll for stands and suppliers on their biweekly calendar
type Scheduler struct {
	rates   Rates
	journal repositories.TransactionRepository
	events  events.EventStore
	clock   clock.Clock
	logger  *zap.Logger
}

// NewScheduler creates a payroll scheduler. store may be nil.
func NewScheduler(rates Rates, journal repositories.TransactionRepository, store events.EventStore, clk clock.Clock, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		rates:   rates,
		journal: journal,
		events:  store,
		clock:   clk,
		logger:  logger,
	}
}

// Compute returns the payroll record the party's current staff would produce at now
func (s *Scheduler) Compute(party *entities.Party, now time.Time) entities.PayrollRecord {
	gross := decimal.Zero
	healthcare := decimal.Zero
	workersComp := decimal.Zero
	for _, e := range party.Employees {
		gross = gross.Add(e.Salary)
		healthcare = healthcare.Add(e.HealthcarePremium)
		workersComp = workersComp.Add(e.Salary.Mul(s.rates.WorkersCompRate(e.Role)))
	}

	rec := entities.PayrollRecord{
		PartyID:       party.ID,
		ProcessedAt:   now,
		EmployeeCount: len(party.Employees),
		GrossPayroll:  entities.Round2(gross),
		Healthcare:    entities.Round2(healthcare),
		PayrollTax:    entities.Round2(gross.Mul(s.rates.PayrollTax)),
		Unemployment:  entities.Round2(gross.Mul(s.rates.Unemployment)),
		WorkersComp:   entities.Round2(workersComp),
	}
	rec.Total = rec.GrossPayroll.Add(rec.Healthcare).Add(rec.PayrollTax).Add(rec.Unemployment).Add(rec.WorkersComp)
	return rec
}

// Status reports the party's schedule state and the projected cost of its next run
func (s *Scheduler) Status(party *entities.Party) Status {
	now := s.clock.Now()
	sched := s.schedule(party, now)
	return Status{
		PartyID:     party.ID,
		State:       sched.State(now),
		LastPayroll: sched.LastPayrollDate,
		NextPayroll: sched.NextPayrollDate,
		AutoProcess: sched.AutoProcess,
		Projected:   s.Compute(party, now),
	}
}

// RunIfDue processes payroll when it is due and auto-processing is enabled.
// It returns a nil record when nothing was processed.
func (s *Scheduler) RunIfDue(_ context.Context, party *entities.Party) (*entities.PayrollRecord, error) {
	now := s.clock.Now()
	sched := s.schedule(party, now)
	if sched.State(now) != entities.PayrollDue {
		return nil, nil
	}
	if !sched.AutoProcess {
		s.logger.Debug("payroll due but auto-process disabled", zap.String("party_id", party.ID))
		return nil, nil
	}

	rec := s.Compute(party, now)
	rec.ID = uuid.New().String()
	party.Financial.RecordPayroll(now, rec)
	sched.Advance(now, rec)

	tx, err := entities.NewTransaction(now, party.ID, EmployeesAccount, rec.Total, 0, entities.CategoryPayroll,
		fmt.Sprintf("payroll for %d employees", rec.EmployeeCount))
	if err != nil {
		return nil, err
	}
	if err := s.journal.AppendTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to journal payroll: %w", err)
	}

	if err := events.Publish(s.events, events.NewPayrollProcessedEvent(rec)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", events.PayrollProcessedEvent), zap.Error(err))
	}
	s.logger.Info("payroll processed",
		zap.String("party_id", party.ID),
		zap.Int("employees", rec.EmployeeCount),
		zap.String("total", rec.Total.StringFixed(2)),
		zap.Time("next_payroll", sched.NextPayrollDate))
	return &rec, nil
}

func (s *Scheduler) schedule(party *entities.Party, now time.Time) *entities.PayrollSchedule {
	if party.Payroll == nil {
		party.Payroll = entities.NewPayrollSchedule(now, entities.DefaultPayrollPeriod, true)
	}
	return party.Payroll
}
