package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// Scenario file names inside a scenario directory
const (
	StandsFile    = "stands.csv"
	SuppliersFile = "suppliers.csv"
	EmployeesFile = "employees.csv"
	AgentsFile    = "agents.csv"
)

var (
	standsHeader = []string{
		"id", "name", "location", "base_price", "ordering_tier", "preferred_supplier",
		"finished_goods", "lemons", "sugar", "cups", "ice",
		"max_capacity", "conversion_ratio", "auto_ordering", "status",
	}
	suppliersHeader = []string{
		"id", "name", "location", "quality", "stock", "list_price",
		"base_price", "quality_multiplier", "farming", "source", "seasonal_adjustment",
		"transport_cost", "reliability", "services", "volume_discounts", "status",
	}
	employeesHeader = []string{"party_id", "employee_id", "name", "role", "salary", "healthcare"}
	agentsHeader    = []string{"id", "name", "wallet"}
)

// Scenario is the market state loaded from a scenario directory
type Scenario struct {
	Stands    []*entities.Stand
	Suppliers []*entities.Supplier
	Agents    []*entities.Agent
}

// Loader handles loading market data from CSV files
type Loader struct {
	now           time.Time
	payrollPeriod time.Duration
}

// NewLoader creates a loader that stamps entities with now and schedules
// payroll every payrollPeriod (the default period when zero)
func NewLoader(now time.Time, payrollPeriod time.Duration) *Loader {
	if payrollPeriod <= 0 {
		payrollPeriod = entities.DefaultPayrollPeriod
	}
	return &Loader{now: now, payrollPeriod: payrollPeriod}
}

// LoadScenario loads stands.csv and suppliers.csv from dir, plus employees.csv
// and agents.csv when present. Employees are hired by the party they name.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	stands, err := l.LoadStands(filepath.Join(dir, StandsFile))
	if err != nil {
		return nil, err
	}
	suppliers, err := l.LoadSuppliers(filepath.Join(dir, SuppliersFile))
	if err != nil {
		return nil, err
	}
	scenario := &Scenario{Stands: stands, Suppliers: suppliers}

	if path := filepath.Join(dir, EmployeesFile); fileExists(path) {
		staff, err := l.LoadEmployees(path)
		if err != nil {
			return nil, err
		}
		if err := scenario.hire(staff); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dir, AgentsFile); fileExists(path) {
		agents, err := l.LoadAgents(path)
		if err != nil {
			return nil, err
		}
		scenario.Agents = agents
	}
	return scenario, nil
}

// LoadStands loads stands from a CSV file
func (l *Loader) LoadStands(filename string) ([]*entities.Stand, error) {
	records, err := readRecords(filename, "stands", standsHeader)
	if err != nil {
		return nil, err
	}

	stands := make([]*entities.Stand, 0, len(records))
	for i, record := range records {
		stand, err := l.parseStand(record)
		if err != nil {
			return nil, fmt.Errorf("stands CSV row %d: %w", i+2, err)
		}
		stands = append(stands, stand)
	}
	return stands, nil
}

// LoadSuppliers loads suppliers from a CSV file. Rows with an empty base_price
// quote their list price instead of the pricing formula.
func (l *Loader) LoadSuppliers(filename string) ([]*entities.Supplier, error) {
	records, err := readRecords(filename, "suppliers", suppliersHeader)
	if err != nil {
		return nil, err
	}

	suppliers := make([]*entities.Supplier, 0, len(records))
	for i, record := range records {
		supplier, err := l.parseSupplier(record)
		if err != nil {
			return nil, fmt.Errorf("suppliers CSV row %d: %w", i+2, err)
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, nil
}

// Staff is an employee together with the party that employs them
type Staff struct {
	PartyID  string
	Employee entities.Employee
}

// LoadEmployees loads employees from a CSV file
func (l *Loader) LoadEmployees(filename string) ([]Staff, error) {
	records, err := readRecords(filename, "employees", employeesHeader)
	if err != nil {
		return nil, err
	}

	staff := make([]Staff, 0, len(records))
	for i, record := range records {
		salary, err := parseMoney("salary", record[4])
		if err != nil {
			return nil, fmt.Errorf("employees CSV row %d: %w", i+2, err)
		}
		healthcare, err := parseMoney("healthcare", record[5])
		if err != nil {
			return nil, fmt.Errorf("employees CSV row %d: %w", i+2, err)
		}
		e, err := entities.NewEmployee(record[1], record[2], record[3], salary, healthcare)
		if err != nil {
			return nil, fmt.Errorf("employees CSV row %d: %w", i+2, err)
		}
		staff = append(staff, Staff{PartyID: strings.TrimSpace(record[0]), Employee: *e})
	}
	return staff, nil
}

// LoadAgents loads purchasing agents from a CSV file
func (l *Loader) LoadAgents(filename string) ([]*entities.Agent, error) {
	records, err := readRecords(filename, "agents", agentsHeader)
	if err != nil {
		return nil, err
	}

	agents := make([]*entities.Agent, 0, len(records))
	for i, record := range records {
		wallet, err := parseMoney("wallet", record[2])
		if err != nil {
			return nil, fmt.Errorf("agents CSV row %d: %w", i+2, err)
		}
		agent, err := entities.NewAgent(strings.TrimSpace(record[0]), record[1], wallet)
		if err != nil {
			return nil, fmt.Errorf("agents CSV row %d: %w", i+2, err)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

func (s *Scenario) hire(staff []Staff) error {
	parties := make(map[string]*entities.Party, len(s.Stands)+len(s.Suppliers))
	for _, st := range s.Stands {
		parties[st.ID] = &st.Party
	}
	for _, sp := range s.Suppliers {
		parties[sp.ID] = &sp.Party
	}
	for _, member := range staff {
		party, ok := parties[member.PartyID]
		if !ok {
			return fmt.Errorf("employee %s works for unknown party %s", member.Employee.ID, member.PartyID)
		}
		party.Hire(member.Employee)
	}
	return nil
}

// readRecords opens a CSV file, checks its header and returns the data rows
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func (l *Loader) parseStand(record []string) (*entities.Stand, error) {
	basePrice, err := parseMoney("base_price", record[3])
	if err != nil {
		return nil, err
	}
	tier, err := entities.ParseOrderingTier(record[4])
	if err != nil {
		return nil, err
	}

	var qty [7]entities.Quantity
	names := []string{"finished_goods", "lemons", "sugar", "cups", "ice", "max_capacity", "conversion_ratio"}
	defaults := []entities.Quantity{0, 0, 0, 0, 0, entities.DefaultMaxCapacity, entities.DefaultConversionRatio}
	for i, name := range names {
		q, err := parseQuantity(name, record[6+i], defaults[i])
		if err != nil {
			return nil, err
		}
		qty[i] = q
	}
	finished, maxCapacity, ratio := qty[0], qty[5], qty[6]

	inv, err := entities.NewInventoryLedger(maxCapacity, ratio, entities.DefaultRawCapacity)
	if err != nil {
		return nil, err
	}
	if finished > maxCapacity {
		return nil, fmt.Errorf("finished_goods %d exceeds max_capacity %d", finished, maxCapacity)
	}
	inv.FinishedGoods = finished
	for i, m := range entities.Materials {
		inv.Receive(m, qty[1+i])
	}

	stand, err := entities.NewStand(strings.TrimSpace(record[0]), record[1], record[2], basePrice, inv, l.now)
	if err != nil {
		return nil, err
	}
	stand.OrderingTier = tier
	stand.AutoOrdering.PreferredSupplierID = strings.TrimSpace(record[5])
	if stand.AutoOrdering.Enabled, err = parseBool("auto_ordering", record[13], true); err != nil {
		return nil, err
	}
	if stand.Status, err = entities.ParsePartyStatus(record[14]); err != nil {
		return nil, err
	}
	stand.Payroll = entities.NewPayrollSchedule(l.now, l.payrollPeriod, true)
	return stand, nil
}

func (l *Loader) parseSupplier(record []string) (*entities.Supplier, error) {
	quality, err := entities.ParseQualityTier(record[3])
	if err != nil {
		return nil, err
	}
	stock, err := parseQuantity("stock", record[4], 0)
	if err != nil {
		return nil, err
	}
	listPrice, err := parseMoney("list_price", record[5])
	if err != nil {
		return nil, err
	}

	supplier, err := entities.NewSupplier(strings.TrimSpace(record[0]), record[1], record[2], quality, stock, listPrice, l.now)
	if err != nil {
		return nil, err
	}
	if supplier.Status, err = entities.ParsePartyStatus(record[15]); err != nil {
		return nil, err
	}
	supplier.Payroll = entities.NewPayrollSchedule(l.now, l.payrollPeriod, true)

	if strings.TrimSpace(record[6]) == "" {
		return supplier, nil
	}
	factors, err := parseFactors(record)
	if err != nil {
		return nil, err
	}
	supplier.Factors = factors
	return supplier, nil
}

func parseFactors(record []string) (*entities.PricingFactors, error) {
	f := &entities.PricingFactors{}
	var err error

	if f.BasePrice, err = parseMoney("base_price", record[6]); err != nil {
		return nil, err
	}
	if f.QualityMultiplier, err = parseDecimal("quality_multiplier", record[7], decimal.NewFromInt(1)); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(record[8])) {
	case "", "conventional":
		f.FarmingPractice = entities.Conventional
	case "organic":
		f.FarmingPractice = entities.Organic
	default:
		return nil, fmt.Errorf("invalid farming: %s (expected organic or conventional)", record[8])
	}
	if f.SourceType, err = entities.ParseSourceType(record[9]); err != nil {
		return nil, err
	}
	if f.SeasonalAdjustment, err = parseDecimal("seasonal_adjustment", record[10], decimal.NewFromInt(1)); err != nil {
		return nil, err
	}
	if f.TransportCost, err = parseDecimal("transport_cost", record[11], decimal.Zero); err != nil {
		return nil, err
	}
	if f.Reliability, err = parseDecimal("reliability", record[12], decimal.NewFromFloat(0.9)); err != nil {
		return nil, err
	}
	if f.Services, err = parseServices(record[13]); err != nil {
		return nil, err
	}
	if f.VolumeDiscounts, err = ParseVolumeDiscounts(record[14]); err != nil {
		return nil, err
	}
	return f, nil
}

func parseServices(s string) (entities.ValueAddedServices, error) {
	var v entities.ValueAddedServices
	for _, name := range splitList(s) {
		switch strings.ToLower(name) {
		case "washing":
			v.Washing = true
		case "sorting":
			v.Sorting = true
		case "packaging", "premium_packaging":
			v.PremiumPackaging = true
		case "cold_storage", "cold":
			v.ColdStorage = true
		default:
			return v, fmt.Errorf("invalid service: %s (expected washing, sorting, packaging or cold_storage)", name)
		}
	}
	return v, nil
}

// ParseVolumeDiscounts parses "threshold:factor" pairs separated by semicolons,
// e.g. "100:0.95;250:0.90"
func ParseVolumeDiscounts(s string) ([]entities.VolumeDiscount, error) {
	var table []entities.VolumeDiscount
	for _, pair := range splitList(s) {
		threshold, factor, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid volume discount %q (expected threshold:factor)", pair)
		}
		q, err := parseQuantity("volume discount threshold", threshold, 0)
		if err != nil {
			return nil, err
		}
		f, err := parseMoney("volume discount factor", factor)
		if err != nil {
			return nil, err
		}
		if f.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("volume discount factor %s above 1", f)
		}
		table = append(table, entities.VolumeDiscount{Threshold: q, Factor: f})
	}
	return table, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseQuantity(name, s string, fallback entities.Quantity) (entities.Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %s", name, s)
	}
	return entities.Quantity(n), nil
}

func parseMoney(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", name, s)
	}
	return d, nil
}

func parseDecimal(name, s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return parseMoney(name, s)
}

func parseBool(name, s string, fallback bool) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", name, s)
	}
	return b, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
