package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/application/dto"
	"github.com/vsinha/marketsim/pkg/application/services/payroll"
	"github.com/vsinha/marketsim/pkg/application/services/simulation"
	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Elapsed   time.Duration
	Writer    io.Writer // stdout when nil
}

// Quote is one supplier's price for a quantity
type Quote struct {
	SupplierID string            `json:"supplier_id"`
	Name       string            `json:"name"`
	Quality    string            `json:"quality"`
	Quantity   entities.Quantity `json:"quantity"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Total      decimal.Decimal   `json:"total"`
	Available  entities.Quantity `json:"available"`
}

// PayrollLine is a party's payroll status and, if it ran, the processed record
type PayrollLine struct {
	Status    payroll.Status          `json:"status"`
	Processed *entities.PayrollRecord `json:"processed,omitempty"`
}

// Result is everything a command produced; nil sections are skipped
type Result struct {
	Command    string                    `json:"command"`
	Plan       *entities.FulfillmentPlan `json:"plan,omitempty"`
	Execution  *dto.ExecutionResult      `json:"execution,omitempty"`
	Quotes     []Quote                   `json:"quotes,omitempty"`
	Payroll    []PayrollLine             `json:"payroll,omitempty"`
	Simulation *simulation.Stats         `json:"simulation,omitempty"`
	Report     *dto.FinancialReport      `json:"report,omitempty"`
}

// Generate creates output in the specified format
func Generate(result *Result, config Config) error {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	switch config.Format {
	case "", "text":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(result *Result, config Config) error {
	w := config.Writer
	fmt.Fprintf(w, "Market Results: %s\n", result.Command)
	fmt.Fprintf(w, "==================\n\n")
	if config.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed: %v\n\n", config.Elapsed)
	}

	if result.Plan != nil {
		writePlanText(w, result.Plan)
	}
	if result.Execution != nil {
		writeExecutionText(w, result.Execution)
	}
	if len(result.Quotes) > 0 {
		writeQuotesText(w, result.Quotes)
	}
	if len(result.Payroll) > 0 {
		writePayrollText(w, result.Payroll)
	}
	if result.Simulation != nil {
		writeSimulationText(w, result.Simulation)
	}
	if result.Report != nil {
		writeReportText(w, result.Report)
	}
	return nil
}

func writePlanText(w io.Writer, plan *entities.FulfillmentPlan) {
	fmt.Fprintf(w, "Fulfillment Plan: %d units, total %s\n", plan.RequestedQuantity, plan.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "%-12s %-18s %-8s %-10s %-14s %-10s %-10s\n",
		"Stand", "Tier", "Qty", "Unit", "Supplier", "Raw Used", "Raw Bought")
	fmt.Fprintf(w, "%-12s %-18s %-8s %-10s %-14s %-10s %-10s\n",
		"------------", "------------------", "--------", "----------", "--------------", "----------", "----------")
	for _, a := range plan.Allocations {
		fmt.Fprintf(w, "%-12s %-18s %-8d %-10s %-14s %-10d %-10d\n",
			a.StandID, a.Tier, a.Quantity, a.UnitCost.StringFixed(2), a.SupplierID, a.RawConsumed, a.RawPurchased)
	}
	fmt.Fprintln(w)
}

func writeExecutionText(w io.Writer, exec *dto.ExecutionResult) {
	fmt.Fprintf(w, "Execution for %s: delivered %d of %d, charged %s\n",
		exec.BuyerID, exec.DeliveredQuantity, exec.RequestedQuantity, exec.Charged.StringFixed(2))
	for _, o := range exec.Failed() {
		fmt.Fprintf(w, "  failed %s (%d units): %s\n", o.Allocation.StandID, o.Allocation.Quantity, o.Error)
	}
	for _, r := range exec.Replenishments {
		if r.Ordered() {
			fmt.Fprintf(w, "  replenishment %s from %s: %s order due %s\n",
				r.StandID, r.SupplierID, r.Order.Severity, r.Order.DueAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintln(w)
}

func writeQuotesText(w io.Writer, quotes []Quote) {
	fmt.Fprintf(w, "Supplier Quotes:\n")
	fmt.Fprintf(w, "%-14s %-20s %-10s %-8s %-10s %-10s %-10s\n",
		"Supplier", "Name", "Quality", "Qty", "Unit", "Total", "Stock")
	fmt.Fprintf(w, "%-14s %-20s %-10s %-8s %-10s %-10s %-10s\n",
		"--------------", "--------------------", "----------", "--------", "----------", "----------", "----------")
	for _, q := range quotes {
		fmt.Fprintf(w, "%-14s %-20s %-10s %-8d %-10s %-10s %-10d\n",
			q.SupplierID, q.Name, q.Quality, q.Quantity, q.UnitPrice.StringFixed(2), q.Total.StringFixed(2), q.Available)
	}
	fmt.Fprintln(w)
}

func writePayrollText(w io.Writer, lines []PayrollLine) {
	fmt.Fprintf(w, "Payroll:\n")
	fmt.Fprintf(w, "%-14s %-8s %-22s %-10s %-12s %-10s\n",
		"Party", "State", "Next Payroll", "Staff", "Projected", "Processed")
	fmt.Fprintf(w, "%-14s %-8s %-22s %-10s %-12s %-10s\n",
		"--------------", "--------", "----------------------", "----------", "------------", "----------")
	for _, l := range lines {
		processed := "-"
		if l.Processed != nil {
			processed = l.Processed.Total.StringFixed(2)
		}
		fmt.Fprintf(w, "%-14s %-8s %-22s %-10d %-12s %-10s\n",
			l.Status.PartyID, l.Status.State, l.Status.NextPayroll.Format(time.RFC3339),
			l.Status.Projected.EmployeeCount, l.Status.Projected.Total.StringFixed(2), processed)
	}
	fmt.Fprintln(w)
}

func writeSimulationText(w io.Writer, s *simulation.Stats) {
	fmt.Fprintf(w, "Simulation:\n")
	fmt.Fprintf(w, "  Ticks: %d\n", s.Ticks)
	fmt.Fprintf(w, "  Deliveries: %d (drained at stop: %d)\n", s.Deliveries, s.DrainedAtStop)
	fmt.Fprintf(w, "  Environment refreshes: %d\n", s.Refreshes)
	fmt.Fprintf(w, "  Plans executed: %d\n", s.PlansExecuted)
	fmt.Fprintf(w, "  Units sold: %d\n", s.UnitsSold)
	fmt.Fprintf(w, "  Unsatisfied requests: %d\n", s.Unsatisfied)
	fmt.Fprintf(w, "  Failed purchases: %d\n\n", s.FailedPurchases)
}

func writeReportText(w io.Writer, r *dto.FinancialReport) {
	fmt.Fprintf(w, "Financial Report:\n")
	fmt.Fprintf(w, "%-14s %-9s %-7s %-10s %-10s %-10s %-10s %-8s %-8s\n",
		"Party", "Kind", "Stock", "Price", "Revenue", "Expenses", "Net", "Margin", "Status")
	fmt.Fprintf(w, "%-14s %-9s %-7s %-10s %-10s %-10s %-10s %-8s %-8s\n",
		"--------------", "---------", "-------", "----------", "----------", "----------", "----------", "--------", "--------")
	for _, parties := range [][]dto.PartyReport{r.Stands, r.Suppliers} {
		for _, p := range parties {
			fmt.Fprintf(w, "%-14s %-9s %-7d %-10s %-10s %-10s %-10s %-8s %-8s\n",
				p.ID, p.Kind, p.Stock, p.Price.StringFixed(2), p.Revenue.StringFixed(2),
				p.OperatingExpenses.StringFixed(2), p.NetProfit.StringFixed(2),
				p.ProfitMargin.StringFixed(1)+"%", p.Status)
		}
	}
	fmt.Fprintf(w, "\nTotal revenue: %s\n", r.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "Total net profit: %s\n", r.TotalNetProfit.StringFixed(2))
	fmt.Fprintf(w, "Transactions: %d, orders in transit: %d\n\n", r.TransactionCount, r.InTransitOrders)
}

// generateJSONOutput creates JSON output
func generateJSONOutput(result *Result, config Config) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err = fmt.Fprintln(config.Writer, string(jsonData))
		return err
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := filepath.Join(config.OutputDir, result.Command+"_results.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Writer, "JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV file per table into OutputDir
func generateCSVOutput(result *Result, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("CSV output requires an output directory")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if result.Plan != nil {
		rows := [][]string{{"stand_id", "tier", "quantity", "unit_cost", "supplier_id", "raw_consumed", "raw_purchased", "supplier_unit_price"}}
		for _, a := range result.Plan.Allocations {
			rows = append(rows, []string{
				a.StandID, a.Tier.String(), qty(a.Quantity), a.UnitCost.StringFixed(2),
				a.SupplierID, qty(a.RawConsumed), qty(a.RawPurchased), a.SupplierUnitPrice.StringFixed(2),
			})
		}
		if err := writeCSV(filepath.Join(config.OutputDir, "allocations.csv"), rows); err != nil {
			return err
		}
	}

	if len(result.Quotes) > 0 {
		rows := [][]string{{"supplier_id", "quality", "quantity", "unit_price", "total", "available"}}
		for _, q := range result.Quotes {
			rows = append(rows, []string{q.SupplierID, q.Quality, qty(q.Quantity), q.UnitPrice.StringFixed(2), q.Total.StringFixed(2), qty(q.Available)})
		}
		if err := writeCSV(filepath.Join(config.OutputDir, "quotes.csv"), rows); err != nil {
			return err
		}
	}

	if result.Report != nil {
		rows := [][]string{{"id", "kind", "status", "stock", "price", "revenue", "cogs", "operating_expenses", "purchases", "taxes", "net_profit", "profit_margin"}}
		for _, parties := range [][]dto.PartyReport{result.Report.Stands, result.Report.Suppliers} {
			for _, p := range parties {
				rows = append(rows, []string{
					p.ID, p.Kind, p.Status, qty(p.Stock), p.Price.StringFixed(2), p.Revenue.StringFixed(2),
					p.COGS.StringFixed(2), p.OperatingExpenses.StringFixed(2), p.Purchases.StringFixed(2),
					p.Taxes.StringFixed(2), p.NetProfit.StringFixed(2), p.ProfitMargin.StringFixed(2),
				})
			}
		}
		if err := writeCSV(filepath.Join(config.OutputDir, "financial_report.csv"), rows); err != nil {
			return err
		}
	}

	if config.Verbose {
		fmt.Fprintf(config.Writer, "CSV files saved to: %s\n", config.OutputDir)
	}
	return nil
}

func writeCSV(filename string, rows [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func qty(q entities.Quantity) string {
	return fmt.Sprintf("%d", q)
}
