package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Stands    int     // Number of stands to generate
	Suppliers int     // Number of suppliers to generate
	Agents    int     // Number of purchasing agents
	Stock     float64 // Stock multiplier (1.0 = sample-market levels)
	OutputDir string  // Output directory for generated files
	Seed      int64   // Random seed for reproducible generation
	Verbose   bool
	Out       io.Writer
}

// GenerateCommand writes a random scenario directory the market command can load
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Stock <= 0 {
		config.Stock = 1
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
}

var (
	qualities    = []string{"premium", "standard", "budget"}
	standTiers   = map[string]string{"premium": "premium", "standard": "midrange", "budget": "budget"}
	neighborhood = []string{"La Jolla", "North Park", "Ocean Beach", "Gaslamp", "Hillcrest", "Coronado", "Pacific Beach"}
	farms        = []string{"Escondido", "Riverside", "Imperial Valley", "Fallbrook", "Ventura"}
	roles        = []string{"Stand Manager", "Cashier", "Prep Cook"}
	standDrinks  = []string{"Lemonade", "Squeeze", "Citrus Bar", "Refreshers", "Juice Cart"}
)

// Execute writes stands.csv, suppliers.csv, employees.csv and agents.csv
func (cmd *GenerateCommand) Execute(_ context.Context) error {
	if cmd.config.Stands <= 0 || cmd.config.Suppliers <= 0 {
		return fmt.Errorf("validation error: stands and suppliers must be positive")
	}
	if cmd.config.OutputDir == "" {
		return fmt.Errorf("validation error: output directory is required")
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.config.Out, "Generating scenario with %d stands, %d suppliers, %d agents, %.1fx stock\n",
			cmd.config.Stands, cmd.config.Suppliers, cmd.config.Agents, cmd.config.Stock)
		fmt.Fprintf(cmd.config.Out, "Output directory: %s\n", cmd.config.OutputDir)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	supplierQuality := cmd.generateSuppliers()
	if err := cmd.writeSuppliers(supplierQuality); err != nil {
		return err
	}
	standIDs, err := cmd.writeStands(supplierQuality)
	if err != nil {
		return err
	}
	if err := cmd.writeEmployees(standIDs); err != nil {
		return err
	}
	if cmd.config.Agents > 0 {
		if err := cmd.writeAgents(); err != nil {
			return err
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintln(cmd.config.Out, "Scenario generated")
	}
	return nil
}

// generateSuppliers assigns a quality to each supplier ID, cycling through the tiers
func (cmd *GenerateCommand) generateSuppliers() []string {
	out := make([]string, cmd.config.Suppliers)
	for i := range out {
		out[i] = qualities[i%len(qualities)]
	}
	return out
}

func supplierID(i int) string {
	return fmt.Sprintf("SUP_%03d", i+1)
}

func (cmd *GenerateCommand) writeSuppliers(quality []string) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, csv.SuppliersFile))
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "id,name,location,quality,stock,list_price,base_price,quality_multiplier,farming,source,seasonal_adjustment,transport_cost,reliability,services,volume_discounts,status")
	for i, q := range quality {
		stock := cmd.scale(800 + cmd.rand.Intn(800))
		farm := farms[cmd.rand.Intn(len(farms))]

		var listPrice, base, multiplier float64
		var farming, services string
		switch q {
		case "premium":
			listPrice, base, multiplier, farming, services = 0.70+cmd.cents(10), 0.40, 1.3, "organic", "washing;sorting;premium_packaging"
		case "standard":
			listPrice, base, multiplier, farming, services = 0.50+cmd.cents(10), 0.35, 1.0, "conventional", "washing"
		default:
			listPrice, base, multiplier, farming, services = 0.35+cmd.cents(10), 0.25, 0.85, "conventional", ""
		}

		// one in four suppliers quotes a flat list price
		if cmd.rand.Intn(4) == 0 {
			fmt.Fprintf(file, "%s,%s Farms,%s,%s,%d,%.2f,,,,,,,,,,active\n",
				supplierID(i), farm, farm, q, stock, listPrice)
			continue
		}
		fmt.Fprintf(file, "%s,%s Farms,%s,%s,%d,%.2f,%.2f,%.2f,%s,%s,1.0,%.2f,%.2f,%s,%s,active\n",
			supplierID(i), farm, farm, q, stock, listPrice, base, multiplier, farming,
			[]string{"local", "domestic", "imported"}[cmd.rand.Intn(3)],
			0.02+cmd.cents(5), 0.85+cmd.cents(14), services, "100:0.95;250:0.90")
	}
	return nil
}

func (cmd *GenerateCommand) writeStands(supplierQuality []string) ([]string, error) {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, csv.StandsFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fmt.Fprintln(file, "id,name,location,base_price,ordering_tier,preferred_supplier,finished_goods,lemons,sugar,cups,ice,max_capacity,conversion_ratio,auto_ordering,status")
	ids := make([]string, cmd.config.Stands)
	for i := range ids {
		ids[i] = fmt.Sprintf("STAND_%03d", i+1)
		preferred := cmd.rand.Intn(len(supplierQuality))
		tier := standTiers[supplierQuality[preferred]]
		place := neighborhood[cmd.rand.Intn(len(neighborhood))]
		name := fmt.Sprintf("%s %s", place, standDrinks[cmd.rand.Intn(len(standDrinks))])

		fmt.Fprintf(file, "%s,%s,San Diego,%.2f,%s,%s,%d,%d,%d,%d,%d,50,2,true,active\n",
			ids[i], name, 2.0+cmd.cents(75), tier, supplierID(preferred),
			min(50, cmd.scale(cmd.rand.Intn(30))),
			cmd.scale(20+cmd.rand.Intn(60)), cmd.scale(20+cmd.rand.Intn(30)),
			cmd.scale(40+cmd.rand.Intn(60)), cmd.scale(40+cmd.rand.Intn(60)))
	}
	return ids, nil
}

func (cmd *GenerateCommand) writeEmployees(standIDs []string) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, csv.EmployeesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "party_id,employee_id,name,role,salary,healthcare")
	n := 1
	for _, id := range standIDs {
		staff := 1 + cmd.rand.Intn(len(roles))
		for _, role := range roles[:staff] {
			fmt.Fprintf(file, "%s,EMP_%04d,%s %d,%s,%d,%d\n",
				id, n, strings.Fields(role)[0], n, role, 2000+cmd.rand.Intn(10)*100, 300+cmd.rand.Intn(10)*10)
			n++
		}
	}
	return nil
}

func (cmd *GenerateCommand) writeAgents() error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, csv.AgentsFile))
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "id,name,wallet")
	for i := 0; i < cmd.config.Agents; i++ {
		fmt.Fprintf(file, "BUYER_%03d,Buyer %d,%d\n", i+1, i+1, 500+cmd.rand.Intn(20)*100)
	}
	return nil
}

// scale applies the stock multiplier to a generated quantity
func (cmd *GenerateCommand) scale(q int) int {
	return int(float64(q) * cmd.config.Stock)
}

// cents returns a random amount below n cents
func (cmd *GenerateCommand) cents(n int) float64 {
	return float64(cmd.rand.Intn(n)) / 100
}
