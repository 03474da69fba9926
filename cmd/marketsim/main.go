package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/vsinha/marketsim/pkg/interfaces/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "marketsim",
		Usage: "Plan, price and simulate a marketplace of lemonade stands and lemon suppliers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a config file (marketsim.yaml in the working directory by default)",
				EnvVars: []string{"MARKETSIM_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "scenario",
				Usage: "Scenario directory with stands.csv and suppliers.csv; the built-in sample market when empty",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format: text, json, csv",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output directory for results (optional)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output and debug logging",
			},
		},
		Commands: []*cli.Command{
			planCmd,
			quoteCmd,
			simulateCmd,
			payrollCmd,
			reportCmd,
			generateCmd,
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var quantityFlag = &cli.Int64Flag{
	Name:     "quantity",
	Aliases:  []string{"q"},
	Required: true,
	Usage:    "Number of units",
}

var taxesFlag = &cli.BoolFlag{
	Name:  "taxes",
	Usage: "Record taxes for every party before reporting",
}

var planCmd = &cli.Command{
	Name:  "plan",
	Usage: "Build a fulfillment plan for a quantity of lemonade",
	Flags: []cli.Flag{
		quantityFlag,
		&cli.BoolFlag{
			Name:  "execute",
			Usage: "Execute the plan and complete the resulting deliveries",
		},
		&cli.StringFlag{
			Name:  "buyer",
			Usage: "Agent paying for the plan (the first agent when empty)",
		},
		taxesFlag,
	},
	Action: func(c *cli.Context) error {
		cfg := baseConfig(c)
		cfg.Quantity = c.Int64("quantity")
		cfg.Execute = c.Bool("execute")
		cfg.BuyerID = c.String("buyer")
		cfg.RecordTaxes = c.Bool("taxes")
		return commands.NewMarketCommand(cfg).Execute(c.Context, commands.ActionPlan)
	},
}

var quoteCmd = &cli.Command{
	Name:  "quote",
	Usage: "Quote every supplier's unit price for a quantity of lemons",
	Flags: []cli.Flag{quantityFlag},
	Action: func(c *cli.Context) error {
		cfg := baseConfig(c)
		cfg.Quantity = c.Int64("quantity")
		return commands.NewMarketCommand(cfg).Execute(c.Context, commands.ActionQuote)
	},
}

var simulateCmd = &cli.Command{
	Name:  "simulate",
	Usage: "Run the market tick loop with buyers purchasing every tick",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "ticks",
			Value: 60,
			Usage: "Number of ticks to run (0 runs until interrupted)",
		},
		&cli.Int64Flag{
			Name:  "demand",
			Value: 5,
			Usage: "Units each buyer requests per tick",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Value: 4,
			Usage: "Buyers purchasing at the same time",
		},
		&cli.BoolFlag{
			Name:  "wall-clock",
			Usage: "Follow real time instead of advancing a logical clock",
		},
		taxesFlag,
	},
	Action: func(c *cli.Context) error {
		cfg := baseConfig(c)
		cfg.Ticks = c.Int("ticks")
		cfg.DemandPerTick = c.Int64("demand")
		cfg.Concurrency = c.Int("concurrency")
		cfg.WallClock = c.Bool("wall-clock")
		cfg.RecordTaxes = c.Bool("taxes")
		return commands.NewMarketCommand(cfg).Execute(c.Context, commands.ActionSimulate)
	},
}

var payrollCmd = &cli.Command{
	Name:  "payroll",
	Usage: "Show payroll schedules and projected costs",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "run",
			Usage: "Advance one payroll period and process every payroll that falls due",
		},
	},
	Action: func(c *cli.Context) error {
		cfg := baseConfig(c)
		cfg.RunPayroll = c.Bool("run")
		return commands.NewMarketCommand(cfg).Execute(c.Context, commands.ActionPayroll)
	},
}

var reportCmd = &cli.Command{
	Name:  "report",
	Usage: "Print the financial report of every stand and supplier",
	Flags: []cli.Flag{taxesFlag},
	Action: func(c *cli.Context) error {
		cfg := baseConfig(c)
		cfg.RecordTaxes = c.Bool("taxes")
		return commands.NewMarketCommand(cfg).Execute(c.Context, commands.ActionReport)
	},
}

var generateCmd = &cli.Command{
	Name:  "generate",
	Usage: "Write a random scenario directory",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "stands", Value: 10, Usage: "Number of stands"},
		&cli.IntFlag{Name: "suppliers", Value: 3, Usage: "Number of suppliers"},
		&cli.IntFlag{Name: "agents", Value: 4, Usage: "Number of purchasing agents"},
		&cli.Float64Flag{Name: "stock", Value: 1.0, Usage: "Stock multiplier (1.0 = sample-market levels)"},
		&cli.StringFlag{Name: "dir", Required: true, Usage: "Output directory for the scenario"},
		&cli.Int64Flag{Name: "seed", Usage: "Random seed for reproducible generation"},
	},
	Action: func(c *cli.Context) error {
		return commands.NewGenerateCommand(commands.GenerateConfig{
			Stands:    c.Int("stands"),
			Suppliers: c.Int("suppliers"),
			Agents:    c.Int("agents"),
			Stock:     c.Float64("stock"),
			OutputDir: c.String("dir"),
			Seed:      c.Int64("seed"),
			Verbose:   c.Bool("verbose"),
		}).Execute(c.Context)
	},
}

func baseConfig(c *cli.Context) commands.Config {
	return commands.Config{
		ConfigPath:  c.String("config"),
		ScenarioDir: c.String("scenario"),
		Format:      c.String("format"),
		OutputDir:   c.String("output"),
		Verbose:     c.Bool("verbose"),
	}
}
