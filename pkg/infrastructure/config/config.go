package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all market simulation settings
type Config struct {
	Log         LogConfig
	Simulation  SimulationConfig
	Pricing     PricingConfig
	Payroll     PayrollConfig
	Events      EventsConfig
	Identity    IdentityConfig
	Environment EnvironmentConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// SimulationConfig holds timing for the simulation loop and deliveries
type SimulationConfig struct {
	TickInterval          time.Duration
	EnvironmentInterval   time.Duration
	StandDeliveryDelay    time.Duration
	SupplierDeliveryDelay time.Duration
	SalesWindow           time.Duration
	LargeOrderThreshold   int64
}

// PricingConfig holds money settings that are not per-entity
type PricingConfig struct {
	SupplierPriceFloor decimal.Decimal
	TaxRate            decimal.Decimal
	AncillaryPrices    map[string]decimal.Decimal // keyed by material name
}

// PayrollConfig holds employer burden rates
type PayrollConfig struct {
	Period                 time.Duration
	PayrollTaxRate         decimal.Decimal
	UnemploymentRate       decimal.Decimal
	DefaultWorkersCompRate decimal.Decimal
	WorkersCompRates       map[string]decimal.Decimal // keyed by lowercase role
}

// EventsConfig holds domain event publishing settings
type EventsConfig struct {
	RedisEnabled  bool
	RedisURL      string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	Stream        string
	MaxLen        int64
}

// IdentityConfig holds settings for verifying parties before money moves
type IdentityConfig struct {
	Mode     string // allow, jwt
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// EnvironmentConfig holds the default weather signal generator settings
type EnvironmentConfig struct {
	BaseTemperature float64
	Amplitude       float64
}

// Load reads configuration from an optional file and MARKETSIM_ environment variables.
// Priority (highest to lowest): environment, file, built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("marketsim")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MARKETSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("simulation.tick_interval", "1s")
	v.SetDefault("simulation.environment_interval", "5m")
	v.SetDefault("simulation.stand_delivery_delay", "2s")
	v.SetDefault("simulation.supplier_delivery_delay", "3s")
	v.SetDefault("simulation.sales_window", "5m")
	v.SetDefault("simulation.large_order_threshold", 20)

	v.SetDefault("pricing.supplier_price_floor", "0.10")
	v.SetDefault("pricing.tax_rate", "0.25")
	v.SetDefault("pricing.ancillary_prices", map[string]string{
		"sugar": "0.30",
		"cups":  "0.10",
		"ice":   "0.20",
	})

	v.SetDefault("payroll.period", "336h")
	v.SetDefault("payroll.payroll_tax_rate", "0.0765")
	v.SetDefault("payroll.unemployment_rate", "0.03")
	v.SetDefault("payroll.default_workers_comp_rate", "0.02")
	v.SetDefault("payroll.workers_comp_rates", map[string]string{
		"stand manager": "0.02",
		"cashier":       "0.015",
		"prep cook":     "0.025",
	})

	v.SetDefault("events.redis_enabled", false)
	v.SetDefault("events.redis_url", "")
	v.SetDefault("events.redis_host", "127.0.0.1")
	v.SetDefault("events.redis_port", 6379)
	v.SetDefault("events.redis_password", "")
	v.SetDefault("events.redis_db", 0)
	v.SetDefault("events.stream", "marketsim:events")
	v.SetDefault("events.max_len", 10000)

	v.SetDefault("identity.mode", "allow")
	v.SetDefault("identity.secret", "")
	v.SetDefault("identity.issuer", "marketsim")
	v.SetDefault("identity.token_ttl", "24h")

	v.SetDefault("environment.base_temperature", 20.0)
	v.SetDefault("environment.amplitude", 10.0)
}

func build(v *viper.Viper) (*Config, error) {
	var errs []error
	dec := func(key string) decimal.Decimal {
		d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	decMap := func(key string) map[string]decimal.Decimal {
		out := make(map[string]decimal.Decimal)
		for k, raw := range v.GetStringMapString(key) {
			d, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", key, k, err))
				continue
			}
			out[strings.ToLower(k)] = d
		}
		return out
	}

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Simulation: SimulationConfig{
			TickInterval:          v.GetDuration("simulation.tick_interval"),
			EnvironmentInterval:   v.GetDuration("simulation.environment_interval"),
			StandDeliveryDelay:    v.GetDuration("simulation.stand_delivery_delay"),
			SupplierDeliveryDelay: v.GetDuration("simulation.supplier_delivery_delay"),
			SalesWindow:           v.GetDuration("simulation.sales_window"),
			LargeOrderThreshold:   v.GetInt64("simulation.large_order_threshold"),
		},
		Pricing: PricingConfig{
			SupplierPriceFloor: dec("pricing.supplier_price_floor"),
			TaxRate:            dec("pricing.tax_rate"),
			AncillaryPrices:    decMap("pricing.ancillary_prices"),
		},
		Payroll: PayrollConfig{
			Period:                 v.GetDuration("payroll.period"),
			PayrollTaxRate:         dec("payroll.payroll_tax_rate"),
			UnemploymentRate:       dec("payroll.unemployment_rate"),
			DefaultWorkersCompRate: dec("payroll.default_workers_comp_rate"),
			WorkersCompRates:       decMap("payroll.workers_comp_rates"),
		},
		Events: EventsConfig{
			RedisEnabled:  v.GetBool("events.redis_enabled"),
			RedisURL:      v.GetString("events.redis_url"),
			RedisHost:     v.GetString("events.redis_host"),
			RedisPort:     v.GetInt("events.redis_port"),
			RedisPassword: v.GetString("events.redis_password"),
			RedisDB:       v.GetInt("events.redis_db"),
			Stream:        v.GetString("events.stream"),
			MaxLen:        v.GetInt64("events.max_len"),
		},
		Identity: IdentityConfig{
			Mode:     strings.ToLower(v.GetString("identity.mode")),
			Secret:   v.GetString("identity.secret"),
			Issuer:   v.GetString("identity.issuer"),
			TokenTTL: v.GetDuration("identity.token_ttl"),
		},
		Environment: EnvironmentConfig{
			BaseTemperature: v.GetFloat64("environment.base_temperature"),
			Amplitude:       v.GetFloat64("environment.amplitude"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if c.Simulation.StandDeliveryDelay < 0 || c.Simulation.SupplierDeliveryDelay < 0 {
		return fmt.Errorf("delivery delays cannot be negative")
	}
	if c.Simulation.LargeOrderThreshold <= 0 {
		return fmt.Errorf("simulation.large_order_threshold must be positive")
	}
	if c.Pricing.SupplierPriceFloor.IsNegative() {
		return fmt.Errorf("pricing.supplier_price_floor cannot be negative")
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing.tax_rate must be within [0, 1]")
	}
	if c.Payroll.Period <= 0 {
		return fmt.Errorf("payroll.period must be positive")
	}
	switch c.Identity.Mode {
	case "allow":
	case "jwt":
		if c.Identity.Secret == "" {
			return fmt.Errorf("identity.secret is required when identity.mode is jwt")
		}
	default:
		return fmt.Errorf("unknown identity.mode: %s", c.Identity.Mode)
	}
	return nil
}

// RedisAddr returns host:port for the event stream connection
func (e EventsConfig) RedisAddr() string {
	host := e.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := "6379"
	if e.RedisPort > 0 {
		port = strconv.Itoa(e.RedisPort)
	}
	return net.JoinHostPort(host, port)
}
