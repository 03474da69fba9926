package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity represents an integer count of discrete units
type Quantity int64

// Material represents a raw material held in stock
type Material int

const (
	Lemons Material = iota
	Sugar
	Cups
	Ice
)

// Materials lists every raw material in a stable order
var Materials = []Material{Lemons, Sugar, Cups, Ice}

// String method for Material enum
func (m Material) String() string {
	switch m {
	case Lemons:
		return "lemons"
	case Sugar:
		return "sugar"
	case Cups:
		return "cups"
	case Ice:
		return "ice"
	default:
		return "unknown"
	}
}

// ParseMaterial converts a material name into a Material
func ParseMaterial(s string) (Material, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lemons", "lemon":
		return Lemons, nil
	case "sugar":
		return Sugar, nil
	case "cups", "cup":
		return Cups, nil
	case "ice":
		return Ice, nil
	default:
		return 0, fmt.Errorf("unknown material: %s", s)
	}
}

// Round2 rounds a monetary amount to cents
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Money builds a decimal from a float literal, for fixtures and defaults
func Money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
