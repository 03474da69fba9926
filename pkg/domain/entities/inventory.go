package entities

import (
	"fmt"
)

// Default inventory parameters for a stand
const (
	DefaultMaxCapacity     Quantity = 50
	DefaultConversionRatio Quantity = 2
	DefaultRawCapacity     Quantity = 450
)

// DefaultRecipe returns the ancillary materials consumed per finished unit
func DefaultRecipe() map[Material]Quantity {
	return map[Material]Quantity{
		Sugar: 1,
		Cups:  1,
		Ice:   2,
	}
}

// InventoryLedger tracks raw material and finished goods for one stand.
// Finished goods are bounded by MaxCapacity; raw materials are unbounded
// and RawCapacity is only a reference level for supply pressure.
type InventoryLedger struct {
	Raw             map[Material]Quantity `json:"raw"`
	FinishedGoods   Quantity              `json:"finished_goods"`
	MaxCapacity     Quantity              `json:"max_capacity"`
	ConversionRatio Quantity              `json:"conversion_ratio"`
	Recipe          map[Material]Quantity `json:"recipe"`
	RawCapacity     Quantity              `json:"raw_capacity"`
}

// NewInventoryLedger creates a validated InventoryLedger with the default recipe
func NewInventoryLedger(maxCapacity, conversionRatio, rawCapacity Quantity) (*InventoryLedger, error) {
	if maxCapacity <= 0 {
		return nil, fmt.Errorf("max capacity must be positive, got %d", maxCapacity)
	}
	if conversionRatio <= 0 {
		return nil, fmt.Errorf("conversion ratio must be positive, got %d", conversionRatio)
	}
	if rawCapacity <= 0 {
		return nil, fmt.Errorf("raw capacity must be positive, got %d", rawCapacity)
	}

	return &InventoryLedger{
		Raw:             make(map[Material]Quantity),
		MaxCapacity:     maxCapacity,
		ConversionRatio: conversionRatio,
		Recipe:          DefaultRecipe(),
		RawCapacity:     rawCapacity,
	}, nil
}

// RawOnHand returns the on-hand count of a raw material
func (l *InventoryLedger) RawOnHand(m Material) Quantity {
	return l.Raw[m]
}

// TotalRaw returns the sum of all raw material on hand
func (l *InventoryLedger) TotalRaw() Quantity {
	var total Quantity
	for _, q := range l.Raw {
		total += q
	}
	return total
}

// Receive adds delivered raw material
func (l *InventoryLedger) Receive(m Material, qty Quantity) {
	mustNotBeNegative("receive quantity", qty)
	if l.Raw == nil {
		l.Raw = make(map[Material]Quantity)
	}
	l.Raw[m] += qty
}

// MaxConvertible returns how many finished units the primary raw material alone covers
func (l *InventoryLedger) MaxConvertible() Quantity {
	return l.Raw[Lemons] / l.ConversionRatio
}

// ConvertPrimary consumes the primary raw material for units sold straight to a buyer
func (l *InventoryLedger) ConvertPrimary(units Quantity) error {
	mustNotBeNegative("convert quantity", units)
	need := units * l.ConversionRatio
	if l.Raw[Lemons] < need {
		return fmt.Errorf("convert %d units needs %d %s, have %d: %w",
			units, need, Lemons, l.Raw[Lemons], ErrInsufficientStock)
	}
	l.Raw[Lemons] -= need
	return nil
}

// CanProduce reports whether the full recipe for units is on hand
func (l *InventoryLedger) CanProduce(units Quantity) bool {
	if l.Raw[Lemons] < units*l.ConversionRatio {
		return false
	}
	for m, per := range l.Recipe {
		if l.Raw[m] < units*per {
			return false
		}
	}
	return true
}

// MaxProducible returns how many finished units the full recipe and free capacity allow
func (l *InventoryLedger) MaxProducible() Quantity {
	limit := l.MaxCapacity - l.FinishedGoods
	if c := l.MaxConvertible(); c < limit {
		limit = c
	}
	for m, per := range l.Recipe {
		if per <= 0 {
			continue
		}
		if c := l.Raw[m] / per; c < limit {
			limit = c
		}
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Produce turns raw material into finished goods following the recipe
func (l *InventoryLedger) Produce(units Quantity) error {
	mustNotBeNegative("produce quantity", units)
	if l.FinishedGoods+units > l.MaxCapacity {
		return fmt.Errorf("producing %d units exceeds capacity %d (have %d): %w",
			units, l.MaxCapacity, l.FinishedGoods, ErrInsufficientStock)
	}
	if !l.CanProduce(units) {
		return fmt.Errorf("not enough ingredients to produce %d units: %w", units, ErrInsufficientStock)
	}

	l.Raw[Lemons] -= units * l.ConversionRatio
	for m, per := range l.Recipe {
		l.Raw[m] -= units * per
	}
	l.FinishedGoods += units
	return nil
}

// ConsumeFinished removes finished goods handed to a buyer
func (l *InventoryLedger) ConsumeFinished(units Quantity) error {
	mustNotBeNegative("consume quantity", units)
	if l.FinishedGoods < units {
		return fmt.Errorf("need %d finished units, have %d: %w", units, l.FinishedGoods, ErrInsufficientStock)
	}
	l.FinishedGoods -= units
	return nil
}

// Clone returns a deep copy of the ledger
func (l *InventoryLedger) Clone() *InventoryLedger {
	c := *l
	c.Raw = make(map[Material]Quantity, len(l.Raw))
	for m, q := range l.Raw {
		c.Raw[m] = q
	}
	c.Recipe = make(map[Material]Quantity, len(l.Recipe))
	for m, q := range l.Recipe {
		c.Recipe[m] = q
	}
	return &c
}

func mustNotBeNegative(what string, q Quantity) {
	if q < 0 {
		panic(fmt.Sprintf("invariant violated: negative %s %d", what, q))
	}
}
