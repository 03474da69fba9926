package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSeverity represents why a supply order was placed
type OrderSeverity int

const (
	Routine OrderSeverity = iota
	Emergency
	Bulk
)

// String method for OrderSeverity enum
func (o OrderSeverity) String() string {
	switch o {
	case Routine:
		return "Routine"
	case Emergency:
		return "Emergency"
	case Bulk:
		return "Bulk"
	default:
		return "Unknown"
	}
}

// OrderStatus represents the delivery state of a supply order
type OrderStatus int

const (
	InTransit OrderStatus = iota
	Delivered
)

// String method for OrderStatus enum
func (o OrderStatus) String() string {
	switch o {
	case InTransit:
		return "InTransit"
	case Delivered:
		return "Delivered"
	default:
		return "Unknown"
	}
}

// OrderLine is one material on a supply order
type OrderLine struct {
	Material  Material        `json:"material"`
	Quantity  Quantity        `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Cost      decimal.Decimal `json:"cost"`
}

// SupplyOrder is raw material bought by a stand and waiting for delivery
type SupplyOrder struct {
	ID          string          `json:"id"`
	StandID     string          `json:"stand_id"`
	SupplierID  string          `json:"supplier_id"`
	Severity    OrderSeverity   `json:"severity"`
	Lines       []OrderLine     `json:"lines"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	PlacedAt    time.Time       `json:"placed_at"`
	DueAt       time.Time       `json:"due_at"`
	Status      OrderStatus     `json:"status"`
	DeliveredAt time.Time       `json:"delivered_at,omitempty"`
}

// NewSupplyOrder creates a validated in-transit SupplyOrder
func NewSupplyOrder(standID, supplierID string, severity OrderSeverity, lines []OrderLine, placedAt, dueAt time.Time) (*SupplyOrder, error) {
	if standID == "" {
		return nil, fmt.Errorf("stand id cannot be empty")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("supply order must have at least one line")
	}
	if dueAt.Before(placedAt) {
		return nil, fmt.Errorf("due time %v cannot be before placed time %v", dueAt, placedAt)
	}

	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line quantity must be positive, got %d for %s", l.Quantity, l.Material)
		}
		total = total.Add(l.Cost)
	}

	return &SupplyOrder{
		ID:         uuid.New().String(),
		StandID:    standID,
		SupplierID: supplierID,
		Severity:   severity,
		Lines:      lines,
		TotalCost:  Round2(total),
		PlacedAt:   placedAt,
		DueAt:      dueAt,
		Status:     InTransit,
	}, nil
}

// QuantityOf returns the ordered quantity of one material
func (o *SupplyOrder) QuantityOf(m Material) Quantity {
	var q Quantity
	for _, l := range o.Lines {
		if l.Material == m {
			q += l.Quantity
		}
	}
	return q
}

// MarkDelivered moves the order out of transit
func (o *SupplyOrder) MarkDelivered(at time.Time) {
	o.Status = Delivered
	o.DeliveredAt = at
}
