package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// Market event types
const (
	PricingRecomputedEvent      = "PricingRecomputed"
	SaleRecordedEvent           = "SaleRecorded"
	PlanExecutedEvent           = "PlanExecuted"
	AllocationAppliedEvent      = "AllocationApplied"
	AllocationFailedEvent       = "AllocationFailed"
	OrderPlacedEvent            = "OrderPlaced"
	OrderDeliveredEvent         = "OrderDelivered"
	ProductionCompletedEvent    = "ProductionCompleted"
	PayrollProcessedEvent       = "PayrollProcessed"
	TaxRecordedEvent            = "TaxRecorded"
	SupplierRestockOrderedEvent = "SupplierRestockOrdered"
	SupplierRestockedEvent      = "SupplierRestocked"
	EnvironmentRefreshedEvent   = "EnvironmentRefreshed"
	MarketStream                = "market"
)

// PricingRecomputedData records a stand's new price and the multipliers behind it
type PricingRecomputedData struct {
	StandID                 string                       `json:"stand_id"`
	Signal                  entities.EnvironmentalSignal `json:"signal"`
	EnvironmentalMultiplier decimal.Decimal              `json:"environmental_multiplier"`
	DemandMultiplier        decimal.Decimal              `json:"demand_multiplier"`
	SupplyMultiplier        decimal.Decimal              `json:"supply_multiplier"`
	Price                   decimal.Decimal              `json:"price"`
}

// SaleRecordedData records finished goods leaving a stand
type SaleRecordedData struct {
	StandID  string            `json:"stand_id"`
	BuyerID  string            `json:"buyer_id"`
	Quantity entities.Quantity `json:"quantity"`
	Amount   decimal.Decimal   `json:"amount"`
	COGS     decimal.Decimal   `json:"cogs"`
}

// PlanExecutedData summarizes one plan execution
type PlanExecutedData struct {
	BuyerID           string            `json:"buyer_id"`
	RequestedQuantity entities.Quantity `json:"requested_quantity"`
	DeliveredQuantity entities.Quantity `json:"delivered_quantity"`
	Charged           decimal.Decimal   `json:"charged"`
	Applied           int               `json:"applied"`
	Failed            int               `json:"failed"`
}

// AllocationOutcomeData records one allocation applied or refused during execution
type AllocationOutcomeData struct {
	Allocation entities.Allocation `json:"allocation"`
	BuyerID    string              `json:"buyer_id"`
	Reason     string              `json:"reason,omitempty"`
}

// OrderPlacedData records a supply order entering transit
type OrderPlacedData struct {
	Order entities.SupplyOrder `json:"order"`
}

// OrderDeliveredData records a supply order arriving at its stand
type OrderDeliveredData struct {
	OrderID    string               `json:"order_id"`
	StandID    string               `json:"stand_id"`
	SupplierID string               `json:"supplier_id"`
	Lines      []entities.OrderLine `json:"lines"`
}

// ProductionCompletedData records finished goods made from raw stock
type ProductionCompletedData struct {
	StandID       string            `json:"stand_id"`
	Units         entities.Quantity `json:"units"`
	FinishedGoods entities.Quantity `json:"finished_goods"`
}

// PayrollProcessedData wraps one payroll run
type PayrollProcessedData struct {
	Record entities.PayrollRecord `json:"record"`
}

// TaxRecordedData records the tax set on a party's books
type TaxRecordedData struct {
	PartyID string          `json:"party_id"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}

// SupplierRestockData records a supplier's own restock order or its arrival
type SupplierRestockData struct {
	SupplierID string            `json:"supplier_id"`
	Quantity   entities.Quantity `json:"quantity"`
	Cost       decimal.Decimal   `json:"cost"`
	Stock      entities.Quantity `json:"stock"`
	ListPrice  decimal.Decimal   `json:"list_price"`
}

// EnvironmentRefreshedData records the signal a location received
type EnvironmentRefreshedData struct {
	Location string                       `json:"location"`
	Signal   entities.EnvironmentalSignal `json:"signal"`
}

// NewPricingRecomputedEvent creates a pricing recomputed event
func NewPricingRecomputedEvent(stand *entities.Stand, signal entities.EnvironmentalSignal, at time.Time) Event {
	return NewEvent(PricingRecomputedEvent, stand.ID, PricingRecomputedData{
		StandID:                 stand.ID,
		Signal:                  signal,
		EnvironmentalMultiplier: stand.Pricing.EnvironmentalMultiplier,
		DemandMultiplier:        stand.Pricing.DemandMultiplier,
		SupplyMultiplier:        stand.Pricing.SupplyMultiplier,
		Price:                   stand.Pricing.CurrentPrice,
	}, at)
}

// NewSaleRecordedEvent creates a sale recorded event
func NewSaleRecordedEvent(standID, buyerID string, qty entities.Quantity, amount, cogs decimal.Decimal, at time.Time) Event {
	return NewEvent(SaleRecordedEvent, standID, SaleRecordedData{
		StandID:  standID,
		BuyerID:  buyerID,
		Quantity: qty,
		Amount:   amount,
		COGS:     cogs,
	}, at)
}

// NewPlanExecutedEvent creates a plan executed event
func NewPlanExecutedEvent(data PlanExecutedData, at time.Time) Event {
	return NewEvent(PlanExecutedEvent, MarketStream, data, at)
}

// NewAllocationAppliedEvent creates an allocation applied event
func NewAllocationAppliedEvent(alloc entities.Allocation, buyerID string, at time.Time) Event {
	return NewEvent(AllocationAppliedEvent, alloc.StandID, AllocationOutcomeData{
		Allocation: alloc,
		BuyerID:    buyerID,
	}, at)
}

// NewAllocationFailedEvent creates an allocation failed event
func NewAllocationFailedEvent(alloc entities.Allocation, buyerID string, reason error, at time.Time) Event {
	return NewEvent(AllocationFailedEvent, alloc.StandID, AllocationOutcomeData{
		Allocation: alloc,
		BuyerID:    buyerID,
		Reason:     reason.Error(),
	}, at)
}

// NewOrderPlacedEvent creates an order placed event
func NewOrderPlacedEvent(order *entities.SupplyOrder) Event {
	return NewEvent(OrderPlacedEvent, order.StandID, OrderPlacedData{Order: *order}, order.PlacedAt)
}

// NewOrderDeliveredEvent creates an order delivered event
func NewOrderDeliveredEvent(order *entities.SupplyOrder, at time.Time) Event {
	return NewEvent(OrderDeliveredEvent, order.StandID, OrderDeliveredData{
		OrderID:    order.ID,
		StandID:    order.StandID,
		SupplierID: order.SupplierID,
		Lines:      order.Lines,
	}, at)
}

// NewProductionCompletedEvent creates a production completed event
func NewProductionCompletedEvent(standID string, units, finished entities.Quantity, at time.Time) Event {
	return NewEvent(ProductionCompletedEvent, standID, ProductionCompletedData{
		StandID:       standID,
		Units:         units,
		FinishedGoods: finished,
	}, at)
}

// NewPayrollProcessedEvent creates a payroll processed event
func NewPayrollProcessedEvent(rec entities.PayrollRecord) Event {
	return NewEvent(PayrollProcessedEvent, rec.PartyID, PayrollProcessedData{Record: rec}, rec.ProcessedAt)
}

// NewTaxRecordedEvent creates a tax recorded event
func NewTaxRecordedEvent(partyID string, rate, amount decimal.Decimal, at time.Time) Event {
	return NewEvent(TaxRecordedEvent, partyID, TaxRecordedData{
		PartyID: partyID,
		Rate:    rate,
		Amount:  amount,
	}, at)
}

// NewSupplierRestockOrderedEvent creates a supplier restock ordered event
func NewSupplierRestockOrderedEvent(supplier *entities.Supplier, qty entities.Quantity, cost decimal.Decimal, at time.Time) Event {
	return NewEvent(SupplierRestockOrderedEvent, supplier.ID, SupplierRestockData{
		SupplierID: supplier.ID,
		Quantity:   qty,
		Cost:       cost,
		Stock:      supplier.Stock,
		ListPrice:  supplier.ListPrice,
	}, at)
}

// NewSupplierRestockedEvent creates a supplier restocked event
func NewSupplierRestockedEvent(supplier *entities.Supplier, qty entities.Quantity, at time.Time) Event {
	return NewEvent(SupplierRestockedEvent, supplier.ID, SupplierRestockData{
		SupplierID: supplier.ID,
		Quantity:   qty,
		Stock:      supplier.Stock,
		ListPrice:  supplier.ListPrice,
	}, at)
}

// NewEnvironmentRefreshedEvent creates an environment refreshed event
func NewEnvironmentRefreshedEvent(location string, signal entities.EnvironmentalSignal, at time.Time) Event {
	return NewEvent(EnvironmentRefreshedEvent, MarketStream, EnvironmentRefreshedData{
		Location: location,
		Signal:   signal,
	}, at)
}
