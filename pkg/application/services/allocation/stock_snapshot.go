package allocation

import (
	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// StockContext holds the plan-local stock of one stand
type StockContext struct {
	FinishedGoods   entities.Quantity
	RawPrimary      entities.Quantity
	ConversionRatio entities.Quantity
}

// StockSnapshot is a working copy of stand and supplier stock used while planning.
// Taking stock from the snapshot never touches the entities it was built from.
type StockSnapshot struct {
	stands    map[string]*StockContext
	suppliers map[string]entities.Quantity
}

// NewStockSnapshot copies the current stock of the given stands and suppliers
func NewStockSnapshot(stands []*entities.Stand, suppliers []*entities.Supplier) *StockSnapshot {
	s := &StockSnapshot{
		stands:    make(map[string]*StockContext, len(stands)),
		suppliers: make(map[string]entities.Quantity, len(suppliers)),
	}
	for _, stand := range stands {
		s.stands[stand.ID] = &StockContext{
			FinishedGoods:   stand.Inventory.FinishedGoods,
			RawPrimary:      stand.Inventory.RawOnHand(entities.Lemons),
			ConversionRatio: stand.Inventory.ConversionRatio,
		}
	}
	for _, supplier := range suppliers {
		s.suppliers[supplier.ID] = supplier.Stock
	}
	return s
}

// Stand returns the stock context of a stand, or nil when it is not in the snapshot
func (s *StockSnapshot) Stand(id string) *StockContext {
	return s.stands[id]
}

// TakeFinished removes up to want finished units from a stand and returns how many were taken
func (s *StockSnapshot) TakeFinished(standID string, want entities.Quantity) entities.Quantity {
	ctx := s.stands[standID]
	if ctx == nil || want <= 0 {
		return 0
	}
	took := min(want, ctx.FinishedGoods)
	ctx.FinishedGoods -= took
	return took
}

// TakeConverted converts up to want units from a stand's raw stock and returns
// the units produced and the raw material consumed
func (s *StockSnapshot) TakeConverted(standID string, want entities.Quantity) (units, raw entities.Quantity) {
	ctx := s.stands[standID]
	if ctx == nil || want <= 0 || ctx.ConversionRatio <= 0 {
		return 0, 0
	}
	units = min(want, ctx.RawPrimary/ctx.ConversionRatio)
	raw = units * ctx.ConversionRatio
	ctx.RawPrimary -= raw
	return units, raw
}

// SupplierStock returns a supplier's remaining plan-local stock
func (s *StockSnapshot) SupplierStock(supplierID string) entities.Quantity {
	return s.suppliers[supplierID]
}

// TakeFromSupplier buys raw material for up to want finished units at a stand's ratio.
// It returns the units covered and the raw quantity bought, always a multiple of ratio.
func (s *StockSnapshot) TakeFromSupplier(supplierID string, want, ratio entities.Quantity) (units, bought entities.Quantity) {
	stock, ok := s.suppliers[supplierID]
	if !ok || want <= 0 || ratio <= 0 {
		return 0, 0
	}
	needed := min(want*ratio, stock)
	units = needed / ratio
	bought = units * ratio
	s.suppliers[supplierID] = stock - bought
	return units, bought
}
