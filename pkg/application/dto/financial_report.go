package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// PartyReport is the financial summary of one stand or supplier
type PartyReport struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Kind              string            `json:"kind"`
	Status            string            `json:"status"`
	Revenue           decimal.Decimal   `json:"revenue"`
	COGS              decimal.Decimal   `json:"cogs"`
	GrossProfit       decimal.Decimal   `json:"gross_profit"`
	OperatingExpenses decimal.Decimal   `json:"operating_expenses"`
	Purchases         decimal.Decimal   `json:"purchases"`
	Taxes             decimal.Decimal   `json:"taxes"`
	NetProfit         decimal.Decimal   `json:"net_profit"`
	ProfitMargin      decimal.Decimal   `json:"profit_margin"`
	Stock             entities.Quantity `json:"stock"`
	Price             decimal.Decimal   `json:"price"`
	NextPayroll       string            `json:"next_payroll,omitempty"`
}

// FinancialReport summarizes every party in the market
type FinancialReport struct {
	Stands           []PartyReport   `json:"stands"`
	Suppliers        []PartyReport   `json:"suppliers"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalNetProfit   decimal.Decimal `json:"total_net_profit"`
	TransactionCount int             `json:"transaction_count"`
	InTransitOrders  int             `json:"in_transit_orders"`
}
