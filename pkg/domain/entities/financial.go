package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowKind identifies the ledger operation that produced a snapshot
type CashFlowKind string

const (
	CashFlowSale     CashFlowKind = "sale"
	CashFlowPurchase CashFlowKind = "purchase"
	CashFlowPayroll  CashFlowKind = "payroll"
	CashFlowTax      CashFlowKind = "tax"
)

// CashFlowSnapshot captures ledger totals right after one mutation
type CashFlowSnapshot struct {
	At                time.Time       `json:"at"`
	Kind              CashFlowKind    `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	Revenue           decimal.Decimal `json:"revenue"`
	COGS              decimal.Decimal `json:"cogs"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	Taxes             decimal.Decimal `json:"taxes"`
	NetProfit         decimal.Decimal `json:"net_profit"`
}

// FinancialState is the running profit and loss of one stand or supplier.
// NetProfit is always derived as Revenue - COGS - OperatingExpenses - Taxes.
// Purchases tracks cash spent on stock; that cost reaches the P&L through
// COGS when goods are sold, so it is not part of NetProfit.
type FinancialState struct {
	Revenue           decimal.Decimal    `json:"revenue"`
	COGS              decimal.Decimal    `json:"cogs"`
	GrossProfit       decimal.Decimal    `json:"gross_profit"`
	Payroll           decimal.Decimal    `json:"payroll"`
	Healthcare        decimal.Decimal    `json:"healthcare"`
	PayrollTaxes      decimal.Decimal    `json:"payroll_taxes"`
	Unemployment      decimal.Decimal    `json:"unemployment"`
	WorkersComp       decimal.Decimal    `json:"workers_comp"`
	OperatingExpenses decimal.Decimal    `json:"operating_expenses"`
	Purchases         decimal.Decimal    `json:"purchases"`
	Taxes             decimal.Decimal    `json:"taxes"`
	NetProfit         decimal.Decimal    `json:"net_profit"`
	CashFlow          []CashFlowSnapshot `json:"cash_flow"`
}

// NewFinancialState creates a zeroed ledger
func NewFinancialState() *FinancialState {
	return &FinancialState{CashFlow: []CashFlowSnapshot{}}
}

// RecordSale books revenue and the cost of the goods that left stock
func (f *FinancialState) RecordSale(at time.Time, amount, cogs decimal.Decimal) {
	mustNotBeNegativeMoney("sale amount", amount)
	mustNotBeNegativeMoney("sale cogs", cogs)
	f.Revenue = f.Revenue.Add(amount)
	f.COGS = f.COGS.Add(cogs)
	f.snapshot(at, CashFlowSale, amount)
}

// RecordPurchase books cash spent acquiring stock
func (f *FinancialState) RecordPurchase(at time.Time, amount decimal.Decimal) {
	mustNotBeNegativeMoney("purchase amount", amount)
	f.Purchases = f.Purchases.Add(amount)
	f.snapshot(at, CashFlowPurchase, amount)
}

// RecordPayroll books every employer cost component of one payroll run
func (f *FinancialState) RecordPayroll(at time.Time, rec PayrollRecord) {
	mustNotBeNegativeMoney("payroll total", rec.Total)
	f.Payroll = f.Payroll.Add(rec.GrossPayroll)
	f.Healthcare = f.Healthcare.Add(rec.Healthcare)
	f.PayrollTaxes = f.PayrollTaxes.Add(rec.PayrollTax)
	f.Unemployment = f.Unemployment.Add(rec.Unemployment)
	f.WorkersComp = f.WorkersComp.Add(rec.WorkersComp)
	f.snapshot(at, CashFlowPayroll, rec.Total)
}

// RecordTax applies a flat rate to current profit before tax and returns the tax owed
func (f *FinancialState) RecordTax(at time.Time, rate decimal.Decimal) decimal.Decimal {
	mustNotBeNegativeMoney("tax rate", rate)
	base := f.NetProfitBeforeTax()
	if base.IsNegative() {
		base = decimal.Zero
	}
	f.Taxes = Round2(base.Mul(rate))
	f.snapshot(at, CashFlowTax, f.Taxes)
	return f.Taxes
}

// NetProfitBeforeTax returns revenue less COGS and operating expenses
func (f *FinancialState) NetProfitBeforeTax() decimal.Decimal {
	return f.Revenue.Sub(f.COGS).Sub(f.operatingExpenses())
}

// ProfitMargin returns net profit as a percentage of revenue
func (f *FinancialState) ProfitMargin() decimal.Decimal {
	if f.Revenue.IsZero() {
		return decimal.Zero
	}
	return f.NetProfit.Div(f.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
}

func (f *FinancialState) operatingExpenses() decimal.Decimal {
	return f.Payroll.Add(f.Healthcare).Add(f.PayrollTaxes).Add(f.Unemployment).Add(f.WorkersComp)
}

func (f *FinancialState) recompute() {
	f.GrossProfit = f.Revenue.Sub(f.COGS)
	f.OperatingExpenses = f.operatingExpenses()
	f.NetProfit = f.GrossProfit.Sub(f.OperatingExpenses).Sub(f.Taxes)
}

func (f *FinancialState) snapshot(at time.Time, kind CashFlowKind, amount decimal.Decimal) {
	f.recompute()
	f.CashFlow = append(f.CashFlow, CashFlowSnapshot{
		At:                at,
		Kind:              kind,
		Amount:            amount,
		Revenue:           f.Revenue,
		COGS:              f.COGS,
		OperatingExpenses: f.OperatingExpenses,
		Taxes:             f.Taxes,
		NetProfit:         f.NetProfit,
	})
}

// Clone returns a deep copy of the ledger
func (f *FinancialState) Clone() *FinancialState {
	c := *f
	c.CashFlow = append([]CashFlowSnapshot(nil), f.CashFlow...)
	return &c
}

func mustNotBeNegativeMoney(what string, d decimal.Decimal) {
	if d.IsNegative() {
		panic(fmt.Sprintf("invariant violated: negative %s %s", what, d))
	}
}
