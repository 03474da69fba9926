package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertNetProfitIdentity(t *testing.T, f *FinancialState) {
	t.Helper()
	want := f.Revenue.Sub(f.COGS).Sub(f.OperatingExpenses).Sub(f.Taxes)
	assert.True(t, want.Equal(f.NetProfit), "net profit %s, want %s", f.NetProfit, want)
	assert.True(t, f.Revenue.Sub(f.COGS).Equal(f.GrossProfit))
}

func TestFinancialState_NetProfitHoldsAfterEveryMutation(t *testing.T) {
	at := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	f := NewFinancialState()

	steps := []struct {
		name  string
		apply func()
	}{
		{"sale", func() { f.RecordSale(at, Money(120), Money(72)) }},
		{"purchase", func() { f.RecordPurchase(at, Money(80)) }},
		{"payroll", func() {
			f.RecordPayroll(at, PayrollRecord{
				GrossPayroll: Money(20),
				Healthcare:   Money(5),
				PayrollTax:   Money(1.53),
				Unemployment: Money(0.6),
				WorkersComp:  Money(0.4),
				Total:        Money(27.53),
			})
		}},
		{"tax", func() { f.RecordTax(at, Money(0.25)) }},
		{"second sale", func() { f.RecordSale(at, Money(30), Money(18)) }},
	}

	for i, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			step.apply()
			assertNetProfitIdentity(t, f)
			require.Len(t, f.CashFlow, i+1)
			last := f.CashFlow[len(f.CashFlow)-1]
			assert.True(t, last.NetProfit.Equal(f.NetProfit))
		})
	}
}

func TestFinancialState_PurchasesStayOffTheProfitLine(t *testing.T) {
	at := time.Now()
	f := NewFinancialState()
	f.RecordSale(at, Money(100), Money(60))
	before := f.NetProfit

	f.RecordPurchase(at, Money(500))

	assert.True(t, before.Equal(f.NetProfit))
	assert.True(t, Money(500).Equal(f.Purchases))
}

func TestFinancialState_RecordTax(t *testing.T) {
	at := time.Now()

	t.Run("profitable", func(t *testing.T) {
		f := NewFinancialState()
		f.RecordSale(at, Money(1000), Money(400))
		tax := f.RecordTax(at, Money(0.25))
		assert.True(t, decimal.NewFromInt(150).Equal(tax))
		assert.True(t, decimal.NewFromInt(450).Equal(f.NetProfit))
	})

	t.Run("loss pays no tax", func(t *testing.T) {
		f := NewFinancialState()
		f.RecordSale(at, Money(10), Money(50))
		tax := f.RecordTax(at, Money(0.25))
		assert.True(t, tax.IsZero())
		assert.True(t, decimal.NewFromInt(-40).Equal(f.NetProfit))
	})

	t.Run("recomputed not accumulated", func(t *testing.T) {
		f := NewFinancialState()
		f.RecordSale(at, Money(100), Money(0))
		f.RecordTax(at, Money(0.25))
		f.RecordTax(at, Money(0.25))
		assert.True(t, decimal.NewFromInt(25).Equal(f.Taxes))
	})
}

func TestFinancialState_NegativeAmountPanics(t *testing.T) {
	f := NewFinancialState()
	assert.Panics(t, func() { f.RecordSale(time.Now(), Money(-1), decimal.Zero) })
	assert.Panics(t, func() { f.RecordPurchase(time.Now(), Money(-1)) })
}

func TestFinancialState_ProfitMargin(t *testing.T) {
	f := NewFinancialState()
	assert.True(t, f.ProfitMargin().IsZero())

	f.RecordSale(time.Now(), Money(200), Money(150))
	assert.True(t, decimal.NewFromInt(25).Equal(f.ProfitMargin()))
}
