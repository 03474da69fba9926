package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *InventoryLedger {
	t.Helper()
	l, err := NewInventoryLedger(DefaultMaxCapacity, DefaultConversionRatio, DefaultRawCapacity)
	require.NoError(t, err)
	return l
}

func TestNewInventoryLedger_Validation(t *testing.T) {
	tests := []struct {
		name        string
		capacity    Quantity
		ratio       Quantity
		rawCapacity Quantity
		wantErr     string
	}{
		{"valid", 50, 2, 450, ""},
		{"zero capacity", 0, 2, 450, "max capacity must be positive, got 0"},
		{"zero ratio", 50, 0, 450, "conversion ratio must be positive, got 0"},
		{"negative raw capacity", 50, 2, -1, "raw capacity must be positive, got -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewInventoryLedger(tt.capacity, tt.ratio, tt.rawCapacity)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Quantity(1), l.Recipe[Sugar])
			assert.Equal(t, Quantity(2), l.Recipe[Ice])
		})
	}
}

func TestInventoryLedger_ConvertPrimary(t *testing.T) {
	l := newTestLedger(t)
	l.Receive(Lemons, 100)

	assert.Equal(t, Quantity(50), l.MaxConvertible())
	require.NoError(t, l.ConvertPrimary(40))
	assert.Equal(t, Quantity(20), l.RawOnHand(Lemons))

	err := l.ConvertPrimary(11)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.Equal(t, Quantity(20), l.RawOnHand(Lemons), "failed conversion must not consume stock")
}

func TestInventoryLedger_Produce(t *testing.T) {
	l := newTestLedger(t)
	l.Receive(Lemons, 40)
	l.Receive(Sugar, 10)
	l.Receive(Cups, 30)
	l.Receive(Ice, 30)

	// sugar is the binding ingredient
	assert.Equal(t, Quantity(10), l.MaxProducible())
	assert.True(t, l.CanProduce(10))
	assert.False(t, l.CanProduce(11))

	require.NoError(t, l.Produce(10))
	assert.Equal(t, Quantity(10), l.FinishedGoods)
	assert.Equal(t, Quantity(20), l.RawOnHand(Lemons))
	assert.Equal(t, Quantity(0), l.RawOnHand(Sugar))
	assert.Equal(t, Quantity(20), l.RawOnHand(Cups))
	assert.Equal(t, Quantity(10), l.RawOnHand(Ice))

	err := l.Produce(1)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestInventoryLedger_ProduceRespectsCapacity(t *testing.T) {
	l := newTestLedger(t)
	for _, m := range Materials {
		l.Receive(m, 1000)
	}
	l.FinishedGoods = 45

	assert.Equal(t, Quantity(5), l.MaxProducible())
	err := l.Produce(6)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	require.NoError(t, l.Produce(5))
	assert.Equal(t, l.MaxCapacity, l.FinishedGoods)
	assert.Equal(t, Quantity(0), l.MaxProducible())
}

func TestInventoryLedger_ConsumeFinished(t *testing.T) {
	l := newTestLedger(t)
	l.FinishedGoods = 10

	require.NoError(t, l.ConsumeFinished(4))
	assert.Equal(t, Quantity(6), l.FinishedGoods)
	assert.True(t, errors.Is(l.ConsumeFinished(7), ErrInsufficientStock))
}

func TestInventoryLedger_NegativeQuantityPanics(t *testing.T) {
	l := newTestLedger(t)
	assert.Panics(t, func() { l.Receive(Lemons, -1) })
	assert.Panics(t, func() { _ = l.ConsumeFinished(-1) })
}

func TestInventoryLedger_Clone(t *testing.T) {
	l := newTestLedger(t)
	l.Receive(Lemons, 10)

	c := l.Clone()
	c.Receive(Lemons, 5)
	c.Recipe[Sugar] = 9

	assert.Equal(t, Quantity(10), l.RawOnHand(Lemons))
	assert.Equal(t, Quantity(1), l.Recipe[Sugar])
	assert.Equal(t, Quantity(15), c.TotalRaw())
}
