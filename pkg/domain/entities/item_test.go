package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterial_String(t *testing.T) {
	tests := []struct {
		material Material
		expected string
	}{
		{Lemons, "lemons"},
		{Sugar, "sugar"},
		{Cups, "cups"},
		{Ice, "ice"},
		{Material(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.material.String())
		})
	}
}

func TestParseMaterial(t *testing.T) {
	for _, m := range Materials {
		got, err := ParseMaterial(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMaterial(" Lemon ")
	require.NoError(t, err)
	assert.Equal(t, Lemons, got)

	_, err = ParseMaterial("limes")
	assert.EqualError(t, err, "unknown material: limes")
}

func TestRound2(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1.24").Equal(Round2(decimal.RequireFromString("1.2449"))))
	assert.True(t, decimal.RequireFromString("1.25").Equal(Round2(decimal.RequireFromString("1.245"))))
}
