package testing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/infrastructure/repositories/csv"
	helpers "github.com/vsinha/marketsim/pkg/infrastructure/testing"
)

// The built-in sample and the CSV scenario describe the same market
func TestBuildSampleMarket_MatchesScenarioFiles(t *testing.T) {
	now := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	sample := helpers.BuildSampleMarket(now)

	scenario, err := csv.NewLoader(now, 0).LoadScenario("../../../testdata/scenarios/san_diego")
	require.NoError(t, err)

	for _, want := range scenario.Stands {
		got, err := sample.Stands.GetStand(want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.OrderingTier, got.OrderingTier, want.ID)
		assert.Equal(t, want.AutoOrdering.PreferredSupplierID, got.AutoOrdering.PreferredSupplierID, want.ID)
		assert.Equal(t, want.Inventory.FinishedGoods, got.Inventory.FinishedGoods, want.ID)
		for _, m := range entities.Materials {
			assert.Equal(t, want.Inventory.RawOnHand(m), got.Inventory.RawOnHand(m), "%s %s", want.ID, m)
		}
		assert.True(t, want.Price().Equal(got.Price()), want.ID)
		assert.Len(t, got.Employees, len(want.Employees), want.ID)
	}

	for _, want := range scenario.Suppliers {
		got, err := sample.Suppliers.GetSupplier(want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Stock, got.Stock, want.ID)
		assert.True(t, want.ListPrice.Equal(got.ListPrice), want.ID)
		assert.Equal(t, want.Factors == nil, got.Factors == nil, want.ID)
	}

	agents, err := sample.Agents.GetAllAgents()
	require.NoError(t, err)
	assert.Len(t, agents, len(scenario.Agents))
}
