package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/marketsim/pkg/domain/entities"
)

// AllocationOutcome is what happened to one allocation of an executed plan
type AllocationOutcome struct {
	Allocation     entities.Allocation `json:"allocation"`
	Applied        bool                `json:"applied"`
	Error          string              `json:"error,omitempty"`
	Err            error               `json:"-"`
	TransactionIDs []string            `json:"transaction_ids,omitempty"`
}

// ExecutionResult contains the per-allocation outcome of ExecutePlan
type ExecutionResult struct {
	BuyerID           string                 `json:"buyer_id"`
	RequestedQuantity entities.Quantity      `json:"requested_quantity"`
	DeliveredQuantity entities.Quantity      `json:"delivered_quantity"`
	Charged           decimal.Decimal        `json:"charged"`
	Outcomes          []AllocationOutcome    `json:"outcomes"`
	Replenishments    []*ReplenishmentResult `json:"replenishments,omitempty"`
}

// Failed returns the outcomes that were not applied
func (r *ExecutionResult) Failed() []AllocationOutcome {
	var failed []AllocationOutcome
	for _, o := range r.Outcomes {
		if !o.Applied {
			failed = append(failed, o)
		}
	}
	return failed
}

// SaleResult is the outcome of a direct sale at one stand
type SaleResult struct {
	StandID       string               `json:"stand_id"`
	BuyerID       string               `json:"buyer_id"`
	Quantity      entities.Quantity    `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	Amount        decimal.Decimal      `json:"amount"`
	Produced      entities.Quantity    `json:"produced"`
	TransactionID string               `json:"transaction_id"`
	Replenishment *ReplenishmentResult `json:"replenishment,omitempty"`
	Pricing       entities.Pricing     `json:"pricing"`
}
