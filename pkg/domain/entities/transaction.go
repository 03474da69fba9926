package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionCategory classifies a money or goods movement
type TransactionCategory string

const (
	CategorySale           TransactionCategory = "sale"
	CategorySupplyPurchase TransactionCategory = "supply_purchase"
	CategoryPayroll        TransactionCategory = "payroll"
	CategoryTax            TransactionCategory = "tax"
)

// Transaction is an immutable record of a completed movement between two parties
type Transaction struct {
	ID          string              `json:"id"`
	At          time.Time           `json:"at"`
	FromID      string              `json:"from_id"`
	ToID        string              `json:"to_id"`
	Amount      decimal.Decimal     `json:"amount"`
	Quantity    Quantity            `json:"quantity"`
	Category    TransactionCategory `json:"category"`
	Description string              `json:"description"`
}

// NewTransaction creates a validated Transaction with a fresh ID
func NewTransaction(at time.Time, fromID, toID string, amount decimal.Decimal, qty Quantity, category TransactionCategory, description string) (*Transaction, error) {
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("transaction parties cannot be empty")
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("transaction amount cannot be negative, got %s", amount)
	}
	if qty < 0 {
		return nil, fmt.Errorf("transaction quantity cannot be negative, got %d", qty)
	}

	return &Transaction{
		ID:          uuid.New().String(),
		At:          at,
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		Quantity:    qty,
		Category:    category,
		Description: description,
	}, nil
}
