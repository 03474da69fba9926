package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/marketsim/pkg/domain/entities"
	"github.com/vsinha/marketsim/pkg/domain/repositories"
)

// TransactionRepository is an in-memory append-only journal
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions []entities.Transaction
}

// NewTransactionRepository creates an empty journal
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: []entities.Transaction{},
	}
}

// Verify interface compliance
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// AppendTransaction stores a copy of tx; stored records are never mutated
func (r *TransactionRepository) AppendTransaction(tx *entities.Transaction) error {
	if tx == nil || tx.ID == "" {
		return fmt.Errorf("transaction must have an id: %w", entities.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *tx)
	return nil
}

// GetTransactions returns copies of every journaled transaction in order
func (r *TransactionRepository) GetTransactions() ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Transaction, 0, len(r.transactions))
	for i := range r.transactions {
		tx := r.transactions[i]
		out = append(out, &tx)
	}
	return out, nil
}

// GetTransactionsForParty returns transactions where the party paid or was paid
func (r *TransactionRepository) GetTransactionsForParty(partyID string) ([]*entities.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Transaction
	for i := range r.transactions {
		if r.transactions[i].FromID == partyID || r.transactions[i].ToID == partyID {
			tx := r.transactions[i]
			out = append(out, &tx)
		}
	}
	return out, nil
}
