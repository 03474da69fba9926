package repositories

import "github.com/vsinha/marketsim/pkg/domain/entities"

// TransactionRepository is an append-only journal of completed transactions
type TransactionRepository interface {
	AppendTransaction(tx *entities.Transaction) error
	GetTransactions() ([]*entities.Transaction, error)
	GetTransactionsForParty(partyID string) ([]*entities.Transaction, error)
}
