package wallet

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls wallet transaction listing.
type Filter struct {
	UserID *string
	Status *Status
}

// Repository defines persistence for wallet transactions.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Transaction, error)
	// Mutate loads the transaction under a row lock, applies fn and persists the result.
	// Nothing is written when fn returns an error. Returns nil, nil when the transaction does not exist.
	Mutate(ctx context.Context, transactionID uuid.UUID, fn func(tx *Transaction) error) (*Transaction, error)
}
