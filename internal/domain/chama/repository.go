package chama

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls chama transaction listing.
type Filter struct {
	ChamaID  *string
	MemberID *string
	Status   *Status
}

// TransactionRepository defines persistence for chama transactions and their reviews.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, transactionID uuid.UUID) (*Transaction, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Transaction, error)
	// Mutate loads the transaction under a row lock, applies fn and persists status and reviews.
	// Nothing is written when fn returns an error. Returns nil, nil when the transaction does not exist.
	Mutate(ctx context.Context, transactionID uuid.UUID, fn func(tx *Transaction) error) (*Transaction, error)
}

// MembershipProvider supplies a fresh membership snapshot for a chama.
type MembershipProvider interface {
	GetMembership(ctx context.Context, chamaID string) (*Membership, error)
}
