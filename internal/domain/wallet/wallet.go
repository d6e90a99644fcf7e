package wallet

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

// Status represents a solo-wallet transaction status.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusProcessing   Status = "PROCESSING"
	StatusComplete     Status = "COMPLETE"
	StatusFailed       Status = "FAILED"
	StatusManualReview Status = "MANUAL_REVIEW"
	StatusUnrecognized Status = "UNRECOGNIZED"
)

// Type represents the direction of a wallet transaction.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
)

var (
	ErrInvalidAmount = errors.New("transaction amount must be greater than zero")
	ErrInvalidType   = errors.New("invalid wallet transaction type")
	ErrMissingUser   = errors.New("user id is required")
)

// Transitions is the solo-wallet transition table.
// PROCESSING -> PENDING reverts an attempt the payment provider failed so it can be retried.
var Transitions = lifecycle.Table[Status]{
	StatusPending:      {StatusProcessing, StatusFailed, StatusManualReview},
	StatusProcessing:   {StatusComplete, StatusFailed, StatusPending, StatusManualReview},
	StatusManualReview: {StatusUnrecognized},
	StatusComplete:     {},
	StatusFailed:       {},
	StatusUnrecognized: {},
}

// Statuses lists every solo-wallet status.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusComplete, StatusFailed, StatusManualReview, StatusUnrecognized}
}

// IsValidTransition validates a solo-wallet status change.
func IsValidTransition(current, next Status) bool {
	return lifecycle.IsValidTransition(current, next, Transitions)
}

// AllowedNext returns the statuses reachable from current.
func AllowedNext(current Status) []Status {
	return lifecycle.AllowedNext(current, Transitions)
}

// ValidateTransition fails with a lifecycle.InvalidTransitionError for illegal changes.
func ValidateTransition(current, next Status) error {
	return lifecycle.ValidateTransition(current, next, Transitions, "wallet transaction")
}

// Transaction is a deposit or withdrawal against a single user's wallet.
type Transaction struct {
	ID            int64     `json:"id"`
	TransactionID uuid.UUID `json:"transactionId"`
	UserID        string    `json:"userId"`
	Type          Type      `json:"type"`
	Status        Status    `json:"status"`
	AmountMsats   int64     `json:"amountMsats"`
	Reference     string    `json:"reference"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewTransaction creates a pending wallet transaction.
func NewTransaction(userID string, txType Type, amountMsats int64, reference string) (*Transaction, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if txType != TypeDeposit && txType != TypeWithdrawal {
		return nil, ErrInvalidType
	}
	if amountMsats <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Transaction{
		TransactionID: uuid.New(),
		UserID:        userID,
		Type:          txType,
		Status:        StatusPending,
		AmountMsats:   amountMsats,
		Reference:     reference,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TransitionTo moves the transaction to next after validating the change.
func (t *Transaction) TransitionTo(next Status) error {
	if err := ValidateTransition(t.Status, next); err != nil {
		return err
	}
	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	return nil
}
