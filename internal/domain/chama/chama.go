package chama

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

// Status represents a chama-wallet transaction status.
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusApproved     Status = "APPROVED"
	StatusRejected     Status = "REJECTED"
	StatusProcessing   Status = "PROCESSING"
	StatusComplete     Status = "COMPLETE"
	StatusFailed       Status = "FAILED"
	StatusManualReview Status = "MANUAL_REVIEW"
	StatusUnrecognized Status = "UNRECOGNIZED"
)

// Type represents the kind of movement against a chama wallet.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeTransfer   Type = "TRANSFER"
)

var (
	ErrInvalidAmount = errors.New("transaction amount must be greater than zero")
	ErrInvalidType   = errors.New("invalid chama transaction type")
	ErrMissingChama  = errors.New("chama id is required")
	ErrMissingMember = errors.New("member id is required")
)

// Transitions is the chama-wallet transition table.
// PENDING cannot reach PROCESSING or COMPLETE: execution only follows APPROVED.
// PROCESSING falls back to APPROVED on a provider failure so the sign-off is kept.
var Transitions = lifecycle.Table[Status]{
	StatusPending:      {StatusApproved, StatusRejected, StatusFailed, StatusManualReview},
	StatusApproved:     {StatusProcessing, StatusComplete, StatusFailed, StatusManualReview},
	StatusProcessing:   {StatusComplete, StatusFailed, StatusApproved, StatusManualReview},
	StatusManualReview: {StatusUnrecognized},
	StatusRejected:     {},
	StatusComplete:     {},
	StatusFailed:       {},
	StatusUnrecognized: {},
}

// Statuses lists every chama-wallet status.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusApproved, StatusRejected, StatusProcessing,
		StatusComplete, StatusFailed, StatusManualReview, StatusUnrecognized,
	}
}

// IsValidTransition validates a chama-wallet status change.
func IsValidTransition(current, next Status) bool {
	return lifecycle.IsValidTransition(current, next, Transitions)
}

// AllowedNext returns the statuses reachable from current.
func AllowedNext(current Status) []Status {
	return lifecycle.AllowedNext(current, Transitions)
}

// ValidateTransition fails with a lifecycle.InvalidTransitionError for illegal changes.
func ValidateTransition(current, next Status) error {
	return lifecycle.ValidateTransition(current, next, Transitions, "chama transaction")
}

// Transaction is a movement of group funds that may need admin sign-off.
type Transaction struct {
	ID            int64     `json:"id"`
	TransactionID uuid.UUID `json:"transactionId"`
	ChamaID       string    `json:"chamaId"`
	MemberID      string    `json:"memberId"`
	Type          Type      `json:"type"`
	Status        Status    `json:"status"`
	AmountMsats   int64     `json:"amountMsats"`
	Reference     string    `json:"reference"`
	Reviews       []Review  `json:"reviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewTransaction creates a pending chama transaction with no reviews.
func NewTransaction(chamaID, memberID string, txType Type, amountMsats int64, reference string) (*Transaction, error) {
	if chamaID == "" {
		return nil, ErrMissingChama
	}
	if memberID == "" {
		return nil, ErrMissingMember
	}
	switch txType {
	case TypeDeposit, TypeWithdrawal, TypeTransfer:
	default:
		return nil, ErrInvalidType
	}
	if amountMsats <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Transaction{
		TransactionID: uuid.New(),
		ChamaID:       chamaID,
		MemberID:      memberID,
		Type:          txType,
		Status:        StatusPending,
		AmountMsats:   amountMsats,
		Reference:     reference,
		Reviews:       []Review{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetReviews implements Reviewable.
func (t *Transaction) GetReviews() []Review {
	return t.Reviews
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
