package transaction

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/application/review"
	"github.com/chama-ledger/ledger/internal/domain/chama"
	"github.com/chama-ledger/ledger/internal/domain/event"
	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
)

// CreateChamaTx is the input for a new chama transaction.
type CreateChamaTx struct {
	ChamaID     string
	MemberID    string
	Type        chama.Type
	AmountMsats int64
	Reference   string
}

// ReviewOutcome is the result of recording one review.
type ReviewOutcome struct {
	Transaction *chama.Transaction `json:"transaction"`
	Quorum      chama.QuorumResult `json:"quorum"`
	Changed     bool               `json:"changed"`
}

// ChamaService handles chama transactions and their reviews.
type ChamaService struct {
	repo    chama.TransactionRepository
	members chama.MembershipProvider
	engine  *review.Engine
	notifier
}

// NewChamaService creates a chama transaction service. publisher and metrics may be nil.
func NewChamaService(
	repo chama.TransactionRepository,
	members chama.MembershipProvider,
	engine *review.Engine,
	publisher event.Publisher,
	metrics Metrics,
	logger zerolog.Logger,
) *ChamaService {
	l := logger.With().Str("service", "chama").Logger()
	return &ChamaService{
		repo:     repo,
		members:  members,
		engine:   engine,
		notifier: newNotifier(publisher, metrics, l),
	}
}

// Create records a new pending transaction awaiting review.
func (s *ChamaService) Create(ctx context.Context, in CreateChamaTx) (*chama.Transaction, error) {
	tx, err := chama.NewTransaction(in.ChamaID, in.MemberID, in.Type, in.AmountMsats, in.Reference)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create chama transaction: %w", err)
	}

	s.logger.Info().
		Str("transactionId", tx.TransactionID.String()).
		Str("chamaId", tx.ChamaID).
		Str("memberId", tx.MemberID).
		Str("type", string(tx.Type)).
		Msg("chama transaction created")
	return tx, nil
}

// Get returns a transaction by id.
func (s *ChamaService) Get(ctx context.Context, id uuid.UUID) (*chama.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chama transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	return tx, nil
}

// List returns chama transactions, newest first.
func (s *ChamaService) List(ctx context.Context, filter chama.Filter, limit, offset int) ([]*chama.Transaction, error) {
	txs, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chama transactions: %w", err)
	}
	return txs, nil
}

// UpdateStatus moves a transaction to next through the chama table.
func (s *ChamaService) UpdateStatus(ctx context.Context, id uuid.UUID, next chama.Status) (*chama.Transaction, error) {
	var from chama.Status
	tx, err := s.repo.Mutate(ctx, id, func(tx *chama.Transaction) error {
		from = tx.Status
		return tx.TransitionTo(next)
	})
	if err != nil {
		s.rejected(kindChama, err)
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	s.statusChanged(ctx, tx, from, "")
	return tx, nil
}

// Review records memberID's decision and recomputes the status under the
// transaction's row lock. Only chama admins may review, and a transaction in
// a terminal status keeps its review list as it was when it settled.
func (s *ChamaService) Review(ctx context.Context, id uuid.UUID, memberID string, decision chama.Decision) (*ReviewOutcome, error) {
	if !decision.Valid() {
		return nil, ErrInvalidDecision
	}
	if memberID == "" {
		return nil, chama.ErrMissingMember
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	membership, err := s.members.GetMembership(ctx, current.ChamaID)
	if err != nil {
		return nil, fmt.Errorf("load chama membership: %w", err)
	}
	if membership == nil {
		return nil, ErrNotMember
	}
	member, ok := membership.Find(memberID)
	if !ok {
		return nil, ErrNotMember
	}
	if !member.CanReview() {
		return nil, ErrIneligibleReviewer
	}

	var (
		from   chama.Status
		quorum chama.QuorumResult
	)
	tx, err := s.repo.Mutate(ctx, id, func(tx *chama.Transaction) error {
		from = tx.Status
		if lifecycle.IsTerminal(tx.Status, chama.Transitions) {
			return ErrReviewClosed
		}
		tx.Reviews = s.engine.UpsertReview(tx, memberID, decision)
		quorum = s.engine.ComputeStatus(tx, *membership, tx.Status)
		if quorum.Status == tx.Status {
			return nil
		}
		return tx.TransitionTo(quorum.Status)
	})
	if err != nil {
		s.rejected(kindChama, err)
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	s.logger.Info().
		Str("transactionId", id.String()).
		Str("memberId", memberID).
		Str("decision", string(decision)).
		Str("outcome", string(quorum.Outcome)).
		Msg("chama transaction reviewed")

	out := &ReviewOutcome{Transaction: tx, Quorum: quorum, Changed: tx.Status != from}
	if !out.Changed {
		return out, nil
	}
	s.statusChanged(ctx, tx, from, memberID)

	var evt *event.Event
	switch tx.Status {
	case chama.StatusApproved:
		evt = event.New(event.ChamaApproved, tx.TransactionID, string(from), string(tx.Status))
		evt.Attributes = map[string]string{
			"chamaId":   tx.ChamaID,
			"approvals": strconv.Itoa(quorum.Approvals),
			"eligible":  strconv.Itoa(quorum.Eligible),
		}
	case chama.StatusRejected:
		evt = event.New(event.ChamaRejected, tx.TransactionID, string(from), string(tx.Status))
		evt.Attributes = map[string]string{
			"chamaId":  tx.ChamaID,
			"rejector": quorum.Rejector,
		}
	}
	if evt != nil {
		evt.Actor = memberID
		s.publish(ctx, evt)
	}
	return out, nil
}

func (s *ChamaService) statusChanged(ctx context.Context, tx *chama.Transaction, from chama.Status, actor string) {
	s.metrics.ObserveTransition(kindChama, string(from), string(tx.Status))
	s.logger.Info().
		Str("transactionId", tx.TransactionID.String()).
		Str("from", string(from)).
		Str("to", string(tx.Status)).
		Msg("chama transaction status changed")

	evt := event.New(event.ChamaStatusChanged, tx.TransactionID, string(from), string(tx.Status))
	evt.Actor = actor
	evt.Attributes = map[string]string{"chamaId": tx.ChamaID}
	s.publish(ctx, evt)
}
