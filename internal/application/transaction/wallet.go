package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/event"
	"github.com/chama-ledger/ledger/internal/domain/wallet"
)

// CreateWalletTx is the input for a new solo-wallet transaction.
type CreateWalletTx struct {
	UserID      string
	Type        wallet.Type
	AmountMsats int64
	Reference   string
}

// WalletService handles solo-wallet transactions.
type WalletService struct {
	repo wallet.Repository
	notifier
}

// NewWalletService creates a wallet transaction service. publisher and metrics may be nil.
func NewWalletService(repo wallet.Repository, publisher event.Publisher, metrics Metrics, logger zerolog.Logger) *WalletService {
	l := logger.With().Str("service", "wallet").Logger()
	return &WalletService{
		repo:     repo,
		notifier: newNotifier(publisher, metrics, l),
	}
}

// Create records a new pending transaction.
func (s *WalletService) Create(ctx context.Context, in CreateWalletTx) (*wallet.Transaction, error) {
	tx, err := wallet.NewTransaction(in.UserID, in.Type, in.AmountMsats, in.Reference)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create wallet transaction: %w", err)
	}

	s.logger.Info().
		Str("transactionId", tx.TransactionID.String()).
		Str("userId", tx.UserID).
		Str("type", string(tx.Type)).
		Msg("wallet transaction created")
	return tx, nil
}

// Get returns a transaction by id.
func (s *WalletService) Get(ctx context.Context, id uuid.UUID) (*wallet.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get wallet transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	return tx, nil
}

// List returns a user's transactions, newest first.
func (s *WalletService) List(ctx context.Context, filter wallet.Filter, limit, offset int) ([]*wallet.Transaction, error) {
	txs, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	return txs, nil
}

// UpdateStatus moves a transaction to next. Illegal changes fail with a
// lifecycle.InvalidTransitionError and nothing is written.
func (s *WalletService) UpdateStatus(ctx context.Context, id uuid.UUID, next wallet.Status) (*wallet.Transaction, error) {
	var from wallet.Status
	tx, err := s.repo.Mutate(ctx, id, func(tx *wallet.Transaction) error {
		from = tx.Status
		return tx.TransitionTo(next)
	})
	if err != nil {
		s.rejected(kindWallet, err)
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}

	s.metrics.ObserveTransition(kindWallet, string(from), string(next))
	s.logger.Info().
		Str("transactionId", id.String()).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("wallet transaction status changed")

	evt := event.New(event.WalletStatusChanged, tx.TransactionID, string(from), string(next))
	evt.Actor = tx.UserID
	s.publish(ctx, evt)
	return tx, nil
}
