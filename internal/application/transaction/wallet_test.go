package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/chama-ledger/ledger/internal/domain/event"
	"github.com/chama-ledger/ledger/internal/domain/lifecycle"
	"github.com/chama-ledger/ledger/internal/domain/wallet"
	walletMocks "github.com/chama-ledger/ledger/internal/domain/wallet/mocks"
)

type capturePublisher struct {
	events []*event.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, evt *event.Event) error {
	p.events = append(p.events, evt)
	return p.err
}

func (p *capturePublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingMetrics struct {
	transitions []string
	invalid     map[string]int
}

func (m *countingMetrics) ObserveTransition(kind, from, to string) {
	m.transitions = append(m.transitions, kind+":"+from+"->"+to)
}

func (m *countingMetrics) ObserveInvalidTransition(kind string) {
	if m.invalid == nil {
		m.invalid = map[string]int{}
	}
	m.invalid[kind]++
}

// mutateWallet makes the mock apply fn to tx the way the repository does.
func mutateWallet(tx *wallet.Transaction) func(context.Context, uuid.UUID, func(*wallet.Transaction) error) (*wallet.Transaction, error) {
	return func(_ context.Context, _ uuid.UUID, fn func(*wallet.Transaction) error) (*wallet.Transaction, error) {
		working := *tx
		if err := fn(&working); err != nil {
			return nil, err
		}
		*tx = working
		return tx, nil
	}
}

func TestWalletService_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		service := NewWalletService(repo, nil, nil, zerolog.Nop())
		ctx := context.Background()

		repo.EXPECT().
			Create(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, tx *wallet.Transaction) error {
				assert.Equal(t, "user-1", tx.UserID)
				assert.Equal(t, wallet.StatusPending, tx.Status)
				assert.Equal(t, int64(1000), tx.AmountMsats)
				return nil
			})

		tx, err := service.Create(ctx, CreateWalletTx{UserID: "user-1", Type: wallet.TypeDeposit, AmountMsats: 1000})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, tx.TransactionID)
	})

	t.Run("invalid input never reaches the repository", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		service := NewWalletService(repo, nil, nil, zerolog.Nop())

		_, err := service.Create(context.Background(), CreateWalletTx{UserID: "user-1", Type: wallet.TypeDeposit})

		assert.ErrorIs(t, err, wallet.ErrInvalidAmount)
	})

	t.Run("repository error is wrapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		service := NewWalletService(repo, nil, nil, zerolog.Nop())
		dbErr := errors.New("connection reset")

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(dbErr)

		_, err := service.Create(context.Background(), CreateWalletTx{UserID: "u", Type: wallet.TypeWithdrawal, AmountMsats: 1})

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestWalletService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := walletMocks.NewMockRepository(ctrl)
	service := NewWalletService(repo, nil, nil, zerolog.Nop())
	id := uuid.New()

	repo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := service.Get(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalletService_UpdateStatus(t *testing.T) {
	t.Run("legal transition is persisted and published", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		publisher := &capturePublisher{}
		metrics := &countingMetrics{}
		service := NewWalletService(repo, publisher, metrics, zerolog.Nop())

		stored, err := wallet.NewTransaction("user-1", wallet.TypeWithdrawal, 500, "")
		require.NoError(t, err)
		repo.EXPECT().Mutate(gomock.Any(), stored.TransactionID, gomock.Any()).DoAndReturn(mutateWallet(stored))

		tx, err := service.UpdateStatus(context.Background(), stored.TransactionID, wallet.StatusProcessing)

		require.NoError(t, err)
		assert.Equal(t, wallet.StatusProcessing, tx.Status)
		assert.Equal(t, []string{event.WalletStatusChanged}, publisher.types())
		assert.Equal(t, "PENDING", publisher.events[0].From)
		assert.Equal(t, "PROCESSING", publisher.events[0].To)
		assert.Equal(t, []string{"wallet:PENDING->PROCESSING"}, metrics.transitions)
	})

	t.Run("illegal transition fails closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		publisher := &capturePublisher{}
		metrics := &countingMetrics{}
		service := NewWalletService(repo, publisher, metrics, zerolog.Nop())

		stored, err := wallet.NewTransaction("user-1", wallet.TypeWithdrawal, 500, "")
		require.NoError(t, err)
		stored.Status = wallet.StatusComplete
		repo.EXPECT().Mutate(gomock.Any(), stored.TransactionID, gomock.Any()).DoAndReturn(mutateWallet(stored))

		_, err = service.UpdateStatus(context.Background(), stored.TransactionID, wallet.StatusPending)

		require.Error(t, err)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
		var invalid *lifecycle.InvalidTransitionError[wallet.Status]
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, wallet.StatusComplete, invalid.Current)
		assert.Equal(t, wallet.StatusComplete, stored.Status)
		assert.Empty(t, publisher.events)
		assert.Equal(t, 1, metrics.invalid[kindWallet])
	})

	t.Run("missing transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		service := NewWalletService(repo, nil, nil, zerolog.Nop())

		repo.EXPECT().Mutate(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

		_, err := service.UpdateStatus(context.Background(), uuid.New(), wallet.StatusFailed)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("publisher failure does not fail the update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := walletMocks.NewMockRepository(ctrl)
		publisher := &capturePublisher{err: errors.New("broker down")}
		service := NewWalletService(repo, publisher, nil, zerolog.Nop())

		stored, err := wallet.NewTransaction("user-1", wallet.TypeDeposit, 500, "")
		require.NoError(t, err)
		repo.EXPECT().Mutate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(mutateWallet(stored))

		tx, err := service.UpdateStatus(context.Background(), stored.TransactionID, wallet.StatusFailed)

		require.NoError(t, err)
		assert.Equal(t, wallet.StatusFailed, tx.Status)
		assert.Len(t, publisher.events, 1)
	})
}
