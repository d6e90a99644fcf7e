package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chama-ledger/ledger/internal/domain/wallet"
)

const walletColumns = `id, transaction_id, user_id, type, status, amount_msats, reference, created_at, updated_at`

// WalletRepository implements wallet.Repository.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) Create(ctx context.Context, t *wallet.Transaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO wallet_transactions
		(transaction_id, user_id, type, status, amount_msats, reference, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, t.TransactionID, t.UserID, t.Type, t.Status, t.AmountMsats, t.Reference, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}

func (r *WalletRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*wallet.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallet_transactions WHERE transaction_id=$1`, transactionID)
	return scanWallet(row)
}

func (r *WalletRepository) List(ctx context.Context, filter wallet.Filter, limit, offset int) ([]*wallet.Transaction, error) {
	var w where
	if filter.UserID != nil {
		w.add("user_id", *filter.UserID)
	}
	if filter.Status != nil {
		w.add("status", *filter.Status)
	}
	query, args := w.page(`SELECT `+walletColumns+` FROM wallet_transactions`, "created_at DESC", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*wallet.Transaction
	for rows.Next() {
		t, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *WalletRepository) Mutate(ctx context.Context, transactionID uuid.UUID, fn func(*wallet.Transaction) error) (*wallet.Transaction, error) {
	var out *wallet.Transaction
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallet_transactions WHERE transaction_id=$1 FOR UPDATE`, transactionID)
		t, err := scanWallet(row)
		if err != nil || t == nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE wallet_transactions SET status=$1, updated_at=$2 WHERE transaction_id=$3
		`, t.Status, t.UpdatedAt, t.TransactionID); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanWallet(row pgx.Row) (*wallet.Transaction, error) {
	var t wallet.Transaction
	if err := row.Scan(&t.ID, &t.TransactionID, &t.UserID, &t.Type, &t.Status, &t.AmountMsats, &t.Reference, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
