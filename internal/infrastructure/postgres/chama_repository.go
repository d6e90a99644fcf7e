package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chama-ledger/ledger/internal/domain/chama"
)

const chamaColumns = `id, transaction_id, chama_id, member_id, type, status, amount_msats, reference, reviews, created_at, updated_at`

// ChamaRepository implements chama.TransactionRepository. Reviews are stored
// as a JSONB array on the transaction row so they are locked together.
type ChamaRepository struct {
	pool *pgxpool.Pool
}

func NewChamaRepository(pool *pgxpool.Pool) *ChamaRepository {
	return &ChamaRepository{pool: pool}
}

func (r *ChamaRepository) Create(ctx context.Context, t *chama.Transaction) error {
	reviews, err := marshalReviews(t.Reviews)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO chama_transactions
		(transaction_id, chama_id, member_id, type, status, amount_msats, reference, reviews, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, t.TransactionID, t.ChamaID, t.MemberID, t.Type, t.Status, t.AmountMsats, t.Reference, reviews, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
}

func (r *ChamaRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*chama.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+chamaColumns+` FROM chama_transactions WHERE transaction_id=$1`, transactionID)
	return scanChama(row)
}

func (r *ChamaRepository) List(ctx context.Context, filter chama.Filter, limit, offset int) ([]*chama.Transaction, error) {
	var w where
	if filter.ChamaID != nil {
		w.add("chama_id", *filter.ChamaID)
	}
	if filter.MemberID != nil {
		w.add("member_id", *filter.MemberID)
	}
	if filter.Status != nil {
		w.add("status", *filter.Status)
	}
	query, args := w.page(`SELECT `+chamaColumns+` FROM chama_transactions`, "created_at DESC", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []*chama.Transaction
	for rows.Next() {
		t, err := scanChama(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *ChamaRepository) Mutate(ctx context.Context, transactionID uuid.UUID, fn func(*chama.Transaction) error) (*chama.Transaction, error) {
	var out *chama.Transaction
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+chamaColumns+` FROM chama_transactions WHERE transaction_id=$1 FOR UPDATE`, transactionID)
		t, err := scanChama(row)
		if err != nil || t == nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		reviews, err := marshalReviews(t.Reviews)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE chama_transactions SET status=$1, reviews=$2, updated_at=$3 WHERE transaction_id=$4
		`, t.Status, reviews, t.UpdatedAt, t.TransactionID); err != nil {
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

func marshalReviews(reviews []chama.Review) ([]byte, error) {
	if reviews == nil {
		reviews = []chama.Review{}
	}
	return json.Marshal(reviews)
}

func scanChama(row pgx.Row) (*chama.Transaction, error) {
	var t chama.Transaction
	var reviews []byte
	if err := row.Scan(&t.ID, &t.TransactionID, &t.ChamaID, &t.MemberID, &t.Type, &t.Status, &t.AmountMsats, &t.Reference, &reviews, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t.Reviews = []chama.Review{}
	if len(reviews) > 0 {
		if err := json.Unmarshal(reviews, &t.Reviews); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
