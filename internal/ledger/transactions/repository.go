package transactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	"github.com/tallybooks/tallybooks/internal/platform/db"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// Repository encapsulates DB operations for transactions.
type Repository interface {
	List(ctx context.Context, clientID int64, limit, offset int) ([]Transaction, error)
	Count(ctx context.Context, clientID int64) (int, error)
	Get(ctx context.Context, clientID int64, id uuid.UUID) (Transaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a mutation transaction.
type TxRepository interface {
	Insert(ctx context.Context, txn Transaction) (Transaction, error)
	GetForUpdate(ctx context.Context, clientID int64, id uuid.UUID) (Transaction, error)
	Update(ctx context.Context, txn Transaction) (Transaction, error)
	Delete(ctx context.Context, clientID int64, id uuid.UUID) error

	LockClosedPeriods(ctx context.Context, clientID int64) ([]periods.Period, error)
	GetAccountsByCodes(ctx context.Context, clientID int64, codes []string) (map[string]accounts.Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const txnColumns = `id, client_id, date, description, category_code, account_code, reference, amount, type, status, created_at, updated_at`

func scanTxn(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.ClientID, &t.Date, &t.Description, &t.CategoryCode, &t.AccountCode, &t.Reference, &t.Amount, &t.Type, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *repository) List(ctx context.Context, clientID int64, limit, offset int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txnColumns+` FROM transactions WHERE client_id=$1 ORDER BY date DESC, created_at DESC LIMIT $2 OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Count(ctx context.Context, clientID int64) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE client_id=$1`, clientID).Scan(&total)
	return total, err
}

func (r *repository) Get(ctx context.Context, clientID int64, id uuid.UUID) (Transaction, error) {
	t, err := scanTxn(r.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE client_id=$1 AND id=$2`, clientID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Insert(ctx context.Context, txn Transaction) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO transactions (id, client_id, date, description, category_code, account_code, reference, amount, type, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING created_at, updated_at`,
		txn.ID, txn.ClientID, txn.Date, txn.Description, txn.CategoryCode, txn.AccountCode, txn.Reference, txn.Amount, txn.Type, txn.Status)
	if err := row.Scan(&txn.CreatedAt, &txn.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, clientID int64, id uuid.UUID) (Transaction, error) {
	t, err := scanTxn(r.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE client_id=$1 AND id=$2 FOR UPDATE`, clientID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepository) Update(ctx context.Context, txn Transaction) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `UPDATE transactions SET date=$3, description=$4, category_code=$5, account_code=$6, reference=$7, amount=$8, type=$9, status=$10, updated_at=NOW()
WHERE client_id=$1 AND id=$2 RETURNING created_at, updated_at`,
		txn.ClientID, txn.ID, txn.Date, txn.Description, txn.CategoryCode, txn.AccountCode, txn.Reference, txn.Amount, txn.Type, txn.Status)
	if err := row.Scan(&txn.CreatedAt, &txn.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) Delete(ctx context.Context, clientID int64, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE client_id=$1 AND id=$2`, clientID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) LockClosedPeriods(ctx context.Context, clientID int64) ([]periods.Period, error) {
	// Advisory lock first: FOR UPDATE sees no rows for a client whose
	// first period close is still in flight.
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, internalshared.LedgerLockKey(clientID)); err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, client_id, period_start, period_end, status, closed_at, closed_by, notes, created_at, updated_at
FROM accounting_periods WHERE client_id=$1 AND status='CLOSED' ORDER BY period_start FOR UPDATE`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []periods.Period
	for rows.Next() {
		var p periods.Period
		if err := rows.Scan(&p.ID, &p.ClientID, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *txRepository) GetAccountsByCodes(ctx context.Context, clientID int64, codes []string) (map[string]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, client_id, gl_code, name, type, parent_code, is_active, created_at, updated_at
FROM accounts WHERE client_id=$1 AND gl_code = ANY($2)`, clientID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]accounts.Account, len(codes))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.ClientID, &a.GLCode, &a.Name, &a.Type, &a.ParentCode, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.GLCode] = a
	}
	return out, rows.Err()
}
