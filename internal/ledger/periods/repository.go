package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	"github.com/tallybooks/tallybooks/internal/platform/db"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// Repository encapsulates DB operations for accounting periods.
type Repository interface {
	List(ctx context.Context, clientID int64) ([]Period, error)
	FindClosedContaining(ctx context.Context, clientID int64, date time.Time) (Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a close transaction.
type TxRepository interface {
	// LockClientPeriods takes the client's transaction-scoped advisory
	// lock and then row locks on every period row, serializing closes
	// against concurrent closes and posts even when no rows exist yet.
	LockClientPeriods(ctx context.Context, clientID int64) ([]Period, error)
	InsertClosed(ctx context.Context, period Period) (Period, error)
	UpdateNotes(ctx context.Context, periodID int64, notes string) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, client_id, period_start, period_end, status, closed_at, closed_by, notes, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.ClientID, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, clientID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE client_id=$1 ORDER BY period_start`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) FindClosedContaining(ctx context.Context, clientID int64, date time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE client_id=$1 AND status='CLOSED' AND $2::date BETWEEN period_start AND period_end
ORDER BY period_start LIMIT 1`, clientID, Day(date))
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockClientPeriods(ctx context.Context, clientID int64) ([]Period, error) {
	// FOR UPDATE alone locks nothing when the client has no period rows
	// yet, so two first-ever closes could both insert. The advisory lock
	// is held until commit and serializes the whole close.
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, internalshared.LedgerLockKey(clientID)); err != nil {
		return nil, err
	}
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE client_id=$1 ORDER BY period_start FOR UPDATE`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *txRepository) InsertClosed(ctx context.Context, period Period) (Period, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (client_id, period_start, period_end, status, closed_at, closed_by, notes)
VALUES ($1,$2,$3,'CLOSED',$4,$5,$6) RETURNING id, created_at, updated_at`,
		period.ClientID, Day(period.StartDate), Day(period.EndDate), period.ClosedAt, period.ClosedBy, period.Notes)
	if err := row.Scan(&period.ID, &period.CreatedAt, &period.UpdatedAt); err != nil {
		return Period{}, err
	}
	period.Status = PeriodStatusClosed
	return period, nil
}

func (r *txRepository) UpdateNotes(ctx context.Context, periodID int64, notes string) (Period, error) {
	row := r.tx.QueryRow(ctx, `UPDATE accounting_periods SET notes=$2, updated_at=NOW() WHERE id=$1 RETURNING `+periodColumns, periodID, notes)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}
