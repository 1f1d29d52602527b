package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	"github.com/tallybooks/tallybooks/internal/platform/db"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, clientID int64) ([]JournalEntry, error)
	Get(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
// Period and account lookups live here too so the checks share the
// transaction that writes the entry.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error
	GetEntryForUpdate(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error)
	ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error
	UpdateHeader(ctx context.Context, entry JournalEntry) error
	SetStatus(ctx context.Context, entryID uuid.UUID, status EntryStatus, postedAt *time.Time, postedBy *int64) error
	DeleteEntry(ctx context.Context, clientID int64, entryID uuid.UUID) error

	// LockClosedPeriods takes row locks on the client's closed periods
	// so a concurrent close cannot slide under a post in flight.
	LockClosedPeriods(ctx context.Context, clientID int64) ([]periods.Period, error)
	GetAccountsByCodes(ctx context.Context, clientID int64, codes []string) (map[string]accounts.Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, client_id, date, reference, description, status, posted_at, posted_by, reversal_of, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.ClientID, &e.Date, &e.Reference, &e.Description, &e.Status, &e.PostedAt, &e.PostedBy, &e.ReversalOf, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, clientID int64) ([]JournalEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE client_id=$1 ORDER BY date DESC, created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE client_id=$1 AND id=$2`, clientID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.db, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, entryID uuid.UUID) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, gl_code, debit, credit, description FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.GLCode, &line.Debit, &line.Credit, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (id, client_id, date, reference, description, status, posted_at, posted_by, reversal_of)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING created_at, updated_at`,
		entry.ID, entry.ClientID, entry.Date, entry.Reference, entry.Description, entry.Status, entry.PostedAt, entry.PostedBy, entry.ReversalOf)
	if err := row.Scan(&entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, gl_code, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.GLCode, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE client_id=$1 AND id=$2 FOR UPDATE`, clientID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrNotFound
		}
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.tx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) UpdateHeader(ctx context.Context, entry JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET date=$3, reference=$4, description=$5, updated_at=NOW() WHERE client_id=$1 AND id=$2`,
		entry.ClientID, entry.ID, entry.Date, entry.Reference, entry.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, entryID uuid.UUID, status EntryStatus, postedAt *time.Time, postedBy *int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, posted_at=COALESCE($3, posted_at), posted_by=COALESCE($4, posted_by), updated_at=NOW() WHERE id=$1`,
		entryID, status, postedAt, postedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, clientID int64, entryID uuid.UUID) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE client_id=$1 AND id=$2`, clientID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LockClosedPeriods duplicates the periods repository query, but it has
// to run on this transaction so the period check and the posted entry
// commit or roll back together. The advisory lock orders the post
// against a concurrent close that would insert the first period row.
func (r *txRepository) LockClosedPeriods(ctx context.Context, clientID int64) ([]periods.Period, error) {
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
