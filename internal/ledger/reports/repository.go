package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
)

// MovementRow is one aggregated (gl_code, debit, credit) tuple. Name
// and Type are nil when the code resolves to no account, which the
// service surfaces as a data-integrity violation.
type MovementRow struct {
	GLCode string
	Name   *string
	Type   *string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// RangeTotals carries debit/credit sums before and inside a period.
type RangeTotals struct {
	PriorDebit   decimal.Decimal
	PriorCredit  decimal.Decimal
	PeriodDebit  decimal.Decimal
	PeriodCredit decimal.Decimal
}

// Repository reads committed movements. Journal lines of posted and
// later-reversed entries both count: a reversal compensates, it does
// not erase history. Transactions contribute both of their sides so
// the trial balance stays balanced.
type Repository interface {
	Movements(ctx context.Context, clientID int64, asOf time.Time) ([]MovementRow, error)
	AccountRange(ctx context.Context, clientID int64, glCode string, start, end time.Time) (RangeTotals, error)
	ActiveClients(ctx context.Context, since time.Time) ([]int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const movementsCTE = `WITH movements AS (
	SELECT jl.gl_code, jl.debit, jl.credit
	FROM journal_lines jl
	JOIN journal_entries je ON je.id = jl.entry_id
	WHERE je.client_id=$1 AND je.status IN ('POSTED','REVERSED') AND je.date <= $2
	UNION ALL
	SELECT t.account_code,
		CASE WHEN t.type='income' THEN ABS(t.amount) ELSE 0 END,
		CASE WHEN t.type='expense' THEN ABS(t.amount) ELSE 0 END
	FROM transactions t
	WHERE t.client_id=$1 AND t.date <= $2
	UNION ALL
	SELECT t.category_code,
		CASE WHEN t.type='expense' THEN ABS(t.amount) ELSE 0 END,
		CASE WHEN t.type='income' THEN ABS(t.amount) ELSE 0 END
	FROM transactions t
	WHERE t.client_id=$1 AND t.date <= $2
)`

func (r *repository) Movements(ctx context.Context, clientID int64, asOf time.Time) ([]MovementRow, error) {
	rows, err := r.db.Query(ctx, movementsCTE+`
SELECT m.gl_code, a.name, a.type, COALESCE(SUM(m.debit),0), COALESCE(SUM(m.credit),0)
FROM movements m
LEFT JOIN accounts a ON a.client_id=$1 AND a.gl_code=m.gl_code
GROUP BY m.gl_code, a.name, a.type
ORDER BY m.gl_code`, clientID, periods.Day(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MovementRow
	for rows.Next() {
		var row MovementRow
		if err := rows.Scan(&row.GLCode, &row.Name, &row.Type, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) AccountRange(ctx context.Context, clientID int64, glCode string, start, end time.Time) (RangeTotals, error) {
	var totals RangeTotals
	err := r.db.QueryRow(ctx, `WITH movements AS (
	SELECT je.date, jl.debit, jl.credit
	FROM journal_lines jl
	JOIN journal_entries je ON je.id = jl.entry_id
	WHERE je.client_id=$1 AND je.status IN ('POSTED','REVERSED') AND jl.gl_code=$2 AND je.date <= $4
	UNION ALL
	SELECT t.date,
		CASE WHEN t.type='income' THEN ABS(t.amount) ELSE 0 END,
		CASE WHEN t.type='expense' THEN ABS(t.amount) ELSE 0 END
	FROM transactions t
	WHERE t.client_id=$1 AND t.account_code=$2 AND t.date <= $4
	UNION ALL
	SELECT t.date,
		CASE WHEN t.type='expense' THEN ABS(t.amount) ELSE 0 END,
		CASE WHEN t.type='income' THEN ABS(t.amount) ELSE 0 END
	FROM transactions t
	WHERE t.client_id=$1 AND t.category_code=$2 AND t.date <= $4
)
SELECT
	COALESCE(SUM(debit)  FILTER (WHERE date <  $3), 0),
	COALESCE(SUM(credit) FILTER (WHERE date <  $3), 0),
	COALESCE(SUM(debit)  FILTER (WHERE date >= $3), 0),
	COALESCE(SUM(credit) FILTER (WHERE date >= $3), 0)
FROM movements`, clientID, glCode, periods.Day(start), periods.Day(end)).
		Scan(&totals.PriorDebit, &totals.PriorCredit, &totals.PeriodDebit, &totals.PeriodCredit)
	if err != nil {
		return RangeTotals{}, err
	}
	return totals, nil
}

// ActiveClients lists clients with postings since the given time,
// used by the report warmup job.
func (r *repository) ActiveClients(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT client_id FROM journal_entries WHERE updated_at >= $1
UNION
SELECT DISTINCT client_id FROM transactions WHERE updated_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
