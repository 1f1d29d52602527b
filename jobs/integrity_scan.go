package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tallybooks/tallybooks/internal/observability"
)

// Violation is one finding of the integrity scan.
type Violation struct {
	ClientID int64
	Kind     string
	Detail   string
}

// IntegrityScanner re-derives the core invariants from stored rows:
// every committed entry sums to zero and every referenced GL code has
// an account. A passing scan is the operational proof that no write
// bypassed the posting path.
type IntegrityScanner struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *IntegrityScanner {
	return &IntegrityScanner{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskIntegrityScan tasks.
func (s *IntegrityScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	violations, err := s.Scan(ctx)
	if err != nil {
		s.metrics.ObserveJob(TaskIntegrityScan, "error")
		return err
	}
	for _, v := range violations {
		s.logger.Warn("ledger integrity violation",
			slog.Int64("client_id", v.ClientID),
			slog.String("kind", v.Kind),
			slog.String("detail", v.Detail))
	}
	s.metrics.ObserveIntegrityViolations(len(violations))
	s.metrics.ObserveJob(TaskIntegrityScan, "ok")
	s.logger.Info("integrity scan finished", slog.Int("violations", len(violations)))
	return nil
}

// Scan runs all checks and returns the findings.
func (s *IntegrityScanner) Scan(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	unbalanced, err := s.scanUnbalancedEntries(ctx)
	if err != nil {
		return nil, err
	}
	violations = append(violations, unbalanced...)

	orphanLines, err := s.scanOrphanJournalCodes(ctx)
	if err != nil {
		return nil, err
	}
	violations = append(violations, orphanLines...)

	orphanTx, err := s.scanOrphanTransactionCodes(ctx)
	if err != nil {
		return nil, err
	}
	violations = append(violations, orphanTx...)
	return violations, nil
}

func (s *IntegrityScanner) scanUnbalancedEntries(ctx context.Context) ([]Violation, error) {
	const query = `
		SELECT e.client_id, e.id::text,
		       COALESCE(SUM(l.debit), 0) - COALESCE(SUM(l.credit), 0) AS difference
		FROM journal_entries e
		JOIN journal_lines l ON l.entry_id = e.id
		WHERE e.status IN ('POSTED', 'REVERSED')
		GROUP BY e.client_id, e.id
		HAVING COALESCE(SUM(l.debit), 0) <> COALESCE(SUM(l.credit), 0)`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("jobs: scan unbalanced entries: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var clientID int64
		var entryID string
		var difference decimal.Decimal
		if err := rows.Scan(&clientID, &entryID, &difference); err != nil {
			return nil, err
		}
		out = append(out, Violation{
			ClientID: clientID,
			Kind:     "unbalanced_entry",
			Detail:   fmt.Sprintf("entry %s off by %s", entryID, difference.String()),
		})
	}
	return out, rows.Err()
}

func (s *IntegrityScanner) scanOrphanJournalCodes(ctx context.Context) ([]Violation, error) {
	const query = `
		SELECT DISTINCT e.client_id, l.gl_code
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		LEFT JOIN accounts a ON a.client_id = e.client_id AND a.gl_code = l.gl_code
		WHERE e.status IN ('POSTED', 'REVERSED') AND a.id IS NULL`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("jobs: scan orphan journal codes: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var clientID int64
		var glCode string
		if err := rows.Scan(&clientID, &glCode); err != nil {
			return nil, err
		}
		out = append(out, Violation{
			ClientID: clientID,
			Kind:     "orphan_gl_code",
			Detail:   fmt.Sprintf("journal lines reference unknown code %s", glCode),
		})
	}
	return out, rows.Err()
}

func (s *IntegrityScanner) scanOrphanTransactionCodes(ctx context.Context) ([]Violation, error) {
	const query = `
		SELECT DISTINCT t.client_id, c.code
		FROM transactions t
		CROSS JOIN LATERAL (VALUES (t.category_code), (t.account_code)) AS c(code)
		LEFT JOIN accounts a ON a.client_id = t.client_id AND a.gl_code = c.code
		WHERE a.id IS NULL`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("jobs: scan orphan transaction codes: %w", err)
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		var clientID int64
		var code string
		if err := rows.Scan(&clientID, &code); err != nil {
			return nil, err
		}
		out = append(out, Violation{
			ClientID: clientID,
			Kind:     "orphan_gl_code",
			Detail:   fmt.Sprintf("transactions reference unknown code %s", code),
		})
	}
	return out, rows.Err()
}
