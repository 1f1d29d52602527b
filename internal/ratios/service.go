package ratios

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/reports"
	"github.com/tallybooks/tallybooks/internal/shared"
)

// TrialBalanceSource supplies the aggregated balances the indicators
// are derived from.
type TrialBalanceSource interface {
	TrialBalance(ctx context.Context, scope shared.Scope, asOf time.Time) (reports.TrialBalance, error)
}

// Buckets maps GL code prefixes onto the balance-sheet slices the
// catalogue needs. Type alone is not enough: current assets, cash and
// inventory are all ASSET accounts.
type Buckets struct {
	Cash               []string
	Receivables        []string
	Inventory          []string
	CurrentAssets      []string
	CurrentLiabilities []string
	COGS               []string
	Interest           []string
}

// DefaultBuckets follows the conventional numbering of the seeded
// chart of accounts: 10xx cash, 11xx receivables, 12xx inventory,
// 20xx-21xx current liabilities, 50xx cost of sales, 59xx interest.
func DefaultBuckets() Buckets {
	return Buckets{
		Cash:               []string{"10"},
		Receivables:        []string{"11"},
		Inventory:          []string{"12"},
		CurrentAssets:      []string{"10", "11", "12", "13"},
		CurrentLiabilities: []string{"20", "21"},
		COGS:               []string{"50"},
		Interest:           []string{"59"},
	}
}

func matches(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Report pairs the as-of date with the computed catalogue.
type Report struct {
	AsOf   time.Time `json:"as_of"`
	Ratios []Ratio   `json:"ratios"`
}

// Comparison is the per-account variance between two as-of dates.
type Comparison struct {
	BaseAsOf    time.Time     `json:"base_as_of"`
	CompareAsOf time.Time     `json:"compare_as_of"`
	Rows        []VarianceRow `json:"rows"`
}

type Service struct {
	source  TrialBalanceSource
	buckets Buckets
}

func NewService(source TrialBalanceSource, buckets Buckets) *Service {
	return &Service{source: source, buckets: buckets}
}

// Report computes the full indicator catalogue as of the given date.
func (s *Service) Report(ctx context.Context, scope shared.Scope, asOf time.Time) (Report, error) {
	if err := scope.Validate(); err != nil {
		return Report{}, err
	}
	tb, err := s.source.TrialBalance(ctx, scope, asOf)
	if err != nil {
		return Report{}, err
	}
	return Report{AsOf: asOf, Ratios: Compute(s.inputs(tb))}, nil
}

// Compare flags per-account movement between two reporting dates.
func (s *Service) Compare(ctx context.Context, scope shared.Scope, baseAsOf, compareAsOf time.Time, thresholdAmount, thresholdPercent *decimal.Decimal) (Comparison, error) {
	if err := scope.Validate(); err != nil {
		return Comparison{}, err
	}
	baseTB, err := s.source.TrialBalance(ctx, scope, baseAsOf)
	if err != nil {
		return Comparison{}, err
	}
	compareTB, err := s.source.TrialBalance(ctx, scope, compareAsOf)
	if err != nil {
		return Comparison{}, err
	}
	rows := ComputeVariance(closings(baseTB), closings(compareTB), thresholdAmount, thresholdPercent)
	return Comparison{BaseAsOf: baseAsOf, CompareAsOf: compareAsOf, Rows: rows}, nil
}

// inputs folds trial balance rows into the aggregate slices. Closing
// balances keep each account's natural sign: debit minus credit for
// debit-normal types, credit minus debit otherwise.
func (s *Service) inputs(tb reports.TrialBalance) Inputs {
	in := Inputs{
		Cash:               decimal.Zero,
		Receivables:        decimal.Zero,
		Inventory:          decimal.Zero,
		CurrentAssets:      decimal.Zero,
		TotalAssets:        decimal.Zero,
		CurrentLiabilities: decimal.Zero,
		TotalLiabilities:   decimal.Zero,
		Equity:             decimal.Zero,
		Revenue:            decimal.Zero,
		COGS:               decimal.Zero,
		InterestExpense:    decimal.Zero,
		TotalExpenses:      decimal.Zero,
	}
	for _, grp := range tb.Groups {
		for _, row := range grp.Rows {
			closing := closingBalance(row)
			switch accounts.AccountType(row.Type) {
			case accounts.AccountTypeAsset:
				in.TotalAssets = in.TotalAssets.Add(closing)
				if matches(row.GLCode, s.buckets.CurrentAssets) {
					in.CurrentAssets = in.CurrentAssets.Add(closing)
				}
				if matches(row.GLCode, s.buckets.Cash) {
					in.Cash = in.Cash.Add(closing)
				}
				if matches(row.GLCode, s.buckets.Receivables) {
					in.Receivables = in.Receivables.Add(closing)
				}
				if matches(row.GLCode, s.buckets.Inventory) {
					in.Inventory = in.Inventory.Add(closing)
				}
			case accounts.AccountTypeLiability:
				in.TotalLiabilities = in.TotalLiabilities.Add(closing)
				if matches(row.GLCode, s.buckets.CurrentLiabilities) {
					in.CurrentLiabilities = in.CurrentLiabilities.Add(closing)
				}
			case accounts.AccountTypeEquity:
				in.Equity = in.Equity.Add(closing)
			case accounts.AccountTypeRevenue:
				in.Revenue = in.Revenue.Add(closing)
			case accounts.AccountTypeExpense:
				in.TotalExpenses = in.TotalExpenses.Add(closing)
				if matches(row.GLCode, s.buckets.COGS) {
					in.COGS = in.COGS.Add(closing)
				}
				if matches(row.GLCode, s.buckets.Interest) {
					in.InterestExpense = in.InterestExpense.Add(closing)
				}
			}
		}
	}
	return in
}

func closingBalance(row reports.TrialBalanceRow) decimal.Decimal {
	if accounts.AccountType(row.Type).DebitNormal() {
		return row.Debit.Sub(row.Credit)
	}
	return row.Credit.Sub(row.Debit)
}

func closings(tb reports.TrialBalance) map[string]AccountBalance {
	out := make(map[string]AccountBalance)
	for _, grp := range tb.Groups {
		for _, row := range grp.Rows {
			out[row.GLCode] = AccountBalance{Name: row.Name, Amount: closingBalance(row)}
		}
	}
	return out
}
