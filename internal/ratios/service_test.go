package ratios

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/tallybooks/internal/ledger/reports"
	"github.com/tallybooks/tallybooks/internal/shared"
)

type stubSource struct {
	byDate map[string]reports.TrialBalance
	err    error
	calls  int
}

func (s *stubSource) TrialBalance(_ context.Context, _ shared.Scope, asOf time.Time) (reports.TrialBalance, error) {
	s.calls++
	if s.err != nil {
		return reports.TrialBalance{}, s.err
	}
	return s.byDate[asOf.Format("2006-01-02")], nil
}

func tbFrom(rows []reports.AccountBalance) reports.TrialBalance {
	return reports.BuildTrialBalance(rows)
}

func TestReportFoldsBuckets(t *testing.T) {
	asOf := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	tb := tbFrom([]reports.AccountBalance{
		{GLCode: "1000", Name: "Cash", Type: "ASSET", Debit: dec("60000"), Credit: dec("10000")},
		{GLCode: "1100", Name: "Receivables", Type: "ASSET", Debit: dec("25000"), Credit: dec("5000")},
		{GLCode: "1200", Name: "Inventory", Type: "ASSET", Debit: dec("10000"), Credit: dec("0")},
		{GLCode: "1500", Name: "Equipment", Type: "ASSET", Debit: dec("110000"), Credit: dec("0")},
		{GLCode: "2000", Name: "Payables", Type: "LIABILITY", Debit: dec("5000"), Credit: dec("45000")},
		{GLCode: "2500", Name: "Mortgage", Type: "LIABILITY", Debit: dec("0"), Credit: dec("20000")},
		{GLCode: "3000", Name: "Owner Equity", Type: "EQUITY", Debit: dec("0"), Credit: dec("140000")},
		{GLCode: "4000", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("365000")},
		{GLCode: "5000", Name: "Cost of Sales", Type: "EXPENSE", Debit: dec("120000"), Credit: dec("0")},
		{GLCode: "5900", Name: "Interest Expense", Type: "EXPENSE", Debit: dec("5000"), Credit: dec("0")},
		{GLCode: "6000", Name: "Salaries", Type: "EXPENSE", Debit: dec("175000"), Credit: dec("0")},
	})
	source := &stubSource{byDate: map[string]reports.TrialBalance{"2024-03-31": tb}}
	svc := NewService(source, DefaultBuckets())

	report, err := svc.Report(context.Background(), shared.Scope{ClientID: 1, ActorID: 7}, asOf)
	require.NoError(t, err)
	require.Equal(t, asOf, report.AsOf)
	require.Equal(t, 1, source.calls)

	byKey := make(map[string]Ratio, len(report.Ratios))
	for _, r := range report.Ratios {
		byKey[r.Key] = r
	}

	// Cash 50000, receivables 20000, inventory 10000 give current
	// assets 80000 against current liabilities 40000.
	current := byKey["current_ratio"]
	require.True(t, current.Defined)
	require.True(t, current.Value.Equal(dec("2")), "current ratio %s", current.Value)

	cash := byKey["cash_ratio"]
	require.True(t, cash.Value.Equal(dec("1.25")), "cash ratio %s", cash.Value)

	// The 1500 equipment account counts toward total assets only.
	roa := byKey["return_on_assets"]
	require.True(t, roa.Value.Equal(dec("0.3421")), "roa %s", roa.Value)

	dte := byKey["debt_to_equity"]
	require.True(t, dte.Value.Equal(dec("0.4286")), "debt to equity %s", dte.Value)

	// COGS and interest fold from the 50xx / 59xx prefixes.
	gross := byKey["gross_margin"]
	require.True(t, gross.Value.Equal(dec("0.6712")), "gross margin %s", gross.Value)
	cover := byKey["interest_cover"]
	require.True(t, cover.Value.Equal(dec("14")), "interest cover %s", cover.Value)
}

func TestReportRequiresScope(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, DefaultBuckets())

	_, err := svc.Report(context.Background(), shared.Scope{}, time.Now())
	require.ErrorIs(t, err, shared.ErrClientScope)
	require.Zero(t, source.calls)
}

func TestReportPropagatesSourceError(t *testing.T) {
	boom := errors.New("movements unavailable")
	svc := NewService(&stubSource{err: boom}, DefaultBuckets())

	_, err := svc.Report(context.Background(), shared.Scope{ClientID: 1}, time.Now())
	require.ErrorIs(t, err, boom)
}

func TestCompareProducesVarianceRows(t *testing.T) {
	base := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	prior := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	source := &stubSource{byDate: map[string]reports.TrialBalance{
		"2024-03-31": tbFrom([]reports.AccountBalance{
			{GLCode: "1000", Name: "Cash", Type: "ASSET", Debit: dec("600"), Credit: dec("100")},
			{GLCode: "2000", Name: "Payables", Type: "LIABILITY", Debit: dec("0"), Credit: dec("200")},
		}),
		"2024-02-29": tbFrom([]reports.AccountBalance{
			{GLCode: "1000", Name: "Cash", Type: "ASSET", Debit: dec("500"), Credit: dec("100")},
		}),
	}}
	svc := NewService(source, DefaultBuckets())

	cmp, err := svc.Compare(context.Background(), shared.Scope{ClientID: 1}, base, prior, nil, nil)
	require.NoError(t, err)
	require.Equal(t, base, cmp.BaseAsOf)
	require.Equal(t, prior, cmp.CompareAsOf)
	require.Equal(t, 2, source.calls)
	require.Len(t, cmp.Rows, 2)

	// The payables account exists only on the base side; its closing
	// balance uses the credit-normal sign convention.
	require.Equal(t, "2000", cmp.Rows[0].AccountCode)
	require.True(t, cmp.Rows[0].Variance.Equal(dec("200")))
	require.Equal(t, "1000", cmp.Rows[1].AccountCode)
	require.True(t, cmp.Rows[1].Variance.Equal(dec("100")))
	require.True(t, cmp.Rows[1].VariancePct.Equal(dec("25")))
}

func TestCompareThresholdFlagging(t *testing.T) {
	base := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	prior := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	source := &stubSource{byDate: map[string]reports.TrialBalance{
		"2024-03-31": tbFrom([]reports.AccountBalance{
			{GLCode: "1000", Name: "Cash", Type: "ASSET", Debit: dec("1500"), Credit: dec("0")},
			{GLCode: "1100", Name: "Receivables", Type: "ASSET", Debit: dec("1010"), Credit: dec("0")},
		}),
		"2024-02-29": tbFrom([]reports.AccountBalance{
			{GLCode: "1000", Name: "Cash", Type: "ASSET", Debit: dec("1000"), Credit: dec("0")},
			{GLCode: "1100", Name: "Receivables", Type: "ASSET", Debit: dec("1000"), Credit: dec("0")},
		}),
	}}
	svc := NewService(source, DefaultBuckets())

	threshold := decimal.NewFromInt(100)
	cmp, err := svc.Compare(context.Background(), shared.Scope{ClientID: 1}, base, prior, &threshold, nil)
	require.NoError(t, err)

	for _, row := range cmp.Rows {
		switch row.AccountCode {
		case "1000":
			require.True(t, row.Flagged)
		case "1100":
			require.False(t, row.Flagged)
		}
	}
}
