package ratios

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeVarianceMergesBothSides(t *testing.T) {
	base := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("500")},
		"1100": {Name: "Receivables", Amount: dec("200")},
	}
	compare := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("400")},
		"2000": {Name: "Payables", Amount: dec("150")},
	}

	rows := ComputeVariance(base, compare, nil, nil)
	require.Len(t, rows, 3)

	byCode := make(map[string]VarianceRow, len(rows))
	for _, row := range rows {
		byCode[row.AccountCode] = row
	}

	cash := byCode["1000"]
	require.True(t, cash.Variance.Equal(dec("100")), "variance %s", cash.Variance)
	require.True(t, cash.VariancePct.Equal(dec("25")), "pct %s", cash.VariancePct)

	// Base-only account: compare side zero, pct stays zero.
	recv := byCode["1100"]
	require.Equal(t, "Receivables", recv.AccountName)
	require.True(t, recv.CompareAmount.IsZero())
	require.True(t, recv.Variance.Equal(dec("200")))
	require.True(t, recv.VariancePct.IsZero())

	// Compare-only account keeps the compare side's name.
	pay := byCode["2000"]
	require.Equal(t, "Payables", pay.AccountName)
	require.True(t, pay.BaseAmount.IsZero())
	require.True(t, pay.Variance.Equal(dec("-150")))
}

func TestComputeVarianceSortsByAbsoluteVariance(t *testing.T) {
	base := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("10")},
		"2000": {Name: "Payables", Amount: dec("-900")},
		"3000": {Name: "Equity", Amount: dec("50")},
	}
	compare := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("5")},
		"2000": {Name: "Payables", Amount: dec("100")},
		"3000": {Name: "Equity", Amount: dec("40")},
	}

	rows := ComputeVariance(base, compare, nil, nil)
	require.Len(t, rows, 3)
	require.Equal(t, "2000", rows[0].AccountCode)
	require.Equal(t, "3000", rows[1].AccountCode)
	require.Equal(t, "1000", rows[2].AccountCode)
}

func TestComputeVarianceThresholds(t *testing.T) {
	base := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("1100")},
		"1100": {Name: "Receivables", Amount: dec("109")},
	}
	compare := map[string]AccountBalance{
		"1000": {Name: "Cash", Amount: dec("1000")},
		"1100": {Name: "Receivables", Amount: dec("100")},
	}

	amt := dec("100")
	rows := ComputeVariance(base, compare, &amt, nil)
	for _, row := range rows {
		switch row.AccountCode {
		case "1000":
			require.True(t, row.Flagged, "variance of exactly 100 crosses the amount threshold")
		case "1100":
			require.False(t, row.Flagged)
		}
	}

	pct := dec("9")
	rows = ComputeVariance(base, compare, nil, &pct)
	for _, row := range rows {
		require.True(t, row.Flagged, "%s moved by at least 9%%", row.AccountCode)
	}

	rows = ComputeVariance(base, compare, nil, nil)
	for _, row := range rows {
		require.False(t, row.Flagged, "no thresholds means nothing is flagged")
	}
}

func TestComputeVariancePctRounding(t *testing.T) {
	base := map[string]AccountBalance{"1000": {Name: "Cash", Amount: dec("1")}}
	compare := map[string]AccountBalance{"1000": {Name: "Cash", Amount: dec("3")}}

	rows := ComputeVariance(base, compare, nil, nil)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Variance.Equal(dec("-2")))
	require.True(t, rows[0].VariancePct.Equal(decimal.RequireFromString("-66.67")), "pct %s", rows[0].VariancePct)
}
