package ratios

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AccountBalance wraps an aggregated closing balance for one account.
type AccountBalance struct {
	Name   string
	Amount decimal.Decimal
}

// VarianceRow is one account's movement between two as-of dates.
type VarianceRow struct {
	AccountCode   string          `json:"account_code"`
	AccountName   string          `json:"account_name"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	CompareAmount decimal.Decimal `json:"compare_amount"`
	Variance      decimal.Decimal `json:"variance"`
	VariancePct   decimal.Decimal `json:"variance_pct"`
	Flagged       bool            `json:"flagged"`
}

var hundred = decimal.NewFromInt(100)

// ComputeVariance merges base & compare balances and applies threshold flags.
// Accounts present on only one side appear with a zero on the other.
func ComputeVariance(base, compare map[string]AccountBalance, thresholdAmount, thresholdPercent *decimal.Decimal) []VarianceRow {
	lookup := make(map[string]VarianceRow)
	for code, bal := range base {
		lookup[code] = VarianceRow{AccountCode: code, AccountName: bal.Name, BaseAmount: bal.Amount}
	}
	for code, bal := range compare {
		row := lookup[code]
		row.AccountCode = code
		if row.AccountName == "" {
			row.AccountName = bal.Name
		}
		row.CompareAmount = bal.Amount
		lookup[code] = row
	}
	rows := make([]VarianceRow, 0, len(lookup))
	for _, row := range lookup {
		row.Variance = row.BaseAmount.Sub(row.CompareAmount)
		if !row.CompareAmount.IsZero() {
			row.VariancePct = row.Variance.Mul(hundred).DivRound(row.CompareAmount.Abs(), 2)
		}
		row.Flagged = exceedsThreshold(row, thresholdAmount, thresholdPercent)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Variance.Abs().GreaterThan(rows[j].Variance.Abs())
	})
	return rows
}

func exceedsThreshold(row VarianceRow, amt, pct *decimal.Decimal) bool {
	if amt != nil && row.Variance.Abs().GreaterThanOrEqual(*amt) {
		return true
	}
	if pct != nil && row.VariancePct.Abs().GreaterThanOrEqual(*pct) {
		return true
	}
	return false
}
