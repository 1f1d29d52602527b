package ratios

import "github.com/shopspring/decimal"

// Band is the qualitative classification of a ratio value.
type Band string

const (
	BandExcellent Band = "EXCELLENT"
	BandGood      Band = "GOOD"
	BandFair      Band = "FAIR"
	BandPoor      Band = "POOR"
	// BandUndefined marks a ratio whose denominator was zero.
	BandUndefined Band = "UNDEFINED"
)

// Ratio is one computed indicator. Defined is false when the
// denominator was zero; Value is meaningless in that case.
type Ratio struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Value   decimal.Decimal `json:"value"`
	Defined bool            `json:"defined"`
	Band    Band            `json:"band"`
}

// Inputs are the aggregated balance fields the ratio catalogue draws
// from. All values are closing balances or period totals; the engine
// itself is a pure function of this struct.
type Inputs struct {
	Cash               decimal.Decimal
	Receivables        decimal.Decimal
	Inventory          decimal.Decimal
	CurrentAssets      decimal.Decimal
	TotalAssets        decimal.Decimal
	CurrentLiabilities decimal.Decimal
	TotalLiabilities   decimal.Decimal
	Equity             decimal.Decimal
	Revenue            decimal.Decimal
	COGS               decimal.Decimal
	InterestExpense    decimal.Decimal
	TotalExpenses      decimal.Decimal
}

// NetIncome derives the bottom line from revenue and total expenses.
func (in Inputs) NetIncome() decimal.Decimal {
	return in.Revenue.Sub(in.TotalExpenses)
}

// OperatingIncome approximates earnings before interest.
func (in Inputs) OperatingIncome() decimal.Decimal {
	return in.NetIncome().Add(in.InterestExpense)
}
