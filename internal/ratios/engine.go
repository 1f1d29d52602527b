package ratios

import "github.com/shopspring/decimal"

// cutoffs classifies a value into a band. For higher-is-better ratios
// the thresholds are minimums; when LowerIsBetter is set they are
// maximums and the comparison flips.
type cutoffs struct {
	Excellent     decimal.Decimal
	Good          decimal.Decimal
	Fair          decimal.Decimal
	LowerIsBetter bool
}

func (c cutoffs) classify(v decimal.Decimal) Band {
	if c.LowerIsBetter {
		switch {
		case v.LessThanOrEqual(c.Excellent):
			return BandExcellent
		case v.LessThanOrEqual(c.Good):
			return BandGood
		case v.LessThanOrEqual(c.Fair):
			return BandFair
		default:
			return BandPoor
		}
	}
	switch {
	case v.GreaterThanOrEqual(c.Excellent):
		return BandExcellent
	case v.GreaterThanOrEqual(c.Good):
		return BandGood
	case v.GreaterThanOrEqual(c.Fair):
		return BandFair
	default:
		return BandPoor
	}
}

type definition struct {
	Key         string
	Label       string
	Numerator   func(Inputs) decimal.Decimal
	Denominator func(Inputs) decimal.Decimal
	Bands       cutoffs
}

var daysPerYear = decimal.NewFromInt(365)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// catalogue is the fixed set of indicators, in report order.
var catalogue = []definition{
	{
		Key:         "current_ratio",
		Label:       "Current Ratio",
		Numerator:   func(in Inputs) decimal.Decimal { return in.CurrentAssets },
		Denominator: func(in Inputs) decimal.Decimal { return in.CurrentLiabilities },
		Bands:       cutoffs{Excellent: dec("2"), Good: dec("1.5"), Fair: dec("1")},
	},
	{
		Key:         "quick_ratio",
		Label:       "Quick Ratio",
		Numerator:   func(in Inputs) decimal.Decimal { return in.CurrentAssets.Sub(in.Inventory) },
		Denominator: func(in Inputs) decimal.Decimal { return in.CurrentLiabilities },
		Bands:       cutoffs{Excellent: dec("1.5"), Good: dec("1"), Fair: dec("0.7")},
	},
	{
		Key:         "cash_ratio",
		Label:       "Cash Ratio",
		Numerator:   func(in Inputs) decimal.Decimal { return in.Cash },
		Denominator: func(in Inputs) decimal.Decimal { return in.CurrentLiabilities },
		Bands:       cutoffs{Excellent: dec("1"), Good: dec("0.5"), Fair: dec("0.2")},
	},
	{
		Key:         "net_margin",
		Label:       "Net Profit Margin",
		Numerator:   func(in Inputs) decimal.Decimal { return in.NetIncome() },
		Denominator: func(in Inputs) decimal.Decimal { return in.Revenue },
		Bands:       cutoffs{Excellent: dec("0.2"), Good: dec("0.1"), Fair: dec("0.05")},
	},
	{
		Key:         "gross_margin",
		Label:       "Gross Profit Margin",
		Numerator:   func(in Inputs) decimal.Decimal { return in.Revenue.Sub(in.COGS) },
		Denominator: func(in Inputs) decimal.Decimal { return in.Revenue },
		Bands:       cutoffs{Excellent: dec("0.5"), Good: dec("0.35"), Fair: dec("0.2")},
	},
	{
		Key:         "return_on_assets",
		Label:       "Return on Assets",
		Numerator:   func(in Inputs) decimal.Decimal { return in.NetIncome() },
		Denominator: func(in Inputs) decimal.Decimal { return in.TotalAssets },
		Bands:       cutoffs{Excellent: dec("0.1"), Good: dec("0.05"), Fair: dec("0.02")},
	},
	{
		Key:         "return_on_equity",
		Label:       "Return on Equity",
		Numerator:   func(in Inputs) decimal.Decimal { return in.NetIncome() },
		Denominator: func(in Inputs) decimal.Decimal { return in.Equity },
		Bands:       cutoffs{Excellent: dec("0.2"), Good: dec("0.15"), Fair: dec("0.05")},
	},
	{
		Key:         "debt_to_equity",
		Label:       "Debt to Equity",
		Numerator:   func(in Inputs) decimal.Decimal { return in.TotalLiabilities },
		Denominator: func(in Inputs) decimal.Decimal { return in.Equity },
		Bands:       cutoffs{Excellent: dec("0.5"), Good: dec("1"), Fair: dec("2"), LowerIsBetter: true},
	},
	{
		Key:         "inventory_turnover",
		Label:       "Inventory Turnover",
		Numerator:   func(in Inputs) decimal.Decimal { return in.COGS },
		Denominator: func(in Inputs) decimal.Decimal { return in.Inventory },
		Bands:       cutoffs{Excellent: dec("8"), Good: dec("6"), Fair: dec("4")},
	},
	{
		Key:         "asset_turnover",
		Label:       "Asset Turnover",
		Numerator:   func(in Inputs) decimal.Decimal { return in.Revenue },
		Denominator: func(in Inputs) decimal.Decimal { return in.TotalAssets },
		Bands:       cutoffs{Excellent: dec("2"), Good: dec("1"), Fair: dec("0.5")},
	},
	{
		Key:         "days_sales_outstanding",
		Label:       "Days Sales Outstanding",
		Numerator:   func(in Inputs) decimal.Decimal { return in.Receivables.Mul(daysPerYear) },
		Denominator: func(in Inputs) decimal.Decimal { return in.Revenue },
		Bands:       cutoffs{Excellent: dec("30"), Good: dec("45"), Fair: dec("60"), LowerIsBetter: true},
	},
	{
		Key:         "interest_cover",
		Label:       "Interest Coverage",
		Numerator:   func(in Inputs) decimal.Decimal { return in.OperatingIncome() },
		Denominator: func(in Inputs) decimal.Decimal { return in.InterestExpense },
		Bands:       cutoffs{Excellent: dec("8"), Good: dec("4"), Fair: dec("1.5")},
	},
}

const ratioScale = 4

// Compute evaluates the full catalogue against in. Ratios whose
// denominator is zero come back with Defined=false and BandUndefined
// rather than being dropped, so the report shape is stable.
func Compute(in Inputs) []Ratio {
	out := make([]Ratio, 0, len(catalogue))
	for _, def := range catalogue {
		r := Ratio{Key: def.Key, Label: def.Label}
		den := def.Denominator(in)
		if den.IsZero() {
			r.Band = BandUndefined
			out = append(out, r)
			continue
		}
		r.Value = def.Numerator(in).DivRound(den, ratioScale)
		r.Defined = true
		r.Band = def.Bands.classify(r.Value)
		out = append(out, r)
	}
	return out
}
