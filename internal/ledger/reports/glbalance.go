package reports

import (
	"github.com/shopspring/decimal"
	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
)

// GLBalance describes an account's movement over a reporting period.
// Opening is the closing balance as of the day before the period
// starts; Closing folds the in-period movements onto it following the
// account's normal balance side.
type GLBalance struct {
	GLCode         string          `json:"gl_code"`
	Opening        decimal.Decimal `json:"opening"`
	DebitMovement  decimal.Decimal `json:"debit_movement"`
	CreditMovement decimal.Decimal `json:"credit_movement"`
	Closing        decimal.Decimal `json:"closing"`
}

// BuildGLBalance folds prior and in-period movements into a balance.
// Asset and Expense accounts increase on debit; Liability, Equity and
// Revenue accounts increase on credit.
func BuildGLBalance(glCode string, accountType accounts.AccountType, priorDebit, priorCredit, periodDebit, periodCredit decimal.Decimal) GLBalance {
	opening := net(accountType, priorDebit, priorCredit)
	return GLBalance{
		GLCode:         glCode,
		Opening:        opening,
		DebitMovement:  periodDebit,
		CreditMovement: periodCredit,
		Closing:        opening.Add(net(accountType, periodDebit, periodCredit)),
	}
}

func net(accountType accounts.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if accountType.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}
