package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType separates money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the type is known.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// TransactionStatus is workflow metadata; both statuses aggregate.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "PENDING"
	StatusCleared TransactionStatus = "CLEARED"
)

// Transaction is the simplified two-sided record used by day-to-day
// bookkeeping, equivalent to a two-line journal entry: the account side
// carries the cash movement, the category side the income or expense.
type Transaction struct {
	ID           uuid.UUID
	ClientID     int64
	Date         time.Time
	Description  string
	CategoryCode string
	AccountCode  string
	Reference    string
	Amount       decimal.Decimal
	Type         TransactionType
	Status       TransactionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
