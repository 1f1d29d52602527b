package transactions

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
)

// Input groups fields for creating or updating a transaction.
type Input struct {
	Date         time.Time
	Description  string
	CategoryCode string
	AccountCode  string
	Reference    string
	Amount       decimal.Decimal
	Type         TransactionType
	Status       TransactionStatus
}

// Validate ensures the input meets minimum criteria. A zero amount is
// meaningless for a money movement and is rejected outright.
func (in Input) Validate() error {
	if in.Date.IsZero() {
		return &shared.ValidationError{Field: "date", Reason: "required"}
	}
	if in.Amount.IsZero() {
		return &shared.ValidationError{Field: "amount", Reason: "must be nonzero"}
	}
	if !in.Type.Valid() {
		return &shared.ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if in.AccountCode == "" {
		return &shared.ValidationError{Field: "account", Reason: "required"}
	}
	if in.CategoryCode == "" {
		return &shared.ValidationError{Field: "category", Reason: "required"}
	}
	if in.Status != "" && in.Status != StatusPending && in.Status != StatusCleared {
		return &shared.ValidationError{Field: "status", Reason: "unknown status"}
	}
	return nil
}
