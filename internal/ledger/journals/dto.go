package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
)

// LineInput describes a journal line for a draft or posting request.
type LineInput struct {
	GLCode      string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// DraftInput groups fields required to create or update a draft entry.
type DraftInput struct {
	Date        time.Time
	Reference   string
	Description string
	Lines       []LineInput
}

// Validate checks structural invariants that hold even for drafts:
// at least two lines, no negative side, one side per line.
func (in DraftInput) Validate() error {
	if in.Date.IsZero() {
		return &shared.ValidationError{Field: "date", Reason: "required"}
	}
	if len(in.Lines) < 2 {
		return shared.ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.GLCode == "" {
			return &shared.ValidationError{Field: fmt.Sprintf("lines[%d].gl_code", idx), Reason: "required"}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return &shared.ValidationError{Field: fmt.Sprintf("lines[%d]", idx), Reason: "negative amount"}
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return &shared.ValidationError{Field: fmt.Sprintf("lines[%d]", idx), Reason: "exactly one of debit/credit must be nonzero"}
		}
	}
	return nil
}

// ValidateBalance checks the posting invariant: the exact decimal sum
// of debits equals the exact sum of credits. No epsilon tolerance.
func ValidateBalance(lines []LineInput) error {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return &shared.UnbalancedError{Difference: debit.Sub(credit)}
	}
	return nil
}
