package journals

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/tallybooks/internal/ledger/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDraftInputValidate(t *testing.T) {
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	valid := DraftInput{
		Date: date,
		Lines: []LineInput{
			{GLCode: "1000", Debit: d("100.00")},
			{GLCode: "4000", Credit: d("100.00")},
		},
	}
	require.NoError(t, valid.Validate())

	oneLine := DraftInput{Date: date, Lines: []LineInput{{GLCode: "1000", Debit: d("100.00")}}}
	require.ErrorIs(t, oneLine.Validate(), shared.ErrTooFewLines)

	missingDate := DraftInput{Lines: valid.Lines}
	var vErr *shared.ValidationError
	require.ErrorAs(t, missingDate.Validate(), &vErr)
	require.Equal(t, "date", vErr.Field)

	negative := DraftInput{Date: date, Lines: []LineInput{
		{GLCode: "1000", Debit: d("-5")},
		{GLCode: "4000", Credit: d("-5")},
	}}
	require.ErrorIs(t, negative.Validate(), shared.ErrValidation)

	bothSides := DraftInput{Date: date, Lines: []LineInput{
		{GLCode: "1000", Debit: d("5"), Credit: d("5")},
		{GLCode: "4000", Credit: d("5")},
	}}
	require.ErrorIs(t, bothSides.Validate(), shared.ErrValidation)

	neitherSide := DraftInput{Date: date, Lines: []LineInput{
		{GLCode: "1000"},
		{GLCode: "4000", Credit: d("5")},
	}}
	require.ErrorIs(t, neitherSide.Validate(), shared.ErrValidation)
}

func TestValidateBalanceExact(t *testing.T) {
	balanced := []LineInput{
		{GLCode: "1000", Debit: d("0.10")},
		{GLCode: "1100", Debit: d("0.20")},
		{GLCode: "4000", Credit: d("0.30")},
	}
	require.NoError(t, ValidateBalance(balanced))
}

func TestValidateBalanceRejectsAnyDifference(t *testing.T) {
	cases := []struct {
		name       string
		lines      []LineInput
		difference string
	}{
		{
			name: "off by one cent",
			lines: []LineInput{
				{GLCode: "1000", Debit: d("100.00")},
				{GLCode: "4000", Credit: d("99.99")},
			},
			difference: "0.01",
		},
		{
			name: "off by one unit",
			lines: []LineInput{
				{GLCode: "1000", Debit: d("100")},
				{GLCode: "4000", Credit: d("99")},
			},
			difference: "1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBalance(tc.lines)
			require.ErrorIs(t, err, shared.ErrUnbalanced)
			var uErr *shared.UnbalancedError
			require.True(t, errors.As(err, &uErr))
			require.True(t, uErr.Difference.Equal(d(tc.difference)), "difference %s", uErr.Difference)
		})
	}
}
