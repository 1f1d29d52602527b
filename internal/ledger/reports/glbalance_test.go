package reports

import (
	"testing"

	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
)

func TestBuildGLBalanceDebitNormal(t *testing.T) {
	bal := BuildGLBalance("1000", accounts.AccountTypeAsset,
		d("500.00"), d("100.00"), // prior
		d("250.00"), d("50.00")) // period

	if !bal.Opening.Equal(d("400.00")) {
		t.Fatalf("opening = %s", bal.Opening)
	}
	if !bal.Closing.Equal(d("600.00")) {
		t.Fatalf("closing = %s", bal.Closing)
	}
	if !bal.DebitMovement.Equal(d("250.00")) || !bal.CreditMovement.Equal(d("50.00")) {
		t.Fatalf("movements %s / %s", bal.DebitMovement, bal.CreditMovement)
	}
}

func TestBuildGLBalanceCreditNormal(t *testing.T) {
	bal := BuildGLBalance("4000", accounts.AccountTypeRevenue,
		d("0"), d("1000.00"),
		d("100.00"), d("400.00"))

	if !bal.Opening.Equal(d("1000.00")) {
		t.Fatalf("opening = %s", bal.Opening)
	}
	if !bal.Closing.Equal(d("1300.00")) {
		t.Fatalf("closing = %s", bal.Closing)
	}
}
