package shared

import "fmt"

// LedgerLockKey names the per-client ledger critical section. Repositories
// hash it into a Postgres transaction-scoped advisory lock so period
// closes and posts for the same client serialize even before the client
// has any period rows.
func LedgerLockKey(clientID int64) string {
	return fmt.Sprintf("ledger:client:%d:lock", clientID)
}
