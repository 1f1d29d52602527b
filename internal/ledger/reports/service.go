package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// AccountResolver looks up account metadata for the sign convention.
type AccountResolver interface {
	GetByCode(ctx context.Context, clientID int64, glCode string) (accounts.Account, error)
}

// Service computes balances from committed movements. It never writes;
// reads are cache-aware and identical concurrent builds are collapsed.
type Service struct {
	repo     Repository
	accounts AccountResolver
	cache    *Cache
	group    singleflight.Group
}

func NewService(repo Repository, resolver AccountResolver, cache *Cache) *Service {
	return &Service{repo: repo, accounts: resolver, cache: cache}
}

// TrialBalance sums all committed movements up to asOf, grouped by GL
// code. A movement on a code with no account is a data-integrity
// violation and is surfaced, never dropped.
func (s *Service) TrialBalance(ctx context.Context, scope internalshared.Scope, asOf time.Time) (TrialBalance, error) {
	if err := scope.Validate(); err != nil {
		return TrialBalance{}, err
	}
	loader := func(ctx context.Context) (interface{}, error) {
		return s.buildTrialBalance(ctx, scope.ClientID, asOf)
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return TrialBalance{}, err
		}
		return value.(TrialBalance), nil
	}
	keyBase := keyTrialBalance(scope.ClientID, periods.Day(asOf))
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return TrialBalance{}, err
	}
	var tb TrialBalance
	err = s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (interface{}, error) {
		value, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.buildTrialBalance(ctx, scope.ClientID, asOf)
		})
		return value, err
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return tb, nil
}

func (s *Service) buildTrialBalance(ctx context.Context, clientID int64, asOf time.Time) (TrialBalance, error) {
	rows, err := s.repo.Movements(ctx, clientID, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	balances := make([]AccountBalance, 0, len(rows))
	for _, row := range rows {
		if row.Name == nil || row.Type == nil {
			return TrialBalance{}, fmt.Errorf("%w: %s", shared.ErrOrphanGLCode, row.GLCode)
		}
		balances = append(balances, AccountBalance{
			GLCode: row.GLCode,
			Name:   *row.Name,
			Type:   *row.Type,
			Debit:  row.Debit,
			Credit: row.Credit,
		})
	}
	return BuildTrialBalance(balances), nil
}

// GLBalance reports opening, movements and closing for one account
// over [start,end]. Opening is the balance as of the day before start.
func (s *Service) GLBalance(ctx context.Context, scope internalshared.Scope, glCode string, start, end time.Time) (GLBalance, error) {
	if err := scope.Validate(); err != nil {
		return GLBalance{}, err
	}
	account, err := s.accounts.GetByCode(ctx, scope.ClientID, glCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return GLBalance{}, fmt.Errorf("%w: %s", shared.ErrOrphanGLCode, glCode)
		}
		return GLBalance{}, err
	}
	loader := func(ctx context.Context) (interface{}, error) {
		totals, err := s.repo.AccountRange(ctx, scope.ClientID, glCode, start, end)
		if err != nil {
			return GLBalance{}, err
		}
		return BuildGLBalance(glCode, account.Type, totals.PriorDebit, totals.PriorCredit, totals.PeriodDebit, totals.PeriodCredit), nil
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return GLBalance{}, err
		}
		return value.(GLBalance), nil
	}
	key, err := s.cache.BuildKey(ctx, keyGLBalance(scope.ClientID, glCode, periods.Day(start), periods.Day(end)))
	if err != nil {
		return GLBalance{}, err
	}
	var balance GLBalance
	if err := s.cache.FetchJSON(ctx, key, &balance, loader); err != nil {
		return GLBalance{}, err
	}
	return balance, nil
}

// WarmTrialBalances pre-builds today's trial balance for clients with
// recent activity. Called by the background warmup job.
func (s *Service) WarmTrialBalances(ctx context.Context, since time.Time) (int, error) {
	clients, err := s.repo.ActiveClients(ctx, since)
	if err != nil {
		return 0, err
	}
	asOf := periods.Day(time.Now())
	warmed := 0
	for _, clientID := range clients {
		if _, err := s.TrialBalance(ctx, internalshared.Scope{ClientID: clientID}, asOf); err != nil {
			return warmed, err
		}
		warmed++
	}
	return warmed, nil
}
