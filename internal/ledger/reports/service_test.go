package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

type mockRepo struct {
	movements      []MovementRow
	movementCalls  int
	rangeTotals    RangeTotals
	rangeCalls     int
	activeClients  []int64
}

func (m *mockRepo) Movements(ctx context.Context, clientID int64, asOf time.Time) ([]MovementRow, error) {
	m.movementCalls++
	return m.movements, nil
}

func (m *mockRepo) AccountRange(ctx context.Context, clientID int64, glCode string, start, end time.Time) (RangeTotals, error) {
	m.rangeCalls++
	return m.rangeTotals, nil
}

func (m *mockRepo) ActiveClients(ctx context.Context, since time.Time) ([]int64, error) {
	return m.activeClients, nil
}

type mockResolver struct {
	accounts map[string]accounts.Account
}

func (m *mockResolver) GetByCode(ctx context.Context, clientID int64, glCode string) (accounts.Account, error) {
	a, ok := m.accounts[glCode]
	if !ok {
		// Wrapped like a real repository would; the service must match
		// the sentinel through the wrapping.
		return accounts.Account{}, fmt.Errorf("accounts: resolve %s: %w", glCode, shared.ErrNotFound)
	}
	return a, nil
}

func str(s string) *string { return &s }

func movementFixture() []MovementRow {
	return []MovementRow{
		{GLCode: "1000", Name: str("Cash"), Type: str("ASSET"), Debit: d("200.00"), Credit: d("0")},
		{GLCode: "4000", Name: str("Sales"), Type: str("REVENUE"), Debit: d("0"), Credit: d("200.00")},
	}
}

func newTestService(t *testing.T, repo Repository, resolver AccountResolver) (*Service, *Cache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, resolver, cache)
	return svc, cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

var testScope = internalshared.Scope{ClientID: 1, ActorID: 7}

func TestTrialBalanceCaches(t *testing.T) {
	repo := &mockRepo{movements: movementFixture()}
	svc, cache, cleanup := newTestService(t, repo, &mockResolver{})
	defer cleanup()

	ctx := context.Background()
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tb, err := svc.TrialBalance(ctx, testScope, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tb.Balanced {
		t.Fatal("expected balanced trial balance")
	}
	if repo.movementCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.movementCalls)
	}

	// Second call should hit cache.
	if _, err := svc.TrialBalance(ctx, testScope, asOf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.movementCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.movementCalls)
	}

	// Bumping the cache should trigger a rebuild.
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	if _, err := svc.TrialBalance(ctx, testScope, asOf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.movementCalls != 2 {
		t.Fatalf("expected repo to refresh, calls %d", repo.movementCalls)
	}
}

func TestTrialBalanceSurfacesOrphanCodes(t *testing.T) {
	repo := &mockRepo{movements: []MovementRow{
		{GLCode: "1000", Name: str("Cash"), Type: str("ASSET"), Debit: d("200.00"), Credit: d("0")},
		{GLCode: "9999", Debit: d("0"), Credit: d("200.00")},
	}}
	svc, _, cleanup := newTestService(t, repo, &mockResolver{})
	defer cleanup()

	_, err := svc.TrialBalance(context.Background(), testScope, time.Now())
	if !errors.Is(err, shared.ErrOrphanGLCode) {
		t.Fatalf("expected orphan gl code error, got %v", err)
	}
}

func TestTrialBalanceRequiresScope(t *testing.T) {
	svc, _, cleanup := newTestService(t, &mockRepo{}, &mockResolver{})
	defer cleanup()

	_, err := svc.TrialBalance(context.Background(), internalshared.Scope{}, time.Now())
	if !errors.Is(err, internalshared.ErrClientScope) {
		t.Fatalf("expected scope error, got %v", err)
	}
}

func TestGLBalanceUsesAccountType(t *testing.T) {
	repo := &mockRepo{rangeTotals: RangeTotals{
		PriorDebit: d("0"), PriorCredit: d("500.00"),
		PeriodDebit: d("100.00"), PeriodCredit: d("300.00"),
	}}
	resolver := &mockResolver{accounts: map[string]accounts.Account{
		"4000": {GLCode: "4000", Type: accounts.AccountTypeRevenue, IsActive: true},
	}}
	svc, _, cleanup := newTestService(t, repo, resolver)
	defer cleanup()

	bal, err := svc.GLBalance(context.Background(), testScope, "4000",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bal.Opening.Equal(d("500.00")) || !bal.Closing.Equal(d("700.00")) {
		t.Fatalf("opening %s closing %s", bal.Opening, bal.Closing)
	}
}

func TestGLBalanceUnknownCode(t *testing.T) {
	svc, _, cleanup := newTestService(t, &mockRepo{}, &mockResolver{})
	defer cleanup()

	_, err := svc.GLBalance(context.Background(), testScope, "9999", time.Now(), time.Now())
	if !errors.Is(err, shared.ErrOrphanGLCode) {
		t.Fatalf("expected orphan gl code error, got %v", err)
	}
}

func TestWarmTrialBalances(t *testing.T) {
	repo := &mockRepo{movements: movementFixture(), activeClients: []int64{1, 2, 3}}
	svc, _, cleanup := newTestService(t, repo, &mockResolver{})
	defer cleanup()

	warmed, err := svc.WarmTrialBalances(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warmed != 3 {
		t.Fatalf("expected 3 clients warmed, got %d", warmed)
	}
	if repo.movementCalls != 3 {
		t.Fatalf("expected one build per client, got %d", repo.movementCalls)
	}
}
