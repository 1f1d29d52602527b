package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

type memoryJournalRepo struct {
	entries  map[uuid.UUID]JournalEntry
	lines    map[uuid.UUID][]JournalLine
	closed   []periods.Period
	accounts map[string]accounts.Account
	nextID   int64
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		entries:  make(map[uuid.UUID]JournalEntry),
		lines:    make(map[uuid.UUID][]JournalLine),
		accounts: make(map[string]accounts.Account),
	}
}

func (r *memoryJournalRepo) addAccount(code string, accType accounts.AccountType, active bool) {
	r.nextID++
	r.accounts[code] = accounts.Account{ID: r.nextID, ClientID: 1, GLCode: code, Name: code, Type: accType, IsActive: active}
}

func (r *memoryJournalRepo) closePeriod(start, end time.Time) {
	r.nextID++
	r.closed = append(r.closed, periods.Period{
		ID: r.nextID, ClientID: 1, StartDate: start, EndDate: end, Status: periods.PeriodStatusClosed,
	})
}

func (r *memoryJournalRepo) List(ctx context.Context, clientID int64) ([]JournalEntry, error) {
	out := make([]JournalEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryJournalRepo) Get(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok || e.ClientID != clientID {
		return JournalEntry{}, shared.ErrNotFound
	}
	e.Lines = append([]JournalLine(nil), r.lines[entryID]...)
	return e, nil
}

func (r *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryJournalTx{repo: r})
}

type memoryJournalTx struct {
	repo *memoryJournalRepo
}

func (tx *memoryJournalTx) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryJournalTx) InsertLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	for i := range lines {
		tx.repo.nextID++
		lines[i].ID = tx.repo.nextID
		lines[i].EntryID = entryID
	}
	tx.repo.lines[entryID] = append(tx.repo.lines[entryID], lines...)
	return nil
}

func (tx *memoryJournalTx) GetEntryForUpdate(ctx context.Context, clientID int64, entryID uuid.UUID) (JournalEntry, error) {
	return tx.repo.Get(ctx, clientID, entryID)
}

func (tx *memoryJournalTx) ReplaceLines(ctx context.Context, entryID uuid.UUID, lines []JournalLine) error {
	tx.repo.lines[entryID] = nil
	return tx.InsertLines(ctx, entryID, lines)
}

func (tx *memoryJournalTx) UpdateHeader(ctx context.Context, entry JournalEntry) error {
	current, ok := tx.repo.entries[entry.ID]
	if !ok {
		return shared.ErrNotFound
	}
	current.Date = entry.Date
	current.Reference = entry.Reference
	current.Description = entry.Description
	tx.repo.entries[entry.ID] = current
	return nil
}

func (tx *memoryJournalTx) SetStatus(ctx context.Context, entryID uuid.UUID, status EntryStatus, postedAt *time.Time, postedBy *int64) error {
	current, ok := tx.repo.entries[entryID]
	if !ok {
		return shared.ErrNotFound
	}
	current.Status = status
	if postedAt != nil {
		current.PostedAt = postedAt
	}
	if postedBy != nil {
		current.PostedBy = postedBy
	}
	tx.repo.entries[entryID] = current
	return nil
}

func (tx *memoryJournalTx) DeleteEntry(ctx context.Context, clientID int64, entryID uuid.UUID) error {
	if _, ok := tx.repo.entries[entryID]; !ok {
		return shared.ErrNotFound
	}
	delete(tx.repo.entries, entryID)
	delete(tx.repo.lines, entryID)
	return nil
}

func (tx *memoryJournalTx) LockClosedPeriods(ctx context.Context, clientID int64) ([]periods.Period, error) {
	return append([]periods.Period(nil), tx.repo.closed...), nil
}

func (tx *memoryJournalTx) GetAccountsByCodes(ctx context.Context, clientID int64, codes []string) (map[string]accounts.Account, error) {
	out := make(map[string]accounts.Account)
	for _, code := range codes {
		if acc, ok := tx.repo.accounts[code]; ok {
			out[code] = acc
		}
	}
	return out, nil
}

type recordingAudit struct {
	logs []internalshared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log internalshared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingCache struct {
	bumps int
}

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

var (
	testScope = internalshared.Scope{ClientID: 1, ActorID: 7}
	testNow   = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
)

func newTestService(repo *memoryJournalRepo) (*Service, *recordingAudit, *countingCache) {
	audit := &recordingAudit{}
	cache := &countingCache{}
	svc := NewService(repo, audit, cache)
	svc.WithNow(func() time.Time { return testNow })
	return svc, audit, cache
}

func balancedDraft(date time.Time) DraftInput {
	return DraftInput{
		Date:      date,
		Reference: "INV-42",
		Lines: []LineInput{
			{GLCode: "1000", Debit: d("150.00")},
			{GLCode: "4000", Credit: d("150.00")},
		},
	}
}

func TestCreateDraftRejectsClosedPeriod(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.closePeriod(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	svc, _, _ := newTestService(repo)

	_, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	require.Empty(t, repo.entries)
}

func TestPostBalancedEntry(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, audit, cache := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, entry.Status)

	posted, err := svc.Post(context.Background(), testScope, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.Equal(t, testNow, *posted.PostedAt)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, int64(7), *posted.PostedBy)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "journal.post", audit.logs[0].Action)
	require.Equal(t, 1, cache.bumps)
}

func TestPostUnbalancedEntryRejected(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, cache := newTestService(repo)

	draft := balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	draft.Lines[1].Credit = d("149.00")
	entry, err := svc.CreateDraft(context.Background(), testScope, draft)
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.ErrorIs(t, err, shared.ErrUnbalanced)

	stored, err := svc.Get(context.Background(), testScope, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusDraft, stored.Status)
	require.Zero(t, cache.bumps)
}

func TestPostRejectsOrphanAndInactiveAccounts(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.ErrorIs(t, err, shared.ErrOrphanGLCode)

	repo.addAccount("4000", accounts.AccountTypeRevenue, false)
	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.ErrorIs(t, err, shared.ErrAccountInactive)
}

func TestPostIntoClosedPeriodRejected(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	// The period closes after the draft exists but before posting.
	repo.closePeriod(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))

	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestPostRequiresDraftStatus(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReverseMirrorsLinesAndNetsToZero(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, audit, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	posted, err := svc.Post(context.Background(), testScope, entry.ID)
	require.NoError(t, err)

	reversal, err := svc.Reverse(context.Background(), testScope, posted.ID, "")
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, reversal.Status)
	require.NotNil(t, reversal.ReversalOf)
	require.Equal(t, posted.ID, *reversal.ReversalOf)
	require.Equal(t, periods.Day(testNow), reversal.Date)

	// Combined, original and reversal cancel per account.
	perCode := map[string]decimal.Decimal{}
	for _, line := range append(posted.Lines, reversal.Lines...) {
		perCode[line.GLCode] = perCode[line.GLCode].Add(line.Debit).Sub(line.Credit)
	}
	for code, net := range perCode {
		require.True(t, net.IsZero(), "account %s nets to %s", code, net)
	}

	original, err := svc.Get(context.Background(), testScope, posted.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusReversed, original.Status)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "journal.reverse", audit.logs[1].Action)
}

func TestReverseRequiresPostedStatus(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), testScope, entry.ID, "")
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReverseBlockedWhenTodayIsClosed(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	posted, err := svc.Post(context.Background(), testScope, entry.ID)
	require.NoError(t, err)

	repo.closePeriod(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))

	_, err = svc.Reverse(context.Background(), testScope, posted.ID, "")
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestUpdateAndDeleteDraftOnly(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	entry, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	updated := balancedDraft(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	updated.Description = "corrected"
	got, err := svc.UpdateDraft(context.Background(), testScope, entry.ID, updated)
	require.NoError(t, err)
	require.Equal(t, "corrected", got.Description)
	require.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), got.Date)

	_, err = svc.Post(context.Background(), testScope, entry.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(context.Background(), testScope, entry.ID, updated)
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	require.ErrorIs(t, svc.DeleteDraft(context.Background(), testScope, entry.ID), shared.ErrInvalidStatus)
}

func TestDraftInClosedPeriodStaysEditable(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.addAccount("1000", accounts.AccountTypeAsset, true)
	repo.addAccount("4000", accounts.AccountTypeRevenue, true)
	svc, _, _ := newTestService(repo)

	redate, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	doomed, err := svc.CreateDraft(context.Background(), testScope, balancedDraft(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	repo.closePeriod(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))

	// Redating inside the closed period is still refused.
	_, err = svc.UpdateDraft(context.Background(), testScope, redate.ID, balancedDraft(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	// Moving the draft out to an open day works even though its stored
	// date was closed after creation.
	got, err := svc.UpdateDraft(context.Background(), testScope, redate.ID, balancedDraft(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), got.Date)

	// And a stranded draft can always be deleted; it never hit a balance.
	require.NoError(t, svc.DeleteDraft(context.Background(), testScope, doomed.ID))
	_, err = svc.Get(context.Background(), testScope, doomed.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestScopeRequired(t *testing.T) {
	svc, _, _ := newTestService(newMemoryJournalRepo())
	_, err := svc.List(context.Background(), internalshared.Scope{})
	require.ErrorIs(t, err, internalshared.ErrClientScope)
}
