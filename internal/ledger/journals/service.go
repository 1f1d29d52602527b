package journals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// AuditPort records journal lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CachePort invalidates derived report caches after a posting.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service validates and commits journal entries. Posting is
// all-or-nothing: every check runs inside the transaction that writes
// the entry, so a failed check leaves no partial state.
type Service struct {
	repo  Repository
	audit AuditPort
	cache CachePort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort, cache CachePort) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, scope internalshared.Scope) ([]JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.ClientID)
}

func (s *Service) Get(ctx context.Context, scope internalshared.Scope, entryID uuid.UUID) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	return s.repo.Get(ctx, scope.ClientID, entryID)
}

// CreateDraft stores a new draft entry. Drafts dated inside a closed
// period are rejected up front; they could never be posted.
func (s *Service) CreateDraft(ctx context.Context, scope internalshared.Scope, in DraftInput) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		closed, err := tx.LockClosedPeriods(ctx, scope.ClientID)
		if err != nil {
			return err
		}
		if dateLocked(closed, in.Date) {
			return shared.ErrPeriodClosed
		}
		entry, err = tx.InsertEntry(ctx, JournalEntry{
			ID:          uuid.New(),
			ClientID:    scope.ClientID,
			Date:        periods.Day(in.Date),
			Reference:   in.Reference,
			Description: in.Description,
			Status:      EntryStatusDraft,
		})
		if err != nil {
			return err
		}
		lines := toLines(entry.ID, in.Lines)
		if err := tx.InsertLines(ctx, entry.ID, lines); err != nil {
			return err
		}
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// UpdateDraft replaces the header and lines of a draft entry. Only the
// new date is gated: a draft whose stored date fell inside a
// later-closed period can still be redated to an open day, since drafts
// never contribute to balances.
func (s *Service) UpdateDraft(ctx context.Context, scope internalshared.Scope, entryID uuid.UUID, in DraftInput) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, scope.ClientID, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		closed, err := tx.LockClosedPeriods(ctx, scope.ClientID)
		if err != nil {
			return err
		}
		if dateLocked(closed, in.Date) {
			return shared.ErrPeriodClosed
		}
		current.Date = periods.Day(in.Date)
		current.Reference = in.Reference
		current.Description = in.Description
		if err := tx.UpdateHeader(ctx, current); err != nil {
			return err
		}
		lines := toLines(current.ID, in.Lines)
		if err := tx.ReplaceLines(ctx, current.ID, lines); err != nil {
			return err
		}
		current.Lines = lines
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// DeleteDraft removes a draft entry. Posted entries are never deleted.
// Closed periods do not block the delete: a draft has no effect on any
// balance, so it stays destroyable even when its date was closed later.
func (s *Service) DeleteDraft(ctx context.Context, scope internalshared.Scope, entryID uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, scope.ClientID, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		return tx.DeleteEntry(ctx, scope.ClientID, entryID)
	})
}

// Post transitions a draft to posted. Requires a balanced entry, every
// line resolving to an active account, and a date outside any closed
// period. The period rows stay locked until the commit, so a
// concurrent close either sees this entry or rejects it first.
func (s *Service) Post(ctx context.Context, scope internalshared.Scope, entryID uuid.UUID) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, scope.ClientID, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return shared.ErrInvalidStatus
		}
		if err := s.checkPostable(ctx, tx, scope.ClientID, current.Date, current.Lines); err != nil {
			return err
		}
		postedAt := s.now()
		actor := scope.ActorID
		if err := tx.SetStatus(ctx, current.ID, EntryStatusPosted, &postedAt, &actor); err != nil {
			return err
		}
		current.Status = EntryStatusPosted
		current.PostedAt = &postedAt
		current.PostedBy = &actor
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.afterPosting(ctx, scope, "journal.post", entry.ID, map[string]any{"reference": entry.Reference})
	return entry, nil
}

// Reverse creates a compensating entry with every line's debit and
// credit swapped, dated at reversal time, and posts it through the same
// guards as Post. The original entry only changes status.
func (s *Service) Reverse(ctx context.Context, scope internalshared.Scope, entryID uuid.UUID, memo string) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, scope.ClientID, entryID)
		if err != nil {
			return err
		}
		if original.Status != EntryStatusPosted {
			return shared.ErrInvalidStatus
		}
		postedAt := s.now()
		reversalDate := periods.Day(postedAt)
		mirrored := mirrorLines(original.Lines)
		if err := s.checkPostable(ctx, tx, scope.ClientID, reversalDate, mirrored); err != nil {
			return err
		}
		actor := scope.ActorID
		originalID := original.ID
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			ID:          uuid.New(),
			ClientID:    scope.ClientID,
			Date:        reversalDate,
			Reference:   original.Reference,
			Description: reversalMemo(memo, original.Reference),
			Status:      EntryStatusPosted,
			PostedAt:    &postedAt,
			PostedBy:    &actor,
			ReversalOf:  &originalID,
		})
		if err != nil {
			return err
		}
		lines := retarget(inserted.ID, mirrored)
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, original.ID, EntryStatusReversed, nil, nil); err != nil {
			return err
		}
		inserted.Lines = lines
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.afterPosting(ctx, scope, "journal.reverse", entryID, map[string]any{"reversal_id": reversal.ID.String()})
	return reversal, nil
}

// checkPostable runs the in-transaction posting guards: balance,
// period closure, account resolution.
func (s *Service) checkPostable(ctx context.Context, tx TxRepository, clientID int64, date time.Time, lines []JournalLine) error {
	if len(lines) < 2 {
		return shared.ErrTooFewLines
	}
	if err := ValidateBalance(toLineInputs(lines)); err != nil {
		return err
	}
	closed, err := tx.LockClosedPeriods(ctx, clientID)
	if err != nil {
		return err
	}
	if dateLocked(closed, date) {
		return shared.ErrPeriodClosed
	}
	codes := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.GLCode]; ok {
			continue
		}
		seen[line.GLCode] = struct{}{}
		codes = append(codes, line.GLCode)
	}
	resolved, err := tx.GetAccountsByCodes(ctx, clientID, codes)
	if err != nil {
		return err
	}
	for _, code := range codes {
		account, ok := resolved[code]
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrOrphanGLCode, code)
		}
		if !account.IsActive {
			return fmt.Errorf("%w: %s", shared.ErrAccountInactive, code)
		}
	}
	return nil
}

func (s *Service) afterPosting(ctx context.Context, scope internalshared.Scope, action string, entryID uuid.UUID, meta map[string]any) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ClientID: scope.ClientID,
			ActorID:  scope.ActorID,
			Action:   action,
			Entity:   "journal_entry",
			EntityID: entryID.String(),
			Meta:     meta,
			At:       s.now(),
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

func dateLocked(closed []periods.Period, date time.Time) bool {
	for _, p := range closed {
		if p.Contains(date) {
			return true
		}
	}
	return false
}

func toLines(entryID uuid.UUID, inputs []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, JournalLine{
			EntryID:     entryID,
			GLCode:      in.GLCode,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
		})
	}
	return out
}

func toLineInputs(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{GLCode: line.GLCode, Debit: line.Debit, Credit: line.Credit, Description: line.Description})
	}
	return out
}

func mirrorLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			GLCode:      line.GLCode,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func retarget(entryID uuid.UUID, lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		line.EntryID = entryID
		out = append(out, line)
	}
	return out
}

func reversalMemo(memo, reference string) string {
	if memo != "" {
		return memo
	}
	if reference != "" {
		return fmt.Sprintf("Reversal of %s", reference)
	}
	return "Reversal"
}
