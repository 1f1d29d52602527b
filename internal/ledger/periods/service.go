package periods

import (
	"context"
	"errors"
	"time"

	ledgershared "github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// AuditPort records period lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CachePort invalidates derived report caches after a close.
type CachePort interface {
	Bump(ctx context.Context) error
}

// CloseInput bundles parameters for closing a period.
type CloseInput struct {
	StartDate time.Time
	EndDate   time.Time
	Notes     string
}

// Validate ensures the close request is coherent.
func (in CloseInput) Validate() error {
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return &ledgershared.ValidationError{Field: "period", Reason: "start and end date required"}
	}
	if Day(in.StartDate).After(Day(in.EndDate)) {
		return &ledgershared.ValidationError{Field: "period", Reason: "start date after end date"}
	}
	return nil
}

// Service owns the accounting period state machine. Every mutator in
// the ledger consults it before writing; once a period is closed the
// transition is terminal.
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

func (s *Service) List(ctx context.Context, scope internalshared.Scope) ([]Period, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.ClientID)
}

// IsLocked reports whether any closed period of the client contains the
// date, boundaries inclusive.
func (s *Service) IsLocked(ctx context.Context, scope internalshared.Scope, date time.Time) (bool, error) {
	if err := scope.Validate(); err != nil {
		return false, err
	}
	_, err := s.repo.FindClosedContaining(ctx, scope.ClientID, date)
	if err != nil {
		if errors.Is(err, ledgershared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EnsureDateOpen is the gating call used by every ledger mutator.
func (s *Service) EnsureDateOpen(ctx context.Context, scope internalshared.Scope, date time.Time) error {
	locked, err := s.IsLocked(ctx, scope, date)
	if err != nil {
		return err
	}
	if locked {
		return ledgershared.ErrPeriodClosed
	}
	return nil
}

// Close marks [start,end] as a closed period. The call is idempotent:
// repeating it with an identical range updates notes on the stored row
// instead of erroring. Any other intersection with an existing closed
// range is rejected.
func (s *Service) Close(ctx context.Context, scope internalshared.Scope, in CloseInput) (Period, error) {
	if err := scope.Validate(); err != nil {
		return Period{}, err
	}
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.LockClientPeriods(ctx, scope.ClientID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Status != PeriodStatusClosed {
				continue
			}
			if p.SameRange(in.StartDate, in.EndDate) {
				period, err = tx.UpdateNotes(ctx, p.ID, in.Notes)
				return err
			}
			if p.Overlaps(in.StartDate, in.EndDate) {
				return ledgershared.ErrOverlappingPeriod
			}
		}
		closedAt := s.now()
		closedBy := scope.ActorID
		period, err = tx.InsertClosed(ctx, Period{
			ClientID:  scope.ClientID,
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			ClosedAt:  &closedAt,
			ClosedBy:  &closedBy,
			Notes:     in.Notes,
		})
		return err
	})
	if err != nil {
		return Period{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ClientID: scope.ClientID,
			ActorID:  scope.ActorID,
			Action:   "period.close",
			Entity:   "accounting_period",
			EntityID: Day(period.StartDate).Format("2006-01-02"),
			Meta: map[string]any{
				"period_end": Day(period.EndDate).Format("2006-01-02"),
			},
			At: s.now(),
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	return period, nil
}
