package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tallybooks/tallybooks/internal/ledger/periods"
	"github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// AuditPort records transaction lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CachePort invalidates derived report caches after a mutation.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service owns create/update/delete of day-to-day transactions. Every
// mutator checks the period ledger inside the transaction that writes,
// so a rejected call leaves the stored row untouched.
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

// List returns one page of the client's transactions, newest first.
// Page and perPage fall back to the pagination defaults when zero.
func (s *Service) List(ctx context.Context, scope internalshared.Scope, page, perPage int) ([]Transaction, internalshared.Pagination, error) {
	if err := scope.Validate(); err != nil {
		return nil, internalshared.Pagination{}, err
	}
	total, err := s.repo.Count(ctx, scope.ClientID)
	if err != nil {
		return nil, internalshared.Pagination{}, err
	}
	pg := internalshared.NewPagination(page, perPage, total)
	txns, err := s.repo.List(ctx, scope.ClientID, pg.PerPage, pg.PerPage*(pg.Page-1))
	if err != nil {
		return nil, internalshared.Pagination{}, err
	}
	return txns, pg, nil
}

func (s *Service) Get(ctx context.Context, scope internalshared.Scope, id uuid.UUID) (Transaction, error) {
	if err := scope.Validate(); err != nil {
		return Transaction{}, err
	}
	return s.repo.Get(ctx, scope.ClientID, id)
}

func (s *Service) Create(ctx context.Context, scope internalshared.Scope, in Input) (Transaction, error) {
	if err := scope.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	var txn Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkDates(ctx, tx, scope.ClientID, in.Date); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, scope.ClientID, in.AccountCode, in.CategoryCode); err != nil {
			return err
		}
		var err error
		txn, err = tx.Insert(ctx, fromInput(uuid.New(), scope.ClientID, in))
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.afterMutation(ctx, scope, "transaction.create", txn.ID)
	return txn, nil
}

// Update rewrites the stored transaction. Both the stored date and the
// new date must be outside closed periods; moving a row out of a closed
// range is as forbidden as moving one in.
func (s *Service) Update(ctx context.Context, scope internalshared.Scope, id uuid.UUID, in Input) (Transaction, error) {
	if err := scope.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	var txn Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, scope.ClientID, id)
		if err != nil {
			return err
		}
		if err := checkDates(ctx, tx, scope.ClientID, current.Date, in.Date); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, scope.ClientID, in.AccountCode, in.CategoryCode); err != nil {
			return err
		}
		updated := fromInput(current.ID, scope.ClientID, in)
		txn, err = tx.Update(ctx, updated)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.afterMutation(ctx, scope, "transaction.update", txn.ID)
	return txn, nil
}

func (s *Service) Delete(ctx context.Context, scope internalshared.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, scope.ClientID, id)
		if err != nil {
			return err
		}
		if err := checkDates(ctx, tx, scope.ClientID, current.Date); err != nil {
			return err
		}
		return tx.Delete(ctx, scope.ClientID, id)
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, scope, "transaction.delete", id)
	return nil
}

func (s *Service) afterMutation(ctx context.Context, scope internalshared.Scope, action string, id uuid.UUID) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ClientID: scope.ClientID,
			ActorID:  scope.ActorID,
			Action:   action,
			Entity:   "transaction",
			EntityID: id.String(),
			At:       s.now(),
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

func checkDates(ctx context.Context, tx TxRepository, clientID int64, dates ...time.Time) error {
	closed, err := tx.LockClosedPeriods(ctx, clientID)
	if err != nil {
		return err
	}
	for _, date := range dates {
		for _, p := range closed {
			if p.Contains(date) {
				return shared.ErrPeriodClosed
			}
		}
	}
	return nil
}

func checkAccounts(ctx context.Context, tx TxRepository, clientID int64, codes ...string) error {
	unique := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		unique = append(unique, code)
	}
	resolved, err := tx.GetAccountsByCodes(ctx, clientID, unique)
	if err != nil {
		return err
	}
	for _, code := range unique {
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

func fromInput(id uuid.UUID, clientID int64, in Input) Transaction {
	status := in.Status
	if status == "" {
		status = StatusCleared
	}
	return Transaction{
		ID:           id,
		ClientID:     clientID,
		Date:         periods.Day(in.Date),
		Description:  in.Description,
		CategoryCode: in.CategoryCode,
		AccountCode:  in.AccountCode,
		Reference:    in.Reference,
		Amount:       in.Amount,
		Type:         in.Type,
		Status:       status,
	}
}
