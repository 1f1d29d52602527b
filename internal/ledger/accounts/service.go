package accounts

import (
	"context"
	"strings"
	"time"

	ledgershared "github.com/tallybooks/tallybooks/internal/ledger/shared"
	internalshared "github.com/tallybooks/tallybooks/internal/shared"
)

// AuditPort records administrative changes to the chart of accounts.
type AuditPort interface {
	Record(ctx context.Context, log internalshared.AuditLog) error
}

// CreateInput groups fields required to create an account.
type CreateInput struct {
	GLCode     string
	Name       string
	Type       AccountType
	ParentCode *string
}

// Validate ensures the input meets minimum criteria.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.GLCode) == "" {
		return &ledgershared.ValidationError{Field: "gl_code", Reason: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return &ledgershared.ValidationError{Field: "name", Reason: "required"}
	}
	if !in.Type.Valid() {
		return &ledgershared.ValidationError{Field: "type", Reason: "unknown account type"}
	}
	return nil
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, scope internalshared.Scope) ([]Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scope.ClientID)
}

// Resolve returns the account for a GL code within the client scope.
func (s *Service) Resolve(ctx context.Context, scope internalshared.Scope, glCode string) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	return s.repo.GetByCode(ctx, scope.ClientID, glCode)
}

// Create inserts a new account after resolving its parent.
func (s *Service) Create(ctx context.Context, scope internalshared.Scope, in CreateInput) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if in.ParentCode != nil {
		if _, err := s.repo.GetByCode(ctx, scope.ClientID, *in.ParentCode); err != nil {
			if err == ledgershared.ErrNotFound {
				return Account{}, ledgershared.ErrUnknownParent
			}
			return Account{}, err
		}
	}
	account, err := s.repo.Insert(ctx, Account{
		ClientID:   scope.ClientID,
		GLCode:     in.GLCode,
		Name:       in.Name,
		Type:       in.Type,
		ParentCode: in.ParentCode,
	})
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ClientID: scope.ClientID,
			ActorID:  scope.ActorID,
			Action:   "account.create",
			Entity:   "account",
			EntityID: account.GLCode,
			Meta:     map[string]any{"name": account.Name, "type": string(account.Type)},
			At:       s.now(),
		})
	}
	return account, nil
}

// Deactivate soft-disables the account. The record is never removed;
// historical reads keep working, only new postings are rejected.
func (s *Service) Deactivate(ctx context.Context, scope internalshared.Scope, glCode string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, scope.ClientID, glCode, false); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalshared.AuditLog{
			ClientID: scope.ClientID,
			ActorID:  scope.ActorID,
			Action:   "account.deactivate",
			Entity:   "account",
			EntityID: glCode,
			At:       s.now(),
		})
	}
	return nil
}
