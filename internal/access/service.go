package access

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/cache"
	accessDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/access"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*accessDatamodel.AccessControlUser, error)
	GetByID(ctx context.Context, id string) (*accessDatamodel.AccessControlUser, error)
	GetByEmail(ctx context.Context, email string) (*accessDatamodel.AccessControlUser, error)
	Create(ctx context.Context, user *accessDatamodel.AccessControlUser) error
	Update(ctx context.Context, user *accessDatamodel.AccessControlUser) error
	Delete(ctx context.Context, id string) error
}

// Checker is the read side other packages depend on.
type Checker interface {
	HasAdminAccess(ctx context.Context, email string) (bool, error)
	HasAreaAccess(ctx context.Context, email string, area Area) (bool, error)
	Rights(ctx context.Context, email string) (Rights, error)
}

const snapshotKey = "all"

// Service owns the access-control records and answers permission checks
// against a cached snapshot of them. Writes drop the snapshot.
type Service struct {
	repo     RepositoryAPI
	resolver *Resolver
	snapshot *cache.LRU[[]AccessControlUser]
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, resolver *Resolver, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		snapshot: cache.NewLRU[[]AccessControlUser](1, cacheTTL),
		logger:   logger,
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func (s *Service) users(ctx context.Context) ([]AccessControlUser, error) {
	if users, ok := s.snapshot.Get(snapshotKey); ok {
		return users, nil
	}
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to load access records", "error", err)
		return nil, err
	}
	users := FromDataModelSlice(rows)
	s.snapshot.Set(snapshotKey, users)
	return users, nil
}

func (s *Service) invalidate() {
	s.snapshot.Delete(snapshotKey)
}

func (s *Service) HasAdminAccess(ctx context.Context, email string) (bool, error) {
	if s.resolver.IsDefaultAdmin(email) {
		return true, nil
	}
	users, err := s.users(ctx)
	if err != nil {
		return false, err
	}
	return s.resolver.HasAdminAccess(email, users), nil
}

func (s *Service) HasAreaAccess(ctx context.Context, email string, area Area) (bool, error) {
	if s.resolver.IsDefaultAdmin(email) {
		return true, nil
	}
	users, err := s.users(ctx)
	if err != nil {
		return false, err
	}
	return s.resolver.HasAreaAccess(email, area, users), nil
}

// HasAnyAccess reports whether email holds admin rights or at least one area.
func (s *Service) HasAnyAccess(ctx context.Context, email string) (bool, error) {
	rights, err := s.Rights(ctx, email)
	if err != nil {
		return false, err
	}
	return rights.CanSeeAll(), nil
}

func (s *Service) Rights(ctx context.Context, email string) (Rights, error) {
	if s.resolver.IsDefaultAdmin(email) {
		return s.resolver.Rights(email, nil), nil
	}
	users, err := s.users(ctx)
	if err != nil {
		return Rights{}, err
	}
	return s.resolver.Rights(email, users), nil
}

// Contacts maps each recorded e-mail to its phone number, for exports.
func (s *Service) Contacts(ctx context.Context) (map[string]string, error) {
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	contacts := make(map[string]string, len(users))
	for _, u := range users {
		if u.Number != "" {
			contacts[internal.NormalizeEmail(u.Email)] = u.Number
		}
	}
	return contacts, nil
}

func (s *Service) requireAdmin(ctx context.Context, actor *internal.Actor) error {
	ok, err := s.HasAdminAccess(ctx, actor.Email)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("access management denied", "email", actor.NormalizedEmail())
		return internal.ErrForbidden
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor *internal.Actor) ([]AccessControlUser, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	// the cached snapshot backs every permission check
	return slices.Clone(users), nil
}

func (s *Service) Get(ctx context.Context, actor *internal.Actor, id string) (*AccessControlUser, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, actor *internal.Actor, dto CreateAccessUserDTO) (*AccessControlUser, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, internal.NormalizeEmail(dto.Email))
	if err != nil && !internal.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	user := NewAccessControlUser(dto)
	if err := s.repo.Create(ctx, ToDataModel(user)); err != nil {
		s.logger.Error("failed to create access record", "error", err, "email", user.Email)
		return nil, err
	}
	s.invalidate()

	s.logger.Info("access record created", "id", user.ID, "email", user.Email, "by", actor.NormalizedEmail())
	return user, nil
}

func (s *Service) Update(ctx context.Context, actor *internal.Actor, id string, dto UpdateAccessUserDTO) (*AccessControlUser, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, id, func(u *AccessControlUser) {
		u.Name = dto.Name
		u.Number = dto.Number
		u.Designation = dto.Designation
		u.Department = dto.Department
		u.EmployeeManager = dto.EmployeeManager
		u.AccessRights = dto.AccessRights
		u.AreaOfRights = dto.AreaOfRights
	})
}

func (s *Service) SetAccessRights(ctx context.Context, actor *internal.Actor, id string, dto SetAccessRightsDTO) (*AccessControlUser, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, id, func(u *AccessControlUser) {
		u.AccessRights = dto.AccessRights
	})
}

func (s *Service) SetArea(ctx context.Context, actor *internal.Actor, id string, dto SetAreaDTO) (*AccessControlUser, error) {
	area, err := ParseArea(dto.Area)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, id, func(u *AccessControlUser) {
		u.AreaOfRights.Set(area, dto.Enabled)
	})
}

func (s *Service) modify(ctx context.Context, actor *internal.Actor, id string, apply func(*AccessControlUser)) (*AccessControlUser, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user := FromDataModel(row)
	apply(user)
	user.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, ToDataModel(user)); err != nil {
		s.logger.Error("failed to update access record", "error", err, "id", id)
		return nil, err
	}
	s.invalidate()

	s.logger.Info("access record updated", "id", id, "by", actor.NormalizedEmail())
	return user, nil
}

func (s *Service) Delete(ctx context.Context, actor *internal.Actor, id string) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()

	s.logger.Info("access record deleted", "id", id, "by", actor.NormalizedEmail())
	return nil
}
