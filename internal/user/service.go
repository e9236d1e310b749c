package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
}

type RightsLookup interface {
	Rights(ctx context.Context, email string) (access.Rights, error)
}

type Service struct {
	repo   Repository
	rights RightsLookup
	logger *slog.Logger
}

func NewService(repo Repository, rights RightsLookup, logger *slog.Logger) *Service {
	return &Service{repo: repo, rights: rights, logger: logger}
}

// Me describes the actor. Identity-provider users without a local row are
// still described from their token.
func (s *Service) Me(ctx context.Context, actor *internal.Actor) (*Profile, error) {
	profile := &Profile{
		ID:         actor.UID,
		Email:      actor.NormalizedEmail(),
		Name:       actor.Name,
		Department: actor.Department,
	}

	row, err := s.repo.GetByEmail(ctx, actor.NormalizedEmail())
	switch {
	case err == nil:
		u := FromDataModel(row)
		profile.ID = u.ID
		profile.Name = u.Name
		profile.Department = u.Department
		profile.Registered = true
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Error("failed to load user", "error", err, "email", actor.NormalizedEmail())
		return nil, internal.NewInternalError("failed to load user", err)
	}

	rights, err := s.rights.Rights(ctx, actor.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve access rights", err)
	}
	profile.Rights = rights
	return profile, nil
}

// Register stores a local login account.
func (s *Service) Register(ctx context.Context, u *User) error {
	if err := s.repo.Create(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", u.Email)
		return err
	}
	return nil
}
