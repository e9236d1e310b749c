package project

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	projectDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/project"
)

type RepositoryAPI interface {
	ListProjects(ctx context.Context) ([]*projectDatamodel.Project, error)
	GetProject(ctx context.Context, id string) (*projectDatamodel.Project, error)
	CreateProject(ctx context.Context, p *projectDatamodel.Project) error
	UpdateProject(ctx context.Context, p *projectDatamodel.Project) error
	DeleteProject(ctx context.Context, id string) error

	ListExpenses(ctx context.Context, projectID string) ([]*projectDatamodel.ProjectExpense, error)
	GetExpense(ctx context.Context, projectID, id string) (*projectDatamodel.ProjectExpense, error)
	CreateExpense(ctx context.Context, e *projectDatamodel.ProjectExpense) error
	UpdateExpense(ctx context.Context, e *projectDatamodel.ProjectExpense) error
	DeleteExpense(ctx context.Context, projectID, id string) error
}

type AdminChecker interface {
	HasAdminAccess(ctx context.Context, email string) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	admins AdminChecker
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, admins AdminChecker, logger *slog.Logger) *Service {
	return &Service{repo: repo, admins: admins, logger: logger, now: time.Now}
}

func (s *Service) isAdmin(ctx context.Context, actor *internal.Actor) (bool, error) {
	ok, err := s.admins.HasAdminAccess(ctx, actor.Email)
	if err != nil {
		return false, internal.NewInternalError("failed to check access rights", err)
	}
	return ok, nil
}

func (s *Service) requireAdmin(ctx context.Context, actor *internal.Actor) error {
	ok, err := s.isAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("project management denied", "email", actor.NormalizedEmail())
		return internal.ErrForbidden
	}
	return nil
}

// load returns the project and whether the actor administers projects.
// Non-members who are not admins get ErrForbidden.
func (s *Service) load(ctx context.Context, actor *internal.Actor, id string) (*Project, bool, error) {
	row, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, false, err
	}
	p := FromDataModel(row)

	admin, err := s.isAdmin(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	if !admin && !p.HasMember(actor.UID) {
		return nil, false, internal.ErrForbidden
	}
	return p, admin, nil
}

// List returns every project to admins and the actor's own projects to
// everyone else.
func (s *Service) List(ctx context.Context, actor *internal.Actor) ([]*Project, error) {
	rows, err := s.repo.ListProjects(ctx)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		return nil, err
	}
	projects := FromDataModelSlice(rows)

	admin, err := s.isAdmin(ctx, actor)
	if err != nil {
		return nil, err
	}
	if admin {
		return projects, nil
	}

	mine := []*Project{}
	for _, p := range projects {
		if p.HasMember(actor.UID) {
			mine = append(mine, p)
		}
	}
	return mine, nil
}

func (s *Service) Get(ctx context.Context, actor *internal.Actor, id string) (*Project, error) {
	p, _, err := s.load(ctx, actor, id)
	return p, err
}

func (s *Service) Create(ctx context.Context, actor *internal.Actor, dto ProjectDTO) (*Project, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p := NewProject(dto, actor.NormalizedEmail(), s.now())
	if err := s.repo.CreateProject(ctx, ToDataModel(p)); err != nil {
		s.logger.Error("failed to create project", "error", err)
		return nil, err
	}

	s.logger.Info("project created", "project_id", p.ID, "by", actor.NormalizedEmail())
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor *internal.Actor, id string, dto ProjectDTO) (*Project, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	p := FromDataModel(row)
	p.Apply(dto, s.now())

	if err := s.repo.UpdateProject(ctx, ToDataModel(p)); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", id)
		return nil, err
	}
	return p, nil
}

// Delete removes the project together with its expenses.
func (s *Service) Delete(ctx context.Context, actor *internal.Actor, id string) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id, "by", actor.NormalizedEmail())
	return nil
}

// ListExpenses shows admins every expense of the project and members only
// their own.
func (s *Service) ListExpenses(ctx context.Context, actor *internal.Actor, projectID string) ([]*ProjectExpense, error) {
	_, admin, err := s.load(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListExpenses(ctx, projectID)
	if err != nil {
		s.logger.Error("failed to list project expenses", "error", err, "project_id", projectID)
		return nil, err
	}
	expenses := ExpenseFromDataModelSlice(rows)
	if admin {
		return expenses, nil
	}

	mine := []*ProjectExpense{}
	for _, e := range expenses {
		if strings.EqualFold(e.Submitter.Email, actor.NormalizedEmail()) {
			mine = append(mine, e)
		}
	}
	return mine, nil
}

func (s *Service) CreateExpense(ctx context.Context, actor *internal.Actor, projectID string, dto CreateProjectExpenseDTO) (*ProjectExpense, error) {
	if _, _, err := s.load(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	e := NewProjectExpense(projectID, actor, dto, s.now())
	if err := s.repo.CreateExpense(ctx, ExpenseToDataModel(e)); err != nil {
		s.logger.Error("failed to create project expense", "error", err, "project_id", projectID)
		return nil, err
	}

	s.logger.Info("project expense created", "project_id", projectID, "expense_id", e.ID, "total", e.Total.String())
	return e, nil
}

func (s *Service) SetExpenseStatus(ctx context.Context, actor *internal.Actor, projectID, id string, dto SetExpenseStatusDTO) (*ProjectExpense, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if !dto.Status.Valid() {
		return nil, ErrInvalidProjectExpenseStatus
	}

	row, err := s.repo.GetExpense(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	e := ExpenseFromDataModel(row)
	e.Status = dto.Status
	if remarks := strings.TrimSpace(dto.Remarks); remarks != "" {
		e.Remarks = remarks
	}
	e.UpdatedAt = s.now()

	if err := s.repo.UpdateExpense(ctx, ExpenseToDataModel(e)); err != nil {
		s.logger.Error("failed to update project expense", "error", err, "expense_id", id)
		return nil, err
	}

	s.logger.Info("project expense status changed", "expense_id", id, "status", e.Status, "by", actor.NormalizedEmail())
	return e, nil
}

// DeleteExpense is open to admins, and to the submitter while the expense
// is still pending.
func (s *Service) DeleteExpense(ctx context.Context, actor *internal.Actor, projectID, id string) error {
	row, err := s.repo.GetExpense(ctx, projectID, id)
	if err != nil {
		return err
	}
	e := ExpenseFromDataModel(row)

	admin, err := s.isAdmin(ctx, actor)
	if err != nil {
		return err
	}
	ownPending := strings.EqualFold(e.Submitter.Email, actor.NormalizedEmail()) && e.Status == ExpenseStatusPending
	if !admin && !ownPending {
		return internal.ErrForbidden
	}

	return s.repo.DeleteExpense(ctx, projectID, id)
}
