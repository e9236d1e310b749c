package postgres

import (
	"context"
	"errors"

	projectDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/project"
	"github.com/frahmantamala/expense-tracker/internal/project"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) project.RepositoryAPI {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) ListProjects(ctx context.Context) ([]*projectDatamodel.Project, error) {
	var projects []*projectDatamodel.Project
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*projectDatamodel.Project, error) {
	var p projectDatamodel.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) CreateProject(ctx context.Context, p *projectDatamodel.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProjectRepository) UpdateProject(ctx context.Context, p *projectDatamodel.Project) error {
	result := r.db.WithContext(ctx).Model(&projectDatamodel.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"start_date":  p.StartDate,
			"end_date":    p.EndDate,
			"employees":   p.Employees,
			"updated_at":  p.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return project.ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes the project and its expenses in one transaction.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&projectDatamodel.ProjectExpense{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&projectDatamodel.Project{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return project.ErrProjectNotFound
		}
		return nil
	})
}

func (r *ProjectRepository) ListExpenses(ctx context.Context, projectID string) ([]*projectDatamodel.ProjectExpense, error) {
	var expenses []*projectDatamodel.ProjectExpense
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (r *ProjectRepository) GetExpense(ctx context.Context, projectID, id string) (*projectDatamodel.ProjectExpense, error) {
	var e projectDatamodel.ProjectExpense
	err := r.db.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrProjectExpenseNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ProjectRepository) CreateExpense(ctx context.Context, e *projectDatamodel.ProjectExpense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ProjectRepository) UpdateExpense(ctx context.Context, e *projectDatamodel.ProjectExpense) error {
	result := r.db.WithContext(ctx).Model(&projectDatamodel.ProjectExpense{}).
		Where("project_id = ? AND id = ?", e.ProjectID, e.ID).
		Updates(map[string]interface{}{
			"status":     e.Status,
			"remarks":    e.Remarks,
			"items":      e.Items,
			"total":      e.Total,
			"updated_at": e.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return project.ErrProjectExpenseNotFound
	}
	return nil
}

func (r *ProjectRepository) DeleteExpense(ctx context.Context, projectID, id string) error {
	result := r.db.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, id).Delete(&projectDatamodel.ProjectExpense{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return project.ErrProjectExpenseNotFound
	}
	return nil
}
