package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-tracker/internal/access"
	accessDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/access"
	"gorm.io/gorm"
)

type AccessRepository struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) access.RepositoryAPI {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) GetAll(ctx context.Context) ([]*accessDatamodel.AccessControlUser, error) {
	var users []*accessDatamodel.AccessControlUser
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

func (r *AccessRepository) GetByID(ctx context.Context, id string) (*accessDatamodel.AccessControlUser, error) {
	var user accessDatamodel.AccessControlUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, access.ErrAccessUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *AccessRepository) GetByEmail(ctx context.Context, email string) (*accessDatamodel.AccessControlUser, error) {
	var user accessDatamodel.AccessControlUser
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, access.ErrAccessUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *AccessRepository) Create(ctx context.Context, user *accessDatamodel.AccessControlUser) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return access.ErrDuplicateEmail
	}
	return err
}

func (r *AccessRepository) Update(ctx context.Context, user *accessDatamodel.AccessControlUser) error {
	result := r.db.WithContext(ctx).Model(&accessDatamodel.AccessControlUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":             user.Name,
			"number":           user.Number,
			"designation":      user.Designation,
			"department":       user.Department,
			"employee_manager": user.EmployeeManager,
			"access_rights":    user.AccessRights,
			"area_review":      user.AreaReview,
			"area_approve":     user.AreaApprove,
			"area_accounts":    user.AreaAccounts,
			"updated_at":       user.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return access.ErrAccessUserNotFound
	}
	return nil
}

func (r *AccessRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&accessDatamodel.AccessControlUser{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return access.ErrAccessUserNotFound
	}
	return nil
}
