package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-tracker/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	return r.find(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *Repository) GetCredentialsByID(ctx context.Context, userID string) (*auth.Credentials, error) {
	return r.find(ctx, "id = ?", userID)
}

func (r *Repository) find(ctx context.Context, query string, arg interface{}) (*auth.Credentials, error) {
	var u userDatamodel.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Department:   u.Department,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}, nil
}
