package postgres

import (
	"context"
	"errors"

	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements expense.Repository on GORM. Updates are
// conditional on the version column.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.Repository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	return r.db.WithContext(ctx).Create(expense.ToDataModel(e)).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense.FromDataModel(&row), nil
}

// List returns expenses newest first.
func (r *ExpenseRepository) List(ctx context.Context, q expense.ListQuery) ([]*expense.Expense, error) {
	var rows []*expenseDatamodel.Expense
	tx := r.db.WithContext(ctx).Order("created_at DESC")
	if q.SubmitterEmail != "" {
		tx = tx.Where("LOWER(user_email) = LOWER(?)", q.SubmitterEmail)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit).Offset(q.Offset)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return expense.FromDataModelSlice(rows), nil
}

// Update writes every mutable column when the stored version still equals
// expectedVersion, and advances e.Version on success.
func (r *ExpenseRepository) Update(ctx context.Context, e *expense.Expense, expectedVersion int64) error {
	next := *e
	next.Version = expectedVersion + 1
	row := expense.ToDataModel(&next)

	result := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND version = ?", e.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&expenseDatamodel.Expense{}).Where("id = ?", e.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return expense.ErrExpenseNotFound
		}
		return expense.ErrVersionConflict
	}

	e.Version = next.Version
	return nil
}
