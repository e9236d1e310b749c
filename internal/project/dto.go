package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

type ProjectDTO struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Employees   []string   `json:"employees"`
}

func (dto ProjectDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", strings.TrimSpace(dto.Name)).Required().MaxLength(120)
	v.Field("description", dto.Description).MaxLength(2000)
	if err := v.Validate(); err != nil {
		return err
	}
	if dto.StartDate != nil && dto.EndDate != nil && dto.EndDate.Before(*dto.StartDate) {
		return ErrInvalidProjectDates
	}
	return nil
}

type CreateProjectExpenseDTO struct {
	Items   []expense.LineItem `json:"items"`
	Remarks string             `json:"remarks"`
}

func (dto CreateProjectExpenseDTO) Validate() error {
	if len(dto.Items) == 0 {
		return internal.NewValidationFieldError("items", "at least one item is required", internal.ErrCodeValidationFailed)
	}
	for i, item := range dto.Items {
		if item.Amount < 0 {
			return internal.NewValidationFieldError(fmt.Sprintf("items[%d].amount", i), "amount cannot be negative", internal.ErrCodeInvalidAmount)
		}
	}
	v := validation.NewValidator()
	v.Field("remarks", dto.Remarks).MaxLength(2000)
	return v.Validate()
}

type SetExpenseStatusDTO struct {
	Status  ExpenseStatus `json:"status"`
	Remarks string        `json:"remarks"`
}

type ProjectsResponse struct {
	Projects []*Project `json:"projects"`
}

type ProjectExpensesResponse struct {
	Expenses []*ProjectExpense `json:"expenses"`
}

var (
	ErrProjectNotFound             = internal.NewNotFoundError("project not found", internal.ErrCodeProjectNotFound)
	ErrProjectExpenseNotFound      = internal.NewNotFoundError("project expense not found", internal.ErrCodeExpenseNotFound)
	ErrInvalidProjectDates         = internal.NewValidationFieldError("endDate", "end date cannot be before start date", internal.ErrCodeInvalidDate)
	ErrInvalidProjectExpenseStatus = internal.NewValidationError("status must be one of Pending, Approved, Rejected", internal.ErrCodeInvalidExpenseStatus)
)
