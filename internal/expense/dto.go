package expense

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
	"github.com/frahmantamala/expense-tracker/internal/location"
)

// SubmitExpenseDTO is the client payload for a new expense. Total is not
// accepted; it is computed from the breakdown.
type SubmitExpenseDTO struct {
	Date        time.Time          `json:"date"`
	Purpose     string             `json:"purpose"`
	Notes       string             `json:"notes"`
	Department  string             `json:"department,omitempty"`
	Breakdown   Breakdown          `json:"breakdown"`
	Location    *location.Location `json:"location,omitempty"`
	Attachments Attachments        `json:"attachments"`
}

func (dto SubmitExpenseDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("purpose", strings.TrimSpace(dto.Purpose)).Required().MaxLength(200)
	v.Field("notes", dto.Notes).MaxLength(2000)
	v.Field("date", dto.Date).NotFuture()
	if err := v.Validate(); err != nil {
		return err
	}
	return dto.Breakdown.Validate()
}

// VersionDTO carries the optional optimistic-concurrency guard every
// transition accepts.
type VersionDTO struct {
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type SetStatusDTO struct {
	Status string `json:"status"`
	VersionDTO
}

type PaymentDTO struct {
	Amount Amount `json:"amount"`
	VersionDTO
}

type RemarksDTO struct {
	Remarks string `json:"remarks"`
	VersionDTO
}

// ListQuery narrows a repository listing. An empty SubmitterEmail lists every
// submitter; a zero Limit lists everything.
type ListQuery struct {
	SubmitterEmail string
	Limit          int
	Offset         int
}

type ExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

type CategoriesResponse struct {
	Categories map[Category][]string `json:"categories"`
}

var (
	ErrExpenseNotFound      = internal.NewNotFoundError("expense not found", internal.ErrCodeExpenseNotFound)
	ErrInvalidExpenseStatus = internal.NewConflictError("transition not allowed in the current status", internal.ErrCodeInvalidExpenseStatus)
	ErrInvalidStatusValue   = internal.NewValidationError("status must be one of Under Review, Approve, Reject", internal.ErrCodeInvalidExpenseStatus)
	ErrExpenseLocked        = internal.NewConflictError("expense is closed and can no longer be changed", internal.ErrCodeExpenseLocked)
	ErrVersionConflict      = internal.NewConflictError("expense was modified by someone else, reload and retry", internal.ErrCodeVersionConflict)
	ErrOverpayment          = internal.NewValidationError("paid amount cannot exceed the expense total", internal.ErrCodeOverpayment)
	ErrNegativePayment      = internal.NewValidationError("paid amount cannot be negative", internal.ErrCodeInvalidAmount)
	ErrEmptyRemarks         = internal.NewValidationError("remarks cannot be empty", internal.ErrCodeEmptyRemarks)
)
