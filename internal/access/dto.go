package access

import (
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/common/validation"
)

type CreateAccessUserDTO struct {
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Number          string       `json:"number"`
	Designation     string       `json:"designation"`
	Department      string       `json:"department"`
	EmployeeManager string       `json:"employeeManager"`
	AccessRights    AccessRights `json:"accessRights"`
	AreaOfRights    AreaOfRights `json:"areaOfRights"`
}

func (dto CreateAccessUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", strings.TrimSpace(dto.Name)).Required().MaxLength(120)
	v.Field("email", dto.Email).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}
	if dto.AccessRights != "" && !dto.AccessRights.Valid() {
		return ErrInvalidAccessRights
	}
	return nil
}

// UpdateAccessUserDTO replaces the editable profile fields of a record.
type UpdateAccessUserDTO struct {
	Name            string       `json:"name"`
	Number          string       `json:"number"`
	Designation     string       `json:"designation"`
	Department      string       `json:"department"`
	EmployeeManager string       `json:"employeeManager"`
	AccessRights    AccessRights `json:"accessRights"`
	AreaOfRights    AreaOfRights `json:"areaOfRights"`
}

func (dto UpdateAccessUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", strings.TrimSpace(dto.Name)).Required().MaxLength(120)
	if err := v.Validate(); err != nil {
		return err
	}
	if !dto.AccessRights.Valid() {
		return ErrInvalidAccessRights
	}
	return nil
}

type SetAccessRightsDTO struct {
	AccessRights AccessRights `json:"accessRights"`
}

func (dto SetAccessRightsDTO) Validate() error {
	if !dto.AccessRights.Valid() {
		return ErrInvalidAccessRights
	}
	return nil
}

type SetAreaDTO struct {
	Area    string `json:"area"`
	Enabled bool   `json:"enabled"`
}

var (
	ErrAccessUserNotFound  = internal.NewNotFoundError("access user not found", internal.ErrCodeAccessUserNotFound)
	ErrDuplicateEmail      = internal.NewConflictError("an access record already exists for this email", internal.ErrCodeDuplicateEmail)
	ErrInvalidAccessRights = internal.NewValidationError("accessRights must be 'admin' or 'entry'", internal.ErrCodeValidationFailed)
	ErrInvalidArea         = internal.NewValidationError("area must be one of review, approve, accounts", internal.ErrCodeInvalidArea)
)
