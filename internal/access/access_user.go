package access

import (
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	accessDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/access"
	"github.com/google/uuid"
)

// AccessRights is the coarse tier of an access record. It is independent of
// the area flags: an entry user may still hold every area.
type AccessRights string

const (
	AccessRightsAdmin AccessRights = "admin"
	AccessRightsEntry AccessRights = "entry"
)

func (r AccessRights) Valid() bool {
	return r == AccessRightsAdmin || r == AccessRightsEntry
}

// Area is one stage of the expense pipeline.
type Area string

const (
	AreaReview   Area = "review"
	AreaApprove  Area = "approve"
	AreaAccounts Area = "accounts"
)

var Areas = []Area{AreaReview, AreaApprove, AreaAccounts}

func ParseArea(s string) (Area, error) {
	for _, a := range Areas {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrInvalidArea
}

type AreaOfRights struct {
	Review   bool `json:"review"`
	Approve  bool `json:"approve"`
	Accounts bool `json:"accounts"`
}

func (a AreaOfRights) Has(area Area) bool {
	switch area {
	case AreaReview:
		return a.Review
	case AreaApprove:
		return a.Approve
	case AreaAccounts:
		return a.Accounts
	}
	return false
}

func (a *AreaOfRights) Set(area Area, enabled bool) {
	switch area {
	case AreaReview:
		a.Review = enabled
	case AreaApprove:
		a.Approve = enabled
	case AreaAccounts:
		a.Accounts = enabled
	}
}

func (a AreaOfRights) Any() bool {
	return a.Review || a.Approve || a.Accounts
}

type AccessControlUser struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Number          string       `json:"number"`
	Designation     string       `json:"designation"`
	Department      string       `json:"department"`
	EmployeeManager string       `json:"employeeManager"`
	AccessRights    AccessRights `json:"accessRights"`
	AreaOfRights    AreaOfRights `json:"areaOfRights"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func (u *AccessControlUser) Matches(email string) bool {
	return internal.NormalizeEmail(u.Email) == internal.NormalizeEmail(email)
}

func (u *AccessControlUser) IsAdmin() bool {
	return u.AccessRights == AccessRightsAdmin
}

func NewAccessControlUser(dto CreateAccessUserDTO) *AccessControlUser {
	now := time.Now()
	rights := dto.AccessRights
	if rights == "" {
		rights = AccessRightsEntry
	}
	return &AccessControlUser{
		ID:              uuid.NewString(),
		Name:            dto.Name,
		Email:           internal.NormalizeEmail(dto.Email),
		Number:          dto.Number,
		Designation:     dto.Designation,
		Department:      dto.Department,
		EmployeeManager: dto.EmployeeManager,
		AccessRights:    rights,
		AreaOfRights:    dto.AreaOfRights,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func ToDataModel(u *AccessControlUser) *accessDatamodel.AccessControlUser {
	return &accessDatamodel.AccessControlUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Number:          u.Number,
		Designation:     u.Designation,
		Department:      u.Department,
		EmployeeManager: u.EmployeeManager,
		AccessRights:    string(u.AccessRights),
		AreaReview:      u.AreaOfRights.Review,
		AreaApprove:     u.AreaOfRights.Approve,
		AreaAccounts:    u.AreaOfRights.Accounts,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func FromDataModel(u *accessDatamodel.AccessControlUser) *AccessControlUser {
	return &AccessControlUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Number:          u.Number,
		Designation:     u.Designation,
		Department:      u.Department,
		EmployeeManager: u.EmployeeManager,
		AccessRights:    AccessRights(u.AccessRights),
		AreaOfRights: AreaOfRights{
			Review:   u.AreaReview,
			Approve:  u.AreaApprove,
			Accounts: u.AreaAccounts,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*accessDatamodel.AccessControlUser) []AccessControlUser {
	result := make([]AccessControlUser, len(users))
	for i, u := range users {
		result[i] = *FromDataModel(u)
	}
	return result
}
