package access

import "time"

type AccessControlUser struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	Name            string    `gorm:"column:name;not null"`
	Email           string    `gorm:"column:email;uniqueIndex;not null"`
	Number          string    `gorm:"column:number"`
	Designation     string    `gorm:"column:designation"`
	Department      string    `gorm:"column:department"`
	EmployeeManager string    `gorm:"column:employee_manager"`
	AccessRights    string    `gorm:"column:access_rights;not null;default:entry"`
	AreaReview      bool      `gorm:"column:area_review;default:false"`
	AreaApprove     bool      `gorm:"column:area_approve;default:false"`
	AreaAccounts    bool      `gorm:"column:area_accounts;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (AccessControlUser) TableName() string {
	return "access_control_users"
}
