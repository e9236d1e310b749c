package project

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	StartDate   *time.Time     `gorm:"column:start_date"`
	EndDate     *time.Time     `gorm:"column:end_date"`
	Employees   datatypes.JSON `gorm:"column:employees"`
	CreatedBy   string         `gorm:"column:created_by"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

type ProjectExpense struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)"`
	ProjectID      string         `gorm:"column:project_id;type:varchar(36);not null;index"`
	SubmitterUID   string         `gorm:"column:submitter_uid"`
	SubmitterName  string         `gorm:"column:submitter_name"`
	SubmitterEmail string         `gorm:"column:submitter_email;not null"`
	Items          datatypes.JSON `gorm:"column:items"`
	Total          float64        `gorm:"column:total;not null;default:0"`
	Status         string         `gorm:"column:status;not null;default:Pending"`
	Remarks        string         `gorm:"column:remarks"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (ProjectExpense) TableName() string {
	return "project_expenses"
}
