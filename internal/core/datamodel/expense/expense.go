package expense

import (
	"time"

	"gorm.io/datatypes"
)

// Expense is the relational row. Variant and nested values live in JSON
// columns; Version guards every update.
type Expense struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)"`
	Version         int64          `gorm:"column:version;not null;default:1"`
	UserUID         string         `gorm:"column:user_uid;not null"`
	UserName        string         `gorm:"column:user_name;not null"`
	UserEmail       string         `gorm:"column:user_email;not null;index"`
	UserDepartment  string         `gorm:"column:user_department"`
	Date            time.Time      `gorm:"column:date"`
	Purpose         string         `gorm:"column:purpose"`
	Notes           string         `gorm:"column:notes"`
	Category        string         `gorm:"column:category;not null"`
	Breakdown       datatypes.JSON `gorm:"column:breakdown"`
	Total           float64        `gorm:"column:total;not null;default:0"`
	Status          string         `gorm:"column:status"`
	FinalApproval   bool           `gorm:"column:final_approval;not null;default:false"`
	Locked          bool           `gorm:"column:locked;not null;default:false"`
	Paid            float64        `gorm:"column:paid;not null;default:0"`
	PaidDate        *time.Time     `gorm:"column:paid_date"`
	ActionBy        datatypes.JSON `gorm:"column:action_by"`
	ClosedBy        datatypes.JSON `gorm:"column:closed_by"`
	FinalApprovedBy datatypes.JSON `gorm:"column:final_approved_by"`
	RejectedBy      datatypes.JSON `gorm:"column:rejected_by"`
	Attachments     datatypes.JSON `gorm:"column:attachments"`
	Location        datatypes.JSON `gorm:"column:location"`
	Remarks         string         `gorm:"column:remarks"`
	CreatedAt       time.Time      `gorm:"column:created_at;index"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}
