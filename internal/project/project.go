package project

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	projectDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/project"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Employees   []string   `json:"employees"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HasMember reports whether uid is one of the listed employees.
func (p *Project) HasMember(uid string) bool {
	for _, e := range p.Employees {
		if e == uid {
			return true
		}
	}
	return false
}

func NewProject(dto ProjectDTO, createdBy string, now time.Time) *Project {
	p := &Project{
		ID:        uuid.NewString(),
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	p.Apply(dto, now)
	return p
}

func (p *Project) Apply(dto ProjectDTO, now time.Time) {
	p.Name = strings.TrimSpace(dto.Name)
	p.Description = strings.TrimSpace(dto.Description)
	p.StartDate = dto.StartDate
	p.EndDate = dto.EndDate
	p.Employees = uniqueEmployees(dto.Employees)
	p.UpdatedAt = now
}

func uniqueEmployees(ids []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type ExpenseStatus string

const (
	ExpenseStatusPending  ExpenseStatus = "Pending"
	ExpenseStatusApproved ExpenseStatus = "Approved"
	ExpenseStatusRejected ExpenseStatus = "Rejected"
)

func (s ExpenseStatus) Valid() bool {
	return s == ExpenseStatusPending || s == ExpenseStatusApproved || s == ExpenseStatusRejected
}

type ProjectExpense struct {
	ID        string             `json:"id"`
	ProjectID string             `json:"projectId"`
	Submitter expense.Submitter  `json:"submitter"`
	Items     []expense.LineItem `json:"items"`
	Total     expense.Amount     `json:"total"`
	Status    ExpenseStatus      `json:"status"`
	Remarks   string             `json:"remarks,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func NewProjectExpense(projectID string, actor *internal.Actor, dto CreateProjectExpenseDTO, now time.Time) *ProjectExpense {
	total := decimal.Zero
	for _, item := range dto.Items {
		total = total.Add(item.Amount.Decimal())
	}
	return &ProjectExpense{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Submitter: expense.Submitter{
			UID:        actor.UID,
			Name:       actor.Name,
			Email:      actor.NormalizedEmail(),
			Department: actor.Department,
		},
		Items:     dto.Items,
		Total:     expense.AmountFromDecimal(total),
		Status:    ExpenseStatusPending,
		Remarks:   strings.TrimSpace(dto.Remarks),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ToDataModel(p *Project) *projectDatamodel.Project {
	employees, _ := json.Marshal(p.Employees)
	return &projectDatamodel.Project{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Employees:   datatypes.JSON(employees),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(row *projectDatamodel.Project) *Project {
	p := &Project{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		StartDate:   row.StartDate,
		EndDate:     row.EndDate,
		Employees:   []string{},
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if len(row.Employees) > 0 {
		_ = json.Unmarshal(row.Employees, &p.Employees)
	}
	return p
}

func FromDataModelSlice(rows []*projectDatamodel.Project) []*Project {
	out := make([]*Project, len(rows))
	for i, row := range rows {
		out[i] = FromDataModel(row)
	}
	return out
}

func ExpenseToDataModel(e *ProjectExpense) *projectDatamodel.ProjectExpense {
	items, _ := json.Marshal(e.Items)
	return &projectDatamodel.ProjectExpense{
		ID:             e.ID,
		ProjectID:      e.ProjectID,
		SubmitterUID:   e.Submitter.UID,
		SubmitterName:  e.Submitter.Name,
		SubmitterEmail: e.Submitter.Email,
		Items:          datatypes.JSON(items),
		Total:          e.Total.Float64(),
		Status:         string(e.Status),
		Remarks:        e.Remarks,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func ExpenseFromDataModel(row *projectDatamodel.ProjectExpense) *ProjectExpense {
	e := &ProjectExpense{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Submitter: expense.Submitter{
			UID:   row.SubmitterUID,
			Name:  row.SubmitterName,
			Email: row.SubmitterEmail,
		},
		Items:     []expense.LineItem{},
		Total:     expense.Amount(row.Total),
		Status:    ExpenseStatus(row.Status),
		Remarks:   row.Remarks,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if e.Status == "" {
		e.Status = ExpenseStatusPending
	}
	if len(row.Items) > 0 {
		_ = json.Unmarshal(row.Items, &e.Items)
	}
	return e
}

func ExpenseFromDataModelSlice(rows []*projectDatamodel.ProjectExpense) []*ProjectExpense {
	out := make([]*ProjectExpense, len(rows))
	for i, row := range rows {
		out[i] = ExpenseFromDataModel(row)
	}
	return out
}
