package expense

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	expenseDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/location"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusUnderReview   Status = "Under Review"
	StatusApprove       Status = "Approve"
	StatusReject        Status = "Reject"
	StatusFinalApproved Status = "Final Approved"
)

// NormalizeStatus folds a missing status into Under Review. Every read path
// goes through it.
func NormalizeStatus(s Status) Status {
	if strings.TrimSpace(string(s)) == "" {
		return StatusUnderReview
	}
	return s
}

// ParseReviewStatus accepts the statuses a reviewer may set.
func ParseReviewStatus(s string) (Status, error) {
	switch status := NormalizeStatus(Status(s)); status {
	case StatusUnderReview, StatusApprove, StatusReject:
		return status, nil
	}
	return "", ErrInvalidStatusValue
}

type Submitter struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

// Stamp records who performed a transition and when.
type Stamp struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

func NewStamp(actor *internal.Actor, now time.Time) Stamp {
	return Stamp{Name: actor.Name, Email: actor.NormalizedEmail(), Timestamp: now}
}

type Attachments struct {
	Document string        `json:"document,omitempty"`
	Bills    []string      `json:"bills,omitempty"`
	Readings []BillReading `json:"readings,omitempty"`
}

// BillReading is the amount and date read off one uploaded bill.
type BillReading struct {
	URL    string `json:"url"`
	Amount string `json:"amount,omitempty"`
	Date   string `json:"date,omitempty"`
}

func (a Attachments) URLs() []string {
	var urls []string
	if a.Document != "" {
		urls = append(urls, a.Document)
	}
	return append(urls, a.Bills...)
}

type Expense struct {
	ID              string             `json:"id"`
	Version         int64              `json:"version"`
	User            Submitter          `json:"user"`
	Date            time.Time          `json:"date"`
	Purpose         string             `json:"purpose"`
	Notes           string             `json:"notes"`
	Breakdown       Breakdown          `json:"breakdown"`
	Total           Amount             `json:"total"`
	Status          Status             `json:"status"`
	FinalApproval   bool               `json:"finalApproval"`
	Locked          bool               `json:"locked"`
	Paid            Amount             `json:"paid"`
	PaidDate        *time.Time         `json:"paidDate,omitempty"`
	ActionBy        *Stamp             `json:"actionBy,omitempty"`
	ClosedBy        *Stamp             `json:"closedBy,omitempty"`
	FinalApprovedBy *Stamp             `json:"finalApprovedBy,omitempty"`
	RejectedBy      *Stamp             `json:"rejectedBy,omitempty"`
	Attachments     Attachments        `json:"attachments"`
	Location        *location.Location `json:"location,omitempty"`
	Remarks         string             `json:"remarks,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func NewExpense(submitter Submitter, dto SubmitExpenseDTO, attachments Attachments, loc location.Location, now time.Time) *Expense {
	date := dto.Date
	if date.IsZero() {
		date = now
	}
	return &Expense{
		ID:          uuid.NewString(),
		Version:     1,
		User:        submitter,
		Date:        date,
		Purpose:     strings.TrimSpace(dto.Purpose),
		Notes:       strings.TrimSpace(dto.Notes),
		Breakdown:   dto.Breakdown,
		Total:       AmountFromDecimal(dto.Breakdown.Sum()),
		Status:      StatusUnderReview,
		Attachments: attachments,
		Location:    &loc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (e *Expense) CurrentStatus() Status {
	return NormalizeStatus(e.Status)
}

func (e *Expense) IsApproved() bool {
	s := e.CurrentStatus()
	return s == StatusApprove || s == StatusFinalApproved || e.FinalApproval
}

func (e *Expense) IsClosed() bool {
	return e.Locked || e.PaidDate != nil
}

func (e *Expense) SubmittedBy(email string) bool {
	return internal.NormalizeEmail(e.User.Email) == internal.NormalizeEmail(email)
}

// SetStatus is the reviewer transition. Final-approved expenses are out of
// the reviewer's hands.
func (e *Expense) SetStatus(status Status, by Stamp) (Status, error) {
	if e.Locked {
		return "", ErrExpenseLocked
	}
	if e.FinalApproval {
		return "", ErrInvalidExpenseStatus
	}
	status = NormalizeStatus(status)
	if status != StatusUnderReview && status != StatusApprove && status != StatusReject {
		return "", ErrInvalidStatusValue
	}

	old := e.CurrentStatus()
	e.Status = status
	e.ActionBy = &by
	e.UpdatedAt = by.Timestamp
	return old, nil
}

func (e *Expense) inApprovalQueue() bool {
	return e.CurrentStatus() == StatusApprove && !e.FinalApproval
}

func (e *Expense) FinalApprove(by Stamp) error {
	if e.Locked {
		return ErrExpenseLocked
	}
	if !e.inApprovalQueue() {
		return ErrInvalidExpenseStatus
	}
	e.FinalApproval = true
	e.Status = StatusFinalApproved
	e.FinalApprovedBy = &by
	e.UpdatedAt = by.Timestamp
	return nil
}

// SendBack returns an expense from the approval queue to review. The
// reviewer's ActionBy stamp is left in place.
func (e *Expense) SendBack(by Stamp) error {
	if e.Locked {
		return ErrExpenseLocked
	}
	if !e.inApprovalQueue() {
		return ErrInvalidExpenseStatus
	}
	e.Status = StatusUnderReview
	e.FinalApproval = false
	e.RejectedBy = &by
	e.UpdatedAt = by.Timestamp
	return nil
}

func (e *Expense) UpdatePayment(amount Amount, now time.Time) error {
	if e.Locked {
		return ErrExpenseLocked
	}
	if amount < 0 {
		return ErrNegativePayment
	}
	if amount.Decimal().GreaterThan(e.Total.Decimal()) {
		return ErrOverpayment
	}
	e.Paid = amount
	e.UpdatedAt = now
	return nil
}

func (e *Expense) Close(by Stamp) error {
	if e.Locked {
		return ErrExpenseLocked
	}
	paidDate := by.Timestamp
	e.Locked = true
	e.PaidDate = &paidDate
	e.ClosedBy = &by
	e.UpdatedAt = by.Timestamp
	return nil
}

func (e *Expense) SetRemarks(text string, now time.Time) error {
	if e.Locked {
		return ErrExpenseLocked
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyRemarks
	}
	e.Remarks = text
	e.UpdatedAt = now
	return nil
}

// Snapshot flattens the expense into the notification wire shape.
func (e *Expense) Snapshot() events.ExpenseSnapshot {
	named := e.Breakdown.NamedAmounts()
	s := events.ExpenseSnapshot{
		ID: e.ID,
		User: events.SubmitterSnapshot{
			Name:       e.User.Name,
			Email:      e.User.Email,
			Department: e.User.Department,
		},
		Date:          e.Date.Format("2006-01-02"),
		Purpose:       e.Purpose,
		Hotel:         named.Hotel.Float64(),
		Transport:     named.Transport.Float64(),
		Fuel:          named.Fuel.Float64(),
		Meals:         named.Meals.Float64(),
		Entertainment: named.Entertainment.Float64(),
		Total:         e.Total.Float64(),
		Status:        string(e.CurrentStatus()),
		CreatedAt:     e.CreatedAt,
		Notes:         e.Notes,
	}
	if e.Location != nil && !e.Location.IsUnavailable() {
		s.Location = &events.LocationSnapshot{
			Latitude:  e.Location.Latitude,
			Longitude: e.Location.Longitude,
			Address:   e.Location.Address,
			Timestamp: e.Location.Timestamp,
		}
	}
	return s
}

func (s Stamp) Snapshot() events.StampSnapshot {
	return events.StampSnapshot{Name: s.Name, Email: s.Email, Timestamp: s.Timestamp}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:              e.ID,
		Version:         e.Version,
		UserUID:         e.User.UID,
		UserName:        e.User.Name,
		UserEmail:       internal.NormalizeEmail(e.User.Email),
		UserDepartment:  e.User.Department,
		Date:            e.Date,
		Purpose:         e.Purpose,
		Notes:           e.Notes,
		Category:        string(e.Breakdown.Category),
		Breakdown:       toJSON(e.Breakdown),
		Total:           e.Total.Float64(),
		Status:          string(e.Status),
		FinalApproval:   e.FinalApproval,
		Locked:          e.Locked,
		Paid:            e.Paid.Float64(),
		PaidDate:        e.PaidDate,
		ActionBy:        toJSON(e.ActionBy),
		ClosedBy:        toJSON(e.ClosedBy),
		FinalApprovedBy: toJSON(e.FinalApprovedBy),
		RejectedBy:      toJSON(e.RejectedBy),
		Attachments:     toJSON(e.Attachments),
		Location:        toJSON(e.Location),
		Remarks:         e.Remarks,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// FromDataModel is lenient: malformed JSON columns read as empty values.
func FromDataModel(row *expenseDatamodel.Expense) *Expense {
	e := &Expense{
		ID:      row.ID,
		Version: row.Version,
		User: Submitter{
			UID:        row.UserUID,
			Name:       row.UserName,
			Email:      row.UserEmail,
			Department: row.UserDepartment,
		},
		Date:          row.Date,
		Purpose:       row.Purpose,
		Notes:         row.Notes,
		Total:         Amount(row.Total),
		Status:        Status(row.Status),
		FinalApproval: row.FinalApproval,
		Locked:        row.Locked,
		Paid:          Amount(row.Paid),
		PaidDate:      row.PaidDate,
		Remarks:       row.Remarks,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	fromJSON(row.Breakdown, &e.Breakdown)
	if e.Breakdown.Category == "" {
		e.Breakdown.Category = Category(row.Category)
	}
	e.ActionBy = stampFromJSON(row.ActionBy)
	e.ClosedBy = stampFromJSON(row.ClosedBy)
	e.FinalApprovedBy = stampFromJSON(row.FinalApprovedBy)
	e.RejectedBy = stampFromJSON(row.RejectedBy)
	fromJSON(row.Attachments, &e.Attachments)
	if len(row.Location) > 0 && string(row.Location) != "null" {
		var loc location.Location
		if fromJSON(row.Location, &loc) {
			e.Location = &loc
		}
	}
	return e
}

func FromDataModelSlice(rows []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

// toJSON cannot fail for these types: amounts are always finite.
func toJSON(v interface{}) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func fromJSON(data datatypes.JSON, dst interface{}) bool {
	if len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func stampFromJSON(data datatypes.JSON) *Stamp {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var s Stamp
	if !fromJSON(data, &s) {
		return nil
	}
	return &s
}
