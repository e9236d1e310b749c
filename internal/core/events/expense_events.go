package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseNew           = "expense.new"
	EventTypeExpenseStatusChanged = "expense.status_changed"
	EventTypeExpenseClosed        = "expense.closed"
)

// ExpenseEventTypes lists every lifecycle event the expense service publishes.
var ExpenseEventTypes = []string{
	EventTypeExpenseNew,
	EventTypeExpenseStatusChanged,
	EventTypeExpenseClosed,
}

// Notification kinds as they appear on the wire.
const (
	KindNewExpense    = "new-expense"
	KindStatusChange  = "status-change"
	KindExpenseClosed = "expense-closed"
)

var kindByType = map[string]string{
	EventTypeExpenseNew:           KindNewExpense,
	EventTypeExpenseStatusChanged: KindStatusChange,
	EventTypeExpenseClosed:        KindExpenseClosed,
}

type SubmitterSnapshot struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
}

type LocationSnapshot struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
}

type StampSnapshot struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// ExpenseSnapshot is the flattened expense carried by notifications. The five
// named amounts are always present, zero when the breakdown has no matching
// group.
type ExpenseSnapshot struct {
	ID            string            `json:"id"`
	User          SubmitterSnapshot `json:"user"`
	Date          string            `json:"date"`
	Purpose       string            `json:"purpose"`
	Hotel         float64           `json:"hotel"`
	Transport     float64           `json:"transport"`
	Fuel          float64           `json:"fuel"`
	Meals         float64           `json:"meals"`
	Entertainment float64           `json:"entertainment"`
	Total         float64           `json:"total"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	Notes         string            `json:"notes"`
	Location      *LocationSnapshot `json:"location,omitempty"`
}

type ExpenseEvent struct {
	BaseEvent
	Kind       string          `json:"-"`
	Expense    ExpenseSnapshot `json:"-"`
	OldStatus  string          `json:"-"`
	NewStatus  string          `json:"-"`
	ActionBy   *StampSnapshot  `json:"-"`
	ClosedBy   *StampSnapshot  `json:"-"`
	PaidAmount *float64        `json:"-"`
}

func newExpenseEvent(eventType string, snapshot ExpenseSnapshot) *ExpenseEvent {
	return &ExpenseEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": snapshot.ID,
				"email":      snapshot.User.Email,
				"status":     snapshot.Status,
				"total":      snapshot.Total,
			},
		},
		Kind:    kindByType[eventType],
		Expense: snapshot,
	}
}

func NewExpenseSubmittedEvent(snapshot ExpenseSnapshot) *ExpenseEvent {
	return newExpenseEvent(EventTypeExpenseNew, snapshot)
}

func NewExpenseStatusChangedEvent(snapshot ExpenseSnapshot, oldStatus, newStatus string, actionBy StampSnapshot) *ExpenseEvent {
	e := newExpenseEvent(EventTypeExpenseStatusChanged, snapshot)
	e.OldStatus = oldStatus
	e.NewStatus = newStatus
	e.ActionBy = &actionBy
	e.Data["old_status"] = oldStatus
	e.Data["new_status"] = newStatus
	e.Data["action_by"] = actionBy.Email
	return e
}

func NewExpenseClosedEvent(snapshot ExpenseSnapshot, closedBy StampSnapshot, paidAmount float64) *ExpenseEvent {
	e := newExpenseEvent(EventTypeExpenseClosed, snapshot)
	e.ClosedBy = &closedBy
	e.PaidAmount = &paidAmount
	e.Data["closed_by"] = closedBy.Email
	e.Data["paid_amount"] = paidAmount
	return e
}

// Payload is the notification wire format for an expense event.
type Payload struct {
	Type       string          `json:"type"`
	Expense    ExpenseSnapshot `json:"expense"`
	OldStatus  string          `json:"oldStatus,omitempty"`
	NewStatus  string          `json:"newStatus,omitempty"`
	ActionBy   *StampSnapshot  `json:"actionBy,omitempty"`
	ClosedBy   *StampSnapshot  `json:"closedBy,omitempty"`
	PaidAmount *float64        `json:"paidAmount,omitempty"`
}

func (e *ExpenseEvent) WirePayload() Payload {
	return Payload{
		Type:       e.Kind,
		Expense:    e.Expense,
		OldStatus:  e.OldStatus,
		NewStatus:  e.NewStatus,
		ActionBy:   e.ActionBy,
		ClosedBy:   e.ClosedBy,
		PaidAmount: e.PaidAmount,
	}
}
