package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

// Message is one plain-text mail to one recipient.
type Message struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Kind      string `json:"kind"`
	ExpenseID string `json:"expenseId"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Recipients returns the submitter followed by the admin addresses, with
// blanks dropped and duplicates removed case-insensitively.
func Recipients(submitter string, admins []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, addr := range append([]string{submitter}, admins...) {
		key := internal.NormalizeEmail(addr)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(addr))
	}
	return out
}

// Compose builds the per-recipient messages for one event payload.
func Compose(p events.Payload, admins []string) []Message {
	subject := Subject(p)
	body := Body(p)

	var messages []Message
	for _, to := range Recipients(p.Expense.User.Email, admins) {
		messages = append(messages, Message{
			To:        to,
			Subject:   subject,
			Body:      body,
			Kind:      p.Type,
			ExpenseID: p.Expense.ID,
		})
	}
	return messages
}

func Subject(p events.Payload) string {
	switch p.Type {
	case events.KindNewExpense:
		return fmt.Sprintf("New expense submitted by %s", displayName(p.Expense.User))
	case events.KindStatusChange:
		return fmt.Sprintf("Expense status changed to %s", p.NewStatus)
	case events.KindExpenseClosed:
		return "Expense closed and paid"
	}
	return "Expense update"
}

func Body(p events.Payload) string {
	e := p.Expense
	var b strings.Builder

	fmt.Fprintf(&b, "Expense: %s\n", e.ID)
	fmt.Fprintf(&b, "Submitted by: %s <%s>\n", displayName(e.User), e.User.Email)
	if e.User.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", e.User.Department)
	}
	fmt.Fprintf(&b, "Date: %s\n", e.Date)
	fmt.Fprintf(&b, "Purpose: %s\n", e.Purpose)
	b.WriteString("\n")
	for _, line := range []struct {
		label  string
		amount float64
	}{
		{"Hotel", e.Hotel},
		{"Transport", e.Transport},
		{"Fuel", e.Fuel},
		{"Meals", e.Meals},
		{"Entertainment", e.Entertainment},
	} {
		if line.amount != 0 {
			fmt.Fprintf(&b, "%s: %.2f\n", line.label, line.amount)
		}
	}
	fmt.Fprintf(&b, "Total: %.2f\n", e.Total)
	fmt.Fprintf(&b, "Status: %s\n", e.Status)

	switch p.Type {
	case events.KindStatusChange:
		fmt.Fprintf(&b, "\nStatus changed from %s to %s", p.OldStatus, p.NewStatus)
		if p.ActionBy != nil {
			fmt.Fprintf(&b, " by %s", p.ActionBy.Name)
		}
		b.WriteString("\n")
	case events.KindExpenseClosed:
		if p.PaidAmount != nil {
			fmt.Fprintf(&b, "\nPaid amount: %.2f\n", *p.PaidAmount)
		}
		if p.ClosedBy != nil {
			fmt.Fprintf(&b, "Closed by: %s\n", p.ClosedBy.Name)
		}
	}

	if e.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", e.Notes)
	}
	if e.Location != nil && e.Location.Address != "" {
		fmt.Fprintf(&b, "Location: %s\n", e.Location.Address)
	}
	return b.String()
}

func displayName(u events.SubmitterSnapshot) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
