package report

import (
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

// Filter narrows a snapshot before it is aggregated or exported. Zero fields
// match everything.
type Filter struct {
	Status         string
	SubmitterEmail string
	Department     string
	Category       string
	From           *time.Time
	To             *time.Time
	Search         string
}

var ErrInvalidDateFilter = internal.NewValidationError("from and to must be dates in YYYY-MM-DD format", internal.ErrCodeInvalidDate)

// ParseFilter reads status, email, department, category, from, to and q.
// The to date is inclusive.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Status:         strings.TrimSpace(q.Get("status")),
		SubmitterEmail: strings.TrimSpace(q.Get("email")),
		Department:     strings.TrimSpace(q.Get("department")),
		Category:       strings.TrimSpace(q.Get("category")),
		Search:         strings.TrimSpace(q.Get("q")),
	}

	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Filter{}, ErrInvalidDateFilter
		}
		f.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return Filter{}, ErrInvalidDateFilter
		}
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	return f, nil
}

func (f Filter) Match(e *expense.Expense) bool {
	if f.Status != "" && e.CurrentStatus() != expense.NormalizeStatus(expense.Status(f.Status)) {
		return false
	}
	if f.SubmitterEmail != "" && !e.SubmittedBy(f.SubmitterEmail) {
		return false
	}
	if f.Department != "" && !strings.EqualFold(e.User.Department, f.Department) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(string(e.Breakdown.Category), f.Category) && !strings.EqualFold(CategoryLabel(e), f.Category) {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	if f.Search != "" && !f.matchesSearch(e) {
		return false
	}
	return true
}

func (f Filter) matchesSearch(e *expense.Expense) bool {
	needle := strings.ToLower(f.Search)
	for _, field := range []string{e.Purpose, e.Notes, e.User.Name, e.User.Email, e.Remarks} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (f Filter) Apply(expenses []*expense.Expense) []*expense.Expense {
	out := make([]*expense.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e != nil && f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
