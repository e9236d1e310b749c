package export

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

// Columns is the exported header, in order.
var Columns = []string{
	"Name",
	"Contact",
	"Date",
	"Purpose",
	"Notes",
	"Status",
	"Action By",
	"Document Link",
	"Bill Image Links",
	"Email",
	"SubmittedAt",
	"Location Address",
	"Location Coordinates",
	"Location Timestamp",
	"Total Expense",
	"Category",
	"Sub-Category",
	"Item Description",
	"Item Amount",
}

// TotalSubCategory labels the single row of a record without line items.
const TotalSubCategory = "Total"

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// BuildRows groups expenses by submitter e-mail, orders each group by
// creation time and expands every record into one row per line item.
// contacts maps normalized e-mail to a phone number and may be nil.
func BuildRows(expenses []*expense.Expense, contacts map[string]string) [][]string {
	groups := make(map[string][]*expense.Expense)
	var emails []string
	for _, e := range expenses {
		if e == nil {
			continue
		}
		key := internal.NormalizeEmail(e.User.Email)
		if _, ok := groups[key]; !ok {
			emails = append(emails, key)
		}
		groups[key] = append(groups[key], e)
	}
	sort.Strings(emails)

	var rows [][]string
	for _, email := range emails {
		group := groups[email]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		for _, e := range group {
			rows = append(rows, recordRows(e, contacts[email])...)
		}
	}
	return rows
}

func recordRows(e *expense.Expense, contact string) [][]string {
	base := []string{
		e.User.Name,
		contact,
		formatTime(e.Date, dateLayout),
		e.Purpose,
		e.Notes,
		string(e.CurrentStatus()),
		stampName(e.ActionBy),
		e.Attachments.Document,
		strings.Join(e.Attachments.Bills, ", "),
		e.User.Email,
		formatTime(e.CreatedAt, timestampLayout),
	}
	base = append(base, locationColumns(e)...)
	base = append(base, e.Total.String(), string(e.Breakdown.Category))

	row := func(sub, description, amount string) []string {
		r := make([]string, 0, len(Columns))
		r = append(r, base...)
		return append(r, sub, description, amount)
	}

	groups := e.Breakdown.Groups()
	if e.Breakdown.Legacy != nil {
		groups = e.Breakdown.LegacyGroups()
	}
	if len(groups) == 0 {
		return [][]string{row(TotalSubCategory, "", e.Total.String())}
	}

	var rows [][]string
	for _, g := range groups {
		for _, item := range g.Items {
			rows = append(rows, row(g.Name, item.Description, item.Amount.String()))
		}
	}
	return rows
}

func locationColumns(e *expense.Expense) []string {
	if e.Location == nil || e.Location.IsUnavailable() {
		return []string{"", "", ""}
	}
	return []string{
		e.Location.Address,
		e.Location.Coordinates(),
		formatTime(e.Location.Timestamp, timestampLayout),
	}
}

func stampName(s *expense.Stamp) string {
	if s == nil {
		return ""
	}
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}
