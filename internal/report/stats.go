package report

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/shopspring/decimal"
)

const OtherCategory = "Other"

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type Stats struct {
	TotalMonthSpend  float64          `json:"totalMonthSpend"`
	TotalEmployees   int              `json:"totalEmployees"`
	TotalApproved    int              `json:"totalApproved"`
	TotalUnderReview int              `json:"totalUnderReview"`
	TotalRejected    int              `json:"totalRejected"`
	TotalClosed      int              `json:"totalClosed"`
	CategorySpend    []CategoryAmount `json:"categorySpend"`
	MaxCategory      *CategoryAmount  `json:"maxCategory,omitempty"`
	MinCategory      *CategoryAmount  `json:"minCategory,omitempty"`
}

// Compute derives the dashboard figures from a snapshot. It does not modify
// its input, and the same input and now always give the same Stats.
func Compute(expenses []*expense.Expense, now time.Time) Stats {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := Stats{CategorySpend: []CategoryAmount{}}
	monthSpend := decimal.Zero
	employees := make(map[string]bool)
	spend := make(map[string]decimal.Decimal)
	var order []string

	for _, e := range expenses {
		if e == nil {
			continue
		}

		if !e.CreatedAt.Before(monthStart) {
			monthSpend = monthSpend.Add(e.Total.Decimal())
		}
		if name := strings.TrimSpace(e.User.Name); name != "" {
			employees[name] = true
		}

		switch e.CurrentStatus() {
		case expense.StatusUnderReview:
			stats.TotalUnderReview++
		case expense.StatusReject:
			stats.TotalRejected++
		}
		if e.IsApproved() {
			stats.TotalApproved++
		}
		if e.IsClosed() {
			stats.TotalClosed++
		}

		label := CategoryLabel(e)
		if _, ok := spend[label]; !ok {
			order = append(order, label)
			spend[label] = decimal.Zero
		}
		spend[label] = spend[label].Add(e.Total.Decimal())
	}

	stats.TotalMonthSpend = monthSpend.Round(2).InexactFloat64()
	stats.TotalEmployees = len(employees)

	for _, label := range order {
		stats.CategorySpend = append(stats.CategorySpend, CategoryAmount{
			Category: label,
			Amount:   spend[label].Round(2).InexactFloat64(),
		})
	}
	sort.SliceStable(stats.CategorySpend, func(i, j int) bool {
		return spend[stats.CategorySpend[i].Category].GreaterThan(spend[stats.CategorySpend[j].Category])
	})

	if n := len(stats.CategorySpend); n > 0 {
		highest := stats.CategorySpend[0]
		lowest := stats.CategorySpend[n-1]
		stats.MaxCategory = &highest
		stats.MinCategory = &lowest
	}
	return stats
}

// CategoryLabel groups an expense by purpose, falling back to its category.
func CategoryLabel(e *expense.Expense) string {
	if p := strings.TrimSpace(e.Purpose); p != "" {
		return p
	}
	if c := strings.TrimSpace(string(e.Breakdown.Category)); c != "" {
		return c
	}
	return OtherCategory
}
