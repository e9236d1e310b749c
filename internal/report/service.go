package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
)

// ExpenseLister returns the expenses the actor may see.
type ExpenseLister interface {
	List(ctx context.Context, actor *internal.Actor, q expense.ListQuery) ([]*expense.Expense, error)
}

type Service struct {
	expenses ExpenseLister
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(expenses ExpenseLister, logger *slog.Logger) *Service {
	return &Service{expenses: expenses, logger: logger, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Stats recomputes the figures from the current snapshot on every call.
func (s *Service) Stats(ctx context.Context, actor *internal.Actor, f Filter) (Stats, error) {
	all, err := s.expenses.List(ctx, actor, expense.ListQuery{})
	if err != nil {
		return Stats{}, err
	}

	filtered := f.Apply(all)
	stats := Compute(filtered, s.now())
	s.logger.Debug("stats computed", "email", actor.NormalizedEmail(), "expenses", len(filtered))
	return stats, nil
}
