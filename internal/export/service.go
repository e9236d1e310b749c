package export

import (
	"context"
	"io"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSheetsNotConfigured = internal.NewExternalError("spreadsheet export is not configured", internal.ErrCodeServiceNotEnabled)
	ErrExportFailed        = internal.NewExternalError("export failed", internal.ErrCodeExportFailed)
)

type ContactLookup interface {
	Contacts(ctx context.Context) (map[string]string, error)
}

type Service struct {
	expenses report.ExpenseLister
	contacts ContactLookup
	sheets   Writer
	logger   *slog.Logger
}

func NewService(expenses report.ExpenseLister, contacts ContactLookup, logger *slog.Logger) *Service {
	return &Service{expenses: expenses, contacts: contacts, logger: logger}
}

func (s *Service) WithSheets(w Writer) *Service {
	s.sheets = w
	return s
}

// Rows loads the visible expenses and the contact directory concurrently.
// A missing directory only leaves the Contact column empty.
func (s *Service) Rows(ctx context.Context, actor *internal.Actor, f report.Filter) ([][]string, error) {
	var (
		all      []*expense.Expense
		contacts map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.expenses.List(gctx, actor, expense.ListQuery{})
		return err
	})
	if s.contacts != nil {
		g.Go(func() error {
			c, err := s.contacts.Contacts(gctx)
			if err != nil {
				s.logger.Warn("export without contacts", "error", err)
				return nil
			}
			contacts = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return BuildRows(f.Apply(all), contacts), nil
}

func (s *Service) WriteCSV(ctx context.Context, actor *internal.Actor, f report.Filter, w io.Writer) (int, error) {
	rows, err := s.Rows(ctx, actor, f)
	if err != nil {
		return 0, err
	}
	if err := NewCSVWriter(w).Write(ctx, Columns, rows); err != nil {
		return 0, ErrExportFailed.Wrap(err)
	}
	return len(rows), nil
}

func (s *Service) ExportSheets(ctx context.Context, actor *internal.Actor, f report.Filter) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsNotConfigured
	}
	rows, err := s.Rows(ctx, actor, f)
	if err != nil {
		return 0, err
	}
	if err := s.sheets.Write(ctx, Columns, rows); err != nil {
		s.logger.Error("spreadsheet export failed", "error", err, "email", actor.NormalizedEmail())
		return 0, ErrExportFailed.Wrap(err)
	}

	s.logger.Info("spreadsheet export written", "rows", len(rows), "email", actor.NormalizedEmail())
	return len(rows), nil
}
