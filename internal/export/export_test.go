package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/export"
	"github.com/frahmantamala/expense-tracker/internal/location"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubLister struct {
	expenses []*expense.Expense
	err      error
}

func (s *stubLister) List(ctx context.Context, actor *internal.Actor, q expense.ListQuery) ([]*expense.Expense, error) {
	return s.expenses, s.err
}

type stubContacts struct {
	contacts map[string]string
	err      error
}

func (s *stubContacts) Contacts(ctx context.Context) (map[string]string, error) {
	return s.contacts, s.err
}

func personalExpense(email string, createdAt time.Time) *expense.Expense {
	return &expense.Expense{
		ID:   email + createdAt.String(),
		User: expense.Submitter{Name: "Name " + email, Email: email},
		Date: createdAt,
		Breakdown: expense.Breakdown{
			Category: expense.CategoryPersonal,
			Personal: &expense.PersonalItems{
				Food: []expense.LineItem{{Description: "Dinner", Amount: 100}},
				Fuel: []expense.LineItem{{Description: "Petrol", Amount: 50}},
			},
		},
		Total:     150,
		Purpose:   "Trip",
		CreatedAt: createdAt,
	}
}

var _ = Describe("BuildRows", func() {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	It("expands a food and fuel expense into exactly two item rows", func() {
		// Given
		e := personalExpense("emp@company.com", base)

		// When
		rows := export.BuildRows([]*expense.Expense{e}, nil)

		// Then
		Expect(rows).To(HaveLen(2))
		for _, row := range rows {
			Expect(row).To(HaveLen(len(export.Columns)))
			Expect(row[14]).To(Equal("150.00"))
			Expect(row[15]).To(Equal("personal"))
		}
		Expect(rows[0][16:]).To(Equal([]string{"food", "Dinner", "100.00"}))
		Expect(rows[1][16:]).To(Equal([]string{"fuel", "Petrol", "50.00"}))
	})

	It("emits a single Total row for a record without line items", func() {
		e := &expense.Expense{
			User:      expense.Submitter{Name: "Old", Email: "old@company.com"},
			Breakdown: expense.Breakdown{Category: expense.CategoryLegacy, Legacy: &expense.LegacyAmounts{}},
			CreatedAt: base,
		}

		rows := export.BuildRows([]*expense.Expense{e}, nil)

		Expect(rows).To(HaveLen(1))
		Expect(rows[0][16:]).To(Equal([]string{export.TotalSubCategory, "", "0.00"}))
		Expect(rows[0][5]).To(Equal("Under Review"))
	})

	It("keeps the per-field split of a legacy record", func() {
		// Given
		e := &expense.Expense{
			User:      expense.Submitter{Name: "Old", Email: "old@company.com"},
			Breakdown: expense.Breakdown{Category: expense.CategoryLegacy, Legacy: &expense.LegacyAmounts{Hotel: 80, Meals: 20}},
			Total:     100,
			CreatedAt: base,
		}

		// When
		rows := export.BuildRows([]*expense.Expense{e}, nil)

		// Then one row per non-zero field
		Expect(rows).To(HaveLen(2))
		Expect(rows[0][16:]).To(Equal([]string{"hotel", "", "80.00"}))
		Expect(rows[1][16:]).To(Equal([]string{"meals", "", "20.00"}))
		Expect(rows[0][14]).To(Equal("100.00"))
	})

	It("groups by e-mail and orders records by creation time", func() {
		// Given
		later := personalExpense("a@company.com", base.Add(time.Hour))
		earlier := personalExpense("A@company.com", base)
		other := personalExpense("b@company.com", base.Add(-time.Hour))

		// When
		rows := export.BuildRows([]*expense.Expense{other, later, earlier}, map[string]string{"a@company.com": "+62 811"})

		// Then
		Expect(rows).To(HaveLen(6))
		Expect(rows[0][10]).To(Equal("2026-03-01 10:00:00"))
		Expect(rows[2][10]).To(Equal("2026-03-01 11:00:00"))
		Expect(rows[4][9]).To(Equal("b@company.com"))
		Expect(rows[0][1]).To(Equal("+62 811"))
	})

	It("fills the location columns only when a position was captured", func() {
		e := personalExpense("emp@company.com", base)
		e.Location = &location.Location{Latitude: -6.2, Longitude: 106.816666, Address: "Jakarta", Timestamp: base}
		unavailable := location.Unavailable()
		other := personalExpense("x@company.com", base)
		other.Location = &unavailable

		rows := export.BuildRows([]*expense.Expense{e, other}, nil)

		Expect(rows[0][11:14]).To(Equal([]string{"Jakarta", "-6.200000, 106.816666", "2026-03-01 10:00:00"}))
		Expect(rows[2][11:14]).To(Equal([]string{"", "", ""}))
	})
})

var _ = Describe("Export Service", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	It("writes the header and rows as CSV", func() {
		// Given
		lister := &stubLister{expenses: []*expense.Expense{personalExpense("emp@company.com", time.Now())}}
		service := export.NewService(lister, &stubContacts{err: errors.New("store down")}, logger)
		var buf bytes.Buffer

		// When
		n, err := service.WriteCSV(context.Background(), &internal.Actor{Email: "boss@company.com"}, report.Filter{}, &buf)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
		Expect(records[0]).To(Equal(export.Columns))
	})

	It("reports a missing spreadsheet configuration", func() {
		service := export.NewService(&stubLister{}, nil, logger)

		_, err := service.ExportSheets(context.Background(), &internal.Actor{Email: "boss@company.com"}, report.Filter{})

		Expect(err).To(Equal(export.ErrSheetsNotConfigured))
	})

	It("propagates a failed expense load", func() {
		service := export.NewService(&stubLister{err: errors.New("db down")}, nil, logger)

		_, err := service.Rows(context.Background(), &internal.Actor{Email: "boss@company.com"}, report.Filter{})

		Expect(err).To(HaveOccurred())
	})

	It("serves the CSV as an attachment", func() {
		// Given
		lister := &stubLister{expenses: []*expense.Expense{personalExpense("emp@company.com", time.Now())}}
		handler := export.NewHandler(transport.NewBaseHandler(logger), export.NewService(lister, nil, logger))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/expenses.csv", nil)
		req = req.WithContext(internal.ContextWithActor(req.Context(), &internal.Actor{Email: "boss@company.com"}))
		rec := httptest.NewRecorder()

		// When
		handler.ExportCSV(rec, req)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("attachment"))
		Expect(rec.Body.String()).To(HavePrefix("Name,Contact,Date"))
	})
})
