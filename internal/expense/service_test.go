package expense_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/location"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockRepository struct {
	expenses  map[string]*expense.Expense
	failError error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{expenses: make(map[string]*expense.Expense)}
}

func (m *MockRepository) Create(ctx context.Context, e *expense.Expense) error {
	if m.failError != nil {
		return m.failError
	}
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	e, ok := m.expenses[id]
	if !ok {
		return nil, expense.ErrExpenseNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockRepository) List(ctx context.Context, q expense.ListQuery) ([]*expense.Expense, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	var result []*expense.Expense
	for _, e := range m.expenses {
		if q.SubmitterEmail != "" && !e.SubmittedBy(q.SubmitterEmail) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockRepository) Update(ctx context.Context, e *expense.Expense, expectedVersion int64) error {
	if m.failError != nil {
		return m.failError
	}
	stored, ok := m.expenses[e.ID]
	if !ok {
		return expense.ErrExpenseNotFound
	}
	if stored.Version != expectedVersion {
		return expense.ErrVersionConflict
	}
	e.Version = expectedVersion + 1
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

type stubChecker struct {
	resolver *access.Resolver
	users    []access.AccessControlUser
}

func (s *stubChecker) HasAreaAccess(ctx context.Context, email string, area access.Area) (bool, error) {
	return s.resolver.HasAreaAccess(email, area, s.users), nil
}

func (s *stubChecker) Rights(ctx context.Context, email string) (access.Rights, error) {
	return s.resolver.Rights(email, s.users), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.ExpenseEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(*events.ExpenseEvent))
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var kinds []string
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type MockUploader struct {
	uploaded  []string
	discarded []string
	failAfter int
	reading   receipt.Extraction
}

func (m *MockUploader) Upload(ctx context.Context, ownerUID string, f receipt.File) (string, error) {
	if m.failAfter >= 0 && len(m.uploaded) >= m.failAfter {
		return "", receipt.ErrUploadFailed.Wrap(errors.New("bucket unreachable"))
	}
	url := "https://files.example.com/" + ownerUID + "/" + f.Name
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

// UploadBill reports m.reading for every bill; a zero reading stands in for
// failed recognition.
func (m *MockUploader) UploadBill(ctx context.Context, ownerUID string, f receipt.File) (string, receipt.Extraction, error) {
	url, err := m.Upload(ctx, ownerUID, f)
	if err != nil {
		return "", receipt.Extraction{}, err
	}
	return url, m.reading, nil
}

func (m *MockUploader) Discard(ctx context.Context, urls []string) {
	m.discarded = append(m.discarded, urls...)
}

type stubLocator struct{}

func (stubLocator) Resolve(ctx context.Context, in *location.Location) location.Location {
	if in == nil {
		return location.Unavailable()
	}
	out := *in
	out.Address = "Resolved Street"
	return out
}

var _ = Describe("Expense Service", func() {
	var (
		ctx       context.Context
		repo      *MockRepository
		publisher *recordingPublisher
		uploader  *MockUploader
		service   *expense.Service
		now       time.Time

		employee = &internal.Actor{UID: "u-emp", Name: "Emp", Email: "emp@company.com", Department: "Sales"}
		reviewer = &internal.Actor{UID: "u-rev", Name: "Rev", Email: "reviewer@company.com"}
		approver = &internal.Actor{UID: "u-app", Name: "App", Email: "approver@company.com"}
		accounts = &internal.Actor{UID: "u-acc", Name: "Acc", Email: "accounts@company.com"}
		admin    = &internal.Actor{UID: "u-boss", Name: "Boss", Email: "boss@company.com"}
	)

	travelAndFood := func() expense.SubmitExpenseDTO {
		return expense.SubmitExpenseDTO{
			Purpose: "Client visit",
			Date:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Breakdown: expense.Breakdown{
				Category: expense.CategoryPersonal,
				Personal: &expense.PersonalItems{
					Travel: []expense.LineItem{{Description: "Taxi", Amount: 100}},
					Food:   []expense.LineItem{{Description: "Lunch", Amount: 50}},
				},
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		repo = NewMockRepository()
		publisher = &recordingPublisher{}
		uploader = &MockUploader{failAfter: -1}

		checker := &stubChecker{
			resolver: access.NewResolver([]string{"boss@company.com"}),
			users: []access.AccessControlUser{
				{Email: "reviewer@company.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{Review: true}},
				{Email: "approver@company.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{Approve: true}},
				{Email: "accounts@company.com", AccessRights: access.AccessRightsEntry, AreaOfRights: access.AreaOfRights{Accounts: true}},
			},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		service = expense.NewService(repo, checker, publisher, logger).
			WithUploader(uploader).
			WithLocator(stubLocator{}).
			WithClock(func() time.Time { return now })
	})

	Describe("full lifecycle", func() {
		It("moves an expense from submission to closed and emits three events", func() {
			// Given
			submitted, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			Expect(err).NotTo(HaveOccurred())
			Expect(submitted.Total).To(Equal(expense.Amount(150)))
			Expect(submitted.Status).To(Equal(expense.StatusUnderReview))
			Expect(submitted.User.Department).To(Equal("Sales"))

			// When
			_, err = service.SetStatus(ctx, reviewer, submitted.ID, expense.SetStatusDTO{Status: "Approve"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.FinalApprove(ctx, approver, submitted.ID, expense.VersionDTO{})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.UpdatePayment(ctx, accounts, submitted.ID, expense.PaymentDTO{Amount: 150})
			Expect(err).NotTo(HaveOccurred())
			closed, err := service.Close(ctx, accounts, submitted.ID, expense.VersionDTO{})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.Locked).To(BeTrue())
			Expect(closed.PaidDate).NotTo(BeNil())
			Expect(closed.FinalApproval).To(BeTrue())
			Expect(closed.ClosedBy.Email).To(Equal("accounts@company.com"))
			Expect(closed.ActionBy.Email).To(Equal("reviewer@company.com"))
			Expect(closed.Version).To(Equal(int64(5)))

			Expect(publisher.kinds()).To(Equal([]string{
				events.KindNewExpense,
				events.KindStatusChange,
				events.KindExpenseClosed,
			}))
			statusEvent := publisher.events[1]
			Expect(statusEvent.OldStatus).To(Equal("Under Review"))
			Expect(statusEvent.NewStatus).To(Equal("Approve"))
			closedEvent := publisher.events[2]
			Expect(*closedEvent.PaidAmount).To(Equal(150.0))
		})

		It("rejects every further transition once closed", func() {
			// Given
			e, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Close(ctx, accounts, e.ID, expense.VersionDTO{})
			Expect(err).NotTo(HaveOccurred())

			// When
			_, statusErr := service.SetStatus(ctx, admin, e.ID, expense.SetStatusDTO{Status: "Reject"})
			_, remarksErr := service.SetRemarks(ctx, employee, e.ID, expense.RemarksDTO{Remarks: "late"})
			_, paymentErr := service.UpdatePayment(ctx, accounts, e.ID, expense.PaymentDTO{Amount: 10})

			// Then
			Expect(statusErr).To(Equal(expense.ErrExpenseLocked))
			Expect(remarksErr).To(Equal(expense.ErrExpenseLocked))
			Expect(paymentErr).To(Equal(expense.ErrExpenseLocked))
		})
	})

	Describe("authorization", func() {
		It("denies final approval to a holder of only the review area", func() {
			// Given
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			_, err := service.SetStatus(ctx, reviewer, e.ID, expense.SetStatusDTO{Status: "Approve"})
			Expect(err).NotTo(HaveOccurred())

			// When
			_, err = service.FinalApprove(ctx, reviewer, e.ID, expense.VersionDTO{})

			// Then
			Expect(err).To(Equal(internal.ErrForbidden))
			stored, _ := repo.GetByID(ctx, e.ID)
			Expect(stored.FinalApproval).To(BeFalse())
		})

		It("lets a default admin perform any transition", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.SetStatus(ctx, admin, e.ID, expense.SetStatusDTO{Status: "Approve"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.FinalApprove(ctx, admin, e.ID, expense.VersionDTO{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not let the submitter review their own expense", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.SetStatus(ctx, employee, e.ID, expense.SetStatusDTO{Status: "Approve"})

			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("limits listing to the actor's own expenses without rights", func() {
			// Given
			_, _ = service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			other := &internal.Actor{UID: "u-2", Name: "Other", Email: "other@company.com"}
			_, _ = service.Submit(ctx, other, travelAndFood(), expense.Uploads{})

			// When
			own, err := service.List(ctx, employee, expense.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			all, err := service.List(ctx, reviewer, expense.ListQuery{})
			Expect(err).NotTo(HaveOccurred())

			// Then
			Expect(own).To(HaveLen(1))
			Expect(all).To(HaveLen(2))
		})

		It("hides another user's expense from Get", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			other := &internal.Actor{UID: "u-2", Email: "other@company.com"}

			_, err := service.Get(ctx, other, e.ID)

			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("status rules", func() {
		It("treats a missing status as Under Review", func() {
			// Given
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			repo.expenses[e.ID].Status = ""

			// When
			_, err := service.SetStatus(ctx, reviewer, e.ID, expense.SetStatusDTO{Status: "Reject"})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.events[1].OldStatus).To(Equal("Under Review"))
		})

		It("rejects final approval outside the approval queue", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.FinalApprove(ctx, approver, e.ID, expense.VersionDTO{})

			Expect(err).To(Equal(expense.ErrInvalidExpenseStatus))
		})

		It("sends an approved expense back to review and keeps the reviewer stamp", func() {
			// Given
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			_, _ = service.SetStatus(ctx, reviewer, e.ID, expense.SetStatusDTO{Status: "Approve"})

			// When
			back, err := service.SendBack(ctx, approver, e.ID, expense.VersionDTO{})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(back.Status).To(Equal(expense.StatusUnderReview))
			Expect(back.ActionBy.Email).To(Equal("reviewer@company.com"))
			Expect(back.RejectedBy.Email).To(Equal("approver@company.com"))
		})

		It("rejects an unknown status value", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.SetStatus(ctx, reviewer, e.ID, expense.SetStatusDTO{Status: "Paid"})

			Expect(err).To(Equal(expense.ErrInvalidStatusValue))
		})
	})

	Describe("payments", func() {
		It("rejects a payment larger than the total", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.UpdatePayment(ctx, accounts, e.ID, expense.PaymentDTO{Amount: 150.01})

			Expect(err).To(Equal(expense.ErrOverpayment))
		})

		It("rejects a negative payment", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			_, err := service.UpdatePayment(ctx, accounts, e.ID, expense.PaymentDTO{Amount: -5})

			Expect(err).To(Equal(expense.ErrNegativePayment))
		})
	})

	Describe("optimistic concurrency", func() {
		It("rejects a stale expected version", func() {
			// Given
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			_, err := service.SetRemarks(ctx, employee, e.ID, expense.RemarksDTO{Remarks: "first"})
			Expect(err).NotTo(HaveOccurred())
			stale := int64(1)

			// When
			_, err = service.SetStatus(ctx, reviewer, e.ID, expense.SetStatusDTO{
				Status:     "Approve",
				VersionDTO: expense.VersionDTO{ExpectedVersion: &stale},
			})

			// Then
			Expect(err).To(Equal(expense.ErrVersionConflict))
			stored, _ := repo.GetByID(ctx, e.ID)
			Expect(stored.Status).To(Equal(expense.StatusUnderReview))
		})

		It("accepts the current expected version", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})
			current := e.Version

			updated, err := service.SetRemarks(ctx, employee, e.ID, expense.RemarksDTO{
				Remarks:    "ok",
				VersionDTO: expense.VersionDTO{ExpectedVersion: &current},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Version).To(Equal(current + 1))
		})
	})

	Describe("Submit", func() {
		It("uploads the document and bills before persisting", func() {
			// Given
			doc := receipt.NewFile("doc.pdf", "application/pdf", []byte("doc"))
			bill := receipt.NewFile("bill.jpg", "image/jpeg", []byte("bill"))

			// When
			e, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{
				Document: &doc,
				Bills:    []receipt.File{bill},
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Attachments.Document).To(HaveSuffix("doc.pdf"))
			Expect(e.Attachments.Bills).To(HaveLen(1))
			Expect(repo.expenses).To(HaveKey(e.ID))
		})

		It("keeps what was read off each bill", func() {
			// Given
			uploader.reading = receipt.Extraction{Amount: "150.00", Date: "2024-03-12"}
			bill := receipt.NewFile("bill.jpg", "image/jpeg", []byte("bill"))

			// When
			e, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{Bills: []receipt.File{bill}})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Attachments.Readings).To(ConsistOf(expense.BillReading{
				URL:    e.Attachments.Bills[0],
				Amount: "150.00",
				Date:   "2024-03-12",
			}))
		})

		It("still submits when nothing can be read off a bill", func() {
			// Given recognition that yields nothing
			bill := receipt.NewFile("bill.jpg", "image/jpeg", []byte("bill"))

			// When
			e, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{Bills: []receipt.File{bill}})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Attachments.Bills).To(HaveLen(1))
			Expect(e.Attachments.Readings).To(BeEmpty())
			Expect(repo.expenses).To(HaveKey(e.ID))
			Expect(publisher.kinds()).To(ContainElement(events.KindNewExpense))
		})

		It("stores nothing and cleans up when an upload fails", func() {
			// Given
			uploader.failAfter = 1
			doc := receipt.NewFile("doc.pdf", "application/pdf", []byte("doc"))
			bill := receipt.NewFile("bill.jpg", "image/jpeg", []byte("bill"))

			// When
			_, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{
				Document: &doc,
				Bills:    []receipt.File{bill},
			})

			// Then
			Expect(errors.Is(err, receipt.ErrUploadFailed)).To(BeTrue())
			Expect(repo.expenses).To(BeEmpty())
			Expect(uploader.discarded).To(Equal(uploader.uploaded))
			Expect(publisher.events).To(BeEmpty())
		})

		It("stores the unavailable sentinel when no location is captured", func() {
			e, err := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Location.Address).To(Equal(location.UnavailableAddress))
		})

		It("rejects an expense without a purpose", func() {
			dto := travelAndFood()
			dto.Purpose = "  "

			_, err := service.Submit(ctx, employee, dto, expense.Uploads{})

			Expect(err).To(HaveOccurred())
			Expect(repo.expenses).To(BeEmpty())
		})

		It("keeps the stored total stable across a JSON round-trip", func() {
			e, _ := service.Submit(ctx, employee, travelAndFood(), expense.Uploads{})

			reloaded, err := service.Get(ctx, employee, e.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Total).To(Equal(expense.Amount(150)))
			Expect(reloaded.Breakdown.Sum().StringFixed(2)).To(Equal("150.00"))
		})
	})
})
