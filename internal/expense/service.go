package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/location"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
)

// Repository persists expenses. Update is a compare-and-swap: it succeeds
// only while the stored version equals expectedVersion, and bumps e.Version.
type Repository interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id string) (*Expense, error)
	List(ctx context.Context, q ListQuery) ([]*Expense, error)
	Update(ctx context.Context, e *Expense, expectedVersion int64) error
}

type AccessChecker interface {
	HasAreaAccess(ctx context.Context, email string, area access.Area) (bool, error)
	Rights(ctx context.Context, email string) (access.Rights, error)
}

type AttachmentUploader interface {
	Upload(ctx context.Context, ownerUID string, f receipt.File) (string, error)
	UploadBill(ctx context.Context, ownerUID string, f receipt.File) (string, receipt.Extraction, error)
	Discard(ctx context.Context, urls []string)
}

type LocationResolver interface {
	Resolve(ctx context.Context, in *location.Location) location.Location
}

// Uploads are the files sent along with a submission.
type Uploads struct {
	Document *receipt.File
	Bills    []receipt.File
}

type Service struct {
	repo      Repository
	access    AccessChecker
	publisher events.Publisher
	uploader  AttachmentUploader
	locator   LocationResolver
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, checker AccessChecker, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		access:    checker,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) WithUploader(uploader AttachmentUploader) *Service {
	s.uploader = uploader
	return s
}

func (s *Service) WithLocator(locator LocationResolver) *Service {
	s.locator = locator
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit creates a new expense in review. Files are uploaded one at a time,
// each bill read right after its upload, before anything is persisted; any
// upload failure aborts the submission.
func (s *Service) Submit(ctx context.Context, actor *internal.Actor, dto SubmitExpenseDTO, uploads Uploads) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err, "email", actor.NormalizedEmail())
		return nil, err
	}

	attachments, uploaded, err := s.uploadAll(ctx, actor, dto.Attachments, uploads)
	if err != nil {
		return nil, err
	}

	loc := location.Unavailable()
	if s.locator != nil {
		loc = s.locator.Resolve(ctx, dto.Location)
	} else if dto.Location != nil {
		loc = *dto.Location
	}

	department := actor.Department
	if department == "" {
		department = dto.Department
	}
	submitter := Submitter{
		UID:        actor.UID,
		Name:       actor.Name,
		Email:      actor.NormalizedEmail(),
		Department: department,
	}

	e := NewExpense(submitter, dto, attachments, loc, s.now())
	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("failed to create expense", "error", err, "email", submitter.Email)
		if s.uploader != nil {
			s.uploader.Discard(ctx, uploaded)
		}
		return nil, err
	}

	s.logger.Info("expense submitted",
		"expense_id", e.ID,
		"email", submitter.Email,
		"category", e.Breakdown.Category,
		"total", e.Total.String())

	s.publish(ctx, events.NewExpenseSubmittedEvent(e.Snapshot()))
	return e, nil
}

func (s *Service) uploadAll(ctx context.Context, actor *internal.Actor, given Attachments, uploads Uploads) (Attachments, []string, error) {
	attachments := Attachments{
		Document: given.Document,
		Bills:    append([]string(nil), given.Bills...),
		Readings: append([]BillReading(nil), given.Readings...),
	}
	if uploads.Document == nil && len(uploads.Bills) == 0 {
		return attachments, nil, nil
	}
	if s.uploader == nil {
		return Attachments{}, nil, internal.NewExternalError("attachment storage is not configured", internal.ErrCodeServiceNotEnabled)
	}

	var uploaded []string
	fail := func(err error) (Attachments, []string, error) {
		s.uploader.Discard(ctx, uploaded)
		return Attachments{}, nil, err
	}

	if uploads.Document != nil {
		url, err := s.uploader.Upload(ctx, actor.UID, *uploads.Document)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, url)
		attachments.Document = url
	}
	for _, bill := range uploads.Bills {
		url, read, err := s.uploader.UploadBill(ctx, actor.UID, bill)
		if err != nil {
			return fail(err)
		}
		uploaded = append(uploaded, url)
		attachments.Bills = append(attachments.Bills, url)
		if read.Amount == "" && read.Date == "" {
			s.logger.Debug("nothing read from bill", "file", bill.Name, "email", actor.NormalizedEmail())
			continue
		}
		s.logger.Info("bill read", "file", bill.Name, "amount", read.Amount, "date", read.Date)
		attachments.Readings = append(attachments.Readings, BillReading{URL: url, Amount: read.Amount, Date: read.Date})
	}
	return attachments, uploaded, nil
}

func (s *Service) Get(ctx context.Context, actor *internal.Actor, id string) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireVisibility(ctx, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns every expense to admins and area holders, and only the
// actor's own expenses to everyone else.
func (s *Service) List(ctx context.Context, actor *internal.Actor, q ListQuery) ([]*Expense, error) {
	rights, err := s.access.Rights(ctx, actor.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check access rights", err)
	}
	if !rights.CanSeeAll() {
		q.SubmitterEmail = actor.NormalizedEmail()
	}

	expenses, err := s.repo.List(ctx, q)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err, "email", actor.NormalizedEmail())
		return nil, err
	}
	return expenses, nil
}

func (s *Service) SetStatus(ctx context.Context, actor *internal.Actor, id string, dto SetStatusDTO) (*Expense, error) {
	status, err := ParseReviewStatus(dto.Status)
	if err != nil {
		return nil, err
	}

	var old Status
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, access.AreaReview, func(e *Expense, stamp Stamp) error {
		var err error
		old, err = e.SetStatus(status, stamp)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense status changed", "expense_id", id, "from", old, "to", status, "by", actor.NormalizedEmail())
	s.publish(ctx, events.NewExpenseStatusChangedEvent(e.Snapshot(), string(old), string(status), e.ActionBy.Snapshot()))
	return e, nil
}

func (s *Service) FinalApprove(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error) {
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, access.AreaApprove, func(e *Expense, stamp Stamp) error {
		return e.FinalApprove(stamp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense final approved", "expense_id", id, "by", actor.NormalizedEmail())
	return e, nil
}

func (s *Service) SendBack(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error) {
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, access.AreaApprove, func(e *Expense, stamp Stamp) error {
		return e.SendBack(stamp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense sent back to review", "expense_id", id, "by", actor.NormalizedEmail())
	return e, nil
}

func (s *Service) UpdatePayment(ctx context.Context, actor *internal.Actor, id string, dto PaymentDTO) (*Expense, error) {
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, access.AreaAccounts, func(e *Expense, stamp Stamp) error {
		return e.UpdatePayment(dto.Amount, stamp.Timestamp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense payment updated", "expense_id", id, "paid", e.Paid.String(), "by", actor.NormalizedEmail())
	return e, nil
}

func (s *Service) Close(ctx context.Context, actor *internal.Actor, id string, dto VersionDTO) (*Expense, error) {
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, access.AreaAccounts, func(e *Expense, stamp Stamp) error {
		return e.Close(stamp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense closed", "expense_id", id, "paid", e.Paid.String(), "by", actor.NormalizedEmail())
	s.publish(ctx, events.NewExpenseClosedEvent(e.Snapshot(), e.ClosedBy.Snapshot(), e.Paid.Float64()))
	return e, nil
}

// SetRemarks is open to anyone who can see the expense.
func (s *Service) SetRemarks(ctx context.Context, actor *internal.Actor, id string, dto RemarksDTO) (*Expense, error) {
	e, err := s.transition(ctx, actor, id, dto.ExpectedVersion, "", func(e *Expense, stamp Stamp) error {
		return e.SetRemarks(dto.Remarks, stamp.Timestamp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense remarks updated", "expense_id", id, "by", actor.NormalizedEmail())
	return e, nil
}

func (s *Service) Categories() CategoriesResponse {
	return CategoriesResponse{Categories: Taxonomy}
}

// transition runs one gated state change: authorize, load, check the
// caller's expected version, apply, then write conditionally on the loaded
// version. An empty area means visibility is enough.
func (s *Service) transition(ctx context.Context, actor *internal.Actor, id string, expected *int64, area access.Area, apply func(e *Expense, stamp Stamp) error) (*Expense, error) {
	if area != "" {
		if err := s.requireArea(ctx, actor, area); err != nil {
			return nil, err
		}
	}

	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if area == "" {
		if err := s.requireVisibility(ctx, actor, e); err != nil {
			return nil, err
		}
	}
	if expected != nil && *expected != e.Version {
		return nil, ErrVersionConflict
	}

	loadedVersion := e.Version
	if err := apply(e, NewStamp(actor, s.now())); err != nil {
		s.logger.Warn("expense transition rejected", "expense_id", id, "error", err, "by", actor.NormalizedEmail())
		return nil, err
	}

	if err := s.repo.Update(ctx, e, loadedVersion); err != nil {
		if !errors.Is(err, ErrVersionConflict) {
			s.logger.Error("failed to update expense", "expense_id", id, "error", err)
		}
		return nil, err
	}
	return e, nil
}

func (s *Service) requireArea(ctx context.Context, actor *internal.Actor, area access.Area) error {
	ok, err := s.access.HasAreaAccess(ctx, actor.Email, area)
	if err != nil {
		return internal.NewInternalError("failed to check access rights", err)
	}
	if !ok {
		s.logger.Warn("expense transition denied", "email", actor.NormalizedEmail(), "area", area)
		return internal.ErrForbidden
	}
	return nil
}

func (s *Service) requireVisibility(ctx context.Context, actor *internal.Actor, e *Expense) error {
	if e.SubmittedBy(actor.Email) {
		return nil
	}
	rights, err := s.access.Rights(ctx, actor.Email)
	if err != nil {
		return internal.NewInternalError("failed to check access rights", err)
	}
	if !rights.CanSeeAll() {
		return internal.ErrForbidden
	}
	return nil
}

// publish is fire-and-forget: the transition is complete once persisted.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish expense event", "event_type", event.EventType(), "error", err)
	}
}
