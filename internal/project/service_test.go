package project_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	projectDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/project"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/project"
	projectPostgres "github.com/frahmantamala/expense-tracker/internal/project/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubAdmins struct {
	admins map[string]bool
}

func (s *stubAdmins) HasAdminAccess(ctx context.Context, email string) (bool, error) {
	return s.admins[internal.NormalizeEmail(email)], nil
}

var _ = Describe("Project Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *project.Service

		admin    = &internal.Actor{UID: "u-admin", Name: "Boss", Email: "boss@company.com"}
		member   = &internal.Actor{UID: "u-member", Name: "Mia", Email: "mia@company.com"}
		outsider = &internal.Actor{UID: "u-out", Name: "Oz", Email: "oz@company.com"}
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&projectDatamodel.Project{}, &projectDatamodel.ProjectExpense{})).To(Succeed())

		log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = project.NewService(
			projectPostgres.NewProjectRepository(db),
			&stubAdmins{admins: map[string]bool{"boss@company.com": true}},
			log,
		)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	createProject := func() *project.Project {
		p, err := service.Create(ctx, admin, project.ProjectDTO{
			Name:      "Plant upgrade",
			Employees: []string{"u-member", "u-member", " "},
		})
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("projects", func() {
		It("lets admins create projects and de-duplicates members", func() {
			p := createProject()

			Expect(p.Employees).To(Equal([]string{"u-member"}))
			Expect(p.CreatedBy).To(Equal("boss@company.com"))
		})

		It("denies project creation to non-admins", func() {
			_, err := service.Create(ctx, member, project.ProjectDTO{Name: "Mine"})
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("rejects an end date before the start date", func() {
			start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(0, 0, -1)

			_, err := service.Create(ctx, admin, project.ProjectDTO{Name: "Bad", StartDate: &start, EndDate: &end})

			Expect(err).To(Equal(project.ErrInvalidProjectDates))
		})

		It("lists only the member's projects for non-admins", func() {
			// Given
			createProject()
			_, err := service.Create(ctx, admin, project.ProjectDTO{Name: "Other"})
			Expect(err).NotTo(HaveOccurred())

			// When
			mine, err := service.List(ctx, member)
			Expect(err).NotTo(HaveOccurred())
			all, err := service.List(ctx, admin)
			Expect(err).NotTo(HaveOccurred())

			// Then
			Expect(mine).To(HaveLen(1))
			Expect(all).To(HaveLen(2))
		})

		It("updates and deletes a project with its expenses", func() {
			// Given
			p := createProject()
			_, err := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{
				Items: []expense.LineItem{{Description: "Cement", Amount: 40}},
			})
			Expect(err).NotTo(HaveOccurred())

			// When
			updated, err := service.Update(ctx, admin, p.ID, project.ProjectDTO{Name: "Plant upgrade II", Employees: []string{}})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Plant upgrade II"))
			Expect(service.Delete(ctx, admin, p.ID)).To(Succeed())

			// Then
			_, err = service.Get(ctx, admin, p.ID)
			Expect(err).To(Equal(project.ErrProjectNotFound))
			var count int64
			db.Model(&projectDatamodel.ProjectExpense{}).Count(&count)
			Expect(count).To(BeZero())
		})
	})

	Describe("project expenses", func() {
		It("lets a member submit and totals the items", func() {
			p := createProject()

			e, err := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{
				Items: []expense.LineItem{{Description: "Cement", Amount: 40.25}, {Description: "Sand", Amount: 9.75}},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Total).To(Equal(expense.Amount(50)))
			Expect(e.Status).To(Equal(project.ExpenseStatusPending))
		})

		It("denies submissions from non-members", func() {
			p := createProject()

			_, err := service.CreateExpense(ctx, outsider, p.ID, project.CreateProjectExpenseDTO{
				Items: []expense.LineItem{{Amount: 1}},
			})

			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("lets only admins set the status", func() {
			// Given
			p := createProject()
			e, _ := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{
				Items: []expense.LineItem{{Amount: 10}},
			})

			// When
			_, memberErr := service.SetExpenseStatus(ctx, member, p.ID, e.ID, project.SetExpenseStatusDTO{Status: project.ExpenseStatusApproved})
			approved, adminErr := service.SetExpenseStatus(ctx, admin, p.ID, e.ID, project.SetExpenseStatusDTO{Status: project.ExpenseStatusApproved, Remarks: "ok"})
			_, invalidErr := service.SetExpenseStatus(ctx, admin, p.ID, e.ID, project.SetExpenseStatusDTO{Status: "Paid"})

			// Then
			Expect(memberErr).To(Equal(internal.ErrForbidden))
			Expect(adminErr).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(project.ExpenseStatusApproved))
			Expect(approved.Remarks).To(Equal("ok"))
			Expect(invalidErr).To(Equal(project.ErrInvalidProjectExpenseStatus))
		})

		It("lets the submitter delete only while pending", func() {
			// Given
			p := createProject()
			pending, _ := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{Items: []expense.LineItem{{Amount: 1}}})
			decided, _ := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{Items: []expense.LineItem{{Amount: 2}}})
			_, err := service.SetExpenseStatus(ctx, admin, p.ID, decided.ID, project.SetExpenseStatusDTO{Status: project.ExpenseStatusRejected})
			Expect(err).NotTo(HaveOccurred())

			// When / Then
			Expect(service.DeleteExpense(ctx, member, p.ID, pending.ID)).To(Succeed())
			Expect(service.DeleteExpense(ctx, member, p.ID, decided.ID)).To(Equal(internal.ErrForbidden))
			Expect(service.DeleteExpense(ctx, admin, p.ID, decided.ID)).To(Succeed())
		})

		It("requires at least one item", func() {
			p := createProject()

			_, err := service.CreateExpense(ctx, member, p.ID, project.CreateProjectExpenseDTO{})

			Expect(err).To(HaveOccurred())
		})
	})
})
