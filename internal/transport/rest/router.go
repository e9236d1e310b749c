package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/export"
	"github.com/frahmantamala/expense-tracker/internal/project"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/realtime"
	"github.com/frahmantamala/expense-tracker/internal/transport/swagger"
	"github.com/frahmantamala/expense-tracker/internal/user"
	"github.com/go-chi/chi"
)

// Handlers collects everything the router mounts. Auth is nil when an
// external identity provider issues the tokens.
type Handlers struct {
	Health         *HealthHandler
	Auth           *auth.Handler
	Authenticator  *auth.Middleware
	Authorization  *access.Authorization
	User           *user.Handler
	Access         *access.Handler
	Expense        *expense.Handler
	Receipt        *receipt.Handler
	Report         *report.Handler
	Export         *export.Handler
	Project        *project.Handler
	Realtime       *realtime.Hub
	RequestChecker func(http.Handler) http.Handler
	// Uploads serves locally stored attachments under /uploads when set.
	Uploads http.Handler
}

func RegisterAllRoutes(router *chi.Mux, cfg internal.ServerConfig, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))

	openAPIPath := cfg.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())
	if h.Uploads != nil {
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", h.Uploads))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.RequestChecker != nil {
			r.Use(h.RequestChecker)
		}

		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		if h.Auth != nil {
			r.Route("/auth", func(ar chi.Router) {
				ar.Post("/login", h.Auth.Login)
				ar.Post("/refresh", h.Auth.RefreshToken)
				ar.Post("/logout", h.Auth.Logout)
			})
		}

		if h.Realtime != nil {
			r.Get("/ws", h.Realtime.ServeWS)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Authenticator.Authenticate)
			authz := h.Authorization

			pr.Get("/users/me", h.User.GetCurrentUser)
			pr.Get("/access/me", h.Access.GetMyRights)

			pr.Route("/access-users", func(ar chi.Router) {
				ar.Use(authz.RequireAdmin())
				ar.Get("/", h.Access.ListAccessUsers)
				ar.Post("/", h.Access.CreateAccessUser)
				ar.Get("/{id}", h.Access.GetAccessUser)
				ar.Put("/{id}", h.Access.UpdateAccessUser)
				ar.Delete("/{id}", h.Access.DeleteAccessUser)
				ar.Patch("/{id}/rights", h.Access.SetAccessRights)
				ar.Patch("/{id}/areas", h.Access.SetArea)
			})

			pr.Get("/categories", h.Expense.GetCategories)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.SubmitExpense)
				er.Get("/", h.Expense.ListExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}/remarks", h.Expense.SetRemarks)

				er.With(authz.RequireArea(access.AreaReview)).Patch("/{id}/status", h.Expense.SetStatus)
				er.With(authz.RequireArea(access.AreaApprove)).Post("/{id}/final-approve", h.Expense.FinalApprove)
				er.With(authz.RequireArea(access.AreaApprove)).Post("/{id}/send-back", h.Expense.SendBack)
				er.With(authz.RequireArea(access.AreaAccounts)).Patch("/{id}/payment", h.Expense.UpdatePayment)
				er.With(authz.RequireArea(access.AreaAccounts)).Post("/{id}/close", h.Expense.CloseExpense)
			})

			if h.Receipt != nil {
				pr.Post("/receipts/scan", h.Receipt.ScanReceipt)
			}

			pr.Group(func(rr chi.Router) {
				rr.Use(authz.RequireAnyArea())
				rr.Get("/reports/stats", h.Report.GetStats)
				rr.Get("/exports/expenses.csv", h.Export.ExportCSV)
				rr.Post("/exports/sheets", h.Export.ExportSheets)
			})

			pr.Route("/projects", func(pj chi.Router) {
				pj.Get("/", h.Project.ListProjects)
				pj.Post("/", h.Project.CreateProject)
				pj.Get("/{id}", h.Project.GetProject)
				pj.Put("/{id}", h.Project.UpdateProject)
				pj.Delete("/{id}", h.Project.DeleteProject)
				pj.Get("/{id}/expenses", h.Project.ListProjectExpenses)
				pj.Post("/{id}/expenses", h.Project.CreateProjectExpense)
				pj.Patch("/{id}/expenses/{expenseID}/status", h.Project.SetProjectExpenseStatus)
				pj.Delete("/{id}/expenses/{expenseID}", h.Project.DeleteProjectExpense)
			})
		})
	})
}
