package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	authPostgres "github.com/frahmantamala/expense-tracker/internal/auth/postgres"
	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/export"
	"github.com/frahmantamala/expense-tracker/internal/location"
	"github.com/frahmantamala/expense-tracker/internal/notification"
	"github.com/frahmantamala/expense-tracker/internal/project"
	projectPostgres "github.com/frahmantamala/expense-tracker/internal/project/postgres"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
	"github.com/frahmantamala/expense-tracker/internal/report"
	"github.com/frahmantamala/expense-tracker/internal/transport"
	"github.com/frahmantamala/expense-tracker/internal/transport/middleware"
	"github.com/frahmantamala/expense-tracker/internal/transport/realtime"
	"github.com/frahmantamala/expense-tracker/internal/transport/rest"
	"github.com/frahmantamala/expense-tracker/internal/user"
	userPostgres "github.com/frahmantamala/expense-tracker/internal/user/postgres"
	"github.com/frahmantamala/expense-tracker/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	Stores   *Stores
	Router   *chi.Mux
	Handlers rest.Handlers
	Bus      *events.EventBus
	Pool     *notification.Pool
	Logger   *slog.Logger

	closeSender func() error
}

func startHTTPServer() {
	ctx := context.Background()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.Config.Server, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.shutdown(shutdownCtx)
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// shutdown drains event handlers and queued notifications before the
// connections they need go away.
func (d *Dependencies) shutdown(ctx context.Context) {
	if err := d.Bus.Drain(ctx); err != nil {
		d.Logger.Warn("Event handlers still running at shutdown", "error", err)
	}
	if err := d.Pool.Shutdown(ctx); err != nil {
		d.Logger.Warn("Notification queue not fully delivered", "error", err)
	}
	if err := d.closeSender(); err != nil {
		d.Logger.Error("Notification transport close error", "error", err)
	}
	d.Stores.Close(ctx)
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfigAndLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	stores, err := openStores(ctx, config.Database)
	if err != nil {
		return nil, err
	}

	var fbApp *firebase.App
	if needsFirebase(config) {
		if fbApp, err = initFirebase(ctx, config); err != nil {
			stores.Close(ctx)
			return nil, err
		}
	}

	base := transport.NewBaseHandler(lg)
	bus := events.NewEventBus(logger.Component("events"))

	accessService := newAccessService(config, stores.Gorm)

	var (
		verifier    auth.Verifier
		authHandler *auth.Handler
	)
	switch config.Security.Provider {
	case internal.IdentityProviderFirebase:
		fbVerifier, err := auth.NewFirebaseVerifier(ctx, fbApp, logger.Component("auth"))
		if err != nil {
			stores.Close(ctx)
			return nil, err
		}
		verifier = fbVerifier
	default:
		tokens := auth.NewJWTTokenGenerator(
			config.Security.AccessTokenSecret,
			config.Security.RefreshTokenSecret,
			config.Security.AccessTokenDuration,
			config.Security.RefreshTokenDuration)
		authService := auth.NewService(authPostgres.NewRepository(stores.Gorm), tokens, config.Security.BCryptCost, logger.Component("auth"))
		verifier = authService
		authHandler = auth.NewHandler(base, authService)
	}

	receiptService, err := newReceiptService(ctx, config.Receipt, fbApp)
	if err != nil {
		stores.Close(ctx)
		return nil, err
	}

	sender, closeSender, err := newSender(config, logger.Component("notification"))
	if err != nil {
		stores.Close(ctx)
		return nil, err
	}
	pool := notification.NewPool(sender, notification.PoolConfig{
		Workers:   config.Notification.Workers,
		QueueSize: config.Notification.QueueSize,
	}, logger.Component("notification"))
	notification.NewDispatcher(pool, notificationAdmins(config), logger.Component("notification")).Register(bus)

	expenseService := expense.NewService(stores.ExpenseRepository(), accessService, bus, logger.Component("expense")).
		WithUploader(receiptService)
	if config.Location.GeocoderURL != "" {
		geocoder := location.NewHTTPGeocoder(config.Location.GeocoderURL, config.Location.Timeout)
		expenseService.WithLocator(location.NewService(geocoder, config.Location.Timeout,
			config.Location.CacheTTL, config.Location.CacheSize, logger.Component("location")))
	}

	exportService := export.NewService(expenseService, accessService, logger.Component("export"))
	if config.Export.SpreadsheetID != "" {
		writer, err := export.NewSheetsWriter(ctx, sheetsConfig(config.Export))
		if err != nil {
			lg.Warn("spreadsheet export disabled", "error", err)
		} else {
			exportService.WithSheets(writer)
		}
	}

	hub := realtime.NewHub(verifier, accessService, config.Server.AllowedOrigins, logger.Component("realtime"))
	hub.Register(bus)

	health := rest.NewHealthHandler(stores.DB)
	if stores.Mongo != nil {
		health.WithMongo(stores.Mongo)
	}

	var requestChecker func(http.Handler) http.Handler
	if config.Server.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(ctx, config.Server.OpenAPIPath)
		if err != nil {
			stores.Close(ctx)
			return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
		}
		if requestChecker, err = middleware.OpenAPIValidator(doc, lg); err != nil {
			stores.Close(ctx)
			return nil, fmt.Errorf("failed to build request validator: %w", err)
		}
	}

	var uploads http.Handler
	if config.Receipt.Storage != internal.ReceiptStorageFirebase {
		uploads = http.FileServer(http.Dir(config.Receipt.Dir))
	}

	handlers := rest.Handlers{
		Health:         health,
		Auth:           authHandler,
		Authenticator:  auth.NewMiddleware(base, verifier),
		Authorization:  access.NewAuthorization(base, accessService),
		User:           user.NewHandler(base, user.NewService(userPostgres.NewUserRepository(stores.Gorm), accessService, logger.Component("user"))),
		Access:         access.NewHandler(base, accessService),
		Expense:        expense.NewHandler(base, expenseService, config.Receipt.MaxFileSize),
		Receipt:        receipt.NewHandler(base, receiptService, config.Receipt.MaxFileSize),
		Report:         report.NewHandler(base, report.NewService(expenseService, logger.Component("report"))),
		Export:         export.NewHandler(base, exportService),
		Project:        project.NewHandler(base, project.NewService(projectPostgres.NewProjectRepository(stores.Gorm), accessService, logger.Component("project"))),
		Realtime:       hub,
		RequestChecker: requestChecker,
		Uploads:        uploads,
	}

	return &Dependencies{
		Config:      config,
		Stores:      stores,
		Router:      chi.NewRouter(),
		Handlers:    handlers,
		Bus:         bus,
		Pool:        pool,
		Logger:      lg,
		closeSender: closeSender,
	}, nil
}

func newReceiptService(ctx context.Context, cfg internal.ReceiptConfig, app *firebase.App) (*receipt.Service, error) {
	var store receipt.Store
	switch cfg.Storage {
	case internal.ReceiptStorageFirebase:
		fbStore, err := receipt.NewFirebaseStore(ctx, app, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize receipt storage: %w", err)
		}
		store = fbStore
	default:
		store = receipt.NewDiskStore(cfg.Dir, cfg.PublicURL)
	}

	var recognizer receipt.TextRecognizer
	if cfg.OCREndpoint != "" {
		recognizer = receipt.NewHTTPRecognizer(cfg.OCREndpoint, cfg.OCRTimeout)
	}
	return receipt.NewService(store, recognizer, cfg.MaxFileSize, logger.Component("receipt")), nil
}

func sheetsConfig(cfg internal.ExportConfig) export.SheetsConfig {
	return export.SheetsConfig{
		SpreadsheetID:   cfg.SpreadsheetID,
		SheetName:       cfg.SheetName,
		CredentialsFile: cfg.CredentialsFile,
		CredentialsJSON: cfg.CredentialsJSON,
	}
}
