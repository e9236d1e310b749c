package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/access"
	accessPostgres "github.com/frahmantamala/expense-tracker/internal/access/postgres"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	expenseMongo "github.com/frahmantamala/expense-tracker/internal/expense/mongodb"
	expensePostgres "github.com/frahmantamala/expense-tracker/internal/expense/postgres"
	"github.com/frahmantamala/expense-tracker/internal/notification"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Stores holds the open database handles. Mongo is only set when expenses
// live in MongoDB; users, access records and projects are always relational.
type Stores struct {
	DB    *sqlx.DB
	Gorm  *gorm.DB
	Mongo *mongo.Client
	cfg   internal.DatabaseConfig
}

func openStores(ctx context.Context, cfg internal.DatabaseConfig) (*Stores, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{TranslateError: true})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	stores := &Stores{DB: db, Gorm: gormDB, cfg: cfg}
	if cfg.Driver == internal.DatabaseDriverMongo {
		client, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		stores.Mongo = client
		if err := expenseMongo.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			stores.Close(ctx)
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
	}
	return stores, nil
}

func (s *Stores) ExpenseRepository() expense.Repository {
	if s.Mongo != nil {
		return expenseMongo.NewExpenseRepository(s.Mongo.Database(s.cfg.MongoDatabase))
	}
	return expensePostgres.NewExpenseRepository(s.Gorm)
}

func (s *Stores) Close(ctx context.Context) {
	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			slog.Error("Mongo disconnect error", "error", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		slog.Error("Database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// needsFirebase reports whether any component talks to Firebase.
func needsFirebase(cfg *internal.Config) bool {
	return cfg.Security.Provider == internal.IdentityProviderFirebase ||
		cfg.Receipt.Storage == internal.ReceiptStorageFirebase
}

func initFirebase(ctx context.Context, cfg *internal.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.Security.FirebaseCredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.Security.FirebaseCredentialsJSON)))
	case cfg.Security.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.Security.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Security.FirebaseProjectID,
		StorageBucket: cfg.Receipt.Bucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}
	return app, nil
}

func newAccessService(cfg *internal.Config, db *gorm.DB) *access.Service {
	return access.NewService(
		accessPostgres.NewAccessRepository(db),
		access.NewResolver(cfg.Access.AdminEmails),
		cfg.Access.CacheTTL,
		logger.Component("access"))
}

// notificationAdmins falls back to the default-admin list so admins are
// notified without separate configuration.
func notificationAdmins(cfg *internal.Config) []string {
	if len(cfg.Notification.AdminEmails) > 0 {
		return cfg.Notification.AdminEmails
	}
	return cfg.Access.AdminEmails
}

// newSender builds the configured transport. The returned closer releases
// broker connections and is never nil.
func newSender(cfg *internal.Config, lg *slog.Logger) (notification.Sender, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Notification.Transport {
	case internal.NotificationTransportSMTP:
		return notification.NewSMTPSender(cfg.Notification.SMTP, cfg.Notification.From), noop, nil
	case internal.NotificationTransportAMQP:
		amqpCfg := cfg.Notification.AMQP
		client, err := notification.NewAMQPClient(amqpCfg.URL, amqpCfg.Exchange, amqpCfg.Queue, lg)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect notification broker: %w", err)
		}
		return client.Sender(), client.Close, nil
	case internal.NotificationTransportLog, "":
		return notification.NewLogSender(lg), noop, nil
	default:
		return nil, noop, errors.New("unknown notification transport: " + cfg.Notification.Transport)
	}
}

// systemActor is the identity CLI commands act as: the first default admin,
// or the one named explicitly.
func systemActor(cfg *internal.Config, email string) (*internal.Actor, error) {
	if email == "" {
		if len(cfg.Access.AdminEmails) == 0 {
			return nil, errors.New("no default admin configured; pass --as")
		}
		email = cfg.Access.AdminEmails[0]
	}
	email = internal.NormalizeEmail(email)
	return &internal.Actor{UID: "cli:" + email, Name: "CLI", Email: email}, nil
}
