package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Access        AccessConfig        `mapstructure:"access"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Export        ExportConfig        `mapstructure:"export"`
	Location      LocationConfig      `mapstructure:"location"`
	Receipt       ReceiptConfig       `mapstructure:"receipt"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMongo    = "mongo"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres mongo"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
}

const (
	IdentityProviderJWT      = "jwt"
	IdentityProviderFirebase = "firebase"
)

type SecurityConfig struct {
	Provider                string        `mapstructure:"provider" validate:"oneof=jwt firebase"`
	AccessTokenSecret       string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret      string        `mapstructure:"refresh_token_secret"`
	AccessTokenDuration     time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration    time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost              int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	FirebaseProjectID       string        `mapstructure:"firebase_project_id"`
	FirebaseCredentialsFile string        `mapstructure:"firebase_credentials_file"`
	FirebaseCredentialsJSON string        `mapstructure:"firebase_credentials_json"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// AccessConfig carries the default-admin allow-list. It is the only place the
// list is defined; everything else receives it through the resolver.
type AccessConfig struct {
	AdminEmails []string      `mapstructure:"admin_emails"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

const (
	NotificationTransportSMTP = "smtp"
	NotificationTransportAMQP = "amqp"
	NotificationTransportLog  = "log"
)

type NotificationConfig struct {
	Transport   string     `mapstructure:"transport" validate:"oneof=smtp amqp log"`
	From        string     `mapstructure:"from"`
	AdminEmails []string   `mapstructure:"admin_emails"`
	Workers     int        `mapstructure:"workers"`
	QueueSize   int        `mapstructure:"queue_size"`
	SMTP        SMTPConfig `mapstructure:"smtp"`
	AMQP        AMQPConfig `mapstructure:"amqp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type ExportConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	SheetName       string `mapstructure:"sheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type LocationConfig struct {
	GeocoderURL string        `mapstructure:"geocoder_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
}

const (
	ReceiptStorageDisk     = "disk"
	ReceiptStorageFirebase = "firebase"
)

type ReceiptConfig struct {
	Storage     string        `mapstructure:"storage" validate:"oneof=disk firebase"`
	Dir         string        `mapstructure:"dir"`
	PublicURL   string        `mapstructure:"public_url"`
	Bucket      string        `mapstructure:"bucket"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	OCREndpoint string        `mapstructure:"ocr_endpoint"`
	OCRTimeout  time.Duration `mapstructure:"ocr_timeout"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used by container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("HTTP_OPENAPI_PATH", "./api/openapi.yml"),
			ValidateRequests:  getEnvAsBool("HTTP_VALIDATE_REQUESTS", false),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DatabaseDriverPostgres),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
			MongoURI:        getEnv("MONGO_URI", ""),
			MongoDatabase:   getEnv("MONGO_DATABASE", "expense_tracker"),
		},
		Security: SecurityConfig{
			Provider:                getEnv("AUTH_PROVIDER", IdentityProviderJWT),
			AccessTokenSecret:       getEnv("JWT_ACCESS_SECRET", ""),
			RefreshTokenSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:     getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenDuration:    getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			BCryptCost:              getEnvAsInt("BCRYPT_COST", 12),
			FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Access: AccessConfig{
			AdminEmails: getEnvAsList("ADMIN_EMAILS"),
			CacheTTL:    getEnvAsDuration("ACCESS_CACHE_TTL", 30*time.Second),
		},
		Notification: NotificationConfig{
			Transport:   getEnv("NOTIFY_TRANSPORT", NotificationTransportLog),
			From:        getEnv("NOTIFY_FROM", ""),
			AdminEmails: getEnvAsList("NOTIFY_ADMIN_EMAILS"),
			Workers:     getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:   getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnvAsInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
			},
			AMQP: AMQPConfig{
				URL:      getEnv("AMQP_URL", ""),
				Exchange: getEnv("AMQP_EXCHANGE", "expense-tracker"),
				Queue:    getEnv("AMQP_QUEUE", "notifications"),
			},
		},
		Export: ExportConfig{
			SpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
			SheetName:       getEnv("GOOGLE_SHEET_NAME", "Expenses"),
			CredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
			CredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		},
		Location: LocationConfig{
			GeocoderURL: getEnv("GEOCODER_URL", ""),
			Timeout:     getEnvAsDuration("GEOCODER_TIMEOUT", 10*time.Second),
			CacheTTL:    getEnvAsDuration("GEOCODER_CACHE_TTL", 5*time.Minute),
			CacheSize:   getEnvAsInt("GEOCODER_CACHE_SIZE", 512),
		},
		Receipt: ReceiptConfig{
			Storage:     getEnv("RECEIPT_STORAGE", ReceiptStorageDisk),
			Dir:         getEnv("RECEIPT_DIR", "./uploads"),
			PublicURL:   getEnv("RECEIPT_PUBLIC_URL", "/uploads"),
			Bucket:      getEnv("RECEIPT_BUCKET", ""),
			MaxFileSize: int64(getEnvAsInt("RECEIPT_MAX_FILE_SIZE", 10<<20)),
			OCREndpoint: getEnv("OCR_ENDPOINT", ""),
			OCRTimeout:  getEnvAsDuration("OCR_TIMEOUT", 20*time.Second),
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Access.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("access config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if err := c.Receipt.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("receipt config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	switch c.Driver {
	case "", DatabaseDriverPostgres:
		if c.Source == "" {
			return errors.New("source is required for the postgres driver")
		}
	case DatabaseDriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("mongo_uri and mongo_database are required for the mongo driver")
		}
		// users, access records and projects stay in postgres
		if c.Source == "" {
			return errors.New("source is required alongside the mongo driver")
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	switch c.Provider {
	case "", IdentityProviderJWT:
		if len(c.AccessTokenSecret) < 32 {
			return errors.New("access_token_secret must be at least 32 characters")
		}
		if len(c.RefreshTokenSecret) < 32 {
			return errors.New("refresh_token_secret must be at least 32 characters")
		}
		if c.AccessTokenSecret == c.RefreshTokenSecret {
			return errors.New("access and refresh token secrets must differ")
		}
	case IdentityProviderFirebase:
		if c.FirebaseProjectID == "" {
			return errors.New("firebase_project_id is required for the firebase provider")
		}
	default:
		return fmt.Errorf("unknown identity provider %q", c.Provider)
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *AccessConfig) Validate() error {
	for _, email := range c.AdminEmails {
		if !strings.Contains(email, "@") {
			return fmt.Errorf("invalid admin email %q", email)
		}
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	switch c.Transport {
	case "", NotificationTransportLog:
	case NotificationTransportSMTP:
		if c.SMTP.Host == "" {
			return errors.New("smtp.host is required for the smtp transport")
		}
	case NotificationTransportAMQP:
		if c.AMQP.URL == "" || c.AMQP.Queue == "" {
			return errors.New("amqp.url and amqp.queue are required for the amqp transport")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

// placeholderValues are the sample values shipped in config.example.yml; a
// mailer configured with any of them is never used.
var placeholderValues = []string{
	"",
	"changeme",
	"your-email@example.com",
	"your-app-password",
	"smtp.example.com",
	"noreply@example.com",
}

// IsPlaceholder reports whether the SMTP credentials still carry sample values.
func (c SMTPConfig) IsPlaceholder() bool {
	for _, field := range []string{c.Host, c.Username, c.Password} {
		for _, placeholder := range placeholderValues {
			if strings.EqualFold(strings.TrimSpace(field), placeholder) {
				return true
			}
		}
	}
	return false
}

func (c *ReceiptConfig) Validate() error {
	switch c.Storage {
	case "", ReceiptStorageDisk:
		if c.Dir == "" {
			return errors.New("dir is required for disk storage")
		}
	case ReceiptStorageFirebase:
		if c.Bucket == "" {
			return errors.New("bucket is required for firebase storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.MaxFileSize < 0 {
		return errors.New("max_file_size cannot be negative")
	}
	return nil
}
