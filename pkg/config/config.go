package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "easyq"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "EASYQ_DB_DSN"
	EnvDBHost = "EASYQ_DB_HOST"
	EnvDBUser = "EASYQ_DB_USER"
	EnvDBName = "EASYQ_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Mail         MailConfig
	SMS          SMSConfig
	Billing      BillingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EASYQ_APP_ENV" required:"true"`
	Port         string `envconfig:"EASYQ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EASYQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EASYQ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EASYQ_DB_DSN"`
	Driver string `envconfig:"EASYQ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EASYQ_DB_HOST"`
	LegacyPort     int    `envconfig:"EASYQ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EASYQ_DB_USER"`
	LegacyPassword string `envconfig:"EASYQ_DB_PASSWORD"`
	LegacyName     string `envconfig:"EASYQ_DB_NAME"`
	LegacySSLMode  string `envconfig:"EASYQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EASYQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EASYQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EASYQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EASYQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EASYQ_REDIS_URL"`
	Address      string        `envconfig:"EASYQ_REDIS_ADDR"`
	Password     string        `envconfig:"EASYQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"EASYQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EASYQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EASYQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EASYQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EASYQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EASYQ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EASYQ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EASYQ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EASYQ_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type MailConfig struct {
	SMTPHost     string `envconfig:"EASYQ_SMTP_HOST"`
	SMTPPort     int    `envconfig:"EASYQ_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"EASYQ_SMTP_USER"`
	SMTPPassword string `envconfig:"EASYQ_SMTP_PASSWORD"`
	FromEmail    string `envconfig:"EASYQ_MAIL_FROM"`
	AdminEmail   string `envconfig:"EASYQ_MAIL_ADMIN"`
}

// Enabled reports whether SMTP delivery is configured at all.
func (m MailConfig) Enabled() bool {
	return m.SMTPHost != "" && m.FromEmail != ""
}

type SMSConfig struct {
	BaseURL  string        `envconfig:"EASYQ_SMS_BASE_URL"`
	APIKey   string        `envconfig:"EASYQ_SMS_API_KEY"`
	SenderID string        `envconfig:"EASYQ_SMS_SENDER_ID"`
	Timeout  time.Duration `envconfig:"EASYQ_SMS_TIMEOUT" default:"10s"`
}

// Enabled reports whether the SMS gateway is configured.
func (s SMSConfig) Enabled() bool {
	return s.BaseURL != "" && s.APIKey != ""
}

type BillingConfig struct {
	FreePackageSlug string        `envconfig:"EASYQ_BILLING_FREE_PACKAGE_SLUG" default:"free"`
	DefaultCurrency string        `envconfig:"EASYQ_BILLING_DEFAULT_CURRENCY" default:"BDT"`
	IdempotencyTTL  time.Duration `envconfig:"EASYQ_BILLING_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EASYQ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EASYQ_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
