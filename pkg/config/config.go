package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "ARMAZEM_APP_ENV"
	EnvDBDSN  = "ARMAZEM_DB_DSN"
	EnvDBHost = "ARMAZEM_DB_HOST"
	EnvDBUser = "ARMAZEM_DB_USER"
	EnvDBName = "ARMAZEM_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	SMTP         SMTPConfig
	WebPush      WebPushConfig
	Jobs         JobsConfig
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
	Env          string `envconfig:"ARMAZEM_APP_ENV" required:"true"`
	Port         string `envconfig:"ARMAZEM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ARMAZEM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARMAZEM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ARMAZEM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ARMAZEM_DB_DSN"`
	Driver string `envconfig:"ARMAZEM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARMAZEM_DB_HOST"`
	LegacyPort     int    `envconfig:"ARMAZEM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARMAZEM_DB_USER"`
	LegacyPassword string `envconfig:"ARMAZEM_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARMAZEM_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARMAZEM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARMAZEM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARMAZEM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARMAZEM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARMAZEM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ARMAZEM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ARMAZEM_REDIS_ADDR"`
	Password     string        `envconfig:"ARMAZEM_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARMAZEM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARMAZEM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARMAZEM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARMAZEM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARMAZEM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARMAZEM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ARMAZEM_AUTO_MIGRATE" default:"false"`
}

// SMTPConfig controls outbound alert e-mail. Delivery is disabled when host,
// user or password are missing.
type SMTPConfig struct {
	Host     string `envconfig:"ARMAZEM_SMTP_HOST"`
	Port     int    `envconfig:"ARMAZEM_SMTP_PORT" default:"587"`
	User     string `envconfig:"ARMAZEM_SMTP_USER"`
	Password string `envconfig:"ARMAZEM_SMTP_PASS"`
	From     string `envconfig:"ARMAZEM_ALERT_FROM_EMAIL" default:"alerts@bomjesus.local"`
}

// Configured reports whether enough is present to attempt SMTP delivery.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// WebPushConfig carries the VAPID key pair for push alert delivery.
type WebPushConfig struct {
	VAPIDPublicKey  string `envconfig:"ARMAZEM_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"ARMAZEM_VAPID_PRIVATE_KEY"`
	Subject         string `envconfig:"ARMAZEM_VAPID_SUBJECT" default:"mailto:admin@bomjesus.local"`
}

// Configured reports whether push delivery can be attempted.
func (w WebPushConfig) Configured() bool {
	return w.VAPIDPublicKey != "" && w.VAPIDPrivateKey != ""
}

// JobsConfig tunes the scheduled pipeline jobs.
type JobsConfig struct {
	ProcessInterval    time.Duration `envconfig:"ARMAZEM_JOB_PROCESS_INTERVAL" default:"1m"`
	ProcessBatchSize   int           `envconfig:"ARMAZEM_JOB_PROCESS_BATCH" default:"200"`
	RefreshInterval    time.Duration `envconfig:"ARMAZEM_JOB_REFRESH_INTERVAL" default:"5m"`
	AlertsInterval     time.Duration `envconfig:"ARMAZEM_JOB_ALERTS_INTERVAL" default:"10m"`
	MaturationInterval time.Duration `envconfig:"ARMAZEM_JOB_MATURATION_INTERVAL" default:"24h"`
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
