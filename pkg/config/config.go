package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Dispatch      DispatchConfig
	SMS           SMSConfig
	Printer       PrinterConfig
	Cron          CronConfig
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
	Env          string `envconfig:"MEHUSTAJA_APP_ENV" required:"true"`
	Port         string `envconfig:"MEHUSTAJA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEHUSTAJA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEHUSTAJA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEHUSTAJA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEHUSTAJA_DB_DSN"`
	Driver string `envconfig:"MEHUSTAJA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEHUSTAJA_DB_HOST"`
	LegacyPort     int    `envconfig:"MEHUSTAJA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEHUSTAJA_DB_USER"`
	LegacyPassword string `envconfig:"MEHUSTAJA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEHUSTAJA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEHUSTAJA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEHUSTAJA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEHUSTAJA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEHUSTAJA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEHUSTAJA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEHUSTAJA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEHUSTAJA_REDIS_ADDR"`
	Password     string        `envconfig:"MEHUSTAJA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEHUSTAJA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEHUSTAJA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEHUSTAJA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEHUSTAJA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEHUSTAJA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEHUSTAJA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEHUSTAJA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEHUSTAJA_JWT_ISSUER" default:"mehustaja"`
	ExpirationMinutes int    `envconfig:"MEHUSTAJA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MEHUSTAJA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEHUSTAJA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEHUSTAJA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEHUSTAJA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEHUSTAJA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"MEHUSTAJA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginAccountLimit int           `envconfig:"MEHUSTAJA_AUTH_RATE_LIMIT_LOGIN_ACCOUNT_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"MEHUSTAJA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEHUSTAJA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEHUSTAJA_AUTO_MIGRATE" default:"false"`
}

type DispatchConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MEHUSTAJA_DISPATCH_IDEMPOTENCY_TTL" default:"10s"`
	DefaultRegion  string        `envconfig:"MEHUSTAJA_DISPATCH_DEFAULT_REGION" default:"+358"`
}

type SMSConfig struct {
	GatewayURL string        `envconfig:"MEHUSTAJA_SMS_GATEWAY_URL"`
	APIKey     string        `envconfig:"MEHUSTAJA_SMS_API_KEY"`
	SenderID   string        `envconfig:"MEHUSTAJA_SMS_SENDER_ID" default:"Mehustaja"`
	Timeout    time.Duration `envconfig:"MEHUSTAJA_SMS_TIMEOUT" default:"10s"`
	DryRun     bool          `envconfig:"MEHUSTAJA_SMS_DRY_RUN" default:"false"`
}

type PrinterConfig struct {
	Host        string        `envconfig:"MEHUSTAJA_PRINTER_HOST"`
	JobPort     int           `envconfig:"MEHUSTAJA_PRINTER_JOB_PORT" default:"3003"`
	TestPort    int           `envconfig:"MEHUSTAJA_PRINTER_TEST_PORT" default:"3001"`
	JobName     string        `envconfig:"MEHUSTAJA_PRINTER_JOB_NAME" default:"POUCH_LABEL"`
	DialTimeout time.Duration `envconfig:"MEHUSTAJA_PRINTER_DIAL_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	ReconcileInterval time.Duration `envconfig:"MEHUSTAJA_CRON_RECONCILE_INTERVAL" default:"5m"`
	LockTTL           time.Duration `envconfig:"MEHUSTAJA_CRON_LOCK_TTL" default:"4m"`
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
