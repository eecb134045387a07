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
	Assignment    AssignmentConfig
	Presence      PresenceConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Retention     RetentionConfig
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
	Env          string `envconfig:"HELPLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"HELPLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HELPLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HELPLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HELPLANE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HELPLANE_DB_DSN"`
	Driver string `envconfig:"HELPLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HELPLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"HELPLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HELPLANE_DB_USER"`
	LegacyPassword string `envconfig:"HELPLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HELPLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HELPLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HELPLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HELPLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HELPLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HELPLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HELPLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HELPLANE_REDIS_ADDR"`
	Password     string        `envconfig:"HELPLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HELPLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HELPLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HELPLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HELPLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HELPLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HELPLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"HELPLANE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"HELPLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"HELPLANE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"HELPLANE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HELPLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HELPLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HELPLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HELPLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HELPLANE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"HELPLANE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"HELPLANE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"HELPLANE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HELPLANE_AUTO_MIGRATE" default:"false"`
}

// AssignmentConfig carries dispatch-core tunables that are not per-inbox.
type AssignmentConfig struct {
	// StoreTimeout bounds a single conditional-assignment round trip. A
	// timed-out write is an unknown outcome; the caller may retry the CAS
	// with the same expectation.
	StoreTimeout time.Duration `envconfig:"HELPLANE_ASSIGNMENT_STORE_TIMEOUT" default:"3s"`
}

type PresenceConfig struct {
	// TTL is the lifetime of a presence mark. Clients refresh it on a
	// heartbeat cadence well under this value.
	TTL time.Duration `envconfig:"HELPLANE_PRESENCE_TTL" default:"90s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"HELPLANE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"HELPLANE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"HELPLANE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AssignmentTopic        string `envconfig:"HELPLANE_PUBSUB_ASSIGNMENT_TOPIC" default:"hl-assignment-events"`
	AssignmentSubscription string `envconfig:"HELPLANE_PUBSUB_ASSIGNMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"HELPLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"HELPLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"HELPLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"HELPLANE_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

type RetentionConfig struct {
	AuditWindow time.Duration `envconfig:"HELPLANE_AUDIT_RETENTION_WINDOW" default:"2160h"`
	OutboxDays  int           `envconfig:"HELPLANE_OUTBOX_RETENTION_DAYS" default:"14"`
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
