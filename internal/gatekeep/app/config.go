package app

import (
	"fmt"
	"strings"
	"time"

	httpapi "github.com/aussiebroadwan/gatekeep/internal/gatekeep/http"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/notify"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
	"github.com/ilyakaznacheev/cleanenv"
)

// Challenge store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Prefix   string `env:"REDIS_PREFIX" env-default:"gatekeep:challenge"`
}

// SMTPConfig is left disabled when Host is empty, in which case codes are
// written to the log instead of being mailed.
type SMTPConfig struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" env-default:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	From     string        `env:"SMTP_FROM" env-default:"gatekeep@localhost"`
	TLS      bool          `env:"SMTP_TLS" env-default:"true"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" env-default:"30s"`
}

func (c SMTPConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

func (c SMTPConfig) notify() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		From:     c.From,
		TLS:      c.TLS,
		Timeout:  c.Timeout,
	}
}

type RateLimitConfig struct {
	LoginPerMinute   int `env:"RATE_LIMIT_LOGIN" env-default:"5"`
	AccountPerMinute int `env:"RATE_LIMIT_ACCOUNT" env-default:"20"`
	ProbePerMinute   int `env:"RATE_LIMIT_PROBE" env-default:"100"`
}

func (c RateLimitConfig) limit(n int) httpx.RateLimitConfig {
	return httpx.RateLimitConfig{RequestsPerWindow: n, Window: time.Minute, Burst: n}
}

// Config holds all runtime settings. Everything comes from the environment.
type Config struct {
	Issuer       string `env:"GATEKEEP_ISSUER" env-default:"gatekeep"`
	DatabaseFile string `env:"GATEKEEP_DATABASE_FILE" env-default:"gatekeep.db"`
	PepperFile   string `env:"GATEKEEP_PEPPER_FILE" env-default:"pepper.key"`
	TokenKeyFile string `env:"GATEKEEP_TOKEN_KEY_FILE" env-default:"token.key"`

	// Seeded once at startup when no user with SeedEmail exists.
	SeedEmail    string `env:"GATEKEEP_SEED_EMAIL"`
	SeedPassword string `env:"GATEKEEP_SEED_PASSWORD"`

	Env       string `env:"ENV" env-default:"dev"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`
	Port      string `env:"PORT" env-default:"8080"`

	EnrollmentTTL     time.Duration `env:"ENROLLMENT_TTL" env-default:"10m"`
	EmailCodeTTL      time.Duration `env:"EMAIL_CODE_TTL" env-default:"10m"`
	LoginChallengeTTL time.Duration `env:"LOGIN_CHALLENGE_TTL" env-default:"5m"`
	SessionTTL        time.Duration `env:"SESSION_TTL" env-default:"12h"`

	ChallengeBackend string `env:"CHALLENGE_BACKEND" env-default:"sqlite"`
	Redis            RedisConfig
	SMTP             SMTPConfig
	RateLimit        RateLimitConfig

	// ChallengeRetention keeps consumed and expired challenges around after
	// their expiry so late submissions are told the right thing. Both
	// backends honour it.
	ChallengeRetention   time.Duration `env:"CHALLENGE_RETENTION" env-default:"1h"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg.ChallengeBackend = strings.ToLower(strings.TrimSpace(cfg.ChallengeBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.ChallengeBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown CHALLENGE_BACKEND %q", c.ChallengeBackend)
	}

	for name, d := range map[string]time.Duration{
		"ENROLLMENT_TTL":      c.EnrollmentTTL,
		"EMAIL_CODE_TTL":      c.EmailCodeTTL,
		"LOGIN_CHALLENGE_TTL": c.LoginChallengeTTL,
		"SESSION_TTL":         c.SessionTTL,
		"CHALLENGE_RETENTION": c.ChallengeRetention,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	for name, n := range map[string]int{
		"RATE_LIMIT_LOGIN":   c.RateLimit.LoginPerMinute,
		"RATE_LIMIT_ACCOUNT": c.RateLimit.AccountPerMinute,
		"RATE_LIMIT_PROBE":   c.RateLimit.ProbePerMinute,
	} {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}

	if c.Env == "prod" && !c.SMTP.Enabled() {
		return fmt.Errorf("SMTP_HOST is required when ENV=prod")
	}

	if (c.SeedEmail == "") != (c.SeedPassword == "") {
		return fmt.Errorf("GATEKEEP_SEED_EMAIL and GATEKEEP_SEED_PASSWORD must be set together")
	}
	return nil
}

// Limits maps the configured per-minute budgets onto router limits.
func (c Config) Limits() httpapi.Limits {
	return httpapi.Limits{
		Login:   c.RateLimit.limit(c.RateLimit.LoginPerMinute),
		Account: c.RateLimit.limit(c.RateLimit.AccountPerMinute),
		Probe:   c.RateLimit.limit(c.RateLimit.ProbePerMinute),
	}
}
