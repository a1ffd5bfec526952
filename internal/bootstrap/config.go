package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the server configuration. Every field has a flag; the flag name
// upper-cased with underscores is its environment variable (db-user -> DB_USER).
type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret      string
	JWTExpiryHours int

	Port              int
	AppEnv            string
	LogLevel          string
	CORSAllowedOrigin string

	RateLimitMax          int
	RateLimitWindow       time.Duration
	PresenceSweepInterval time.Duration
}

// BindFlags registers the server flags on fs.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.DBUser, "db-user", "", "MySQL user (env: DB_USER)")
	fs.StringVar(&cfg.DBPassword, "db-password", "", "MySQL password (env: DB_PASSWORD)")
	fs.StringVar(&cfg.DBHost, "db-host", "127.0.0.1", "MySQL host (env: DB_HOST)")
	fs.StringVar(&cfg.DBPort, "db-port", "3306", "MySQL port (env: DB_PORT)")
	fs.StringVar(&cfg.DBName, "db-name", "aura_board", "MySQL database (env: DB_NAME)")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", "127.0.0.1:6379", "redis address (env: REDIS_ADDR)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", "", "redis password (env: REDIS_PASSWORD)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: REDIS_DB)")
	fs.StringVar(&cfg.KeyPrefix, "redis-key-prefix", "aura:", "prefix for redis keys and channels (env: REDIS_KEY_PREFIX)")

	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HMAC secret for session tokens (env: JWT_SECRET)")
	fs.IntVar(&cfg.JWTExpiryHours, "jwt-expiry-hours", 24, "session token lifetime in hours (env: JWT_EXPIRY_HOURS)")

	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PORT)")
	fs.StringVar(&cfg.AppEnv, "app-env", "development", "development or production (env: APP_ENV)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "logrus level (env: LOG_LEVEL)")
	fs.StringVar(&cfg.CORSAllowedOrigin, "cors-allowed-origin", "http://localhost:3000", "allowed CORS origin, * for any (env: CORS_ALLOWED_ORIGIN)")

	fs.IntVar(&cfg.RateLimitMax, "rate-limit-max", 100, "requests per client IP per window (env: RATE_LIMIT_MAX)")
	fs.DurationVar(&cfg.RateLimitWindow, "rate-limit-window", time.Second, "rate limit window (env: RATE_LIMIT_WINDOW)")
	fs.DurationVar(&cfg.PresenceSweepInterval, "presence-sweep-interval", time.Minute, "how often watched rooms are marked active (env: PRESENCE_SWEEP_INTERVAL)")
}

// LoadConfig fills unset flags from the environment (after loading .env, if
// present) and validates the result. Flags given on the command line win.
func LoadConfig(fs *pflag.FlagSet, cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file loaded")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && setErr == nil {
				setErr = fmt.Errorf("invalid value for %s: %w", f.Name, err)
			}
		}
	})
	if setErr != nil {
		return setErr
	}
	return cfg.validate()
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("--jwt-secret (env: JWT_SECRET) must be set")
	}
	if c.DBUser == "" {
		return errors.New("--db-user (env: DB_USER) must be set")
	}
	if c.RedisAddr == "" {
		return errors.New("--redis-addr (env: REDIS_ADDR) must be set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.AppEnv != "development" && c.AppEnv != "production" {
		return fmt.Errorf("invalid app env %q (want development or production)", c.AppEnv)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("invalid jwt expiry: %d hours", c.JWTExpiryHours)
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	if c.PresenceSweepInterval < time.Second {
		return fmt.Errorf("presence sweep interval too short: %s", c.PresenceSweepInterval)
	}
	return nil
}

// NewLogger builds the application logger: JSON in production, text otherwise.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
