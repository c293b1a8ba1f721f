package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	httpapi "github.com/aussiebroadwan/roomstay/internal/auth/http"
	"github.com/aussiebroadwan/roomstay/internal/auth/notify"
	"github.com/aussiebroadwan/roomstay/pkg/jwtx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	NotifyLog      = "log"
	NotifySendGrid = "sendgrid"
)

// Config is read from the environment. Nested sections take the prefix in
// their envPrefix tag, so Auth.TokenTTL is AUTH_TOKEN_TTL.
type Config struct {
	Env                 string        `env:"ENV" envDefault:"dev"`
	Port                int           `env:"PORT" envDefault:"8080"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Auth         AuthConfig            `envPrefix:"AUTH_"`
	Database     DatabaseConfig        `envPrefix:"DATABASE_"`
	Housekeeping HousekeepingConfig    `envPrefix:"HOUSEKEEPING_"`
	Notify       NotifyConfig          `envPrefix:"NOTIFY_"`
	SendGrid     notify.SendGridConfig `envPrefix:"SENDGRID_"`
	RateLimits   httpapi.RateLimits    `envPrefix:"RATELIMIT_"`
}

type AuthConfig struct {
	Issuer string `env:"ISSUER" envDefault:"roomstay-auth"`

	// TokenSecret signs session tokens. Outside dev it must be set; in dev
	// an empty secret is replaced with a random one at startup.
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"1h"`

	PepperFile string `env:"PEPPER_FILE" envDefault:"pepper"`
}

// DatabaseConfig selects the driver. File is used by sqlite, DSN by postgres.
type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	File   string `env:"FILE" envDefault:"auth.db"`
	DSN    string `env:"DSN"`
}

// HousekeepingConfig holds cron specs for the two sweeps. Empty specs use
// the service defaults.
type HousekeepingConfig struct {
	TokenSchedule        string `env:"TOKEN_SCHEDULE"`
	VerificationSchedule string `env:"VERIFICATION_SCHEDULE"`
}

type NotifyConfig struct {
	Driver        string        `env:"DRIVER" envDefault:"log"`
	QueueSize     int           `env:"QUEUE_SIZE" envDefault:"256"`
	Workers       int           `env:"WORKERS" envDefault:"2"`
	SendTimeout   time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
	RatePerSecond float64       `env:"RATE_PER_SECOND"`
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

func loadConfig(opts env.Options) (Config, error) {
	// Fields without envDefault keep what is already set when the variable
	// is absent, so the throttling profiles start from the built-in ones.
	cfg := Config{RateLimits: httpapi.DefaultRateLimits()}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsDev() bool { return c.Env == "dev" }

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.ShutdownGracePeriod <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_GRACE_PERIOD must be positive"))
	}

	switch {
	case c.Auth.TokenSecret == "" && !c.IsDev():
		errs = append(errs, errors.New("AUTH_TOKEN_SECRET is required outside dev"))
	case c.Auth.TokenSecret != "" && len(c.Auth.TokenSecret) < jwtx.MinSecretSize:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretSize))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.File == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver))
	}

	switch c.Notify.Driver {
	case NotifyLog:
		// The log notifier writes codes in plain text.
		if !c.IsDev() {
			errs = append(errs, errors.New("NOTIFY_DRIVER=log is only allowed with ENV=dev"))
		}
	case NotifySendGrid:
		if c.SendGrid.APIKey == "" || c.SendGrid.FromEmail == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY and SENDGRID_FROM_EMAIL are required for the sendgrid notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_DRIVER must be %q or %q, got %q", NotifyLog, NotifySendGrid, c.Notify.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
