package app

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/roomstay/internal/auth/http"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func load(t *testing.T, vars map[string]string) (Config, error) {
	t.Helper()
	return loadConfig(env.Options{Environment: vars})
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Empty(t, cfg.CORSAllowedOrigins)

	require.Equal(t, "roomstay-auth", cfg.Auth.Issuer)
	require.Empty(t, cfg.Auth.TokenSecret)
	require.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, "pepper", cfg.Auth.PepperFile)

	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "auth.db", cfg.Database.File)

	require.Equal(t, NotifyLog, cfg.Notify.Driver)
	require.Equal(t, 256, cfg.Notify.QueueSize)
	require.Equal(t, 2, cfg.Notify.Workers)
	require.Equal(t, "Roomstay", cfg.SendGrid.FromName)

	require.Equal(t, httpapi.DefaultRateLimits(), cfg.RateLimits)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"ENV":                                "prod",
		"PORT":                               "9090",
		"CORS_ALLOWED_ORIGINS":               "https://roomstay.example,https://admin.roomstay.example",
		"AUTH_TOKEN_SECRET":                  validSecret,
		"AUTH_TOKEN_TTL":                     "30m",
		"DATABASE_DRIVER":                    "postgres",
		"DATABASE_DSN":                       "postgres://roomstay@localhost/roomstay",
		"HOUSEKEEPING_TOKEN_SCHEDULE":        "@every 5m",
		"HOUSEKEEPING_VERIFICATION_SCHEDULE": "0 * * * *",
		"NOTIFY_DRIVER":                      "sendgrid",
		"NOTIFY_WORKERS":                     "4",
		"SENDGRID_API_KEY":                   "SG.key",
		"SENDGRID_FROM_EMAIL":                "no-reply@roomstay.example",
		"SENDGRID_SANDBOX":                   "true",
		"RATELIMIT_STRICT_REQUESTS":          "2",
		"RATELIMIT_STRICT_WINDOW":            "30s",
		"RATELIMIT_LENIENT_BURST":            "500",
	})
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, []string{"https://roomstay.example", "https://admin.roomstay.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, "@every 5m", cfg.Housekeeping.TokenSchedule)
	require.Equal(t, "0 * * * *", cfg.Housekeeping.VerificationSchedule)
	require.Equal(t, 4, cfg.Notify.Workers)
	require.True(t, cfg.SendGrid.Sandbox)

	defaults := httpapi.DefaultRateLimits()
	require.Equal(t, 2, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Strict.Window)
	require.Equal(t, defaults.Strict.Burst, cfg.RateLimits.Strict.Burst)
	require.Equal(t, 500, cfg.RateLimits.Lenient.Burst)
	require.Equal(t, defaults.Moderate, cfg.RateLimits.Moderate)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{
			name: "secret required outside dev",
			vars: map[string]string{"ENV": "prod"},
			want: "AUTH_TOKEN_SECRET is required",
		},
		{
			name: "short secret",
			vars: map[string]string{"AUTH_TOKEN_SECRET": "too-short"},
			want: "at least 32 bytes",
		},
		{
			name: "unknown database driver",
			vars: map[string]string{"DATABASE_DRIVER": "mysql"},
			want: "DATABASE_DRIVER",
		},
		{
			name: "postgres without dsn",
			vars: map[string]string{"DATABASE_DRIVER": "postgres"},
			want: "DATABASE_DSN is required",
		},
		{
			name: "log notifier outside dev",
			vars: map[string]string{"ENV": "prod", "AUTH_TOKEN_SECRET": validSecret},
			want: "NOTIFY_DRIVER=log is only allowed with ENV=dev",
		},
		{
			name: "sendgrid without key",
			vars: map[string]string{"NOTIFY_DRIVER": "sendgrid"},
			want: "SENDGRID_API_KEY",
		},
		{
			name: "unknown notifier",
			vars: map[string]string{"NOTIFY_DRIVER": "pigeon"},
			want: "NOTIFY_DRIVER",
		},
		{
			name: "bad port",
			vars: map[string]string{"PORT": "70000"},
			want: "PORT must be between",
		},
		{
			name: "non-positive ttl",
			vars: map[string]string{"AUTH_TOKEN_TTL": "0s"},
			want: "AUTH_TOKEN_TTL",
		},
		{
			name: "unparsable duration",
			vars: map[string]string{"AUTH_TOKEN_TTL": "soon"},
			want: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.vars)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	_, err := load(t, map[string]string{
		"ENV":             "prod",
		"DATABASE_DRIVER": "mysql",
		"NOTIFY_DRIVER":   "pigeon",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUTH_TOKEN_SECRET")
	require.Contains(t, err.Error(), "DATABASE_DRIVER")
	require.Contains(t, err.Error(), "NOTIFY_DRIVER")
}

func TestValidate_NotifierByEnvironment(t *testing.T) {
	base := Config{
		Env:                 "staging",
		Port:                8080,
		ShutdownGracePeriod: time.Second,
		Auth:                AuthConfig{TokenSecret: validSecret, TokenTTL: time.Hour},
		Database:            DatabaseConfig{Driver: DriverSQLite, File: "auth.db"},
		Notify:              NotifyConfig{Driver: NotifyLog},
	}
	require.ErrorContains(t, base.Validate(), "NOTIFY_DRIVER=log")

	dev := base
	dev.Env = "dev"
	require.NoError(t, dev.Validate())

	sg := base
	sg.Notify.Driver = NotifySendGrid
	sg.SendGrid.APIKey = "SG.key"
	sg.SendGrid.FromEmail = "no-reply@roomstay.example"
	require.NoError(t, sg.Validate())
}

func TestNew_SQLiteWithLogNotifier(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, map[string]string{
		"DATABASE_FILE":    dir + "/auth.db",
		"AUTH_PEPPER_FILE": dir + "/pepper",
		"LOG_LEVEL":        "error",
	})
	require.NoError(t, err)

	application, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, application.router)
	require.NotNil(t, application.codec)
	require.FileExists(t, dir+"/pepper")

	// Shutdown before Run still releases the database.
	require.NoError(t, application.Shutdown())
}

func TestRun_HousekeepingFailureStartsNothing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, map[string]string{
		"DATABASE_FILE":               dir + "/auth.db",
		"AUTH_PEPPER_FILE":            dir + "/pepper",
		"LOG_LEVEL":                   "error",
		"HOUSEKEEPING_TOKEN_SCHEDULE": "whenever",
	})
	require.NoError(t, err)

	application, err := New(cfg)
	require.NoError(t, err)

	err = application.Run()
	require.ErrorContains(t, err, "failed to start housekeeping")
	require.False(t, application.dispatcher.Running())

	require.NoError(t, application.Shutdown())
}
