package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Loans
		Audit
		Tasks
		Scheduler
		Metrics
		Catalog
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
		Seed bool // Seed sample users and books on startup when the catalog is empty
	}
	Auth struct {
		SessionSecret    string
		SessionLifetime  time.Duration
		BcryptCost       int
		SecureCookies    bool // Set to false for local dev without HTTPS
		CSRFEnabled      bool
		AllowAdminSignup bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Loans struct {
		MaxActive int           // Concurrent active loans allowed per user
		Period    time.Duration // Due date offset from the borrow date
	}
	Audit struct {
		RetentionDays int
		ArchiveDir    string // Expired events are written here before deletion; empty disables archiving
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Scheduler struct {
		Enabled              bool
		OverdueScanSchedule  string // Cron format: "0 6 * * *" = daily at 06:00
		AuditCleanupSchedule string
		CoverSweepSchedule   string // Only used when Catalog.CoverLookup is on
	}
	Metrics struct {
		Enabled bool
	}
	Catalog struct {
		CoverLookup   bool   // Fetch missing cover images from OpenLibrary by ISBN
		CoverCacheDir string // Serve covers from local disk when set
	}
)

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables that are already set win over the file. A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if fileExists(p) {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_seed", true)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 10)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", false)   // Campus deployments terminate TLS upstream
	v.SetDefault("auth_csrf_enabled", false)     // JSON clients send no CSRF token by default
	v.SetDefault("auth_allow_admin_signup", false)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	// Loan policy
	v.SetDefault("loan_max_active", DefaultMaxActiveLoans)
	v.SetDefault("loan_period", DefaultLoanPeriod.String())

	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_archive_dir", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("overdue_scan_schedule", "0 6 * * *")
	v.SetDefault("audit_cleanup_schedule", "30 3 * * 0")
	v.SetDefault("cover_sweep_schedule", "0 4 * * *")

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("catalog_cover_lookup", false)
	v.SetDefault("catalog_cover_cache_dir", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
			Seed: v.GetBool("DATABASE_SEED"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			AllowAdminSignup: v.GetBool("AUTH_ALLOW_ADMIN_SIGNUP"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Loans: Loans{
			MaxActive: v.GetInt("LOAN_MAX_ACTIVE"),
			Period:    v.GetDuration("LOAN_PERIOD"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			ArchiveDir:    v.GetString("AUDIT_ARCHIVE_DIR"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Scheduler: Scheduler{
			Enabled:              v.GetBool("SCHEDULER_ENABLED"),
			OverdueScanSchedule:  v.GetString("OVERDUE_SCAN_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
			CoverSweepSchedule:   v.GetString("COVER_SWEEP_SCHEDULE"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Catalog: Catalog{
			CoverLookup:   v.GetBool("CATALOG_COVER_LOOKUP"),
			CoverCacheDir: v.GetString("CATALOG_COVER_CACHE_DIR"),
		},
	}
}
