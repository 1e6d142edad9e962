package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strutil "safesupport/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AppURL        string
	APIURL        string

	// AllowPublicAlerts lets unauthenticated callers use the SMS/email alert endpoints.
	AllowPublicAlerts bool
	// AllowUnverifiedAlerts skips the verified-email check on alert endpoints.
	AllowUnverifiedAlerts bool

	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	Storage   StorageConfig
	SMS       SMSConfig
	SMTP      SMTPConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// StorageConfig locates the flat files the service keeps its state in.
type StorageConfig struct {
	// UserStore selects the user backend: file, redis or postgres.
	UserStore string
	// AlertLogStore selects the alert log backend: file or postgres.
	AlertLogStore string

	DataDir    string
	UsersFile  string
	AlertsFile string
	ReportsDir string
	SMSDir     string
	EmailDir   string
}

// SMSConfig holds provider credentials in priority order.
type SMSConfig struct {
	TwilioSID       string
	TwilioAuthToken string
	TwilioFrom      string

	VonageAPIKey    string
	VonageAPISecret string
	VonageFrom      string

	ATUsername string
	ATAPIKey   string
	ATFrom     string

	// RatePerSecond caps provider sends; zero means unlimited.
	RatePerSecond  float64
	FallbackToFile bool
}

// SMTPConfig configures the email transport.
type SMTPConfig struct {
	Host           string
	Port           int
	User           string
	Pass           string
	From           string
	FallbackToFile bool
}

// Configured reports whether enough SMTP settings exist to attempt a send.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

// RedisConfig configures the optional Redis user store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional Postgres user store.
type PostgresConfig struct {
	URL      string
	MaxConns int32
}

// RateLimitConfig bounds per-IP request rates on the auth routes.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Disabled bool
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func FromEnv() Server {
	_ = godotenv.Load()

	addr := os.Getenv("SAFESUPPORT_ADDR")
	if addr == "" {
		addr = ":" + getEnv("PORT", "4000")
	}

	jwtSigningKey := os.Getenv("JWT_SECRET")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-change-me"
	}

	dataDir := getEnv("DATA_DIR", "data")
	port := getEnv("PORT", "4000")

	return Server{
		Addr:                  addr,
		JWTSigningKey:         jwtSigningKey,
		AppURL:                getEnv("APP_URL", "http://localhost:5173"),
		APIURL:                getEnv("API_URL", "http://localhost:"+port),
		AllowPublicAlerts:     getBool("ALLOW_PUBLIC_ALERTS", false),
		AllowUnverifiedAlerts: getBool("ALLOW_UNVERIFIED_ALERTS", false),
		CORSOrigins:           strutil.SplitList(os.Getenv("CORS_ORIGINS")),
		ShutdownTimeout:       getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Storage: StorageConfig{
			UserStore:     getEnv("USER_STORE", "file"),
			AlertLogStore: getEnv("ALERT_LOG_STORE", "file"),
			DataDir:       dataDir,
			UsersFile:     getEnv("USERS_FILE", filepath.Join(dataDir, "users.json")),
			AlertsFile:    getEnv("ALERTS_FILE", filepath.Join(dataDir, "alerts.jsonl")),
			ReportsDir:    getEnv("REPORTS_DIR", filepath.Join(dataDir, "reports_vault")),
			SMSDir:        getEnv("SMS_DIR", filepath.Join(dataDir, "sms")),
			EmailDir:      getEnv("EMAIL_DIR", filepath.Join(dataDir, "emails")),
		},
		SMS: SMSConfig{
			TwilioSID:       os.Getenv("TWILIO_SID"),
			TwilioAuthToken: os.Getenv("TWILIO_AUTH_TOKEN"),
			TwilioFrom:      os.Getenv("TWILIO_FROM"),
			VonageAPIKey:    os.Getenv("VONAGE_API_KEY"),
			VonageAPISecret: os.Getenv("VONAGE_API_SECRET"),
			VonageFrom:      os.Getenv("VONAGE_FROM"),
			ATUsername:      os.Getenv("AT_USERNAME"),
			ATAPIKey:        os.Getenv("AT_API_KEY"),
			ATFrom:          os.Getenv("AT_FROM"),
			RatePerSecond:   getFloat("SMS_RATE_PER_SECOND", 0),
			FallbackToFile:  getBool("SMS_FALLBACK_TO_FILE", true),
		},
		SMTP: SMTPConfig{
			Host:           os.Getenv("SMTP_HOST"),
			Port:           getInt("SMTP_PORT", 587),
			User:           os.Getenv("SMTP_USER"),
			Pass:           os.Getenv("SMTP_PASS"),
			From:           getEnv("FROM_EMAIL", "SafeSupport <no-reply@safesupport.local>"),
			FallbackToFile: getBool("EMAIL_FALLBACK_TO_FILE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getInt("DATABASE_MAX_CONNS", 10)),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
			Disabled: getBool("RATE_LIMIT_DISABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getBool treats only "false" (any case) as false when a default of true is
// wanted, and only "true" (any case) as true otherwise.
func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if fallback {
		return !strings.EqualFold(v, "false")
	}
	return strings.EqualFold(v, "true")
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
