package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time backs the rate limit refill intervals
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required values are enforced at startup so a
// misconfigured deployment fails fast instead of at the first request.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign JWTs

	OTPTTLMin     int // minutes an issued OTP stays valid
	OTPMaxRetries int // verification attempts allowed per OTP
	TokenTTLHours int // access token time-to-live in hours

	SMTPHost string // SMTP relay host (empty disables mail delivery)
	SMTPPort int    // SMTP relay port
	SMTPUser string // SMTP username
	SMTPPass string // SMTP password
	OTPFrom  string // From address on OTP mails

	GSTAPIURL string // GST verification provider endpoint
	GSTAPIKey string // provider api-key header
	GSTAppID  string // provider app-id header
	PANAPIURL string // PAN verification provider endpoint
	PANAPIKey string // PAN api-key override (falls back to GST key)
	PANAppID  string // PAN app-id override (falls back to GST app id)

	UploadDir string // root directory for entity document uploads

	OTPRateLimit    RateLimitConfig // throttle on /auth/request-otp
	VerifyRateLimit RateLimitConfig // throttle on the GST/PAN provider proxies
}

// PANKey returns the PAN provider api-key, falling back to the GST key when
// no override is set. The provider shares credentials across products.
func (c Config) PANKey() string {
	if c.PANAPIKey != "" {
		return c.PANAPIKey
	}
	return c.GSTAPIKey
}

// PANApp returns the PAN provider app-id with the same fallback.
func (c Config) PANApp() string {
	if c.PANAppID != "" {
		return c.PANAppID
	}
	return c.GSTAppID
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       getenv("APP_ENV", "dev"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		OTPTTLMin:     envInt("OTP_TTL_MIN", 10),
		OTPMaxRetries: envInt("OTP_MAX_RETRIES", 5),
		TokenTTLHours: envInt("TOKEN_TTL_HOURS", 8),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		OTPFrom:  getenv("OTP_FROM", "no-reply@example.com"),

		GSTAPIURL: os.Getenv("GST_API_URL"),
		GSTAPIKey: os.Getenv("GST_API_KEY"),
		GSTAppID:  os.Getenv("GST_APP_ID"),
		PANAPIURL: os.Getenv("PAN_API_URL"),
		PANAPIKey: os.Getenv("PAN_API_KEY"),
		PANAppID:  os.Getenv("PAN_APP_ID"),

		UploadDir: getenv("UPLOAD_DIR", "uploads"),

		OTPRateLimit:    LoadRateLimitConfig("OTP", 5, 2*time.Minute),
		VerifyRateLimit: LoadRateLimitConfig("VERIFY", 30, 2*time.Second),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}
