package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort     string
	AppEnv      string
	AppTimezone string // IANA name; report calendar days are computed in this zone
	FrontendURL string

	// TrustProxyHeaders makes the client IP come from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3ExportBucket string
	SNSRegion      string
	SNSTopicARN    string // report events; empty disables publishing

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	RefreshTokenDur   time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	GoogleClientID string

	RedisAddr       string // empty disables the OTP throttle
	RedisPassword   string
	OTPCooldown     time.Duration
	OTPWindow       time.Duration
	OTPMaxPerWindow int
	OTPMaxAttempts  int  // wrong guesses allowed per issued code
	OTPEcho         bool // return issued codes in API responses; ignored in production

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users      string
	Sessions   string
	EmailOTPs  string
	Reports    string
	ReportDays string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:     getEnv("APP_PORT", "5000"),
		AppEnv:      getEnv("APP_ENV", "development"),
		AppTimezone: getEnv("APP_TIMEZONE", "UTC"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:      getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:   getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			EmailOTPs:  getEnv("DYNAMO_TABLE_EMAIL_OTPS", "email_otps"),
			Reports:    getEnv("DYNAMO_TABLE_REPORTS", "daily_reports"),
			ReportDays: getEnv("DYNAMO_TABLE_REPORT_DAYS", "daily_report_days"),
		},

		S3ExportBucket: getEnv("S3_EXPORT_BUCKET", "taskpulse-exports"),
		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:    getEnv("SNS_REPORT_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		RefreshTokenDur:   time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "TaskPulse <noreply@taskpulse.local>"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		OTPCooldown:     time.Duration(getEnvInt("OTP_COOLDOWN_SECONDS", 60)) * time.Second,
		OTPWindow:       time.Duration(getEnvInt("OTP_WINDOW_MINUTES", 15)) * time.Minute,
		OTPMaxPerWindow: getEnvInt("OTP_MAX_PER_WINDOW", 5),
		OTPMaxAttempts:  getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPEcho:         getEnvBool("OTP_ECHO", false),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether the service runs with production behaviour.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ExposeOTPCodes reports whether issued codes may be echoed to API clients.
func (c *Config) ExposeOTPCodes() bool {
	return c.OTPEcho && !c.IsProduction()
}

// Location resolves AppTimezone, falling back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
