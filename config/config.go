package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL    string
	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int
	DBMaxIdleConns int
	Port           string
	GoEnv          string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
	AWSRegion      string
	AWSS3Bucket    string
	AWSAccessKeyID string
	AWSSecretKey   string
	ResendAPIKey   string
	ResendBaseURL  string
	MailFrom       string
	OTPTTL         time.Duration
	ResetWindow    time.Duration
	ReminderJobKey string
	AuthRatePerMin int
	LogLevel       string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	config := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", ""),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		Port:           getEnv("PORT", "8080"),
		GoEnv:          getEnv("GO_ENV", "development"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "agrox-api"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "agrox-app"),
		TokenTTL:       time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:    getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		ResendBaseURL:  getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		MailFrom:       getEnv("MAIL_FROM", "AgroX <no-reply@agrox.app>"),
		OTPTTL:         time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		ResetWindow:    time.Duration(getEnvInt("RESET_WINDOW_MINUTES", 5)) * time.Minute,
		ReminderJobKey: getEnv("REMINDER_JOB_KEY", ""),
		AuthRatePerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
	config.DBDriver = getEnv("DB_DRIVER", inferDriver(config.DatabaseURL))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	current = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver)
	}
	if c.DatabaseURL == "" && !(c.DBDriver == "mysql" && c.DBName != "") {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" && !c.IsTest() {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// DSN returns the connection string for the configured driver.
// For MySQL without DATABASE_URL it is assembled from the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		if c.DBDriver == "mysql" {
			return mysqlDSN(c.DatabaseURL)
		}
		if c.DBDriver == "sqlite" {
			return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
		}
		return c.DatabaseURL
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// mysqlDSN accepts both mysql://user:pw@host:port/db URLs and the driver's
// own user:pw@tcp(host:port)/db syntax. The result always has parseTime set
// so DATETIME columns scan into time.Time.
func mysqlDSN(databaseURL string) string {
	raw := strings.TrimPrefix(databaseURL, "mysql://")

	if !strings.Contains(raw, "(") {
		if dsn, err := mysqlDSNFromURL("mysql://" + raw); err == nil {
			return dsn
		}
	}

	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		log.Printf("DATABASE_URL is not a valid MySQL DSN: %v", err)
		return raw
	}
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func mysqlDSNFromURL(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", u.Redacted())
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Host + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	cfg.Params = map[string]string{"charset": "utf8mb4"}
	for key, values := range u.Query() {
		switch strings.ToLower(key) {
		case "parsetime", "loc":
			continue
		}
		if len(values) > 0 {
			cfg.Params[key] = values[len(values)-1]
		}
	}
	return cfg.FormatDSN(), nil
}

// GetConfig returns the configuration loaded at startup
func GetConfig() *Config {
	return current
}

// SetConfig replaces the process configuration (primarily for testing)
func SetConfig(cfg *Config) {
	current = cfg
}

func inferDriver(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "mysql://"):
		return "mysql"
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasSuffix(databaseURL, ".db"), databaseURL == ":memory:":
		return "sqlite"
	default:
		return "postgres"
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
