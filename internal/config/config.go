package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret      string
	AccessTokenTTL string

	Log      string
	LogLevel string
	LogDir   string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	EmailWorkers string

	RedisAddr       string
	RedisPassword   string
	ResetRateLimit  string
	ResetRateWindow string
	TrustedProxies  string

	FrontendURL              string
	PasswordResetTTLMin      string
	PasswordResetCleanupSpec string
	BcryptCost               string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует — чтобы не создавать зависимость от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "15m"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		LogDir:   def(os.Getenv("LOG_DIR"), "logs"),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     def(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
		EmailWorkers: def(os.Getenv("EMAIL_WORKERS"), "3"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ResetRateLimit:  def(os.Getenv("RESET_RATE_LIMIT"), "5"),
		ResetRateWindow: def(os.Getenv("RESET_RATE_WINDOW"), "15m"),
		TrustedProxies:  os.Getenv("TRUSTED_PROXIES"),

		FrontendURL:              def(os.Getenv("FRONTEND_URL"), "http://localhost:3000"),
		PasswordResetTTLMin:      def(os.Getenv("PASSWORD_RESET_TTL_MIN"), "60"),
		PasswordResetCleanupSpec: def(os.Getenv("PASSWORD_RESET_CLEANUP_SPEC"), "@hourly"),
		BcryptCost:               def(os.Getenv("BCRYPT_COST"), "12"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	if _, perr := strconv.Atoi(c.PasswordResetTTLMin); perr != nil {
		return nil, fmt.Errorf("PASSWORD_RESET_TTL_MIN must be an integer: %w", perr)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "JWT_SECRET is empty")
	}

	// SMTP — предупреждение: ссылки сброса тогда остаются только в логах
	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured")
	}

	if c.RedisAddr == "" {
		warnings = append(warnings, "REDIS_ADDR is empty, password reset rate limiting disabled")
	}

	if c.Port == "" {
		warnings = append(warnings, "PORT is empty, using default 8080")
	}

	return warnings, nil
}

// ResetTokenTTL — срок жизни токена сброса пароля.
func (c *Config) ResetTokenTTL() time.Duration {
	return minutesOr(c.PasswordResetTTLMin, 60)
}

func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.AccessTokenTTL, 15*time.Minute)
}

func (c *Config) RateWindow() time.Duration {
	return durationOr(c.ResetRateWindow, 15*time.Minute)
}

func (c *Config) RateLimit() int {
	return intOr(c.ResetRateLimit, 5)
}

// Proxies — список из TRUSTED_PROXIES через запятую (адреса или подсети).
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Workers() int {
	return intOr(c.EmailWorkers, 3)
}

func (c *Config) Cost() int {
	return intOr(c.BcryptCost, 12)
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

func minutesOr(v string, d int) time.Duration {
	return time.Duration(intOr(v, d)) * time.Minute
}

func intOr(v string, d int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return d
	}
	return n
}

func durationOr(v string, d time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || parsed <= 0 {
		return d
	}
	return parsed
}
