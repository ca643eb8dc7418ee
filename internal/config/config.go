// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AuditDirect   = "direct"
	AuditRabbitMQ = "rabbitmq"
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	DBDriver    string `yaml:"db_driver"`
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"log_level"`

	JWTSecret          string `yaml:"jwt_secret"`
	JWTExpirationHours int    `yaml:"jwt_expiration_hours"`

	AuditMode   string `yaml:"audit_mode"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	Mail  MailConfig  `yaml:"mail"`
	Kommo KommoConfig `yaml:"kommo"`

	CacheRefreshInterval time.Duration `yaml:"cache_refresh_interval"`
	CreateRateLimit      int           `yaml:"create_rate_limit"` // per client per minute
	CORSOrigins          []string      `yaml:"cors_origins"`
}

type MailConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type KommoConfig struct {
	APIToken string `yaml:"api_token"`
	BaseURL  string `yaml:"base_url"`
	StatusID int    `yaml:"status_id"`
}

func (k KommoConfig) Enabled() bool {
	return k.APIToken != "" && k.BaseURL != ""
}

func Defaults() Config {
	return Config{
		DBDriver:             "pgx",
		Port:                 "8080",
		LogLevel:             "info",
		JWTExpirationHours:   24,
		AuditMode:            AuditDirect,
		Mail:                 MailConfig{Port: 587},
		CacheRefreshInterval: time.Minute,
		CreateRateLimit:      30,
		CORSOrigins:          []string{"http://localhost:5173"},
	}
}

// Load reads the configuration and validates it for the API server.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges .env (if present), the YAML file named by CRM_CONFIG (if set)
// and environment overrides without validating. Tools that need only part
// of the configuration check what they use.
func Read() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CRM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.JWTSecret, "SUPABASE_JWT_SECRET")
	setString(&c.AuditMode, "AUDIT_MODE")
	setString(&c.RabbitMQURL, "RABBITMQ_URL")
	setString(&c.Mail.Host, "MAIL_HOST")
	setString(&c.Mail.User, "MAIL_USER")
	setString(&c.Mail.Pass, "MAIL_PASS")
	setString(&c.Mail.From, "MAIL_FROM")
	setString(&c.Kommo.APIToken, "KOMMO_API_TOKEN")
	setString(&c.Kommo.BaseURL, "KOMMO_BASE_URL")

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = splitList(v)
	}

	var errs []error
	errs = append(errs,
		setInt(&c.JWTExpirationHours, "JWT_EXPIRATION_HOURS"),
		setInt(&c.Mail.Port, "MAIL_PORT"),
		setInt(&c.Kommo.StatusID, "KOMMO_STATUS_ID"),
		setInt(&c.CreateRateLimit, "CREATE_RATE_LIMIT"),
	)
	if v, ok := os.LookupEnv("CACHE_REFRESH_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid CACHE_REFRESH_INTERVAL: %w", err))
		} else {
			c.CacheRefreshInterval = d
		}
	}
	return errors.Join(errs...)
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DBDriver {
	case "pgx", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be pgx or postgres, got %q", c.DBDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required"))
	}
	if c.JWTExpirationHours < 1 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.JWTExpirationHours))
	}
	switch c.AuditMode {
	case AuditDirect:
	case AuditRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required when AUDIT_MODE=rabbitmq"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUDIT_MODE must be direct or rabbitmq, got %q", c.AuditMode))
	}
	if c.Mail.Enabled() && c.Mail.From == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when MAIL_HOST is set"))
	}
	if c.CacheRefreshInterval < 0 {
		errs = append(errs, errors.New("CACHE_REFRESH_INTERVAL must not be negative"))
	}
	if c.CreateRateLimit < 1 {
		errs = append(errs, errors.New("CREATE_RATE_LIMIT must be at least 1"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
