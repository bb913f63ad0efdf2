package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"priyom/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App           AppConfig          `yaml:"app"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	Backup        BackupConfig       `yaml:"backup"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	API           APIConfig          `yaml:"api"`
	Booking       BookingConfig      `yaml:"booking"`
	Notifications NotificationConfig `yaml:"notifications"`
	Exports       ExportConfig       `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int `yaml:"write_timeout_seconds"`
}

type APIAuthConfig struct {
	// HeaderManagementToken carries the owner's management credential.
	HeaderManagementToken string `yaml:"header_management_token"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BookingConfig struct {
	SlotMinutes          int                     `yaml:"slot_minutes"`
	Timezone             string                  `yaml:"timezone"`
	DefaultWindows       []models.WindowTemplate `yaml:"default_windows"`
	AttemptLimit         int                     `yaml:"attempt_limit"`
	AttemptWindowSeconds int                     `yaml:"attempt_window_seconds"`
}

// SlotDuration returns the configured slot length.
func (b BookingConfig) SlotDuration() time.Duration {
	return time.Duration(b.SlotMinutes) * time.Minute
}

// Location resolves the booking time zone. Empty means UTC.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(b.Timezone)
}

func (b BookingConfig) AttemptWindow() time.Duration {
	return time.Duration(b.AttemptWindowSeconds) * time.Second
}

type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Retry    RetryConfig    `yaml:"retry"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Driver        string         `yaml:"driver"`
	Path          string         `yaml:"path"`
	BusyTimeoutMS int            `yaml:"busy_timeout_ms"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// DSN builds a libpq-style connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverPostgres:
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Booking.SlotMinutes <= 0 || 24*60%c.Booking.SlotMinutes != 0 {
		return fmt.Errorf("slot_minutes must divide a day, got %d", c.Booking.SlotMinutes)
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("invalid booking timezone: %w", err)
	}

	return ValidateWindows(c.Booking.DefaultWindows)
}

func ValidateWindows(windows []models.WindowTemplate) error {
	for i, w := range windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return fmt.Errorf("default window %d: weekday %d out of range", i, w.Weekday)
		}
		if w.StartTime >= w.EndTime {
			return fmt.Errorf("default window %d: start %s must be before end %s", i, w.StartTime, w.EndTime)
		}
	}
	return nil
}

// DefaultWindows is Monday to Saturday, 09:00 to 17:00.
func DefaultWindows() []models.WindowTemplate {
	start, _ := models.ParseTimeOfDay(models.DefaultWindowStart)
	end, _ := models.ParseTimeOfDay(models.DefaultWindowEnd)

	windows := make([]models.WindowTemplate, 0, 6)
	for d := time.Monday; d <= time.Saturday; d++ {
		windows = append(windows, models.WindowTemplate{Weekday: d, StartTime: start, EndTime: end})
	}
	return windows
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "priyom"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.Database.Postgres.MaxConnections == 0 {
		c.Database.Postgres.MaxConnections = 10
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeoutSec == 0 {
		c.API.HTTP.ReadTimeoutSec = 10
	}
	if c.API.HTTP.WriteTimeoutSec == 0 {
		c.API.HTTP.WriteTimeoutSec = 10
	}
	if c.API.Auth.HeaderManagementToken == "" {
		c.API.Auth.HeaderManagementToken = "X-Management-Token"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Booking defaults
	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = int(models.DefaultSlotDuration / time.Minute)
	}
	if c.Booking.DefaultWindows == nil {
		c.Booking.DefaultWindows = DefaultWindows()
	}
	if c.Booking.AttemptLimit == 0 {
		c.Booking.AttemptLimit = models.AttemptLimit
	}
	if c.Booking.AttemptWindowSeconds == 0 {
		c.Booking.AttemptWindowSeconds = models.AttemptWindow
	}

	if c.Notifications.Retry.MaxRetries == 0 {
		c.Notifications.Retry.MaxRetries = 3
	}
	if c.Notifications.Retry.InitialDelay == 0 {
		c.Notifications.Retry.InitialDelay = time.Second
	}
	if c.Notifications.Retry.MaxDelay == 0 {
		c.Notifications.Retry.MaxDelay = 30 * time.Second
	}
	if c.Notifications.Retry.BackoffFactor == 0 {
		c.Notifications.Retry.BackoffFactor = 2
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
