package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"priyom/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("PRIYOM_TEST_TG_TOKEN", "test_token")

	yamlContent := `
database:
  path: "test.db"
booking:
  slot_minutes: 20
  timezone: "Europe/Moscow"
  default_windows:
    - weekday: 2
      start_time: "10:00"
      end_time: "14:30"
notifications:
  telegram:
    bot_token: "${PRIYOM_TEST_TG_TOKEN}"
    chat_id: 42
  retry:
    initial_delay: 2s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Notifications.Telegram.BotToken != "test_token" {
		t.Errorf("expected bot_token test_token, got %s", cfg.Notifications.Telegram.BotToken)
	}
	if cfg.Booking.SlotDuration() != 20*time.Minute {
		t.Errorf("expected 20m slots, got %s", cfg.Booking.SlotDuration())
	}
	if len(cfg.Booking.DefaultWindows) != 1 || cfg.Booking.DefaultWindows[0].StartTime.String() != "10:00:00" {
		t.Errorf("unexpected default windows: %+v", cfg.Booking.DefaultWindows)
	}
	if cfg.Notifications.Retry.InitialDelay != 2*time.Second {
		t.Errorf("expected initial delay 2s, got %s", cfg.Notifications.Retry.InitialDelay)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{Database: DatabaseConfig{Path: "path"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: true},
		{
			name: "postgres with host",
			mutate: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.Postgres.Host = "localhost"
				c.Database.Postgres.DBName = "priyom"
			},
		},
		{name: "slot does not divide day", mutate: func(c *Config) { c.Booking.SlotMinutes = 7 }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Booking.SlotMinutes != 30 {
		t.Errorf("expected default slot minutes 30, got %d", cfg.Booking.SlotMinutes)
	}
	if len(cfg.Booking.DefaultWindows) != 6 {
		t.Errorf("expected 6 default windows, got %d", len(cfg.Booking.DefaultWindows))
	}
	if cfg.API.Auth.HeaderManagementToken != "X-Management-Token" {
		t.Errorf("unexpected management header %s", cfg.API.Auth.HeaderManagementToken)
	}
	if cfg.Booking.AttemptLimit != models.AttemptLimit {
		t.Errorf("expected default attempt limit %d, got %d", models.AttemptLimit, cfg.Booking.AttemptLimit)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Backup.StoragePath != "backups" || cfg.Backup.RetentionDays != 7 {
		t.Errorf("unexpected backup defaults %+v", cfg.Backup)
	}
}

func TestValidateWindows(t *testing.T) {
	nine := models.NewTimeOfDay(9, 0, 0)
	five := models.NewTimeOfDay(17, 0, 0)

	tests := []struct {
		name    string
		windows []models.WindowTemplate
		wantErr bool
	}{
		{name: "Defaults", windows: DefaultWindows()},
		{name: "Start after end", windows: []models.WindowTemplate{{Weekday: time.Monday, StartTime: five, EndTime: nine}}, wantErr: true},
		{name: "Empty window", windows: []models.WindowTemplate{{Weekday: time.Monday, StartTime: nine, EndTime: nine}}, wantErr: true},
		{name: "Weekday out of range", windows: []models.WindowTemplate{{Weekday: 7, StartTime: nine, EndTime: five}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindows(tt.windows)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWindows() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
