package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.RetentionDays != 90 || cfg.SnapshotInterval != time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.TrendWindow != 4 || cfg.TrendMode != "insertion" || cfg.ValidationPolicy != "fail-open" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestEnvExampleLoads(t *testing.T) {
	vars, err := godotenv.Read(filepath.Join("..", "..", ".env.example"))
	if err != nil {
		t.Fatalf("read .env.example: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, "")
	for k, v := range vars {
		if !strings.HasPrefix(k, EnvPrefix) {
			t.Errorf("%s lacks the %s prefix", k, EnvPrefix)
		}
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *cfg != *defaultConfig() {
		t.Errorf(".env.example drifts from defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen_addr: \":9000\"\ntrend_window: 6\ntrend_mode: chronological\nretention_days: 14\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("APP_RETENTION_DAYS", "30")
	t.Setenv("APP_SNAPSHOT_INTERVAL", "15m")
	t.Setenv("APP_VALIDATION_POLICY", "fail-closed")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.TrendWindow != 6 || cfg.TrendMode != "chronological" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.RetentionDays != 30 {
		t.Errorf("env should override file: retention_days = %d", cfg.RetentionDays)
	}
	if cfg.SnapshotInterval != 15*time.Minute || cfg.ValidationPolicy != "fail-closed" {
		t.Errorf("env values not applied: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value, field string
	}{
		{"APP_TREND_MODE", "sorted", "TrendMode"},
		{"APP_TREND_WINDOW", "0", "TrendWindow"},
		{"APP_VALIDATION_POLICY", "strict", "ValidationPolicy"},
		{"APP_LOG_FORMAT", "xml", "LogFormat"},
		{"APP_SNAPSHOT_INTERVAL", "-1m", "snapshot_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, "")
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("err = %v, want mention of %s", err, tt.field)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("APP_DATABASE_URL"); got != "database_url" {
		t.Fatalf("got %q", got)
	}
}
