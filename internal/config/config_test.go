package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1"
gemini:
  api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("store driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Store.Path != "looma-agent.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Gateway.Bind != ":8080" {
		t.Errorf("gateway bind = %q", cfg.Gateway.Bind)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1"
log_level: debug
store:
  driver: memory
gateway:
  bind: ":9090"
  webhook_secret: hush
gemini:
  api_key: test-key
  model: gemini-2.5-pro
  timeout: 45s
cron:
  daily_reset_schedule: "15 0 * * *"
telemetry:
  otlp_endpoint: localhost:4318
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("store driver = %q", cfg.Store.Driver)
	}
	if cfg.Gateway.WebhookSecret != "hush" {
		t.Errorf("webhook secret = %q", cfg.Gateway.WebhookSecret)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.Timeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.Gemini.Timeout)
	}
	if cfg.Cron.DailyResetSchedule != "15 0 * * *" {
		t.Errorf("daily reset schedule = %q", cfg.Cron.DailyResetSchedule)
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4318" {
		t.Errorf("otlp endpoint = %q", cfg.Telemetry.OTLPEndpoint)
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("LOOMA_TEST_KEY", "from-env")

	path := writeConfig(t, `
version: "1"
log_level: ${LOOMA_TEST_LEVEL:-warn}
gemini:
  api_key: ${LOOMA_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Errorf("api_key = %q, want from-env", cfg.Gemini.APIKey)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log_level = %q, want default warn", cfg.LogLevel)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
gemini:
  api_key: ${LOOMA_TEST_DEFINITELY_UNSET}
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "LOOMA_TEST_DEFINITELY_UNSET") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantSub string
	}{
		{
			name:    "bad version",
			yaml:    "version: \"2\"\ngemini:\n  api_key: k\n",
			wantSub: "unsupported version",
		},
		{
			name:    "bad log level",
			yaml:    "version: \"1\"\nlog_level: loud\ngemini:\n  api_key: k\n",
			wantSub: "log_level",
		},
		{
			name:    "bad store driver",
			yaml:    "version: \"1\"\nstore:\n  driver: postgres\ngemini:\n  api_key: k\n",
			wantSub: "store driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
