package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temporary directory and returns the
// allowed config directory inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "hearth")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverSQLite)
	}
	if !strings.HasSuffix(cfg.Store.DSN.Value(), filepath.Join(".local", "share", "hearth", "hearth.db")) {
		t.Errorf("Store.DSN = %q, want default sqlite path", cfg.Store.DSN.Value())
	}
	if cfg.Events.Enabled {
		t.Error("Events.Enabled = true, want false")
	}
	if cfg.Home.LowStockThreshold != 2 {
		t.Errorf("Home.LowStockThreshold = %v, want 2", cfg.Home.LowStockThreshold)
	}
	if cfg.Observability.ServiceName != "hearthd" {
		t.Errorf("Observability.ServiceName = %q, want hearthd", cfg.Observability.ServiceName)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	configPath := filepath.Join(dir, "config.yaml")

	yamlContent := `server:
  http_port: 9191
  shutdown_timeout: 3s
store:
  driver: mysql
  dsn: "hearth:pw@tcp(127.0.0.1:3306)/hearth?parseTime=true"
events:
  enabled: true
  nats_url: nats://127.0.0.1:4222
home:
  low_stock_threshold: 3
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Driver != DriverMySQL {
		t.Errorf("Store.Driver = %q, want mysql", cfg.Store.Driver)
	}
	if cfg.Store.DSN.String() != "[REDACTED]" {
		t.Errorf("Store.DSN.String() = %q, want redacted", cfg.Store.DSN.String())
	}
	if !cfg.Events.Enabled || cfg.Events.NATSURL != "nats://127.0.0.1:4222" {
		t.Errorf("Events = %+v, want enabled with custom url", cfg.Events)
	}
	if cfg.Home.LowStockThreshold != 3 {
		t.Errorf("Home.LowStockThreshold = %v, want 3", cfg.Home.LowStockThreshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server:\n  http_port: 9191\n"), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv("HEARTH_SERVER_HTTP_PORT", "7070")
	t.Setenv("HEARTH_HOME_LOW_STOCK_THRESHOLD", "5")
	t.Setenv("HEARTH_LOGGING_FORMAT", "console")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070 (env wins)", cfg.Server.Port)
	}
	if cfg.Home.LowStockThreshold != 5 {
		t.Errorf("Home.LowStockThreshold = %v, want 5", cfg.Home.LowStockThreshold)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoad_RejectsPathOutsideConfigDir(t *testing.T) {
	setupTestHome(t)

	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want path validation error")
	}
	if !strings.Contains(err.Error(), "config path validation failed") {
		t.Errorf("Load() error = %v, want path validation error", err)
	}
}

func TestLoad_RejectsInsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server:\n  http_port: 9191\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "insecure config file permissions") {
		t.Errorf("Load() error = %v, want insecure permissions error", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"HEARTH_SERVER_HTTP_PORT":         "server.http_port",
		"HEARTH_EVENTS_NATS_URL":          "events.nats_url",
		"HEARTH_HOME_LOW_STOCK_THRESHOLD": "home.low_stock_threshold",
		"HEARTH_DEBUG":                    "debug",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
