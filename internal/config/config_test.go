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
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/metier.db")
	if cfg.Database.Path != "/tmp/metier.db" || cfg.Database.Driver != DriverSQLite {
		t.Fatalf("unexpected database config %#v", cfg.Database)
	}
	if cfg.UI.Language != LanguageEnglish || cfg.UI.DefaultView != ViewTimeline {
		t.Fatalf("unexpected ui config %#v", cfg.UI)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	timeout, err := cfg.StoreTimeout()
	if err != nil {
		t.Fatalf("StoreTimeout() error = %v", err)
	}
	if timeout != 10*time.Second {
		t.Fatalf("StoreTimeout() = %s, want 10s", timeout)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/metier.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), Default("/tmp/metier.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[database]
driver = "Postgres"
dsn = "postgres://metier@localhost/metier"

[cache]
refresh_schedule = "*/10 * * * *"

[server]
http_bind = "0.0.0.0:9090"
store_timeout = "3s"

[logging]
level = "DEBUG"

[ui]
language = "th"
default_view = "workload"
actor_id = " u2 "
`)

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.DSN == "" {
		t.Fatalf("unexpected database config %#v", cfg.Database)
	}
	if cfg.Server.HTTPBind != "0.0.0.0:9090" || cfg.Server.APIEndpoint != "/api" {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
	if timeout, _ := cfg.StoreTimeout(); timeout != 3*time.Second {
		t.Fatalf("StoreTimeout() = %s, want 3s", timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
	if cfg.UI.Language != LanguageThai || cfg.UI.DefaultView != ViewWorkload || cfg.UI.ActorID != "u2" {
		t.Fatalf("unexpected ui config %#v", cfg.UI)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"driver", "[database]\ndriver = \"mysql\"\n", "invalid database.driver"},
		{"postgres without dsn", "[database]\ndriver = \"postgres\"\n", "database.dsn is required"},
		{"cron", "[cache]\nrefresh_schedule = \"every now and then\"\n", "invalid cache.refresh_schedule"},
		{"timeout", "[server]\nstore_timeout = \"soon\"\n", "invalid server.store_timeout"},
		{"log level", "[logging]\nlevel = \"loud\"\n", "invalid logging.level"},
		{"language", "[ui]\nlanguage = \"fr\"\n", "invalid ui.language"},
		{"view", "[ui]\ndefault_view = \"kanban\"\n", "invalid ui.default_view"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content), Default("/tmp/default.db"))
			if err == nil {
				t.Fatalf("Load() error = nil, want %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestValidateRequiresSQLitePath(t *testing.T) {
	if err := Default(" ").Validate(); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	if _, err := Load(writeConfig(t, "[database\npath = 1"), Default("/tmp/default.db")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}
