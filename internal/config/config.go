package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Driver names the entity store backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Language selects the terminal UI label table.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageThai    Language = "th"
)

// View names the screen the terminal UI opens on.
type View string

const (
	ViewTimeline View = "timeline"
	ViewAdmin    View = "admin"
	ViewWorkload View = "workload"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	UI       UIConfig       `toml:"ui"`
}

type DatabaseConfig struct {
	Driver Driver `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

type CacheConfig struct {
	Path string `toml:"path"`
	// RefreshSchedule is a cron spec such as "@every 5m". Empty disables refresh.
	RefreshSchedule string `toml:"refresh_schedule"`
}

type ServerConfig struct {
	HTTPBind     string `toml:"http_bind"`
	APIEndpoint  string `toml:"api_endpoint"`
	MCPEndpoint  string `toml:"mcp_endpoint"`
	StoreTimeout string `toml:"store_timeout"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	Language    Language `toml:"language"`
	DefaultView View     `toml:"default_view"`
	// ActorID attributes TUI edits in the activity log.
	ActorID string `toml:"actor_id"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   dbPath,
		},
		Cache: CacheConfig{
			RefreshSchedule: "@every 5m",
		},
		Server: ServerConfig{
			HTTPBind:     "127.0.0.1:8080",
			APIEndpoint:  "/api",
			MCPEndpoint:  "/mcp",
			StoreTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".metier/log",
			},
		},
		UI: UIConfig{
			Language:    LanguageEnglish,
			DefaultView: ViewTimeline,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Driver = Driver(strings.ToLower(strings.TrimSpace(string(c.Database.Driver))))
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	c.Cache.RefreshSchedule = strings.TrimSpace(c.Cache.RefreshSchedule)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.UI.Language = Language(strings.ToLower(strings.TrimSpace(string(c.UI.Language))))
	c.UI.DefaultView = View(strings.ToLower(strings.TrimSpace(string(c.UI.DefaultView))))
	c.UI.ActorID = strings.TrimSpace(c.UI.ActorID)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite, "":
		if strings.TrimSpace(c.Database.Path) == "" {
			errs = append(errs, errors.New("database path is required"))
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid database.driver: %q", c.Database.Driver))
	}

	if spec := strings.TrimSpace(c.Cache.RefreshSchedule); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("invalid cache.refresh_schedule %q: %w", spec, err))
		}
	}

	if _, err := c.StoreTimeout(); err != nil {
		errs = append(errs, err)
	}

	if _, err := charmLog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid logging.level: %q", c.Logging.Level))
	}

	switch c.UI.Language {
	case LanguageEnglish, LanguageThai, "":
	default:
		errs = append(errs, fmt.Errorf("invalid ui.language: %q", c.UI.Language))
	}
	switch c.UI.DefaultView {
	case ViewTimeline, ViewAdmin, ViewWorkload, "":
	default:
		errs = append(errs, fmt.Errorf("invalid ui.default_view: %q", c.UI.DefaultView))
	}

	return errors.Join(errs...)
}

// StoreTimeout parses server.store_timeout. Empty means no timeout.
func (c Config) StoreTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Server.StoreTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid server.store_timeout %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("server.store_timeout must be >= 0")
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
