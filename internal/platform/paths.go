// Package platform resolves per-OS locations for metier's config, database, and snapshot cache.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories.
const DefaultAppName = "metier"

// Paths holds every on-disk location the CLI needs.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	// CachePath is the last known-good snapshot used when the store is unreachable.
	CachePath string
	LogDir    string
}

// Options tunes the directory name.
type Options struct {
	AppName string
	DevMode bool
}

// Bases are the per-user directories paths are resolved under.
type Bases struct {
	Config string
	Data   string
}

// overrideVars lists, per OS, the environment variables that replace the config and data bases.
var overrideVars = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// DefaultPaths returns paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{})
}

// DefaultPathsWithOptions resolves paths for the running OS and user.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	bases, err := userBases(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	return Resolve(runtime.GOOS, os.Getenv, bases, appDirName(opts))
}

func appDirName(opts Options) string {
	name := strings.TrimSpace(opts.AppName)
	if name == "" {
		name = DefaultAppName
	}
	if opts.DevMode {
		name += "-dev"
	}
	return name
}

func userBases(goos string) (Bases, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Bases{}, fmt.Errorf("user config dir: %w", err)
	}
	bases := Bases{Config: configDir, Data: configDir}
	if goos == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Bases{}, fmt.Errorf("user home dir: %w", err)
		}
		bases.Data = filepath.Join(home, ".local", "share")
	}
	return bases, nil
}

// Resolve maps bases and environment overrides onto app paths. getenv may be nil.
func Resolve(goos string, getenv func(string) string, bases Bases, appName string) (Paths, error) {
	if bases.Config == "" || bases.Data == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if vars, ok := overrideVars[goos]; ok {
		if v := strings.TrimSpace(getenv(vars[0])); v != "" {
			bases.Config = v
		}
		if v := strings.TrimSpace(getenv(vars[1])); v != "" {
			bases.Data = v
		}
	}

	dataDir := filepath.Join(bases.Data, appName)
	return Paths{
		ConfigPath: filepath.Join(bases.Config, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
		CachePath:  filepath.Join(dataDir, "snapshot.json"),
		LogDir:     filepath.Join(dataDir, "log"),
	}, nil
}
