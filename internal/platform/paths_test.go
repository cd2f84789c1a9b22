package platform

import (
	"path/filepath"
	"testing"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// TestResolvePerOS verifies base selection and environment overrides per OS.
func TestResolvePerOS(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		bases      Bases
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			bases:      Bases{Config: "/fallback/config", Data: "/fallback/data"},
			wantConfig: "/xdg/config",
			wantData:   "/xdg/data",
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			bases:      Bases{Config: "/home/me/.config", Data: "/home/me/.local/share"},
			wantConfig: "/home/me/.config",
			wantData:   "/home/me/.local/share",
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			bases:      Bases{Config: `C:\fallback\config`, Data: `C:\fallback\data`},
			wantConfig: `C:\Roaming`,
			wantData:   `C:\Local`,
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			bases:      Bases{Config: "/Users/me/Library/Application Support", Data: "/Users/me/Library/Application Support"},
			wantConfig: "/Users/me/Library/Application Support",
			wantData:   "/Users/me/Library/Application Support",
		},
		{
			name:       "unknown os",
			goos:       "freebsd",
			bases:      Bases{Config: "/cfg", Data: "/data"},
			wantConfig: "/cfg",
			wantData:   "/data",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(tc.goos, envOf(tc.env), tc.bases, "metier")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if want := filepath.Join(tc.wantConfig, "metier", "config.toml"); p.ConfigPath != want {
				t.Fatalf("ConfigPath = %q, want %q", p.ConfigPath, want)
			}
			dataDir := filepath.Join(tc.wantData, "metier")
			if p.DataDir != dataDir {
				t.Fatalf("DataDir = %q, want %q", p.DataDir, dataDir)
			}
			if p.DBPath != filepath.Join(dataDir, "metier.db") {
				t.Fatalf("unexpected db path %q", p.DBPath)
			}
			if p.CachePath != filepath.Join(dataDir, "snapshot.json") {
				t.Fatalf("unexpected cache path %q", p.CachePath)
			}
			if p.LogDir != filepath.Join(dataDir, "log") {
				t.Fatalf("unexpected log dir %q", p.LogDir)
			}
		})
	}
}

// TestResolveRejectsEmptyInput verifies missing bases or app names fail.
func TestResolveRejectsEmptyInput(t *testing.T) {
	if _, err := Resolve("darwin", nil, Bases{Data: "/tmp/data"}, "metier"); err == nil {
		t.Fatal("expected error for empty config base")
	}
	if _, err := Resolve("linux", nil, Bases{Config: "/c", Data: "/d"}, " "); err == nil {
		t.Fatal("expected error for empty app name")
	}
}

// TestAppDirName verifies defaults and the dev suffix.
func TestAppDirName(t *testing.T) {
	if got := appDirName(Options{}); got != DefaultAppName {
		t.Fatalf("appDirName() = %q, want %q", got, DefaultAppName)
	}
	if got := appDirName(Options{AppName: " planner ", DevMode: true}); got != "planner-dev" {
		t.Fatalf("appDirName(dev) = %q, want planner-dev", got)
	}
}

// TestDefaultPathsWithOptionsDevMode verifies the running OS resolves dev paths.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "metier-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "metier-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
}
