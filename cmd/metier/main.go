package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/hylla/metier/internal/adapters/storage/postgres"
	"github.com/hylla/metier/internal/adapters/storage/snapshotfile"
	"github.com/hylla/metier/internal/adapters/storage/sqlite"
	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/config"
	"github.com/hylla/metier/internal/metrics"
	"github.com/hylla/metier/internal/platform"
	"github.com/hylla/metier/internal/tui"
)

var version = "dev"

type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	cachePath  string
	appName    string
	devMode    bool
}

// run builds the command tree and executes args. fang prints errors to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if v, ok := parseBoolEnv("METIER_DEV_MODE"); ok {
		opts.devMode = v
	}
	if name := strings.TrimSpace(os.Getenv("METIER_APP_NAME")); name != "" {
		opts.appName = name
	}

	root := &cobra.Command{
		Use:           "metier",
		Short:         "Project phase tracker with timeline, workload and admin views",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.cachePath, "cache", "", "path to the snapshot cache file")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stdout, stderr),
		newSeedCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
		newWorkloadCommand(opts, stdout, stderr),
	)
	return root
}

// runtime is everything a command needs once config and storage are resolved.
type runtime struct {
	opts       *globalOptions
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	store      entityStore
	svc        *app.Service
	metrics    *metrics.Metrics
}

type entityStore interface {
	app.Store
	Ping(context.Context) error
	Close() error
}

// openRuntime loads config, configures logging and opens the entity store and snapshot cache.
// Close must be called even when the returned error is nil.
func openRuntime(ctx context.Context, opts *globalOptions, stderr io.Writer, command string, withMetrics bool) (*runtime, error) {
	paths, err := platformPaths(opts)
	if err != nil {
		return nil, err
	}
	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if env := strings.TrimSpace(os.Getenv("METIER_CONFIG")); env != "" {
			configPath = env
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if env := strings.TrimSpace(os.Getenv("METIER_DB_PATH")); env != "" {
			dbPath, dbOverridden = env, true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	rt := &runtime{opts: opts, paths: paths, configPath: configPath, cfg: cfg, logger: logger}
	if command == "tui" {
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return rt, err
	}
	rt.store = store

	cachePath := firstNonEmpty(opts.cachePath, cfg.Cache.Path, paths.CachePath)
	cache, err := snapshotfile.New(cachePath)
	if err != nil {
		return rt, fmt.Errorf("open snapshot cache: %w", err)
	}
	timeout, err := cfg.StoreTimeout()
	if err != nil {
		return rt, err
	}
	svcCfg := app.ServiceConfig{
		StoreTimeout: timeout,
		ActorID:      cfg.UI.ActorID,
		Logger:       logger,
	}
	if withMetrics {
		rt.metrics = metrics.New()
		svcCfg.Observer = rt.metrics
	}
	rt.svc = app.NewService(store, cache, time.Now, app.NewIDGenerator(), svcCfg)
	logger.Debug("application service initialized", "cache_path", cachePath, "store_timeout", timeout)
	return rt, nil
}

func platformPaths(opts *globalOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *runtimeLogger) (entityStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("opening postgres store")
		store, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			logger.Error("postgres open failed", "err", err)
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		logger.Info("opening sqlite store", "db_path", cfg.Path)
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Path, "err", err)
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
}

func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("store close failed", "err", err)
		}
	}
	if err := rt.logger.Close(); err != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		rt.logger.Warn("close runtime log sink failed", "err", err)
	}
}

// load reads the store into memory and reports a fallback as a warning.
func (rt *runtime) load(ctx context.Context) error {
	res, err := rt.svc.Load(ctx)
	if err != nil {
		rt.logger.Error("snapshot load failed", "err", err)
		return fmt.Errorf("load data: %w", err)
	}
	if res.Warning != nil {
		rt.logger.Warn("entity store unavailable, using fallback data", "source", res.Source, "err", res.Warning)
		return nil
	}
	rt.logger.Info("snapshot loaded", "source", res.Source)
	return nil
}

func runTUI(ctx context.Context, opts *globalOptions, stderr io.Writer) error {
	rt, err := openRuntime(ctx, opts, stderr, "tui", false)
	defer rt.Close()
	if err != nil {
		return err
	}
	m := tui.NewModel(rt.svc,
		tui.WithLanguage(tui.Language(rt.cfg.UI.Language)),
		tui.WithDefaultView(string(rt.cfg.UI.DefaultView)),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// errNotPersisted is returned by commands whose writes stayed in memory.
func errNotPersisted(res app.MutationResult) error {
	if res.Persisted {
		return nil
	}
	if res.Warning != nil {
		return res.Warning
	}
	return errors.New("changes were not persisted")
}
