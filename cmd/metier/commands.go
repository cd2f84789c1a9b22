package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/hylla/metier/internal/adapters/server"
	"github.com/hylla/metier/internal/adapters/server/common"
	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/jobs"
	"github.com/hylla/metier/internal/schedule"
)

// jobStopTimeout bounds how long serve waits for a running cache refresh on shutdown.
const jobStopTimeout = 5 * time.Second

func newServeCommand(opts *globalOptions, stderr io.Writer) *cobra.Command {
	var bind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts, stderr, "serve", true)
			defer rt.Close()
			if err != nil {
				return err
			}
			if err := rt.load(ctx); err != nil {
				return err
			}

			timeout, _ := rt.cfg.StoreTimeout()
			scheduler := jobs.NewScheduler(rt.logger, timeout)
			if spec := rt.cfg.Cache.RefreshSchedule; spec != "" {
				if err := scheduler.AddCacheRefresh(spec, rt.svc); err != nil {
					return fmt.Errorf("schedule cache refresh: %w", err)
				}
				scheduler.Start()
				if next, ok := scheduler.Next("cache_refresh"); ok {
					rt.logger.Info("cache refresh scheduled", "schedule", spec, "next", next)
				}
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), jobStopTimeout)
					defer cancel()
					scheduler.Stop(stopCtx)
				}()
			}

			cfg := server.Config{
				HTTPBind:      firstNonEmpty(bind, rt.cfg.Server.HTTPBind),
				APIEndpoint:   firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
				MCPEndpoint:   firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
				ServerName:    "metier",
				ServerVersion: version,
			}
			rt.logger.Info("serving", "http_bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
			err = server.Run(ctx, cfg, server.Dependencies{
				Service: common.NewAppServiceAdapter(rt.svc),
				Ready:   rt.store.Ping,
				Metrics: rt.metrics,
				Now:     time.Now,
			})
			if err != nil {
				rt.logger.Error("server stopped with error", "err", err)
				return fmt.Errorf("run server: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "http", "", "listen address (overrides [server].http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST mount path (overrides [server].api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP mount path (overrides [server].mcp_endpoint)")
	return cmd
}

func newExportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection as a versioned JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts, stderr, "export", false)
			defer rt.Close()
			if err != nil {
				return err
			}
			if err := rt.load(ctx); err != nil {
				return err
			}
			snap := rt.svc.ExportSnapshot()
			if outPath == "-" {
				return app.WriteSnapshot(stdout, snap)
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export output dir: %w", err)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := app.WriteSnapshot(f, snap); err != nil {
				_ = f.Close()
				return fmt.Errorf("write export file: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			rt.logger.Info("snapshot exported", "path", outPath, "tasks", len(snap.Tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert a JSON snapshot into the entity store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inPath == "" {
				return errors.New("--in is required")
			}
			ctx := cmd.Context()
			f, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			defer f.Close()
			snap, err := app.ReadSnapshot(f)
			if err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}

			rt, err := openRuntime(ctx, opts, stderr, "import", false)
			defer rt.Close()
			if err != nil {
				return err
			}
			if err := rt.load(ctx); err != nil {
				return err
			}
			res, err := rt.svc.ImportSnapshot(ctx, snap)
			if err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			if err := errNotPersisted(res); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "imported %d tasks\n", len(snap.Tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

func newSeedCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the built-in starter data into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts, stderr, "seed", false)
			defer rt.Close()
			if err != nil {
				return err
			}
			n, err := rt.svc.SeedStore(ctx, force)
			if errors.Is(err, app.ErrStoreNotEmpty) {
				return fmt.Errorf("%w (use --force to overwrite seed ids)", err)
			}
			if err != nil {
				return fmt.Errorf("seed store: %w", err)
			}
			_, _ = fmt.Fprintf(stdout, "seeded %d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even when the store already holds rows")
	return cmd
}

func newPathsCommand(opts *globalOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and cache locations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			paths, err := platformPaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "cache: %s\n", paths.CachePath)
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

func newWorkloadCommand(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Print workload by team, person or project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, opts, stderr, "workload", false)
			defer rt.Close()
			if err != nil {
				return err
			}
			if err := rt.load(ctx); err != nil {
				return err
			}
			out, err := renderWorkload(rt.svc.Workload(), by)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, out)
			return err
		},
	}
	cmd.Flags().StringVar(&by, "by", "team", "grouping: team, person or project")
	return cmd
}

// renderWorkload lays one workload roll-up out as a bordered table.
func renderWorkload(w schedule.Workload, by string) (string, error) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	switch by {
	case "team", "teams":
		t.Headers("Team", "Members", "Capacity h", "Demand h", "Tasks", "Utilization", "Active")
		for _, tl := range w.Teams {
			t.Row(tl.Name, strconv.Itoa(tl.ActiveMembers), strconv.Itoa(tl.CapacityHours),
				strconv.Itoa(tl.TotalHours), strconv.Itoa(tl.TotalTasks), percent(tl.Utilization),
				strings.Join(tl.Members, ", "))
		}
	case "person", "people":
		t.Headers("Person", "Team", "Pending", "Hours", "Load", "Density")
		for _, p := range w.People {
			t.Row(p.Name, p.DepartmentName, strconv.Itoa(p.PendingCount),
				strconv.Itoa(p.PendingHours), percent(p.Utilization), string(p.Density))
		}
	case "project", "projects":
		t.Headers("Project", "Name", "Tasks", "Phases", "Done", "Progress")
		for _, p := range w.Projects {
			t.Row(p.Codename, p.Name, strconv.Itoa(p.TaskCount), strconv.Itoa(p.TotalPhases),
				strconv.Itoa(p.DonePhases), percent(p.Progress))
		}
	default:
		return "", fmt.Errorf("unknown workload grouping %q (want team, person or project)", by)
	}
	return t.String(), nil
}

func percent(v int) string {
	return strconv.Itoa(v) + "%"
}
