package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gantt/pkg/buildinfo"
	"github.com/matzehuels/gantt/pkg/cache"
	"github.com/matzehuels/gantt/pkg/config"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/host/drivers"
	"github.com/matzehuels/gantt/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gantt"

	// redisPrefix scopes render cache keys in a shared Redis.
	redisPrefix = "gantt:render:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the --config persistent flag.
	configPath string

	// drivers opens host adapters; tests swap in their own table.
	drivers host.Drivers
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:  newLogger(w, level),
		drivers: drivers.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "gantt",
		Short:        "Gantt renders and edits timelines stored in a host database",
		Long:         `Gantt lays out time-bounded items as bars on a calendar axis. It renders charts to files, serves an interactive drag-and-drop API, and writes rescheduled items back to the host store.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: "+config.DefaultPath()+")")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	walkCommands(root, registerValueCompletions)
	return root
}

func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// =============================================================================
// Config & Host
// =============================================================================

// loadConfig reads the configuration file named by --config, falling back
// to the per-user default. A missing default file yields the defaults.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "path", path, "driver", cfg.Host.Driver)
	return cfg, nil
}

// openHost opens the adapter configured in cfg.Host.
func (c *CLI) openHost(ctx context.Context, cfg *config.Config) (host.Adapter, error) {
	hc := cfg.Host
	hc.Logger = loggerFromContext(ctx)
	return c.drivers.Open(ctx, hc)
}

// closeHost releases adapters that hold connections or files.
func closeHost(logger *log.Logger, a host.Adapter) {
	if err := host.Close(a); err != nil {
		logger.Warn("close host", "err", err)
	}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.CacheConfig, noCache bool) (*pipeline.Runner, error) {
	rc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	if reason := cache.DisabledReason(rc); reason != "" {
		loggerFromContext(ctx).Debug("render cache off", "reason", reason)
	}
	return pipeline.NewRunner(rc, nil, c.Logger), nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	switch {
	case noCache:
		return cache.Disabled("--no-cache"), nil
	case cfg.Disabled:
		return cache.Disabled("cache.disabled"), nil
	}
	if cfg.RedisAddr != "" {
		return cache.DialRedis(ctx, cfg.RedisAddr, redisPrefix)
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.Disabled("no cache directory: " + err.Error()), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gantt/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// renderOptions builds pipeline options from the loaded configuration.
func renderOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		ZoomLevel:     cfg.View.ZoomLevel,
		PixelsPerUnit: cfg.View.PixelsPerUnit,
		Policy:        cfg.View.Policy,
		RowHeight:     cfg.View.RowHeight,
		Order:         cfg.Render.Order,
		Width:         cfg.Render.Width,
		Height:        cfg.Render.Height,
		Formats:       cfg.Render.Formats,
		Theme:         cfg.Render.Theme,
		Interactive:   cfg.Render.Interactive,
		Columns:       cfg.Render.Columns,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
