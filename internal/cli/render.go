package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gantt/pkg/config"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/pipeline"
	"github.com/matzehuels/gantt/pkg/scale"
)

// defaultOutput is the base name used when neither --output nor an input
// file names the result.
const defaultOutput = "gantt"

// renderFlags holds the command-line flags for the render command. Zero
// values defer to the configuration file.
type renderFlags struct {
	output    string
	formats   string
	zoom      string
	policy    string
	order     string
	theme     string
	title     string
	highlight []string
	x, y      float64
	width     float64
	height    float64
	columns   int
	noCache   bool
}

// renderCommand creates the render command for writing charts to files.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [items.json]",
		Short: "Render the timeline to SVG, PNG, PDF, JSON or text",
		Long: `Render loads items from the configured host (or from a JSON file of items
given as argument) and writes one file per requested format.

Formats:
  svg   chart as SVG
  png   chart as PNG (requires rsvg-convert)
  pdf   chart as PDF (requires rsvg-convert)
  json  the positioned scene
  txt   a terminal chart ("-o -" prints it)
  dot   item dependencies in Graphviz DOT
  deps  item dependencies drawn by Graphviz as SVG`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Host.Driver = "memory"
				cfg.Host.DSN = args[0]
			}
			opts, err := flags.apply(cmd, cfg)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), cfg, opts, flags.output, firstArg(args), flags.noCache)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (single format) or base path (multiple); - for stdout")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): svg, png, pdf, json, txt, dot, deps (comma-separated)")
	cmd.Flags().StringVarP(&flags.zoom, "zoom", "z", "", "zoom level: day, week, month")
	cmd.Flags().StringVar(&flags.policy, "policy", "", "overlap policy: stack, overlay")
	cmd.Flags().StringVar(&flags.order, "order", "", "row order: start, name")
	cmd.Flags().StringVar(&flags.theme, "theme", "", "color theme: light, dark")
	cmd.Flags().StringVar(&flags.title, "title", "", "chart title")
	cmd.Flags().StringSliceVar(&flags.highlight, "highlight", nil, "item ids to highlight")
	cmd.Flags().Float64Var(&flags.x, "x", 0, "viewport left edge in pixels")
	cmd.Flags().Float64Var(&flags.y, "y", 0, "viewport top edge in pixels")
	cmd.Flags().Float64Var(&flags.width, "width", 0, "viewport width in pixels (0 = whole chart)")
	cmd.Flags().Float64Var(&flags.height, "height", 0, "viewport height in pixels (0 = whole chart)")
	cmd.Flags().IntVar(&flags.columns, "columns", 0, "terminal width for txt output")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

// apply merges the flags over the configuration and validates the result.
func (f renderFlags) apply(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	opts := renderOptions(cfg)
	if f.formats != "" {
		opts.Formats = parseFormats(f.formats)
	}
	if f.zoom != "" {
		g, err := scale.ParseGranularity(f.zoom)
		if err != nil {
			return opts, err
		}
		opts.ZoomLevel = g
	}
	if f.policy != "" {
		opts.Policy = layout.Policy(f.policy)
	}
	if f.order != "" {
		opts.Order = f.order
	}
	if cmd.Flags().Changed("theme") {
		opts.Theme = f.theme
	}
	if f.columns > 0 {
		opts.Columns = f.columns
	}
	if cmd.Flags().Changed("width") {
		opts.Width = f.width
	}
	if cmd.Flags().Changed("height") {
		opts.Height = f.height
	}
	opts.X, opts.Y = f.x, f.y
	opts.Title = f.title
	opts.Highlight = f.highlight
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// runRender executes the pipeline against the configured host and writes
// every artifact.
func (c *CLI) runRender(ctx context.Context, cfg *config.Config, opts pipeline.Options, output, input string, noCache bool) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	adapter, err := c.openHost(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHost(logger, adapter)

	runner, err := c.newRunner(ctx, cfg.Cache, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var result *pipeline.Result
	if output == "-" {
		result, err = runner.Execute(ctx, adapter, opts)
	} else {
		spinner := newSpinnerWithContext(ctx, "Starting...")
		restore := trackPhases(spinner, cfg.Host.Driver)
		spinner.Start()
		result, err = runner.Execute(ctx, adapter, opts)
		spinner.Stop()
		restore()
	}
	if err != nil {
		return err
	}

	if output == "-" {
		if len(opts.Formats) != 1 {
			return fmt.Errorf("stdout output needs exactly one format, got %d", len(opts.Formats))
		}
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	paths := outputPaths(output, input, opts.Formats)
	formats := slices.Sorted(maps.Keys(paths))
	printSuccess("Rendered %s", describeFormats(formats))
	for _, format := range formats {
		path := paths[format]
		if err := writeOutput(path, result.Artifacts[format]); err != nil {
			return err
		}
		logger.Debug("wrote artifact", "format", format, "path", path, "bytes", len(result.Artifacts[format]))
		printFile(path)
	}
	printStats(result.Stats.ItemCount, result.Stats.RowCount, result.CacheInfo.RenderHit)
	return nil
}

// outputPaths maps each format to the file it is written to. A single
// format uses output verbatim when given; otherwise files share a base path.
func outputPaths(output, input string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" && filepath.Ext(output) != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// basePath derives the base output path. Known format extensions are
// stripped from output; an empty output falls back to the input file name
// and then to [defaultOutput].
func basePath(output, input string) string {
	if output != "" {
		ext := filepath.Ext(output)
		if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
			return strings.TrimSuffix(output, ext)
		}
		return output
	}
	if input != "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	return defaultOutput
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func describeFormats(formats []string) string {
	upper := make([]string, len(formats))
	for i, f := range formats {
		upper[i] = strings.ToUpper(f)
	}
	return strings.Join(upper, ", ")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
