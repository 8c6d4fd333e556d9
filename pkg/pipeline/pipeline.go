// Package pipeline provides the load → layout → render pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read items through a [host.Adapter]
//  2. Layout: assign rows and horizontal extents ([layout.Build])
//  3. Render: cut a scene for the viewport and materialise it in each
//     requested format
//
// Layout is cheap and never cached. Scenes are cached by the layout hash
// and viewport; artifacts by the scene hash and output options. Formats
// render concurrently.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, adapter, pipeline.Options{
//	    ZoomLevel: scale.Week,
//	    Formats:   []string{pipeline.FormatSVG, pipeline.FormatJSON},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts[pipeline.FormatSVG]
package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gantt/pkg/cache"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/render/sink"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultColumns is the terminal width used by the text format.
	DefaultColumns = 100

	// DefaultOrder is the row ordering key.
	DefaultOrder = "start"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatText = "txt"
	FormatDOT  = "dot"
	FormatDeps = "deps"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
	FormatText: true,
	FormatDOT:  true,
	FormatDeps: true,
}

// ContentTypes maps formats to MIME types.
var ContentTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatPDF:  "application/pdf",
	FormatJSON: "application/json",
	FormatText: "text/plain; charset=utf-8",
	FormatDOT:  "text/vnd.graphviz",
	FormatDeps: "image/svg+xml",
}

// Orders maps row ordering names to comparators.
var Orders = map[string]layout.Comparator{
	"start": layout.ByStart,
	"name":  layout.ByName,
}

// Options configures a pipeline run.
type Options struct {
	// Layout
	ZoomLevel     scale.Granularity
	PixelsPerUnit float64
	Policy        layout.Policy
	RowHeight     float64
	Order         string

	// Viewport in layout pixels. A zero Width or Height extends the
	// viewport to the layout's edge.
	X, Y          float64
	Width, Height float64
	Header        float64
	Highlight     []string

	// Output
	Formats     []string
	Theme       string
	Interactive bool
	Title       string
	Columns     int

	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults fills zero values and checks every option.
func (o *Options) ValidateAndSetDefaults() error {
	if o.ZoomLevel == "" {
		o.ZoomLevel = scale.Day
	}
	g, err := scale.ParseGranularity(string(o.ZoomLevel))
	if err != nil {
		return err
	}
	o.ZoomLevel = g
	p, err := layout.ParsePolicy(string(o.Policy))
	if err != nil {
		return err
	}
	o.Policy = p
	if o.RowHeight <= 0 {
		o.RowHeight = layout.DefaultRowHeight
	}
	if o.Order == "" {
		o.Order = DefaultOrder
	}
	if _, ok := Orders[o.Order]; !ok {
		return fmt.Errorf("invalid order: %s (must be start or name)", o.Order)
	}
	if o.Header <= 0 {
		o.Header = render.DefaultHeader
	}
	if o.Columns <= 0 {
		o.Columns = DefaultColumns
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if _, ok := sink.ThemeByName(o.Theme); !ok {
		return fmt.Errorf("invalid theme: %s", o.Theme)
	}
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("viewport size must not be negative")
	}
	return nil
}

// ValidateFormat checks a single output format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %s (must be one of: svg, png, pdf, json, txt, dot, deps)", format)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Scale builds the scale for items: the configured zoom anchored at the
// earliest start.
func (o Options) Scale(items []timeline.Item) scale.Scale {
	var origin time.Time
	for _, it := range items {
		if origin.IsZero() || it.Start.Before(origin) {
			origin = it.Start
		}
	}
	return scale.New(o.ZoomLevel, o.PixelsPerUnit, origin)
}

// Viewport resolves the configured viewport against l.
func (o Options) Viewport(l layout.Layout) render.Viewport {
	full := render.Full(l)
	vp := render.Viewport{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
	if vp.Width == 0 {
		vp.Width = max(full.X+full.Width-vp.X, 0)
	}
	if vp.Height == 0 {
		vp.Height = max(full.Height-vp.Y, 0)
	}
	return vp
}

// SceneKeyOpts returns the scene cache key inputs.
func (o Options) SceneKeyOpts(vp render.Viewport) cache.SceneKeyOpts {
	hl := slices.Clone(o.Highlight)
	slices.Sort(hl)
	return cache.SceneKeyOpts{
		X: vp.X, Y: vp.Y, Width: vp.Width, Height: vp.Height,
		Header:    o.Header,
		Highlight: hl,
	}
}

// ArtifactKeyOpts returns the artifact cache key inputs for format.
func (o Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Theme:       o.Theme,
		Interactive: o.Interactive,
		Columns:     o.Columns,
	}
}

// Result holds the output of a pipeline run.
type Result struct {
	Items      []timeline.Item
	Layout     layout.Layout
	Scene      render.Scene
	LayoutHash string
	SceneHash  string
	Artifacts  map[string][]byte
	Stats      Stats
	CacheInfo  CacheInfo
}

// Stats records timing and size.
type Stats struct {
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
	ItemCount  int
	RowCount   int
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	SceneHit  bool
	RenderHit bool
}
