package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/render/sink"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// RenderFormat materialises sc in one format. items feed the dependency
// formats, which ignore the viewport.
func RenderFormat(ctx context.Context, format string, sc render.Scene, items []timeline.Item, opts Options) ([]byte, error) {
	theme, _ := sink.ThemeByName(opts.Theme)
	svgOpts := []sink.SVGOption{sink.WithTheme(theme)}
	if opts.Interactive {
		svgOpts = append(svgOpts, sink.WithInteraction())
	}
	if opts.Title != "" {
		svgOpts = append(svgOpts, sink.WithTitle(opts.Title))
	}

	switch format {
	case FormatSVG:
		return sink.SVG(sc, svgOpts...), nil
	case FormatPNG:
		return sink.PNG(sc, sink.WithPNGSVGOptions(svgOpts...))
	case FormatPDF:
		return sink.PDF(sc, svgOpts...)
	case FormatJSON:
		return sink.JSON(sc)
	case FormatText:
		return []byte(sink.Text(sc, opts.Columns)), nil
	case FormatDOT:
		return []byte(sink.DOT(items)), nil
	case FormatDeps:
		return sink.DependencySVG(ctx, sink.DOT(items))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// RenderAll materialises sc in every requested format concurrently.
func RenderAll(ctx context.Context, sc render.Scene, items []timeline.Item, opts Options) (map[string][]byte, error) {
	obs := observability.View()
	obs.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	var mu sync.Mutex
	artifacts := make(map[string][]byte, len(opts.Formats))
	g, gctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			data, err := RenderFormat(gctx, format, sc, items, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	obs.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}
