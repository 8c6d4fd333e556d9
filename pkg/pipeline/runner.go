package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gantt/pkg/cache"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute loads items from a and runs the layout and render stages.
func (r *Runner) Execute(ctx context.Context, a host.Adapter, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	obs := observability.View()
	obs.OnLoadStart(ctx, "pipeline")
	loadStart := time.Now()
	items, err := a.LoadItems(ctx)
	loadTime := time.Since(loadStart)
	obs.OnLoadComplete(ctx, "pipeline", len(items), loadTime, err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	r.logger(opts).Info("loaded items", "items", len(items), "duration", loadTime)

	res, err := r.ExecuteItems(ctx, items, opts)
	if err != nil {
		return nil, err
	}
	res.Stats.LoadTime = loadTime
	return res, nil
}

// ExecuteItems runs the layout and render stages over already loaded
// items.
func (r *Runner) ExecuteItems(ctx context.Context, items []timeline.Item, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := r.logger(opts)

	valid := make([]timeline.Item, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			logger.Warn("skipping item", "item", it.ID, "err", err)
			continue
		}
		valid = append(valid, it)
	}

	res := &Result{Items: valid}
	res.Stats.ItemCount = len(valid)

	layoutStart := time.Now()
	l := r.Layout(ctx, valid, opts)
	res.Layout = l
	res.Stats.LayoutTime = time.Since(layoutStart)
	res.Stats.RowCount = l.Rows
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("serialize layout: %w", err)
	}
	res.LayoutHash = cache.Hash(data)
	logger.Info("computed layout", "bars", len(l.Bars), "rows", l.Rows, "duration", res.Stats.LayoutTime)

	renderStart := time.Now()
	sc, sceneHit, err := r.SceneWithCacheInfo(ctx, l, res.LayoutHash, opts)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	res.Scene = sc
	res.CacheInfo.SceneHit = sceneHit
	if res.SceneHash, err = cache.HashJSON(sc); err != nil {
		return nil, fmt.Errorf("hash scene: %w", err)
	}

	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, sc, valid, cache.Hash([]byte(res.LayoutHash+res.SceneHash)), opts)
	if err != nil {
		return nil, err
	}
	res.Artifacts = artifacts
	res.CacheInfo.RenderHit = renderHit
	res.Stats.RenderTime = time.Since(renderStart)
	logger.Info("rendered outputs", "formats", opts.Formats, "cached", renderHit, "duration", res.Stats.RenderTime)

	return res, nil
}

// Layout builds the layout for items. It is pure and uncached.
func (r *Runner) Layout(ctx context.Context, items []timeline.Item, opts Options) layout.Layout {
	start := time.Now()
	l := layout.Build(items, opts.Scale(items),
		layout.WithPolicy(opts.Policy),
		layout.WithOrder(Orders[opts.Order]),
		layout.WithRowHeight(opts.RowHeight),
	)
	observability.View().OnLayoutComplete(ctx, string(l.Policy), len(l.Bars), l.Rows, time.Since(start))
	return l
}

// SceneWithCacheInfo renders the scene for the configured viewport and
// reports whether it came from cache.
func (r *Runner) SceneWithCacheInfo(ctx context.Context, l layout.Layout, layoutHash string, opts Options) (render.Scene, bool, error) {
	vp := opts.Viewport(l)
	if cache.IsDisabled(r.Cache) {
		return r.scene(l, vp, opts), false, nil
	}
	key := r.Keyer.SceneKey(layoutHash, opts.SceneKeyOpts(vp))
	hooks := observability.Cache()

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var sc render.Scene
		if err := json.Unmarshal(data, &sc); err == nil {
			hooks.OnCacheHit(ctx, "scene")
			return sc, true, nil
		}
		// If deserialization fails, fall through to recompute
	}
	hooks.OnCacheMiss(ctx, "scene")

	sc := r.scene(l, vp, opts)
	if data, err := json.Marshal(sc); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLScene); err == nil {
			hooks.OnCacheSet(ctx, "scene", len(data))
		}
	}
	return sc, false, nil
}

func (r *Runner) scene(l layout.Layout, vp render.Viewport, opts Options) render.Scene {
	return render.Render(l, vp,
		render.WithHeader(opts.Header),
		render.WithHighlight(opts.Highlight...),
	)
}

// RenderWithCacheInfo materialises sc in every requested format, serving
// from cache when all formats are present.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, sc render.Scene, items []timeline.Item, hash string, opts Options) (map[string][]byte, bool, error) {
	if cache.IsDisabled(r.Cache) {
		rendered, err := RenderAll(ctx, sc, items, opts)
		return rendered, false, err
	}
	hooks := observability.Cache()

	allCached := true
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil || !hit {
			allCached = false
			break
		}
		artifacts[format] = data
	}
	if allCached {
		hooks.OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	hooks.OnCacheMiss(ctx, "artifact")

	rendered, err := RenderAll(ctx, sc, items, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) logger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
