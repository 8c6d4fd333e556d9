package view

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/events"
	"github.com/matzehuels/gantt/pkg/host"
	"github.com/matzehuels/gantt/pkg/interact"
	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Option configures a [Session].
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher sets where commit outcomes go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Session) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithOrder sets the layout row order.
func WithOrder(c layout.Comparator) Option {
	return func(s *Session) { s.order = c }
}

// WithDriver names the host driver in load metrics.
func WithDriver(name string) Option {
	return func(s *Session) { s.driver = name }
}

// WithClock overrides the clock used to pick the origin of an empty view.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one open gantt view. It owns the scale, the timeline model
// and the interaction controller.
type Session struct {
	cfg     Config
	adapter host.Adapter
	order   layout.Comparator
	driver  string
	logger  *log.Logger
	pub     events.Publisher
	now     func() time.Time

	mu    sync.RWMutex
	model *timeline.Model
	ctrl  *interact.Controller
}

// NewSession validates cfg and creates an unopened session.
func NewSession(cfg Config, adapter host.Adapter, opts ...Option) (*Session, error) {
	if adapter == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "view session needs a host adapter")
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:     cfg,
		adapter: adapter,
		order:   layout.ByStart,
		driver:  "custom",
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		pub:     events.Nop{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open loads items from the host and resets the scale to the configured
// zoom level. Reopening discards any previous state.
func (s *Session) Open(ctx context.Context) error {
	obs := observability.View()
	obs.OnLoadStart(ctx, s.driver)
	start := time.Now()

	items, err := s.adapter.LoadItems(ctx)
	obs.OnLoadComplete(ctx, s.driver, len(items), time.Since(start), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "load items")
	}

	model, _ := timeline.NewModel()
	for _, it := range items {
		if err := model.Upsert(it); err != nil {
			s.logger.Warn("skipping item", "item", it.ID, "err", err)
		}
	}

	sc := scale.New(s.cfg.ZoomLevel, s.cfg.PixelsPerUnit, s.origin(model))
	ctrl := interact.New(model, s.adapter, sc,
		interact.WithLogger(s.logger),
		interact.WithPublisher(s.pub),
		interact.WithDragEnabled(s.cfg.EnableDragAndDrop),
	)

	s.mu.Lock()
	old := s.ctrl
	s.model, s.ctrl = model, ctrl
	s.mu.Unlock()
	if old != nil {
		old.Wait()
	}

	s.logger.Debug("view opened", "items", model.Len(), "zoom", sc.Granularity)
	return nil
}

func (s *Session) origin(m *timeline.Model) time.Time {
	var origin time.Time
	for it := range m.List() {
		if origin.IsZero() || it.Start.Before(origin) {
			origin = it.Start
		}
	}
	if origin.IsZero() {
		origin = s.now()
	}
	return origin
}

// Controller returns the gesture controller. It panics if the session
// has not been opened.
func (s *Session) Controller() *interact.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctrl == nil {
		panic("view: session not opened")
	}
	return s.ctrl
}

// Opened reports whether [Session.Open] has succeeded.
func (s *Session) Opened() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctrl != nil
}

// Config returns the normalized configuration.
func (s *Session) Config() Config { return s.cfg }

// Scale returns the current scale.
func (s *Session) Scale() scale.Scale { return s.Controller().Scale() }

// Zoom switches granularity, keeping the origin.
func (s *Session) Zoom(g scale.Granularity) error {
	g, err := scale.ParseGranularity(string(g))
	if err != nil {
		return err
	}
	c := s.Controller()
	cur := c.Scale()
	ppu := 0.0
	if g == s.cfg.ZoomLevel {
		ppu = s.cfg.PixelsPerUnit
	}
	c.SetScale(scale.New(g, ppu, cur.Origin))
	return nil
}

// Items returns the model items with tentative bounds applied.
func (s *Session) Items() []timeline.Item { return s.Controller().Items() }

// Layout lays out the current items, including tentative bounds.
func (s *Session) Layout(ctx context.Context) layout.Layout {
	c := s.Controller()
	start := time.Now()
	l := layout.Build(c.Items(), c.Scale(),
		layout.WithPolicy(s.cfg.Policy),
		layout.WithOrder(s.order),
		layout.WithRowHeight(s.cfg.RowHeight),
	)
	observability.View().OnLayoutComplete(ctx, string(l.Policy), len(l.Bars), l.Rows, time.Since(start))
	return l
}

// Scene lays out and renders the viewport. Items under a gesture are
// marked tentative. A zero viewport renders everything.
func (s *Session) Scene(ctx context.Context, vp render.Viewport, opts ...render.Option) render.Scene {
	l := s.Layout(ctx)
	if vp == (render.Viewport{}) {
		vp = render.Full(l)
	}
	opts = append([]render.Option{render.WithHighlight(s.Controller().Active()...)}, opts...)
	return render.Render(l, vp, opts...)
}

// Begin starts a gesture.
func (s *Session) Begin(id string, mode interact.Mode, x float64) error {
	return s.Controller().Begin(id, mode, x)
}

// Move updates a gesture.
func (s *Session) Move(id string, x float64) (interact.Tentative, error) {
	return s.Controller().Move(id, x)
}

// End finishes a gesture and sends its commit.
func (s *Session) End(ctx context.Context, id string) (<-chan interact.Outcome, error) {
	return s.Controller().End(ctx, id)
}

// Cancel discards a gesture.
func (s *Session) Cancel(id string) error { return s.Controller().Cancel(id) }

// Refresh reloads items from the host without disturbing gestures.
func (s *Session) Refresh(ctx context.Context) (interact.RefreshResult, error) {
	obs := observability.View()
	obs.OnLoadStart(ctx, s.driver)
	start := time.Now()
	res, err := s.Controller().Reload(ctx)
	obs.OnLoadComplete(ctx, s.driver, res.Applied+res.Queued, time.Since(start), err)
	return res, err
}

// Close waits for in-flight commits and closes the adapter.
func (s *Session) Close() error {
	s.mu.RLock()
	c := s.ctrl
	s.mu.RUnlock()
	if c != nil {
		c.Wait()
	}
	return host.Close(s.adapter)
}
