// Package server exposes a gantt view session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/interact"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/pipeline"
	"github.com/matzehuels/gantt/pkg/render"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/view"
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithRenderOptions sets the defaults for /api/scene.
func WithRenderOptions(o pipeline.Options) Option { return func(s *Server) { s.render = o } }

// WithCommitTimeout bounds how long a commit request waits for the host
// before answering 202 Accepted.
func WithCommitTimeout(d time.Duration) Option { return func(s *Server) { s.commitTimeout = d } }

// Server serves one view session.
type Server struct {
	sess          *view.Session
	logger        *log.Logger
	metrics       http.Handler
	render        pipeline.Options
	commitTimeout time.Duration
	cron          *cron.Cron
}

// New creates a server for an opened session.
func New(sess *view.Session, opts ...Option) *Server {
	s := &Server{
		sess:          sess,
		logger:        log.Default(),
		commitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/items", s.handleItems)
		r.Get("/layout", s.handleLayout)
		r.Get("/scene", s.handleScene)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/zoom", s.handleZoom)
		r.Route("/items/{id}/gesture", func(r chi.Router) {
			r.Get("/", s.handleGestureState)
			r.Post("/", s.handleBegin)
			r.Patch("/", s.handleMove)
			r.Delete("/", s.handleCancel)
			r.Post("/commit", s.handleCommit)
		})
	})
	return r
}

// observe reports every request to the HTTP hooks, labelled by route
// pattern rather than raw path.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("http", "method", r.Method, "route", route, "status", status, "duration", time.Since(start))
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		view.Config
		Scale scale.Scale `json:"scale"`
	}{s.sess.Config(), s.sess.Scale()})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.Items())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sess.Layout(r.Context()))
}

// handleScene renders the current view, including tentative bars, in the
// format named by ?format= (default json).
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.render
	opts.Formats = []string{q.Get("format")}
	if opts.Formats[0] == "" {
		opts.Formats[0] = pipeline.FormatJSON
	}
	if t := q.Get("theme"); t != "" {
		opts.Theme = t
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		respondError(w, gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "invalid render options"))
		return
	}

	var vp render.Viewport
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"x", &vp.X}, {"y", &vp.Y}, {"width", &vp.Width}, {"height", &vp.Height}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 && (p.name == "width" || p.name == "height") {
			respondError(w, gerrors.New(gerrors.ErrCodeInvalidInput, "invalid %s %q", p.name, v))
			return
		}
		*p.dst = f
	}
	if vp.Width == 0 || vp.Height == 0 {
		full := render.Full(s.sess.Layout(r.Context()))
		if vp.Width == 0 {
			vp.Width = max(full.X+full.Width-vp.X, 0)
		}
		if vp.Height == 0 {
			vp.Height = max(full.Height-vp.Y, 0)
		}
	}

	sc := s.sess.Scene(r.Context(), vp, render.WithHeader(opts.Header))
	format := opts.Formats[0]
	data, err := pipeline.RenderFormat(r.Context(), format, sc, s.sess.Items(), opts)
	if err != nil {
		respondError(w, gerrors.Wrap(gerrors.ErrCodeInternal, err, "render %s", format))
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.sess.Refresh(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZoomLevel string `json:"zoomLevel"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	g, err := scale.ParseGranularity(req.ZoomLevel)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.sess.Zoom(g); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.sess.Scale())
}

type gestureResponse struct {
	ID        string              `json:"id"`
	State     string              `json:"state"`
	Tentative *interact.Tentative `json:"tentative,omitempty"`
}

func (s *Server) gesture(id string) gestureResponse {
	c := s.sess.Controller()
	resp := gestureResponse{ID: id, State: c.State(id).String()}
	if t, ok := c.Tentative(id); ok {
		resp.Tentative = &t
	}
	return resp
}

func (s *Server) handleGestureState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.gesture(chi.URLParam(r, "id")))
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Mode string  `json:"mode"`
		X    float64 `json:"x"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	mode, err := interact.ParseMode(req.Mode)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.sess.Begin(id, mode, req.X); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.gesture(id))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		X float64 `json:"x"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if _, err := s.sess.Move(id, req.X); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.gesture(id))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sess.Cancel(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitResponse struct {
	ID      string    `json:"id"`
	State   string    `json:"state"`
	Changed bool      `json:"changed"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// handleCommit ends the gesture and waits for the host. If the host is
// slower than the commit timeout the request returns 202 and the commit
// continues; its outcome shows up in later reads.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	done, err := s.sess.End(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	timer := time.NewTimer(s.commitTimeout)
	defer timer.Stop()
	select {
	case out := <-done:
		if out.Err != nil {
			respondError(w, out.Err)
			return
		}
		respondJSON(w, http.StatusOK, commitResponse{
			ID: id, State: interact.Idle.String(), Changed: out.Changed,
			Start: out.Item.Start, End: out.Item.End,
		})
	case <-timer.C:
		respondJSON(w, http.StatusAccepted, s.gesture(id))
	case <-r.Context().Done():
	}
}

// StartRefresh reloads items on the cron schedule spec until ctx is done.
func (s *Server) StartRefresh(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res, err := s.sess.Refresh(ctx)
		if err != nil {
			s.logger.Warn("scheduled refresh failed", "err", err)
			return
		}
		s.logger.Debug("scheduled refresh", "applied", res.Applied, "queued", res.Queued, "removed", res.Removed)
	})
	if err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "refresh schedule %q", spec)
	}
	s.cron = c
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
