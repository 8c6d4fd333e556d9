// Package prom implements the observability hooks with Prometheus
// collectors.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/gantt/pkg/observability"
)

const namespace = "gantt"

// Metrics holds every collector. It implements all hook interfaces.
type Metrics struct {
	LoadDuration   *prometheus.HistogramVec
	LoadErrors     *prometheus.CounterVec
	ItemsLoaded    prometheus.Gauge
	LayoutDuration prometheus.Histogram
	LayoutRows     prometheus.Gauge
	RenderDuration *prometheus.HistogramVec

	Gestures       *prometheus.CounterVec
	Commits        *prometheus.CounterVec
	CommitDuration prometheus.Histogram

	CacheOps   *prometheus.CounterVec
	CacheBytes *prometheus.CounterVec

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LoadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent loading items from the host",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"driver"}),
		LoadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed host loads",
		}, []string{"driver"}),
		ItemsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_loaded",
			Help:      "Items returned by the most recent load",
		}),
		LayoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent computing layouts",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		LayoutRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_rows",
			Help:      "Rows in the most recent layout",
		}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent materialising scenes",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"status"}),
		Gestures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Drag gesture transitions",
		}, []string{"event", "mode"}),
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Commit outcomes by reason (ok on success)",
		}, []string{"reason"}),
		CommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Host commit latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache hits, misses and writes",
		}, []string{"op", "key_type"}),
		CacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"key_type"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests",
		}, []string{"method", "route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Install registers m as every global hook.
func (m *Metrics) Install() {
	observability.SetViewHooks(m)
	observability.SetGestureHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnLoadStart(context.Context, string) {}

func (m *Metrics) OnLoadComplete(_ context.Context, driver string, n int, d time.Duration, err error) {
	m.LoadDuration.WithLabelValues(driver).Observe(d.Seconds())
	if err != nil {
		m.LoadErrors.WithLabelValues(driver).Inc()
		return
	}
	m.ItemsLoaded.Set(float64(n))
}

func (m *Metrics) OnLayoutComplete(_ context.Context, _ string, _ int, rows int, d time.Duration) {
	m.LayoutDuration.Observe(d.Seconds())
	m.LayoutRows.Set(float64(rows))
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RenderDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *Metrics) OnBegin(_ context.Context, _ string, mode string) {
	m.Gestures.WithLabelValues("begin", mode).Inc()
}

func (m *Metrics) OnConflict(context.Context, string) {
	m.Gestures.WithLabelValues("conflict", "").Inc()
}

func (m *Metrics) OnCancel(context.Context, string) {
	m.Gestures.WithLabelValues("cancel", "").Inc()
}

func (m *Metrics) OnCommit(_ context.Context, _ string, d time.Duration, reason string) {
	if reason == "" {
		reason = "ok"
	}
	m.Commits.WithLabelValues(reason).Inc()
	m.CommitDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues("hit", keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheOps.WithLabelValues("miss", keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheOps.WithLabelValues("set", keyType).Inc()
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.ViewHooks    = (*Metrics)(nil)
	_ observability.GestureHooks = (*Metrics)(nil)
	_ observability.CacheHooks   = (*Metrics)(nil)
	_ observability.HTTPHooks    = (*Metrics)(nil)
)
