package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/gantt/pkg/observability"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	m.OnLoadComplete(ctx, "sqlite", 7, time.Millisecond, nil)
	m.OnLoadComplete(ctx, "sqlite", 0, time.Millisecond, errors.New("down"))
	m.OnCommit(ctx, "a", time.Millisecond, "")
	m.OnCommit(ctx, "a", time.Millisecond, "concurrent_modification")
	m.OnBegin(ctx, "a", "move")
	m.OnCacheSet(ctx, "artifact", 100)
	m.OnResponse(ctx, "GET", "/api/scene", 200, time.Millisecond)

	if got := testutil.ToFloat64(m.ItemsLoaded); got != 7 {
		t.Errorf("items_loaded = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.LoadErrors.WithLabelValues("sqlite")); got != 1 {
		t.Errorf("load_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Commits.WithLabelValues("ok")); got != 1 {
		t.Errorf("commits_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Commits.WithLabelValues("concurrent_modification")); got != 1 {
		t.Errorf("commits_total{concurrent_modification} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheBytes.WithLabelValues("artifact")); got != 100 {
		t.Errorf("cache_written_bytes_total = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/api/scene", "200")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()
	m := New(prometheus.NewRegistry())
	m.Install()
	if observability.Gesture() != m {
		t.Error("Install should register gesture hooks")
	}
}
