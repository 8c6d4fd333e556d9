package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/gantt/pkg/cache"
	"github.com/matzehuels/gantt/pkg/host/memory"
	"github.com/matzehuels/gantt/pkg/observability"
	"github.com/matzehuels/gantt/pkg/pipeline"
)

// countingHooks records how many view events reached it.
type countingHooks struct {
	observability.NoopViewHooks
	loads, layouts, renders *int
}

func (h countingHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
	*h.loads++
}

func (h countingHooks) OnLayoutComplete(context.Context, string, int, int, time.Duration) {
	*h.layouts++
}

func (h countingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	*h.renders++
}

func TestPhaseHooksMessages(t *testing.T) {
	ctx := context.Background()
	s := newSpinnerTo(ctx, &bytes.Buffer{}, "Starting...")
	h := phaseHooks{next: observability.NoopViewHooks{}, spinner: s, driver: "sqlite"}

	tests := []struct {
		name string
		fire func()
		want string
	}{
		{"load start", func() { h.OnLoadStart(ctx, "pipeline") }, "Loading items from sqlite..."},
		{"load done", func() { h.OnLoadComplete(ctx, "pipeline", 7, time.Millisecond, nil) }, "Laying out 7 items..."},
		{"layout", func() { h.OnLayoutComplete(ctx, "stack", 7, 3, time.Millisecond) }, "Placed 7 items in 3 rows"},
		{"render", func() { h.OnRenderStart(ctx, []string{"svg", "txt"}) }, "Rendering svg, txt..."},
		{"render done keeps message", func() { h.OnRenderComplete(ctx, []string{"svg"}, time.Millisecond, nil) }, "Rendering svg, txt..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fire()
			if got := s.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}

	h.OnLoadComplete(ctx, "pipeline", 0, time.Millisecond, errors.New("connection refused"))
	if got := s.Message(); got != "Rendering svg, txt..." {
		t.Errorf("failed load changed message to %q", got)
	}
}

func TestTrackPhasesDuringRender(t *testing.T) {
	var loads, layouts, renders int
	observability.SetViewHooks(countingHooks{loads: &loads, layouts: &layouts, renders: &renders})
	t.Cleanup(observability.Reset)

	store := memory.NewStore()
	if err := store.Seed(testItems()...); err != nil {
		t.Fatal(err)
	}
	s := newSpinnerTo(context.Background(), &bytes.Buffer{}, "Starting...")
	restore := trackPhases(s, "memory")

	runner := pipeline.NewRunner(cache.NewNullCache(), nil, newLogger(io.Discard, LogInfo))
	_, err := runner.Execute(context.Background(), store.Adapter(), pipeline.Options{Formats: []string{"txt"}})
	restore()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := s.Message(); got != "Rendering txt..." {
		t.Errorf("final phase = %q, want Rendering txt...", got)
	}
	if loads != 1 || layouts != 1 || renders != 1 {
		t.Errorf("forwarded loads=%d layouts=%d renders=%d, want 1 each", loads, layouts, renders)
	}
	if _, ok := observability.View().(countingHooks); !ok {
		t.Errorf("restore left %T installed", observability.View())
	}
}

func TestSpinnerDrawsPhase(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinnerTo(context.Background(), &buf, "Loading items from sqlite...")
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.SetMessage("Placed 3 items in 2 rows")
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	out := buf.String()
	for _, want := range []string{"Loading items from sqlite...", "Placed 3 items in 2 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("spinner output missing %q:\n%q", want, out)
		}
	}
	if s.Cancelled() {
		t.Error("Stop should not report cancellation")
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerTo(ctx, &bytes.Buffer{}, "Loading items from redis...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after the context times out")
	}
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinnerTo(context.Background(), &bytes.Buffer{}, "Opening view...")
	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
}
