package render

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/matzehuels/gantt/pkg/layout"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
)

var origin = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return origin.AddDate(0, 0, n-1) }

func testLayout() layout.Layout {
	items := []timeline.Item{
		{ID: "A", Name: "Design", Start: day(1), End: day(3)},
		{ID: "B", Name: "Build", Start: day(3), End: day(6), Links: []string{"A"}},
		{ID: "C", Start: day(20), End: day(25), Links: []string{"B"}},
	}
	return layout.Build(items, scale.New(scale.Day, 40, origin), layout.WithRowHeight(20))
}

func TestRenderFull(t *testing.T) {
	l := testLayout()
	sc := Render(l, Full(l))

	if len(sc.Rects) != 3 {
		t.Fatalf("len(Rects) = %d, want 3", len(sc.Rects))
	}
	if sc.Header != DefaultHeader || sc.Height != l.Height()+DefaultHeader {
		t.Errorf("Header = %v, Height = %v", sc.Header, sc.Height)
	}
	a, _ := sc.Rect("A")
	if a.X != 0 || a.W != 80 || a.Y != DefaultHeader+3 || a.H != 14 {
		t.Errorf("rect A = %+v", a)
	}
	if len(sc.Lines) != 2 {
		t.Errorf("len(Lines) = %d, want 2", len(sc.Lines))
	}
	if len(sc.Labels) != 3 || sc.Labels[2].Text != "C" {
		t.Errorf("Labels = %+v, want id fallback for C", sc.Labels)
	}
	if len(sc.Ticks) == 0 || sc.Ticks[0].Text != "Jan 01" {
		t.Errorf("Ticks = %+v", sc.Ticks)
	}
}

func TestRenderCulling(t *testing.T) {
	l := testLayout()
	vp := Viewport{X: 0, Y: 0, Width: 300, Height: l.Height()}
	sc := Render(l, vp)

	if _, ok := sc.Rect("C"); ok {
		t.Error("C is off-screen and should be culled")
	}
	if len(sc.Rects) != 2 {
		t.Errorf("len(Rects) = %d, want 2", len(sc.Rects))
	}
	// B->C is culled because C is not visible.
	if len(sc.Lines) != 1 || sc.Lines[0].From != "A" || sc.Lines[0].To != "B" {
		t.Errorf("Lines = %+v", sc.Lines)
	}
	for _, tk := range sc.Ticks {
		if tk.X < 0 || tk.X > vp.Width {
			t.Errorf("tick %v outside viewport", tk)
		}
	}
}

func TestRenderTranslate(t *testing.T) {
	l := testLayout()
	sc := Render(l, Viewport{X: 760, Y: 0, Width: 400, Height: 100}, WithHeader(0))

	c, ok := sc.Rect("C")
	if !ok {
		t.Fatal("C should be visible")
	}
	if c.X != 0 || c.Y != 3 {
		t.Errorf("rect C = %+v, want translated to viewport origin", c)
	}
}

func TestRenderVerticalCulling(t *testing.T) {
	items := []timeline.Item{
		{ID: "A", Start: day(1), End: day(5)},
		{ID: "B", Start: day(2), End: day(5)},
		{ID: "C", Start: day(3), End: day(5)},
	}
	l := layout.Build(items, scale.New(scale.Day, 40, origin), layout.WithRowHeight(10))
	sc := Render(l, Viewport{X: 0, Y: 10, Width: 400, Height: 10}, WithHeader(0))
	if len(sc.Rects) != 1 || sc.Rects[0].ID != "B" {
		t.Errorf("Rects = %+v, want only B", sc.Rects)
	}
}

func TestRenderHighlight(t *testing.T) {
	l := testLayout()
	sc := Render(l, Full(l), WithHighlight("B"))
	for _, r := range sc.Rects {
		if r.Tentative != (r.ID == "B") {
			t.Errorf("rect %s Tentative = %v", r.ID, r.Tentative)
		}
	}
}

func TestRenderWithoutLabels(t *testing.T) {
	l := testLayout()
	if sc := Render(l, Full(l), WithoutLabels()); len(sc.Labels) != 0 {
		t.Errorf("Labels = %v, want none", sc.Labels)
	}
}

func TestRenderIdempotent(t *testing.T) {
	l := testLayout()
	vp := Viewport{X: 20, Y: 0, Width: 500, Height: 60}
	a, _ := json.Marshal(Render(l, vp))
	b, _ := json.Marshal(Render(l, vp))
	if string(a) != string(b) {
		t.Errorf("Render not idempotent:\n%s\n%s", a, b)
	}
}

func TestRenderEmpty(t *testing.T) {
	sc := Render(layout.Layout{RowHeight: 20}, Viewport{Width: 100, Height: 100})
	if len(sc.Rects) != 0 || len(sc.Ticks) != 0 {
		t.Errorf("empty scene = %+v", sc)
	}
	if sc.Rects == nil {
		t.Error("Rects should be non-nil so JSON encodes []")
	}
}

func TestViewportPan(t *testing.T) {
	v := Viewport{X: 10, Y: 5, Width: 100, Height: 50}.Pan(5, -5)
	if v.X != 15 || v.Y != 0 || v.Width != 100 {
		t.Errorf("Pan = %+v", v)
	}
}
