package render

import (
	"cmp"
	"slices"

	"github.com/matzehuels/gantt/pkg/layout"
)

const (
	// DefaultHeader is the height of the time axis band.
	DefaultHeader = 24.0

	barPadding  = 0.15
	labelInsetX = 4.0
)

// Option configures [Render].
type Option func(*renderer)

type renderer struct {
	header    float64
	highlight map[string]bool
	labels    bool
}

// WithHeader sets the time axis height. Zero disables the header.
func WithHeader(px float64) Option {
	return func(r *renderer) { r.header = max(px, 0) }
}

// WithHighlight marks bars as tentative (an in-flight drag preview).
func WithHighlight(ids ...string) Option {
	return func(r *renderer) {
		for _, id := range ids {
			r.highlight[id] = true
		}
	}
}

// WithoutLabels omits bar labels.
func WithoutLabels() Option { return func(r *renderer) { r.labels = false } }

// Full returns the viewport covering the entire layout.
func Full(l layout.Layout) Viewport {
	return Viewport{X: l.MinX(), Y: 0, Width: l.MaxX() - l.MinX(), Height: l.Height()}
}

// Render produces the scene visible through vp.
func Render(l layout.Layout, vp Viewport, opts ...Option) Scene {
	r := renderer{header: DefaultHeader, highlight: map[string]bool{}, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	sc := Scene{
		Width:     vp.Width,
		Height:    vp.Height + r.header,
		Header:    r.header,
		RowHeight: l.RowHeight,
		Viewport:  vp,
		Rects:     []Rect{},
	}

	pad := l.RowHeight * barPadding
	visible := make(map[string]Rect, len(l.Bars))
	for _, b := range l.Bars {
		top := float64(b.Row) * l.RowHeight
		if !vp.intersects(b.XStart, top, b.XEnd, top+l.RowHeight) {
			continue
		}
		rect := Rect{
			ID:        b.Item.ID,
			X:         b.XStart - vp.X,
			Y:         r.header + top - vp.Y + pad,
			W:         b.Width(),
			H:         l.RowHeight - 2*pad,
			Row:       b.Row,
			Z:         b.Z,
			Group:     b.Item.Group,
			Tentative: r.highlight[b.Item.ID],
		}
		sc.Rects = append(sc.Rects, rect)
		visible[rect.ID] = rect

		if r.labels {
			text := b.Item.Name
			if text == "" {
				text = b.Item.ID
			}
			sc.Labels = append(sc.Labels, Label{
				ID:   rect.ID,
				Text: text,
				X:    max(rect.X, 0) + labelInsetX,
				Y:    rect.CenterY(),
			})
		}
	}

	for _, b := range l.Bars {
		to, ok := visible[b.Item.ID]
		if !ok {
			continue
		}
		for _, dep := range b.Item.Links {
			from, ok := visible[dep]
			if !ok {
				continue
			}
			sc.Lines = append(sc.Lines, Line{
				From: dep, To: to.ID,
				X1: from.X + from.W, Y1: from.CenterY(),
				X2: to.X, Y2: to.CenterY(),
			})
		}
	}
	slices.SortFunc(sc.Lines, func(a, b Line) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})

	for _, band := range l.Bands {
		top := float64(band.FirstRow) * l.RowHeight
		bottom := top + float64(band.Rows)*l.RowHeight
		y0, y1 := max(top, vp.Y), min(bottom, vp.Y+vp.Height)
		if y1 <= y0 {
			continue
		}
		sc.Bands = append(sc.Bands, Band{Group: band.Group, Y: r.header + y0 - vp.Y, H: y1 - y0})
	}

	if len(l.Bars) > 0 {
		s := l.Scale
		for _, at := range s.Ticks(l.Start, l.End) {
			x := s.X(at)
			if x < vp.X || x > vp.X+vp.Width {
				continue
			}
			sc.Ticks = append(sc.Ticks, Tick{At: at, X: x - vp.X, Text: s.Granularity.Format(at)})
		}
	}
	return sc
}
