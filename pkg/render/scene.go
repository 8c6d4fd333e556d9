package render

import "time"

// Viewport is the visible window in layout pixel space.
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Pan returns the viewport shifted by (dx, dy).
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// intersects reports whether the closed box [x0,x1]x[y0,y1] touches v.
// Zero-width bars are boxes too, so edges count.
func (v Viewport) intersects(x0, y0, x1, y1 float64) bool {
	return x1 >= v.X && x0 <= v.X+v.Width && y1 > v.Y && y0 < v.Y+v.Height
}

// Rect is a bar.
type Rect struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	W         float64 `json:"w"`
	H         float64 `json:"h"`
	Row       int     `json:"row"`
	Z         int     `json:"z"`
	Group     string  `json:"group,omitempty"`
	Tentative bool    `json:"tentative,omitempty"`
}

// CenterY returns the vertical centre of the rect.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Label is text anchored at its left baseline-centre point.
type Label struct {
	ID   string  `json:"id"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Line connects two bars: from the end of a dependency to the start of the
// dependent item.
type Line struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
}

// Tick is a unit boundary on the time axis.
type Tick struct {
	At   time.Time `json:"at"`
	X    float64   `json:"x"`
	Text string    `json:"text"`
}

// Band is the visible part of a group's row range.
type Band struct {
	Group string  `json:"group"`
	Y     float64 `json:"y"`
	H     float64 `json:"h"`
}

// Scene is a rendered frame.
type Scene struct {
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Header    float64  `json:"header"`
	RowHeight float64  `json:"row_height"`
	Viewport  Viewport `json:"viewport"`
	Bands     []Band   `json:"bands,omitempty"`
	Rects     []Rect   `json:"rects"`
	Labels    []Label  `json:"labels,omitempty"`
	Lines     []Line   `json:"lines,omitempty"`
	Ticks     []Tick   `json:"ticks,omitempty"`
}

// Rect returns the rect for id, if visible.
func (s Scene) Rect(id string) (Rect, bool) {
	for _, r := range s.Rects {
		if r.ID == id {
			return r, true
		}
	}
	return Rect{}, false
}
