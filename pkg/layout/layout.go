package layout

import (
	"cmp"
	"slices"
	"strings"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
	"github.com/matzehuels/gantt/pkg/scale"
	"github.com/matzehuels/gantt/pkg/timeline"
)

// Policy decides how overlapping items share rows.
type Policy string

// Overlap policies.
const (
	Stack   Policy = "stack"
	Overlay Policy = "overlay"
)

// DefaultRowHeight is the row height in pixels when none is configured.
const DefaultRowHeight = 28.0

// ParsePolicy parses an overlap policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Stack, Overlay:
		return p, nil
	case "":
		return Stack, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidInput,
			"invalid overlap policy %q (must be one of: stack, overlay)", s)
	}
}

// Comparator orders items for row assignment. It follows the cmp.Compare
// convention.
type Comparator func(a, b timeline.Item) int

// ByStart orders by start instant, then by id.
func ByStart(a, b timeline.Item) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// ByName orders by display name, then by start instant and id.
func ByName(a, b timeline.Item) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return ByStart(a, b)
}

// Bar is one positioned item.
type Bar struct {
	Item   timeline.Item `json:"item"`
	Row    int           `json:"row"`
	XStart float64       `json:"x_start"`
	XEnd   float64       `json:"x_end"`

	// Z is the item's insertion index; higher values draw on top.
	Z int `json:"z"`
}

// Width returns the bar's pixel width.
func (b Bar) Width() float64 { return b.XEnd - b.XStart }

// Band is a run of consecutive rows holding one group.
type Band struct {
	Group    string `json:"group"`
	FirstRow int    `json:"first_row"`
	Rows     int    `json:"rows"`
}

// Layout is the result of [Build].
type Layout struct {
	Bars      []Bar       `json:"bars"`
	Bands     []Band      `json:"bands,omitempty"`
	Rows      int         `json:"rows"`
	RowHeight float64     `json:"row_height"`
	Policy    Policy      `json:"policy"`
	Scale     scale.Scale `json:"scale"`

	// Start and End are the unit-aligned bounds of all items.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Height returns the total pixel height of all rows.
func (l Layout) Height() float64 { return float64(l.Rows) * l.RowHeight }

// MinX returns the pixel position of Start.
func (l Layout) MinX() float64 { return l.Scale.X(l.Start) }

// MaxX returns the pixel position of End.
func (l Layout) MaxX() float64 { return l.Scale.X(l.End) }

// Bar returns the bar for the given item id.
func (l Layout) Bar(id string) (Bar, bool) {
	for _, b := range l.Bars {
		if b.Item.ID == id {
			return b, true
		}
	}
	return Bar{}, false
}

// Option configures [Build].
type Option func(*builder)

type builder struct {
	policy    Policy
	order     Comparator
	rowHeight float64
}

// WithPolicy sets the overlap policy. The default is [Stack].
func WithPolicy(p Policy) Option { return func(b *builder) { b.policy = p } }

// WithOrder sets the row ordering key. The default is [ByStart].
func WithOrder(c Comparator) Option { return func(b *builder) { b.order = c } }

// WithRowHeight sets the row height in pixels.
func WithRowHeight(h float64) Option { return func(b *builder) { b.rowHeight = h } }

type entry struct {
	item timeline.Item
	z    int
}

// Build lays out items on s. The items slice is read in insertion order and
// is not modified.
func Build(items []timeline.Item, s scale.Scale, opts ...Option) Layout {
	b := builder{policy: Stack, order: ByStart, rowHeight: DefaultRowHeight}
	for _, opt := range opts {
		opt(&b)
	}
	if b.policy == "" {
		b.policy = Stack
	}
	if b.order == nil {
		b.order = ByStart
	}
	if b.rowHeight <= 0 {
		b.rowHeight = DefaultRowHeight
	}

	l := Layout{
		RowHeight: b.rowHeight,
		Policy:    b.policy,
		Scale:     s,
	}
	if len(items) == 0 {
		return l
	}

	entries := make([]entry, len(items))
	for i, it := range items {
		entries[i] = entry{item: it.Clone(), z: i}
	}
	slices.SortFunc(entries, func(x, y entry) int {
		if c := b.order(x.item, y.item); c != 0 {
			return c
		}
		return cmp.Compare(x.z, y.z)
	})

	groups, byGroup := bands(entries)
	row := 0
	for _, g := range groups {
		members := byGroup[g]
		var lanes [][]entry
		if b.policy == Overlay {
			lanes = [][]entry{overlay(members)}
		} else {
			lanes = stack(members)
		}
		l.Bands = append(l.Bands, Band{Group: g, FirstRow: row, Rows: len(lanes)})
		for _, lane := range lanes {
			for _, e := range lane {
				l.Bars = append(l.Bars, Bar{
					Item:   e.item,
					Row:    row,
					XStart: s.X(e.item.Start),
					XEnd:   s.X(e.item.End),
					Z:      e.z,
				})
			}
			row++
		}
	}
	l.Rows = row

	start, end := entries[0].item.Start, entries[0].item.End
	for _, e := range entries[1:] {
		if e.item.Start.Before(start) {
			start = e.item.Start
		}
		if e.item.End.After(end) {
			end = e.item.End
		}
	}
	l.Start = s.Floor(start)
	l.End = s.Ceil(end)
	if !l.End.After(l.Start) {
		l.End = s.Add(l.Start, 1)
	}
	return l
}

// bands groups sorted entries by Group, preserving the sorted order inside
// each group. Groups are returned in order of first appearance.
func bands(sorted []entry) ([]string, map[string][]entry) {
	var order []string
	byGroup := make(map[string][]entry)
	for _, e := range sorted {
		g := e.item.Group
		if _, ok := byGroup[g]; !ok {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], e)
	}
	return order, byGroup
}

// stack assigns each entry to the lowest lane without an overlapping entry.
func stack(members []entry) [][]entry {
	var lanes [][]entry
	for _, e := range members {
		placed := false
		for i, lane := range lanes {
			if fits(lane, e.item) {
				lanes[i] = append(lane, e)
				placed = true
				break
			}
		}
		if !placed {
			lanes = append(lanes, []entry{e})
		}
	}
	return lanes
}

func fits(lane []entry, it timeline.Item) bool {
	for _, e := range lane {
		if e.item.Overlaps(it) {
			return false
		}
	}
	return true
}

// overlay returns members in insertion order.
func overlay(members []entry) []entry {
	out := slices.Clone(members)
	slices.SortFunc(out, func(x, y entry) int { return cmp.Compare(x.z, y.z) })
	return out
}
