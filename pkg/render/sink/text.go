package sink

import (
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/gantt/pkg/render"
)

// Cell runes used by [Text].
const (
	BarRune       = '='
	TentativeRune = '~'
	MilestoneRune = '*'
)

// Text renders sc as a character grid cols wide: one line per visible row,
// preceded by a tick header when the scene has ticks. Labels are written
// inside their bars and truncated to the bar width.
func Text(sc render.Scene, cols int) string {
	if cols <= 0 {
		cols = 80
	}
	if sc.Width <= 0 {
		return ""
	}
	k := float64(cols) / sc.Width

	var rows []int
	for _, rc := range sc.Rects {
		if !slices.Contains(rows, rc.Row) {
			rows = append(rows, rc.Row)
		}
	}
	slices.Sort(rows)

	labels := make(map[string]string, len(sc.Labels))
	for _, lb := range sc.Labels {
		labels[lb.ID] = lb.Text
	}

	grid := make([][]rune, len(rows))
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}

	for _, rc := range sc.Rects {
		line := grid[slices.Index(rows, rc.Row)]
		c0, c1 := span(rc.X, rc.X+rc.W, k, cols)
		if c0 >= cols || c1 <= 0 {
			continue
		}
		fill := BarRune
		switch {
		case rc.W == 0:
			fill = MilestoneRune
		case rc.Tentative:
			fill = TentativeRune
		}
		for c := c0; c < c1; c++ {
			line[c] = fill
		}
		if text := []rune(labels[rc.ID]); rc.W > 0 && len(text) > 0 {
			n := min(len(text), c1-c0)
			copy(line[c0:c0+n], text[:n])
		}
	}

	var b strings.Builder
	if len(sc.Ticks) > 0 {
		header := []rune(strings.Repeat(" ", cols))
		next := 0
		for _, tk := range sc.Ticks {
			c := int(math.Floor(tk.X * k))
			text := []rune(tk.Text)
			if c < next || c+len(text) > cols {
				continue
			}
			copy(header[c:], text)
			next = c + len(text) + 1
		}
		b.WriteString(strings.TrimRight(string(header), " "))
		b.WriteByte('\n')
	}
	for _, line := range grid {
		b.WriteString(strings.TrimRight(string(line), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// span maps a pixel range to a half-open column range. Non-empty ranges
// always cover at least one column.
func span(x0, x1, k float64, cols int) (int, int) {
	c0 := int(math.Floor(x0 * k))
	c1 := int(math.Ceil(x1 * k))
	if c1 <= c0 {
		c1 = c0 + 1
	}
	return max(c0, 0), min(c1, cols)
}
