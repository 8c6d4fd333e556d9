// Package layout computes bar positions for Gantt charts.
//
// # Overview
//
// [Build] is a pure function from items, a [scale.Scale] and options to a
// [Layout]: the ordered sequence of bars with their row and horizontal
// extent. It keeps no state between calls, so repeated calls with identical
// inputs produce identical output. That property is what makes re-render
// diffing and snapshot tests possible.
//
// # Row Assignment
//
// Items are first ordered by a caller-supplied [Comparator] (default
// [ByStart]: start instant, then id). Ties the comparator cannot break fall
// back to insertion order, so the result never depends on sort stability
// accidents.
//
// Items sharing a Group form a band of consecutive rows; bands appear in the
// order of their first item. Within a band the [Policy] decides rows:
//
//   - [Stack]: overlapping items get distinct rows. Each item takes the
//     lowest row that has no overlapping item yet (greedy interval
//     partitioning over half-open ranges).
//   - [Overlay]: the whole band is a single row. Bars are ordered by
//     insertion index, so earlier items are drawn first and later items
//     paint over them.
//
// # Building a Layout
//
//	l := layout.Build(items, scale.New(scale.Day, 40, origin),
//	    layout.WithPolicy(layout.Stack),
//	    layout.WithRowHeight(24),
//	)
//	for _, b := range l.Bars {
//	    fmt.Println(b.Item.ID, b.Row, b.XStart, b.XEnd)
//	}
package layout
