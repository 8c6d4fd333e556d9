// Package timeline holds the in-memory representation of schedulable items.
//
// # Overview
//
// A [Model] maps item identifiers to [Item] values and remembers the order in
// which identifiers were first inserted. Every item satisfies start ≤ end at
// all times: [Model.Upsert] validates before touching the map and either
// applies the change completely or reports an INVALID_RANGE error and leaves
// the model exactly as it was.
//
// The model is independent of any UI framework. Hosts populate it on load
// and on external refresh; the interaction layer mutates it only after a
// host has confirmed a commit.
//
// # Iteration
//
// [Model.List] returns an [iter.Seq] that can be ranged over any number of
// times. Each range walks a snapshot taken when the range begins, so
// concurrent upserts never tear an iteration.
//
//	for item := range m.List() {
//	    fmt.Println(item.ID, item.Start, item.End)
//	}
package timeline
