// Package render turns a [layout.Layout] and a [Viewport] into a [Scene].
//
// # Overview
//
// A Scene is a flat list of primitives ([Rect], [Label], [Line], [Tick])
// in viewport coordinates. It has no knowledge of output formats: the
// [sink] subpackage materialises scenes as SVG, JSON, plain text, PNG or
// PDF, and the TUI draws them directly.
//
// [Render] is pure. It only reads the layout and viewport, so identical
// inputs always produce identical scenes and a host can re-render on every
// frame without side effects.
//
// # Culling
//
// Bars whose bounding box does not intersect the viewport are omitted.
// Dependency lines are emitted only when both ends are visible. Ticks are
// the unit boundaries of the layout's scale that fall inside the viewport.
//
// # Coordinates
//
// Viewport X and Y are in layout pixel space (X as returned by
// [scale.Scale.X], Y measured from the top of row 0). Scene coordinates
// are relative to the viewport's top-left corner, with an optional header
// band for the time axis above the rows.
//
// # Format Conversion
//
// [ToPNG] and [ToPDF] convert SVG bytes by shelling out to rsvg-convert.
//
// [sink]: github.com/matzehuels/gantt/pkg/render/sink
package render
