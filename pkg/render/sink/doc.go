// Package sink materialises [render.Scene] values in concrete formats.
//
// # Formats
//
//   - [SVG]: standalone SVG document with optional hover interaction
//   - [JSON]: the scene itself, for web clients that draw their own bars
//   - [Text]: a fixed-width character grid for terminals and logs
//   - [PNG], [PDF]: SVG converted with rsvg-convert
//   - [DOT], [DependencySVG]: the dependency graph between items, laid out
//     by Graphviz instead of on the time axis
//
// Every sink is a pure function of its inputs except PNG, PDF and
// DependencySVG, which call out to external renderers.
//
// [render.Scene]: github.com/matzehuels/gantt/pkg/render.Scene
package sink
