package sink

import (
	"github.com/matzehuels/gantt/pkg/render"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	svgOpts []SVGOption
	scale   float64
}

// WithPNGSVGOptions passes options through to the underlying SVG renderer.
func WithPNGSVGOptions(opts ...SVGOption) PNGOption {
	return func(r *pngRenderer) { r.svgOpts = opts }
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// PNG renders the scene as PNG via SVG conversion.
func PNG(sc render.Scene, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 2.0}
	for _, opt := range opts {
		opt(&r)
	}
	return render.ToPNG(SVG(sc, r.svgOpts...), r.scale)
}

// PDF renders the scene as PDF via SVG conversion.
func PDF(sc render.Scene, opts ...SVGOption) ([]byte, error) {
	return render.ToPDF(SVG(sc, opts...))
}
