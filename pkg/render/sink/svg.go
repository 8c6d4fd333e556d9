package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/matzehuels/gantt/pkg/render"
)

const fontFamily = "Helvetica, Arial, sans-serif"

const barInteractionCSS = `
    .bar { transition: stroke-width 0.2s ease; }
    .bar.highlight { stroke-width: 3; }
    .bar.tentative { stroke-dasharray: 4 2; }
    .link.highlight { stroke-width: 2; }`

const barInteractionJS = `
    function highlight(id) {
      document.querySelectorAll('.bar').forEach(b => b.classList.toggle('highlight', b.dataset.item === id));
      document.querySelectorAll('.link').forEach(l => l.classList.toggle('highlight', l.dataset.from === id || l.dataset.to === id));
    }
    function clearHighlight() {
      document.querySelectorAll('.bar, .link').forEach(el => el.classList.remove('highlight'));
    }
    document.querySelectorAll('.bar').forEach(el => {
      el.addEventListener('mouseenter', () => highlight(el.dataset.item));
      el.addEventListener('mouseleave', clearHighlight);
    });`

// Theme holds the SVG palette.
type Theme struct {
	Background string
	Band       string
	Bar        string
	Tentative  string
	Stroke     string
	Text       string
	Grid       string
	Link       string
}

// DefaultTheme is a light palette.
var DefaultTheme = Theme{
	Background: "#ffffff",
	Band:       "#f5f5f7",
	Bar:        "#7c8cf8",
	Tentative:  "#f8b27c",
	Stroke:     "#3b4bc8",
	Text:       "#1f2328",
	Grid:       "#e1e4e8",
	Link:       "#6e7781",
}

// DarkTheme is a dark palette.
var DarkTheme = Theme{
	Background: "#0d1117",
	Band:       "#161b22",
	Bar:        "#388bfd",
	Tentative:  "#d29922",
	Stroke:     "#1f6feb",
	Text:       "#e6edf3",
	Grid:       "#30363d",
	Link:       "#8b949e",
}

// Themes maps theme names to palettes.
var Themes = map[string]Theme{
	"light": DefaultTheme,
	"dark":  DarkTheme,
}

// ThemeByName returns the named palette. An empty name is the light theme.
func ThemeByName(name string) (Theme, bool) {
	if name == "" {
		return DefaultTheme, true
	}
	t, ok := Themes[name]
	return t, ok
}

// SVGOption configures [SVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme       Theme
	interactive bool
	title       string
}

// WithTheme overrides the palette.
func WithTheme(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithInteraction embeds hover highlighting CSS and JS.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// WithTitle sets the document <title>.
func WithTitle(s string) SVGOption { return func(r *svgRenderer) { r.title = s } }

// SVG renders sc as a standalone SVG document.
func SVG(sc render.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{theme: DefaultTheme}
	for _, opt := range opts {
		opt(&r)
	}
	th := r.theme

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		sc.Width, sc.Height, sc.Width, sc.Height)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	fmt.Fprintf(&buf, `  <defs><marker id="arrow" viewBox="0 0 6 6" refX="6" refY="3" markerWidth="6" markerHeight="6" orient="auto"><path d="M0,0 L6,3 L0,6 z" fill="%s"/></marker></defs>`+"\n", th.Link)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", th.Background)

	for i, b := range sc.Bands {
		if i%2 == 1 {
			fmt.Fprintf(&buf, `  <rect class="band" x="0" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`+"\n",
				b.Y, sc.Width, b.H, th.Band)
		}
	}

	for _, tk := range sc.Ticks {
		fmt.Fprintf(&buf, `  <line class="grid" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"/>`+"\n",
			tk.X, sc.Header, tk.X, sc.Height, th.Grid)
		if sc.Header > 0 {
			fmt.Fprintf(&buf, `  <text class="tick" x="%.2f" y="%.2f" font-family="%s" font-size="%.1f" fill="%s">%s</text>`+"\n",
				tk.X+2, sc.Header*0.7, fontFamily, sc.Header*0.45, th.Text, escapeXML(tk.Text))
		}
	}

	for _, rc := range sc.Rects {
		fill, class := th.Bar, "bar"
		if rc.Tentative {
			fill, class = th.Tentative, "bar tentative"
		}
		fmt.Fprintf(&buf, `  <rect class="%s" data-item="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="3" fill="%s" stroke="%s" stroke-width="1"/>`+"\n",
			class, escapeXML(rc.ID), rc.X, rc.Y, max(rc.W, 1), rc.H, fill, th.Stroke)
	}

	for _, ln := range sc.Lines {
		fmt.Fprintf(&buf, `  <path class="link" data-from="%s" data-to="%s" d="M%.2f,%.2f H%.2f V%.2f H%.2f" fill="none" stroke="%s" stroke-width="1" marker-end="url(#arrow)"/>`+"\n",
			escapeXML(ln.From), escapeXML(ln.To), ln.X1, ln.Y1, ln.X1+6, ln.Y2, ln.X2, th.Link)
	}

	for _, lb := range sc.Labels {
		fmt.Fprintf(&buf, `  <text class="label" x="%.2f" y="%.2f" dominant-baseline="middle" font-family="%s" font-size="%.1f" fill="%s">%s</text>`+"\n",
			lb.X, lb.Y, fontFamily, sc.RowHeight*0.45, th.Text, escapeXML(lb.Text))
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", barInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", barInteractionJS)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
