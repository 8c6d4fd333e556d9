package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gantt/pkg/timeline"
)

// DOT converts item dependencies to Graphviz DOT. Each item is a node
// labelled with its name and date range; each link becomes an edge from the
// dependency to the dependent item. Links to unknown ids are dropped.
func DOT(items []timeline.Item) string {
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, it := range items {
		name := it.Name
		if name == "" {
			name = it.ID
		}
		label := fmt.Sprintf("%s\n%s .. %s", name, it.Start.Format("2006-01-02"), it.End.Format("2006-01-02"))
		fmt.Fprintf(&buf, "  %q [label=%q];\n", it.ID, label)
	}

	buf.WriteString("\n")
	for _, it := range items {
		for _, dep := range it.Links {
			if known[dep] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", dep, it.ID)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// DependencySVG renders a DOT graph to SVG using Graphviz.
func DependencySVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-based root element with a plain
// pixel viewBox so the output embeds like the timeline SVG.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
