package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds pin types and unlinked default values to pin labels.
	Detailed bool
	// Properties draws graph properties as separate nodes with dotted edges
	// to the pins bound to them.
	Properties bool
	// Failed highlights nodes that reported evaluation errors.
	Failed []nodegraph.ID
}

// ToDOT converts a node graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Nodes are records with input pins on the left and output pins on the
// right; every pin is a record port so links attach to the pin they use.
// Flow links are drawn bold.
func ToDOT(g *nodegraph.Graph, opts Options) string {
	failed := make(map[nodegraph.ID]bool, len(opts.Failed))
	for _, id := range opts.Failed {
		failed[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=record, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		attrs := []string{fmt.Sprintf("label=\"%s\"", fmtRecord(n, opts.Detailed))}
		if failed[n.ID] {
			attrs = append(attrs, "fillcolor=mistyrose", "color=firebrick")
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(n.ID), strings.Join(attrs, ", "))
	}

	if opts.Properties {
		for _, p := range g.Properties() {
			label := escape(p.Name) + "\\n" + p.Class
			if a := g.Asset(p.Asset); a != nil {
				label += "\\n" + escape(a.Path)
			}
			fmt.Fprintf(&buf, "  %s [shape=ellipse, style=filled, fillcolor=lightyellow, label=\"%s\"];\n", propName(p.ID), label)
		}
	}

	buf.WriteString("\n")
	for _, l := range g.Links() {
		out, in := g.Pin(l.Start), g.Pin(l.End)
		if out == nil || in == nil {
			continue
		}
		attr := ""
		if out.Type.Kind == nodegraph.KindFlow {
			attr = " [style=bold]"
		}
		fmt.Fprintf(&buf, "  %s:%s:e -> %s:%s:w%s;\n", nodeName(out.Node), portName(out.ID), nodeName(in.Node), portName(in.ID), attr)
	}
	if opts.Properties {
		for _, p := range g.Properties() {
			for _, pin := range g.BoundPins(p.ID) {
				fmt.Fprintf(&buf, "  %s -> %s:%s:w [style=dotted, arrowhead=none];\n", propName(p.ID), nodeName(pin.Node), portName(pin.ID))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id nodegraph.ID) string { return fmt.Sprintf("n%d", id) }
func propName(id nodegraph.ID) string { return fmt.Sprintf("prop%d", id) }
func portName(id nodegraph.ID) string { return fmt.Sprintf("p%d", id) }

func fmtRecord(n *nodegraph.Node, detailed bool) string {
	column := func(pins []*nodegraph.Pin) string {
		parts := make([]string, len(pins))
		for i, p := range pins {
			parts[i] = fmt.Sprintf("<%s> %s", portName(p.ID), fmtPin(p, detailed))
		}
		return "{" + strings.Join(parts, "|") + "}"
	}
	title := fmt.Sprintf("%s\\n#%d", escape(n.Class), n.ID)
	return column(n.InputPins()) + "|" + title + "|" + column(n.OutputPins())
}

func fmtPin(p *nodegraph.Pin, detailed bool) string {
	label := escape(p.Name)
	if !detailed {
		return label
	}
	label += " : " + escape(p.Type.String())
	if p.Direction == nodegraph.Input && !p.Linked() && len(p.Default.Floats)+len(p.Default.Ints) > 0 {
		label += " = " + escape(fmtValue(p.Default))
	}
	return label
}

func fmtValue(v nodegraph.Value) string {
	var parts []string
	for _, f := range v.Floats {
		parts = append(parts, strconv.FormatFloat(float64(f), 'g', 4, 32))
	}
	for _, i := range v.Ints {
		parts = append(parts, strconv.Itoa(int(i)))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

var recordEscaper = strings.NewReplacer(
	`{`, `\{`, `}`, `\}`, `|`, `\|`, `<`, `\<`, `>`, `\>`, `"`, `\"`,
)

// escape protects record-label metacharacters.
func escape(s string) string { return recordEscaper.Replace(s) }

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
