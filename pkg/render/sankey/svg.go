package sankey

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/matzehuels/dopflow/pkg/render"
)

const (
	margin      = 16.0
	titleHeight = 32.0
	labelGap    = 6.0
	fontSize    = 12.0
)

// Band opacity per link kind.
var linkOpacity = map[string]string{
	"redistribution": "0.55",
	"continuation":   "0.25",
}

// SVGOption configures [RenderSVG].
type SVGOption func(*renderer)

type renderer struct {
	title     string
	labels    bool
	nodeAttrs map[string]string
	linkAttrs map[string]string
}

// WithTitle draws a title above the diagram.
func WithTitle(title string) SVGOption { return func(r *renderer) { r.title = title } }

// WithLabels toggles node labels (on by default).
func WithLabels(on bool) SVGOption { return func(r *renderer) { r.labels = on } }

// WithAttrs sets extra attributes on every node rectangle, overriding the
// defaults of the same name.
func WithAttrs(attrs map[string]string) SVGOption {
	return func(r *renderer) { r.nodeAttrs = render.Extend(r.nodeAttrs, attrs) }
}

// WithLinkAttrs sets extra attributes on every link band.
func WithLinkAttrs(attrs map[string]string) SVGOption {
	return func(r *renderer) { r.linkAttrs = render.Extend(r.linkAttrs, attrs) }
}

// RenderSVG draws a computed layout as a standalone SVG document.
func RenderSVG(l Layout, opts ...SVGOption) []byte {
	r := renderer{labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	top := margin
	if r.title != "" {
		top += titleHeight
	}
	w := l.Width + 2*margin
	h := l.Height + top + margin

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
		fmt.Fprintf(&buf, `  <text class="title" x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="18" font-weight="bold">%s</text>`+"\n",
			w/2, margin+titleHeight/2, escapeXML(r.title))
	}
	fmt.Fprintf(&buf, `  <g transform="translate(%.1f,%.1f)">`+"\n", margin, top)

	colors := make(map[int]string, len(l.Nodes))
	for _, n := range l.Nodes {
		colors[n.ID] = n.Color
	}

	buf.WriteString("    <g class=\"links\" fill=\"none\">\n")
	for _, k := range l.Links {
		if k.Width <= 0 {
			continue
		}
		r.renderLink(&buf, k, colors[k.Source])
	}
	buf.WriteString("    </g>\n")

	buf.WriteString("    <g class=\"nodes\">\n")
	for _, n := range l.Nodes {
		r.renderNode(&buf, n)
	}
	buf.WriteString("    </g>\n")

	if r.labels {
		buf.WriteString("    <g class=\"labels\" font-family=\"sans-serif\">\n")
		for _, n := range l.Nodes {
			renderLabel(&buf, n, n.Round == l.Rounds-1)
		}
		buf.WriteString("    </g>\n")
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

// RenderJSON returns the layout as indented JSON.
func RenderJSON(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

func (r *renderer) renderNode(buf *bytes.Buffer, n Node) {
	attrs := map[string]string{
		"id":     fmt.Sprintf("node-%d", n.ID),
		"x":      num(n.X0),
		"y":      num(n.Y0),
		"width":  num(n.X1 - n.X0),
		"height": num(n.Y1 - n.Y0),
		"fill":   n.Color,
		"stroke": "none",
	}
	fmt.Fprintf(buf, "      <rect%s><title>%s</title></rect>\n",
		fmtAttrs(render.Extend(attrs, r.nodeAttrs)), escapeXML(labelText(n)))
}

func (r *renderer) renderLink(buf *bytes.Buffer, k Link, color string) {
	mid := (k.X0 + k.X1) / 2
	attrs := map[string]string{
		"class":          k.Kind,
		"d":              fmt.Sprintf("M%s,%s C%s,%s %s,%s %s,%s", num(k.X0), num(k.Y0), num(mid), num(k.Y0), num(mid), num(k.Y1), num(k.X1), num(k.Y1)),
		"stroke":         color,
		"stroke-width":   num(k.Width),
		"stroke-opacity": linkOpacity[k.Kind],
	}
	fmt.Fprintf(buf, "      <path%s/>\n", fmtAttrs(render.Extend(attrs, r.linkAttrs)))
}

func renderLabel(buf *bytes.Buffer, n Node, last bool) {
	x, anchor := n.X1+labelGap, "start"
	if last {
		x, anchor = n.X0-labelGap, "end"
	}
	y := (n.Y0 + n.Y1) / 2
	fmt.Fprintf(buf, `      <text x="%s" y="%s" dy="0.35em" text-anchor="%s" font-size="%.0f">%s</text>`+"\n",
		num(x), num(y), anchor, fontSize, escapeXML(labelText(n)))
}

func labelText(n Node) string {
	return fmt.Sprintf("%s  %s (%.1f%%)", n.Label, strconv.FormatFloat(n.Votes, 'f', -1, 64), n.VotePercentage)
}

func fmtAttrs(attrs map[string]string) string {
	var buf bytes.Buffer
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		fmt.Fprintf(&buf, ` %s="%s"`, k, escapeXML(attrs[k]))
	}
	return buf.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
