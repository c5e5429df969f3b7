package sankey

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

func threeWay(t *testing.T) *flow.Graph {
	t.Helper()
	candidates := []tabulation.Candidate{
		{"name": "A", "color": "#ff0000"},
		{"name": "B"},
		{"name": "C & Co"},
	}
	rounds := []tabulation.Round{
		{Eliminated: tabulation.FirstPreferences, Votes: []float64{40, 35, 25}},
		{Eliminated: 2, Votes: []float64{10, 15, 0}},
	}
	g, err := flow.Build(candidates, rounds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

// Unit scale: (116 - 2*8) / 100 votes = 1 pixel per vote.
var unitOpts = Options{Width: 124, Height: 116, NodeWidth: 24, NodePadding: 8}

func TestComputeNodes(t *testing.T) {
	l := Compute(threeWay(t), unitOpts)

	if l.Rounds != 2 || l.TotalVotes != 100 {
		t.Fatalf("Rounds = %d TotalVotes = %v, want 2 and 100", l.Rounds, l.TotalVotes)
	}

	want := []struct {
		id             int
		x0, y0, x1, y1 float64
	}{
		{0, 0, 0, 24, 40},
		{1, 0, 48, 24, 83},
		{2, 0, 91, 24, 116},
		{3, 100, 0, 124, 50},
		{4, 100, 58, 124, 108},
	}
	if len(l.Nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(l.Nodes), len(want))
	}
	for i, w := range want {
		n := l.Nodes[i]
		if n.ID != w.id || n.X0 != w.x0 || n.Y0 != w.y0 || n.X1 != w.x1 || n.Y1 != w.y1 {
			t.Errorf("node[%d] = id %d (%v,%v)-(%v,%v), want id %d (%v,%v)-(%v,%v)", i,
				n.ID, n.X0, n.Y0, n.X1, n.Y1, w.id, w.x0, w.y0, w.x1, w.y1)
		}
	}

	if l.Nodes[0].Color != "#ff0000" {
		t.Errorf("candidate colour = %q, want #ff0000", l.Nodes[0].Color)
	}
	if l.Nodes[1].Color != palette[1] {
		t.Errorf("palette colour = %q, want %q", l.Nodes[1].Color, palette[1])
	}
}

func TestComputeLinks(t *testing.T) {
	l := Compute(threeWay(t), unitOpts)

	want := []Link{
		{Source: 2, Target: 3, Votes: 10, Kind: "redistribution", Width: 10, X0: 24, Y0: 96, X1: 100, Y1: 5},
		{Source: 0, Target: 3, Votes: 40, Kind: "continuation", Width: 40, X0: 24, Y0: 20, X1: 100, Y1: 30},
		{Source: 2, Target: 4, Votes: 15, Kind: "redistribution", Width: 15, X0: 24, Y0: 109, X1: 100, Y1: 66},
		{Source: 1, Target: 4, Votes: 35, Kind: "continuation", Width: 35, X0: 24, Y0: 66, X1: 100, Y1: 91},
	}
	if len(l.Links) != len(want) {
		t.Fatalf("got %d links, want %d", len(l.Links), len(want))
	}
	for i, w := range want {
		if l.Links[i] != w {
			t.Errorf("link[%d] = %+v, want %+v", i, l.Links[i], w)
		}
	}
}

func TestComputeDefaults(t *testing.T) {
	l := Compute(threeWay(t), Options{})
	if l.Width != DefaultWidth || l.Height != DefaultHeight || l.NodeWidth != DefaultNodeWidth {
		t.Errorf("defaults = %v x %v node %v", l.Width, l.Height, l.NodeWidth)
	}
	last := l.Nodes[len(l.Nodes)-1]
	if last.X1 != DefaultWidth {
		t.Errorf("last column right edge = %v, want %v", last.X1, DefaultWidth)
	}
}

func TestComputeSingleRound(t *testing.T) {
	g, err := flow.Build(
		[]tabulation.Candidate{{"name": "Solo"}},
		[]tabulation.Round{{Eliminated: tabulation.FirstPreferences, Votes: []float64{7}}},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	l := Compute(g, Options{Width: 100, Height: 70, NodeWidth: 10, NodePadding: 5})
	if len(l.Links) != 0 {
		t.Errorf("got %d links, want 0", len(l.Links))
	}
	n := l.Nodes[0]
	if n.X0 != 0 || n.Y0 != 0 || n.Y1 != 70 {
		t.Errorf("node = %+v, want full height at x=0", n)
	}
}

func TestComputeEmptyGraph(t *testing.T) {
	l := Compute(&flow.Graph{}, DefaultOptions())
	if l.Rounds != 0 || len(l.Nodes) != 0 || len(l.Links) != 0 {
		t.Errorf("empty graph layout = %+v", l)
	}
}

func TestRenderSVG(t *testing.T) {
	l := Compute(threeWay(t), unitOpts)

	tests := []struct {
		name    string
		opts    []SVGOption
		want    []string
		notWant []string
	}{
		{
			name: "Default",
			want: []string{
				`<svg xmlns="http://www.w3.org/2000/svg"`,
				`id="node-3"`,
				`class="redistribution"`,
				`class="continuation"`,
				`A  50 (50.0%)`,
				`C &amp; Co  25 (25.0%)`,
			},
			notWant: []string{"<title>Senate</title>"},
		},
		{
			name: "Title",
			opts: []SVGOption{WithTitle("Senate")},
			want: []string{"<title>Senate</title>", `class="title"`},
		},
		{
			name:    "NoLabels",
			opts:    []SVGOption{WithLabels(false)},
			notWant: []string{`class="labels"`},
		},
		{
			name: "Attrs",
			opts: []SVGOption{
				WithAttrs(map[string]string{"stroke": "black", "rx": "3"}),
				WithLinkAttrs(map[string]string{"stroke-opacity": "0.9"}),
			},
			want:    []string{`rx="3"`, `stroke="black"`, `stroke-opacity="0.9"`},
			notWant: []string{`stroke="none"`, `stroke-opacity="0.25"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svg := string(RenderSVG(l, tt.opts...))
			for _, s := range tt.want {
				if !strings.Contains(svg, s) {
					t.Errorf("SVG missing %q", s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(svg, s) {
					t.Errorf("SVG unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestRenderSVGSkipsEmptyBands(t *testing.T) {
	g, err := flow.Build(
		[]tabulation.Candidate{{"name": "A"}, {"name": "B"}, {"name": "C"}},
		[]tabulation.Round{
			{Eliminated: tabulation.FirstPreferences, Votes: []float64{5, 3, 2}},
			{Eliminated: 2, Votes: []float64{0, 2, 0}},
		},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	svg := string(RenderSVG(Compute(g, DefaultOptions())))
	if got := strings.Count(svg, `class="redistribution"`); got != 1 {
		t.Errorf("rendered %d redistribution bands, want 1", got)
	}
}

func TestRenderJSON(t *testing.T) {
	data, err := RenderJSON(Compute(threeWay(t), unitOpts))
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	var got Layout
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Nodes) != 5 || len(got.Links) != 4 {
		t.Errorf("decoded %d nodes %d links, want 5 and 4", len(got.Nodes), len(got.Links))
	}
}
