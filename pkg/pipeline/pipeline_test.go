package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dopflow/pkg/cache"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/observability"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

const threeWayJSON = `{
  "title": "Three way",
  "candidates": [{"name": "A"}, {"name": "B"}, {"name": "C"}],
  "flow": [
    {"eliminated": -1, "votes": [40, 35, 25]},
    {"eliminated": 2, "votes": [10, 15, 0]}
  ]
}`

const threeWayTOML = `
title = "Three way"

[[candidates]]
name = "A"

[[candidates]]
name = "B"

[[candidates]]
name = "C"

[[flow]]
eliminated = -1
votes = [40.0, 35.0, 25.0]

[[flow]]
eliminated = 2
votes = [10.0, 15.0, 0.0]
`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"dot", false},
		{"json", false},
		{"png", false},
		{"pdf", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, pkgerrors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateVizType(t *testing.T) {
	tests := []struct {
		vizType string
		wantErr bool
	}{
		{"sankey", false},
		{"nodelink", false},
		{"tower", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateVizType(tt.vizType)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateVizType(%q) error = %v, wantErr %v", tt.vizType, err, tt.wantErr)
		}
	}
}

func TestOptionsIsSankey(t *testing.T) {
	opts := Options{}
	if !opts.IsSankey() || opts.IsNodelink() {
		t.Error("Empty VizType should be sankey")
	}

	opts.VizType = "nodelink"
	if opts.IsSankey() || !opts.IsNodelink() {
		t.Error("nodelink VizType should be nodelink")
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}

	if opts.Format != tabulation.FormatJSON {
		t.Errorf("Format should be json, got %s", opts.Format)
	}
	if opts.VizType != DefaultVizType {
		t.Errorf("VizType should be %s, got %s", DefaultVizType, opts.VizType)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("dimensions should be %vx%v, got %vx%v", DefaultWidth, DefaultHeight, opts.Width, opts.Height)
	}
	if opts.NodeWidth != DefaultNodeWidth || opts.Padding() != DefaultNodePadding {
		t.Errorf("node dimensions = %v/%v", opts.NodeWidth, opts.Padding())
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}

	// Second call should be idempotent
	before := opts
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.VizType != before.VizType || opts.Width != before.Width {
		t.Error("options changed on second call")
	}
}

func TestOptionsZeroPaddingKept(t *testing.T) {
	opts := Options{NodePadding: NodePadding(0)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if got := opts.Padding(); got != 0 {
		t.Errorf("Padding() = %v, want 0", got)
	}
	if got := opts.SankeyOptions().NodePadding; got != 0 {
		t.Errorf("SankeyOptions().NodePadding = %v, want 0", got)
	}
	if got := opts.LayoutKeyOpts().NodePadding; got != 0 {
		t.Errorf("LayoutKeyOpts().NodePadding = %v, want 0", got)
	}
}

func TestOptionsValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code pkgerrors.Code
	}{
		{"InputFormat", Options{Format: "yaml"}, pkgerrors.ErrCodeInvalidFormat},
		{"VizType", Options{VizType: "tower"}, pkgerrors.ErrCodeInvalidVizType},
		{"OutputFormat", Options{Formats: []string{"gif"}}, pkgerrors.ErrCodeInvalidFormat},
		{"NegativeWidth", Options{Width: -1}, pkgerrors.ErrCodeInvalidInput},
		{"NegativePadding", Options{NodePadding: NodePadding(-1)}, pkgerrors.ErrCodeInvalidInput},
		{"NodeWiderThanDrawing", Options{Width: 20, NodeWidth: 30}, pkgerrors.ErrCodeInvalidInput},
		{"Title", Options{Title: "a\nb"}, pkgerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if !pkgerrors.Is(err, tt.code) {
				t.Errorf("code = %s, want %s", pkgerrors.GetCode(err), tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fromJSON, err := Load([]byte(threeWayJSON), "json")
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	fromTOML, err := Load([]byte(threeWayTOML), "toml")
	if err != nil {
		t.Fatalf("Load toml: %v", err)
	}

	hj, _ := inputHash(fromJSON)
	ht, _ := inputHash(fromTOML)
	if hj != ht {
		t.Error("JSON and TOML forms of one tabulation should hash alike")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
		code   pkgerrors.Code
	}{
		{"Malformed", `{"candidates":`, "json", pkgerrors.ErrCodeInvalidInput},
		{"UnknownFormat", threeWayJSON, "yaml", pkgerrors.ErrCodeInvalidFormat},
		{"NoRounds", `{"candidates":[{"name":"A"}],"flow":[]}`, "json", pkgerrors.ErrCodeInvalidTabulation},
		{
			"ReusedElimination",
			`{"candidates":[{},{},{}],"flow":[{"eliminated":-1,"votes":[5,3,2]},{"eliminated":2,"votes":[1,1,0]},{"eliminated":2,"votes":[1,0,0]}]}`,
			"json",
			pkgerrors.ErrCodeInvalidTabulation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatal("expected error")
			}
			if !pkgerrors.Is(err, tt.code) {
				t.Errorf("code = %s, want %s (%v)", pkgerrors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestBuildErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		res  tabulation.Result
		code pkgerrors.Code
	}{
		{
			name: "EmptyFlow",
			res:  tabulation.Result{Candidates: []tabulation.Candidate{{}}},
			code: pkgerrors.ErrCodeInvalidTabulation,
		},
		{
			name: "EliminatedTwice",
			res: tabulation.Result{
				Candidates: []tabulation.Candidate{{}, {}, {}},
				Flow: []tabulation.Round{
					{Eliminated: -1, Votes: []float64{5, 3, 2}},
					{Eliminated: 2, Votes: []float64{1, 1, 0}},
					{Eliminated: 2, Votes: []float64{0, 0, 0}},
				},
			},
			code: pkgerrors.ErrCodeInconsistentRound,
		},
		{
			name: "ZeroTotal",
			res: tabulation.Result{
				Candidates: []tabulation.Candidate{{}},
				Flow:       []tabulation.Round{{Eliminated: -1, Votes: []float64{0}}},
			},
			code: pkgerrors.ErrCodeInvalidTabulation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(&tt.res)
			if !pkgerrors.Is(err, tt.code) {
				t.Errorf("Build error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteSankey(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), []byte(threeWayJSON), Options{
		Formats: []string{FormatSVG, FormatJSON, FormatDOT},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Stats.Candidates != 3 || result.Stats.Rounds != 2 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	if result.Stats.NodeCount != 5 || result.Stats.LinkCount != 4 {
		t.Errorf("NodeCount/LinkCount = %d/%d, want 5/4", result.Stats.NodeCount, result.Stats.LinkCount)
	}
	if len(result.InputHash) != 64 || len(result.GraphHash) != 64 {
		t.Errorf("hashes = %q %q", result.InputHash, result.GraphHash)
	}
	if !result.Layout.IsSankey() || result.Layout.Sankey == nil {
		t.Fatalf("Layout = %+v, want sankey", result.Layout)
	}

	svg := string(result.Artifacts[FormatSVG])
	if !strings.Contains(svg, "<title>Three way</title>") {
		t.Error("SVG should carry the tabulation title")
	}
	if !strings.Contains(string(result.Artifacts[FormatDOT]), "digraph G") {
		t.Error("DOT artifact missing digraph")
	}

	var layout struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(result.Artifacts[FormatJSON], &layout); err != nil {
		t.Fatalf("JSON artifact: %v", err)
	}
	if len(layout.Nodes) != 5 {
		t.Errorf("JSON artifact has %d nodes, want 5", len(layout.Nodes))
	}
}

func TestExecuteNodelink(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	result, err := r.Execute(context.Background(), []byte(threeWayTOML), Options{
		Format:    "toml",
		VizType:   VizTypeNodelink,
		Formats:   []string{FormatDOT, FormatJSON},
		Title:     "Override",
		HideEmpty: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Layout.IsNodelink() || result.Layout.DOT == "" {
		t.Fatalf("Layout = %+v, want nodelink", result.Layout)
	}
	if string(result.Artifacts[FormatDOT]) != result.Layout.DOT {
		t.Error("DOT artifact should equal the layout DOT")
	}

	g, err := graph.UnmarshalGraph(result.Artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("JSON artifact: %v", err)
	}
	if g.Title != "Override" || g.TotalVotes != 100 || len(g.Links) != 4 {
		t.Errorf("graph artifact = title %q total %v links %d", g.Title, g.TotalVotes, len(g.Links))
	}
}

func TestExecuteInvalidInput(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(context.Background(), []byte(`{"candidates":[{"name":"A"}],"flow":[{"eliminated":0,"votes":[1]}]}`), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidTabulation) {
		t.Errorf("code = %s, want %s", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidTabulation)
	}
	if !strings.HasPrefix(err.Error(), "load: ") {
		t.Errorf("error should name the stage: %v", err)
	}
}

func TestExecuteCaching(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, quietLogger())
	ctx := context.Background()
	opts := Options{Formats: []string{FormatSVG, FormatJSON}}

	first, err := r.Execute(ctx, []byte(threeWayJSON), opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo != (CacheInfo{}) {
		t.Errorf("first run CacheInfo = %+v, want all misses", first.CacheInfo)
	}

	second, err := r.Execute(ctx, []byte(threeWayTOML), Options{Format: "toml", Formats: []string{FormatSVG, FormatJSON}})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.CacheInfo != (CacheInfo{BuildHit: true, LayoutHit: true, RenderHit: true}) {
		t.Errorf("second run CacheInfo = %+v, want all hits", second.CacheInfo)
	}
	if string(second.Artifacts[FormatSVG]) != string(first.Artifacts[FormatSVG]) {
		t.Error("cached SVG differs from rendered SVG")
	}
	if second.GraphHash != first.GraphHash {
		t.Error("graph rebuilt from cache should hash alike")
	}
	if w := second.Graph.Winner(); w == nil || w.Label() != "A" {
		t.Errorf("cached graph winner = %v, want A", w)
	}

	refreshed, err := r.Execute(ctx, []byte(threeWayJSON), Options{Formats: []string{FormatSVG, FormatJSON}, Refresh: true})
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if refreshed.CacheInfo != (CacheInfo{}) {
		t.Errorf("refresh CacheInfo = %+v, want all misses", refreshed.CacheInfo)
	}

	partial, err := r.Execute(ctx, []byte(threeWayJSON), Options{Formats: []string{FormatSVG, FormatDOT}})
	if err != nil {
		t.Fatalf("partial Execute: %v", err)
	}
	if partial.CacheInfo.RenderHit {
		t.Error("render should miss when one format is not cached")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	observability.NoopCacheHooks

	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnBuildComplete(_ context.Context, nodes, links int, _ time.Duration, err error) {
	h.record("build")
}
func (h *recordingHooks) OnRenderComplete(_ context.Context, _ []string, _ time.Duration, err error) {
	h.record("render")
}
func (h *recordingHooks) OnCacheHit(_ context.Context, keyType string)  { h.record("hit:" + keyType) }
func (h *recordingHooks) OnCacheMiss(_ context.Context, keyType string) { h.record("miss:" + keyType) }

func TestExecuteEmitsHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	r := NewRunner(nil, nil, quietLogger())
	if _, err := r.Execute(context.Background(), []byte(threeWayJSON), Options{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"miss:graph", "build", "miss:layout", "miss:artifact", "render"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	res, err := Load([]byte(threeWayJSON), "json")
	if err != nil {
		t.Fatal(err)
	}
	g, err := Build(res)
	if err != nil {
		t.Fatal(err)
	}

	for _, vizType := range []string{VizTypeSankey, VizTypeNodelink} {
		t.Run(vizType, func(t *testing.T) {
			l, err := GenerateLayout(g, Options{VizType: vizType})
			if err != nil {
				t.Fatalf("GenerateLayout: %v", err)
			}
			data, err := MarshalLayout(l)
			if err != nil {
				t.Fatalf("MarshalLayout: %v", err)
			}
			got, err := UnmarshalLayout(data)
			if err != nil {
				t.Fatalf("UnmarshalLayout: %v", err)
			}
			if got.VizType != vizType {
				t.Errorf("VizType = %s, want %s", got.VizType, vizType)
			}
		})
	}
}

func TestUnmarshalLayoutErrors(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"viz_type":"sankey"}`,
		`{"viz_type":"nodelink"}`,
		`{"viz_type":"tower","dot":"digraph G {}"}`,
	} {
		if _, err := UnmarshalLayout([]byte(data)); err == nil {
			t.Errorf("UnmarshalLayout(%s) should fail", data)
		}
	}
}

func TestRenderFromLayoutWithoutGraph(t *testing.T) {
	res, err := Load([]byte(threeWayJSON), "json")
	if err != nil {
		t.Fatal(err)
	}
	g, err := Build(res)
	if err != nil {
		t.Fatal(err)
	}

	sankeyLayout, err := GenerateLayout(g, Options{VizType: VizTypeSankey})
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{VizType: VizTypeSankey, Formats: []string{FormatSVG, FormatJSON}}
	if err := opts.ValidateForRender(); err != nil {
		t.Fatal(err)
	}
	artifacts, err := RenderFromLayout(sankeyLayout, nil, opts)
	if err != nil {
		t.Fatalf("sankey svg+json without graph: %v", err)
	}
	if !strings.HasPrefix(string(artifacts[FormatSVG]), "<svg") {
		t.Error("SVG artifact should start with <svg")
	}

	opts.Formats = []string{FormatDOT}
	if _, err := RenderFromLayout(sankeyLayout, nil, opts); !pkgerrors.Is(err, pkgerrors.ErrCodeUnsupported) {
		t.Errorf("sankey dot without graph: err = %v, want UNSUPPORTED", err)
	}

	nodelinkLayout, err := GenerateLayout(g, Options{VizType: VizTypeNodelink})
	if err != nil {
		t.Fatal(err)
	}
	opts = Options{VizType: VizTypeNodelink, Formats: []string{FormatDOT}}
	artifacts, err = RenderFromLayout(nodelinkLayout, nil, opts)
	if err != nil {
		t.Fatalf("nodelink dot without graph: %v", err)
	}
	if string(artifacts[FormatDOT]) != nodelinkLayout.DOT {
		t.Error("DOT artifact should equal the layout DOT")
	}

	opts.Formats = []string{FormatJSON}
	if _, err := RenderFromLayout(nodelinkLayout, nil, opts); !pkgerrors.Is(err, pkgerrors.ErrCodeUnsupported) {
		t.Errorf("nodelink json without graph: err = %v, want UNSUPPORTED", err)
	}
}

func TestNodelinkLayoutCacheKeyTracksDOTOptions(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	ctx := context.Background()

	res, err := r.Load(ctx, []byte(threeWayJSON), "json")
	if err != nil {
		t.Fatal(err)
	}
	g, err := r.Build(ctx, res, Options{})
	if err != nil {
		t.Fatal(err)
	}

	plain, hit, err := r.LayoutWithCacheInfo(ctx, g, Options{VizType: VizTypeNodelink})
	if err != nil || hit {
		t.Fatalf("first layout: hit=%v err=%v", hit, err)
	}
	detailed, hit, err := r.LayoutWithCacheInfo(ctx, g, Options{VizType: VizTypeNodelink, Detailed: true})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("detailed layout should not reuse the plain cache entry")
	}
	if plain.DOT == detailed.DOT {
		t.Error("detailed DOT should differ from plain DOT")
	}
}
