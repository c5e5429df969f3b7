package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/config"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/pipeline"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "svg", []string{"svg"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"spaces and blanks", " svg, ,dot ", []string{"svg", "dot"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseFormats(tt.input)); diff != "" {
				t.Errorf("parseFormats(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseVizTypes(t *testing.T) {
	if diff := cmp.Diff([]string{"sankey"}, parseVizTypes("")); diff != "" {
		t.Errorf("default mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sankey", "nodelink"}, parseVizTypes("sankey,nodelink")); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"all valid", []string{"svg", "dot", "json", "png", "pdf"}, false},
		{"unknown", []string{"svg", "gif"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pipeline.ValidateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
			if err != nil && !pkgerrors.Is(err, pkgerrors.ErrCodeInvalidFormat) {
				t.Errorf("code = %v, want %v", pkgerrors.GetCode(err), pkgerrors.ErrCodeInvalidFormat)
			}
		})
	}
}

func TestLayoutFlagsPadding(t *testing.T) {
	cfg := config.Default()
	cfg.Render.NodePadding = 12

	tests := []struct {
		name string
		args []string
		want float64
	}{
		{"FromConfig", nil, 12},
		{"Explicit", []string{"--node-padding", "4"}, 4},
		{"ExplicitZero", []string{"--node-padding", "0"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags layoutFlags
			cmd := &cobra.Command{Use: "x"}
			flags.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}

			var opts pipeline.Options
			flags.apply(&opts, cfg)
			if got := opts.Padding(); got != tt.want {
				t.Errorf("Padding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"count.json", "count"},
		{"count.toml", "count"},
		{"out/count.graph.json", "out/count"},
		{"count.layout.json", "count"},
		{"count", "count"},
	}

	for _, tt := range tests {
		if got := stem(tt.input); got != tt.want {
			t.Errorf("stem(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		input     string
		vizType   string
		format    string
		single    bool
		multiType bool
		want      string
	}{
		{"single with output", "diagram.svg", "count.json", "sankey", "svg", true, false, "diagram.svg"},
		{"single without output", "", "count.json", "sankey", "svg", true, false, "count.svg"},
		{"several formats", "out/count.svg", "count.json", "sankey", "png", false, false, "out/count.png"},
		{"base without extension", "out/count", "count.json", "sankey", "pdf", false, false, "out/count.pdf"},
		{"several types", "", "count.json", "nodelink", "dot", false, true, "count_nodelink.dot"},
		{"json next to json input", "", "count.json", "sankey", "json", true, false, "count_sankey.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifactPath(tt.output, tt.input, tt.vizType, tt.format, tt.single, tt.multiType)
			if got != tt.want {
				t.Errorf("artifactPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "nested", "count")

	err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{"svg": []byte("<svg/>"), "json": []byte("{}")},
		formats:   []string{"svg", "json", "pdf"},
		input:     "count.toml",
		output:    base,
		vizType:   "sankey",
	})
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}

	for ext, want := range map[string]string{"svg": "<svg/>", "json": "{}"} {
		got, err := os.ReadFile(base + "." + ext)
		if err != nil {
			t.Fatalf("read %s: %v", ext, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", ext, got, want)
		}
	}
	if _, err := os.Stat(base + ".pdf"); !os.IsNotExist(err) {
		t.Errorf("pdf written without an artifact (err = %v)", err)
	}
}

func TestReadInputMissing(t *testing.T) {
	_, err := readInput(filepath.Join(t.TempDir(), "absent.json"))
	if !pkgerrors.Is(err, pkgerrors.ErrCodeFileNotFound) {
		t.Errorf("readInput error = %v, want %s", err, pkgerrors.ErrCodeFileNotFound)
	}
}

func TestRenderCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("DOPFLOW_CACHE", "none")

	input := filepath.Join(dir, "count.json")
	if err := os.WriteFile(input, []byte(sampleTabulation), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(os.Stderr, LogInfo)
	cmd := c.RootCommand()
	cmd.SetArgs([]string{"render", input, "-t", "sankey,nodelink", "-f", "svg,json", "-o", filepath.Join(dir, "out")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, name := range []string{"out_sankey.svg", "out_sankey.json", "out_nodelink.svg", "out_nodelink.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

const sampleTabulation = `{
  "title": "Mayor",
  "candidates": [{"name": "Alice"}, {"name": "Bob"}, {"name": "Carol"}],
  "flow": [
    {"eliminated": -1, "votes": [40, 35, 25]},
    {"eliminated": 2, "votes": [10, 15, 0]}
  ]
}`
