// Package pipeline provides the core flow pipeline for dopflow.
//
// This package implements the complete load → build → layout → render
// pipeline used by the CLI and the API. By centralizing this logic, both
// entry points validate, cache and render identically.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Decode and validate a tabulation (JSON or TOML)
//  2. Build: Derive the flow graph of nodes, groups and links
//  3. Layout: Position the graph for the chosen visualization
//  4. Render: Generate output in various formats (SVG, DOT, JSON, PDF, PNG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Format:  "json",
//	    VizType: "sankey",
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, data, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	res, err := runner.Load(ctx, data, "toml")
//	g, err := runner.Build(ctx, res, opts)
//	l, err := runner.Layout(ctx, g, opts)
//	artifacts, err := runner.Render(ctx, l, g, opts)
package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/dopflow/pkg/cache"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/render/sankey"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Visualization types.
const (
	VizTypeSankey   = "sankey"
	VizTypeNodelink = "nodelink"
)

const (
	// DefaultVizType is the default visualization type.
	DefaultVizType = VizTypeSankey

	// DefaultWidth is the default drawing width in pixels.
	DefaultWidth = float64(sankey.DefaultWidth)

	// DefaultHeight is the default drawing height in pixels.
	DefaultHeight = float64(sankey.DefaultHeight)

	// DefaultNodeWidth is the default width of a node rectangle.
	DefaultNodeWidth = float64(sankey.DefaultNodeWidth)

	// DefaultNodePadding is the default vertical gap between nodes.
	DefaultNodePadding = float64(sankey.DefaultNodePadding)

	// DefaultPNGScale is the resolution multiplier for PNG output.
	DefaultPNGScale = 2.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatDOT:  true,
	FormatJSON: true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// ValidVizTypes is the set of supported visualization types.
var ValidVizTypes = map[string]bool{
	VizTypeSankey:   true,
	VizTypeNodelink: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the flow pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Format string `json:"format,omitempty"` // Input format: json or toml

	// Layout options
	VizType     string   `json:"viz_type,omitempty"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	NodeWidth   float64  `json:"node_width,omitempty"`
	NodePadding *float64 `json:"node_padding,omitempty"` // nil uses DefaultNodePadding; 0 stacks nodes edge to edge

	// Render options
	Formats   []string `json:"formats,omitempty"`
	Title     string   `json:"title,omitempty"`
	NoLabels  bool     `json:"no_labels,omitempty"`
	HideEmpty bool     `json:"hide_empty,omitempty"` // Drop zero-vote links from node-link diagrams
	Detailed  bool     `json:"detailed,omitempty"`   // Node-link labels show round, share and candidate data

	// Refresh bypasses cached graphs, layouts and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tabulation is the decoded, validated input.
	Tabulation *tabulation.Result

	// Graph is the built flow graph.
	Graph *flow.Graph

	// InputHash is the content hash of the tabulation.
	InputHash string

	// GraphHash is the content hash of the serialized graph.
	GraphHash string

	// Layout holds the positioned graph.
	Layout Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Candidates int
	Rounds     int
	NodeCount  int
	LinkCount  int
	LoadTime   time.Duration
	BuildTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	BuildHit  bool // Whether the graph came from cache
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, dot, json, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all output formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVizType checks that a visualization type is valid.
func ValidateVizType(vizType string) error {
	if !ValidVizTypes[vizType] {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidVizType,
			"invalid viz_type: %q (must be one of: sankey, nodelink)", vizType)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults for the full
// pipeline. This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input format, defaulting to JSON.
func (o *Options) ValidateForLoad() error {
	if o.Format == "" {
		o.Format = tabulation.FormatJSON
	}
	if o.Format != tabulation.FormatJSON && o.Format != tabulation.FormatTOML {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
			"invalid input format: %q (must be one of: json, toml)", o.Format)
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.VizType == "" {
		o.VizType = DefaultVizType
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.NodeWidth == 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodePadding == nil {
		o.NodePadding = NodePadding(DefaultNodePadding)
	}
}

// NodePadding returns p as a value for [Options.NodePadding].
func NodePadding(p float64) *float64 { return &p }

// Padding returns the effective vertical gap between nodes.
func (o *Options) Padding() float64 {
	if o.NodePadding == nil {
		return DefaultNodePadding
	}
	return *o.NodePadding
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if o.Width < 0 || o.Height < 0 || o.NodeWidth < 0 || o.Padding() < 0 {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "dimensions must not be negative")
	}
	if o.NodeWidth >= o.Width {
		return pkgerrors.New(pkgerrors.ErrCodeInvalidInput,
			"node width %g must be smaller than width %g", o.NodeWidth, o.Width)
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := pkgerrors.ValidateTitle(o.Title); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

// IsSankey returns true if this is a Sankey visualization.
func (o *Options) IsSankey() bool {
	return o.VizType == "" || o.VizType == VizTypeSankey
}

// IsNodelink returns true if this is a node-link visualization.
func (o *Options) IsNodelink() bool {
	return o.VizType == VizTypeNodelink
}

// SankeyOptions returns the layout options for [sankey.Compute].
func (o *Options) SankeyOptions() sankey.Options {
	return sankey.Options{
		Width:       o.Width,
		Height:      o.Height,
		NodeWidth:   o.NodeWidth,
		NodePadding: o.Padding(),
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		VizType:     o.VizType,
		Width:       o.Width,
		Height:      o.Height,
		NodeWidth:   o.NodeWidth,
		NodePadding: o.Padding(),
		HideEmpty:   o.HideEmpty,
		Detailed:    o.Detailed,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:    format,
		Layout:    o.LayoutKeyOpts(),
		Title:     o.Title,
		Labels:    !o.NoLabels,
		HideEmpty: o.HideEmpty,
		Detailed:  o.Detailed,
	}
}

// String summarises the options for log lines.
func (o *Options) String() string {
	return fmt.Sprintf("%s %gx%g %v", o.VizType, o.Width, o.Height, o.Formats)
}
