package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/pipeline"
)

// visualizeCommand creates the visualize command for rendering from a layout.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		title      string
		noLabels   bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "visualize [layout.json]",
		Short: "Render diagrams from a computed layout",
		Long: `Render diagrams from a computed layout.

The visualize command takes a layout.json file (produced by 'layout') and
renders it. The layout carries every position, so this step is purely
about drawing. Sankey layouts render to SVG, JSON, PNG and PDF; node-link
layouts render to SVG, DOT, PNG and PDF.

Use 'render' as a shortcut to go directly from a tabulation to diagrams.`,
		Example: `  dopflow visualize count.layout.json
  dopflow visualize count.layout.json -f svg,pdf -o out/count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{
				Formats:  parseFormats(formatsStr),
				Title:    title,
				NoLabels: noLabels,
			}
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runVisualize(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&title, "title", "", "diagram title")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "omit node labels from Sankey diagrams")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runVisualize loads the layout and renders it.
func (c *CLI) runVisualize(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	l, err := pipeline.UnmarshalLayout(data)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", input, err)
	}
	opts.VizType = l.VizType
	if l.IsSankey() {
		opts.Width = l.Sankey.Width
		opts.Height = l.Sankey.Height
		opts.NodeWidth = l.Sankey.NodeWidth
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spin := newSpinner(ctx, fmt.Sprintf("Rendering %s...", l.VizType))
	spin.Start()
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, l, nil, opts)
	if err != nil {
		spin.StopWithError("Rendering failed")
		return err
	}
	spin.Stop()

	if err := writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   opts.Formats,
		input:     input,
		output:    output,
		vizType:   l.VizType,
	}); err != nil {
		return err
	}
	if cached {
		printDetail("served from cache")
	}
	return nil
}
