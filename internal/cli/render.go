package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// renderCommand creates the render command, which runs the whole pipeline.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output      string
		vizTypesStr string
		formatsStr  string
		title       string
		noLabels    bool
		noCache     bool
		refresh     bool
		flags       layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "render [tabulation]",
		Short: "Render a tabulation to Sankey and node-link diagrams",
		Long: `Render a tabulation straight to diagrams.

render runs build, layout and visualize in one go. Several visualization types
(-t sankey,nodelink) and formats (-f svg,dot,json,png,pdf) may be combined;
each combination is written to its own file. PNG and PDF output need
rsvg-convert on the PATH.

Results are cached locally for faster subsequent runs.`,
		Example: `  dopflow render senate.json
  dopflow render count.toml -t sankey,nodelink -f svg,png -o out/count
  dopflow render count.json --width 1200 --height 640 --title "Final count"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vizTypes := parseVizTypes(vizTypesStr)
			for _, v := range vizTypes {
				if err := pipeline.ValidateVizType(v); err != nil {
					return err
				}
			}
			formats := parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			if err := pkgerrors.ValidateTitle(title); err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Format:   tabulation.FormatFromPath(args[0]),
				Formats:  formats,
				Title:    title,
				NoLabels: noLabels,
				Refresh:  refresh,
			}
			flags.apply(&opts, cfg)
			return c.runRender(cmd.Context(), args[0], vizTypes, opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single type/format) or base path (multiple)")
	cmd.Flags().StringVarP(&vizTypesStr, "type", "t", "", "visualization type(s): sankey (default), nodelink (comma-separated)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, png, pdf (comma-separated)")
	cmd.Flags().StringVar(&title, "title", "", "diagram title (default: the tabulation's title)")
	cmd.Flags().BoolVar(&noLabels, "no-labels", false, "omit node labels from Sankey diagrams")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute every stage, ignoring cached results")
	flags.register(cmd)

	return cmd
}

// runRender executes the pipeline once per visualization type and writes
// every artifact.
func (c *CLI) runRender(ctx context.Context, input string, vizTypes []string, opts pipeline.Options, output string, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	multiType := len(vizTypes) > 1
	for _, vizType := range vizTypes {
		o := opts
		o.VizType = vizType
		o.Formats = slices.Clone(opts.Formats)

		spin := newSpinner(ctx, fmt.Sprintf("Rendering %s...", vizType))
		spin.Start()
		result, err := runner.Execute(ctx, data, o)
		if err != nil {
			spin.StopWithError("Rendering %s failed", vizType)
			return err
		}
		spin.Stop()

		if err := writeArtifacts(artifactWriteParams{
			artifacts: result.Artifacts,
			formats:   o.Formats,
			input:     input,
			output:    output,
			vizType:   vizType,
			multiType: multiType,
		}); err != nil {
			return err
		}
		printStats(result.Graph, result.CacheInfo.RenderHit)
	}
	return nil
}

// =============================================================================
// Artifact Output
// =============================================================================

// artifactWriteParams describes one batch of artifacts to write.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string
	output    string
	vizType   string
	multiType bool
}

// writeArtifacts writes each artifact to its derived path and prints it.
func writeArtifacts(p artifactWriteParams) error {
	single := len(p.formats) == 1 && !p.multiType
	var written []string
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}
		path := artifactPath(p.output, p.input, p.vizType, format, single, p.multiType)
		if err := writeOutput(path, data); err != nil {
			return err
		}
		written = append(written, path)
	}

	printSuccess("Rendered %s (%s)", p.vizType, strings.Join(p.formats, ", "))
	for _, path := range written {
		printFile(path)
	}
	return nil
}

// artifactPath derives an output file name.
//
// A single artifact goes to output verbatim when given. Otherwise the base
// is output with any format extension stripped (or the input's stem), and
// the visualization type is appended when several types are rendered or
// the name would collide with the input: base.svg, or base_sankey.svg and
// base_nodelink.svg.
func artifactPath(output, input, vizType, format string, single, multiType bool) string {
	if single && output != "" {
		return output
	}
	base := basePath(output, input)
	path := fmt.Sprintf("%s.%s", base, format)
	if multiType || filepath.Clean(path) == filepath.Clean(input) {
		// Never overwrite the input, e.g. count.json rendered as json.
		path = fmt.Sprintf("%s_%s.%s", base, vizType, format)
	}
	return path
}

// basePath derives the base output path from the output and input paths.
// If output is empty, it uses the input's stem. If output ends in a format
// extension, that extension is stripped.
func basePath(output, input string) string {
	if output == "" {
		return stem(input)
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
