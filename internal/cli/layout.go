package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/pipeline"
)

// layoutCommand creates the layout command for computing visualization layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute a diagram layout from a flow graph",
		Long: `Compute a diagram layout from a flow graph.

The layout command takes a graph.json file (produced by 'build') and positions
it. Sankey layouts (-t sankey) hold node rectangles and link bands in pixel
coordinates; node-link layouts (-t nodelink) hold Graphviz DOT source. The
output is a layout.json file that 'visualize' renders to SVG, PNG or PDF.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], &flags, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&flags.vizType, "type", "t", pipeline.DefaultVizType, "visualization type: sankey (default), nodelink")
	flags.register(cmd)

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, flags *layoutFlags, output string, noCache bool) error {
	if _, err := readInput(input); err != nil {
		return err
	}
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	var opts pipeline.Options
	flags.apply(&opts, cfg)

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	l, cacheHit, err := runner.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}

	data, err := pipeline.MarshalLayout(l)
	if err != nil {
		return err
	}
	outputPath := output
	if outputPath == "" {
		outputPath = stem(input) + ".layout.json"
	}
	if err := writeOutput(outputPath, data); err != nil {
		return err
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(g, cacheHit)
	printNewline()
	printNextStep("Render", "dopflow visualize "+outputPath)

	return nil
}
