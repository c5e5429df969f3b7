package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		output  string
		title   string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "build [tabulation]",
		Short: "Build a flow graph from a tabulation",
		Long: `Build a flow graph from a ranked-choice tabulation.

The tabulation is read as TOML when the file ends in .toml and as JSON
otherwise. The resulting graph holds one node per surviving candidate per
round and the links that carry votes between rounds. It is written as JSON
(default: <input>.graph.json) for 'dopflow layout' or other tools.`,
		Example: `  dopflow build senate.json
  dopflow build count.toml -o out/count.graph.json --title "Mayor 2024"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pkgerrors.ValidateTitle(title); err != nil {
				return err
			}
			return c.runBuild(cmd.Context(), args[0], output, title, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <input>.graph.json)")
	cmd.Flags().StringVar(&title, "title", "", "graph title (default: the tabulation's title)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runBuild loads the tabulation, builds the graph, and writes it.
func (c *CLI) runBuild(ctx context.Context, input, output, title string, noCache bool) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	res, err := runner.Load(ctx, data, tabulation.FormatFromPath(input))
	if err != nil {
		return err
	}
	g, cacheHit, err := runner.BuildWithCacheInfo(ctx, res, pipeline.Options{})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built %d nodes, %d links", len(g.Nodes), len(g.Links)))

	out := graph.FromFlow(g)
	out.Title = title
	if out.Title == "" {
		out.Title = res.Title
	}

	outputPath := output
	if outputPath == "" {
		outputPath = stem(input) + ".graph.json"
	}
	if err := graph.WriteGraphFile(out, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Flow graph built")
	printFile(outputPath)
	printStats(g, cacheHit)
	printWinner(g)
	printNewline()
	printNextStep("Lay out", "dopflow layout "+outputPath)

	return nil
}
