package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// exploreCommand creates the interactive round viewer.
func (c *CLI) exploreCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "explore [tabulation|graph.json]",
		Short: "Step through a count round by round in the terminal",
		Long: `Step through a count round by round in the terminal.

explore accepts a tabulation or a graph written by 'dopflow build'. Each
round shows the standings, the votes each candidate received and the
candidate eliminated entering the round.`,
		Example: `  dopflow explore senate.json
  dopflow explore count.graph.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, input string, noCache bool) error {
	title, g, err := c.loadFlow(ctx, input, noCache)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(newExploreModel(title, g), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	return nil
}

// loadFlow reads a graph file when input ends in .graph.json, and otherwise
// builds the graph from a tabulation.
func (c *CLI) loadFlow(ctx context.Context, input string, noCache bool) (string, *flow.Graph, error) {
	data, err := readInput(input)
	if err != nil {
		return "", nil, err
	}

	if strings.HasSuffix(input, ".graph.json") {
		gr, err := graph.UnmarshalGraph(data)
		if err != nil {
			return "", nil, fmt.Errorf("load graph %s: %w", input, err)
		}
		g, err := graph.ToFlow(gr)
		if err != nil {
			return "", nil, err
		}
		return gr.Title, g, nil
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return "", nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := runner.Load(ctx, data, tabulation.FormatFromPath(input))
	if err != nil {
		return "", nil, err
	}
	g, err := runner.Build(ctx, res, pipeline.Options{})
	if err != nil {
		return "", nil, err
	}
	return res.Title, g, nil
}
