package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/internal/api"
	"github.com/matzehuels/dopflow/pkg/pipeline"
)

// serveCommand creates the HTTP API server command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the build and render API over HTTP",
		Long: `Serve the build and render API over HTTP.

Graphs are stored in memory unless the [store] section of the config
selects MongoDB. Rendered artifacts go through the configured cache
(file, redis or none).`,
		Example: `  dopflow serve
  dopflow serve --addr 127.0.0.1:9000
  DOPFLOW_STORE=mongo DOPFLOW_MONGO_URI=mongodb://localhost:27017 dopflow serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	spin := newSpinner(ctx, "Connecting backends...")
	spin.Start()
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		spin.StopWithError("Cache unavailable")
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := newStore(ctx, cfg)
	if err != nil {
		spin.StopWithError("Store unavailable")
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	spin.StopWithSuccess("Connected (cache: %s, store: %s)", cfg.Cache.Backend, cfg.Store.Backend)

	srv := api.New(runner, st, c.Logger, api.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Defaults: pipeline.Options{
			Width:       cfg.Render.Width,
			Height:      cfg.Render.Height,
			NodeWidth:   cfg.Render.NodeWidth,
			NodePadding: pipeline.NodePadding(cfg.Render.NodePadding),
		},
	})

	printInfo("Listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
