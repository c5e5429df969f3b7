// Package cli implements the dopflow command-line interface.
//
// The CLI follows the pipeline stages, each of which can also be run on its
// own:
//
//	build      tabulation (JSON/TOML)  → graph.json
//	layout     graph.json              → layout.json
//	visualize  layout.json             → svg / png / pdf / json / dot
//	render     tabulation              → every requested artifact in one go
//
// explore opens an interactive round-by-round browser, serve runs the HTTP
// API, and cache manages the local pipeline cache. Configuration comes from
// $XDG_CONFIG_HOME/dopflow/config.toml (or --config) and DOPFLOW_*
// environment variables.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dopflow/pkg/buildinfo"
	"github.com/matzehuels/dopflow/pkg/cache"
	"github.com/matzehuels/dopflow/pkg/config"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "dopflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string

	config *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "dopflow turns ranked-choice counts into vote-flow diagrams",
		Long: `dopflow reads a round-by-round ranked-choice tabulation and derives the flow
of votes between candidates: where every eliminated candidate's votes went and
how each surviving candidate's total grew. The result can be saved as a graph,
rendered as a Sankey or node-link diagram, explored in the terminal or served
over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/dopflow/config.toml)")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.logConfig(cfg)
	c.config = cfg
	return cfg, nil
}

func (c *CLI) logConfig(cfg *config.Config) {
	c.Logger.Debug("configuration",
		"cache", cfg.Cache.Backend,
		"store", cfg.Store.Backend,
		"width", cfg.Render.Width,
		"height", cfg.Render.Height)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, newKeyer(cfg), c.Logger), nil
}

// newCache opens the configured cache backend. The file backend degrades to
// no caching when the home directory cannot be determined.
func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}

	var c cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   appName + ":",
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c = rc
	default:
		dir, err := cfg.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", dir, err)
		}
		c = fc
	}
	return cache.WithMaxTTL(c, cfg.Cache.TTL.Duration), nil
}

// newKeyer returns a scoped keyer when a cache prefix is configured.
func newKeyer(cfg *config.Config) cache.Keyer {
	if cfg.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
}

// newStore opens the configured record store.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMongo:
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.Store.MongoURI,
			Database:   cfg.Store.Database,
			Collection: cfg.Store.Collection,
		})
	default:
		return store.NewMemoryStore(), nil
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// layoutFlags holds the dimension flags shared by layout and render commands.
// Zero values fall back to the [render] section of the config, except for
// --node-padding, which is taken whenever it is given.
type layoutFlags struct {
	vizType     string
	width       float64
	height      float64
	nodeWidth   float64
	nodePadding optionalFloat
	hideEmpty   bool
	detailed    bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.width, "width", 0, "drawing width in pixels (default from config, 960)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "drawing height in pixels (default from config, 500)")
	cmd.Flags().Float64Var(&f.nodeWidth, "node-width", 0, "node rectangle width (default from config, 24)")
	cmd.Flags().Var(&f.nodePadding, "node-padding", "vertical gap between nodes, 0 allowed (default from config, 16)")
	cmd.Flags().BoolVar(&f.hideEmpty, "hide-empty", false, "omit zero-vote links from node-link diagrams")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "show round, share and candidate data in node-link labels")
}

// apply copies the flags into opts, filling unset dimensions from cfg.
func (f *layoutFlags) apply(opts *pipeline.Options, cfg *config.Config) {
	opts.VizType = f.vizType
	opts.Width = pick(f.width, cfg.Render.Width)
	opts.Height = pick(f.height, cfg.Render.Height)
	opts.NodeWidth = pick(f.nodeWidth, cfg.Render.NodeWidth)
	opts.NodePadding = pipeline.NodePadding(cfg.Render.NodePadding)
	if f.nodePadding.set {
		opts.NodePadding = pipeline.NodePadding(f.nodePadding.v)
	}
	opts.HideEmpty = f.hideEmpty
	opts.Detailed = f.detailed
}

// optionalFloat is a float flag that remembers whether it was given, so an
// explicit zero can be told apart from the unset default.
type optionalFloat struct {
	v   float64
	set bool
}

func (o *optionalFloat) String() string { return strconv.FormatFloat(o.v, 'g', -1, 64) }
func (o *optionalFloat) Type() string   { return "float" }

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.v, o.set = v, true
	return nil
}

func pick(flag, fallback float64) float64 {
	if flag != 0 {
		return flag
	}
	return fallback
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return splitList(s)
}

// parseVizTypes parses a comma-separated visualization type string.
func parseVizTypes(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultVizType}
	}
	return splitList(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// Files
// =============================================================================

// readInput reads a file named on the command line.
func readInput(path string) ([]byte, error) {
	if err := pkgerrors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// stem strips the extension and any .graph or .layout infix, so
// "count.graph.json" and "count.json" both yield "count".
func stem(path string) string {
	path = strings.TrimSuffix(path, filepath.Ext(path))
	for _, suffix := range []string{".graph", ".layout"} {
		path = strings.TrimSuffix(path, suffix)
	}
	return path
}
