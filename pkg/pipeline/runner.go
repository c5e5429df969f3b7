package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dopflow/pkg/cache"
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/observability"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → build → layout → render pipeline with caching.
// A title in opts overrides the tabulation's own title.
func (r *Runner) Execute(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.Logger.Debug("running pipeline", "options", opts.String())

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	res, err := r.Load(ctx, data, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Tabulation = res
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Candidates = len(res.Candidates)
	result.Stats.Rounds = len(res.Flow)
	if opts.Title == "" {
		opts.Title = res.Title
	}

	r.Logger.Info("loaded tabulation",
		"candidates", len(res.Candidates),
		"rounds", len(res.Flow),
		"duration", result.Stats.LoadTime)

	// Stage 2: Build
	buildStart := time.Now()
	g, buildHit, err := r.BuildWithCacheInfo(ctx, res, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.Graph = g
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.LinkCount = len(g.Links)
	result.CacheInfo.BuildHit = buildHit
	result.InputHash, _ = inputHash(res)
	result.GraphHash, _ = graphHash(g)

	r.Logger.Info("built flow graph",
		"nodes", len(g.Nodes),
		"links", len(g.Links),
		"cached", buildHit,
		"duration", result.Stats.BuildTime)

	// Stage 3: Layout
	layoutStart := time.Now()
	l, layoutHit, err := r.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"viz_type", l.VizType,
		"duration", result.Stats.LayoutTime)

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, g, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load decodes and validates a tabulation, emitting load hooks.
func (r *Runner) Load(ctx context.Context, data []byte, format string) (*tabulation.Result, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, format, len(data))
	start := time.Now()

	res, err := Load(data, format)
	rounds := 0
	if res != nil {
		rounds = len(res.Flow)
	}
	hooks.OnLoadComplete(ctx, format, rounds, time.Since(start), err)
	return res, err
}

// BuildWithCacheInfo builds the flow graph with caching and returns cache hit info.
// Graphs are cached by the hash of the tabulation.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, res *tabulation.Result, opts Options) (*flow.Graph, bool, error) {
	hash, err := inputHash(res)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.GraphKey(hash)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit := r.cacheGet(ctx, cache.KindGraph, cacheKey); hit {
			g, err := graph.ReadGraph(bytes.NewReader(data))
			if err == nil {
				return g, true, nil // Cache hit
			}
			r.Logger.Warn("discarding unreadable cached graph", "key", cacheKey, "err", err)
		}
	}

	hooks := observability.Pipeline()
	hooks.OnBuildStart(ctx, len(res.Flow))
	start := time.Now()

	g, err := Build(res)
	if err != nil {
		hooks.OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, false, err
	}
	hooks.OnBuildComplete(ctx, len(g.Nodes), len(g.Links), time.Since(start), nil)

	if data, err := graph.MarshalGraph(g); err == nil {
		r.cacheSet(ctx, cache.KindGraph, cacheKey, data)
	}
	return g, false, nil // Cache miss
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and discards the cache hit info.
func (r *Runner) Build(ctx context.Context, res *tabulation.Result, opts Options) (*flow.Graph, error) {
	g, _, err := r.BuildWithCacheInfo(ctx, res, opts)
	return g, err
}

// LayoutWithCacheInfo computes a layout with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g *flow.Graph, opts Options) (Layout, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return Layout{}, false, err
	}

	hash, err := graphHash(g)
	if err != nil {
		return Layout{}, false, err
	}
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit := r.cacheGet(ctx, cache.KindLayout, cacheKey); hit {
			if cached, err := UnmarshalLayout(data); err == nil {
				return cached, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.VizType, len(g.Nodes))
	start := time.Now()

	l, err := GenerateLayout(g, opts)
	hooks.OnLayoutComplete(ctx, opts.VizType, time.Since(start), err)
	if err != nil {
		return Layout{}, false, err
	}

	if data, err := MarshalLayout(l); err == nil {
		r.cacheSet(ctx, cache.KindLayout, cacheKey, data)
	}
	return l, false, nil // Cache miss
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, g *flow.Graph, opts Options) (Layout, error) {
	l, _, err := r.LayoutWithCacheInfo(ctx, g, opts)
	return l, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// The hit flag is true only when every requested format came from cache.
//
// g may be nil when rendering a stored layout; artifacts are then keyed by
// the layout's content instead of the graph's.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l Layout, g *flow.Graph, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hash, err := renderHash(l, g)
	if err != nil {
		return nil, false, err
	}
	opts.VizType = l.VizType

	// Try to get all formats from cache
	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
			data, hit := r.cacheGet(ctx, cache.KindArtifact, cacheKey)
			if !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil // All artifacts from cache
		}
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	rendered, err := RenderFromLayout(l, g, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		r.cacheSet(ctx, cache.KindArtifact, cacheKey, data)
	}
	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l Layout, g *flow.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, g, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cacheGet(ctx context.Context, kind cache.Kind, key string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", kind, "err", err)
		hit = false
	}
	if hit {
		observability.Cache().OnCacheHit(ctx, string(kind))
		r.Logger.Debug("cache hit", "type", kind)
	} else {
		observability.Cache().OnCacheMiss(ctx, string(kind))
	}
	return data, hit
}

// cacheSet stores data with the default lifetime of its kind.
func (r *Runner) cacheSet(ctx context.Context, kind cache.Kind, key string, data []byte) {
	if err := r.Cache.Set(ctx, key, data, kind.TTL()); err != nil {
		r.Logger.Warn("cache write failed", "type", kind, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, string(kind), len(data))
}

func graphHash(g *flow.Graph) (string, error) {
	data, err := graph.MarshalGraph(g)
	if err != nil {
		return "", fmt.Errorf("hash graph: %w", err)
	}
	return cache.Hash(data), nil
}

func renderHash(l Layout, g *flow.Graph) (string, error) {
	if g != nil {
		return graphHash(g)
	}
	data, err := MarshalLayout(l)
	if err != nil {
		return "", fmt.Errorf("hash layout: %w", err)
	}
	return cache.Hash(data), nil
}
