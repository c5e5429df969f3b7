// Package cache provides the caching layer for dopflow pipelines.
//
// A [Cache] stores opaque byte slices under string keys with a TTL. Keys are
// produced by a [Keyer] from content hashes, so identical tabulations and
// render options always map to the same entries:
//
//	input bytes ──Hash──▶ GraphKey ──▶ serialized flow graph
//	graph bytes ──Hash──▶ LayoutKey ──▶ sankey layout JSON
//	graph bytes ──Hash──▶ ArtifactKey ──▶ svg / dot / json / pdf / png
//
// Backends:
//
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for the API server
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Default time-to-live per entry kind.
const (
	TTLGraph    = 7 * 24 * time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Kind names the pipeline stage an entry belongs to.
type Kind string

const (
	KindGraph    Kind = "graph"
	KindLayout   Kind = "layout"
	KindArtifact Kind = "artifact"
	KindOther    Kind = "other" // keys not produced by a Keyer
)

// TTL returns the default lifetime of entries of kind k. Unknown kinds
// never expire.
func (k Kind) TTL() time.Duration {
	switch k {
	case KindGraph:
		return TTLGraph
	case KindLayout:
		return TTLLayout
	case KindArtifact:
		return TTLArtifact
	}
	return 0
}

// KindOf recovers the kind from a key built by a [Keyer], with or without
// a [ScopedKeyer] prefix: "dopflow:layout:<sha256>" is a layout.
func KindOf(key string) Kind {
	parts := strings.Split(key, ":")
	for i := len(parts) - 2; i >= 0; i-- {
		switch k := Kind(parts[i]); k {
		case KindGraph, KindLayout, KindArtifact:
			return k
		}
	}
	return KindOther
}

// Hash returns the hex SHA-256 of data. Tabulations, graphs and layouts are
// all keyed by it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// optionKey keys a stage result by the hash it was derived from and the
// options that shaped it.
func optionKey(kind Kind, hash string, opts any) string {
	data, _ := json.Marshal([]any{hash, opts})
	return string(kind) + ":" + Hash(data)
}

// Cache is a byte-oriented key-value store with per-entry expiry.
// A miss is reported as (nil, false, nil); errors are reserved for backend
// failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Summarizer is implemented by caches that can count their entries per
// [Kind].
type Summarizer interface {
	Stats(ctx context.Context) (map[Kind]int, error)
}

// =============================================================================
// Keyer
// =============================================================================

// Keyer derives cache keys for each pipeline stage.
type Keyer interface {
	GraphKey(inputHash string) string
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the options that change a computed layout. HideEmpty
// and Detailed shape the DOT source of node-link layouts.
type LayoutKeyOpts struct {
	VizType     string  `json:"viz_type"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	NodeWidth   float64 `json:"node_width"`
	NodePadding float64 `json:"node_padding"`
	HideEmpty   bool    `json:"hide_empty,omitempty"`
	Detailed    bool    `json:"detailed,omitempty"`
}

// ArtifactKeyOpts holds the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format    string        `json:"format"`
	Layout    LayoutKeyOpts `json:"layout"`
	Title     string        `json:"title,omitempty"`
	Labels    bool          `json:"labels"`
	HideEmpty bool          `json:"hide_empty"`
	Detailed  bool          `json:"detailed"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey returns the key for the flow graph built from an input.
func (k *DefaultKeyer) GraphKey(inputHash string) string {
	return string(KindGraph) + ":" + inputHash
}

// LayoutKey returns the key for a layout of a graph.
func (k *DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return optionKey(KindLayout, graphHash, opts)
}

// ArtifactKey returns the key for one rendered format of a graph.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return optionKey(KindArtifact, graphHash, opts)
}

var _ Keyer = (*DefaultKeyer)(nil)

// =============================================================================
// NullCache
// =============================================================================

// NullCache backs --no-cache and DOPFLOW_CACHE=none: every Get misses and
// every write is dropped, so each pipeline stage recomputes.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }

var _ Cache = (*NullCache)(nil)
