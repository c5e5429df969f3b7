// Package store persists built flow graphs.
//
// A [Record] keeps the tabulation a graph was built from next to its
// serialized form, so stored graphs can be re-rendered without rebuilding.
// Backends implement [Store]:
//   - [MemoryStore]: in-process storage for the CLI, development and tests
//   - [MongoStore]: MongoDB-backed storage for API deployments
//
// # Usage
//
//	st := store.NewMemoryStore()
//	rec := store.NewRecord("Senate 2022", result, graph.FromFlow(g))
//	if err := st.Save(ctx, rec); err != nil {
//	    return err
//	}
//	got, err := st.Get(ctx, rec.ID)
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Record is a stored flow graph.
type Record struct {
	ID         string            `json:"id" bson:"_id"`
	Title      string            `json:"title" bson:"title"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
	Tabulation tabulation.Result `json:"tabulation" bson:"tabulation"`
	Graph      graph.Graph       `json:"graph" bson:"graph"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	Candidates int       `json:"candidates"`
	Rounds     int       `json:"rounds"`
	TotalVotes float64   `json:"total_votes"`
	Winner     string    `json:"winner,omitempty"`
}

// NewRecord creates a record with a fresh random id and the current time.
func NewRecord(title string, res tabulation.Result, g graph.Graph) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Title:      title,
		CreatedAt:  time.Now().UTC(),
		Tabulation: res,
		Graph:      g,
	}
}

// Summary returns the listing view of r. The winner is the leading node of
// the last round.
func (r *Record) Summary() Summary {
	s := Summary{
		ID:         r.ID,
		Title:      r.Title,
		CreatedAt:  r.CreatedAt,
		Candidates: len(r.Tabulation.Candidates),
		Rounds:     r.Graph.Rounds,
		TotalVotes: r.Graph.TotalVotes,
	}
	if n := len(r.Graph.Groups); n > 0 && len(r.Graph.Groups[n-1]) > 0 {
		winner := r.Graph.Groups[n-1][0]
		for _, node := range r.Graph.Nodes {
			if node.ID == winner {
				s.Winner = node.Label
				break
			}
		}
	}
	return s
}

// Store is the interface for record storage backends.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error

	// Get retrieves a record by id. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit summaries, newest first.
	List(ctx context.Context, limit int) ([]Summary, error)

	// Delete removes a record. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}
