package api

import (
	"context"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/dopflow/pkg/buildinfo"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/pipeline"
	"github.com/matzehuels/dopflow/pkg/store"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// contentTypes maps artifact formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
}

// createdGraph is the response body of POST /api/v1/graphs.
type createdGraph struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	CreatedAt time.Time   `json:"created_at"`
	Graph     graph.Graph `json:"graph"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// build handles POST /api/v1/build.
func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	res, g, err := s.loadAndBuild(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := graph.FromFlow(g)
	out.Title = res.Title
	writeJSON(w, http.StatusOK, out)
}

// createGraph handles POST /api/v1/graphs. The title comes from ?title=,
// falling back to the tabulation's own title.
func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if err := pkgerrors.ValidateTitle(title); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, g, err := s.loadAndBuild(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if title == "" {
		title = res.Title
	}

	out := graph.FromFlow(g)
	out.Title = title
	rec := store.NewRecord(title, *res, out)
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("stored graph", "id", rec.ID, "nodes", len(out.Nodes), "links", len(out.Links))
	w.Header().Set("Location", "/api/v1/graphs/"+rec.ID)
	writeJSON(w, http.StatusCreated, createdGraph{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt,
		Graph:     rec.Graph,
	})
}

// listGraphs handles GET /api/v1/graphs.
func (s *Server) listGraphs(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	summaries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": summaries})
}

// getGraph handles GET /api/v1/graphs/{id}.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// deleteGraph handles DELETE /api/v1/graphs/{id}.
func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := pkgerrors.ValidateGraphID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renderGraph handles GET /api/v1/graphs/{id}/render. Dimensions default to
// the server's configured defaults and may be overridden with ?width=,
// ?height=, ?node_width= and ?node_padding=.
func (s *Server) renderGraph(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts, err := s.renderOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Title = rec.Title

	g, err := graph.ToFlow(rec.Graph)
	if err != nil {
		s.writeError(w, r, pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "decode stored graph"))
		return
	}

	l, err := s.runner.Layout(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), l, g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := opts.Formats[0]
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// =============================================================================
// Helpers
// =============================================================================

// loadAndBuild decodes, validates and builds the tabulation in the request body.
func (s *Server) loadAndBuild(r *http.Request) (*tabulation.Result, *flow.Graph, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "read request body")
	}
	if int64(len(data)) > s.opts.MaxBodyBytes {
		return nil, nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "request body exceeds %d bytes", s.opts.MaxBodyBytes)
	}
	if len(data) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "request body is empty")
	}

	res, err := s.runner.Load(r.Context(), data, inputFormat(r))
	if err != nil {
		return nil, nil, err
	}
	g, err := s.runner.Build(r.Context(), res, pipeline.Options{})
	if err != nil {
		return nil, nil, err
	}
	return res, g, nil
}

// inputFormat picks the tabulation format from ?format= or the content type.
func inputFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/toml", "text/toml", "text/x-toml":
		return tabulation.FormatTOML
	default:
		return tabulation.FormatJSON
	}
}

func (s *Server) lookup(ctx context.Context, id string) (*store.Record, error) {
	if err := pkgerrors.ValidateGraphID(id); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// renderOptions builds pipeline options from the query string on top of the
// server defaults.
func (s *Server) renderOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	d := s.opts.Defaults

	opts := pipeline.Options{
		VizType:   d.VizType,
		Width:     d.Width,
		Height:    d.Height,
		NodeWidth: d.NodeWidth,
		NoLabels:  q.Get("labels") == "false",
		HideEmpty: q.Get("hide_empty") == "true",
		Detailed:  q.Get("detailed") == "true",
	}
	if v := q.Get("viz"); v != "" {
		opts.VizType = v
	}

	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, err
	}
	opts.Formats = []string{format}

	padding := d.Padding()
	dims := []struct {
		name     string
		dst      *float64
		zeroOkay bool
	}{
		{"width", &opts.Width, false},
		{"height", &opts.Height, false},
		{"node_width", &opts.NodeWidth, false},
		{"node_padding", &padding, true},
	}
	for _, dim := range dims {
		v := q.Get(dim.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		valid := err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && (f > 0 || f == 0 && dim.zeroOkay)
		if !valid {
			if dim.zeroOkay {
				return opts, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "%s must be a non-negative number", dim.name)
			}
			return opts, pkgerrors.New(pkgerrors.ErrCodeInvalidInput, "%s must be a positive number", dim.name)
		}
		*dim.dst = f
	}
	opts.NodePadding = pipeline.NodePadding(padding)
	return opts, nil
}
