package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/recastops/recast/pkg/buildinfo"
	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/pipeline"
	"github.com/recastops/recast/pkg/plugin"
	"github.com/recastops/recast/pkg/render"
	"github.com/recastops/recast/pkg/store"
)

// sourceExt maps source tags to the extension their parsers expect.
var sourceExt = map[string]string{
	"chef":      ".rb",
	"puppet":    ".pp",
	"terraform": ".tf",
}

// targetFile maps target tags to a conventional output filename.
var targetFile = map[string]string{
	"ansible":   "playbook.yml",
	"terraform": "main.tf",
}

type convertRequest struct {
	Source           string         `json:"source"`
	Target           string         `json:"target"`
	Content          string         `json:"content"`
	ParserOptions    plugin.Options `json:"parser_options,omitempty"`
	GeneratorOptions plugin.Options `json:"generator_options,omitempty"`
	Refresh          bool           `json:"refresh,omitempty"`
}

type convertResponse struct {
	GraphID   string `json:"graph_id"`
	GraphHash string `json:"graph_hash"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
	Warnings  int    `json:"warnings"`
	CacheHit  bool   `json:"cache_hit"`
	Output    string `json:"output"`
}

type createGraphRequest struct {
	Source        string         `json:"source"`
	Content       string         `json:"content"`
	ParserOptions plugin.Options `json:"parser_options,omitempty"`
}

type createGraphResponse struct {
	GraphID    string `json:"graph_id"`
	SourceType string `json:"source_type"`
	Nodes      int    `json:"nodes"`
}

type listGraphsResponse struct {
	Graphs []store.Record `json:"graphs"`
	Count  int            `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"plugins": s.runner.Registry.Info(),
	})
}

// handleConvert runs the full pipeline on inline source content and
// returns the generated output in the response.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Source == "" || req.Target == "" || req.Content == "" {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput,
			"source, target, and content are required"))
		return
	}

	dir, err := os.MkdirTemp("", "recast-api-*")
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeIO, err, "create workspace"))
		return
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "main"+extFor(req.Source))
	if err := os.WriteFile(inputPath, []byte(req.Content), 0o600); err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeIO, err, "write source"))
		return
	}
	outputPath := filepath.Join(dir, outFileFor(req.Target))

	result, err := s.runner.Execute(r.Context(), pipeline.Options{
		Source:        req.Source,
		InputPath:     inputPath,
		ParserOpts:    req.ParserOptions,
		Refresh:       req.Refresh,
		Target:        req.Target,
		OutputPath:    outputPath,
		GeneratorOpts: req.GeneratorOptions,
		Logger:        s.logger,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeIO, err, "read output"))
		return
	}

	respondJSON(w, http.StatusOK, convertResponse{
		GraphID:   result.Graph.ID,
		GraphHash: result.GraphHash,
		Nodes:     result.Stats.NodeCount,
		Edges:     result.Stats.EdgeCount,
		Warnings:  result.Stats.Warnings,
		CacheHit:  result.CacheInfo.ParseHit,
		Output:    string(output),
	})
}

// handleGraphCreate parses inline source content and stores the graph.
func (s *Server) handleGraphCreate(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if req.Source == "" || req.Content == "" {
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput,
			"source and content are required"))
		return
	}

	dir, err := os.MkdirTemp("", "recast-api-*")
	if err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeIO, err, "create workspace"))
		return
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "main"+extFor(req.Source))
	if err := os.WriteFile(inputPath, []byte(req.Content), 0o600); err != nil {
		s.respondError(w, errors.Wrap(errors.ErrCodeIO, err, "write source"))
		return
	}

	g, err := s.runner.Parse(r.Context(), pipeline.Options{
		Source:     req.Source,
		InputPath:  inputPath,
		ParserOpts: req.ParserOptions,
		Logger:     s.logger,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		s.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, createGraphResponse{
		GraphID:    g.ID,
		SourceType: string(g.SourceType),
		Nodes:      g.Len(),
	})
}

func (s *Server) handleGraphList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	respondJSON(w, http.StatusOK, listGraphsResponse{Graphs: recs, Count: len(recs)})
}

// handleGraphGet streams the stored graph's serialized envelope.
func (s *Server) handleGraphGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := graphio.Write(g, w); err != nil {
		s.logger.Error("write envelope", "graph", id, "error", err)
	}
}

func (s *Server) handleGraphDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGraphRender renders a stored graph as DOT (default) or SVG.
func (s *Server) handleGraphRender(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	dot := render.ToDOT(g, render.Options{
		Detailed: r.URL.Query().Get("detailed") == "true",
	})

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "dot"
	}
	switch format {
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
	case "svg":
		svg, err := render.RenderSVG(dot)
		if err != nil {
			s.respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		s.respondError(w, errors.New(errors.ErrCodeInvalidInput,
			"unknown render format %q, expected dot or svg", format))
	}
}

func extFor(source string) string {
	if ext, ok := sourceExt[source]; ok {
		return ext
	}
	return ".src"
}

func outFileFor(target string) string {
	if name, ok := targetFile[target]; ok {
		return name
	}
	return "out"
}
