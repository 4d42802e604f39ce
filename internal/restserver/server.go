// Package restserver implements the optional REST transport described in
// spec.md §6.4: health, search, and CRUD-ish memory endpoints over plain
// net/http.
package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amanmcp/mnemo/internal/embed"
	"github.com/amanmcp/mnemo/internal/hybrid"
	"github.com/amanmcp/mnemo/internal/merrors"
	"github.com/amanmcp/mnemo/internal/model"
)

// Server serves the REST transport over a single HTTP listener.
type Server struct {
	addr     string
	engine   *hybrid.Engine
	embedder embed.Embedder
	http     *http.Server
}

// New builds a REST server bound to addr (host:port). embedder may be nil.
func New(addr string, engine *hybrid.Engine, embedder embed.Embedder) *Server {
	s := &Server{addr: addr, engine: engine, embedder: embedder}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/search", s.handleSearch)
	mux.HandleFunc("POST /api/v1/memories", s.handleCreateMemory)
	mux.HandleFunc("GET /api/v1/memories/{id}", s.handleGetMemory)
	mux.HandleFunc("DELETE /api/v1/memories/{id}", s.handleDeleteMemory)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe blocks serving HTTP until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("REST server listening", "addr", s.addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Success: false, Error: message})
}

func statusForError(err error) int {
	switch merrors.KindOf(err) {
	case merrors.KindNotFound:
		return http.StatusNotFound
	case merrors.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type searchRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
	IndexOnly bool   `json:"index_only"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	var queryEmbedding []float32
	if s.embedder != nil {
		vec, err := s.embedder.Embed(r.Context(), req.Query)
		if err != nil {
			slog.Warn("query embedding failed, falling back to keyword-only", "error", err)
		} else {
			queryEmbedding = vec
		}
	}

	q := model.Query{Text: req.Query, Limit: req.Limit, IndexOnly: req.IndexOnly}
	results, err := s.engine.Search(r.Context(), queryEmbedding, q)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: results})
}

type createMemoryRequest struct {
	Content    string   `json:"content"`
	Title      string   `json:"title"`
	MemoryType string   `json:"memory_type"`
	Priority   string   `json:"priority"`
	Tags       []string `json:"tags"`
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "content and title are required")
		return
	}
	if req.MemoryType == "" {
		req.MemoryType = "observation"
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}

	m := model.NewMemory(req.Title, req.Content)
	m.Metadata.MemoryType = model.ParseMemoryType(req.MemoryType)
	m.Metadata.Priority = model.ParsePriority(req.Priority)
	m.Metadata.Tags = req.Tags

	if s.embedder != nil {
		if vec, err := s.embedder.Embed(r.Context(), req.Content); err != nil {
			slog.Warn("embedding failed, storing without vector", "error", err)
		} else {
			m.Embedding = vec
		}
	}

	if err := s.engine.Store(r.Context(), m); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: map[string]any{
		"id":            m.ID,
		"title":         m.Title,
		"has_embedding": len(m.Embedding) > 0,
	}})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: m})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := s.engine.Remove(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("memory %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.engine.MemoryCount(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	mode := "keyword_only"
	if s.embedder != nil {
		mode = "hybrid"
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"total_memories": total,
		"indexed_count":  s.engine.IndexedCount(),
		"has_embedder":   s.embedder != nil,
		"search_mode":    mode,
	}})
}
