// Package rpcserver exposes the hybrid engine over stdio as an MCP tool
// server: memory_search, memory_store, memory_get, memory_delete, and
// memory_stats.
package rpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amanmcp/mnemo/internal/embed"
	"github.com/amanmcp/mnemo/internal/hybrid"
	"github.com/amanmcp/mnemo/internal/model"
	"github.com/amanmcp/mnemo/pkg/version"
)

// textResult wraps a human-readable string as the MCP text content block a
// tool client renders, alongside the typed structured output every handler
// also returns.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Server wraps an MCP server bound to a HybridSearch engine.
type Server struct {
	mcp      *mcp.Server
	engine   *hybrid.Engine
	embedder embed.Embedder
}

// New builds the MCP server and registers its five tools. embedder may be
// nil, in which case memory_store indexes text-only and memory_search runs
// keyword-only.
func New(engine *hybrid.Engine, embedder embed.Embedder) *Server {
	s := &Server{
		engine:   engine,
		embedder: embedder,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "mnemo",
		Version: version.Version,
	}, nil)

	s.registerTools()
	return s
}

// Run blocks serving JSON-RPC over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting mnemo MCP server", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		slog.Error("MCP server stopped with error", "error", err)
		return err
	}
	slog.Info("MCP server stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_search",
		Description: "Search stored memories by hybrid semantic and keyword relevance.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_store",
		Description: "Store a new memory with a title, content, type, priority, and tags.",
	}, s.handleStore)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_get",
		Description: "Fetch one or more memories by id.",
	}, s.handleGet)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_delete",
		Description: "Delete a memory by id.",
	}, s.handleDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Report total memory count, indexed count, and embedder availability.",
	}, s.handleStats)
}

// SearchInput is memory_search's argument schema.
type SearchInput struct {
	Query     string `json:"query" jsonschema:"the search query"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	IndexOnly bool   `json:"index_only,omitempty" jsonschema:"strip content from results, default false"`
}

// SearchOutput is memory_search's result schema.
type SearchOutput struct {
	Results []model.SearchResult `json:"results"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if in.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	queryEmbedding, err := s.embedQuery(ctx, in.Query)
	if err != nil {
		slog.Warn("query embedding failed, falling back to keyword-only", "error", err)
	}

	q := model.Query{Text: in.Query, Limit: limit, IndexOnly: in.IndexOnly}
	results, err := s.engine.Search(ctx, queryEmbedding, q)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}
	return textResult(formatSearchResults(results, in.IndexOnly)), SearchOutput{Results: results}, nil
}

// formatSearchResults renders search hits as the numbered, score-annotated
// text block memory_search reports alongside its structured output.
func formatSearchResults(results []model.SearchResult, indexOnly bool) string {
	if len(results) == 0 {
		return "No memories found matching your query."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
	for i, r := range results {
		m := r.Memory
		bd := r.ScoreBreakdown
		fmt.Fprintf(&b, "%d. %s (score: %.3f)\n   ID: %s\n   Type: %s | Priority: %s | Tags: %s\n   Scores: sem=%.2f kw=%.2f rec=%.2f imp=%.2f\n",
			i+1, m.Title, r.Score, m.ID,
			m.Metadata.MemoryType, m.Metadata.Priority, strings.Join(m.Metadata.Tags, ", "),
			bd.Semantic, bd.Keyword, bd.Recency, bd.Importance)
		if !indexOnly && m.Content != "" {
			fmt.Fprintf(&b, "   Content: %s\n", m.Content)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// StoreInput is memory_store's argument schema.
type StoreInput struct {
	Content    string   `json:"content" jsonschema:"the memory content"`
	Title      string   `json:"title" jsonschema:"a short title"`
	MemoryType string   `json:"memory_type,omitempty" jsonschema:"observation, decision, preference, fact, task, session, bugfix, or discovery"`
	Priority   string   `json:"priority,omitempty" jsonschema:"low, medium, or high"`
	Tags       []string `json:"tags,omitempty" jsonschema:"free-form tags"`
}

// StoreOutput is memory_store's result schema.
type StoreOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	HasEmbedding bool   `json:"has_embedding"`
}

func (s *Server) handleStore(ctx context.Context, req *mcp.CallToolRequest, in StoreInput) (*mcp.CallToolResult, StoreOutput, error) {
	if in.Content == "" {
		return nil, StoreOutput{}, NewInvalidParamsError("content is required")
	}
	if in.Title == "" {
		return nil, StoreOutput{}, NewInvalidParamsError("title is required")
	}

	m := model.NewMemory(in.Title, in.Content)
	m.Metadata.MemoryType = model.ParseMemoryType(in.MemoryType)
	m.Metadata.Priority = model.ParsePriority(in.Priority)
	m.Metadata.Tags = in.Tags

	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, in.Content); err != nil {
			slog.Warn("embedding failed, storing without vector", "error", err)
		} else {
			m.Embedding = vec
		}
	}

	if err := s.engine.Store(ctx, m); err != nil {
		return nil, StoreOutput{}, MapError(err)
	}

	embeddingStatus := "unavailable"
	if len(m.Embedding) > 0 {
		embeddingStatus = "generated"
	}
	text := fmt.Sprintf("Memory stored successfully.\nID: %s\nTitle: %s\nType: %s\nEmbedding: %s",
		m.ID, m.Title, m.Metadata.MemoryType, embeddingStatus)

	return textResult(text), StoreOutput{ID: m.ID, Title: m.Title, HasEmbedding: len(m.Embedding) > 0}, nil
}

// GetInput is memory_get's argument schema.
type GetInput struct {
	IDs []string `json:"ids" jsonschema:"memory ids to fetch"`
}

// GetOutput is memory_get's result schema.
type GetOutput struct {
	Memories []*model.Memory `json:"memories"`
}

func (s *Server) handleGet(ctx context.Context, req *mcp.CallToolRequest, in GetInput) (*mcp.CallToolResult, GetOutput, error) {
	if len(in.IDs) == 0 {
		return nil, GetOutput{}, NewInvalidParamsError("ids is required and must be non-empty")
	}
	memories, err := s.engine.GetMany(ctx, in.IDs)
	if err != nil {
		return nil, GetOutput{}, MapError(err)
	}
	return nil, GetOutput{Memories: memories}, nil
}

// DeleteInput is memory_delete's argument schema.
type DeleteInput struct {
	ID string `json:"id" jsonschema:"the memory id to delete"`
}

// DeleteOutput is memory_delete's result schema.
type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

func (s *Server) handleDelete(ctx context.Context, req *mcp.CallToolRequest, in DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if in.ID == "" {
		return nil, DeleteOutput{}, NewInvalidParamsError("id is required")
	}
	removed, err := s.engine.Remove(ctx, in.ID)
	if err != nil {
		return nil, DeleteOutput{}, MapError(err)
	}
	if !removed {
		return nil, DeleteOutput{}, NewResourceNotFoundError(in.ID)
	}
	return textResult(fmt.Sprintf("Memory %s deleted successfully.", in.ID)), DeleteOutput{Deleted: true}, nil
}

// StatsInput is memory_stats' (empty) argument schema.
type StatsInput struct{}

// StatsOutput is memory_stats' result schema.
type StatsOutput struct {
	TotalMemories int    `json:"total_memories"`
	IndexedCount  int    `json:"indexed_count"`
	HasEmbedder   bool   `json:"has_embedder"`
	SearchMode    string `json:"search_mode"`
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, in StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	total, err := s.engine.MemoryCount(ctx)
	if err != nil {
		return nil, StatsOutput{}, MapError(err)
	}

	mode := "keyword_only"
	embedderStatus := "not loaded"
	if s.embedder != nil {
		mode = "hybrid"
		embedderStatus = "active"
	}

	text := fmt.Sprintf("Memory System Stats:\n- Total memories: %d\n- Indexed for search: %d\n- Embedding engine: %s\n- Search mode: %s",
		total, s.engine.IndexedCount(), embedderStatus, mode)

	return textResult(text), StatsOutput{
		TotalMemories: total,
		IndexedCount:  s.engine.IndexedCount(),
		HasEmbedder:   s.embedder != nil,
		SearchMode:    mode,
	}, nil
}

func (s *Server) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return s.embedder.Embed(ctx, query)
}
