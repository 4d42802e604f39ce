package rpcserver

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp/mnemo/internal/hybrid"
	"github.com/amanmcp/mnemo/internal/store"
	"github.com/amanmcp/mnemo/pkg/scorer"
)

// resultText concatenates a CallToolResult's text content blocks for
// assertions against the human-readable wording a tool client renders.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	mem, err := store.NewMemoryStore("")
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	vec := store.NewVectorIndex(4)
	text, err := store.NewTextIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { text.Close() })

	engine := hybrid.New(mem, vec, text, scorer.DefaultScorer())
	return New(engine, nil)
}

func TestHandleStoreAndGetRoundTrip(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleStore(ctx, nil, StoreInput{Title: "t", Content: "hello world"})
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.False(t, out.HasEmbedding) // no embedder configured

	_, getOut, err := s.handleGet(ctx, nil, GetInput{IDs: []string{out.ID}})
	require.NoError(t, err)
	require.Len(t, getOut.Memories, 1)
	require.Equal(t, "t", getOut.Memories[0].Title)
}

func TestHandleStoreRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleStore(ctx, nil, StoreInput{Title: "", Content: "x"})
	require.Error(t, err)

	_, _, err = s.handleStore(ctx, nil, StoreInput{Title: "t", Content: ""})
	require.Error(t, err)
}

func TestHandleSearchFindsStoredMemory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.handleStore(ctx, nil, StoreInput{Title: "design notes", Content: "hybrid retrieval engine design"})
	require.NoError(t, err)

	_, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "hybrid retrieval engine"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
}

func TestHandleDeleteThenStatsReflectsRemoval(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, storeOut, err := s.handleStore(ctx, nil, StoreInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	statsRes, statsOut, err := s.handleStats(ctx, nil, StatsInput{})
	require.NoError(t, err)
	require.Equal(t, 1, statsOut.TotalMemories)
	require.Contains(t, resultText(t, statsRes), "Total memories: 1")

	delRes, delOut, err := s.handleDelete(ctx, nil, DeleteInput{ID: storeOut.ID})
	require.NoError(t, err)
	require.True(t, delOut.Deleted)
	require.Contains(t, resultText(t, delRes), "deleted successfully")

	_, statsOut, err = s.handleStats(ctx, nil, StatsInput{})
	require.NoError(t, err)
	require.Equal(t, 0, statsOut.TotalMemories)
}

func TestHandleDeleteMissingIDReturnsNotFoundError(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleDelete(context.Background(), nil, DeleteInput{ID: "nope"})
	require.Error(t, err)
}

func TestHandleGetRejectsEmptyIDs(t *testing.T) {
	s := newTestServer(t)
	_, _, err := s.handleGet(context.Background(), nil, GetInput{IDs: nil})
	require.Error(t, err)
}
