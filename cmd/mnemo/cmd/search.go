package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amanmcp/mnemo/internal/model"
)

func newSearchCmd() *cobra.Command {
	var (
		limit     int
		indexOnly bool
		jsonOut   bool
		offline   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args[0], limit, indexOnly, jsonOut, offline)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&indexOnly, "index-only", false, "Omit memory content from results")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, limit int, indexOnly, jsonOut, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	var queryEmbedding []float32
	if a.embedder != nil {
		vec, embedErr := a.embedder.Embed(ctx, query)
		if embedErr != nil {
			slog.Warn("query embedding failed, falling back to keyword-only", "error", embedErr)
		} else {
			queryEmbedding = vec
		}
	}

	q := model.Query{Text: query, Limit: limit, IndexOnly: indexOnly}
	results, err := a.engine.Search(ctx, queryEmbedding, q)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. [%.3f] %s (%s)\n", i+1, r.Score, r.Memory.Title, r.Memory.ID)
		if !indexOnly && r.Memory.Content != "" {
			fmt.Fprintf(out, "   %s\n", truncate(r.Memory.Content, 160))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
