package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// statsOutput is the JSON shape for `mnemo stats`, matching the REST
// transport's /api/v1/stats response.
type statsOutput struct {
	TotalMemories int    `json:"total_memories"`
	IndexedCount  int    `json:"indexed_count"`
	HasEmbedder   bool   `json:"has_embedder"`
	SearchMode    string `json:"search_mode"`
}

func newStatsCmd() *cobra.Command {
	var (
		jsonOut bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOut, offline)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOut, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	total, err := a.engine.MemoryCount(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	mode := "keyword_only"
	if a.embedder != nil {
		mode = "hybrid"
	}

	out := statsOutput{
		TotalMemories: total,
		IndexedCount:  a.engine.IndexedCount(),
		HasEmbedder:   a.embedder != nil,
		SearchMode:    mode,
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "total memories: %d\nindexed vectors: %d\nembedder:       %t\nsearch mode:    %s\n",
		out.TotalMemories, out.IndexedCount, out.HasEmbedder, out.SearchMode)
	return nil
}
