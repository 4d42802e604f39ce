package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amanmcp/mnemo/internal/model"
)

func newStoreCmd() *cobra.Command {
	var (
		title      string
		memoryType string
		priority   string
		tags       []string
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "store <content>",
		Short: "Store a new memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(cmd.Context(), cmd, args[0], title, memoryType, priority, tags, offline)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Memory title (required)")
	cmd.Flags().StringVar(&memoryType, "type", "observation", "Memory type (observation, decision, preference, fact, task, session, bugfix, discovery)")
	cmd.Flags().StringVar(&priority, "priority", "medium", "Priority (low, medium, high)")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func runStore(ctx context.Context, cmd *cobra.Command, content, title, memoryType, priority string, tags []string, offline bool) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content must not be empty")
	}

	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	m := model.NewMemory(title, content)
	m.Metadata.MemoryType = model.ParseMemoryType(memoryType)
	m.Metadata.Priority = model.ParsePriority(priority)
	m.Metadata.Tags = tags

	if a.embedder != nil {
		vec, embedErr := a.embedder.Embed(ctx, content)
		if embedErr != nil {
			slog.Warn("embedding failed, storing without vector", "error", embedErr)
		} else {
			m.Embedding = vec
		}
	}

	if err := a.engine.Store(ctx, m); err != nil {
		return fmt.Errorf("store memory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored %s (has_embedding=%t)\n", m.ID, len(m.Embedding) > 0)
	return nil
}
