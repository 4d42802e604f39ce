package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	var (
		jsonOut bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "get <id> [id...]",
		Short: "Fetch one or more memories by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd, args, jsonOut, offline)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")

	return cmd
}

func runGet(ctx context.Context, cmd *cobra.Command, ids []string, jsonOut, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	memories, err := a.engine.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(memories)
	}

	out := cmd.OutOrStdout()
	for _, m := range memories {
		fmt.Fprintf(out, "%s\t%s\t%s\n", m.ID, m.Metadata.MemoryType, m.Title)
		fmt.Fprintf(out, "  %s\n", m.Content)
	}
	return nil
}
