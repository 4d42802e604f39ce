package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), cmd, args[0], offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")

	return cmd
}

func runDelete(ctx context.Context, cmd *cobra.Command, id string, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	removed, err := a.engine.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !removed {
		return fmt.Errorf("memory %q not found", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
	return nil
}
