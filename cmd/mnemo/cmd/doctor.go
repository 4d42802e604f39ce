package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amanmcp/mnemo/internal/hybrid"
)

func newDoctorCmd() *cobra.Command {
	var (
		repair  bool
		jsonOut bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check store/index consistency and optionally repair it",
		Long: `Cross-check the authoritative memory store against the vector and
text indices, reporting orphaned index entries and memories missing from an
index. Pass --repair to delete orphans; a memory missing from an index
requires a full 'mnemo doctor rebuild' instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, repair, jsonOut, offline)
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Delete orphaned index entries")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")

	cmd.AddCommand(newDoctorRebuildCmd())

	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command, repair, jsonOut, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	doctor := hybrid.NewDoctor(a.mem, a.vec, a.text)
	result, err := doctor.Check(ctx)
	if err != nil {
		return fmt.Errorf("doctor check: %w", err)
	}

	if repair && len(result.Inconsistencies) > 0 {
		if err := doctor.Repair(ctx, result.Inconsistencies); err != nil {
			return fmt.Errorf("doctor repair: %w", err)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "checked %d memories in %s\n", result.Checked, result.Duration)
	if len(result.Inconsistencies) == 0 {
		fmt.Fprintln(out, "no inconsistencies found")
		return nil
	}
	for _, inc := range result.Inconsistencies {
		fmt.Fprintf(out, "  %s: %s (%s)\n", inc.Type, inc.MemoryID, inc.Details)
	}
	if !repair {
		fmt.Fprintln(out, "run with --repair to delete orphaned index entries")
	}
	return nil
}

func newDoctorRebuildCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the vector and text indices from the memory store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctorRebuild(cmd.Context(), cmd, offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")
	return cmd
}

func runDoctorRebuild(ctx context.Context, cmd *cobra.Command, offline bool) error {
	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Warn("error closing store", "error", closeErr)
		}
	}()

	if err := a.engine.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "rebuild complete")
	return nil
}
