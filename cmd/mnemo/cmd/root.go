// Package cmd provides the CLI commands for mnemo.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/amanmcp/mnemo/internal/config"
	"github.com/amanmcp/mnemo/internal/embed"
	"github.com/amanmcp/mnemo/internal/hybrid"
	"github.com/amanmcp/mnemo/internal/lock"
	"github.com/amanmcp/mnemo/internal/store"
	"github.com/amanmcp/mnemo/pkg/scorer"
	"github.com/amanmcp/mnemo/pkg/version"
)

var configPath string

// NewRootCmd creates the root command for the mnemo CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemo",
		Short: "Local-first hybrid retrieval engine for personal knowledge",
		Long: `mnemo stores short notes, decisions, and observations and retrieves
them later by fusing dense vector similarity, BM25 keyword matching, and
recency/priority scoring into a single ranked result.

It runs entirely locally against an embedded SQLite store, a bleve text
index, and an in-memory HNSW vector index.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("mnemo version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: "+config.DefaultConfigPath()+")")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStoreCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// app bundles the constructed dependency graph shared by every subcommand
// that touches storage: config, the three C2/C3/C4 stores wrapped by the
// hybrid engine, and an optional embedder.
type app struct {
	cfg      *config.Config
	lock     *lock.FileLock
	mem      *store.MemoryStore
	vec      *store.VectorIndex
	text     *store.TextIndex
	engine   *hybrid.Engine
	embedder embed.Embedder
}

// newApp loads configuration, acquires the data-directory lock, and opens
// the memory/vector/text stores behind a hybrid.Engine. When no vector
// snapshot can be loaded, the indices are rebuilt from the memory store.
// close must be called to release everything cleanly.
func newApp(ctx context.Context, offline bool) (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	fl := lock.New(cfg.Storage.DataDir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire data directory lock: %w", err)
	}

	mem, err := store.NewMemoryStore(filepath.Join(cfg.Storage.DataDir, "memory.db"))
	if err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	vec := store.NewVectorIndex(cfg.Embedding.Dimensions)
	vectorPath := filepath.Join(cfg.Storage.DataDir, "vectors.gob")
	rebuild := true
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := vec.Load(vectorPath); err != nil {
			slog.Warn("vector index snapshot unreadable, rebuilding from the memory store", "error", err)
			vec = store.NewVectorIndex(cfg.Embedding.Dimensions)
		} else {
			rebuild = false
		}
	}

	text, err := store.NewTextIndex(filepath.Join(cfg.Storage.DataDir, "text.bleve"))
	if err != nil {
		_ = mem.Close()
		_ = fl.Unlock()
		return nil, fmt.Errorf("open text index: %w", err)
	}

	provider := embed.ProviderOllama
	if offline {
		provider = embed.ProviderStatic
	}
	embedder, err := embed.New(ctx, provider, "", cfg.Embedding.Dimensions, true)
	if err != nil {
		_ = text.Close()
		_ = mem.Close()
		_ = fl.Unlock()
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	sc := scorer.New(scorer.Weights{
		Semantic:   float32(cfg.Search.SemanticWeight),
		Keyword:    float32(cfg.Search.KeywordWeight),
		Recency:    float32(cfg.Search.RecencyWeight),
		Importance: float32(cfg.Search.ImportanceWeight),
	}, float32(cfg.Search.RecencyHalfLifeDays))

	engine := hybrid.New(mem, vec, text, sc)
	if rebuild {
		if err := engine.Rebuild(ctx); err != nil {
			_ = text.Close()
			_ = mem.Close()
			_ = fl.Unlock()
			return nil, fmt.Errorf("rebuild indices: %w", err)
		}
	}

	return &app{cfg: cfg, lock: fl, mem: mem, vec: vec, text: text, engine: engine, embedder: embedder}, nil
}

// close persists the vector index and releases all held resources. Errors
// are collected but every step still runs.
func (a *app) close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	vectorPath := filepath.Join(a.cfg.Storage.DataDir, "vectors.gob")
	record(a.vec.Save(vectorPath))
	record(a.text.Close())
	record(a.mem.Close())

	if a.embedder != nil {
		record(a.embedder.Close())
	}
	record(a.lock.Unlock())
	return firstErr
}
