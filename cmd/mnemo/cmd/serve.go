package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amanmcp/mnemo/internal/model"
	"github.com/amanmcp/mnemo/internal/restserver"
	"github.com/amanmcp/mnemo/internal/rpcserver"
	"github.com/amanmcp/mnemo/internal/watch"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		addr      string
		offline   bool
		noWatch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the memory server",
		Long: `Start mnemo as a long-running server.

With --transport stdio (the default) it speaks the Model Context Protocol
over stdin/stdout, for use as a tool server from an AI coding assistant.
With --transport http it exposes the REST API over TCP instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport, addr, offline, noWatch)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "Listen address for --transport http")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the static hash-based embedder instead of Ollama")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable the filesystem observer even if configured")

	return cmd
}

func runServe(ctx context.Context, transport, addr string, offline, noWatch bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, offline)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.close(); closeErr != nil {
			slog.Error("error shutting down", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if !noWatch && len(a.cfg.Observer.WatchDirs) > 0 {
		w := watch.New(a.cfg.Observer.WatchDirs, a.cfg.Observer.Recursive, a.cfg.Observer.Extensions,
			func(ctx context.Context, path string, content []byte) error {
				m := model.NewMemory(path, string(content))
				m.Metadata.MemoryType = model.TypeObservation
				m.Metadata.Source = path
				if a.embedder != nil {
					if vec, err := a.embedder.Embed(ctx, m.Content); err == nil {
						m.Embedding = vec
					}
				}
				return a.engine.Store(ctx, m)
			},
			os.ReadFile,
		)
		g.Go(func() error { return w.Run(gctx) })
	}

	switch transport {
	case "stdio":
		srv := rpcserver.New(a.engine, a.embedder)
		g.Go(func() error { return srv.Run(gctx) })
	case "http":
		srv := restserver.New(addr, a.engine, a.embedder)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	default:
		return fmt.Errorf("unknown transport %q: must be stdio or http", transport)
	}

	return g.Wait()
}
