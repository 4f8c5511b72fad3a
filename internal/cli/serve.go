package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mixgraph/pkg/cache"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/server"
	"github.com/matzehuels/mixgraph/pkg/session"
)

// janitorInterval is how often expired sessions are swept.
const janitorInterval = time.Minute

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph store and headless evaluation over HTTP",
		Long: `Serve the configured graph store over HTTP. Documents are validated
before they are stored; frames can be evaluated on stored graphs either
one request at a time or through long-lived sessions that expire after
--session-ttl of inactivity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.settings()
			if addr == "" {
				addr = cfg.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, sessionTTL)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", session.DefaultTTL, "idle time before a session expires")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, ttl time.Duration) error {
	cfg := c.settings()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, err := c.registry()
	if err != nil {
		return err
	}
	artifacts, err := openArtifactCache(cfg.Server.CacheDir)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	sessions := session.NewRegistry(ttl)
	srv, err := server.New(server.Options{
		Store:         st,
		Registry:      reg,
		Sessions:      sessions,
		Logger:        c.Logger,
		MaxIterations: cfg.Engine.MaxIterations,
		EventClass:    cfg.Engine.EventClass,
		Cache:         artifacts,
	})
	if err != nil {
		return err
	}

	printInfo("Serving %s store on %s", backendOf(st), StyleHighlight.Render(addr))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr, cfg.ShutdownTimeout())
	})
	g.Go(func() error {
		sessions.Janitor(ctx, janitorInterval)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}

// openArtifactCache keeps rendered diagrams in dir, or in memory when dir
// is empty.
func openArtifactCache(dir string) (cache.Cache, error) {
	if dir == "" {
		return cache.NewMemoryCache(0), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "server.cache_dir: %v", err)
	}
	return fc, nil
}
