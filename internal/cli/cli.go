// Package cli implements the mixgraph command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixgraph/pkg/buildinfo"
	"github.com/matzehuels/mixgraph/pkg/config"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	mgio "github.com/matzehuels/mixgraph/pkg/io"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/nodegraph/nodes"
	"github.com/matzehuels/mixgraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mixgraph"

	// stdio is the path argument meaning stdin or stdout.
	stdio = "-"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Defaults to os.Stdout.
	Out io.Writer

	configPath string
	verbose    bool
	cfg        *config.Config
	reg        *nodegraph.Registry
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Mixgraph evaluates mixed-reality compositing node graphs",
		Long: `Mixgraph is a toolkit for node graphs that composite virtual layers over
a camera feed, masked by stencil volumes. It validates, evaluates and
visualizes graph documents, keeps them in a graph store and serves them
over HTTP.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.evalCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.newCommand())
	root.AddCommand(c.classesCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Setup
// =============================================================================

// loadConfig reads the config file and environment once per invocation.
func (c *CLI) loadConfig() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "load config: %v", err)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "config: %v", err)
	}
	c.cfg = cfg
	if c.verbose {
		c.SetLogLevel(LogDebug)
	} else {
		c.SetLogLevel(cfg.LogLevel())
	}
	installHooks(c.Logger)
	return nil
}

func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// registry returns the built-in node registry.
func (c *CLI) registry() (*nodegraph.Registry, error) {
	if c.reg != nil {
		return c.reg, nil
	}
	reg, err := nodes.NewRegistry()
	if err != nil {
		return nil, err
	}
	c.reg = reg
	return reg, nil
}

func (c *CLI) graphOptions() nodegraph.Options {
	return nodegraph.Options{
		Class:      nodes.GraphClass,
		EventClass: c.settings().Engine.EventClass,
		Logger:     c.Logger,
	}
}

// readGraph loads a graph document from path, or stdin for "-".
func (c *CLI) readGraph(path string) (*nodegraph.Graph, error) {
	reg, err := c.registry()
	if err != nil {
		return nil, err
	}
	if path == stdio {
		g, err := mgio.ReadJSON(os.Stdin, reg, c.graphOptions())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "stdin: %v", err)
		}
		return g, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "%s not found", path)
	}
	g, err := mgio.ImportJSON(path, reg, c.graphOptions())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "%s: %v", path, err)
	}
	return g, nil
}

// writeGraph writes g to path, or to Out for "" and "-".
func (c *CLI) writeGraph(g *nodegraph.Graph, path string) error {
	if path == "" || path == stdio {
		return mgio.WriteJSON(g, c.Out)
	}
	return mgio.ExportJSON(g, path)
}

// openStore opens the configured graph store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg := c.settings().StoreConfig()
	c.Logger.Debug("opening store", "backend", cfg.Backend)
	return store.Open(ctx, cfg)
}
