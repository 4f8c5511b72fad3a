package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/store"
)

// storeCommand creates the graph store management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage graph documents in the configured store",
		Long: `Manage graph documents in the graph store selected by the [store]
section of the config file (file, redis, mongo, postgres or s3).`,
	}

	cmd.AddCommand(c.storePushCommand())
	cmd.AddCommand(c.storePullCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeRemoveCommand())

	return cmd
}

// storePushCommand creates the "store push" subcommand.
func (c *CLI) storePushCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "push <graph.json>",
		Short: "Validate a graph document and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if key == "" {
				key = keyFromPath(path)
			}
			g, err := c.readGraph(path)
			if err != nil {
				return err
			}
			if err := g.Validate(); err != nil {
				return apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "%s: %v", path, err)
			}

			spinner := newSpinnerWithContext(cmd.Context(), "Connecting to store...")
			spinner.Start()
			s, err := c.openStore(cmd.Context())
			if err != nil {
				spinner.Stop()
				return err
			}
			defer s.Close()

			spinner.SetMessage("Pushing " + key + "...")
			hash, err := store.SaveGraph(cmd.Context(), s, key, g)
			if err != nil {
				if spinner.Cancelled() {
					spinner.StopWithError("Push cancelled")
				} else {
					spinner.StopWithError("Push failed")
				}
				return err
			}
			spinner.StopWithSuccess("Pushed " + StyleHighlight.Render(key))
			printKeyValue("hash", shortHash(hash))
			printKeyValue("backend", backendOf(s))
			return nil
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "store key (default: file name without extension)")
	return cmd
}

// storePullCommand creates the "store pull" subcommand.
func (c *CLI) storePullCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull <key>",
		Short: "Fetch a graph document from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			reg, err := c.registry()
			if err != nil {
				return err
			}
			g, hash, err := store.LoadGraph(cmd.Context(), s, key, reg, c.graphOptions())
			if err != nil {
				return err
			}
			if err := c.writeGraph(g, output); err != nil {
				return err
			}
			if output != "" && output != stdio {
				printSuccess("Pulled %s %s", StyleHighlight.Render(key), StyleDim.Render(shortHash(hash)))
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// storeListCommand creates the "store list" subcommand.
func (c *CLI) storeListCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored graph keys",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			var n int
			for _, k := range keys {
				if strings.HasPrefix(k, prefix) {
					fmt.Fprintln(c.Out, k)
					n++
				}
			}
			if n == 0 {
				printInfo("No graphs stored")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	return cmd
}

// storeRemoveCommand creates the "store rm" subcommand.
func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>...",
		Aliases: []string{"remove"},
		Short:   "Remove graph documents from the store",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			for _, key := range args {
				if err := s.Delete(cmd.Context(), key); err != nil {
					return err
				}
			}
			printSuccess("Removed %s", plural(len(args), "graph"))
			return nil
		},
	}
}

// keyFromPath derives a store key from a file name: "scenes/room.json"
// becomes "room".
func keyFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func backendOf(s store.Store) string {
	if in, ok := s.(*store.Instrumented); ok {
		return in.Backend()
	}
	return "unknown"
}
