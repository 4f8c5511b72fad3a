package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixgraph/pkg/compositor"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/nodegraph/nodes"
	"github.com/matzehuels/mixgraph/pkg/render/nodelink"
	"github.com/matzehuels/mixgraph/pkg/session"
)

// =============================================================================
// validate
// =============================================================================

func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <graph.json>...",
		Short: "Check that graph documents load and are consistent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				g, err := c.readGraph(path)
				if err == nil {
					err = g.Validate()
				}
				if err != nil {
					failed++
					printError("%s", path)
					for _, line := range strings.Split(apperrors.UserMessage(err), "\n") {
						printDetail("%s", line)
					}
					continue
				}
				printSuccess("%s", path)
				printDetail("%d nodes · %d links · %d properties · %d assets",
					g.NodeCount(), len(g.Links()), len(g.Properties()), len(g.Assets()))
			}
			if failed > 0 {
				return apperrors.New(apperrors.ErrCodeInvalidDocument, "%d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}
}

// =============================================================================
// dot
// =============================================================================

type dotOpts struct {
	output     string
	format     string
	detailed   bool
	properties bool
	scene      string
}

func (c *CLI) dotCommand() *cobra.Command {
	var opts dotOpts

	cmd := &cobra.Command{
		Use:   "dot <graph.json>",
		Short: "Draw a graph as Graphviz DOT or SVG",
		Long: `Draw a graph as a Graphviz diagram. Nodes are records with one port per
pin; flow links are bold. With --scene the graph is evaluated for one
frame first and nodes that reported errors are highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDot(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "dot", "output format: dot, svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show pin types and default values")
	cmd.Flags().BoolVar(&opts.properties, "properties", false, "draw graph properties and their bindings")
	cmd.Flags().StringVarP(&opts.scene, "scene", "s", "", "scene file; highlights nodes that fail the first frame")

	return cmd
}

func (c *CLI) runDot(ctx context.Context, path string, opts dotOpts) error {
	g, err := c.readGraph(path)
	if err != nil {
		return err
	}
	dopts := nodelink.Options{Detailed: opts.detailed, Properties: opts.properties}
	if opts.scene != "" {
		failed, err := c.failedNodes(ctx, g, opts.scene)
		if err != nil {
			return err
		}
		dopts.Failed = failed
	}

	dot := nodelink.ToDOT(g, dopts)
	var out []byte
	switch opts.format {
	case "dot":
		out = []byte(dot)
	case "svg":
		if out, err = nodelink.RenderSVG(ctx, dot); err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
	default:
		return apperrors.New(apperrors.ErrCodeUnsupported, "unsupported format %q (want dot or svg)", opts.format)
	}

	if opts.output == "" || opts.output == stdio {
		_, err := c.Out.Write(out)
		return err
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return err
	}
	printSuccess("Wrote %s", opts.format)
	printFile(opts.output)
	return nil
}

// failedNodes evaluates one frame of g and returns the nodes that reported errors.
func (c *CLI) failedNodes(ctx context.Context, g *nodegraph.Graph, scenePath string) ([]nodegraph.ID, error) {
	sc, err := loadScene(scenePath)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(g, sc, session.Options{MaxIterations: c.settings().Engine.MaxIterations})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	f, err := sess.Step(ctx)
	if err != nil {
		return nil, err
	}
	var ids []nodegraph.ID
	for _, e := range f.Errors {
		if e.NodeID != nodegraph.NoID {
			ids = append(ids, e.NodeID)
		}
	}
	return ids, nil
}

// =============================================================================
// new
// =============================================================================

func (c *CLI) newCommand() *cobra.Command {
	var (
		output    string
		materials []string
		modes     []string
	)

	cmd := &cobra.Command{
		Use:     "new",
		Short:   "Write a starter graph with one draw layer per material",
		Example: `  mixgraph new -m portal.mat -m world.mat --mode inside --mode outside -o room.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			layers, err := starterLayers(materials, modes)
			if err != nil {
				return err
			}
			reg, err := c.registry()
			if err != nil {
				return err
			}
			g := nodegraph.New(reg, c.graphOptions())
			if _, err := nodes.Chain(g, layers...); err != nil {
				return err
			}
			if err := c.writeGraph(g, output); err != nil {
				return err
			}
			if output != "" && output != stdio {
				printSuccess("Created graph with %s", plural(len(layers), "layer"))
				printFile(output)
				printNextStep("Evaluate it", fmt.Sprintf("%s eval %s --scene scene.toml", appName, output))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringArrayVarP(&materials, "material", "m", nil, "material path of a layer (repeatable)")
	cmd.Flags().StringArrayVar(&modes, "mode", nil, "stencil mode per layer: inside, outside, disabled (default inside)")

	return cmd
}

// starterLayers pairs materials with stencil modes. Missing modes default
// to inside.
func starterLayers(materials, modes []string) ([]nodes.Layer, error) {
	if len(modes) > len(materials) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "%d modes given for %d materials", len(modes), len(materials))
	}
	layers := make([]nodes.Layer, len(materials))
	for i, m := range materials {
		if err := apperrors.ValidateAssetPath(m); err != nil {
			return nil, err
		}
		mode := compositor.Inside
		if i < len(modes) {
			var err error
			if mode, err = compositor.ParseStencilMode(modes[i]); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "layer %d: %v", i, err)
			}
		}
		layers[i] = nodes.Layer{Material: m, Mode: int32(mode)}
	}
	return layers, nil
}

// =============================================================================
// classes
// =============================================================================

func (c *CLI) classesCommand() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the registered node classes and their pins",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := c.registry()
			if err != nil {
				return err
			}
			rows := classRows(reg, category)
			if len(rows) == 0 {
				return errors.New("no node classes match")
			}
			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("Class", "Category", "Inputs", "Outputs").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == -1: // header
						return headerStyle
					case col == 0:
						return StyleHighlight
					}
					return StyleDim
				})
			_, err = fmt.Fprintln(c.Out, t.Render())
			return err
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only list classes in this category")
	return cmd
}

func classRows(reg *nodegraph.Registry, category string) [][]string {
	var rows [][]string
	for _, cls := range reg.NodeClasses() {
		if category != "" && !strings.EqualFold(cls.Category, category) {
			continue
		}
		var ins, outs []string
		for _, p := range cls.Pins {
			label := p.Name + ":" + p.Class
			if p.Direction == nodegraph.Input {
				ins = append(ins, label)
			} else {
				outs = append(outs, label)
			}
		}
		name := cls.Name
		if cls.Event {
			name += " ⚡"
		}
		rows = append(rows, []string{name, cls.Category, strings.Join(ins, "\n"), strings.Join(outs, "\n")})
	}
	return rows
}
