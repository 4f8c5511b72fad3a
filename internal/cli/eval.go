package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mixgraph/pkg/config"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/session"
)

// evalOpts holds the command-line flags for the eval command.
type evalOpts struct {
	scene         string // scene description (TOML)
	frames        int    // overrides the scene's frame count
	maxIterations int    // overrides the configured flow-chain bound
	json          bool   // print frames as JSON instead of a summary
	quiet         bool   // only print the summary line
}

// evalCommand evaluates a graph headlessly. Without a scene the graph runs
// against an empty scene: no stencils, no materials.
func (c *CLI) evalCommand() *cobra.Command {
	var opts evalOpts

	cmd := &cobra.Command{
		Use:   "eval <graph.json>",
		Short: "Evaluate frames of a graph and summarize the draw calls",
		Long: `Evaluate a graph headlessly against a scene description. Every frame
starts the flow chains of the graph's event nodes; the draw calls the
layers issue are recorded and summarized. The command fails when any
frame reported evaluation errors.`,
		Example: `  mixgraph eval room.json --scene room.toml --frames 60
  mixgraph eval room.json -s room.toml --json | jq '.[0].draws'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEval(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scene, "scene", "s", "", "scene file (TOML)")
	cmd.Flags().IntVarP(&opts.frames, "frames", "n", 0, "number of frames (default from scene)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "flow chain evaluation bound (default from config)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print frames as JSON")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print the summary")

	return cmd
}

func (c *CLI) runEval(ctx context.Context, path string, opts evalOpts) error {
	logger := loggerFromContext(ctx)

	g, err := c.readGraph(path)
	if err != nil {
		return err
	}
	sc := &config.Scene{Surface: 1, Frames: 1}
	if opts.scene != "" {
		if sc, err = loadScene(opts.scene); err != nil {
			return err
		}
	}
	n := sc.Frames
	if opts.frames > 0 {
		n = opts.frames
	}
	maxIter := c.settings().Engine.MaxIterations
	if opts.maxIterations > 0 {
		maxIter = opts.maxIterations
	}

	sess, err := session.New(g, sc, session.Options{MaxIterations: maxIter})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeEvaluation, err, "prepare %s: %v", path, err)
	}
	defer sess.Close()

	prog := newProgress(logger)
	frames := sess.Run(ctx, n)
	prog.done(fmt.Sprintf("Evaluated %s", plural(len(frames), "frame")))
	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(frames); err != nil {
			return err
		}
	} else {
		printFrames(frames, opts.quiet)
	}

	for _, f := range frames {
		if len(f.Errors) > 0 {
			return &apperrors.EvaluationError{Frame: f.Index, Errors: len(f.Errors)}
		}
	}
	return nil
}

func printFrames(frames []session.Frame, quiet bool) {
	if !quiet {
		for _, f := range frames {
			status := StyleSuccess.Render(iconSuccess)
			if len(f.Errors) > 0 {
				status = StyleError.Render(iconError)
			}
			fmt.Printf("%s %s %s\n", status,
				StyleHighlight.Render(fmt.Sprintf("frame %d", f.Index)),
				StyleDim.Render(fmt.Sprintf("%s · %s · %s",
					f.Elapsed.Round(time.Millisecond),
					plural(len(f.Draws), "draw"),
					plural(f.Evaluations, "evaluation"))))
			for _, d := range f.Draws {
				target := "unmasked"
				if d.StencilKind != "" {
					target = fmt.Sprintf("%s #%d", d.StencilKind, d.StencilID)
				}
				printDetail("material %d %s %s, %s blend", d.Material, d.Test, target, d.Blend)
			}
			for _, e := range f.Errors {
				printWarning("%s", e.Error())
			}
		}
	}
	printFrameStats(frames)
}

// loadScene reads a scene file, or stdin for "-".
func loadScene(path string) (*config.Scene, error) {
	if path == stdio {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		sc, err := config.DecodeScene(string(data))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "scene: %v", err)
		}
		return sc, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "%s not found", path)
	}
	sc, err := config.LoadScene(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "scene %v", err)
	}
	return sc, nil
}
