package nodegraph

import (
	"slices"
	"time"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// DefaultMaxIterations bounds the node evaluations of one flow chain when
// Evaluator.MaxIterations is not set.
const DefaultMaxIterations = 1000

// Frame carries the per-frame inputs of an evaluation.
type Frame struct {
	// Surface is the render target draws go to.
	Surface  scene.Handle
	Delta    time.Duration
	Elapsed  time.Duration
	Camera   scene.Vec3
	Video    scene.VideoSource
	Render   scene.RenderProvider
	Stencils scene.StencilRegistry
}

// Evaluator is the value threaded through one frame's evaluation. It
// carries the frame inputs and accumulates errors in the order they
// occur. An Evaluator is used for one frame at a time; Reset prepares it
// for the next.
type Evaluator struct {
	Frame
	// MaxIterations bounds the node evaluations of a single flow chain.
	// Zero means DefaultMaxIterations.
	MaxIterations int

	noInputs    bool
	errs        []*EvalError
	visiting    map[ID]bool
	evaluations int
}

// NewEvaluator returns an evaluator for one frame.
func NewEvaluator(f Frame) *Evaluator {
	return &Evaluator{Frame: f, visiting: make(map[ID]bool)}
}

// Reset clears errors and counters and installs the next frame's inputs.
func (ev *Evaluator) Reset(f Frame) {
	ev.Frame = f
	ev.noInputs = false
	ev.errs = nil
	ev.evaluations = 0
	clear(ev.visiting)
}

// Errors returns the recorded errors in order.
func (ev *Evaluator) Errors() []*EvalError { return slices.Clone(ev.errs) }

// Failed reports whether any error was recorded.
func (ev *Evaluator) Failed() bool { return len(ev.errs) > 0 }

// Report appends an error.
func (ev *Evaluator) Report(e *EvalError) { ev.errs = append(ev.errs, e) }

// Evaluations returns the number of node evaluations performed, including
// upstream pulls.
func (ev *Evaluator) Evaluations() int { return ev.evaluations }

// SetInputEvaluation toggles pulling of upstream inputs. With it off,
// nodes evaluate against the values their input pins already hold, which
// is how a node that is already current is re-entered.
func (ev *Evaluator) SetInputEvaluation(enabled bool) { ev.noInputs = !enabled }

// InputEvaluation reports whether upstream inputs are pulled.
func (ev *Evaluator) InputEvaluation() bool { return !ev.noInputs }

func (ev *Evaluator) maxIterations() int {
	if ev.MaxIterations > 0 {
		return ev.MaxIterations
	}
	return DefaultMaxIterations
}
