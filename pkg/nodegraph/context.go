package nodegraph

import (
	"errors"
	"fmt"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Context is handed to a behaviour's Evaluate. Input accessors return the
// values pulled for this evaluation; SetOutput publishes results for
// downstream nodes.
type Context struct {
	Eval  *Evaluator
	Graph *Graph
	Node  *Node
}

// Input returns the current value of the named input pin.
func (c *Context) Input(name string) (Value, error) {
	p := c.Node.Input(name)
	if p == nil {
		return Value{}, c.Fail(MissingInput, nil, "no input %q", name)
	}
	return p.value, nil
}

// Float returns the first component of a numeric input.
func (c *Context) Float(name string) (float32, error) {
	v, err := c.Input(name)
	if err != nil {
		return 0, err
	}
	return v.Scalar(), nil
}

// Int returns the first component of an int input.
func (c *Context) Int(name string) (int32, error) {
	v, err := c.Input(name)
	if err != nil {
		return 0, err
	}
	if len(v.Ints) == 0 {
		return int32(v.Scalar()), nil
	}
	return v.Ints[0], nil
}

// Floats returns every float of a numeric or array input, flattened.
func (c *Context) Floats(name string) ([]float32, error) {
	v, err := c.Input(name)
	if err != nil {
		return nil, err
	}
	return flatten(v), nil
}

// Texture returns the handle carried by a texture input. An empty handle
// is a missingInput error.
func (c *Context) Texture(name string) (scene.Handle, error) {
	v, err := c.Input(name)
	if err != nil {
		return 0, err
	}
	if v.Handle == 0 {
		return 0, c.Fail(MissingInput, c.Node.Input(name), "no texture on %q", name)
	}
	return v.Handle, nil
}

// Property returns the property referenced by a property input. An
// unbound pin is a missingInput error.
func (c *Context) Property(name string) (*Property, error) {
	v, err := c.Input(name)
	if err != nil {
		return nil, err
	}
	p := c.Graph.properties[v.Property]
	if p == nil {
		return nil, c.Fail(MissingInput, c.Node.Input(name), "no property bound to %q", name)
	}
	return p, nil
}

// SetOutput stores a value on the named output pin.
func (c *Context) SetOutput(name string, v Value) error {
	p := c.Node.Output(name)
	if p == nil {
		return c.Fail(MissingOutput, nil, "no output %q", name)
	}
	if v.Kind != p.Type.Kind {
		return c.Fail(EvaluationError, p, "%s value for %s output %q", v.Kind, p.Type, name)
	}
	p.value = v
	return nil
}

// Fail builds an EvalError attributed to the node and, if given, a pin.
func (c *Context) Fail(kind ErrorKind, p *Pin, format string, args ...any) *EvalError {
	e := &EvalError{Kind: kind, NodeID: c.Node.ID, Message: fmt.Sprintf(format, args...)}
	if p != nil {
		e.PinID = p.ID
	}
	return e
}

// Wrap builds an EvalError of the given kind around err.
func (c *Context) Wrap(kind ErrorKind, p *Pin, err error) *EvalError {
	e := c.Fail(kind, p, "")
	e.Err = err
	return e
}

// asEvalError attributes a behaviour's error to the node.
func asEvalError(n *Node, err error) *EvalError {
	var ee *EvalError
	if errors.As(err, &ee) {
		if ee.NodeID == NoID {
			ee.NodeID = n.ID
		}
		return ee
	}
	return &EvalError{Kind: EvaluationError, NodeID: n.ID, Err: err}
}

func flatten(v Value) []float32 {
	if v.Kind == KindArray {
		var out []float32
		for _, item := range v.Array {
			out = append(out, flatten(item)...)
		}
		return out
	}
	if len(v.Floats) > 0 {
		return append([]float32(nil), v.Floats...)
	}
	out := make([]float32, len(v.Ints))
	for i, x := range v.Ints {
		out[i] = float32(x)
	}
	return out
}
