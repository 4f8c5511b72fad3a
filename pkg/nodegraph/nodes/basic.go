package nodes

import (
	"math"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// Node class names.
const (
	EventFrame         = "event.frame"
	DrawLayer          = "draw.layer"
	ValueFloat         = "value.float"
	ValueFloat4        = "value.float4"
	ValueInt           = "value.int"
	MathAdd            = "math.add"
	MathMultiply       = "math.multiply"
	MathSine           = "math.sine"
	MathSum            = "math.sum"
	TimeFrame          = "time.frame"
	VideoFrame         = "video.frame"
	PropertyMaterial   = "property.material"
	PropertyTexture    = "property.texture"
	PropertyFloatArray = "property.floatArray"
)

// passThrough copies its "value" input to its "out" output.
type passThrough struct{}

func (passThrough) Evaluate(c *nodegraph.Context) error {
	v, err := c.Input("value")
	if err != nil {
		return err
	}
	return c.SetOutput("out", v.Clone())
}

type binary func(a, b float32) float32

func (f binary) Evaluate(c *nodegraph.Context) error {
	a, err := c.Float("a")
	if err != nil {
		return err
	}
	b, err := c.Float("b")
	if err != nil {
		return err
	}
	return c.SetOutput("out", nodegraph.Float(f(a, b)))
}

type sine struct{}

func (sine) Evaluate(c *nodegraph.Context) error {
	x, err := c.Float("x")
	if err != nil {
		return err
	}
	freq, err := c.Float("frequency")
	if err != nil {
		return err
	}
	amp, err := c.Float("amplitude")
	if err != nil {
		return err
	}
	return c.SetOutput("out", nodegraph.Float(amp*float32(math.Sin(float64(x*freq)))))
}

type sum struct{}

func (sum) Evaluate(c *nodegraph.Context) error {
	vs, err := c.Floats("values")
	if err != nil {
		return err
	}
	var total float32
	for _, v := range vs {
		total += v
	}
	return c.SetOutput("out", nodegraph.Float(total))
}

type frameTime struct{}

func (frameTime) Evaluate(c *nodegraph.Context) error {
	if err := c.SetOutput("delta", nodegraph.Float(float32(c.Eval.Delta.Seconds()))); err != nil {
		return err
	}
	return c.SetOutput("elapsed", nodegraph.Float(float32(c.Eval.Elapsed.Seconds())))
}

type videoFrame struct{}

func (videoFrame) Evaluate(c *nodegraph.Context) error {
	out := c.Node.Output("texture")
	if c.Eval.Video == nil {
		return c.Fail(nodegraph.MissingOutput, out, "no video source")
	}
	h, ok := c.Eval.Video.CurrentFrame()
	if !ok {
		return c.Fail(nodegraph.MissingOutput, out, "no video frame decoded yet")
	}
	return c.SetOutput("texture", nodegraph.Texture(h))
}

// propertyGetter forwards its bound material property downstream.
type propertyGetter struct{}

func (propertyGetter) Evaluate(c *nodegraph.Context) error {
	v, err := c.Input("property")
	if err != nil {
		return err
	}
	return c.SetOutput("material", v)
}

func (propertyGetter) ForwardedInput(n *nodegraph.Node, _ *nodegraph.Pin) *nodegraph.Pin {
	return n.Input("property")
}

type textureGetter struct{}

func (textureGetter) Evaluate(c *nodegraph.Context) error {
	prop, err := c.Property("property")
	if err != nil {
		return err
	}
	h, err := c.Graph.ResolveAsset(c.Eval.Render, prop)
	if err != nil {
		return c.Wrap(nodegraph.MissingOutput, c.Node.Output("texture"), err)
	}
	return c.SetOutput("texture", nodegraph.Texture(h))
}

type floatArrayGetter struct{}

func (floatArrayGetter) Evaluate(c *nodegraph.Context) error {
	prop, err := c.Property("property")
	if err != nil {
		return err
	}
	var values []float32
	if fa, ok := prop.Value.(*FloatArrayValue); ok {
		values = fa.Values
	}
	return c.SetOutput("values", nodegraph.FloatArray(values...))
}
