package nodegraph_test

import (
	"fmt"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

type double struct{}

func (double) Evaluate(c *nodegraph.Context) error {
	x, err := c.Float("x")
	if err != nil {
		return err
	}
	return c.SetOutput("y", nodegraph.Float(2*x))
}

func Example() {
	reg := nodegraph.NewRegistry()
	_ = reg.RegisterPin(nodegraph.PinClass{Name: "flow", Type: nodegraph.PinType{Kind: nodegraph.KindFlow}})
	_ = reg.RegisterPin(nodegraph.PinClass{Name: "float", Type: nodegraph.PinType{Kind: nodegraph.KindFloat}})
	_ = reg.RegisterNode(nodegraph.NodeClass{
		Name: "double",
		Pins: []nodegraph.PinSpec{
			{Name: "in", Class: "flow", Direction: nodegraph.Input},
			{Name: "x", Class: "float", Direction: nodegraph.Input},
			{Name: "y", Class: "float", Direction: nodegraph.Output},
		},
		New: func() nodegraph.Behavior { return double{} },
	})

	g := nodegraph.New(reg, nodegraph.Options{})
	n, _ := g.CreateNode("double")
	_ = g.SetPinDefault(n.Input("x").ID, nodegraph.Float(21))

	ev := nodegraph.NewEvaluator(nodegraph.Frame{})
	g.EvaluateFlowPinChain(ev, n)
	fmt.Println(n.Output("y").Value().Scalar(), len(ev.Errors()))
	// Output: 42 0
}
