package nodes

import (
	"fmt"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
)

// Layer describes one draw layer of a starter graph.
type Layer struct {
	// Material is the asset path of the layer's material.
	Material string
	// Mode is the stencil mode pin value; see [compositor.StencilMode].
	Mode int32
}

// Chain builds the canonical compositing chain in g: a frame event node
// followed by one draw layer per entry of layers, each bound to its own
// material property. It returns the event node.
//
// [compositor.StencilMode]: github.com/matzehuels/mixgraph/pkg/compositor.StencilMode
func Chain(g *nodegraph.Graph, layers ...Layer) (*nodegraph.Node, error) {
	event, err := g.CreateNode(EventFrame)
	if err != nil {
		return nil, err
	}
	prev := event.Output("next")
	for i, l := range layers {
		layer, err := g.CreateNode(DrawLayer)
		if err != nil {
			return nil, err
		}
		_ = g.SetNodePosition(layer.ID, float64(i+1)*240, 0)
		if _, err := g.CreateLink(prev.ID, layer.Input("in").ID); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := g.SetPinDefault(layer.Input(PinStencilMode).ID, nodegraph.Int(l.Mode)); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.Material != "" {
			asset, err := g.CreateAsset(Material, "", l.Material)
			if err != nil {
				return nil, err
			}
			prop, err := g.CreateProperty(Material, "")
			if err != nil {
				return nil, err
			}
			if err := g.SetPropertyAsset(prop.ID, asset.ID); err != nil {
				return nil, err
			}
			if err := g.BindProperty(layer.Input("material").ID, prop.ID); err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
		}
		prev = layer.Output("next")
	}
	return event, nil
}
