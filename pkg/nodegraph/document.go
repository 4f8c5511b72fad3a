package nodegraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
)

// DocumentVersion is the version written by Snapshot.
const DocumentVersion = 1

// Document is the persisted form of a graph. Entities are stored flat and
// reference each other by id; Restore rebuilds the cross references in
// two passes.
type Document struct {
	Version    int              `json:"version"`
	Class      string           `json:"class,omitempty"`
	NextID     ID               `json:"next_id"`
	Nodes      []NodeRecord     `json:"nodes"`
	Pins       []PinRecord      `json:"pins"`
	Links      []LinkRecord     `json:"links"`
	Properties []PropertyRecord `json:"properties,omitempty"`
	Assets     []AssetRecord    `json:"assets,omitempty"`
}

// NodeRecord is the persisted form of a node.
type NodeRecord struct {
	Class    string     `json:"class"`
	ID       ID         `json:"id"`
	Position [2]float64 `json:"position"`
	Inputs   []ID       `json:"inputs"`
	Outputs  []ID       `json:"outputs"`
}

// PinRecord is the persisted form of a pin.
type PinRecord struct {
	Class     string    `json:"class"`
	ID        ID        `json:"id"`
	Node      ID        `json:"node"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Default   *Value    `json:"default,omitempty"`
	Property  ID        `json:"property,omitempty"`
}

// LinkRecord is the persisted form of a link.
type LinkRecord struct {
	ID    ID `json:"id"`
	Start ID `json:"start"`
	End   ID `json:"end"`
}

// PropertyRecord is the persisted form of a graph property.
type PropertyRecord struct {
	Class   string          `json:"class"`
	ID      ID              `json:"id"`
	Name    string          `json:"name"`
	Asset   ID              `json:"asset,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AssetRecord is the persisted form of an asset reference.
type AssetRecord struct {
	Class string `json:"class"`
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
}

// Snapshot returns the graph as a document. Records are ordered by id.
func (g *Graph) Snapshot() (*Document, error) {
	doc := &Document{Version: DocumentVersion, Class: g.class, NextID: g.nextID}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeRecord{
			Class:    n.Class,
			ID:       n.ID,
			Position: n.Position,
			Inputs:   slices.Clone(n.Inputs),
			Outputs:  slices.Clone(n.Outputs),
		})
	}
	for _, p := range g.Pins() {
		rec := PinRecord{Class: p.Class, ID: p.ID, Node: p.Node, Name: p.Name, Direction: p.Direction, Property: p.Property}
		if p.Type.Kind != KindFlow && p.Type.Kind != KindProperty {
			def := p.Default.Clone()
			rec.Default = &def
		}
		doc.Pins = append(doc.Pins, rec)
	}
	for _, l := range g.Links() {
		doc.Links = append(doc.Links, LinkRecord{ID: l.ID, Start: l.Start, End: l.End})
	}
	for _, p := range g.Properties() {
		rec := PropertyRecord{Class: p.Class, ID: p.ID, Name: p.Name, Asset: p.Asset}
		if p.Value != nil {
			b, err := json.Marshal(p.Value)
			if err != nil {
				return nil, fmt.Errorf("encode property %q: %w", p.Name, err)
			}
			rec.Payload = b
		}
		doc.Properties = append(doc.Properties, rec)
	}
	for _, a := range g.Assets() {
		doc.Assets = append(doc.Assets, AssetRecord{Class: a.Class, ID: a.ID, Name: a.Name, Path: a.Path})
	}
	return doc, nil
}

// Restore rebuilds a graph from a document.
//
// Loading runs in the persisted order: nodes, pins, links, properties and
// assets. A second pass then resolves pin-to-property and
// property-to-asset references and runs every [PostLoader] in id order.
// No events are published while loading. The id counter resumes past the
// largest id in the document.
func Restore(reg *Registry, doc *Document, opts Options) (*Graph, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrCorrupt)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: document version %d is newer than %d", ErrCorrupt, doc.Version, DocumentVersion)
	}
	if opts.Class == "" {
		opts.Class = doc.Class
	}
	g := New(reg, opts)
	g.loading = true

	maxID := NoID
	seen := make(map[ID]bool)
	claim := func(id ID) error {
		if id <= NoID {
			return fmt.Errorf("%w: invalid id %d", ErrCorrupt, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		seen[id] = true
		maxID = max(maxID, id)
		return nil
	}

	for _, rec := range doc.Nodes {
		cls, ok := reg.nodes[rec.Class]
		if !ok {
			return nil, fmt.Errorf("node %d: %w: %q", rec.ID, ErrUnknownClass, rec.Class)
		}
		if err := claim(rec.ID); err != nil {
			return nil, fmt.Errorf("node: %w", err)
		}
		n := g.insertNode(rec.ID, cls)
		n.Position = rec.Position
	}

	for _, rec := range doc.Pins {
		if err := claim(rec.ID); err != nil {
			return nil, fmt.Errorf("pin: %w", err)
		}
		n := g.nodes[rec.Node]
		if n == nil {
			return nil, fmt.Errorf("pin %d: %w: %d", rec.ID, ErrUnknownNode, rec.Node)
		}
		spec := PinSpec{Name: rec.Name, Class: rec.Class, Direction: rec.Direction, Default: rec.Default}
		if _, err := g.insertPin(rec.ID, n, spec); err != nil {
			return nil, fmt.Errorf("pin %d: %w", rec.ID, err)
		}
	}
	for _, rec := range doc.Nodes {
		n := g.nodes[rec.ID]
		for _, list := range []struct {
			ids []ID
			dir Direction
		}{{rec.Inputs, Input}, {rec.Outputs, Output}} {
			for _, pid := range list.ids {
				p := g.pins[pid]
				if p == nil || p.Node != n.ID || p.Direction != list.dir {
					return nil, fmt.Errorf("node %d: %w: %s pin %d", n.ID, ErrCorrupt, list.dir, pid)
				}
				if n.findPin(n.pinIDs(list.dir), p.Name) != nil {
					return nil, fmt.Errorf("node %d: %w: %s pin %q", n.ID, ErrCorrupt, list.dir, p.Name)
				}
				n.appendPin(p)
			}
		}
		for _, spec := range n.class.Pins {
			p := n.findPin(n.pinIDs(spec.Direction), spec.Name)
			if p == nil || p.Class != spec.Class {
				return nil, fmt.Errorf("node %d: %w: missing %s pin %q", n.ID, ErrCorrupt, spec.Direction, spec.Name)
			}
		}
	}
	for _, p := range g.pins {
		n := g.nodes[p.Node]
		if !slices.Contains(n.pinIDs(p.Direction), p.ID) {
			return nil, fmt.Errorf("pin %d: %w: not listed by node %d", p.ID, ErrCorrupt, n.ID)
		}
	}

	for _, rec := range doc.Links {
		if err := claim(rec.ID); err != nil {
			return nil, fmt.Errorf("link: %w", err)
		}
		out, in, err := g.checkLink(rec.Start, rec.End)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", rec.ID, err)
		}
		if out.ID != rec.Start {
			return nil, fmt.Errorf("link %d: %w: start must be the output", rec.ID, ErrDirection)
		}
		if len(in.links) > 0 {
			return nil, fmt.Errorf("link %d: %w", rec.ID, ErrInputOccupied)
		}
		if out.Type.Kind == KindFlow && len(out.links) > 0 {
			return nil, fmt.Errorf("link %d: %w", rec.ID, ErrFlowOccupied)
		}
		l := &Link{ID: rec.ID, Start: out.ID, End: in.ID}
		g.links[l.ID] = l
		out.links = append(out.links, l.ID)
		in.links = append(in.links, l.ID)
	}

	for _, rec := range doc.Properties {
		if err := claim(rec.ID); err != nil {
			return nil, fmt.Errorf("property: %w", err)
		}
		cls, ok := reg.properties[rec.Class]
		if !ok {
			return nil, fmt.Errorf("property %d: %w: %q", rec.ID, ErrUnknownClass, rec.Class)
		}
		if err := apperrors.ValidatePropertyName(rec.Name); err != nil {
			return nil, fmt.Errorf("property %d: %w: %w", rec.ID, ErrCorrupt, err)
		}
		if g.PropertyByName(rec.Name) != nil {
			return nil, fmt.Errorf("property %d: %w: %q", rec.ID, ErrDuplicateName, rec.Name)
		}
		p := &Property{ID: rec.ID, Name: rec.Name, Class: rec.Class, Asset: rec.Asset}
		if cls.New != nil {
			p.Value = cls.New()
			if len(rec.Payload) > 0 {
				if err := json.Unmarshal(rec.Payload, p.Value); err != nil {
					return nil, fmt.Errorf("property %d: decode payload: %w", rec.ID, err)
				}
			}
		}
		g.properties[p.ID] = p
	}
	for _, rec := range doc.Assets {
		if err := claim(rec.ID); err != nil {
			return nil, fmt.Errorf("asset: %w", err)
		}
		if _, ok := reg.assets[rec.Class]; !ok {
			return nil, fmt.Errorf("asset %d: %w: %q", rec.ID, ErrUnknownClass, rec.Class)
		}
		if err := apperrors.ValidatePropertyName(rec.Name); err != nil {
			return nil, fmt.Errorf("asset %d: %w: %w", rec.ID, ErrCorrupt, err)
		}
		if g.AssetByName(rec.Name) != nil {
			return nil, fmt.Errorf("asset %d: %w: %q", rec.ID, ErrDuplicateName, rec.Name)
		}
		g.assets[rec.ID] = &AssetRef{ID: rec.ID, Name: rec.Name, Class: rec.Class, Path: rec.Path}
	}

	// Second pass: cross references.
	for _, rec := range doc.Pins {
		if rec.Property == NoID {
			continue
		}
		pin := g.pins[rec.ID]
		prop := g.properties[rec.Property]
		switch {
		case prop == nil:
			return nil, fmt.Errorf("pin %d: %w: %d", rec.ID, ErrUnknownProperty, rec.Property)
		case pin.Type.Kind != KindProperty:
			return nil, fmt.Errorf("pin %d: %w", rec.ID, ErrNotPropertyPin)
		case prop.Class != pin.Type.PropertyClass:
			return nil, fmt.Errorf("pin %d: %w: %s property", rec.ID, ErrIncompatibleTypes, prop.Class)
		}
		g.bind(pin, prop.ID)
	}
	for _, p := range g.properties {
		if p.Asset == NoID {
			continue
		}
		a := g.assets[p.Asset]
		if a == nil {
			return nil, fmt.Errorf("property %d: %w: %d", p.ID, ErrUnknownAsset, p.Asset)
		}
		if want := reg.properties[p.Class].Asset; a.Class != want {
			return nil, fmt.Errorf("property %d: %w: wraps %q, got %q", p.ID, ErrIncompatibleTypes, want, a.Class)
		}
	}

	g.nextID = max(doc.NextID, maxID+1)
	g.loading = false

	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reload runs every [PostLoader] in id order. Restore calls it once; call
// it again after [Graph.SetResources] so that nodes deriving pins from
// loaded resources can rebuild them.
func (g *Graph) Reload() error {
	var errs []error
	for _, n := range g.Nodes() {
		if pl, ok := n.Behavior.(PostLoader); ok {
			if err := pl.PostLoad(n); err != nil {
				errs = append(errs, fmt.Errorf("node %d (%s): %w", n.ID, n.Class, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("post-load: %w", err)
	}
	return nil
}
