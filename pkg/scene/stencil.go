package scene

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownStencilKind is returned by [ParseStencilKind] for unrecognized names.
var ErrUnknownStencilKind = errors.New("unknown stencil kind")

// StencilKind identifies the shape of a stencil volume.
type StencilKind int

const (
	// StencilQuad is a flat, one-sided rectangle. Its volume is the half
	// space behind the quad's facing direction (local -Z).
	StencilQuad StencilKind = iota
	// StencilBox is a unit cube in local space.
	StencilBox
	// StencilModel is an arbitrary mesh whose volume is approximated by its
	// local bounds.
	StencilModel
)

// StencilKinds lists every stencil kind in enumeration order.
var StencilKinds = []StencilKind{StencilQuad, StencilBox, StencilModel}

var stencilKindNames = map[StencilKind]string{
	StencilQuad:  "quad",
	StencilBox:   "box",
	StencilModel: "model",
}

func (k StencilKind) String() string {
	if s, ok := stencilKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StencilKind(%d)", int(k))
}

// ParseStencilKind converts "quad", "box" or "model" (case-insensitive).
func ParseStencilKind(s string) (StencilKind, error) {
	for k, name := range stencilKindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStencilKind, s)
}

// Stencil is a registered stencil volume.
type Stencil struct {
	ID        int
	Kind      StencilKind
	Transform Transform
	// Mesh is the model mesh for StencilModel, zero otherwise.
	Mesh Handle
	// Bounds is the local-space volume used for StencilModel inside tests.
	Bounds AABB
}

// StencilEvent reports that a stencil was added, moved or removed.
type StencilEvent struct {
	Kind    StencilKind
	ID      int
	Removed bool
}

// StencilRegistry enumerates the stencil volumes currently in the scene.
type StencilRegistry interface {
	// StencilIDs returns the ids of all stencils of kind in ascending order.
	StencilIDs(kind StencilKind) []int
	// Stencil returns the stencil with the given kind and id.
	Stencil(kind StencilKind, id int) (Stencil, bool)
	// Subscribe registers fn for change notifications. The returned
	// function removes the subscription.
	Subscribe(fn func(StencilEvent)) (cancel func())
}

// MemoryStencils is an in-memory [StencilRegistry].
// It is not safe for concurrent use.
type MemoryStencils struct {
	stencils     map[StencilKind]map[int]Stencil
	nextID       int
	listeners    map[int]func(StencilEvent)
	nextListener int
}

// NewMemoryStencils creates an empty registry.
func NewMemoryStencils() *MemoryStencils {
	return &MemoryStencils{
		stencils:  make(map[StencilKind]map[int]Stencil),
		listeners: make(map[int]func(StencilEvent)),
	}
}

// Add registers s under a freshly assigned id and returns that id.
func (m *MemoryStencils) Add(s Stencil) int {
	m.nextID++
	s.ID = m.nextID
	if m.stencils[s.Kind] == nil {
		m.stencils[s.Kind] = make(map[int]Stencil)
	}
	m.stencils[s.Kind][s.ID] = s
	m.notify(StencilEvent{Kind: s.Kind, ID: s.ID})
	return s.ID
}

// Update replaces an existing stencil. It returns false if s.ID is unknown.
func (m *MemoryStencils) Update(s Stencil) bool {
	if _, ok := m.stencils[s.Kind][s.ID]; !ok {
		return false
	}
	m.stencils[s.Kind][s.ID] = s
	m.notify(StencilEvent{Kind: s.Kind, ID: s.ID})
	return true
}

// Remove deletes a stencil. It returns false if it was not registered.
func (m *MemoryStencils) Remove(kind StencilKind, id int) bool {
	if _, ok := m.stencils[kind][id]; !ok {
		return false
	}
	delete(m.stencils[kind], id)
	m.notify(StencilEvent{Kind: kind, ID: id, Removed: true})
	return true
}

// StencilIDs implements [StencilRegistry].
func (m *MemoryStencils) StencilIDs(kind StencilKind) []int {
	return slices.Sorted(maps.Keys(m.stencils[kind]))
}

// Stencil implements [StencilRegistry].
func (m *MemoryStencils) Stencil(kind StencilKind, id int) (Stencil, bool) {
	s, ok := m.stencils[kind][id]
	return s, ok
}

// Subscribe implements [StencilRegistry].
func (m *MemoryStencils) Subscribe(fn func(StencilEvent)) func() {
	m.nextListener++
	key := m.nextListener
	m.listeners[key] = fn
	return func() { delete(m.listeners, key) }
}

func (m *MemoryStencils) notify(ev StencilEvent) {
	for _, key := range slices.Sorted(maps.Keys(m.listeners)) {
		m.listeners[key](ev)
	}
}

var _ StencilRegistry = (*MemoryStencils)(nil)
