package nodegraph

import "fmt"

// Op is the kind of change an Event reports.
type Op int

const (
	Created Op = iota
	Deleted
	Modified
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Entity is the kind of graph entity an Event refers to.
type Entity int

const (
	EntityNode Entity = iota
	EntityPin
	EntityLink
	EntityProperty
	EntityAsset
)

func (e Entity) String() string {
	switch e {
	case EntityNode:
		return "node"
	case EntityPin:
		return "pin"
	case EntityLink:
		return "link"
	case EntityProperty:
		return "property"
	case EntityAsset:
		return "asset"
	}
	return fmt.Sprintf("Entity(%d)", int(e))
}

// Event describes one structural change. Events are published only after
// the mutation has succeeded.
type Event struct {
	Op     Op
	Entity Entity
	ID     ID
}

func (e Event) String() string { return fmt.Sprintf("%s %s %d", e.Entity, e.Op, e.ID) }

// Listener receives graph events.
type Listener func(Event)

// Subscribe registers fn for all future events. Listeners run
// synchronously in registration order. The returned function removes the
// subscription.
func (g *Graph) Subscribe(fn Listener) (cancel func()) {
	g.nextListener++
	key := g.nextListener
	g.listeners = append(g.listeners, subscription{key: key, fn: fn})
	return func() {
		for i, s := range g.listeners {
			if s.key == key {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

type subscription struct {
	key int
	fn  Listener
}

func (g *Graph) publish(op Op, entity Entity, id ID) {
	if g.loading {
		return
	}
	ev := Event{Op: op, Entity: entity, ID: id}
	g.logger.Debug("graph event", "entity", entity, "op", op, "id", id)
	for _, s := range g.listeners {
		s.fn(ev)
	}
}
