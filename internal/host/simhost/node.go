package simhost

import (
	"fmt"
	"slices"

	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/value"
)

// node implements host.Node.
type node struct {
	graph       *graph
	id          string
	definition  string
	x, y        float64
	inputs      []host.Property
	outputs     []host.Property
	annotations []host.Property
	values      map[string]value.Value
	links       map[string][]host.Connection // keyed by input id
}

var _ host.Node = (*node)(nil)

func annotationKey(id string) string { return "@" + id }

func (n *node) Identifier() string { return n.id }
func (n *node) Definition() string { return n.definition }

func (n *node) Position() (float64, float64) { return n.x, n.y }

func (n *node) SetPosition(x, y float64) error {
	n.x, n.y = x, y
	return nil
}

func (n *node) Properties(c host.Category) []host.Property {
	switch c {
	case host.Input:
		return slices.Clone(n.inputs)
	case host.Output:
		return slices.Clone(n.outputs)
	case host.Annotation:
		return slices.Clone(n.annotations)
	}
	return nil
}

func (n *node) Value(id string, c host.Category) (value.Value, bool) {
	switch c {
	case host.Input:
		v, ok := n.values[id]
		return v, ok
	case host.Annotation:
		v, ok := n.values[annotationKey(id)]
		return v, ok
	}
	return nil, false
}

func (n *node) SetInputValue(id string, v value.Value) error {
	p, ok := find(n.inputs, id)
	if !ok {
		return fmt.Errorf("input property %q not found on node %q", id, n.id)
	}
	if !accepts(p, v) {
		return mismatch(p, v)
	}
	n.values[id] = v
	return nil
}

func (n *node) SetAnnotationValue(id string, v value.Value) error {
	p, ok := find(n.annotations, id)
	if !ok {
		return fmt.Errorf("annotation %q not found on node %q", id, n.id)
	}
	if !accepts(p, v) {
		return mismatch(p, v)
	}
	n.values[annotationKey(id)] = v
	return nil
}

func (n *node) Connections(inputID string) []host.Connection {
	return slices.Clone(n.links[inputID])
}

func (n *node) Connect(fromOutput string, to host.Node, toInput string) error {
	dst, ok := to.(*node)
	if !ok || dst.graph != n.graph {
		return fmt.Errorf("connection failed: destination not in graph %q", n.graph.id)
	}
	if n.graph.node(n.id) == nil || n.graph.node(dst.id) == nil {
		return fmt.Errorf("connection failed: node deleted")
	}
	if _, ok := find(n.outputs, fromOutput); !ok {
		return fmt.Errorf("connection failed: %s.%s is not an output", n.id, fromOutput)
	}
	p, ok := find(dst.inputs, toInput)
	if !ok || !p.Connectable {
		return fmt.Errorf("connection failed: %s.%s is not a connectable input", dst.id, toInput)
	}

	// An input accepts one link; a new one replaces the old.
	dst.links[toInput] = []host.Connection{{
		FromNode:   n.id,
		FromOutput: fromOutput,
		ToNode:     dst.id,
		ToInput:    toInput,
	}}
	return nil
}

func (n *node) Disconnect(inputID string) error {
	if _, ok := find(n.inputs, inputID); !ok {
		return fmt.Errorf("input property %q not found on node %q", inputID, n.id)
	}
	delete(n.links, inputID)
	return nil
}

func find(props []host.Property, id string) (host.Property, bool) {
	for _, p := range props {
		if p.ID == id {
			return p, true
		}
	}
	return host.Property{}, false
}
