package simhost

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/value"
)

// graph implements host.Graph. Library templates are graphs too; their
// template inputs and outputs shape the nodes instanced from them.
type graph struct {
	pkg     *pkg
	id      string
	deleted bool
	nodes   []*node
	values  map[string]value.Value

	templateInputs  []host.Property
	templateOutputs []string
}

var _ host.Graph = (*graph)(nil)

func (g *graph) Identifier() string { return g.id }
func (g *graph) ClassName() string  { return host.ClassCompGraph }

func (g *graph) URL() string {
	return fmt.Sprintf("pkg:///%s?dependency=%d", g.id, g.pkg.index)
}

func (g *graph) Delete() error {
	if g.deleted {
		return fmt.Errorf("graph %q already deleted", g.id)
	}
	g.deleted = true
	if g.pkg.host.current == g {
		g.pkg.host.current = nil
	}
	return nil
}

func (g *graph) SetIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("empty identifier")
	}
	g.id = g.pkg.uniqueID(id, g)
	return nil
}

func (g *graph) NodeDefinitions() ([]string, error) {
	return slices.Clone(g.pkg.host.defOrder), nil
}

func (g *graph) Nodes() []host.Node {
	out := make([]host.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

func (g *graph) Node(id string) host.Node {
	if n := g.node(id); n != nil {
		return n
	}
	return nil
}

func (g *graph) node(id string) *node {
	for _, n := range g.nodes {
		if n.id == id {
			return n
		}
	}
	return nil
}

func (g *graph) NewNode(definition string) (host.Node, error) {
	h := g.pkg.host
	def, ok := h.definitions[definition]
	if !ok {
		h.unknownKinds = append(h.unknownKinds, definition)
		return nil, fmt.Errorf("newNode('%s') failed: unknown definition", definition)
	}

	inputs := append(slices.Clone(h.system), def.inputs...)
	outputs := make([]host.Property, 0, len(def.outputs))
	for _, id := range def.outputs {
		outputs = append(outputs, host.Property{ID: id, Type: "image", Category: host.Output})
	}
	return g.add(definition, definition, inputs, outputs), nil
}

func (g *graph) NewInstanceNode(r host.Resource) (host.Node, error) {
	src, ok := r.(*graph)
	if !ok || src == nil {
		return nil, fmt.Errorf("newInstanceNode failed: not a graph resource")
	}
	if src.deleted {
		return nil, fmt.Errorf("newInstanceNode failed: resource %q was deleted", src.id)
	}
	h := g.pkg.host

	inputs := append(slices.Clone(h.system), src.templateInputs...)
	outputs := make([]host.Property, 0, len(src.templateOutputs))
	for _, id := range src.templateOutputs {
		outputs = append(outputs, host.Property{ID: id, Type: "image", Category: host.Output})
	}
	return g.add(src.URL(), src.URL(), inputs, outputs), nil
}

func (g *graph) add(definition, defaultsOwner string, inputs, outputs []host.Property) *node {
	h := g.pkg.host
	n := &node{
		graph:       g,
		id:          h.newNodeID(),
		definition:  definition,
		inputs:      inputs,
		outputs:     outputs,
		annotations: slices.Clone(h.annotations),
		values:      make(map[string]value.Value),
		links:       make(map[string][]host.Connection),
	}
	for _, p := range inputs {
		owner := defaultsOwner
		if strings.HasPrefix(p.ID, "$") {
			owner = "$system"
		}
		if v, ok := h.initial(owner, p); ok {
			n.values[p.ID] = v
		}
	}
	for _, p := range n.annotations {
		if v, ok := h.initial("$annotation", p); ok {
			n.values[annotationKey(p.ID)] = v
		}
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *graph) DeleteNode(hn host.Node) error {
	n, ok := hn.(*node)
	if !ok || n.graph != g {
		return fmt.Errorf("deleteNode failed: node not in graph %q", g.id)
	}
	idx := slices.Index(g.nodes, n)
	if idx < 0 {
		return fmt.Errorf("deleteNode failed: node %q already deleted", n.id)
	}
	g.nodes = slices.Delete(g.nodes, idx, idx+1)

	for _, other := range g.nodes {
		for input, links := range other.links {
			other.links[input] = slices.DeleteFunc(links, func(c host.Connection) bool {
				return c.FromNode == n.id
			})
		}
	}
	return nil
}

func (g *graph) SetInputValue(id string, v value.Value) error {
	for _, p := range g.pkg.host.system {
		if p.ID == id {
			if !accepts(p, v) {
				return mismatch(p, v)
			}
			g.values[id] = v
			return nil
		}
	}
	return fmt.Errorf("graph input %q not found", id)
}

// Input returns a graph-level input value.
func (g *graph) Input(id string) value.Value {
	return g.values[id]
}

// initial returns the starting value of a property: its declared default
// boxed to the property type, or the type's zero value.
func (h *Host) initial(owner string, p host.Property) (value.Value, bool) {
	t, ok := primitive(p.Type)
	if !ok {
		return nil, false
	}
	raw, has := h.defaults[owner+"/"+p.ID]
	if !has {
		return value.Zero(t), true
	}
	v, err := value.Box(t, raw)
	if err != nil {
		return value.Zero(t), true
	}
	return v, true
}

// primitive maps a host type id to the value type the host stores for it.
// Enums store Int. Image inputs hold no value.
func primitive(typeID string) (value.Type, bool) {
	if typeID == "image" || typeID == "" {
		return "", false
	}
	if strings.Contains(typeID, "::") {
		return value.TypeInt, true
	}
	t, err := value.ParseType(typeID)
	if err != nil {
		return "", false
	}
	return t, true
}

// accepts is the strict type check the real host silently skips.
func accepts(p host.Property, v value.Value) bool {
	if v == nil {
		return false
	}
	t, ok := primitive(p.Type)
	if !ok {
		return false
	}
	return v.Type() == t
}

func mismatch(p host.Property, v value.Value) error {
	got := "nil"
	if v != nil {
		got = string(v.Type())
	}
	return fmt.Errorf("property %q has type %s, refusing %s value", p.ID, p.Type, got)
}
