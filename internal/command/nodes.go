package command

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/library"
	"github.com/roach88/graphgate/internal/ports"
	"github.com/roach88/graphgate/internal/value"
)

// Definitions is the result of list_node_definitions.
type Definitions struct {
	Count       int      `json:"count"`
	Definitions []string `json:"definitions"`
	Truncated   bool     `json:"truncated"`
	Filter      string   `json:"filter"`

	// Source is "live" when a graph answered, "static" otherwise.
	Source string `json:"source"`
}

func (d *Dispatcher) listNodeDefinitions(_ context.Context, p listDefinitionsParams) (any, error) {
	var g host.Graph
	if p.GraphIdentifier != "" {
		var err error
		if g, err = d.resolveGraph(p.graphRef); err != nil {
			return nil, err
		}
	} else {
		// With nothing open, the static table stands in for a live graph.
		g, _ = d.resolveGraph(graphRef{})
	}

	all, source := ports.Kinds(), "static"
	if g != nil {
		if live, err := g.NodeDefinitions(); err == nil && len(live) > 0 {
			all, source = live, "live"
		}
	}

	filter := strings.ToLower(p.FilterText)
	out := Definitions{Definitions: []string{}, Filter: p.FilterText, Source: source}
	for _, def := range all {
		if filter != "" && !strings.Contains(strings.ToLower(def), filter) {
			continue
		}
		if len(out.Definitions) == p.Limit {
			out.Truncated = true
			break
		}
		out.Definitions = append(out.Definitions, def)
	}
	out.Count = len(out.Definitions)
	return out, nil
}

// NodeCreated is the result of create_node and create_instance_node.
type NodeCreated struct {
	NodeID      string    `json:"node_id"`
	Definition  string    `json:"definition,omitempty"`
	ResourceURL string    `json:"resource_url,omitempty"`
	Position    []float64 `json:"position"`
	Outputs     []string  `json:"outputs,omitempty"`
	Note        string    `json:"note,omitempty"`
}

func (d *Dispatcher) createNode(_ context.Context, p createNodeParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	def := ports.Canonical(p.DefinitionID)
	live, err := g.NodeDefinitions()
	if err != nil {
		d.logger.Warn("live definitions unavailable, static kinds only", "graph", g.Identifier(), "error", err)
	}
	if err := ports.ValidateCreatable(def, live); err != nil {
		return nil, err
	}

	n, err := g.NewNode(def)
	if err != nil {
		return nil, gwerr.Host("newNode", err)
	}
	if err := place(n, p.Position); err != nil {
		return nil, err
	}
	return NodeCreated{NodeID: n.Identifier(), Definition: n.Definition(), Position: position(n)}, nil
}

func (d *Dispatcher) createInstanceNode(_ context.Context, p createInstanceParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	res := d.resolver.Resource(p.ResourceURL)
	if res == nil {
		return nil, gwerr.NotFound("Use get_library_nodes to list valid resource URLs", "Resource '%s' not found", p.ResourceURL)
	}
	n, err := g.NewInstanceNode(res)
	if err != nil {
		return nil, gwerr.Host("newInstanceNode", err)
	}
	if err := place(n, p.Position); err != nil {
		return nil, err
	}
	return NodeCreated{
		NodeID:      n.Identifier(),
		ResourceURL: p.ResourceURL,
		Position:    position(n),
		Outputs:     ports.Outputs(n),
		Note:        "Call get_node_info to find exact port IDs before connecting.",
	}, nil
}

// place moves n when a position was given.
func place(n host.Node, xy []float64) error {
	if len(xy) < 2 {
		return nil
	}
	if err := n.SetPosition(xy[0], xy[1]); err != nil {
		return gwerr.Host("setPosition", err)
	}
	return nil
}

// OutputCreated is the result of create_output_node.
type OutputCreated struct {
	NodeID     string `json:"node_id"`
	Definition string `json:"definition"`
	Usage      string `json:"usage"`
	Label      string `json:"label"`
	LabelSet   bool   `json:"label_set"`
}

func (d *Dispatcher) createOutputNode(_ context.Context, p createOutputParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	label := p.Label
	if label == "" {
		label = p.Usage
	}
	n, err := batch.NewOutput(g, label, p.Usage)
	if err != nil {
		return nil, err
	}
	if err := place(n, p.Position); err != nil {
		return nil, err
	}
	got, ok := n.Value("label", host.Annotation)
	return OutputCreated{
		NodeID:     n.Identifier(),
		Definition: host.OutputDefinition,
		Usage:      p.Usage,
		Label:      label,
		LabelSet:   ok && got == value.String(label),
	}, nil
}

func (d *Dispatcher) deleteNode(_ context.Context, p nodeRef) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	n, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}
	if err := g.DeleteNode(n); err != nil {
		return nil, gwerr.Host("deleteNode", err)
	}
	return map[string]any{"deleted": p.NodeID}, nil
}

func (d *Dispatcher) moveNode(_ context.Context, p moveNodeParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	n, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}
	if err := place(n, p.Position); err != nil {
		return nil, err
	}
	return map[string]any{"node_id": p.NodeID, "position": position(n)}, nil
}

// Duplicated is the result of duplicate_node.
type Duplicated struct {
	OriginalNodeID string    `json:"original_node_id"`
	NewNodeID      string    `json:"new_node_id"`
	Definition     string    `json:"definition"`
	Position       []float64 `json:"position"`
	CopiedValues   int       `json:"copied_values"`
}

// duplicateNode creates a node of the same kind, offset from the original,
// and copies its non-system input values. Library instances are duplicated
// from the resource they were instanced from. Connections are not copied.
func (d *Dispatcher) duplicateNode(_ context.Context, p duplicateNodeParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	src, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}

	def := src.Definition()
	var dup host.Node
	if host.IsInstance(src) {
		res := d.resolver.Resource(def)
		if res == nil {
			return nil, gwerr.NotFound("Use create_instance_node with the library resource URL",
				"Cannot duplicate library node '%s': resource '%s' not found", p.NodeID, def)
		}
		if dup, err = g.NewInstanceNode(res); err != nil {
			return nil, gwerr.Host("newInstanceNode", err)
		}
	} else {
		live, _ := g.NodeDefinitions()
		if err := ports.ValidateCreatable(def, live); err != nil {
			return nil, err
		}
		if dup, err = g.NewNode(def); err != nil {
			return nil, gwerr.Host("newNode", err)
		}
	}

	x, y := src.Position()
	if err := place(dup, []float64{x + p.Offset[0], y + p.Offset[1]}); err != nil {
		return nil, err
	}

	copied := 0
	for _, prop := range src.Properties(host.Input) {
		if ports.IsSystem(prop.ID) || prop.Connectable {
			continue
		}
		v, ok := src.Value(prop.ID, host.Input)
		if !ok {
			continue
		}
		if err := dup.SetInputValue(prop.ID, v); err != nil {
			d.logger.Warn("duplicate: value not copied", "node", p.NodeID, "property", prop.ID, "error", err)
			continue
		}
		copied++
	}

	return Duplicated{
		OriginalNodeID: p.NodeID,
		NewNodeID:      dup.Identifier(),
		Definition:     dup.Definition(),
		Position:       position(dup),
		CopiedValues:   copied,
	}, nil
}

// InputInfo describes one node input.
type InputInfo struct {
	ID            string      `json:"id"`
	Type          string      `json:"type,omitempty"`
	Value         value.Value `json:"value,omitempty"`
	ConnectedFrom []string    `json:"connected_from,omitempty"`
}

// PropertyInfo describes one output or annotation.
type PropertyInfo struct {
	ID    string      `json:"id"`
	Value value.Value `json:"value,omitempty"`
}

// NodeInfo is the result of get_node_info.
type NodeInfo struct {
	NodeID        string         `json:"node_id"`
	Definition    string         `json:"definition"`
	IsLibraryNode bool           `json:"is_library_node"`
	Position      []float64      `json:"position"`
	Inputs        []InputInfo    `json:"inputs"`
	Outputs       []PropertyInfo `json:"outputs"`
	Annotations   []PropertyInfo `json:"annotations"`
	Note          string         `json:"note"`
}

func (d *Dispatcher) getNodeInfo(_ context.Context, p nodeRef) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	n, err := findNode(g, p.NodeID)
	if err != nil {
		return nil, err
	}

	info := NodeInfo{
		NodeID:        p.NodeID,
		Definition:    n.Definition(),
		IsLibraryNode: host.IsInstance(n),
		Position:      position(n),
		Inputs:        []InputInfo{},
		Outputs:       []PropertyInfo{},
		Annotations:   []PropertyInfo{},
	}
	for _, prop := range n.Properties(host.Input) {
		if ports.IsSystem(prop.ID) {
			continue
		}
		in := InputInfo{ID: prop.ID, Type: prop.Type}
		if v, ok := n.Value(prop.ID, host.Input); ok {
			in.Value = v
		}
		for _, c := range n.Connections(prop.ID) {
			in.ConnectedFrom = append(in.ConnectedFrom, c.FromNode+"."+c.FromOutput)
		}
		info.Inputs = append(info.Inputs, in)
	}
	for _, prop := range n.Properties(host.Output) {
		info.Outputs = append(info.Outputs, PropertyInfo{ID: prop.ID})
	}
	for _, prop := range n.Properties(host.Annotation) {
		a := PropertyInfo{ID: prop.ID}
		if v, ok := n.Value(prop.ID, host.Annotation); ok {
			a.Value = v
		}
		info.Annotations = append(info.Annotations, a)
	}
	if info.IsLibraryNode {
		info.Note = "Library node: use output IDs listed above, NOT '" + ports.DefaultOutput + "'"
	}
	return info, nil
}

// LibraryNodes is the result of get_library_nodes.
type LibraryNodes struct {
	Count     int             `json:"count"`
	Nodes     []library.Entry `json:"nodes"`
	Truncated bool            `json:"truncated"`
	Filter    string          `json:"filter"`
}

func (d *Dispatcher) getLibraryNodes(_ context.Context, p libraryNodesParams) (any, error) {
	entries, truncated := d.resolver.List(p.FilterText, p.Limit)
	if entries == nil {
		entries = []library.Entry{}
	}
	return LibraryNodes{
		Count:     len(entries),
		Nodes:     entries,
		Truncated: truncated,
		Filter:    p.FilterText,
	}, nil
}

// availableProperties lists input and annotation ids of n, sorted.
func availableProperties(n host.Node) []string {
	ids := append(host.IDs(n, host.Input), host.IDs(n, host.Annotation)...)
	slices.Sort(ids)
	return slices.Compact(ids)
}
