// Package docs serves the embedded node and workflow reference behind the
// list_documentation tool. The reference is static and read-only; it never
// touches the host.
package docs

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/ports"
)

//go:embed docs.yaml
var docsYAML []byte

// Port documents one node port.
type Port struct {
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
}

// Param documents one node parameter.
type Param struct {
	Type        string `yaml:"type" json:"type"`
	Default     any    `yaml:"default" json:"default,omitempty"`
	Description string `yaml:"description" json:"description"`
}

// Node documents an atomic or library node.
type Node struct {
	DefinitionID string           `yaml:"definition_id" json:"definition_id,omitempty"`
	Resource     string           `yaml:"resource" json:"resource,omitempty"`
	DisplayName  string           `yaml:"display_name" json:"display_name"`
	Category     string           `yaml:"category" json:"category"`
	Description  string           `yaml:"description" json:"description"`
	Inputs       map[string]Port  `yaml:"inputs" json:"inputs,omitempty"`
	Outputs      map[string]Port  `yaml:"outputs" json:"outputs,omitempty"`
	Parameters   map[string]Param `yaml:"parameters" json:"parameters,omitempty"`
	Tips         []string         `yaml:"tips" json:"tips,omitempty"`
}

// BlendMode documents one blendingmode value.
type BlendMode struct {
	Value       int    `yaml:"value" json:"value"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Output documents one output usage.
type Output struct {
	ColorSpace  string `yaml:"color_space" json:"color_space"`
	Description string `yaml:"description" json:"description"`
}

// Base is the whole reference.
type Base struct {
	Categories   map[string]string `yaml:"categories"`
	AtomicNodes  map[string]Node   `yaml:"atomic_nodes"`
	LibraryNodes map[string]Node   `yaml:"library_nodes"`
	BlendModes   []BlendMode       `yaml:"blend_modes"`
	PBROutputs   map[string]Output `yaml:"pbr_outputs"`
	Workflow     []string          `yaml:"workflow"`
}

// Parse decodes a reference document.
func Parse(data []byte) (*Base, error) {
	var b Base
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse documentation: %w", err)
	}
	return &b, nil
}

var (
	loadOnce sync.Once
	loaded   *Base
	loadErr  error
)

// Load returns the embedded reference, parsed once.
func Load() (*Base, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(docsYAML)
	})
	return loaded, loadErr
}

// Query selects part of the reference.
//
// Action "categories" lists the categories; action "search" looks for
// Search across every node. Otherwise NodeName selects a single node (exact
// key first, then partial matches) and Category a whole section, optionally
// narrowed by Filter. An empty Category means "all".
type Query struct {
	Category string `json:"category,omitempty" jsonschema:"section to return, or all"`
	Filter   string `json:"filter_text,omitempty" jsonschema:"case-insensitive substring filter"`
	NodeName string `json:"node_name,omitempty" jsonschema:"a single node to look up"`
	Action   string `json:"action,omitempty" jsonschema:"categories or search"`
	Search   string `json:"query,omitempty" jsonschema:"search text for action=search"`
}

// Lookup answers q.
func (b *Base) Lookup(q Query) (map[string]any, error) {
	switch strings.ToLower(strings.TrimSpace(q.Action)) {
	case "":
	case "categories":
		return map[string]any{"categories": b.Categories}, nil
	case "search":
		if strings.TrimSpace(q.Search) == "" {
			return nil, gwerr.NotFound("pass query=<text>", "search needs a query")
		}
		return map[string]any{
			"query":         q.Search,
			"atomic_nodes":  filterNodes(b.AtomicNodes, q.Search),
			"library_nodes": filterNodes(b.LibraryNodes, q.Search),
		}, nil
	default:
		e := gwerr.NotFound("leave action empty to browse by category", "unknown action '%s'", q.Action)
		e.Valid = []string{"categories", "search"}
		return nil, e
	}

	if q.NodeName != "" {
		return b.node(q.NodeName)
	}

	cat := strings.ToLower(strings.TrimSpace(q.Category))
	switch cat {
	case "", "all":
		return map[string]any{
			"categories":     b.Categories,
			"atomic_nodes":   filterNodes(b.AtomicNodes, q.Filter),
			"library_nodes":  filterNodes(b.LibraryNodes, q.Filter),
			"blend_modes":    b.BlendModes,
			"port_reference": portReference(q.Filter),
			"pbr_outputs":    b.PBROutputs,
			"workflow":       b.Workflow,
		}, nil
	case "atomic_nodes", "atomic":
		nodes := filterNodes(b.AtomicNodes, q.Filter)
		return map[string]any{"category": "atomic_nodes", "count": len(nodes), "data": nodes}, nil
	case "library_nodes", "library":
		nodes := filterNodes(b.LibraryNodes, q.Filter)
		return map[string]any{"category": "library_nodes", "count": len(nodes), "data": nodes}, nil
	case "blend_modes", "blending":
		return map[string]any{"category": "blend_modes", "data": b.BlendModes, "names": ports.BlendModes()}, nil
	case "port_reference", "ports":
		return map[string]any{"category": "port_reference", "data": portReference(q.Filter)}, nil
	case "pbr_outputs", "pbr", "outputs":
		return map[string]any{"category": "pbr_outputs", "data": b.PBROutputs}, nil
	case "workflow", "rules":
		return map[string]any{"category": "workflow", "data": b.Workflow}, nil
	}

	valid := make([]string, 0, len(b.Categories)+1)
	for k := range b.Categories {
		valid = append(valid, k)
	}
	valid = append(valid, "all")
	sort.Strings(valid)
	e := gwerr.NotFound("use action=categories to list them", "unknown category '%s'", q.Category)
	e.Valid = valid
	return nil, e
}

func (b *Base) node(name string) (map[string]any, error) {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	if n, ok := b.AtomicNodes[key]; ok {
		return map[string]any{"type": "atomic_node", "name": key, "data": n}, nil
	}
	if n, ok := b.LibraryNodes[key]; ok {
		return map[string]any{"type": "library_node", "name": key, "data": n}, nil
	}

	fold := cases.Fold()
	needle := fold.String(key)
	matches := map[string]Node{}
	for _, set := range []map[string]Node{b.AtomicNodes, b.LibraryNodes} {
		for k, n := range set {
			if strings.Contains(fold.String(k), needle) || strings.Contains(fold.String(n.DisplayName), needle) {
				matches[k] = n
			}
		}
	}
	if len(matches) == 0 {
		return nil, gwerr.NotFound("use category=atomic_nodes or action=search", "node '%s' not documented", name)
	}
	return map[string]any{"type": "node_search_results", "query": name, "data": matches}, nil
}

// filterNodes keeps nodes whose key or text contains text, case-folded.
func filterNodes(nodes map[string]Node, text string) map[string]Node {
	if strings.TrimSpace(text) == "" {
		return nodes
	}
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(text))
	out := make(map[string]Node)
	for k, n := range nodes {
		if strings.Contains(fold.String(k), needle) || strings.Contains(fold.String(n.text()), needle) {
			out[k] = n
		}
	}
	return out
}

func (n Node) text() string {
	var sb strings.Builder
	for _, s := range []string{n.DefinitionID, n.Resource, n.DisplayName, n.Category, n.Description} {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	for id, p := range n.Inputs {
		fmt.Fprintf(&sb, "%s %s\n", id, p.Description)
	}
	for id, p := range n.Outputs {
		fmt.Fprintf(&sb, "%s %s\n", id, p.Description)
	}
	for id, p := range n.Parameters {
		fmt.Fprintf(&sb, "%s %s\n", id, p.Description)
	}
	for _, tip := range n.Tips {
		sb.WriteString(tip)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// portReference is built from the static port table so it cannot drift
// from what connect validation enforces.
func portReference(filter string) map[string]ports.Spec {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(filter))
	out := make(map[string]ports.Spec)
	for _, kind := range ports.Kinds() {
		short := ports.ShortName(kind)
		if needle != "" && !strings.Contains(fold.String(short), needle) {
			continue
		}
		spec, _ := ports.Static(kind)
		out[short] = spec
	}
	return out
}
