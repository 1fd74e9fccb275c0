// Package host declares the boundary to the graph-editing host API.
//
// The host is an external collaborator: it is not thread-safe and must only
// be called from the bridge's owning context. Nothing in this package
// enforces that; callers reach the host exclusively through bridge.RunOnOwner.
//
// Lookups that can miss return nil rather than an error, mirroring the host
// API. Mutations return an error when the host refuses them.
package host

import (
	"strings"

	"github.com/roach88/graphgate/internal/value"
)

// ClassCompGraph is the class name of compositing graph resources.
// Only resources of this class are graphs or library templates.
const ClassCompGraph = "SDSBSCompGraph"

// OutputDefinition is the kind of a graph output marker node.
const OutputDefinition = "sbs::compositing::output"

// Category selects a node property group.
type Category int

const (
	Input Category = iota + 1
	Output
	Annotation
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Input:
		return "input"
	case Output:
		return "output"
	case Annotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// Property describes one node property.
type Property struct {
	ID string

	// Type is the host's type id: a primitive ("float", "int2",
	// "colorrgba") or a namespaced enum ("sbs::compositing::blendingmode").
	Type string

	Category Category

	// Connectable marks inputs that accept a connection.
	Connectable bool
}

// Connection is a link from one node's output into another node's input.
type Connection struct {
	FromNode   string
	FromOutput string
	ToNode     string
	ToInput    string
}

// Host is the root of the host API.
type Host interface {
	Version() string

	// Packages returns every loaded package, user and library.
	Packages() []Package

	// UserPackages returns packages opened or created by the user.
	UserPackages() []Package

	NewUserPackage() (Package, error)

	// CurrentGraph returns the graph focused in the editor, or nil.
	CurrentGraph() Graph

	OpenInEditor(r Resource) error

	// SavePackage writes p to path, or to its own file path when path is "".
	SavePackage(p Package, path string) error
}

// Package is a container of resources.
type Package interface {
	// FilePath is empty for unsaved packages.
	FilePath() string

	// Children lists resources. Some packages reject one traversal mode.
	Children(recursive bool) ([]Resource, error)

	// FindResource returns the resource with the given URL, or nil.
	FindResource(url string) Resource

	// NewGraph creates an empty compositing graph.
	NewGraph() (Graph, error)
}

// Resource is an addressable item inside a package.
type Resource interface {
	Identifier() string
	ClassName() string
	URL() string
	Delete() error
}

// Graph is an editable compositing graph.
type Graph interface {
	Resource

	SetIdentifier(id string) error

	// NodeDefinitions lists the kinds this graph can create with NewNode.
	NodeDefinitions() ([]string, error)

	Nodes() []Node

	// Node returns the node with the given id, or nil.
	Node(id string) Node

	// NewNode creates an atomic node. The real host hangs on unknown kinds,
	// so callers must validate against NodeDefinitions first.
	NewNode(definition string) (Node, error)

	NewInstanceNode(r Resource) (Node, error)

	DeleteNode(n Node) error

	// SetInputValue sets a graph-level input such as "$outputsize".
	SetInputValue(id string, v value.Value) error
}

// Node is one node instance inside a graph.
type Node interface {
	Identifier() string

	// Definition is the node kind, or the resource URL for library instances.
	Definition() string

	Position() (x, y float64)
	SetPosition(x, y float64) error

	Properties(c Category) []Property

	// Value returns the current value of a property.
	Value(id string, c Category) (value.Value, bool)

	SetInputValue(id string, v value.Value) error
	SetAnnotationValue(id string, v value.Value) error

	// Connections lists the links feeding the given input.
	Connections(inputID string) []Connection

	Connect(fromOutput string, to Node, toInput string) error

	// Disconnect removes every link feeding the given input.
	Disconnect(inputID string) error
}

// Find returns the property with the given id, or false.
func Find(n Node, id string, c Category) (Property, bool) {
	for _, p := range n.Properties(c) {
		if p.ID == id {
			return p, true
		}
	}
	return Property{}, false
}

// IDs lists property ids of category c.
func IDs(n Node, c Category) []string {
	props := n.Properties(c)
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids
}

// IsInstance reports whether a node was instanced from a library resource.
func IsInstance(n Node) bool {
	def := n.Definition()
	return def == "" || def == "unknown" || strings.HasPrefix(def, "pkg://") || strings.Contains(def, "?dependency=")
}
