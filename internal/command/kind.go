package command

import (
	"slices"
)

// Kind names a command on the wire.
type Kind string

// Scene.
const (
	GetSceneInfo  Kind = "get_scene_info"
	CreatePackage Kind = "create_package"
	CreateGraph   Kind = "create_graph"
	DeleteGraph   Kind = "delete_graph"
	OpenGraph     Kind = "open_graph"
	GetGraphInfo  Kind = "get_graph_info"
	SavePackage   Kind = "save_package"
	GraphSnapshot Kind = "graph_snapshot"
	Diagnostic    Kind = "diagnostic"
)

// Nodes.
const (
	ListNodeDefinitions Kind = "list_node_definitions"
	CreateNode          Kind = "create_node"
	CreateInstanceNode  Kind = "create_instance_node"
	CreateOutputNode    Kind = "create_output_node"
	DeleteNode          Kind = "delete_node"
	MoveNode            Kind = "move_node"
	DuplicateNode       Kind = "duplicate_node"
	GetNodeInfo         Kind = "get_node_info"
	GetLibraryNodes     Kind = "get_library_nodes"
)

// Connections and parameters.
const (
	ConnectNodes       Kind = "connect_nodes"
	DisconnectNodes    Kind = "disconnect_nodes"
	SmartConnect       Kind = "smart_connect"
	SetParameter       Kind = "set_parameter"
	SetGraphOutputSize Kind = "set_graph_output_size"
)

// Batch builds and recipes.
const (
	CreateBatchGraph    Kind = "create_batch_graph"
	BuildMaterialGraph  Kind = "build_material_graph"
	BuildHeightmapGraph Kind = "build_heightmap_graph"
	ApplyRecipe         Kind = "apply_recipe"
	ListRecipes         Kind = "list_recipes"
	GetRecipeInfo       Kind = "get_recipe_info"
)

var kinds = []Kind{
	GetSceneInfo, CreatePackage, CreateGraph, DeleteGraph, OpenGraph,
	GetGraphInfo, SavePackage, GraphSnapshot, Diagnostic,
	ListNodeDefinitions, CreateNode, CreateInstanceNode, CreateOutputNode,
	DeleteNode, MoveNode, DuplicateNode, GetNodeInfo, GetLibraryNodes,
	ConnectNodes, DisconnectNodes, SmartConnect,
	SetParameter, SetGraphOutputSize,
	CreateBatchGraph, BuildMaterialGraph, BuildHeightmapGraph, ApplyRecipe,
	ListRecipes, GetRecipeInfo,
}

// Kinds lists every command kind, sorted.
func Kinds() []Kind {
	out := slices.Clone(kinds)
	slices.Sort(out)
	return out
}

// Names lists every command kind as a string, sorted.
func Names() []string {
	out := make([]string, 0, len(kinds))
	for _, k := range Kinds() {
		out = append(out, string(k))
	}
	return out
}

// Valid reports whether k is a known command kind.
func (k Kind) Valid() bool {
	return slices.Contains(kinds, k)
}

// Mutates reports whether k changes host state. Read-only commands are
// safe to retry.
func (k Kind) Mutates() bool {
	switch k {
	case GetSceneInfo, GetGraphInfo, GraphSnapshot, Diagnostic,
		ListNodeDefinitions, GetNodeInfo, GetLibraryNodes,
		ListRecipes, GetRecipeInfo:
		return false
	}
	return true
}

var descriptions = map[Kind]string{
	GetSceneInfo:        "List loaded packages and graphs and the focused graph.",
	CreatePackage:       "Create a new empty user package.",
	CreateGraph:         "Create a compositing graph in a user package.",
	DeleteGraph:         "Delete a graph from its package.",
	OpenGraph:           "Focus a graph in the editor.",
	GetGraphInfo:        "Describe a graph with all its nodes and connections.",
	SavePackage:         "Save a package to disk.",
	GraphSnapshot:       "Compact listing of a graph's nodes and wiring.",
	Diagnostic:          "Report host reachability, version and gateway state.",
	ListNodeDefinitions: "List the atomic node definitions the host can create.",
	CreateNode:          "Create an atomic node, validated before creation.",
	CreateInstanceNode:  "Instance a library graph (noises, patterns, filters) by resource URL or keyword.",
	CreateOutputNode:    "Create an output node with a usage tag such as baseColor or height.",
	DeleteNode:          "Delete a node.",
	MoveNode:            "Move a node to a new position.",
	DuplicateNode:       "Create a copy of a node with the same definition or resource.",
	GetNodeInfo:         "Describe a node's properties, values and connections.",
	GetLibraryNodes:     "Search the loaded libraries for instanceable graphs.",
	ConnectNodes:        "Connect an output port to an input port, validating both.",
	DisconnectNodes:     "Remove every connection into a node input.",
	SmartConnect:        "Connect two nodes using their default ports.",
	SetParameter:        "Set an input or annotation value, coercing it to the property type.",
	SetGraphOutputSize:  "Set a graph's output resolution as log2 width and height.",
	CreateBatchGraph:    "Create a whole graph from node and connection lists in one call.",
	BuildMaterialGraph:  "Build a complete PBR material graph from a named recipe.",
	BuildHeightmapGraph: "Build a heightmap-only graph from a parametric style.",
	ApplyRecipe:         "Add a recipe's nodes and connections to an existing graph.",
	ListRecipes:         "List material recipes and heightmap styles.",
	GetRecipeInfo:       "Describe one recipe or heightmap style.",
}

// Description is a one-line summary of what k does.
func (k Kind) Description() string {
	return descriptions[k]
}
