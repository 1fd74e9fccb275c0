package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/ports"
)

// GraphSummary is one graph in a scene listing.
type GraphSummary struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	NodeCount  int    `json:"node_count"`
}

// PackageSummary is one user package in a scene listing.
type PackageSummary struct {
	FilePath string         `json:"file_path"`
	Graphs   []GraphSummary `json:"graphs"`
	Error    string         `json:"error,omitempty"`
}

// SceneInfo is the result of get_scene_info.
type SceneInfo struct {
	Packages              []PackageSummary `json:"packages"`
	PackageCount          int              `json:"package_count"`
	CurrentGraph          string           `json:"current_graph"`
	CurrentGraphNodeCount int              `json:"current_graph_node_count"`
	HostVersion           string           `json:"host_version"`
	GatewayVersion        string           `json:"gateway_version"`
}

func (d *Dispatcher) getSceneInfo(_ context.Context, _ noParams) (any, error) {
	info := SceneInfo{
		Packages:       []PackageSummary{},
		HostVersion:    d.host.Version(),
		GatewayVersion: d.version,
	}
	for _, p := range d.host.UserPackages() {
		s := PackageSummary{FilePath: p.FilePath(), Graphs: []GraphSummary{}}
		children, err := p.Children(false)
		if err != nil {
			s.Error = err.Error()
		}
		for _, r := range children {
			gs := GraphSummary{Identifier: r.Identifier(), Type: r.ClassName()}
			if g, ok := r.(host.Graph); ok {
				gs.NodeCount = len(g.Nodes())
			}
			s.Graphs = append(s.Graphs, gs)
		}
		info.Packages = append(info.Packages, s)
	}
	info.PackageCount = len(info.Packages)

	if g := d.host.CurrentGraph(); g != nil {
		info.CurrentGraph = g.Identifier()
		info.CurrentGraphNodeCount = len(g.Nodes())
	}
	return info, nil
}

func (d *Dispatcher) createPackage(_ context.Context, p createPackageParams) (any, error) {
	pkg, err := d.host.NewUserPackage()
	if err != nil {
		return nil, gwerr.Host("newUserPackage", err)
	}
	msg := "New package created. Use save_package to save it."
	if p.FilePath != "" {
		if err := d.host.SavePackage(pkg, p.FilePath); err != nil {
			return nil, gwerr.Host("savePackage", err)
		}
		msg = "New package created and saved."
	}
	return map[string]any{
		"file_path": pkg.FilePath(),
		"message":   msg,
	}, nil
}

// GraphCreated is the result of create_graph.
type GraphCreated struct {
	Identifier    string `json:"identifier"`
	RequestedName string `json:"requested_name"`
	SanitizedName string `json:"sanitized_name"`
	Type          string `json:"type"`
	Package       string `json:"package"`
}

func (d *Dispatcher) createGraph(_ context.Context, p createGraphParams) (any, error) {
	name := SanitizeIdentifier(p.GraphName)
	pkg, err := d.resolvePackage(p.packageRef)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(pkg, name)
	if err != nil {
		return nil, err
	}
	return GraphCreated{
		Identifier:    g.Identifier(),
		RequestedName: p.GraphName,
		SanitizedName: name,
		Type:          g.ClassName(),
		Package:       pkg.FilePath(),
	}, nil
}

func newGraph(pkg host.Package, name string) (host.Graph, error) {
	g, err := pkg.NewGraph()
	if err != nil {
		return nil, gwerr.Host("newGraph", err)
	}
	if err := g.SetIdentifier(name); err != nil {
		return nil, gwerr.Host("setIdentifier", err)
	}
	return g, nil
}

func (d *Dispatcher) deleteGraph(_ context.Context, p deleteGraphParams) (any, error) {
	pkg, err := d.resolvePackage(packageRef{PackageIndex: p.PackageIndex})
	if err != nil {
		return nil, err
	}
	for _, g := range graphs(pkg) {
		if g.Identifier() != p.GraphIdentifier {
			continue
		}
		if err := g.Delete(); err != nil {
			return nil, gwerr.Host("delete", err)
		}
		return map[string]any{"deleted": p.GraphIdentifier}, nil
	}
	return nil, gwerr.NotFound("Use get_scene_info to list graphs", "Graph '%s' not found", p.GraphIdentifier)
}

func (d *Dispatcher) openGraph(_ context.Context, p openGraphParams) (any, error) {
	g, err := d.resolveGraph(graphRef(p))
	if err != nil {
		return nil, err
	}
	// The editor refusing to open a graph is not worth failing the command.
	if err := d.host.OpenInEditor(g); err != nil {
		return map[string]any{"opened": p.GraphIdentifier, "warning": err.Error()}, nil
	}
	return map[string]any{"opened": p.GraphIdentifier, "success": true}, nil
}

// Link is one incoming connection of a node input.
type Link struct {
	Input      string `json:"input"`
	FromNode   string `json:"from_node"`
	FromOutput string `json:"from_output"`
}

// NodeSummary is one node in get_graph_info.
type NodeSummary struct {
	Identifier  string    `json:"identifier"`
	Definition  string    `json:"definition"`
	Position    []float64 `json:"position"`
	Connections []Link    `json:"connections"`
}

// GraphInfo is the result of get_graph_info.
type GraphInfo struct {
	Identifier string        `json:"identifier"`
	NodeCount  int           `json:"node_count"`
	Nodes      []NodeSummary `json:"nodes"`
	Truncated  bool          `json:"truncated"`
	NodeLimit  int           `json:"node_limit"`
}

func (d *Dispatcher) getGraphInfo(_ context.Context, p graphInfoParams) (any, error) {
	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	nodes := g.Nodes()
	info := GraphInfo{
		Identifier: g.Identifier(),
		NodeCount:  len(nodes),
		Nodes:      []NodeSummary{},
		Truncated:  len(nodes) > p.NodeLimit,
		NodeLimit:  p.NodeLimit,
	}
	for _, n := range nodes[:min(len(nodes), p.NodeLimit)] {
		s := NodeSummary{
			Identifier:  n.Identifier(),
			Definition:  n.Definition(),
			Position:    position(n),
			Connections: []Link{},
		}
		if p.IncludeConnections {
			for _, c := range incoming(n) {
				s.Connections = append(s.Connections, Link{Input: c.ToInput, FromNode: c.FromNode, FromOutput: c.FromOutput})
			}
		}
		info.Nodes = append(info.Nodes, s)
	}
	return info, nil
}

// incoming lists every link feeding n, in input order.
func incoming(n host.Node) []host.Connection {
	var out []host.Connection
	for _, prop := range n.Properties(host.Input) {
		out = append(out, n.Connections(prop.ID)...)
	}
	return out
}

func (d *Dispatcher) savePackage(_ context.Context, p savePackageParams) (any, error) {
	pkg, err := d.resolvePackage(p.packageRef)
	if err != nil {
		return nil, err
	}
	if p.FilePath != "" {
		abs, err := filepath.Abs(p.FilePath)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p.FilePath, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("cannot create directory '%s': %w", filepath.Dir(abs), err)
		}
		if err := d.host.SavePackage(pkg, p.FilePath); err != nil {
			return nil, gwerr.Host("savePackageAs", err)
		}
		return map[string]any{"saved_to": p.FilePath}, nil
	}

	current := pkg.FilePath()
	if current == "" {
		return nil, gwerr.NotFound("Pass file_path to choose where to save it", "Package has no file path")
	}
	if err := d.host.SavePackage(pkg, ""); err != nil {
		return nil, gwerr.Host("savePackage", err)
	}
	return map[string]any{"saved_to": current}, nil
}

// SnapshotNode is one node in a graph snapshot.
type SnapshotNode struct {
	ID         string    `json:"id"`
	Definition string    `json:"definition"`
	Position   []float64 `json:"position"`
	IsLibrary  bool      `json:"is_library"`
}

// SnapshotLink is one connection in a graph snapshot.
type SnapshotLink struct {
	FromNode   string `json:"from_node"`
	FromOutput string `json:"from_output"`
	ToNode     string `json:"to_node"`
	ToInput    string `json:"to_input"`
}

// Snapshot is the result of graph_snapshot.
type Snapshot struct {
	GraphIdentifier string         `json:"graph_identifier"`
	NodeCount       int            `json:"node_count"`
	Nodes           []SnapshotNode `json:"nodes"`
	Connections     []SnapshotLink `json:"connections"`
}

func (d *Dispatcher) graphSnapshot(_ context.Context, p graphRef) (any, error) {
	g, err := d.resolveGraph(p)
	if err != nil {
		return nil, err
	}
	nodes := g.Nodes()
	snap := Snapshot{
		GraphIdentifier: g.Identifier(),
		NodeCount:       len(nodes),
		Nodes:           []SnapshotNode{},
		Connections:     []SnapshotLink{},
	}
	for _, n := range nodes {
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:         n.Identifier(),
			Definition: n.Definition(),
			Position:   position(n),
			IsLibrary:  host.IsInstance(n),
		})
		for _, c := range incoming(n) {
			snap.Connections = append(snap.Connections, SnapshotLink{
				FromNode:   c.FromNode,
				FromOutput: c.FromOutput,
				ToNode:     n.Identifier(),
				ToInput:    c.ToInput,
			})
		}
	}
	return snap, nil
}

// Health is the result of diagnostic.
type Health struct {
	HostRunning         bool     `json:"host_running"`
	HostVersion         string   `json:"host_version,omitempty"`
	GatewayVersion      string   `json:"gateway_version"`
	BridgeAvailable     bool     `json:"bridge_available"`
	PendingWork         int      `json:"pending_work"`
	UserPackages        int      `json:"user_packages"`
	PackageFiles        []string `json:"package_files"`
	LoadedPackages      int      `json:"loaded_packages"`
	LibraryCacheEntries int      `json:"library_cache_entries"`
	CurrentGraph        string   `json:"current_graph,omitempty"`
	CurrentGraphNodes   int      `json:"current_graph_nodes"`
	StaticKinds         int      `json:"static_kinds"`
}

func (d *Dispatcher) diagnostic(_ context.Context, _ noParams) (any, error) {
	h := Health{
		HostRunning:     true,
		HostVersion:     d.host.Version(),
		GatewayVersion:  d.version,
		BridgeAvailable: true,
		PendingWork:     d.bridge.Pending(),
		PackageFiles:    []string{},
		LoadedPackages:  len(d.host.Packages()),
		StaticKinds:     len(ports.Kinds()),
	}
	for _, p := range d.host.UserPackages() {
		h.UserPackages++
		h.PackageFiles = append(h.PackageFiles, p.FilePath())
	}
	if d.resolver != nil {
		h.LibraryCacheEntries = d.resolver.Len()
	}
	if g := d.host.CurrentGraph(); g != nil {
		h.CurrentGraph = g.Identifier()
		h.CurrentGraphNodes = len(g.Nodes())
	}
	return h, nil
}

// offlineDiagnostic answers diagnostic without the owner: the host is not
// reachable, so only gateway-side facts are reported.
func (d *Dispatcher) offlineDiagnostic() Health {
	return Health{
		GatewayVersion: d.version,
		PackageFiles:   []string{},
		StaticKinds:    len(ports.Kinds()),
	}
}
