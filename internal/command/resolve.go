package command

import (
	"regexp"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
)

var unsafeIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeIdentifier makes name a valid graph identifier: characters outside
// [A-Za-z0-9_] become underscores and a name not starting with a letter is
// prefixed with "G_".
func SanitizeIdentifier(name string) string {
	if name == "" {
		return DefaultGraphName
	}
	s := unsafeIdentifier.ReplaceAllString(name, "_")
	if c := s[0]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		s = "G_" + s
	}
	return s
}

// resolvePackage picks a user package by file path, else by index.
func (d *Dispatcher) resolvePackage(ref packageRef) (host.Package, error) {
	pkgs := d.host.UserPackages()
	if ref.PackagePath != "" {
		for _, p := range pkgs {
			if p.FilePath() == ref.PackagePath {
				return p, nil
			}
		}
		return nil, gwerr.NotFound("Use get_scene_info to list open packages", "Package '%s' not found", ref.PackagePath)
	}
	if len(pkgs) == 0 {
		return nil, gwerr.NotFound("Open a .sbs file first, or call create_package", "No user packages loaded")
	}
	if ref.PackageIndex >= len(pkgs) {
		return nil, gwerr.NotFound("Use get_scene_info to list open packages",
			"Package index %d out of range (have %d)", ref.PackageIndex, len(pkgs))
	}
	return pkgs[ref.PackageIndex], nil
}

// resolveGraph finds a graph by identifier among user packages. Without an
// identifier it falls back to the focused graph, then to the first graph of
// any user package.
func (d *Dispatcher) resolveGraph(ref graphRef) (host.Graph, error) {
	if ref.GraphIdentifier != "" {
		for _, p := range d.host.UserPackages() {
			for _, g := range graphs(p) {
				if g.Identifier() == ref.GraphIdentifier {
					return g, nil
				}
			}
		}
		return nil, gwerr.NotFound("Use get_scene_info to list graphs", "Graph '%s' not found", ref.GraphIdentifier)
	}

	if g := d.host.CurrentGraph(); g != nil {
		return g, nil
	}
	for _, p := range d.host.UserPackages() {
		if gs := graphs(p); len(gs) > 0 {
			return gs[0], nil
		}
	}
	return nil, gwerr.NotFound("Open a package or graph in the host, or pass graph_identifier", "No graph available")
}

// graphs lists the compositing graphs directly inside p. A package that
// refuses the listing has none.
func graphs(p host.Package) []host.Graph {
	children, err := p.Children(false)
	if err != nil {
		return nil
	}
	var out []host.Graph
	for _, r := range children {
		if r.ClassName() != host.ClassCompGraph {
			continue
		}
		if g, ok := r.(host.Graph); ok {
			out = append(out, g)
		}
	}
	return out
}

func findNode(g host.Graph, id string) (host.Node, error) {
	if n := g.Node(id); n != nil {
		return n, nil
	}
	return nil, gwerr.NotFound("Use get_graph_info to list node ids",
		"Node '%s' not found in graph '%s'", id, g.Identifier())
}

func position(n host.Node) []float64 {
	x, y := n.Position()
	return []float64{x, y}
}
