// Package simhost is an in-memory, strict implementation of the host API.
//
// It is built from a YAML Scene and mirrors the failure modes the gateway
// guards against: unknown node kinds and wrongly typed property writes are
// rejected, and each rejected kind is counted so tests can assert the
// gateway never attempted one.
//
// Like the real host, it is not safe for concurrent use.
package simhost

import (
	"fmt"
	"path"
	"strconv"

	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/value"
)

// Host is a simulated host.
type Host struct {
	version      string
	system       []host.Property
	annotations  []host.Property
	defaults     map[string]any // "<kind>/<prop>" -> raw default
	definitions  map[string]*definition
	defOrder     []string
	packages     []*pkg
	current      *graph
	nextNodeID   int
	nextPackage  int
	unknownKinds []string
	saved        map[string]int
}

type definition struct {
	id      string
	inputs  []host.Property
	outputs []string
}

var _ host.Host = (*Host)(nil)

// New builds a Host from a scene.
func New(s Scene) *Host {
	h := &Host{
		version:     s.Version,
		defaults:    make(map[string]any),
		definitions: make(map[string]*definition, len(s.Definitions)),
		nextNodeID:  1000,
		saved:       make(map[string]int),
	}
	h.system = h.props("$system", s.SystemInputs, host.Input)
	h.annotations = h.props("$annotation", s.Annotations, host.Annotation)

	for _, d := range s.Definitions {
		h.definitions[d.ID] = &definition{
			id:      d.ID,
			inputs:  h.props(d.ID, d.Inputs, host.Input),
			outputs: d.Outputs,
		}
		h.defOrder = append(h.defOrder, d.ID)
	}

	for i, ps := range s.Packages {
		p := &pkg{host: h, path: ps.Path, user: ps.User, reject: ps.Reject, index: i}
		for _, gs := range ps.Graphs {
			g := p.addGraph(gs.ID)
			g.templateInputs = h.props(g.URL(), gs.Inputs, host.Input)
			g.templateOutputs = gs.Outputs
		}
		h.packages = append(h.packages, p)
	}
	h.nextPackage = len(h.packages)

	if s.Current != "" {
		for _, p := range h.packages {
			if g := p.graph(s.Current); g != nil {
				h.current = g
				break
			}
		}
	}
	return h
}

// Default builds a Host from the embedded scene.
func Default() *Host {
	return New(DefaultScene())
}

func (h *Host) props(owner string, specs []PropertySpec, c host.Category) []host.Property {
	out := make([]host.Property, 0, len(specs))
	for _, s := range specs {
		out = append(out, host.Property{ID: s.ID, Type: s.Type, Category: c, Connectable: s.Connectable})
		if s.Default != nil {
			h.defaults[owner+"/"+s.ID] = s.Default
		}
	}
	return out
}

// Version implements host.Host.
func (h *Host) Version() string { return h.version }

// Packages implements host.Host.
func (h *Host) Packages() []host.Package {
	out := make([]host.Package, 0, len(h.packages))
	for _, p := range h.packages {
		out = append(out, p)
	}
	return out
}

// UserPackages implements host.Host.
func (h *Host) UserPackages() []host.Package {
	var out []host.Package
	for _, p := range h.packages {
		if p.user {
			out = append(out, p)
		}
	}
	return out
}

// NewUserPackage implements host.Host. The package has no file path until
// it is saved.
func (h *Host) NewUserPackage() (host.Package, error) {
	p := &pkg{host: h, user: true, index: h.nextPackage}
	h.nextPackage++
	h.packages = append(h.packages, p)
	return p, nil
}

// CurrentGraph implements host.Host.
func (h *Host) CurrentGraph() host.Graph {
	if h.current == nil || h.current.deleted {
		return nil
	}
	return h.current
}

// OpenInEditor implements host.Host.
func (h *Host) OpenInEditor(r host.Resource) error {
	g, ok := r.(*graph)
	if !ok {
		return fmt.Errorf("resource %q cannot be opened in an editor", r.Identifier())
	}
	if g.deleted {
		return fmt.Errorf("graph %q was deleted", g.id)
	}
	h.current = g
	return nil
}

// SavePackage implements host.Host.
func (h *Host) SavePackage(p host.Package, to string) error {
	sp, ok := p.(*pkg)
	if !ok {
		return fmt.Errorf("foreign package")
	}
	if to == "" {
		to = sp.path
	}
	if to == "" {
		return fmt.Errorf("package has no file path")
	}
	sp.path = to
	h.saved[to] = len(sp.graphs)
	return nil
}

// Saved reports whether a package was saved to path.
func (h *Host) Saved(path string) bool {
	_, ok := h.saved[path]
	return ok
}

// UnknownKindAttempts lists node kinds that NewNode rejected. On the real
// host each of these would have hung the owning context.
func (h *Host) UnknownKindAttempts() []string {
	return append([]string(nil), h.unknownKinds...)
}

func (h *Host) newNodeID() string {
	h.nextNodeID++
	return strconv.Itoa(h.nextNodeID)
}

// pkg implements host.Package.
type pkg struct {
	host   *Host
	path   string
	user   bool
	reject string
	index  int
	graphs []*graph
}

func (p *pkg) FilePath() string { return p.path }

func (p *pkg) Children(recursive bool) ([]host.Resource, error) {
	if (recursive && p.reject == "recursive") || (!recursive && p.reject == "flat") {
		return nil, fmt.Errorf("package %q does not support this traversal", path.Base(p.path))
	}
	out := make([]host.Resource, 0, len(p.graphs))
	for _, g := range p.graphs {
		if !g.deleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (p *pkg) FindResource(url string) host.Resource {
	for _, g := range p.graphs {
		if !g.deleted && g.URL() == url {
			return g
		}
	}
	return nil
}

func (p *pkg) NewGraph() (host.Graph, error) {
	return p.addGraph("Graph"), nil
}

func (p *pkg) graph(id string) *graph {
	for _, g := range p.graphs {
		if !g.deleted && g.id == id {
			return g
		}
	}
	return nil
}

func (p *pkg) addGraph(id string) *graph {
	g := &graph{
		pkg:    p,
		id:     p.uniqueID(id, nil),
		values: make(map[string]value.Value),
	}
	for _, sp := range p.host.system {
		if v, ok := p.host.initial("$system", sp); ok {
			g.values[sp.ID] = v
		}
	}
	p.graphs = append(p.graphs, g)
	return g
}

// uniqueID suffixes id until no live graph other than self uses it.
func (p *pkg) uniqueID(id string, self *graph) string {
	candidate := id
	for n := 1; ; n++ {
		taken := false
		for _, g := range p.graphs {
			if g != self && !g.deleted && g.id == candidate {
				taken = true
				break
			}
		}
		if !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
}
