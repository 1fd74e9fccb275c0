// Package batch builds a graph from declarative node and connection specs.
//
// A build runs Init -> CreatingNodes -> WiringConnections -> Done and never
// moves backward. Every spec is attempted exactly once; failures are
// accumulated into the Report rather than aborting the build. Nothing is
// rolled back: a Report with failures describes a graph that exists but is
// incomplete.
//
// Nodes are addressed by caller-chosen aliases. An alias already taken in
// the same build is suffixed ("mix", "mix_1", "mix_2") instead of failing.
package batch

import (
	"fmt"
	"log/slog"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/library"
	"github.com/roach88/graphgate/internal/ports"
	"github.com/roach88/graphgate/internal/value"
)

// DefaultDefinition is the kind created when a spec names none.
const DefaultDefinition = ports.Namespace + "uniform"

// State is the build phase.
type State int

const (
	Init State = iota
	CreatingNodes
	WiringConnections
	Done
)

// String returns the phase name.
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case CreatingNodes:
		return "creating_nodes"
	case WiringConnections:
		return "wiring_connections"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// NodeSpec describes one node to create.
//
// Creation method, in priority order: output marker (definition is the
// output kind), ResourceURL, LibraryKeyword, named definition.
type NodeSpec struct {
	DefinitionID string `json:"definition_id,omitempty"`

	// Kind is a short-form alternative to DefinitionID ("blend", "output").
	Kind string `json:"kind,omitempty"`

	IDAlias        string         `json:"id_alias,omitempty"`
	Alias          string         `json:"alias,omitempty"`
	Position       []float64      `json:"position,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Usage          string         `json:"usage,omitempty"`
	Label          string         `json:"label,omitempty"`
	ResourceURL    string         `json:"resource_url,omitempty"`
	LibraryKeyword string         `json:"library_keyword,omitempty"`
}

// Definition returns the canonical kind s names.
func (s NodeSpec) Definition() string {
	if s.DefinitionID != "" {
		return ports.Canonical(s.DefinitionID)
	}
	if s.Kind != "" {
		return ports.Canonical(s.Kind)
	}
	return DefaultDefinition
}

// AliasOrDefault returns the requested alias: IDAlias, then Alias, then the
// short name of the definition.
func (s NodeSpec) AliasOrDefault() string {
	switch {
	case s.IDAlias != "":
		return s.IDAlias
	case s.Alias != "":
		return s.Alias
	case s.LibraryKeyword != "" && s.DefinitionID == "" && s.Kind == "":
		return s.LibraryKeyword
	}
	return ports.ShortName(s.Definition())
}

func (s NodeSpec) xy() (float64, float64) {
	if len(s.Position) >= 2 {
		return s.Position[0], s.Position[1]
	}
	return 0, 0
}

// ConnSpec describes one connection between two aliases.
type ConnSpec struct {
	From       string `json:"from,omitempty"`
	FromAlias  string `json:"from_alias,omitempty"`
	To         string `json:"to,omitempty"`
	ToAlias    string `json:"to_alias,omitempty"`
	FromOutput string `json:"from_output,omitempty"`
	ToInput    string `json:"to_input,omitempty"`
}

// Endpoints returns the source and destination aliases.
func (c ConnSpec) Endpoints() (from, to string) {
	from, to = c.From, c.To
	if from == "" {
		from = c.FromAlias
	}
	if to == "" {
		to = c.ToAlias
	}
	return from, to
}

// Ports returns the source output and destination input, defaulted.
func (c ConnSpec) Ports() (out, in string) {
	out, in = c.FromOutput, c.ToInput
	if out == "" {
		out = ports.DefaultOutput
	}
	if in == "" {
		in = ports.DefaultInput
	}
	return out, in
}

// Created reports a node that was created.
type Created struct {
	Alias      string `json:"alias"`
	NodeID     string `json:"node_id"`
	Definition string `json:"definition"`

	// Params holds per-parameter outcomes when parameters were given.
	Params map[string]string `json:"params,omitempty"`
}

// Failed reports a node spec that could not be created.
type Failed struct {
	Alias string `json:"alias"`
	Error string `json:"error"`
}

// Wired reports one connection attempt.
type Wired struct {
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Conn    *ConnSpec `json:"conn,omitempty"`
}

// Report is the outcome of a build.
type Report struct {
	NodesCreated      int               `json:"nodes_created"`
	NodesFailed       int               `json:"nodes_failed"`
	ConnectionsOK     int               `json:"connections_ok"`
	ConnectionsFailed int               `json:"connections_failed"`
	NodeMap           map[string]string `json:"node_map"`
	Nodes             []Created         `json:"nodes"`
	FailedNodes       []Failed          `json:"failed_nodes"`
	Connections       []Wired           `json:"connections"`
}

// Builder builds into one graph. A Builder is single-use and, like the host
// it drives, must only be used on the bridge's owning context.
type Builder struct {
	graph    host.Graph
	resolver *library.Resolver
	logger   *slog.Logger

	state   State
	known   []string
	aliases map[string]host.Node
	report  *Report
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for per-item failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// New returns a Builder targeting g. r resolves library keywords and URLs.
func New(g host.Graph, r *library.Resolver, opts ...Option) *Builder {
	b := &Builder{
		graph:    g,
		resolver: r,
		logger:   slog.Default(),
		aliases:  make(map[string]host.Node),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current phase.
func (b *Builder) State() State {
	return b.state
}

// Build creates every node, then wires every connection, and reports the
// outcome per item. It errors only when the Builder was already used.
func (b *Builder) Build(nodes []NodeSpec, conns []ConnSpec) (*Report, error) {
	if b.state != Init {
		return nil, fmt.Errorf("builder already used (state %s)", b.state)
	}
	b.report = &Report{
		NodeMap:     make(map[string]string),
		Nodes:       []Created{},
		FailedNodes: []Failed{},
		Connections: []Wired{},
	}

	b.state = CreatingNodes
	if defs, err := b.graph.NodeDefinitions(); err == nil {
		b.known = defs
	} else {
		b.logger.Warn("live definitions unavailable, static kinds only", "graph", b.graph.Identifier(), "error", err)
	}
	for _, spec := range nodes {
		b.createNode(spec)
	}

	b.state = WiringConnections
	for _, c := range conns {
		b.wire(c)
	}

	b.state = Done
	r := b.report
	r.NodesCreated = len(r.Nodes)
	r.NodesFailed = len(r.FailedNodes)
	for _, w := range r.Connections {
		if w.Success {
			r.ConnectionsOK++
		} else {
			r.ConnectionsFailed++
		}
	}
	return r, nil
}

// Node returns the node registered under alias, or nil.
func (b *Builder) Node(alias string) host.Node {
	return b.aliases[alias]
}

func (b *Builder) createNode(spec NodeSpec) {
	alias := spec.AliasOrDefault()
	n, err := b.instantiate(spec)
	if err != nil {
		b.logger.Warn("batch node failed", "alias", alias, "error", err)
		b.report.FailedNodes = append(b.report.FailedNodes, Failed{Alias: alias, Error: err.Error()})
		return
	}

	x, y := spec.xy()
	if err := n.SetPosition(x, y); err != nil {
		b.logger.Warn("set position failed", "alias", alias, "error", err)
	}
	params := ApplyParams(n, spec.Parameters)

	alias = b.register(alias, n)
	b.report.NodeMap[alias] = n.Identifier()
	b.report.Nodes = append(b.report.Nodes, Created{
		Alias:      alias,
		NodeID:     n.Identifier(),
		Definition: n.Definition(),
		Params:     params,
	})
}

// register stores n under alias, suffixing it when already taken, and
// returns the alias actually used.
func (b *Builder) register(alias string, n host.Node) string {
	candidate := alias
	for i := 1; ; i++ {
		if _, taken := b.aliases[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s_%d", alias, i)
	}
	b.aliases[candidate] = n
	return candidate
}

func (b *Builder) instantiate(spec NodeSpec) (host.Node, error) {
	def := spec.Definition()
	switch {
	case def == host.OutputDefinition:
		return NewOutput(b.graph, spec.Label, spec.Usage)

	case spec.ResourceURL != "":
		res := b.resolver.Resource(spec.ResourceURL)
		if res == nil {
			return nil, gwerr.NotFound("Use get_library_nodes to list valid resource URLs",
				"Resource '%s' not found", spec.ResourceURL)
		}
		n, err := b.graph.NewInstanceNode(res)
		if err != nil {
			return nil, gwerr.Host("newInstanceNode", err)
		}
		return n, nil

	case spec.LibraryKeyword != "":
		n, _, err := b.resolver.Instance(b.graph, spec.LibraryKeyword)
		return n, err

	default:
		if err := ports.ValidateCreatable(def, b.known); err != nil {
			return nil, err
		}
		n, err := b.graph.NewNode(def)
		if err != nil {
			return nil, gwerr.Host("newNode", err)
		}
		return n, nil
	}
}

func (b *Builder) wire(c ConnSpec) {
	from, to := c.Endpoints()
	src, ok := b.aliases[from]
	if !ok {
		b.fail(c, fmt.Sprintf("from '%s' not found", from))
		return
	}
	dst, ok := b.aliases[to]
	if !ok {
		b.fail(c, fmt.Sprintf("to '%s' not found", to))
		return
	}

	out, in := c.Ports()
	err := Connect(src, out, dst, in)
	w := Wired{From: from, To: to, Success: err == nil}
	if err != nil {
		w.Error = err.Error()
		b.logger.Warn("batch connection failed", "from", from, "to", to, "error", err)
	}
	b.report.Connections = append(b.report.Connections, w)
}

func (b *Builder) fail(c ConnSpec, msg string) {
	conn := c
	b.report.Connections = append(b.report.Connections, Wired{Error: msg, Conn: &conn})
}

// Connect validates both ports and then connects. Validation failures never
// reach the host.
func Connect(from host.Node, fromOutput string, to host.Node, toInput string) error {
	if err := ports.ValidateConnection(from, fromOutput, to, toInput); err != nil {
		return err
	}
	if err := from.Connect(fromOutput, to, toInput); err != nil {
		return gwerr.Host("connect", err)
	}
	return nil
}

// NewOutput creates an output marker node labelled with label, falling back
// to usage and then "output". The usage itself is never written: the host
// hangs when asked to construct one.
func NewOutput(g host.Graph, label, usage string) (host.Node, error) {
	n, err := g.NewNode(host.OutputDefinition)
	if err != nil {
		return nil, gwerr.Host("newNode", err)
	}
	switch {
	case label != "":
	case usage != "":
		label = usage
	default:
		label = "output"
	}
	// A missing label annotation leaves an unlabelled but usable output.
	_ = n.SetAnnotationValue("label", value.String(label))
	return n, nil
}
