package ports

import (
	"slices"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
)

// Outputs returns the valid output ports of n: the static spec when the
// kind is listed, otherwise the live node's outputs.
func Outputs(n host.Node) []string {
	if s, ok := static[n.Definition()]; ok {
		return slices.Clone(s.Outputs)
	}
	return host.IDs(n, host.Output)
}

// Inputs returns the valid connection targets of n, system properties
// excluded.
func Inputs(n host.Node) []string {
	if s, ok := static[n.Definition()]; ok {
		return slices.Clone(s.Inputs)
	}
	var out []string
	for _, p := range n.Properties(host.Input) {
		if !IsSystem(p.ID) {
			out = append(out, p.ID)
		}
	}
	return out
}

// ValidateConnection checks both ends of a connection without touching the
// host. The error enumerates the valid ports of the failing side.
//
// A live node that reports no ports at all for a side is not validated on
// that side: the host lookup failed and the connect attempt decides.
// Static kinds are always validated.
func ValidateConnection(from host.Node, fromPort string, to host.Node, toPort string) error {
	_, fromStatic := static[from.Definition()]
	outs := Outputs(from)
	if (fromStatic || len(outs) > 0) && !slices.Contains(outs, fromPort) {
		return gwerr.Port("Output", fromPort, from.Identifier(), outs)
	}

	if IsSystem(toPort) {
		return gwerr.Port("Input", toPort, to.Identifier(), Inputs(to))
	}
	_, toStatic := static[to.Definition()]
	ins := Inputs(to)
	if (toStatic || len(ins) > 0) && !slices.Contains(ins, toPort) {
		return gwerr.Port("Input", toPort, to.Identifier(), ins)
	}
	return nil
}

// ValidateKinds is ValidateConnection for kinds known only by name. Kinds
// outside the static table pass, since only a live node can answer for them.
func ValidateKinds(fromKind, fromPort, toKind, toPort string) error {
	if s, ok := static[fromKind]; ok && !slices.Contains(s.Outputs, fromPort) {
		return gwerr.Port("Output", fromPort, fromKind, s.Outputs)
	}
	if IsSystem(toPort) {
		return gwerr.Port("Input", toPort, toKind, nil)
	}
	if s, ok := static[toKind]; ok && !slices.Contains(s.Inputs, toPort) {
		return gwerr.Port("Input", toPort, toKind, s.Inputs)
	}
	return nil
}

// ValidateCreatable must pass before Graph.NewNode is called: the host hangs
// indefinitely on an unrecognized kind. live is the graph's creatable set;
// when the live lookup returned nothing, only static kinds are allowed.
func ValidateCreatable(kind string, live []string) error {
	if slices.Contains(live, kind) {
		return nil
	}
	if len(live) == 0 {
		if _, ok := static[kind]; ok {
			return nil
		}
	}
	return gwerr.NotFound(
		"Library nodes require create_instance_node with a pkg:// URL, or library_keyword in batch specs; use list_node_definitions to see creatable kinds",
		"Unknown definition '%s'", kind)
}

// Default picks the port smart_connect uses when the caller names none:
// the first valid port, or fallback when there is none.
func Default(valid []string, fallback string) string {
	if len(valid) > 0 {
		return valid[0]
	}
	return fallback
}
