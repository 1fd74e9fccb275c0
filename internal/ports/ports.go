// Package ports validates node creation and connections before they reach
// the host.
//
// The static table covers the atomic compositing kinds and is authoritative
// for them. Kinds absent from the table, library instances in particular,
// fall back to the live node's declared properties, since their port names
// belong to the library resource rather than the kind.
//
// Connecting to a system-reserved "$" property is never valid, even when the
// live node lists it as an input.
package ports

import (
	"slices"
	"sort"
	"strings"
)

const (
	// Namespace prefixes atomic compositing kinds.
	Namespace = "sbs::compositing::"

	// DefaultOutput is the output port of every atomic kind that has one.
	DefaultOutput = "unique_filter_output"

	// DefaultInput is the first input of most single-input atomic kinds.
	DefaultInput = "input1"
)

// Spec is the port layout of one node kind.
type Spec struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

var single = Spec{Inputs: []string{"input1"}, Outputs: []string{DefaultOutput}}
var generator = Spec{Inputs: []string{}, Outputs: []string{DefaultOutput}}

// static is immutable after init.
var static = map[string]Spec{
	Namespace + "blend":               {Inputs: []string{"source", "destination", "opacity"}, Outputs: []string{DefaultOutput}},
	Namespace + "levels":              single,
	Namespace + "curve":               single,
	Namespace + "hsl":                 single,
	Namespace + "blur":                single,
	Namespace + "sharpen":             single,
	Namespace + "warp":                {Inputs: []string{"input1", "inputgradient"}, Outputs: []string{DefaultOutput}},
	Namespace + "directionalwarp":     {Inputs: []string{"input1", "inputintensity"}, Outputs: []string{DefaultOutput}},
	Namespace + "normal":              single,
	Namespace + "transformation":      single,
	Namespace + "distance":            single,
	Namespace + "grayscaleconversion": single,
	Namespace + "shuffle":             single,
	Namespace + "emboss":              single,
	Namespace + "passthrough":         single,
	Namespace + "uniform":             generator,
	Namespace + "output":              {Inputs: []string{"inputNodeOutput"}, Outputs: []string{}},
	Namespace + "input_color":         generator,
	Namespace + "input_grayscale":     generator,
	Namespace + "gradient":            {Inputs: []string{"input1", "gradient"}, Outputs: []string{DefaultOutput}},
	Namespace + "pixelprocessor":      single,
	Namespace + "fxmaps":              single,
}

// systemParams are reserved graph/node properties.
var systemParams = map[string]bool{
	"$outputsize": true,
	"$format":     true,
	"$pixelsize":  true,
	"$pixelratio": true,
	"$tiling":     true,
	"$randomseed": true,
	"$time":       true,
}

// Static returns the static spec for kind.
func Static(kind string) (Spec, bool) {
	s, ok := static[kind]
	if !ok {
		return Spec{}, false
	}
	return Spec{Inputs: slices.Clone(s.Inputs), Outputs: slices.Clone(s.Outputs)}, true
}

// Kinds lists every statically known kind, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(static))
	for k := range static {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// IsSystem reports whether id is a reserved system property.
// Any "$"-prefixed id is treated as reserved.
func IsSystem(id string) bool {
	return systemParams[id] || strings.HasPrefix(id, "$")
}

// SystemParams lists the named reserved properties, sorted.
func SystemParams() []string {
	out := make([]string, 0, len(systemParams))
	for k := range systemParams {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Canonical expands a short atomic name ("blend") to its namespaced kind.
// Namespaced kinds and library URLs are returned unchanged.
func Canonical(kind string) string {
	kind = strings.TrimSpace(kind)
	if kind == "" || strings.Contains(kind, "::") || strings.Contains(kind, "://") {
		return kind
	}
	return Namespace + kind
}

// ShortName returns the last "::" segment of kind, used as a default alias.
func ShortName(kind string) string {
	if i := strings.LastIndex(kind, "::"); i >= 0 {
		return kind[i+2:]
	}
	return kind
}
