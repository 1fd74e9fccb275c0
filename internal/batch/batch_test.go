package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/library"
	"github.com/roach88/graphgate/internal/value"
)

func setup(t *testing.T) (*simhost.Host, host.Graph, *Builder) {
	t.Helper()
	h := simhost.Default()
	p, err := h.NewUserPackage()
	require.NoError(t, err)
	g, err := p.NewGraph()
	require.NoError(t, err)
	return h, g, New(g, library.New(h))
}

func TestBuildSingleOutputNode(t *testing.T) {
	_, g, b := setup(t)

	r, err := b.Build([]NodeSpec{{Kind: "output", Usage: "height"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.NodesCreated)
	assert.Equal(t, 0, r.NodesFailed)
	assert.Equal(t, 0, r.ConnectionsOK)
	assert.Equal(t, 0, r.ConnectionsFailed)
	assert.Equal(t, Done, b.State())

	require.Len(t, r.Nodes, 1)
	assert.Equal(t, "output", r.Nodes[0].Alias)
	assert.Equal(t, host.OutputDefinition, r.Nodes[0].Definition)

	n := g.Node(r.NodeMap["output"])
	require.NotNil(t, n)
	label, ok := n.Value("label", host.Annotation)
	require.True(t, ok)
	assert.Equal(t, value.String("height"), label)
}

func TestBuildReportsMissingAlias(t *testing.T) {
	_, _, b := setup(t)

	r, err := b.Build(
		[]NodeSpec{
			{Kind: "uniform", Alias: "base"},
			{Kind: "blur", Alias: "soft"},
		},
		[]ConnSpec{
			{From: "base", To: "soft"},
			{From: "ghost", To: "soft"},
			{FromAlias: "base", ToAlias: "nowhere"},
		})
	require.NoError(t, err)

	assert.Equal(t, 2, r.NodesCreated)
	assert.Equal(t, 1, r.ConnectionsOK)
	assert.Equal(t, 2, r.ConnectionsFailed)

	require.Len(t, r.Connections, 3)
	assert.True(t, r.Connections[0].Success)
	assert.Equal(t, "from 'ghost' not found", r.Connections[1].Error)
	require.NotNil(t, r.Connections[1].Conn)
	assert.Equal(t, "ghost", r.Connections[1].Conn.From)
	assert.Equal(t, "to 'nowhere' not found", r.Connections[2].Error)
}

func TestBuildSuffixesCollidingAliases(t *testing.T) {
	_, _, b := setup(t)

	r, err := b.Build([]NodeSpec{
		{Kind: "uniform", Alias: "mix"},
		{Kind: "uniform", Alias: "mix"},
		{Kind: "uniform", IDAlias: "mix"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, r.NodesCreated)
	require.Len(t, r.NodeMap, 3)
	assert.Contains(t, r.NodeMap, "mix")
	assert.Contains(t, r.NodeMap, "mix_1")
	assert.Contains(t, r.NodeMap, "mix_2")
	assert.NotEqual(t, r.NodeMap["mix"], r.NodeMap["mix_1"])
}

func TestBuildDefaultAliasFromKind(t *testing.T) {
	_, _, b := setup(t)

	r, err := b.Build([]NodeSpec{{}, {DefinitionID: "sbs::compositing::blend"}}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.NodeMap, "uniform")
	assert.Contains(t, r.NodeMap, "blend")
}

func TestBuildNeverCreatesUnknownKinds(t *testing.T) {
	h, _, b := setup(t)

	r, err := b.Build([]NodeSpec{
		{DefinitionID: "sbs::compositing::perlin_noise", Alias: "noise"},
		{Kind: "levels", Alias: "lv"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.NodesCreated)
	assert.Equal(t, 1, r.NodesFailed)
	assert.Equal(t, "noise", r.FailedNodes[0].Alias)
	assert.Contains(t, r.FailedNodes[0].Error, "Unknown definition 'sbs::compositing::perlin_noise'")
	assert.Empty(t, h.UnknownKindAttempts())
}

func TestBuildLibraryNodes(t *testing.T) {
	_, g, b := setup(t)

	r, err := b.Build(
		[]NodeSpec{
			{LibraryKeyword: "perlin", Alias: "noise", Parameters: map[string]any{"scale": 16, "disorder": 0.25}},
			{ResourceURL: "pkg:///slope_blur_grayscale_2?dependency=2", Alias: "slope"},
			{ResourceURL: "pkg:///missing?dependency=9", Alias: "gone"},
			{LibraryKeyword: "marble", Alias: "marble"},
		},
		[]ConnSpec{
			{From: "noise", To: "slope", FromOutput: "output", ToInput: "Source"},
			{From: "noise", To: "slope"},
		})
	require.NoError(t, err)

	assert.Equal(t, 2, r.NodesCreated)
	assert.Equal(t, 2, r.NodesFailed)
	assert.Contains(t, r.FailedNodes[0].Error, "Resource 'pkg:///missing?dependency=9' not found")
	assert.Contains(t, r.FailedNodes[1].Error, "get_library_nodes(filter_text='marble')")

	assert.Equal(t, "pkg:///perlin_noise?dependency=0", r.Nodes[0].Definition)
	assert.Equal(t, map[string]string{"scale": ParamOK, "disorder": ParamOK}, r.Nodes[0].Params)

	noise := g.Node(r.NodeMap["noise"])
	v, _ := noise.Value("scale", host.Input)
	assert.Equal(t, value.Int(16), v)

	assert.Equal(t, 1, r.ConnectionsOK)
	assert.Equal(t, 1, r.ConnectionsFailed)
	assert.Contains(t, r.Connections[1].Error, "Output port 'unique_filter_output' not found")
	assert.Contains(t, r.Connections[1].Error, "Available: [output]")
}

func TestBuildAppliesPositionAndParams(t *testing.T) {
	_, g, b := setup(t)

	r, err := b.Build([]NodeSpec{{
		Kind:     "blend",
		Alias:    "mix",
		Position: []float64{120, -40},
		Parameters: map[string]any{
			"blendingmode": "multiply",
			"opacitymult":  1,
			"maskrectangle": 0.5,
			"$outputsize":  []any{10.0, 10.0},
			"nonexistent":  1,
			"source":       0.2,
			"label":        "Mixer",
		},
	}}, nil)
	require.NoError(t, err)
	require.Len(t, r.Nodes, 1)

	assert.Equal(t, map[string]string{
		"blendingmode":  ParamOK,
		"opacitymult":   ParamOK,
		"maskrectangle": ParamOK,
		"$outputsize":   ParamSkippedSystem,
		"nonexistent":   ParamSkipped,
		"source":        ParamSkipped,
		"label":         ParamOK,
	}, r.Nodes[0].Params)

	n := g.Node(r.NodeMap["mix"])
	x, y := n.Position()
	assert.Equal(t, 120.0, x)
	assert.Equal(t, -40.0, y)

	v, _ := n.Value("blendingmode", host.Input)
	assert.Equal(t, value.Int(3), v)
	v, _ = n.Value("opacitymult", host.Input)
	assert.Equal(t, value.Float(1), v)
	v, _ = n.Value("maskrectangle", host.Input)
	assert.Equal(t, value.Float4{0.5, 0.5, 0.5, 0.5}, v)
	v, _ = n.Value("$outputsize", host.Input)
	assert.Equal(t, value.Int2{11, 11}, v)
}

func TestBuildRejectsPortsBeforeHost(t *testing.T) {
	_, g, b := setup(t)

	r, err := b.Build(
		[]NodeSpec{{Kind: "uniform", Alias: "a"}, {Kind: "blend", Alias: "m"}},
		[]ConnSpec{{From: "a", To: "m", ToInput: "input1"}})
	require.NoError(t, err)

	require.Len(t, r.Connections, 1)
	assert.False(t, r.Connections[0].Success)
	assert.Contains(t, r.Connections[0].Error, "Available: [destination, opacity, source]")
	assert.Empty(t, g.Node(r.NodeMap["m"]).Connections("input1"))
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, _, b := setup(t)
	_, err := b.Build(nil, nil)
	require.NoError(t, err)

	_, err = b.Build(nil, nil)
	assert.Error(t, err)
}

func TestResolveCoercesAgainstLiveType(t *testing.T) {
	_, g, _ := setup(t)
	n, err := g.NewNode("sbs::compositing::uniform")
	require.NoError(t, err)

	v, err := Resolve(n, "outputcolor", []any{0.2, 0.4, 0.6}, "")
	require.NoError(t, err)
	assert.Equal(t, value.Color{R: 0.2, G: 0.4, B: 0.6, A: 1}, v)

	v, err = Resolve(n, "colorswitch", map[string]any{"value": false, "type": "bool"}, "")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), v)

	// Unknown property: inference stands.
	v, err = Resolve(n, "made_up", 7, "")
	require.NoError(t, err)
	assert.Equal(t, value.Float(7), v)

	_, err = Resolve(n, "outputcolor", []any{"a", "b"}, "")
	require.Error(t, err)
	assert.True(t, gwerr.Is(err, gwerr.CodeCoercion))
}

func TestSetParamFallsBackToAnnotation(t *testing.T) {
	_, g, _ := setup(t)
	n, err := g.NewNode("sbs::compositing::levels")
	require.NoError(t, err)

	require.NoError(t, SetParam(n, "description", value.String("tone")))
	assert.ErrorIs(t, SetParam(n, "missing", value.Float(1)), ErrNotSet)
	assert.ErrorIs(t, SetParam(n, "input1", value.Float(1)), ErrNotSet)
}
