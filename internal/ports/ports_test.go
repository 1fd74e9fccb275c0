package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/host/simhost"
)

func newGraph(t *testing.T) (*simhost.Host, host.Graph) {
	t.Helper()
	h := simhost.Default()
	p, err := h.NewUserPackage()
	require.NoError(t, err)
	g, err := p.NewGraph()
	require.NoError(t, err)
	return h, g
}

func libraryNode(t *testing.T, h *simhost.Host, g host.Graph, url string) host.Node {
	t.Helper()
	for _, p := range h.Packages() {
		if r := p.FindResource(url); r != nil {
			n, err := g.NewInstanceNode(r)
			require.NoError(t, err)
			return n
		}
	}
	t.Fatalf("resource %s not in scene", url)
	return nil
}

func TestStaticTable(t *testing.T) {
	assert.Len(t, Kinds(), 22)

	blend, ok := Static("sbs::compositing::blend")
	require.True(t, ok)
	assert.Equal(t, []string{"source", "destination", "opacity"}, blend.Inputs)

	dw, ok := Static("sbs::compositing::directionalwarp")
	require.True(t, ok)
	assert.Equal(t, []string{"input1", "inputintensity"}, dw.Inputs)

	out, ok := Static("sbs::compositing::output")
	require.True(t, ok)
	assert.Empty(t, out.Outputs)

	// Returned specs are copies.
	blend.Inputs[0] = "mutated"
	again, _ := Static("sbs::compositing::blend")
	assert.Equal(t, "source", again.Inputs[0])
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "sbs::compositing::output", Canonical("output"))
	assert.Equal(t, "sbs::compositing::blend", Canonical(" blend "))
	assert.Equal(t, "sbs::compositing::blend", Canonical("sbs::compositing::blend"))
	assert.Equal(t, "pkg:///perlin_noise?dependency=0", Canonical("pkg:///perlin_noise?dependency=0"))
	assert.Equal(t, "", Canonical(""))
	assert.Equal(t, "blend", ShortName("sbs::compositing::blend"))
}

func TestValidateKindsRejectsUnknownStaticOutput(t *testing.T) {
	err := ValidateKinds("sbs::compositing::blend", "output", "sbs::compositing::levels", "input1")
	require.Error(t, err)
	assert.True(t, gwerr.IsPort(err))
	assert.Contains(t, err.Error(), "Available: [unique_filter_output]")

	require.NoError(t, ValidateKinds("sbs::compositing::blend", "unique_filter_output", "sbs::compositing::blend", "opacity"))
	require.NoError(t, ValidateKinds("pkg:///x", "anything", "pkg:///y", "whatever"))
}

func TestValidateConnectionStatic(t *testing.T) {
	_, g := newGraph(t)
	uniform, err := g.NewNode("sbs::compositing::uniform")
	require.NoError(t, err)
	blend, err := g.NewNode("sbs::compositing::blend")
	require.NoError(t, err)

	require.NoError(t, ValidateConnection(uniform, "unique_filter_output", blend, "source"))

	err = ValidateConnection(uniform, "unique_filter_output", blend, "input1")
	require.Error(t, err)
	var ge *gwerr.Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, gwerr.CodePort, ge.Code)
	assert.Equal(t, []string{"destination", "opacity", "source"}, ge.Valid)
}

func TestValidateConnectionFromOutputNodeAlwaysFails(t *testing.T) {
	_, g := newGraph(t)
	out, err := g.NewNode("sbs::compositing::output")
	require.NoError(t, err)
	blur, err := g.NewNode("sbs::compositing::blur")
	require.NoError(t, err)

	err = ValidateConnection(out, "unique_filter_output", blur, "input1")
	require.Error(t, err)
	assert.True(t, gwerr.IsPort(err))
}

func TestValidateConnectionLibraryFallsBackToLive(t *testing.T) {
	h, g := newGraph(t)
	perlin := libraryNode(t, h, g, "pkg:///perlin_noise?dependency=0")
	slope := libraryNode(t, h, g, "pkg:///slope_blur_grayscale_2?dependency=2")

	// Library outputs are never unique_filter_output.
	err := ValidateConnection(perlin, "unique_filter_output", slope, "Source")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available: [output]")

	require.NoError(t, ValidateConnection(perlin, "output", slope, "Source"))

	err = ValidateConnection(perlin, "output", slope, "input1")
	require.Error(t, err)
	var ge *gwerr.Error
	require.ErrorAs(t, err, &ge)
	assert.NotContains(t, ge.Valid, "$outputsize")
	assert.Contains(t, ge.Valid, "Effect")
}

func TestValidateConnectionRejectsSystemTargets(t *testing.T) {
	h, g := newGraph(t)
	perlin := libraryNode(t, h, g, "pkg:///perlin_noise?dependency=0")
	other := libraryNode(t, h, g, "pkg:///clouds_2?dependency=0")

	err := ValidateConnection(perlin, "output", other, "$randomseed")
	require.Error(t, err)
	assert.True(t, gwerr.IsPort(err))
}

func TestValidateCreatable(t *testing.T) {
	_, g := newGraph(t)
	live, err := g.NodeDefinitions()
	require.NoError(t, err)

	require.NoError(t, ValidateCreatable("sbs::compositing::blend", live))

	err = ValidateCreatable("sbs::compositing::perlin_noise", live)
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
	assert.Contains(t, err.Error(), "list_node_definitions")

	// Live lookup unavailable: static kinds only.
	require.NoError(t, ValidateCreatable("sbs::compositing::levels", nil))
	require.Error(t, ValidateCreatable("sbs::compositing::mystery", nil))
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "source", Default([]string{"source", "destination"}, DefaultInput))
	assert.Equal(t, DefaultInput, Default(nil, DefaultInput))
}

func TestBlendMode(t *testing.T) {
	v, ok := BlendMode("Soft Light")
	require.True(t, ok)
	assert.Equal(t, 11, v)

	v, ok = BlendMode("linear-dodge")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = BlendMode("vivid")
	assert.False(t, ok)
}

func TestIsSystem(t *testing.T) {
	assert.True(t, IsSystem("$outputsize"))
	assert.True(t, IsSystem("$custom"))
	assert.False(t, IsSystem("input1"))
	assert.Len(t, SystemParams(), 7)
}
