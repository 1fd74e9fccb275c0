package recipes

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/library"
)

func catalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestCatalogSummary(t *testing.T) {
	s, err := catalog(t).Summary()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "catalog", []byte(s))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "wood_oak", Key("Wood Oak"))
	assert.Equal(t, "wood_oak", Key("wood-oak"))
	assert.Equal(t, "moss", Key("  MOSS "))
}

func TestMaterialLookup(t *testing.T) {
	c := catalog(t)

	r, err := c.Material("Rock-Granite")
	require.NoError(t, err)
	assert.Equal(t, "rock_granite", r.Key)
	assert.Equal(t, "Granite", r.Name)
	assert.Equal(t, "rock", r.Category)
	assert.Equal(t, []string{"baseColor", "normal", "roughness", "metallic", "ambientOcclusion", "height"}, r.Outputs)

	_, err = c.Material("marble")
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
	assert.Equal(t,
		"Recipe 'marble' not found. Available: [bark, metal_rust, metal_steel, moss, rock_granite, rock_slate, wood_oak, wood_walnut]. Use list_recipes to see every recipe",
		err.Error())
}

func TestMaterialDefaultsConnectionPorts(t *testing.T) {
	r, err := catalog(t).Material("metal_steel")
	require.NoError(t, err)

	assert.Equal(t, batch.ConnSpec{
		From:       "metal_stretch",
		To:         "metal_blur",
		FromOutput: "unique_filter_output",
		ToInput:    "input1",
	}, r.Connections[1])

	// Int envelopes survive export.
	assert.Equal(t, map[string]any{"value": 32.0, "type": "int"}, r.Nodes[0].Parameters["scale"])
}

func TestMaterialIsACopy(t *testing.T) {
	c := catalog(t)
	r, err := c.Material("moss")
	require.NoError(t, err)
	r.Nodes[0].Parameters["disorder"] = 99.0
	r.Nodes[0].Position[0] = 1

	again, err := c.Material("moss")
	require.NoError(t, err)
	assert.Equal(t, 0.7, again.Nodes[0].Parameters["disorder"])
	assert.Equal(t, -800.0, again.Nodes[0].Position[0])
}

func TestWithOverridesAndOffset(t *testing.T) {
	r, err := catalog(t).Material("wood_oak")
	require.NoError(t, err)

	out := r.WithOverrides(map[string]map[string]any{
		"warp1":         {"intensity": 0.9},
		"pbr_color_lvl": {"levelinmid": 0.4},
		"not_a_node":    {"x": 1},
	}).Offset(100, -50)

	byAlias := make(map[string]batch.NodeSpec)
	for _, n := range out.Nodes {
		byAlias[n.IDAlias] = n
	}
	assert.Equal(t, 0.9, byAlias["warp1"].Parameters["intensity"])
	assert.Equal(t, map[string]any{"levelinmid": 0.4}, byAlias["pbr_color_lvl"].Parameters)
	assert.Equal(t, []float64{-700, -50}, byAlias["perlin_grain"].Position)

	// The source recipe is untouched.
	assert.Equal(t, 0.35, r.Nodes[6].Parameters["intensity"])
	assert.Equal(t, []float64{-800, 0}, r.Nodes[0].Position)
}

func TestPreview(t *testing.T) {
	r, err := catalog(t).Material("wood_oak")
	require.NoError(t, err)

	p := r.Preview(20)
	require.Len(t, p, 20)
	assert.Equal(t, Preview{Alias: "perlin_grain", Type: "perlin_noise"}, p[0])
	assert.Equal(t, Preview{Alias: "grain_transform", Type: "sbs::compositing::transformation"}, p[1])
	assert.Len(t, r.Preview(3), 3)
}

func TestHeightmapParams(t *testing.T) {
	c := catalog(t)
	assert.Equal(t, []string{"cliff", "rock", "sand", "terrain"}, c.Styles())

	r, err := c.Heightmap("rock", DefaultHeightmapParams)
	require.NoError(t, err)
	assert.Equal(t, "rock", r.Key)
	assert.Equal(t, "heightmap", r.Category)
	assert.Equal(t, "hm_perlin", r.Nodes[1].IDAlias)
	assert.Equal(t, map[string]any{"value": 10.0, "type": "int"}, r.Nodes[1].Parameters["scale"])
	assert.Equal(t, 0.25, r.Nodes[1].Parameters["disorder"])

	r, err = c.Heightmap("Rock", HeightmapParams{DetailLevel: 3, Scale: 4, Disorder: 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": 12.0, "type": "int"}, r.Nodes[1].Parameters["scale"])
	assert.Equal(t, 0.5, r.Nodes[1].Parameters["disorder"])

	last := r.Nodes[len(r.Nodes)-1]
	assert.Equal(t, "hm_out", last.IDAlias)
	assert.Equal(t, "height", last.Usage)

	_, err = c.Heightmap("volcano", DefaultHeightmapParams)
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
	assert.Contains(t, err.Error(), "Heightmap style 'volcano' not found. Available: [cliff, rock, sand, terrain]")
}

func TestEveryRecipeBuildsCleanly(t *testing.T) {
	c := catalog(t)

	all := c.Materials()
	for _, s := range c.Styles() {
		r, err := c.Heightmap(s, DefaultHeightmapParams)
		require.NoError(t, err)
		all = append(all, r)
	}

	for _, r := range all {
		t.Run(r.Key, func(t *testing.T) {
			h := simhost.Default()
			p, err := h.NewUserPackage()
			require.NoError(t, err)
			g, err := p.NewGraph()
			require.NoError(t, err)

			report, err := batch.New(g, library.New(h)).Build(r.Nodes, r.Connections)
			require.NoError(t, err)

			assert.Empty(t, report.FailedNodes)
			for _, w := range report.Connections {
				assert.True(t, w.Success, "%s -> %s: %s", w.From, w.To, w.Error)
			}
			assert.Equal(t, len(r.Nodes), report.NodesCreated)
			assert.Equal(t, len(r.Connections), report.ConnectionsOK)
			for _, n := range report.Nodes {
				for id, outcome := range n.Params {
					assert.Equal(t, batch.ParamOK, outcome, "%s.%s", n.Alias, id)
				}
			}
		})
	}
}

func TestParseRejectsBrokenSource(t *testing.T) {
	_, err := Parse([]byte("materials: {"))
	assert.Error(t, err)
}
