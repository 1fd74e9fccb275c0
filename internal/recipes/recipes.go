// Package recipes compiles the embedded CUE recipe catalog into batch specs.
//
// Material recipes are fixed node/connection lists. Heightmap styles are
// parametric: detail level, scale and disorder are filled into the CUE
// template before it is exported.
package recipes

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
)

//go:embed catalog.cue
var catalogSource []byte

// Recipe is a named set of node and connection specs.
type Recipe struct {
	Key         string           `json:"key"`
	Name        string           `json:"name,omitempty"`
	Category    string           `json:"category,omitempty"`
	Description string           `json:"description"`
	Outputs     []string         `json:"outputs,omitempty"`
	Nodes       []batch.NodeSpec `json:"nodes"`
	Connections []batch.ConnSpec `json:"connections"`
}

// Preview is one row of a recipe's node preview.
type Preview struct {
	Alias string `json:"alias"`
	Type  string `json:"type"`
}

// HeightmapParams parameterize a heightmap style.
type HeightmapParams struct {
	DetailLevel int     `json:"detail_level"`
	Scale       float64 `json:"scale"`
	Disorder    float64 `json:"disorder"`
}

// DefaultHeightmapParams are the style defaults.
var DefaultHeightmapParams = HeightmapParams{DetailLevel: 2, Scale: 5.0, Disorder: 0.5}

// Catalog holds the compiled recipes.
type Catalog struct {
	materials map[string]Recipe

	mu         sync.Mutex // guards heightmaps; cue values are not safe for concurrent use
	heightmaps map[string]cue.Value
	styles     []string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled from the embedded source.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogSource)
	})
	return defaultCatalog, defaultErr
}

// Parse compiles a catalog from CUE source.
func Parse(src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("catalog.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile recipe catalog: %s", cueerrors.Details(err, nil))
	}

	c := &Catalog{
		materials:  make(map[string]Recipe),
		heightmaps: make(map[string]cue.Value),
	}

	mats := v.LookupPath(cue.ParsePath("materials"))
	if mats.Exists() {
		if err := mats.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("recipe catalog materials: %s", cueerrors.Details(err, nil))
		}
		raw, err := mats.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("export materials: %w", err)
		}
		if err := json.Unmarshal(raw, &c.materials); err != nil {
			return nil, fmt.Errorf("decode materials: %w", err)
		}
	}

	hms := v.LookupPath(cue.ParsePath("heightmaps"))
	if hms.Exists() {
		iter, err := hms.Fields()
		if err != nil {
			return nil, fmt.Errorf("iterate heightmaps: %w", err)
		}
		for iter.Next() {
			c.heightmaps[iter.Selector().String()] = iter.Value()
		}
	}
	c.styles = slices.Sorted(maps.Keys(c.heightmaps))

	// Every style must export with its defaults.
	for _, s := range c.styles {
		if _, err := c.Heightmap(s, DefaultHeightmapParams); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Key normalizes a recipe name: lowercased, spaces and dashes as
// underscores.
func Key(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

// Keys lists material recipe keys, sorted.
func (c *Catalog) Keys() []string {
	return slices.Sorted(maps.Keys(c.materials))
}

// Styles lists heightmap styles, sorted.
func (c *Catalog) Styles() []string {
	return slices.Clone(c.styles)
}

// Materials returns every material recipe, sorted by key.
func (c *Catalog) Materials() []Recipe {
	out := make([]Recipe, 0, len(c.materials))
	for _, k := range c.Keys() {
		out = append(out, c.materials[k])
	}
	return out
}

// Material returns a copy of the named material recipe.
func (c *Catalog) Material(name string) (Recipe, error) {
	r, ok := c.materials[Key(name)]
	if !ok {
		e := gwerr.NotFound("Use list_recipes to see every recipe", "Recipe '%s' not found", name)
		e.Valid = c.Keys()
		return Recipe{}, e
	}
	return r.clone(), nil
}

// Heightmap fills the named style with p and exports it.
func (c *Catalog) Heightmap(style string, p HeightmapParams) (Recipe, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(style)), " ", "_")

	c.mu.Lock()
	defer c.mu.Unlock()

	tmpl, ok := c.heightmaps[key]
	if !ok {
		e := gwerr.NotFound("Use list_recipes to see every heightmap style", "Heightmap style '%s' not found", style)
		e.Valid = c.styles
		return Recipe{}, e
	}

	filled := tmpl.FillPath(cue.ParsePath("params"), map[string]any{
		"detail_level": p.DetailLevel,
		"scale":        p.Scale,
		"disorder":     p.Disorder,
	})
	if err := filled.Validate(cue.Concrete(true)); err != nil {
		return Recipe{}, fmt.Errorf("heightmap %s: %s", key, cueerrors.Details(err, nil))
	}
	raw, err := filled.MarshalJSON()
	if err != nil {
		return Recipe{}, fmt.Errorf("export heightmap %s: %w", key, err)
	}
	var r Recipe
	if err := json.Unmarshal(raw, &r); err != nil {
		return Recipe{}, fmt.Errorf("decode heightmap %s: %w", key, err)
	}
	r.Key = key
	r.Category = "heightmap"
	r.Outputs = []string{"height"}
	return r, nil
}

// WithOverrides merges per-alias parameter overrides into the recipe's
// node specs. Aliases not in the recipe are ignored.
func (r Recipe) WithOverrides(overrides map[string]map[string]any) Recipe {
	out := r.clone()
	for i, n := range out.Nodes {
		params, ok := overrides[n.IDAlias]
		if !ok {
			continue
		}
		if out.Nodes[i].Parameters == nil {
			out.Nodes[i].Parameters = make(map[string]any, len(params))
		}
		maps.Copy(out.Nodes[i].Parameters, params)
	}
	return out
}

// Offset shifts every node position by (dx, dy).
func (r Recipe) Offset(dx, dy float64) Recipe {
	out := r.clone()
	for i, n := range out.Nodes {
		x, y := 0.0, 0.0
		if len(n.Position) >= 2 {
			x, y = n.Position[0], n.Position[1]
		}
		out.Nodes[i].Position = []float64{x + dx, y + dy}
	}
	return out
}

// Preview lists up to limit nodes by alias and kind.
func (r Recipe) Preview(limit int) []Preview {
	out := []Preview{}
	for _, n := range r.Nodes {
		if len(out) >= limit {
			break
		}
		typ := n.DefinitionID
		if typ == "" {
			typ = n.LibraryKeyword
		}
		if typ == "" {
			typ = "?"
		}
		out = append(out, Preview{Alias: n.IDAlias, Type: typ})
	}
	return out
}

func (r Recipe) clone() Recipe {
	out := r
	out.Outputs = slices.Clone(r.Outputs)
	out.Connections = slices.Clone(r.Connections)
	out.Nodes = make([]batch.NodeSpec, len(r.Nodes))
	for i, n := range r.Nodes {
		n.Position = slices.Clone(n.Position)
		if n.Parameters != nil {
			n.Parameters = maps.Clone(n.Parameters)
		}
		out.Nodes[i] = n
	}
	return out
}

// Summary renders the catalog as a fixed-width listing.
func (c *Catalog) Summary() (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "materials (%d)\n", len(c.materials))
	for _, r := range c.Materials() {
		fmt.Fprintf(&b, "  %-12s %-8s %3d nodes %3d connections  %s\n",
			r.Key, r.Category, len(r.Nodes), len(r.Connections), r.Name)
	}

	styles := c.Styles()
	sort.Strings(styles)
	fmt.Fprintf(&b, "heightmaps (%d)\n", len(styles))
	for _, s := range styles {
		r, err := c.Heightmap(s, DefaultHeightmapParams)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %-12s %-8s %3d nodes %3d connections  %s\n",
			r.Key, r.Category, len(r.Nodes), len(r.Connections), r.Description)
	}
	return b.String(), nil
}
