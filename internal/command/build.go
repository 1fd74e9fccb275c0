package command

import (
	"context"

	"github.com/roach88/graphgate/internal/batch"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/recipes"
	"github.com/roach88/graphgate/internal/value"
)

// BatchResult is the result of create_batch_graph and the recipe builders.
type BatchResult struct {
	GraphIdentifier string   `json:"graph_identifier"`
	RequestedName   string   `json:"requested_name"`
	Recipe          string   `json:"recipe,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	*batch.Report
}

func (d *Dispatcher) createBatchGraph(_ context.Context, p batchGraphParams) (any, error) {
	return d.createBatch(p.buildTarget, "", p.Nodes, p.Connections)
}

// createBatch builds nodes and connections into a fresh graph. Failing to
// size or open the graph is reported as a warning, not an error.
func (d *Dispatcher) createBatch(t buildTarget, recipe string, nodes []batch.NodeSpec, conns []batch.ConnSpec) (*BatchResult, error) {
	name := SanitizeIdentifier(t.GraphName)
	pkg, err := d.resolvePackage(t.packageRef)
	if err != nil {
		return nil, err
	}
	g, err := newGraph(pkg, name)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{GraphIdentifier: g.Identifier(), RequestedName: t.GraphName, Recipe: recipe}
	size := int64(t.OutputSizeLog2)
	if err := g.SetInputValue("$outputsize", value.Int2{size, size}); err != nil {
		d.logger.Warn("output size not set", "graph", g.Identifier(), "error", err)
		res.Warnings = append(res.Warnings, "output size not set: "+err.Error())
	}

	report, err := batch.New(g, d.resolver, batch.WithLogger(d.logger)).Build(nodes, conns)
	if err != nil {
		return nil, err
	}
	res.Report = report

	if t.OpenInEditor {
		if err := d.host.OpenInEditor(g); err != nil {
			res.Warnings = append(res.Warnings, "graph not opened: "+err.Error())
		}
	}
	d.logger.Info("batch built",
		"graph", res.GraphIdentifier,
		"recipe", recipe,
		"nodes", report.NodesCreated,
		"nodes_failed", report.NodesFailed,
		"connections", report.ConnectionsOK,
		"connections_failed", report.ConnectionsFailed)
	return res, nil
}

func (d *Dispatcher) buildMaterialGraph(_ context.Context, p materialGraphParams) (any, error) {
	c, err := d.recipeCatalog()
	if err != nil {
		return nil, err
	}
	r, err := c.Material(p.RecipeName)
	if err != nil {
		return nil, err
	}
	r = r.WithOverrides(p.Overrides)
	return d.createBatch(p.buildTarget, r.Key, r.Nodes, r.Connections)
}

func (d *Dispatcher) buildHeightmapGraph(_ context.Context, p heightmapGraphParams) (any, error) {
	c, err := d.recipeCatalog()
	if err != nil {
		return nil, err
	}
	r, err := c.Heightmap(p.Style, recipes.HeightmapParams{
		DetailLevel: p.DetailLevel,
		Scale:       p.Scale,
		Disorder:    p.Disorder,
	})
	if err != nil {
		return nil, err
	}
	return d.createBatch(p.buildTarget, "heightmap_"+r.Key, r.Nodes, r.Connections)
}

// Applied is the result of apply_recipe.
type Applied struct {
	GraphIdentifier   string            `json:"graph_identifier"`
	Recipe            string            `json:"recipe"`
	NodesAdded        int               `json:"nodes_added"`
	NodesFailed       int               `json:"nodes_failed"`
	ConnectionsOK     int               `json:"connections_ok"`
	ConnectionsFailed int               `json:"connections_failed"`
	NodeMap           map[string]string `json:"node_map"`
	FailedNodes       []batch.Failed    `json:"failed_nodes"`
}

// applyRecipe adds a material recipe to an existing graph.
func (d *Dispatcher) applyRecipe(_ context.Context, p applyRecipeParams) (any, error) {
	c, err := d.recipeCatalog()
	if err != nil {
		return nil, err
	}
	r, err := c.Material(p.RecipeName)
	if err != nil {
		return nil, err
	}
	if len(p.PositionOffset) >= 2 {
		r = r.Offset(p.PositionOffset[0], p.PositionOffset[1])
	}
	r = r.WithOverrides(p.Overrides)

	g, err := d.resolveGraph(p.graphRef)
	if err != nil {
		return nil, err
	}
	report, err := batch.New(g, d.resolver, batch.WithLogger(d.logger)).Build(r.Nodes, r.Connections)
	if err != nil {
		return nil, err
	}
	return Applied{
		GraphIdentifier:   g.Identifier(),
		Recipe:            r.Key,
		NodesAdded:        report.NodesCreated,
		NodesFailed:       report.NodesFailed,
		ConnectionsOK:     report.ConnectionsOK,
		ConnectionsFailed: report.ConnectionsFailed,
		NodeMap:           report.NodeMap,
		FailedNodes:       report.FailedNodes,
	}, nil
}

// RecipeSummary is one row of list_recipes.
type RecipeSummary struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	NodeCount   int      `json:"node_count"`
	Outputs     []string `json:"outputs"`
}

// StyleSummary is one heightmap style in list_recipes.
type StyleSummary struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	NodeCount   int      `json:"node_count"`
	Parameters  []string `json:"parameters"`
}

// RecipeList is the result of list_recipes.
type RecipeList struct {
	MaterialRecipes      []RecipeSummary `json:"material_recipes"`
	HeightmapStyles      []StyleSummary  `json:"heightmap_styles"`
	TotalRecipes         int             `json:"total_recipes"`
	TotalHeightmapStyles int             `json:"total_heightmap_styles"`
}

func (d *Dispatcher) listRecipes(_ context.Context, _ noParams) (any, error) {
	c, err := d.recipeCatalog()
	if err != nil {
		return nil, err
	}
	out := RecipeList{MaterialRecipes: []RecipeSummary{}, HeightmapStyles: []StyleSummary{}}
	for _, r := range c.Materials() {
		out.MaterialRecipes = append(out.MaterialRecipes, RecipeSummary{
			Key:         r.Key,
			Name:        r.Name,
			Category:    r.Category,
			Description: r.Description,
			NodeCount:   len(r.Nodes),
			Outputs:     r.Outputs,
		})
	}
	for _, style := range c.Styles() {
		r, err := c.Heightmap(style, recipes.DefaultHeightmapParams)
		if err != nil {
			return nil, err
		}
		out.HeightmapStyles = append(out.HeightmapStyles, StyleSummary{
			Key:         style,
			Description: r.Description,
			NodeCount:   len(r.Nodes),
			Parameters:  []string{"detail_level", "scale", "disorder"},
		})
	}
	out.TotalRecipes = len(out.MaterialRecipes)
	out.TotalHeightmapStyles = len(out.HeightmapStyles)
	return out, nil
}

// RecipeInfo is the result of get_recipe_info.
type RecipeInfo struct {
	Key          string           `json:"key"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Outputs      []string         `json:"outputs"`
	NodeCount    int              `json:"node_count"`
	Connections  int              `json:"connection_count"`
	NodesPreview []recipes.Preview `json:"nodes_preview"`
}

func (d *Dispatcher) getRecipeInfo(_ context.Context, p recipeInfoParams) (any, error) {
	c, err := d.recipeCatalog()
	if err != nil {
		return nil, err
	}
	r, err := c.Material(p.RecipeName)
	if err != nil {
		if !gwerr.IsNotFound(err) {
			return nil, err
		}
		// Heightmap styles answer too, with their default parameters.
		hm, herr := c.Heightmap(p.RecipeName, recipes.DefaultHeightmapParams)
		if herr != nil {
			return nil, err
		}
		r = hm
	}
	return RecipeInfo{
		Key:          r.Key,
		Name:         r.Name,
		Category:     r.Category,
		Description:  r.Description,
		Outputs:      r.Outputs,
		NodeCount:    len(r.Nodes),
		Connections:  len(r.Connections),
		NodesPreview: r.Preview(20),
	}, nil
}
