// Package command maps wire commands onto host operations.
//
// Dispatch decodes a command's parameters into its typed parameter struct,
// validates them, and runs the handler on the bridge's owning context. Every
// handler touches the host only from there. Validation of ports, node kinds
// and values happens before the host is asked to mutate anything.
package command

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/library"
	"github.com/roach88/graphgate/internal/recipes"
)

const (
	// DefaultGraphName is used when a graph name sanitizes to nothing.
	DefaultGraphName = "MCP_Graph"

	// DefaultOutputSizeLog2 is 2048 pixels per side.
	DefaultOutputSizeLog2 = 11
)

// Dispatcher routes commands to handlers. It is safe for concurrent use:
// all host access is serialized through the bridge.
type Dispatcher struct {
	host     host.Host
	bridge   *bridge.Bridge
	resolver *library.Resolver
	catalog  *recipes.Catalog
	logger   *slog.Logger
	version  string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithCatalog sets the recipe catalog. Defaults to the embedded catalog.
func WithCatalog(c *recipes.Catalog) Option {
	return func(d *Dispatcher) { d.catalog = c }
}

// WithVersion sets the gateway version reported by get_scene_info and
// diagnostic.
func WithVersion(v string) Option {
	return func(d *Dispatcher) { d.version = v }
}

// New returns a Dispatcher driving h through b.
func New(h host.Host, b *bridge.Bridge, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		host:    h,
		bridge:  b,
		logger:  slog.Default(),
		version: "dev",
	}
	if h != nil {
		d.resolver = library.New(h)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolver returns the session's library resolver.
func (d *Dispatcher) Resolver() *library.Resolver {
	return d.resolver
}

// Dispatch runs one command and returns its result.
func (d *Dispatcher) Dispatch(ctx context.Context, kind string, params json.RawMessage) (any, error) {
	k := Kind(kind)
	d.logger.Debug("command dispatched", "kind", kind)

	switch k {
	// Scene
	case GetSceneInfo:
		return run(ctx, d, k, params, d.getSceneInfo)
	case CreatePackage:
		return run(ctx, d, k, params, d.createPackage)
	case CreateGraph:
		return run(ctx, d, k, params, d.createGraph)
	case DeleteGraph:
		return run(ctx, d, k, params, d.deleteGraph)
	case OpenGraph:
		return run(ctx, d, k, params, d.openGraph)
	case GetGraphInfo:
		return run(ctx, d, k, params, d.getGraphInfo)
	case SavePackage:
		return run(ctx, d, k, params, d.savePackage)
	case GraphSnapshot:
		return run(ctx, d, k, params, d.graphSnapshot)
	case Diagnostic:
		if !d.bridge.Available() {
			return d.offlineDiagnostic(), nil
		}
		return run(ctx, d, k, params, d.diagnostic)

	// Nodes
	case ListNodeDefinitions:
		return run(ctx, d, k, params, d.listNodeDefinitions)
	case CreateNode:
		return run(ctx, d, k, params, d.createNode)
	case CreateInstanceNode:
		return run(ctx, d, k, params, d.createInstanceNode)
	case CreateOutputNode:
		return run(ctx, d, k, params, d.createOutputNode)
	case DeleteNode:
		return run(ctx, d, k, params, d.deleteNode)
	case MoveNode:
		return run(ctx, d, k, params, d.moveNode)
	case DuplicateNode:
		return run(ctx, d, k, params, d.duplicateNode)
	case GetNodeInfo:
		return run(ctx, d, k, params, d.getNodeInfo)
	case GetLibraryNodes:
		return run(ctx, d, k, params, d.getLibraryNodes)

	// Connections and parameters
	case ConnectNodes:
		return run(ctx, d, k, params, d.connectNodes)
	case DisconnectNodes:
		return run(ctx, d, k, params, d.disconnectNodes)
	case SmartConnect:
		return run(ctx, d, k, params, d.smartConnect)
	case SetParameter:
		return run(ctx, d, k, params, d.setParameter)
	case SetGraphOutputSize:
		return run(ctx, d, k, params, d.setGraphOutputSize)

	// Batch builds and recipes
	case CreateBatchGraph:
		return run(ctx, d, k, params, d.createBatchGraph)
	case BuildMaterialGraph:
		return run(ctx, d, k, params, d.buildMaterialGraph)
	case BuildHeightmapGraph:
		return run(ctx, d, k, params, d.buildHeightmapGraph)
	case ApplyRecipe:
		return run(ctx, d, k, params, d.applyRecipe)
	case ListRecipes:
		return run(ctx, d, k, params, d.listRecipes)
	case GetRecipeInfo:
		return run(ctx, d, k, params, d.getRecipeInfo)

	default:
		return nil, gwerr.UnknownCommand(kind, Names())
	}
}

// run decodes P and runs fn on the owner. Parameter errors are reported
// without queuing any work.
func run[P any](ctx context.Context, d *Dispatcher, k Kind, raw json.RawMessage, fn func(context.Context, P) (any, error)) (any, error) {
	p, err := decode[P](k, raw)
	if err != nil {
		return nil, err
	}
	return d.bridge.RunOnOwner(ctx, string(k), func(ctx context.Context) (any, error) {
		return fn(ctx, p)
	})
}

// recipeCatalog returns the catalog, loading the embedded one on first use.
func (d *Dispatcher) recipeCatalog() (*recipes.Catalog, error) {
	if d.catalog != nil {
		return d.catalog, nil
	}
	return recipes.Default()
}
