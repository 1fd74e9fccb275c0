package command

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/testutil"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultGraphName},
		{"Rock", "Rock"},
		{"My Graph!", "My_Graph_"},
		{"3d terrain", "G_3d_terrain"},
		{"_private", "G__private"},
		{"wood-oak.v2", "wood_oak_v2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeIdentifier(tt.in), "input %q", tt.in)
	}
}

func TestGetSceneInfo(t *testing.T) {
	d, _ := newDispatcher(t)

	info := must[SceneInfo](t, d, GetSceneInfo, nil)
	assert.Equal(t, 1, info.PackageCount)
	require.Len(t, info.Packages, 1)
	assert.Equal(t, "user/sandbox.sbs", info.Packages[0].FilePath)
	require.Len(t, info.Packages[0].Graphs, 1)
	assert.Equal(t, GraphSummary{Identifier: "Sandbox", Type: host.ClassCompGraph}, info.Packages[0].Graphs[0])
	assert.Empty(t, info.CurrentGraph)
	assert.Equal(t, "15.0.3-sim", info.HostVersion)
	assert.Equal(t, "test", info.GatewayVersion)
}

func TestGraphResolution(t *testing.T) {
	d, _ := newDispatcher(t)

	// No identifier and nothing focused: first graph of the first user package.
	info := must[GraphInfo](t, d, GetGraphInfo, nil)
	assert.Equal(t, "Sandbox", info.Identifier)

	_, err := call(t, d, GetGraphInfo, map[string]any{"graph_identifier": "Nope"})
	require.Error(t, err)
	assert.True(t, gwerr.IsNotFound(err))
	assert.Contains(t, err.Error(), "Graph 'Nope' not found")

	must[GraphCreated](t, d, CreateGraph, map[string]any{"graph_name": "Second"})
	must[map[string]any](t, d, OpenGraph, map[string]any{"graph_identifier": "Second"})

	// The focused graph now wins over package order.
	info = must[GraphInfo](t, d, GetGraphInfo, nil)
	assert.Equal(t, "Second", info.Identifier)
}

func TestCreateGraph(t *testing.T) {
	d, _ := newDispatcher(t)

	created := must[GraphCreated](t, d, CreateGraph, map[string]any{"graph_name": "3d terrain"})
	assert.Equal(t, GraphCreated{
		Identifier:    "G_3d_terrain",
		RequestedName: "3d terrain",
		SanitizedName: "G_3d_terrain",
		Type:          host.ClassCompGraph,
		Package:       "user/sandbox.sbs",
	}, created)

	created = must[GraphCreated](t, d, CreateGraph, map[string]any{"graph_name": "Sandbox"})
	assert.Equal(t, "Sandbox_1", created.Identifier, "the host uniquifies a taken identifier")

	created = must[GraphCreated](t, d, CreateGraph, nil)
	assert.Equal(t, DefaultGraphName, created.Identifier)
}

func TestResolvePackageErrors(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := call(t, d, CreateGraph, map[string]any{"package_index": 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Package index 5 out of range (have 1)")

	_, err = call(t, d, CreateGraph, map[string]any{"package_path": "elsewhere.sbs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Package 'elsewhere.sbs' not found")

	_, err = call(t, d, CreateGraph, map[string]any{"package_index": -1})
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeInvalidParams, gwerr.CodeOf(err))
}

func TestNoUserPackages(t *testing.T) {
	scene := simhost.DefaultScene()
	scene.Packages = scene.Packages[:3]
	s := testutil.NewSessionWith(t, simhost.New(scene))
	d := New(s.Host, s.Bridge)

	_, err := call(t, d, CreateGraph, map[string]any{"graph_name": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No user packages loaded")

	_, err = call(t, d, GetGraphInfo, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No graph available")
}

func TestCreatePackage(t *testing.T) {
	d, s := newDispatcher(t)

	out := must[map[string]any](t, d, CreatePackage, nil)
	assert.Equal(t, "", out["file_path"])

	out = must[map[string]any](t, d, CreatePackage, map[string]any{"file_path": "new/mat.sbs"})
	assert.Equal(t, "new/mat.sbs", out["file_path"])
	assert.Equal(t, "New package created and saved.", out["message"])

	created := must[GraphCreated](t, d, CreateGraph, map[string]any{"package_path": "new/mat.sbs", "graph_name": "Mat"})
	assert.Equal(t, "new/mat.sbs", created.Package)

	s.Do(t, func(h *simhost.Host) {
		assert.Len(t, h.UserPackages(), 3)
		assert.True(t, h.Saved("new/mat.sbs"))
	})
}

func TestDeleteGraph(t *testing.T) {
	d, _ := newDispatcher(t)

	out := must[map[string]any](t, d, DeleteGraph, map[string]any{"graph_identifier": "Sandbox"})
	assert.Equal(t, "Sandbox", out["deleted"])

	_, err := call(t, d, DeleteGraph, map[string]any{"graph_identifier": "Sandbox"})
	assert.True(t, gwerr.IsNotFound(err))

	_, err = call(t, d, GetGraphInfo, nil)
	assert.True(t, gwerr.IsNotFound(err))
}

func TestOpenGraph(t *testing.T) {
	d, _ := newDispatcher(t)

	out := must[map[string]any](t, d, OpenGraph, map[string]any{"graph_identifier": "Sandbox"})
	assert.Equal(t, true, out["success"])

	info := must[SceneInfo](t, d, GetSceneInfo, nil)
	assert.Equal(t, "Sandbox", info.CurrentGraph)
}

func TestSavePackage(t *testing.T) {
	d, s := newDispatcher(t)
	path := filepath.Join(t.TempDir(), "nested", "dir", "sandbox.sbs")

	out := must[map[string]any](t, d, SavePackage, map[string]any{"file_path": path})
	assert.Equal(t, path, out["saved_to"])
	assert.DirExists(t, filepath.Dir(path))

	// Saving again without a path reuses the package's own.
	out = must[map[string]any](t, d, SavePackage, nil)
	assert.Equal(t, path, out["saved_to"])

	s.Do(t, func(h *simhost.Host) {
		assert.True(t, h.Saved(path))
	})

	must[map[string]any](t, d, CreatePackage, nil)
	_, err := call(t, d, SavePackage, map[string]any{"package_index": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Package has no file path")
}

func TestGraphInfoAndSnapshot(t *testing.T) {
	d, _ := newDispatcher(t)

	a := must[NodeCreated](t, d, CreateNode, map[string]any{"definition_id": "uniform"})
	b := must[NodeCreated](t, d, CreateNode, map[string]any{"definition_id": "levels", "position": []float64{200, 0}})
	must[Connected](t, d, ConnectNodes, map[string]any{"from_node_id": a.NodeID, "to_node_id": b.NodeID})

	info := must[GraphInfo](t, d, GetGraphInfo, nil)
	assert.Equal(t, 2, info.NodeCount)
	require.Len(t, info.Nodes, 2)
	assert.Equal(t, []Link{{Input: "input1", FromNode: a.NodeID, FromOutput: "unique_filter_output"}}, info.Nodes[1].Connections)

	info = must[GraphInfo](t, d, GetGraphInfo, map[string]any{"node_limit": 1, "include_connections": false})
	assert.True(t, info.Truncated)
	assert.Len(t, info.Nodes, 1)
	assert.Empty(t, info.Nodes[0].Connections)

	snap := must[Snapshot](t, d, GraphSnapshot, nil)
	assert.Equal(t, "Sandbox", snap.GraphIdentifier)
	assert.Equal(t, 2, snap.NodeCount)
	assert.Equal(t, []SnapshotLink{{
		FromNode:   a.NodeID,
		FromOutput: "unique_filter_output",
		ToNode:     b.NodeID,
		ToInput:    "input1",
	}}, snap.Connections)
	assert.Equal(t, []float64{200, 0}, snap.Nodes[1].Position)
}
