package command

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/testutil"
)

func newDispatcher(t *testing.T) (*Dispatcher, *testutil.Session) {
	t.Helper()
	s := testutil.NewSession(t)
	return New(s.Host, s.Bridge, WithVersion("test")), s
}

// call dispatches kind with params marshalled to JSON.
func call(t *testing.T, d *Dispatcher, kind Kind, params any) (any, error) {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	return d.Dispatch(context.Background(), string(kind), raw)
}

// must is call for commands expected to succeed.
func must[T any](t *testing.T, d *Dispatcher, kind Kind, params any) T {
	t.Helper()
	v, err := call(t, d, kind, params)
	require.NoError(t, err)
	out, ok := v.(T)
	require.True(t, ok, "result of %s is %T", kind, v)
	return out
}

func TestUnknownCommandListsKinds(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := call(t, d, "make_coffee", nil)
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeUnknownCommand, gwerr.CodeOf(err))

	var e *gwerr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Names(), e.Valid)
	assert.Contains(t, e.Valid, "get_scene_info")
}

func TestKindsAreComplete(t *testing.T) {
	d, _ := newDispatcher(t)
	for _, k := range Kinds() {
		_, err := call(t, d, k, map[string]any{"__probe": true})
		assert.NotEqual(t, gwerr.CodeUnknownCommand, gwerr.CodeOf(err), "kind %s has no handler", k)
	}
}

func TestUnknownParamFieldRejected(t *testing.T) {
	d, s := newDispatcher(t)

	_, err := call(t, d, CreateNode, map[string]any{
		"definition_id": "sbs::compositing::blend",
		"colour":        "red",
	})
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeInvalidParams, gwerr.CodeOf(err))
	assert.Contains(t, err.Error(), "colour")

	s.Do(t, func(h *simhost.Host) {
		children, err := h.UserPackages()[0].Children(false)
		assert.NoError(t, err)
		assert.Empty(t, children[0].(host.Graph).Nodes(), "no node may be created from rejected params")
	})
}

func TestValidationFailures(t *testing.T) {
	d, _ := newDispatcher(t)

	tests := []struct {
		name   string
		kind   Kind
		params any
		want   string
	}{
		{"missing required", CreateNode, map[string]any{}, "definition_id: required"},
		{"position too short", MoveNode, map[string]any{"node_id": "1", "position": []float64{1}}, "position: xy"},
		{"output size range", SetGraphOutputSize, map[string]any{"width_log2": 14}, "width_log2: lte=13"},
		{"detail level range", BuildHeightmapGraph, map[string]any{"graph_name": "h", "style": "rock", "detail_level": 4}, "detail_level: lte=3"},
		{"wrong json type", GetGraphInfo, map[string]any{"node_limit": "many"}, "node_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, d, tt.kind, tt.params)
			require.Error(t, err)
			assert.Equal(t, gwerr.CodeInvalidParams, gwerr.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNullParamsUseDefaults(t *testing.T) {
	d, _ := newDispatcher(t)

	v, err := d.Dispatch(context.Background(), string(GetGraphInfo), json.RawMessage("null"))
	require.NoError(t, err)
	info := v.(GraphInfo)
	assert.Equal(t, "Sandbox", info.Identifier)
	assert.Equal(t, 100, info.NodeLimit)
}

func TestUnavailableBridgeFailsFast(t *testing.T) {
	d := New(simhost.Default(), bridge.Unavailable("host integration not loaded"))

	_, err := call(t, d, GetSceneInfo, nil)
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeUnavailable, gwerr.CodeOf(err))
	assert.Contains(t, err.Error(), "host integration not loaded")
}

func TestDiagnosticOffline(t *testing.T) {
	d := New(simhost.Default(), bridge.Unavailable("no host"), WithVersion("1.2.3"))

	h := must[Health](t, d, Diagnostic, nil)
	assert.False(t, h.HostRunning)
	assert.False(t, h.BridgeAvailable)
	assert.Equal(t, "1.2.3", h.GatewayVersion)
	assert.Positive(t, h.StaticKinds)
}

func TestDiagnostic(t *testing.T) {
	d, _ := newDispatcher(t)

	must[LibraryNodes](t, d, GetLibraryNodes, map[string]any{"filter_text": "perlin"})
	h := must[Health](t, d, Diagnostic, nil)
	assert.True(t, h.HostRunning)
	assert.True(t, h.BridgeAvailable)
	assert.Equal(t, "15.0.3-sim", h.HostVersion)
	assert.Equal(t, "test", h.GatewayVersion)
	assert.Equal(t, 1, h.UserPackages)
	assert.Equal(t, []string{"user/sandbox.sbs"}, h.PackageFiles)
	assert.Equal(t, 4, h.LoadedPackages)
	assert.Equal(t, 1, h.LibraryCacheEntries)
}

func TestEveryKindIsDescribed(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEmpty(t, k.Description(), "kind %s", k)
	}
	assert.Empty(t, Kind("make_coffee").Description())
}
