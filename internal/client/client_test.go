package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/testutil"
	"github.com/roach88/graphgate/internal/wire"
)

// echo returns the command kind and params it received.
type echo struct{}

func (echo) Dispatch(_ context.Context, kind string, params json.RawMessage) (any, error) {
	switch kind {
	case "fail":
		return nil, errors.New("it broke")
	case "nothing":
		return nil, nil
	}
	return map[string]any{"kind": kind, "params": params}, nil
}

func TestSendReturnsResult(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})
	c := New(addr)

	res, err := c.Send(context.Background(), "get_node_info", map[string]any{"node_id": "1001"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"get_node_info","params":{"node_id":"1001"}}`, string(res))
}

func TestSendNilParamsSendsEmptyObject(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})

	res, err := New(addr).Send(context.Background(), "get_scene_info", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"get_scene_info","params":{}}`, string(res))
}

func TestSendRawParams(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})
	c := New(addr)

	res, err := c.Send(context.Background(), "move_node", json.RawMessage(`{"position":[1,2]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"move_node","params":{"position":[1,2]}}`, string(res))

	_, err = c.Send(context.Background(), "move_node", json.RawMessage(`{"position":`))
	require.Error(t, err)
	assert.Equal(t, gwerr.CodeProtocol, gwerr.CodeOf(err))
}

func TestSendEmptyResultIsObject(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})

	res, err := New(addr).Send(context.Background(), "nothing", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(res))
}

func TestSendRemoteError(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})

	_, err := New(addr).Send(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.True(t, IsRemote(err))
	assert.False(t, IsConnect(err))
	assert.Equal(t, "it broke", err.Error())
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestConnectFailuresAreRetried(t *testing.T) {
	var dials atomic.Int32
	c := New(closedAddr(t), WithRetries(2, 10*time.Millisecond))
	inner := c.dialer
	c.dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials.Add(1)
		return inner(ctx, network, addr)
	}

	_, err := c.Send(context.Background(), "get_scene_info", nil)
	require.Error(t, err)
	assert.True(t, IsConnect(err))
	assert.Equal(t, int32(3), dials.Load())

	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Attempts)
	assert.Contains(t, err.Error(), "cannot connect to gateway")
}

func TestRetryRecoversWhenGatewayAppears(t *testing.T) {
	addr := testutil.StartGateway(t, echo{})

	var dials atomic.Int32
	c := New(addr, WithRetries(2, 10*time.Millisecond))
	inner := c.dialer
	c.dialer = func(ctx context.Context, network, a string) (net.Conn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return inner(ctx, network, a)
	}

	_, err := c.Send(context.Background(), "get_scene_info", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), dials.Load())
}

func TestTimeoutIsNotRetried(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			// Read the request, never answer; wait for the client to hang up.
			_, _ = wire.ReadFrame(conn, 0)
			_, _ = wire.ReadFrame(conn, 0)
			conn.Close()
		}
	}()

	c := New(l.Addr().String(), WithTimeout(100*time.Millisecond), WithRetries(2, 10*time.Millisecond))
	_, err = c.Send(context.Background(), "build_material_graph", nil)
	require.Error(t, err)
	assert.True(t, gwerr.IsTimeout(err), "got %v", err)
	assert.Contains(t, err.Error(), "build_material_graph")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), accepted.Load())
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(closedAddr(t), WithRetries(5, time.Hour))
	_, err := c.Send(ctx, "get_scene_info", nil)
	require.Error(t, err)
	assert.True(t, IsConnect(err))
}

func TestDefaultAddr(t *testing.T) {
	assert.Equal(t, "localhost:9881", New("").Addr())
}
