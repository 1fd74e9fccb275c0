package testutil

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/server"
	"github.com/roach88/graphgate/internal/wire"
)

// StartGateway serves d on an ephemeral localhost port and returns the
// bound address. The server stops when the test ends.
func StartGateway(t testing.TB, d server.Dispatcher, opts ...server.Option) string {
	t.Helper()
	srv := server.New(d, []string{"127.0.0.1:0"}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		cancel()
		require.NoError(t, err, "gateway failed to start")
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("gateway did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		<-errCh
	})

	addrs := srv.Addrs()
	require.NotEmpty(t, addrs)
	return addrs[0].String()
}

// RoundTrip sends payload as one frame on a fresh connection and returns the
// raw response payload.
func RoundTrip(t testing.TB, addr string, payload []byte) []byte {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	require.NoError(t, wire.WriteFrame(conn, payload))
	resp, err := wire.ReadFrame(conn, 0)
	require.NoError(t, err)
	return resp
}

// SendHeader writes only a length prefix declaring n bytes and reports
// whether the server closed the connection without replying.
func SendHeader(t testing.TB, addr string, n uint32) bool {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	var header [wire.HeaderSize]byte
	binary.BigEndian.PutUint32(header[:], n)
	_, err = conn.Write(header[:])
	require.NoError(t, err)

	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	return err == io.EOF
}
