package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/host/simhost"
)

// Session is a simulated host driven through a running bridge. The owner
// loop stops when the test ends.
type Session struct {
	Host   *simhost.Host
	Bridge *bridge.Bridge
}

// NewSession starts a bridge over the embedded default scene.
func NewSession(t testing.TB, opts ...bridge.Option) *Session {
	t.Helper()
	return NewSessionWith(t, simhost.Default(), opts...)
}

// NewSessionWith starts a bridge over h.
func NewSessionWith(t testing.TB, h *simhost.Host, opts ...bridge.Option) *Session {
	t.Helper()
	s := &Session{Host: h, Bridge: bridge.New(opts...)}
	StartBridge(t, s.Bridge)
	return s
}

// StartBridge runs b's owner loop until the test ends.
func StartBridge(t testing.TB, b *bridge.Bridge) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// Do runs fn against the host on the owning context, so tests can inspect
// host state without racing the owner loop. fn runs off the test
// goroutine, so it must use assert rather than require.
func (s *Session) Do(t testing.TB, fn func(h *simhost.Host)) {
	t.Helper()
	_, err := s.Bridge.RunOnOwner(context.Background(), "test", func(context.Context) (any, error) {
		fn(s.Host)
		return nil, nil
	})
	require.NoError(t, err)
}
