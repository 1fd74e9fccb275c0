// Package server is the gateway's TCP front end.
//
// Each accepted connection carries exactly one framed request and receives
// exactly one framed response before it is closed. Every listener has its
// own accept goroutine, but all of them feed a single serving goroutine, so
// connections are handled one at a time in accept order. The host work a
// command triggers is serialized again by the bridge; the serving goroutine
// only bounds how many replies are in flight.
//
// # Failure handling
//
//   - malformed JSON gets an error response on the same connection
//   - a bad frame (empty, oversize, truncated) is logged and the connection
//     dropped without a reply
//   - a peer that stays silent past the client timeout is dropped
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/journal"
	"github.com/roach88/graphgate/internal/wire"
)

const (
	// DefaultPort is the gateway's well-known port.
	DefaultPort = 9881

	// DefaultClientTimeout is slightly longer than the bridge's command
	// timeout, so a slow command is reported as a timeout before the
	// connection deadline fires.
	DefaultClientTimeout = 130 * time.Second
)

// Dispatcher executes one decoded command.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind string, params json.RawMessage) (any, error)
}

// Recorder stores the outcome of each answered command.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Server accepts framed commands on one or more addresses.
type Server struct {
	dispatcher    Dispatcher
	addrs         []string
	logger        *slog.Logger
	clientTimeout time.Duration
	maxMessage    int
	recorder      Recorder
	clock         *bridge.Clock
	now           func() time.Time

	mu        sync.Mutex
	listeners []net.Listener
	ready     chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClientTimeout sets the per-connection deadline.
func WithClientTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.clientTimeout = d
		}
	}
}

// WithMaxMessageSize caps request payloads. Values <= 0 keep the wire
// default.
func WithMaxMessageSize(n int) Option {
	return func(s *Server) { s.maxMessage = n }
}

// WithJournal records every answered command to r.
func WithJournal(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithClock sets the clock that numbers received commands.
func WithClock(c *bridge.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithNow replaces the wall clock used for deadlines and durations.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server for addrs. An empty addrs listens on localhost at
// DefaultPort.
func New(d Dispatcher, addrs []string, opts ...Option) *Server {
	if len(addrs) == 0 {
		addrs = []string{Addr("localhost", DefaultPort)}
	}
	s := &Server{
		dispatcher:    d,
		addrs:         addrs,
		logger:        slog.Default(),
		clientTimeout: DefaultClientTimeout,
		clock:         bridge.NewClock(),
		now:           time.Now,
		ready:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr joins host and port.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Ready is closed once every listener that could bind is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addrs returns the bound listener addresses. Valid after Ready.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		out[i] = l.Addr()
	}
	return out
}

// Serve listens on every configured address and answers connections until
// ctx is cancelled. An address that fails to bind is logged and skipped;
// Serve fails only if none bind.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.listen(ctx); err != nil {
		return err
	}
	close(s.ready)

	conns := make(chan net.Conn)
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.listeners {
		g.Go(func() error {
			s.accept(gctx, l, conns)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.closeListeners()
		return nil
	})

	s.logger.Info("gateway listening", "addrs", s.Addrs())

serve:
	for {
		select {
		case <-gctx.Done():
			break serve
		case conn := <-conns:
			s.handle(gctx, conn)
		}
	}

	err := g.Wait()
	s.logger.Info("gateway stopped")
	if err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (s *Server) listen(ctx context.Context) error {
	var lc net.ListenConfig
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, addr := range s.addrs {
		l, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			s.logger.Warn("listen failed", "addr", addr, "error", err)
			continue
		}
		s.listeners = append(s.listeners, l)
	}
	if len(s.listeners) == 0 {
		return fmt.Errorf("no address could be bound: %v", s.addrs)
	}
	return nil
}

func (s *Server) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		_ = l.Close()
	}
}

// accept hands connections from l to the serving goroutine until l closes.
func (s *Server) accept(ctx context.Context, l net.Listener, conns chan<- net.Conn) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", "addr", l.Addr(), "error", err)
			continue
		}
		select {
		case conns <- conn:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}
	}
}

// handle answers a single connection to completion.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	seq := s.clock.Next()
	start := s.now()
	remote := conn.RemoteAddr().String()
	log := s.logger.With("seq", seq, "remote", remote)

	if err := conn.SetDeadline(start.Add(s.clientTimeout)); err != nil {
		log.Warn("set deadline failed", "error", err)
	}

	payload, err := wire.ReadFrame(conn, s.maxMessage)
	if err != nil {
		if errors.Is(err, wire.ErrConnectionClosed) {
			log.Debug("client closed before sending a command")
		} else {
			log.Warn("dropping connection", "error", err)
		}
		return
	}

	req, err := wire.DecodeRequest(payload)
	var resp wire.Response
	if err != nil {
		log.Warn("malformed request", "error", err)
		resp = wire.Failure(err)
	} else {
		log.Debug("command received", "kind", req.Type)
		result, err := s.dispatcher.Dispatch(ctx, req.Type, req.Params)
		if err != nil {
			resp = wire.Failure(err)
		} else {
			resp = wire.Success(result)
		}
	}

	data, err := wire.EncodeResponse(resp)
	if err != nil {
		log.Error("encode response failed", "kind", req.Type, "error", err)
		resp = wire.Failure(gwerr.Host("encode response", err))
		data, _ = wire.EncodeResponse(resp)
	}
	if err := wire.WriteFrame(conn, data); err != nil {
		log.Warn("write response failed", "kind", req.Type, "error", err)
	}

	elapsed := s.now().Sub(start)
	log.Info("command handled", "kind", req.Type, "status", resp.Status, "duration", elapsed)
	s.record(ctx, journal.Entry{
		Seq:        seq,
		Kind:       req.Type,
		Params:     req.Params,
		Status:     resp.Status,
		Message:    resp.Message,
		Remote:     remote,
		ReceivedAt: start,
		Duration:   elapsed,
	}, log)
}

// record journals e after the reply has been written. A failed write is
// logged and otherwise ignored.
func (s *Server) record(ctx context.Context, e journal.Entry, log *slog.Logger) {
	if s.recorder == nil {
		return
	}
	// The command already completed; shutdown must not lose its row.
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.Record(ctx, e); err != nil {
		log.Error("journal write failed", "kind", e.Kind, "error", err)
	}
}
