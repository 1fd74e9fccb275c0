// Package client sends commands to a running gateway.
//
// Every command uses a fresh TCP connection: dial, write one frame, read
// one frame, close. Only failures to connect are retried. A command that
// reached the gateway and then timed out is never resent, since the host
// may still be executing it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/server"
	"github.com/roach88/graphgate/internal/wire"
)

const (
	// DefaultTimeout bounds the wait for a reply after the request is sent.
	DefaultTimeout = 120 * time.Second

	// DefaultConnectTimeout bounds each dial attempt.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRetries is how many times a failed dial is retried.
	DefaultRetries = 2

	// DefaultRetryDelay separates dial attempts.
	DefaultRetryDelay = time.Second
)

// ConnectError reports that the gateway could not be reached.
type ConnectError struct {
	Addr     string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cannot connect to gateway on %s after %d attempts: %v", e.Addr, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// RemoteError is an error reply from the gateway.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsConnect reports whether err is a connection failure.
func IsConnect(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}

// IsRemote reports whether err is an error reply from the gateway.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// Client talks to one gateway address.
type Client struct {
	addr           string
	timeout        time.Duration
	connectTimeout time.Duration
	retries        int
	retryDelay     time.Duration
	logger         *slog.Logger
	dialer         func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the reply timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithConnectTimeout sets the per-attempt dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithRetries sets the dial retry count and delay.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.retryDelay = delay
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for addr. An empty addr means localhost on the
// gateway's default port.
func New(addr string, opts ...Option) *Client {
	if addr == "" {
		addr = server.Addr("localhost", server.DefaultPort)
	}
	c := &Client{
		addr:           addr,
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		retries:        DefaultRetries,
		retryDelay:     DefaultRetryDelay,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		d := &net.Dialer{Timeout: c.connectTimeout}
		c.dialer = d.DialContext
	}
	return c
}

// Addr returns the gateway address.
func (c *Client) Addr() string { return c.addr }

// Send runs one command and returns its result. params may be nil, a
// json.RawMessage, or anything encoding/json can marshal. A null result is
// returned as an empty object. An error reply is a *RemoteError.
func (c *Client) Send(ctx context.Context, kind string, params any) (json.RawMessage, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(wire.Request{Type: kind, Params: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, err := c.exchange(ctx, conn, body)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, gwerr.Timeout(fmt.Sprintf("waiting for gateway on '%s'", kind), c.timeout)
		}
		return nil, fmt.Errorf("communication error on '%s': %w", kind, err)
	}

	var reply struct {
		Status  string          `json:"status"`
		Result  json.RawMessage `json:"result"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(payload, &reply); err != nil {
		return nil, gwerr.Protocol("Invalid JSON from gateway: %v", err)
	}
	if reply.Status != wire.StatusSuccess {
		msg := reply.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, &RemoteError{Kind: kind, Message: msg}
	}
	if len(reply.Result) == 0 || bytes.Equal(reply.Result, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	return reply.Result, nil
}

// connect dials the gateway, retrying only dial failures.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var lastErr error
	attempts := c.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := c.dialer(ctx, "tcp", c.addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts {
			break
		}
		c.logger.Warn("connect failed, retrying", "addr", c.addr, "attempt", attempt, "delay", c.retryDelay, "error", err)
		select {
		case <-ctx.Done():
			return nil, &ConnectError{Addr: c.addr, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(c.retryDelay):
		}
	}
	return nil, &ConnectError{Addr: c.addr, Attempts: attempts, Err: lastErr}
}

func (c *Client) exchange(ctx context.Context, conn net.Conn, body []byte) ([]byte, error) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	// Unblock the read if ctx is cancelled first.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := wire.WriteFrame(conn, body); err != nil {
		return nil, err
	}
	return wire.ReadFrame(conn, 0)
}

func encodeParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(p) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(p) {
			return nil, gwerr.Protocol("Invalid JSON params")
		}
		return p, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		return data, nil
	}
}
