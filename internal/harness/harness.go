package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/graphgate/internal/bridge"
	"github.com/roach88/graphgate/internal/client"
	"github.com/roach88/graphgate/internal/command"
	"github.com/roach88/graphgate/internal/host/simhost"
	"github.com/roach88/graphgate/internal/server"
	"github.com/roach88/graphgate/internal/wire"
)

// Version is reported as the gateway version by in-process gateways, so
// get_scene_info results are stable across builds.
const Version = "harness"

// startTimeout bounds the wait for an in-process gateway to listen.
const startTimeout = 5 * time.Second

// Sender sends one command to a gateway. *client.Client implements it.
type Sender interface {
	Send(ctx context.Context, kind string, params any) (json.RawMessage, error)
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	sender Sender
	logger *slog.Logger
}

// WithSender runs the scenario against an existing gateway instead of a
// fresh in-process one. The scenario's scene is ignored.
func WithSender(s Sender) Option {
	return func(c *runConfig) { c.sender = s }
}

// WithLogger sets the logger for the in-process gateway. Defaults to
// discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// harness executes one scenario.
type harness struct {
	sender Sender
	seq    int64
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Start a fresh in-process gateway over the scenario's scene
// 2. Send setup commands, failing the run if any is rejected
// 3. Send steps and compare each reply against its expectation
// 4. Evaluate assertions against the trace and the final host state
//
// An error is returned only when the scenario could not be executed;
// failed expectations and assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	sender := cfg.sender
	if sender == nil {
		gctx, cancel := context.WithCancel(ctx)
		defer cancel()
		s, stop, err := startGateway(gctx, scenario.Scene, cfg.logger)
		if err != nil {
			return nil, err
		}
		defer stop()
		sender = s
	}

	h := &harness{sender: sender}
	result := NewResult()

	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{Sender: sender, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// startGateway serves a fresh simulated host on an ephemeral localhost
// port. stop cancels the gateway and waits for it to exit.
func startGateway(ctx context.Context, scene string, logger *slog.Logger) (Sender, func(), error) {
	h, err := newHost(scene)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	b := bridge.New(bridge.WithLogger(logger))
	d := command.New(h, b, command.WithLogger(logger), command.WithVersion(Version))
	srv := server.New(d, []string{server.Addr("127.0.0.1", 0)}, server.WithLogger(logger))

	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		_ = b.Run(ctx)
	}()
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	stop := func() {
		cancel()
		<-serveErr
		<-bridgeDone
	}

	select {
	case <-srv.Ready():
	case err := <-serveErr:
		cancel()
		<-bridgeDone
		return nil, nil, fmt.Errorf("gateway failed to start: %w", err)
	case <-time.After(startTimeout):
		stop()
		return nil, nil, fmt.Errorf("gateway did not start within %v", startTimeout)
	}

	addr := srv.Addrs()[0].String()
	return client.New(addr, client.WithRetries(0, 0), client.WithLogger(logger)), stop, nil
}

func newHost(scene string) (*simhost.Host, error) {
	if scene == "" {
		return simhost.Default(), nil
	}
	s, err := simhost.LoadScene(scene)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene: %w", err)
	}
	return simhost.New(s), nil
}

// executeSetup runs all setup steps. Each must succeed.
func (h *harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		event, err := h.send(ctx, PhaseSetup, step)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Command, err)
		}
		result.AddEvent(event)
		if event.Status != wire.StatusSuccess {
			return fmt.Errorf("setup step %d (%s) failed: %s", i, step.Command, event.Message)
		}
	}
	return nil
}

// executeSteps runs the steps under test and records expectation failures.
func (h *harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		event, err := h.send(ctx, PhaseStep, step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Command, err)
		}
		result.AddEvent(event)

		if step.Expect == nil {
			continue
		}
		for _, msg := range checkExpect(event, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Command, msg))
		}
	}
	return nil
}

// send runs one command and returns its trace event. Error replies become
// events with status error; transport failures are returned.
func (h *harness) send(ctx context.Context, phase string, step Step) (TraceEvent, error) {
	params, err := normalizeParams(step.Params)
	if err != nil {
		return TraceEvent{}, err
	}

	h.seq++
	event := TraceEvent{
		Seq:     h.seq,
		Phase:   phase,
		Command: step.Command,
		Params:  params,
	}

	raw, err := h.sender.Send(ctx, step.Command, params)
	var remote *client.RemoteError
	switch {
	case errors.As(err, &remote):
		event.Status = wire.StatusError
		event.Message = remote.Message
		return event, nil
	case err != nil:
		return TraceEvent{}, err
	}

	res, err := decodeJSON(raw)
	if err != nil {
		return TraceEvent{}, fmt.Errorf("decode result: %w", err)
	}
	event.Status = wire.StatusSuccess
	event.Result = res
	return event, nil
}

// checkExpect compares a reply against its expectation.
func checkExpect(event TraceEvent, exp *Expect) []string {
	var errs []string
	if event.Status != exp.Status {
		detail := ""
		if event.Message != "" {
			detail = fmt.Sprintf(" (%s)", event.Message)
		}
		return append(errs, fmt.Sprintf("expected status %q, got %q%s", exp.Status, event.Status, detail))
	}
	if exp.Message != "" && !strings.Contains(event.Message, exp.Message) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", exp.Message, event.Message))
	}
	if exp.Result != nil {
		if mismatch := matchSubset(event.Result, exp.Result, "result"); mismatch != "" {
			errs = append(errs, mismatch)
		}
	}
	return errs
}

// normalizeParams round-trips YAML-decoded params through JSON so they
// compare and serialize exactly like decoded results.
func normalizeParams(params map[string]any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("params must be an object")
	}
	return m, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
