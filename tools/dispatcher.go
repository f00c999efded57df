package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolmath/derivation"
	"github.com/jonwraymond/toolmath/engine"
	"github.com/jonwraymond/toolmath/observe"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Registry holds the callable tools. Required.
	Registry *Registry

	// Prober checks engine reachability before each call. Required.
	Prober engine.Prober

	// ProbeTTL reuses a successful probe for this long. Zero probes on every
	// call. Failed probes are never reused.
	ProbeTTL time.Duration

	// Observer receives one observation per call.
	// Default: observe.Nop
	Observer observe.Observer

	// Logger is an optional logger for dispatch events.
	Logger engine.Logger
}

// Dispatcher routes tool calls to registered handlers.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: passed through to the probe and the handler.
// - Errors: protocol failures are returned as errors (see RPCError); engine
// failures are returned as results with IsError set.
type Dispatcher struct {
	registry *Registry
	prober   engine.Prober
	probeTTL time.Duration
	observer observe.Observer
	logger   engine.Logger

	mu       sync.Mutex
	probedAt time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", engine.ErrConfiguration)
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("%w: prober is required", engine.ErrConfiguration)
	}
	if cfg.ProbeTTL < 0 {
		return nil, fmt.Errorf("%w: probe TTL must not be negative (got %v)", engine.ErrConfiguration, cfg.ProbeTTL)
	}
	if cfg.Observer == nil {
		cfg.Observer = observe.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Dispatcher{
		registry: cfg.Registry,
		prober:   cfg.Prober,
		probeTTL: cfg.ProbeTTL,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}, nil
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Call runs the named tool with args.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	start := time.Now()
	res, outcome, err := d.call(ctx, name, args)
	d.observer.ObserveCall(ctx, observe.CallObservation{
		Tool:     name,
		Outcome:  outcome,
		Duration: time.Since(start),
	})
	return res, err
}

func (d *Dispatcher) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, observe.Outcome, error) {
	e, ok := d.registry.lookup(name)
	if !ok {
		return nil, observe.OutcomeNotFound, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := e.schema.Validate(args); err != nil {
		return nil, observe.OutcomeInvalidParams, fmt.Errorf("%w: %s: %w", ErrInvalidParams, name, err)
	}

	if err := d.probe(ctx); err != nil {
		d.logger.Warn("engine unreachable", "tool", name, "error", err)
		return ErrorResult(unavailableMessage(err)), observe.OutcomeEngineUnavailable, nil
	}

	out, err := e.def.Handler(ctx, args)
	if err != nil {
		return d.handlerError(name, err)
	}
	return TextResult(out), observe.OutcomeOK, nil
}

func (d *Dispatcher) handlerError(name string, err error) (*mcp.CallToolResult, observe.Outcome, error) {
	switch {
	case errors.Is(err, ErrInvalidParams):
		return nil, observe.OutcomeInvalidParams, err
	case errors.Is(err, derivation.ErrInvalidArgument), errors.Is(err, engine.ErrEmptySource):
		return nil, observe.OutcomeInvalidParams, fmt.Errorf("%w: %s: %w", ErrInvalidParams, name, err)
	case errors.Is(err, engine.ErrEngineUnavailable):
		d.logger.Warn("engine unreachable", "tool", name, "error", err)
		return ErrorResult(unavailableMessage(err)), observe.OutcomeEngineUnavailable, nil
	}

	var execErr *engine.ExecutionError
	if errors.As(err, &execErr) {
		d.logger.Warn("tool failed", "tool", name, "exitCode", execErr.ExitCode, "error", execErr.Message)
		return ErrorResult("Mathematica error: " + execErr.Message), observe.OutcomeToolError, nil
	}

	d.logger.Error("tool failed unexpectedly", "tool", name, "error", err)
	return nil, observe.OutcomeInternalError, fmt.Errorf("%w: %s: %w", ErrInternal, name, err)
}

// probe checks reachability, reusing a recent success when a TTL is set.
func (d *Dispatcher) probe(ctx context.Context) error {
	if d.probeTTL > 0 {
		d.mu.Lock()
		fresh := !d.probedAt.IsZero() && time.Since(d.probedAt) < d.probeTTL
		d.mu.Unlock()
		if fresh {
			return nil
		}
	}

	if err := d.prober.Probe(ctx); err != nil {
		d.mu.Lock()
		d.probedAt = time.Time{}
		d.mu.Unlock()
		return err
	}

	if d.probeTTL > 0 {
		d.mu.Lock()
		d.probedAt = time.Now()
		d.mu.Unlock()
	}
	return nil
}

func unavailableMessage(err error) string {
	var b strings.Builder
	b.WriteString("Mathematica is not available: ")
	b.WriteString(err.Error())
	b.WriteString("\n\nInstall Mathematica or the free Wolfram Engine, activate it, ")
	b.WriteString("and make sure wolframscript is on the PATH of the process running this server.")
	return b.String()
}

// TextResult returns a successful result with one text content block.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: strings.TrimSpace(text)}},
	}
}

// ErrorResult returns a result with IsError set and one text content block.
func ErrorResult(text string) *mcp.CallToolResult {
	res := TextResult(text)
	res.IsError = true
	return res
}

// ResultText concatenates the text content blocks of res.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
