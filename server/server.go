// Package server binds the Mathematica tools to an MCP server.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolmath/derivation"
	"github.com/jonwraymond/toolmath/engine"
	"github.com/jonwraymond/toolmath/observe"
	"github.com/jonwraymond/toolmath/tools"
)

// Defaults for the advertised implementation.
const (
	DefaultName    = "toolmath"
	DefaultVersion = "0.1.0"

	DefaultInstructions = "Tools for running Mathematica code and checking derivations " +
		"with a local wolframscript installation."
)

// Config configures a Server.
type Config struct {
	// Name and Version identify the server to clients.
	Name    string
	Version string

	// Instructions are sent to clients on initialization.
	Instructions string

	// Engine configures the subprocess engine. Engine.Logger defaults to
	// Logger.
	Engine engine.Config

	// ProbeTTL reuses a successful reachability probe. Zero probes on every
	// call.
	ProbeTTL time.Duration

	// Logger receives server and engine logs. It must not write to the
	// transport's stream.
	// Default: discard
	Logger *slog.Logger

	// Observer receives one observation per tool call.
	// Default: observe.Nop
	Observer observe.Observer
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Instructions == "" {
		c.Instructions = DefaultInstructions
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Engine.Logger == nil {
		c.Engine.Logger = c.Logger
	}
	if c.Observer == nil {
		c.Observer = observe.Nop{}
	}
}

// Server serves execute_mathematica and verify_derivation.
type Server struct {
	cfg        Config
	engine     *engine.Engine
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	mcp        *mcp.Server
}

// New builds the engine, tools and MCP server described by cfg.
func New(cfg Config) (*Server, error) {
	cfg.applyDefaults()

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewDefaultRegistry(eng, derivation.New(eng))
	if err != nil {
		return nil, err
	}
	dispatcher, err := tools.NewDispatcher(tools.DispatcherConfig{
		Registry: registry,
		Prober:   eng,
		ProbeTTL: cfg.ProbeTTL,
		Observer: cfg.Observer,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		engine:     eng,
		registry:   registry,
		dispatcher: dispatcher,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
		&mcp.ServerOptions{
			Instructions: cfg.Instructions,
			Logger:       cfg.Logger,
		},
	)
	for _, def := range registry.Definitions() {
		s.mcp.AddTool(def.MCPTool(), s.handler(def.Name))
	}
	s.mcp.AddReceivingMiddleware(s.unknownTools)

	cfg.Logger.Info("server ready",
		"name", cfg.Name,
		"version", cfg.Version,
		"engine", eng.Command(),
		"tools", registry.Names())
	return s, nil
}

// Run serves a single session on t until the client disconnects or ctx is
// done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

// Connect starts a session on t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// Call runs a tool without a transport.
func (s *Server) Call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return s.dispatcher.Call(ctx, name, args)
}

// Probe checks that the engine can be started.
func (s *Server) Probe(ctx context.Context) error {
	return s.engine.Probe(ctx)
}

// Tools returns the advertised tools in registration order.
func (s *Server) Tools() []*mcp.Tool {
	defs := s.registry.Definitions()
	out := make([]*mcp.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.MCPTool())
	}
	return out
}

// Registry returns the tool registry.
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.cfg.Logger
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArgs(req.Params.Arguments)
		if err != nil {
			return nil, tools.RPCError(fmt.Errorf("%w: %s: %w", tools.ErrInvalidParams, name, err))
		}
		res, err := s.dispatcher.Call(ctx, name, args)
		if err != nil {
			return nil, tools.RPCError(err)
		}
		return res, nil
	}
}

// unknownTools answers calls for unregistered tools with MethodNotFound.
func (s *Server) unknownTools(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		if call, ok := req.(*mcp.CallToolRequest); ok && call.Params != nil {
			if _, found := s.registry.Get(call.Params.Name); !found {
				_, err := s.dispatcher.Call(ctx, call.Params.Name, nil)
				return nil, tools.RPCError(err)
			}
		}
		return next(ctx, method, req)
	}
}

// decodeArgs decodes raw tool arguments into a JSON object. Absent
// arguments decode to an empty object.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
