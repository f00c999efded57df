// Package cli implements the toolmath command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/jonwraymond/toolmath/config"
	"github.com/jonwraymond/toolmath/observe"
	"github.com/jonwraymond/toolmath/server"
	"github.com/jonwraymond/toolmath/tools"
)

// NewRootCmd creates the toolmath command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "toolmath",
		Short: "Mathematica tools over MCP",
		Long: "toolmath bridges MCP clients to a local wolframscript installation. " +
			"It serves execute_mathematica and verify_derivation over stdio and can run them directly.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("toolmath version %s\n", version))

	root.PersistentFlags().String("config", "", "Path to a toolmath YAML config file")
	root.PersistentFlags().String("log-level", "", "Log level: debug | info | warn | error")
	root.PersistentFlags().String("engine", "", "Engine executable (default: wolframscript)")

	root.AddCommand(NewServeCmd(version))
	root.AddCommand(NewExecCmd())
	root.AddCommand(NewVerifyCmd())
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewProbeCmd())
	return root
}

// loadConfig resolves the config file, environment and flags, in increasing
// precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, exitError(exitInvalid, "%v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, exitError(exitInvalid, "%v", err)
	}

	if v, _ := cmd.Flags().GetString("engine"); strings.TrimSpace(v) != "" {
		cfg.Engine.Command = strings.TrimSpace(v)
	}
	if v, _ := cmd.Flags().GetString("log-level"); strings.TrimSpace(v) != "" {
		cfg.Log.Level = strings.TrimSpace(v)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, exitError(exitInvalid, "%v", err)
	}
	return cfg, nil
}

// outcomeRecorder remembers the outcome of the latest call and forwards
// observations.
type outcomeRecorder struct {
	next observe.Observer

	mu   sync.Mutex
	last observe.Outcome
}

func (r *outcomeRecorder) ObserveCall(ctx context.Context, obs observe.CallObservation) {
	r.mu.Lock()
	r.last = obs.Outcome
	r.mu.Unlock()
	r.next.ObserveCall(ctx, obs)
}

func (r *outcomeRecorder) outcome() observe.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// newServer builds a Server from the command's configuration. Logs go to
// stderr so stdout stays free for results and the MCP stream.
func newServer(cmd *cobra.Command, version string) (*server.Server, *outcomeRecorder, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr())

	otelObserver, err := observe.NewOTelObserver(
		otelapi.GetMeterProvider().Meter("toolmath/tools"),
		otelapi.GetTracerProvider().Tracer("toolmath/tools"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tool observability: %w", err)
	}
	recorder := &outcomeRecorder{next: otelObserver}

	s, err := server.New(server.Config{
		Name:         cfg.Server.Name,
		Version:      version,
		Instructions: cfg.Server.Instructions,
		Engine:       cfg.EngineConfig(logger),
		ProbeTTL:     cfg.ProbeTTL,
		Logger:       logger,
		Observer:     recorder,
	})
	if err != nil {
		return nil, nil, exitError(exitInvalid, "%v", err)
	}
	return s, recorder, nil
}

// writeResult prints a tool result and converts failures to exit codes.
func writeResult(cmd *cobra.Command, rec *outcomeRecorder, res *mcp.CallToolResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, tools.ErrInvalidParams), errors.Is(err, tools.ErrMethodNotFound):
			return exitError(exitInvalid, "%v", err)
		default:
			return exitError(exitFailure, "%v", err)
		}
	}

	text := tools.ResultText(res)
	if !res.IsError {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	if rec.outcome() == observe.OutcomeEngineUnavailable {
		return exitError(exitUnavailable, "%s", text)
	}
	return exitError(exitToolError, "%s", text)
}
