package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner runs one program through the engine.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines.
// - Errors: engine failures return *ExecutionError (errors.Is ErrExecution).
type Runner interface {
	Run(ctx context.Context, source string, format Format) (Result, error)
}

// Prober checks that the engine can be started at all.
//
// Contract:
// - Errors: an unreachable engine returns an error wrapping ErrEngineUnavailable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Result captures the output of a successful engine run.
type Result struct {
	// Output is the engine's stdout with surrounding space trimmed.
	Output string

	// Stderr is the diagnostic side channel. It may be non-empty on success.
	Stderr string

	// Format is the format the engine was asked to render.
	Format Format

	// Duration is the wall time of the subprocess.
	Duration time.Duration

	// ExitCode is the engine's exit status.
	ExitCode int
}

// Engine invokes the external engine as a subprocess.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given configuration.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

var (
	_ Runner = (*Engine)(nil)
	_ Prober = (*Engine)(nil)
)

// Command returns the configured engine executable.
func (e *Engine) Command() string {
	return e.cfg.Command
}

// Run writes source to a temp file, runs the engine against it and returns
// its trimmed stdout. The temp file is removed before Run returns.
func (e *Engine) Run(ctx context.Context, source string, format Format) (Result, error) {
	if strings.TrimSpace(source) == "" {
		return Result{}, ErrEmptySource
	}
	if !format.Valid() {
		format = FormatText
	}

	path, err := e.writeProgram(source)
	if err != nil {
		return Result{}, &ExecutionError{
			Message:  "writing program file: " + err.Error(),
			ExitCode: -1,
			Err:      err,
		}
	}
	defer e.removeProgram(path)

	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	args := append(append([]string(nil), e.cfg.Args...), "-format", format.Flag(), "-print", "-file", path)

	start := time.Now()
	stdout, stderr, err := e.exec(runCtx, args)
	duration := time.Since(start)

	if err != nil {
		execErr := e.executionError(runCtx, stdout, stderr, err)
		e.cfg.Logger.Error("engine run failed",
			"format", format,
			"duration", duration,
			"exitCode", execErr.ExitCode,
			"error", execErr.Message)
		return Result{}, execErr
	}

	if stderr != "" {
		e.cfg.Logger.Warn("engine wrote diagnostics", "format", format, "stderr", stderr)
	}
	e.cfg.Logger.Info("engine run", "format", format, "duration", duration)

	return Result{
		Output:   strings.TrimSpace(stdout),
		Stderr:   stderr,
		Format:   format,
		Duration: duration,
	}, nil
}

// Probe runs the configured no-op invocation. Any failure, including the
// executable missing from PATH, is reported as ErrEngineUnavailable.
func (e *Engine) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	args := append(append([]string(nil), e.cfg.Args...), e.cfg.ProbeArgs...)
	stdout, stderr, err := e.exec(ctx, args)
	if err != nil {
		detail := firstNonEmpty(stderr, stdout, err.Error())
		return fmt.Errorf("%w: %s: %s", ErrEngineUnavailable, e.cfg.Command, detail)
	}
	return nil
}

func (e *Engine) exec(ctx context.Context, args []string) (stdout, stderr string, err error) {
	// #nosec G204 -- the command is operator configuration; program text only travels by file.
	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	if len(e.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), flattenEnv(e.cfg.Env)...)
	}
	cmd.WaitDelay = time.Second

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), strings.TrimSpace(errBuf.String()), err
}

func (e *Engine) executionError(ctx context.Context, stdout, stderr string, err error) *ExecutionError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		msg := "canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			msg = "timed out"
		}
		return &ExecutionError{Message: msg, ExitCode: -1, Stderr: stderr, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExecutionError{
			Message:  firstNonEmpty(stderr, strings.TrimSpace(stdout), err.Error()),
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr,
			Err:      err,
		}
	}

	// The process never started.
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return &ExecutionError{Message: err.Error(), ExitCode: -1, Stderr: stderr, Err: err}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && e.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Timeout)
	}
	return ctx, func() {}
}

// writeProgram creates a uniquely named file holding source. O_EXCL makes a
// name collision an error rather than a shared file.
func (e *Engine) writeProgram(source string) (string, error) {
	name := fmt.Sprintf("%s-%d-%s%s", e.cfg.FilePrefix, time.Now().UnixNano(), uuid.NewString(), e.cfg.FileExt)
	path := filepath.Join(e.cfg.TempDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(source); err != nil {
		_ = f.Close()
		e.removeProgram(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		e.removeProgram(path)
		return "", err
	}
	return path, nil
}

func (e *Engine) removeProgram(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.cfg.Logger.Warn("removing program file", "path", path, "error", err)
	}
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
