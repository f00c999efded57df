package derivation

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/toolmath/engine"
)

// mockRunner records programs instead of running them.
type mockRunner struct {
	mu       sync.Mutex
	programs []string
	formats  []engine.Format
	result   engine.Result
	err      error
}

func (m *mockRunner) Run(_ context.Context, source string, format engine.Format) (engine.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs = append(m.programs, source)
	m.formats = append(m.formats, format)
	return m.result, m.err
}

func (m *mockRunner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.programs)
}

func TestVerify_TooFewSteps(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
	}{
		{"nil", nil},
		{"empty", []string{}},
		{"one", []string{"x^2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{}
			_, err := New(runner).Verify(context.Background(), tt.steps, engine.FormatText)
			if !errors.Is(err, ErrTooFewSteps) {
				t.Errorf("Verify() error = %v, want %v", err, ErrTooFewSteps)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Verify() error = %v, want %v", err, ErrInvalidArgument)
			}
			if runner.calls() != 0 {
				t.Errorf("runner called %d times, want 0", runner.calls())
			}
		})
	}
}

func TestVerify_BlankStep(t *testing.T) {
	runner := &mockRunner{}
	_, err := New(runner).Verify(context.Background(), []string{"x", "  "}, engine.FormatText)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Verify() error = %v, want %v", err, ErrInvalidArgument)
	}
	if err != nil && !strings.Contains(err.Error(), "step 2") {
		t.Errorf("Verify() error = %q, want the offending step", err)
	}
	if runner.calls() != 0 {
		t.Errorf("runner called %d times, want 0", runner.calls())
	}
}

func TestVerify_SingleRun(t *testing.T) {
	runner := &mockRunner{result: engine.Result{Output: "Step 1: x\nValid: True"}}
	steps := []string{"x^2 - y^2", "(x-y)*(x+y)", "x^2 - y^2 + 0"}

	res, err := New(runner).Verify(context.Background(), steps, engine.FormatMathematica)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if runner.calls() != 1 {
		t.Fatalf("runner called %d times, want 1", runner.calls())
	}
	if runner.formats[0] != engine.FormatMathematica {
		t.Errorf("format = %q, want %q", runner.formats[0], engine.FormatMathematica)
	}
	if res.Output != runner.result.Output {
		t.Errorf("Output = %q, want the runner's output", res.Output)
	}
	for _, s := range steps {
		if !strings.Contains(runner.programs[0], `"`+s+`"`) {
			t.Errorf("program does not contain step %q", s)
		}
	}
}

func TestVerify_PropagatesRunnerError(t *testing.T) {
	want := &engine.ExecutionError{Message: "boom", ExitCode: 1}
	runner := &mockRunner{err: want}

	_, err := New(runner).Verify(context.Background(), []string{"x", "x"}, engine.FormatText)
	if !errors.Is(err, engine.ErrExecution) {
		t.Errorf("Verify() error = %v, want %v", err, engine.ErrExecution)
	}
}

func TestProgram_StepsInOrder(t *testing.T) {
	p, err := Program([]string{"a", "b", "c"}, engine.FormatText)
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	if !strings.Contains(p, `steps = {"a", "b", "c"};`) {
		t.Errorf("program steps list missing or out of order:\n%s", p)
	}
	for _, want := range []string{"Simplify[a - b]", `"Step "`, `"Valid: "`, `"All steps valid: "`, "InputForm"} {
		if !strings.Contains(p, want) {
			t.Errorf("program missing %q", want)
		}
	}
}

func TestProgram_FirstStepAlwaysValid(t *testing.T) {
	p, err := Program([]string{"1 +", "x"}, engine.FormatText)
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	if !strings.Contains(p, `"valid" -> If[i == 1, True, equivalentQ[exprs[[i - 1]], exprs[[i]]]]`) {
		t.Errorf("first step is not unconditionally valid:\n%s", p)
	}
	if strings.Contains(p, "FreeQ[exprs[[1]]") {
		t.Errorf("first step is still parse-checked:\n%s", p)
	}
}

func TestProgram_QuotesSteps(t *testing.T) {
	p, err := Program([]string{`StringLength["a\b"]`, ` 1 `}, engine.FormatText)
	if err != nil {
		t.Fatalf("Program() error = %v", err)
	}
	if !strings.Contains(p, `"StringLength[\"a\\b\"]"`) {
		t.Errorf("step not escaped:\n%s", p)
	}
	if !strings.Contains(p, `"1"}`) {
		t.Errorf("step not trimmed:\n%s", p)
	}
}

func TestProgram_RenderForm(t *testing.T) {
	tests := []struct {
		format engine.Format
		want   string
	}{
		{engine.FormatText, "ToString[e, InputForm]"},
		{engine.FormatMathematica, "ToString[e, InputForm]"},
		{engine.FormatLaTeX, "ToString[e, TeXForm]"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			p, err := Program([]string{"x", "x"}, tt.format)
			if err != nil {
				t.Fatalf("Program() error = %v", err)
			}
			if !strings.Contains(p, tt.want) {
				t.Errorf("program missing %q", tt.want)
			}
		})
	}
}

func liveEngine(t *testing.T) *engine.Engine {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live engine test in short mode")
	}
	if _, err := exec.LookPath(engine.DefaultCommand); err != nil {
		t.Skipf("%s not on PATH", engine.DefaultCommand)
	}
	e, err := engine.New(engine.Config{TempDir: t.TempDir(), Timeout: 2 * time.Minute})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	return e
}

func TestVerify_Live(t *testing.T) {
	v := New(liveEngine(t))
	ctx := context.Background()

	res, err := v.Verify(ctx, []string{"x^2 - y^2", "(x-y)*(x+y)"}, engine.FormatText)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !strings.Contains(res.Output, "Step 2:") || !strings.Contains(res.Output, "Valid: True") {
		t.Errorf("report = %q, want Step 2 and Valid: True", res.Output)
	}

	res, err = v.Verify(ctx, []string{"x", "x+1"}, engine.FormatText)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !strings.Contains(res.Output, "Valid: False") {
		t.Errorf("report = %q, want Valid: False", res.Output)
	}
}
