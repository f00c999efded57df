// Package derivation checks multi-step symbolic derivations with the engine.
//
// A derivation is a sequence of expressions where each step should be
// symbolically equal to the one before it. [Verifier] builds one program in
// the engine's own language that parses every step, compares each adjacent
// pair with Simplify, and renders the report itself; the host never formats
// per-step results. The whole derivation costs exactly one engine run, and the
// engine evaluates the steps in order.
package derivation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolmath/engine"
)

// MinSteps is the smallest derivation that can be checked.
const MinSteps = 2

var (
	// ErrInvalidArgument classifies malformed derivations. It is detected
	// before any engine run.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTooFewSteps is returned for derivations shorter than MinSteps.
	ErrTooFewSteps = fmt.Errorf("%w: at least %d steps are required", ErrInvalidArgument, MinSteps)
)

// Verifier checks derivations through an engine.Runner.
type Verifier struct {
	runner engine.Runner
}

// New creates a Verifier that runs programs with runner.
func New(runner engine.Runner) *Verifier {
	return &Verifier{runner: runner}
}

// Verify checks that every step of steps is equivalent to its predecessor and
// returns the engine-rendered report. The report holds one block per step:
//
//	Step N: <expression>
//	Valid: True|False
//	Simplified: <form>
//
// followed by a final "All steps valid: True|False" line.
func (v *Verifier) Verify(ctx context.Context, steps []string, format engine.Format) (engine.Result, error) {
	program, err := Program(steps, format)
	if err != nil {
		return engine.Result{}, err
	}
	return v.runner.Run(ctx, program, format)
}

// Program builds the verification program for steps.
func Program(steps []string, format engine.Format) (string, error) {
	if err := checkSteps(steps); err != nil {
		return "", err
	}

	quoted := make([]string, len(steps))
	for i, s := range steps {
		quoted[i] = quote(strings.TrimSpace(s))
	}

	var b strings.Builder
	b.WriteString("Module[{steps, exprs, equivalentQ, render, records},\n")
	fmt.Fprintf(&b, "  steps = {%s};\n", strings.Join(quoted, ", "))
	b.WriteString(programBody)
	fmt.Fprintf(&b, "  render[e_] := ToString[e, %s];\n", renderForm(format))
	b.WriteString(programReport)
	return b.String(), nil
}

// programBody parses the steps and defines the equivalence test. A step that
// fails to parse is never equivalent to anything. The first step has no
// predecessor and is always valid.
const programBody = `  exprs = Quiet[ToExpression /@ steps];
  equivalentQ[a_, b_] := FreeQ[{a, b}, $Failed] &&
    (TrueQ[Simplify[a - b] == 0] || TrueQ[Simplify[a == b]]);
`

const programReport = `  records = Table[
    <|"index" -> i, "text" -> steps[[i]],
      "valid" -> If[i == 1, True, equivalentQ[exprs[[i - 1]], exprs[[i]]]],
      "simplified" -> render[Simplify[exprs[[i]]]]|>,
    {i, Length[steps]}];
  StringRiffle[
    Append[
      Map[StringJoin[
          "Step ", ToString[#["index"]], ": ", #["text"], "\n",
          "Valid: ", ToString[#["valid"]], "\n",
          "Simplified: ", #["simplified"]] &, records],
      "All steps valid: " <> ToString[AllTrue[records, #["valid"] &]]],
    "\n\n"]
]
`

func checkSteps(steps []string) error {
	if len(steps) < MinSteps {
		return fmt.Errorf("%w (got %d)", ErrTooFewSteps, len(steps))
	}
	for i, s := range steps {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: step %d is empty", ErrInvalidArgument, i+1)
		}
	}
	return nil
}

// renderForm picks how simplified expressions appear in the report.
func renderForm(format engine.Format) string {
	if format == engine.FormatLaTeX {
		return "TeXForm"
	}
	return "InputForm"
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote renders s as an engine string literal.
func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
