package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolmath/derivation"
	"github.com/jonwraymond/toolmath/engine"
)

// Tool names.
const (
	ExecuteTool = "execute_mathematica"
	VerifyTool  = "verify_derivation"
)

// NewDefaultRegistry returns a Registry holding execute_mathematica and
// verify_derivation.
func NewDefaultRegistry(runner engine.Runner, verifier *derivation.Verifier) (*Registry, error) {
	if runner == nil || verifier == nil {
		return nil, fmt.Errorf("%w: runner and verifier are required", ErrInvalidTool)
	}

	r := NewRegistry()
	for _, def := range []ToolDef{ExecuteDef(runner), VerifyDef(verifier)} {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ExecuteDef defines execute_mathematica.
func ExecuteDef(runner engine.Runner) ToolDef {
	return ToolDef{
		Name:  ExecuteTool,
		Title: "Execute Mathematica",
		Description: "Execute Mathematica code and return the result. " +
			"The code runs in a fresh kernel; the value of the last expression is returned.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"code": {
					Type:        "string",
					Description: "Mathematica code to execute",
				},
				"format": formatSchema(),
			},
			Required: []string{"code"},
		},
		Annotations: &mcp.ToolAnnotations{
			Title:         "Execute Mathematica",
			OpenWorldHint: jsonschema.Ptr(false),
		},
		Tags:    []string{"mathematica", "wolfram", "symbolic", "compute"},
		Summary: "Run Mathematica code through wolframscript",
		Examples: []tooldoc.ToolExample{
			{Title: "Arithmetic", Args: map[string]any{"code": "2 + 2"}},
			{Title: "Integral as LaTeX", Args: map[string]any{"code": "Integrate[x^2, x]", "format": "latex"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			res, err := runner.Run(ctx, code, formatArg(args))
			if err != nil {
				return "", err
			}
			return res.Output, nil
		},
	}
}

// VerifyDef defines verify_derivation.
func VerifyDef(verifier *derivation.Verifier) ToolDef {
	return ToolDef{
		Name:  VerifyTool,
		Title: "Verify Derivation",
		Description: "Verify a sequence of mathematical steps. " +
			"Each step is checked for symbolic equivalence with the previous one.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"steps": {
					Type:        "array",
					Description: "Mathematical expressions, one per step, in Mathematica syntax",
					Items:       &jsonschema.Schema{Type: "string"},
					MinItems:    jsonschema.Ptr(derivation.MinSteps),
				},
				"format": formatSchema(),
			},
			Required: []string{"steps"},
		},
		Annotations: &mcp.ToolAnnotations{
			Title:          "Verify Derivation",
			ReadOnlyHint:   true,
			IdempotentHint: true,
			OpenWorldHint:  jsonschema.Ptr(false),
		},
		Tags:    []string{"mathematica", "wolfram", "symbolic", "derivation", "proof"},
		Summary: "Check that each step of a derivation equals the step before it",
		Examples: []tooldoc.ToolExample{
			{Title: "Difference of squares", Args: map[string]any{"steps": []any{"x^2 - y^2", "(x - y)*(x + y)"}}},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			steps, err := stringsArg(args, "steps")
			if err != nil {
				return "", err
			}
			res, err := verifier.Verify(ctx, steps, formatArg(args))
			if err != nil {
				return "", err
			}
			return res.Output, nil
		},
	}
}

// formatSchema documents the accepted formats without enforcing them; unknown
// values and null fall back to text.
func formatSchema() *jsonschema.Schema {
	names := make([]string, 0, len(engine.Formats()))
	for _, f := range engine.Formats() {
		names = append(names, string(f))
	}
	return &jsonschema.Schema{
		Types:       []string{"string", "null"},
		Description: "Output format: " + strings.Join(names, ", "),
		Default:     json.RawMessage(`"` + string(engine.FormatText) + `"`),
	}
}

func formatArg(args map[string]any) engine.Format {
	s, _ := args["format"].(string)
	return engine.ParseFormat(s)
}

func stringsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrInvalidParams, key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array of strings", ErrInvalidParams, key)
	}
}
