package tools

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jonwraymond/toolfoundation/model"

	"github.com/jonwraymond/toolmath/derivation"
	"github.com/jonwraymond/toolmath/engine"
)

func echoDef(name string) ToolDef {
	return ToolDef{
		Name:        name,
		Description: "echoes its input",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
		Tags: []string{"Echo", " test "},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			s, _ := args["text"].(string)
			return s, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoDef("b")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(echoDef("a")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if got := r.Names(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Names() = %v, want registration order [b a]", got)
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("Get(a) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) found")
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoDef("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	noHandler := echoDef("nohandler")
	noHandler.Handler = nil
	noSchema := echoDef("noschema")
	noSchema.InputSchema = nil
	notObject := echoDef("notobject")
	notObject.InputSchema = &jsonschema.Schema{Type: "string"}

	tests := []struct {
		name string
		def  ToolDef
		want error
	}{
		{"duplicate", echoDef("echo"), ErrDuplicateTool},
		{"blank name", echoDef("  "), ErrInvalidTool},
		{"no handler", noHandler, ErrInvalidTool},
		{"no schema", noSchema, ErrInvalidTool},
		{"not an object", notObject, ErrInvalidTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.def); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
	if got := len(r.Names()); got != 1 {
		t.Errorf("registry has %d tools after rejected registrations, want 1", got)
	}
}

func TestRegistry_ListTools(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoDef("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tools, err := r.ListTools()
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("ListTools() returned %d tools, want 1", len(tools))
	}
	tool := tools[0]
	if tool.Namespace != Namespace {
		t.Errorf("Namespace = %q, want %q", tool.Namespace, Namespace)
	}
	if want := model.NormalizeTags([]string{"Echo", " test "}); !slices.Equal(tool.Tags, want) {
		t.Errorf("Tags = %v, want %v", tool.Tags, want)
	}
	schema, ok := tool.InputSchema.(map[string]any)
	if !ok {
		t.Fatalf("InputSchema = %T, want map[string]any", tool.InputSchema)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	runner := &fakeRunner{}
	r, err := NewDefaultRegistry(runner, derivation.New(runner))
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}

	if got := r.Names(); !slices.Equal(got, []string{ExecuteTool, VerifyTool}) {
		t.Fatalf("Names() = %v, want exactly [%s %s]", got, ExecuteTool, VerifyTool)
	}

	exec, _ := r.Get(ExecuteTool)
	if !slices.Equal(exec.InputSchema.Required, []string{"code"}) {
		t.Errorf("%s required = %v, want [code]", ExecuteTool, exec.InputSchema.Required)
	}
	if format, ok := exec.InputSchema.Properties["format"]; !ok {
		t.Errorf("%s has no format property", ExecuteTool)
	} else if !slices.Equal(format.Types, []string{"string", "null"}) {
		t.Errorf("format types = %v, want [string null]", format.Types)
	}

	verify, _ := r.Get(VerifyTool)
	steps := verify.InputSchema.Properties["steps"]
	if steps == nil || steps.Type != "array" || steps.Items == nil || steps.Items.Type != "string" {
		t.Fatalf("%s steps schema = %+v, want array of strings", VerifyTool, steps)
	}
	if steps.MinItems == nil || *steps.MinItems != derivation.MinSteps {
		t.Errorf("steps minItems = %v, want %d", steps.MinItems, derivation.MinSteps)
	}
}

func TestNewDefaultRegistry_RequiresDependencies(t *testing.T) {
	if _, err := NewDefaultRegistry(nil, nil); !errors.Is(err, ErrInvalidTool) {
		t.Errorf("NewDefaultRegistry(nil, nil) error = %v, want %v", err, ErrInvalidTool)
	}
}

func TestFormatArg(t *testing.T) {
	tests := []struct {
		args map[string]any
		want engine.Format
	}{
		{map[string]any{}, engine.FormatText},
		{map[string]any{"format": "LaTeX"}, engine.FormatLaTeX},
		{map[string]any{"format": "mathematica"}, engine.FormatMathematica},
		{map[string]any{"format": "svg"}, engine.FormatText},
	}
	for _, tt := range tests {
		if got := formatArg(tt.args); got != tt.want {
			t.Errorf("formatArg(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
