package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Namespace is the tooldiscovery namespace for registered tools.
const Namespace = "mathematica"

// HandlerFunc runs a tool with already validated arguments and returns the
// text for the result's content block.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolDef defines a tool with its handler.
type ToolDef struct {
	Name        string
	Title       string
	Description string
	InputSchema *jsonschema.Schema
	Annotations *mcp.ToolAnnotations
	Tags        []string

	// Summary and Examples feed the Catalog's documentation.
	Summary  string
	Examples []tooldoc.ToolExample

	Handler HandlerFunc
}

type entry struct {
	def    ToolDef
	schema *jsonschema.Resolved
}

// Registry holds tool definitions in registration order.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Schemas: must not be modified after Register.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds def. The input schema is resolved once here and reused for
// every call.
func (r *Registry) Register(def ToolDef) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s: handler is required", ErrInvalidTool, def.Name)
	}
	if def.InputSchema == nil || def.InputSchema.Type != "object" {
		return fmt.Errorf("%w: %s: input schema must have type object", ErrInvalidTool, def.Name)
	}

	resolved, err := def.InputSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidTool, def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.entries[def.Name] = &entry{def: def, schema: resolved}
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (ToolDef, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return ToolDef{}, false
	}
	return e.def, true
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].def)
	}
	return out
}

// MCPTool returns the protocol description of def.
func (def ToolDef) MCPTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        def.Name,
		Title:       def.Title,
		Description: def.Description,
		InputSchema: def.InputSchema,
		Annotations: def.Annotations,
	}
}

// ListTools returns the registered tools as toolfoundation tools in the
// registry's namespace. Input schemas are converted to their generic JSON form.
func (r *Registry) ListTools() ([]model.Tool, error) {
	defs := r.Definitions()
	out := make([]model.Tool, 0, len(defs))
	for _, def := range defs {
		schema, err := schemaMap(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		out = append(out, model.Tool{
			Tool: mcp.Tool{
				Name:        def.Name,
				Title:       def.Title,
				Description: def.Description,
				InputSchema: schema,
				Annotations: def.Annotations,
			},
			Namespace: Namespace,
			Tags:      model.NormalizeTags(def.Tags),
		})
	}
	return out, nil
}

func schemaMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}
