// Package registry holds the capability surface of a server: an explicit
// registration table of tool and prompt handlers, scanned once at startup
// into immutable protocol-facing descriptors.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rcarmo/umcp/internal/domain"
)

// HandlerFunc is the uniform signature for tool and prompt handlers.
// Arguments arrive fully bound (supplied value or declared default) and the
// returned Value is the handler's result; the zero Value signals "no result"
// and is treated as an execution failure by the caller.
type HandlerFunc func(ctx context.Context, args map[string]domain.Value) (domain.Value, error)

// Param declares one handler parameter. A valid Default makes the parameter
// optional; the zero Value means the parameter is required.
type Param struct {
	Name    string
	Type    domain.TypeTag
	Default domain.Value
}

// ToolDef is one row of the registration table for a callable operation.
// Doc follows the handler documentation convention: the first line becomes
// the protocol-visible description.
type ToolDef struct {
	Name    string
	Doc     string
	Params  []Param
	Async   bool
	Handler HandlerFunc
}

// PromptDef is one row of the registration table for a prompt template.
// Category annotations anywhere in Doc become descriptor categories.
type PromptDef struct {
	Name    string
	Doc     string
	Params  []Param
	Async   bool
	Handler HandlerFunc
}

// Tool is a resolved tool: its definition, descriptor and introspected
// parameter set.
type Tool struct {
	Def        ToolDef
	Descriptor domain.ToolDescriptor
	Parameters []domain.ParameterDescriptor
}

// Prompt is a resolved prompt template.
type Prompt struct {
	Def        PromptDef
	Descriptor domain.PromptDescriptor
	Parameters []domain.ParameterDescriptor
}

// Registry owns the descriptors it builds. Registration happens at process
// startup; lookups afterwards are read-only, so no locking is needed on the
// dispatch path.
type Registry struct {
	tools       map[string]*Tool
	toolOrder   []string
	prompts     map[string]*Prompt
	promptOrder []string
	logger      *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]*Tool),
		prompts: make(map[string]*Prompt),
		logger:  logger.With("component", "registry"),
	}
}

// RegisterTool adds a tool to the table and builds its descriptor.
func (r *Registry) RegisterTool(def ToolDef) error {
	if def.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	if def.Handler == nil {
		return fmt.Errorf("register tool %q: nil handler", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("register tool %q: already registered", def.Name)
	}

	params, schema, err := introspect(def.Params)
	if err != nil {
		return fmt.Errorf("register tool %q: %w", def.Name, err)
	}

	r.tools[def.Name] = &Tool{
		Def: def,
		Descriptor: domain.ToolDescriptor{
			Name:        def.Name,
			Description: describe(def.Doc, fmt.Sprintf("Execute %s tool", def.Name)),
			Async:       def.Async,
			InputSchema: schema,
		},
		Parameters: params,
	}
	r.toolOrder = append(r.toolOrder, def.Name)
	r.logger.Debug("Registered tool", slog.String("name", def.Name), slog.Bool("async", def.Async), slog.Int("params", len(params)))
	return nil
}

// RegisterPrompt adds a prompt template to the table and builds its
// descriptor, including categories parsed from the documentation.
func (r *Registry) RegisterPrompt(def PromptDef) error {
	if def.Name == "" {
		return fmt.Errorf("register prompt: empty name")
	}
	if def.Handler == nil {
		return fmt.Errorf("register prompt %q: nil handler", def.Name)
	}
	if _, exists := r.prompts[def.Name]; exists {
		return fmt.Errorf("register prompt %q: already registered", def.Name)
	}

	params, schema, err := introspect(def.Params)
	if err != nil {
		return fmt.Errorf("register prompt %q: %w", def.Name, err)
	}

	r.prompts[def.Name] = &Prompt{
		Def: def,
		Descriptor: domain.PromptDescriptor{
			Name:        def.Name,
			Description: describe(def.Doc, fmt.Sprintf("Prompt template %s", def.Name)),
			Async:       def.Async,
			InputSchema: schema,
			Categories:  ExtractCategories(def.Doc),
		},
		Parameters: params,
	}
	r.promptOrder = append(r.promptOrder, def.Name)
	r.logger.Debug("Registered prompt", slog.String("name", def.Name), slog.Bool("async", def.Async))
	return nil
}

// Tools returns tool descriptors in registration order.
func (r *Registry) Tools() []domain.ToolDescriptor {
	out := make([]domain.ToolDescriptor, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name].Descriptor)
	}
	return out
}

// Prompts returns prompt descriptors in registration order.
func (r *Registry) Prompts() []domain.PromptDescriptor {
	out := make([]domain.PromptDescriptor, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		out = append(out, r.prompts[name].Descriptor)
	}
	return out
}

// ResolveTool looks up a tool by its protocol-visible name. An unknown name
// is reported through ok, never as an error; converting that into a protocol
// error is the dispatcher's job.
func (r *Registry) ResolveTool(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ResolvePrompt looks up a prompt template by name.
func (r *Registry) ResolvePrompt(name string) (*Prompt, bool) {
	p, ok := r.prompts[name]
	return p, ok
}

// introspect converts a declared parameter list into parameter descriptors
// and an input schema. A handler with zero parameters yields a nil schema so
// callers can distinguish "no schema" from "empty schema". Properties follow
// declaration order; required lists parameters without defaults in that same
// order.
func introspect(params []Param) ([]domain.ParameterDescriptor, *domain.JSONSchemaProps, error) {
	if len(params) == 0 {
		return nil, nil, nil
	}

	descriptors := make([]domain.ParameterDescriptor, 0, len(params))
	props := orderedmap.New[string, *domain.JSONSchemaProps]()
	var required []string

	for _, p := range params {
		if p.Name == "" {
			return nil, nil, fmt.Errorf("parameter with empty name")
		}
		if _, dup := props.Get(p.Name); dup {
			return nil, nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		descriptors = append(descriptors, domain.ParameterDescriptor{
			Name:       p.Name,
			Type:       p.Type,
			HasDefault: p.Default.IsValid(),
			Default:    p.Default,
		})
		props.Set(p.Name, p.Type.Schema())
		if !p.Default.IsValid() {
			required = append(required, p.Name)
		}
	}

	schema := &domain.JSONSchemaProps{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	return descriptors, schema, nil
}

// describe extracts the first non-empty documentation line, falling back to
// the synthesized description when the handler has none.
func describe(doc, fallback string) string {
	for _, line := range strings.Split(doc, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
