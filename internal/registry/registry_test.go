package registry_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/umcp/internal/domain"
	"github.com/rcarmo/umcp/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return registry.New(logger)
}

func noopHandler(ctx context.Context, args map[string]domain.Value) (domain.Value, error) {
	return domain.NullValue(), nil
}

func TestRegistry_RegisterTool_Descriptor(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	reg := newTestRegistry(t)

	require.NoError(reg.RegisterTool(registry.ToolDef{
		Name: "echo",
		Params: []registry.Param{
			{Name: "x", Type: domain.TypeString},
		},
		Handler: noopHandler,
	}))

	tools := reg.Tools()
	require.Len(tools, 1)
	desc := tools[0]
	assert.Equal("echo", desc.Name)
	assert.Equal("Execute echo tool", desc.Description, "missing doc synthesizes a description")
	assert.False(desc.Async)

	// Round-trip: the registered handler yields exactly the expected schema.
	data, err := json.Marshal(desc.InputSchema)
	require.NoError(err)
	assert.JSONEq(`{"type":"object","properties":{"x":{"type":"string"}},"required":["x"]}`, string(data))
}

func TestRegistry_DescriptionUsesFirstDocLine(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.RegisterTool(registry.ToolDef{
		Name:    "add",
		Doc:     "Add two numbers together.\n\nArgs:\n  a: First number",
		Handler: noopHandler,
	}))

	tools := reg.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "Add two numbers together.", tools[0].Description)
}

func TestRegistry_NoParamsMeansNoSchema(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.RegisterTool(registry.ToolDef{Name: "ping", Handler: noopHandler}))

	tool, ok := reg.ResolveTool("ping")
	require.True(t, ok)
	assert.Nil(t, tool.Descriptor.InputSchema, "zero parameters yields absent schema, not an empty one")
	assert.Empty(t, tool.Parameters)
}

func TestRegistry_RequiredFollowsDefaults(t *testing.T) {
	require := require.New(t)
	reg := newTestRegistry(t)

	// The optional parameter sits between two required ones: required is
	// decided per parameter by default presence, not by position.
	require.NoError(reg.RegisterTool(registry.ToolDef{
		Name: "search",
		Params: []registry.Param{
			{Name: "query", Type: domain.TypeString},
			{Name: "limit", Type: domain.TypeInt, Default: domain.IntValue(10)},
			{Name: "scope", Type: domain.TypeString},
		},
		Handler: noopHandler,
	}))

	tool, ok := reg.ResolveTool("search")
	require.True(ok)
	require.NotNil(tool.Descriptor.InputSchema)
	assert.Equal(t, []string{"query", "scope"}, tool.Descriptor.InputSchema.Required)

	require.Len(tool.Parameters, 3)
	assert.False(t, tool.Parameters[0].HasDefault)
	assert.True(t, tool.Parameters[1].HasDefault)
	assert.Equal(t, domain.IntValue(10), tool.Parameters[1].Default)
}

func TestRegistry_SchemaPropertiesKeepDeclarationOrder(t *testing.T) {
	require := require.New(t)
	reg := newTestRegistry(t)

	require.NoError(reg.RegisterTool(registry.ToolDef{
		Name: "book",
		Params: []registry.Param{
			{Name: "zulu", Type: domain.TypeString},
			{Name: "alpha", Type: domain.TypeInt},
			{Name: "mike", Type: domain.TypeBool},
		},
		Handler: noopHandler,
	}))

	tool, ok := reg.ResolveTool("book")
	require.True(ok)
	data, err := json.Marshal(tool.Descriptor.InputSchema)
	require.NoError(err)
	// Not JSONEq: byte order matters here.
	assert.Equal(t,
		`{"type":"object","properties":{"zulu":{"type":"string"},"alpha":{"type":"integer"},"mike":{"type":"boolean"}},"required":["zulu","alpha","mike"]}`,
		string(data))
}

func TestRegistry_RegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		def     registry.ToolDef
		wantErr string
	}{
		{
			name:    "empty name",
			def:     registry.ToolDef{Handler: noopHandler},
			wantErr: "empty name",
		},
		{
			name:    "nil handler",
			def:     registry.ToolDef{Name: "broken"},
			wantErr: "nil handler",
		},
		{
			name: "duplicate parameter",
			def: registry.ToolDef{
				Name: "dup",
				Params: []registry.Param{
					{Name: "x", Type: domain.TypeString},
					{Name: "x", Type: domain.TypeInt},
				},
				Handler: noopHandler,
			},
			wantErr: `duplicate parameter "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry(t)
			err := reg.RegisterTool(tt.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_DuplicateToolName(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.RegisterTool(registry.ToolDef{Name: "once", Handler: noopHandler}))
	err := reg.RegisterTool(registry.ToolDef{Name: "once", Handler: noopHandler})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// The first registration stays listed exactly once.
	assert.Len(t, reg.Tools(), 1)
}

func TestRegistry_RegisterPrompt(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	reg := newTestRegistry(t)

	require.NoError(reg.RegisterPrompt(registry.PromptDef{
		Name: "code_review",
		Doc:  "Generate a code review prompt for a given file.\nCategories: code, review",
		Params: []registry.Param{
			{Name: "filename", Type: domain.TypeString},
			{Name: "issues", Type: domain.TypeInt, Default: domain.IntValue(0)},
		},
		Handler: noopHandler,
	}))
	require.NoError(reg.RegisterPrompt(registry.PromptDef{
		Name:    "plain",
		Handler: noopHandler,
	}))

	prompts := reg.Prompts()
	require.Len(prompts, 2)

	review := prompts[0]
	assert.Equal("code_review", review.Name)
	assert.Equal("Generate a code review prompt for a given file.", review.Description)
	assert.Equal([]string{"code", "review"}, review.Categories)
	require.NotNil(review.InputSchema)
	assert.Equal([]string{"filename"}, review.InputSchema.Required)

	plain := prompts[1]
	assert.Equal("Prompt template plain", plain.Description)
	assert.Empty(plain.Categories)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg := newTestRegistry(t)

	tool, ok := reg.ResolveTool("missing")
	assert.False(t, ok)
	assert.Nil(t, tool)

	prompt, ok := reg.ResolvePrompt("missing")
	assert.False(t, ok)
	assert.Nil(t, prompt)
}
