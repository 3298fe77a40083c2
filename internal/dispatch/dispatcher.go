// Package dispatch implements the JSON-RPC 2.0 state machine of the server:
// parse, version check, method routing, handler invocation through the
// execution bridge, and response envelope construction.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rcarmo/umcp/internal/domain"
	"github.com/rcarmo/umcp/internal/registry"
	"github.com/rcarmo/umcp/pkg/shared/jsonrpc"
)

// ProtocolVersion is the MCP protocol revision this server reports.
const ProtocolVersion = "0.1.0"

// ServerInfo is the static metadata returned by initialize.
type ServerInfo struct {
	Name         string
	Version      string
	Instructions string
}

// InitializeResult is the initialize response body.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      serverInfo   `json:"serverInfo"`
	Capabilities    capabilities `json:"capabilities"`
	Instructions    string       `json:"instructions"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type capabilities struct {
	Tools   listChanged `json:"tools"`
	Prompts listChanged `json:"prompts"`
}

type listChanged struct {
	ListChanged bool `json:"listChanged"`
}

// ToolsListResult is the tools/list response body.
type ToolsListResult struct {
	Tools []domain.ToolDescriptor `json:"tools"`
}

// PromptsListResult is the prompts/list response body.
type PromptsListResult struct {
	Prompts []domain.PromptDescriptor `json:"prompts"`
}

// ToolCallResult wraps a tool result as protocol content.
type ToolCallResult struct {
	Content []domain.TextContent `json:"content"`
}

// PromptGetResult is the prompts/get response body. Messages is present only
// when the caller supplied arguments; without arguments the result describes
// the prompt instead of rendering it.
type PromptGetResult struct {
	Description string        `json:"description"`
	Categories  []string      `json:"categories,omitempty"`
	Messages    *domain.Value `json:"messages,omitempty"`
}

// Dispatcher routes requests to the capability registry and execution
// bridge. It holds the registry by reference and never mutates descriptors.
type Dispatcher struct {
	registry *registry.Registry
	bridge   *Bridge
	info     ServerInfo
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a dispatcher for the given capability surface.
func New(reg *registry.Registry, bridge *Bridge, info ServerInfo, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		bridge:   bridge,
		info:     info,
		logger:   logger.With("component", "dispatcher"),
		tracer:   otel.Tracer("github.com/rcarmo/umcp/internal/dispatch"),
	}
}

// Dispatch processes one raw request through a full cycle and returns the
// response envelope, or nil for notifications. Handler failures surface as
// protocol errors in the same cycle; the dispatcher itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, raw string) *jsonrpc.Response {
	ctx, span := d.tracer.Start(ctx, "mcp.dispatch")
	defer span.End()

	var req jsonrpc.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		d.logger.Error("Invalid JSON in request", slog.Any("error", err))
		return jsonrpc.NewError(nil, jsonrpc.CodeParseError, "Parse error")
	}

	span.SetAttributes(attribute.String("rpc.method", req.Method))
	d.logger.Info("Processing method", slog.String("method", req.Method), slog.String("id", string(req.ID)))

	if req.Version != jsonrpc.Version {
		return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidRequest, "Invalid Request: Not a JSON-RPC 2.0 request")
	}

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req.ID, req.Params)
	case "tools/list":
		return d.handleToolsList(req.ID)
	case "tools/call":
		return d.handleToolsCall(ctx, req.ID, req.Params)
	case "prompts/list":
		return d.handlePromptsList(req.ID)
	case "prompts/get":
		return d.handlePromptsGet(ctx, req.ID, req.Params)
	case "notifications/initialized":
		d.logger.Info("Host confirmed tool contract reception with 'notifications/initialized'")
		return nil
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (d *Dispatcher) handleInitialize(id, params json.RawMessage) *jsonrpc.Response {
	var p struct {
		ClientInfo json.RawMessage `json:"clientInfo"`
	}
	// Client info is logged but otherwise unused; a malformed params object
	// does not fail initialize.
	_ = json.Unmarshal(params, &p)
	d.logger.Info("Initialize request from client", slog.String("client_info", string(p.ClientInfo)))

	return jsonrpc.NewResult(id, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo:      serverInfo{Name: d.info.Name, Version: d.info.Version},
		Capabilities: capabilities{
			Tools:   listChanged{ListChanged: true},
			Prompts: listChanged{ListChanged: true},
		},
		Instructions: d.info.Instructions,
	})
}

func (d *Dispatcher) handleToolsList(id json.RawMessage) *jsonrpc.Response {
	tools := d.registry.Tools()
	d.logger.Info("Listing tools", slog.Int("count", len(tools)))
	return jsonrpc.NewResult(id, ToolsListResult{Tools: tools})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, id, params json.RawMessage) *jsonrpc.Response {
	var p struct {
		Name      string                  `json:"name"`
		Arguments map[string]domain.Value `json:"arguments"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, fmt.Sprintf("Invalid params: %v", err))
		}
	}
	if p.Name == "" {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, "Missing 'name' parameter")
	}

	tool, ok := d.registry.ResolveTool(p.Name)
	if !ok {
		return jsonrpc.NewError(id, jsonrpc.CodeMethodNotFound, fmt.Sprintf("Tool not found: %s", p.Name))
	}

	d.logger.Info("Tool call", slog.String("tool", p.Name), slog.Int("arguments", len(p.Arguments)))
	result, err := d.bridge.Invoke(ctx, Invocation{
		Name:       tool.Def.Name,
		Handler:    tool.Def.Handler,
		Async:      tool.Def.Async,
		Parameters: tool.Parameters,
	}, p.Arguments)
	if err != nil {
		d.logger.Error("Tool execution error", slog.String("tool", p.Name), slog.Any("error", err))
		return jsonrpc.NewError(id, jsonrpc.CodeInternalError, executionMessage(p.Name, err))
	}

	return jsonrpc.NewResult(id, ToolCallResult{
		Content: []domain.TextContent{{Type: "text", Text: result.Text()}},
	})
}

func (d *Dispatcher) handlePromptsList(id json.RawMessage) *jsonrpc.Response {
	prompts := d.registry.Prompts()
	d.logger.Info("Listing prompts", slog.Int("count", len(prompts)))
	return jsonrpc.NewResult(id, PromptsListResult{Prompts: prompts})
}

func (d *Dispatcher) handlePromptsGet(ctx context.Context, id, params json.RawMessage) *jsonrpc.Response {
	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, fmt.Sprintf("Invalid params: %v", err))
		}
	}
	if p.Name == "" {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, "Missing 'name' parameter")
	}

	prompt, ok := d.registry.ResolvePrompt(p.Name)
	if !ok {
		return jsonrpc.NewError(id, jsonrpc.CodeMethodNotFound, fmt.Sprintf("Prompt not found: %s", p.Name))
	}

	result := PromptGetResult{
		Description: prompt.Descriptor.Description,
		Categories:  prompt.Descriptor.Categories,
	}

	// Without caller arguments the result only describes the prompt; the
	// handler is not invoked at all.
	if !argumentsSupplied(p.Arguments) {
		d.logger.Info("Prompt description requested", slog.String("prompt", p.Name))
		return jsonrpc.NewResult(id, result)
	}

	var args map[string]domain.Value
	if err := json.Unmarshal(p.Arguments, &args); err != nil {
		return jsonrpc.NewError(id, jsonrpc.CodeInvalidParams, fmt.Sprintf("Invalid arguments: %v", err))
	}

	d.logger.Info("Prompt render requested", slog.String("prompt", p.Name), slog.Int("arguments", len(args)))
	rendered, err := d.bridge.Invoke(ctx, Invocation{
		Name:       prompt.Def.Name,
		Handler:    prompt.Def.Handler,
		Async:      prompt.Def.Async,
		Parameters: prompt.Parameters,
	}, args)
	if err != nil {
		d.logger.Error("Prompt execution error", slog.String("prompt", p.Name), slog.Any("error", err))
		return jsonrpc.NewError(id, jsonrpc.CodeInternalError, executionMessage(p.Name, err))
	}

	messages := renderMessages(rendered)
	result.Messages = &messages
	return jsonrpc.NewResult(id, result)
}

// argumentsSupplied distinguishes an "arguments" member present in params
// (even as an empty object) from one that is absent or null.
func argumentsSupplied(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// renderMessages normalizes a prompt handler's return value into a messages
// array: plain text becomes a single user message, a list of role/content
// pairs passes through unchanged, a structure exposing a "messages" list is
// unwrapped, and anything else is stringified into a user text message.
func renderMessages(v domain.Value) domain.Value {
	if s, ok := v.AsString(); ok {
		return domain.ArrayValue(domain.UserTextMessage(s))
	}
	if arr, ok := v.AsArray(); ok {
		if len(arr) == 0 {
			return domain.ArrayValue()
		}
		allMessages := true
		for _, m := range arr {
			if _, hasRole := m.Field("role"); !hasRole {
				allMessages = false
				break
			}
		}
		if allMessages {
			return v
		}
	}
	if inner, ok := v.Field("messages"); ok {
		if _, isArr := inner.AsArray(); isArr {
			return inner
		}
	}
	return domain.ArrayValue(domain.UserTextMessage(v.Text()))
}

// executionMessage builds the -32603 message text, appending the underlying
// failure except for the bare "no result" sentinel.
func executionMessage(name string, err error) string {
	if errors.Is(err, ErrNoResult) {
		return fmt.Sprintf("Tool execution error for %s", name)
	}
	return fmt.Sprintf("Tool execution error for %s: %s", name, err)
}
