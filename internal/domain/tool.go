package domain

// ParameterDescriptor describes one declared handler parameter. The implicit
// receiver of a handler is never represented here. A parameter is required
// iff it carries no default, irrespective of its position.
type ParameterDescriptor struct {
	Name       string
	Type       TypeTag
	HasDefault bool
	Default    Value
}

// ToolDescriptor is the protocol-facing record for a callable operation,
// built once when the registry scans its registration table and immutable
// afterwards.
type ToolDescriptor struct {
	// Name is the protocol-visible tool name. It MUST be unique within the
	// server.
	Name string `json:"name"`

	// Description is the first documentation line of the handler, or a
	// synthesized fallback when the handler carries none.
	Description string `json:"description"`

	// Async reports whether the handler suspends cooperatively rather than
	// running to completion on a worker.
	Async bool `json:"async"`

	// InputSchema is absent (not empty) for handlers that take no
	// user-visible parameters.
	InputSchema *JSONSchemaProps `json:"inputSchema,omitempty"`
}
