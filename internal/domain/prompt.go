package domain

// PromptDescriptor is the protocol-facing record for a prompt template.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Async       bool             `json:"async"`
	InputSchema *JSONSchemaProps `json:"inputSchema,omitempty"`

	// Categories are parsed from the handler documentation, lowercased and
	// deduplicated preserving first-seen order.
	Categories []string `json:"categories,omitempty"`
}

// TextContent is the single content form this server emits.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserTextMessage wraps plain text into a single user-role message, the
// default rendering for prompt handlers that return a bare string.
func UserTextMessage(text string) Value {
	return ObjectValue(map[string]Value{
		"role": StringValue("user"),
		"content": ObjectValue(map[string]Value{
			"type": StringValue("text"),
			"text": StringValue(text),
		}),
	})
}
