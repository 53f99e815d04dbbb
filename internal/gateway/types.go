package gateway

// Message is one conversation entry in the model's context order.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured request emitted by the model, naming a tool and
// its arguments. Produced only by the response parser.
type ToolCall struct {
	ID       string       `json:"id"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and argument mapping.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Command extracts the "command" argument, the single argument every tool
// in this system takes. Empty when absent or not a string.
func (f FunctionCall) Command() string {
	cmd, _ := f.Arguments["command"].(string)
	return cmd
}

// ToolDefinition describes a tool capability in the JSON-schema form the
// backend expects inside the [AVAILABLE_TOOLS] section.
type ToolDefinition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function is the schema half of a ToolDefinition.
type Function struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters is a JSON-schema object description.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes a single parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Response is what Generate returns: the model's visible text with the
// delimiter convention stripped, plus any recovered tool calls.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}
