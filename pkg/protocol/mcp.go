package protocol

import "encoding/json"

const (
	// ProtocolVersion is the MCP protocol revision this server speaks.
	ProtocolVersion = "2024-11-05"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"

	// Methods for server features
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
	MethodListPrompts = "prompts/list"
	MethodGetPrompt   = "prompts/get"
)

// Tool describes a callable operation: a stable name, a human-readable
// description and a JSON Schema documenting the argument shape. The schema is
// documentation for the client; the server does not enforce it.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// TextContent is a single text item inside a tool call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent creates a text content item
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CallToolResult defines the response for tool calls. A handler failure is
// carried here with IsError set, inside a successful JSON-RPC envelope; it is
// never a protocol-level error.
type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError"`
}

// ListToolsResult defines the response for listing tools
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// Prompt represents a named, parameterized message template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument defines one parameter of a prompt
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// ListPromptsResult defines the response for listing prompts
type ListPromptsResult struct {
	Prompts []Prompt `json:"prompts"`
}

// GetPromptParams defines parameters for retrieving a prompt
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one message of a rendered prompt
type PromptMessage struct {
	Role    string      `json:"role"`
	Content TextContent `json:"content"`
}

// GetPromptResult defines the response for retrieving a prompt
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ClientInfo      *ClientInfo  `json:"clientInfo,omitempty"`
}

// ClientInfo identifies the connecting client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// ServerInfo identifies this server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities declares which feature groups a peer supports. Tools are
// always advertised by this server; prompts only when the service registered
// any.
type Capabilities struct {
	Tools   *ToolsCapability   `json:"tools,omitempty"`
	Prompts *PromptsCapability `json:"prompts,omitempty"`
}

// ToolsCapability marks tool support
type ToolsCapability struct{}

// PromptsCapability marks prompt support
type PromptsCapability struct{}
