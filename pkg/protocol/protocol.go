// Package protocol defines the wire-level types for the MCP capability
// host: JSON-RPC 2.0 framing plus the method names and parameter/result
// shapes for the capability operations the sink server exposes.
package protocol

// ProtocolRevision is the protocol revision this implementation targets
const ProtocolRevision = "2024-11-05"

// Method names for requests handled by the sink server
const (
	MethodInitialize            = "initialize"
	MethodPing                  = "ping"
	MethodListTools             = "tools/list"
	MethodCallTool              = "tools/call"
	MethodListResources         = "resources/list"
	MethodListResourceTemplates = "resources/templates/list"
	MethodReadResource          = "resources/read"
	MethodListPrompts           = "prompts/list"
	MethodGetPrompt             = "prompts/get"
)

// Notification method names
const (
	MethodInitialized = "notifications/initialized"
)

// ClientInfo describes the connecting client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo describes this server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
}

// InitializeResult defines the response to the initialize request.
// Capabilities is an opaque pass-through supplied by server configuration.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	Instructions    string                 `json:"instructions,omitempty"`
}

// PingResult defines the response to a ping request
type PingResult struct{}

// TextContent is a single text entry in a content list
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent creates a text content entry
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}
