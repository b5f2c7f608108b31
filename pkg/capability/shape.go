package capability

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

// shapeToolResult converts a tool handler's return value into the
// sink's result shape. Arrays become the content list, objects pass
// through as a single sink-shaped entry, and anything else is coerced
// to a single text-content entry.
func shapeToolResult(result interface{}) *protocol.CallToolResult {
	switch v := result.(type) {
	case *protocol.CallToolResult:
		return v
	case protocol.CallToolResult:
		return &v
	case []interface{}:
		return &protocol.CallToolResult{Content: v}
	case map[string]interface{}:
		return &protocol.CallToolResult{Content: []interface{}{v}}
	case protocol.TextContent:
		return &protocol.CallToolResult{Content: []interface{}{v}}
	default:
		text := protocol.NewTextContent(fmt.Sprintf("%v", v))
		return &protocol.CallToolResult{Content: []interface{}{text}}
	}
}

// shapeResourceResult converts a resource handler's return value into a
// read result. A single non-list value is wrapped into a one-element
// content list.
func shapeResourceResult(uri, mimeType string, result interface{}) *protocol.ReadResourceResult {
	switch v := result.(type) {
	case *protocol.ReadResourceResult:
		return v
	case protocol.ReadResourceResult:
		return &v
	case []protocol.ResourceContent:
		return &protocol.ReadResourceResult{Contents: v}
	case protocol.ResourceContent:
		return &protocol.ReadResourceResult{Contents: []protocol.ResourceContent{v}}
	case string:
		return &protocol.ReadResourceResult{Contents: []protocol.ResourceContent{
			{URI: uri, MimeType: mimeType, Text: v},
		}}
	default:
		return &protocol.ReadResourceResult{Contents: []protocol.ResourceContent{
			{URI: uri, MimeType: mimeType, Text: coerceText(v)},
		}}
	}
}

// coerceText renders an arbitrary handler value as text, preferring
// JSON for structured values.
func coerceText(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}

// RenderTemplate substitutes {name} placeholders in a prompt template
// with the string form of the matching value. Placeholders without a
// matching value are left untouched.
func RenderTemplate(template string, values map[string]interface{}) string {
	if len(values) == 0 {
		return template
	}

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
