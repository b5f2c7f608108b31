// Package mcphost provides a Model Context Protocol capability host
// for Go. Providers declare tools, resources, and prompts; the host
// normalizes their parameter schemas, wraps their handlers with
// validation and error translation, and serves them over stdio and
// server-sent-events transports.
package mcphost

import (
	"github.com/modelhost/mcp-host-go/pkg/capability"
	"github.com/modelhost/mcp-host-go/pkg/server"
	"github.com/modelhost/mcp-host-go/pkg/transport"
)

// Version is the current host version
const Version = "0.1.0"

// Core component constructors, re-exported for convenience.
var (
	// NewServer creates a protocol sink holding the capability tables
	NewServer = server.NewServer

	// NewRegistry creates a capability registry bound to a sink
	NewRegistry = capability.NewRegistry

	// NewLifecycle assembles a full host from a Config
	NewLifecycle = server.NewLifecycle

	// NewStreamSessionAdapter creates an SSE session adapter
	NewStreamSessionAdapter = server.NewStreamSessionAdapter

	// NewStdioTransport creates a stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// NewSSETransport creates a per-session SSE transport
	NewSSETransport = transport.NewSSETransport
)

// Commonly used types, aliased so simple hosts only import this
// package.
type (
	// Config describes a host instance
	Config = server.Config

	// Lifecycle owns a host from registration through shutdown
	Lifecycle = server.Lifecycle

	// Declaration describes one capability a provider exposes
	Declaration = capability.Declaration

	// Param is one declared capability parameter
	Param = capability.Param

	// Provider exposes capabilities for registration
	Provider = capability.Provider
)

// Capability categories.
const (
	CategoryResource = capability.CategoryResource
	CategoryTool     = capability.CategoryTool
	CategoryPrompt   = capability.CategoryPrompt
)
