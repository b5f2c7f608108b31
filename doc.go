// Package mcphost implements a capability host for the Model Context
// Protocol (MCP).
//
// # Overview
//
// The host sits between provider objects, which declare capabilities
// in plain Go, and MCP clients speaking JSON-RPC over stdio or
// server-sent events. The sub-packages divide the work:
//
//   - pkg/capability: discovers declarations on providers and wraps
//     their handlers with validation and result shaping
//   - pkg/schema: normalizes the polymorphic parameter declaration
//     shapes into uniform validated specs
//   - pkg/server: the protocol sink, the SSE session adapter, and the
//     host lifecycle
//   - pkg/transport: stdio and SSE transports with shared JSON-RPC
//     dispatch
//   - pkg/protocol: wire types for the MCP revision the host speaks
//   - pkg/errors: the host error taxonomy and its JSON-RPC and HTTP
//     translations
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Declaring capabilities
//
// A provider returns declarations from Capabilities:
//
//	type Calculator struct{}
//
//	func (c *Calculator) Capabilities() []mcphost.Declaration {
//	    return []mcphost.Declaration{{
//	        Category:    mcphost.CategoryTool,
//	        Name:        "add",
//	        Description: "Adds two numbers",
//	        Parameters: []mcphost.Param{
//	            {Name: "a", Schema: "number"},
//	            {Name: "b", Schema: "number"},
//	        },
//	        Tool: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
//	            return args["a"].(float64) + args["b"].(float64), nil
//	        },
//	    }}
//	}
//
// # Running a host
//
//	lifecycle, err := mcphost.NewLifecycle(mcphost.Config{
//	    Name:        "calculator",
//	    Version:     "1.0.0",
//	    HTTPAddr:    ":8080",
//	    EnableStdio: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := lifecycle.Run(ctx, &Calculator{}); err != nil {
//	    log.Fatal(err)
//	}
//
// Run blocks until the context is cancelled or Shutdown is called,
// then tears down transports, sessions, and the sink in order.
package mcphost
