package errors

// JSON-RPC 2.0 standard error codes
const (
	// CodeParseError indicates invalid JSON was received by the server
	CodeParseError int = -32700

	// CodeInvalidRequest indicates the JSON sent is not a valid Request object
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method does not exist / is not available
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates internal JSON-RPC error
	CodeInternalError int = -32603
)

// Host-specific error codes
const (
	// Server lifecycle errors (-32000 to -32099)
	CodeServerInitError    int = -32000 // Error during server initialization
	CodeServiceUnavailable int = -32001 // Server not ready to handle requests
	CodeShutdownError      int = -32002 // Error during server shutdown

	// Session errors (-32100 to -32199)
	CodeSessionNotFound int = -32100 // Referenced session does not exist
	CodeSessionClosed   int = -32101 // Session already closed

	// Resource errors (-32200 to -32299)
	CodeResourceNotFound int = -32200 // Requested resource not found

	// Capability errors (-32400 to -32499)
	CodeInvalidCapabilityDefinition int = -32400 // Malformed capability declaration
	CodeHandlerContractViolation    int = -32401 // Handler returned an invalid result
	CodeCapabilityNotFound          int = -32402 // Named capability not registered

	// Transport errors (-32500 to -32599)
	CodeTransportError       int = -32500 // Generic transport error
	CodeTransportSetupFailed int = -32501 // Transport failed to start
	CodeConnectionLost       int = -32502 // Connection lost during operation

	// Validation errors (-32750 to -32799)
	CodeValidationError  int = -32750 // Generic validation error
	CodeMissingParameter int = -32751 // Required parameter missing
	CodeInvalidParameter int = -32752 // Parameter has invalid value

	// Protocol errors (-32900 to -32999)
	CodeProtocolError   int = -32900 // Generic protocol error
	CodeVersionMismatch int = -32901 // Protocol version mismatch
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

// errorCodeRegistry maps error codes to their information
var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	CodeServerInitError:    {CodeServerInitError, "ServerInitError", "Server initialization failed", CategoryInternal, SeverityCritical},
	CodeServiceUnavailable: {CodeServiceUnavailable, "ServiceUnavailable", "Server not ready", CategoryInternal, SeverityError},
	CodeShutdownError:      {CodeShutdownError, "ShutdownError", "Server shutdown error", CategoryInternal, SeverityWarning},

	CodeSessionNotFound: {CodeSessionNotFound, "SessionNotFound", "Session does not exist", CategoryNotFound, SeverityError},
	CodeSessionClosed:   {CodeSessionClosed, "SessionClosed", "Session already closed", CategoryNotFound, SeverityWarning},

	CodeResourceNotFound: {CodeResourceNotFound, "ResourceNotFound", "Resource not found", CategoryNotFound, SeverityError},

	CodeInvalidCapabilityDefinition: {CodeInvalidCapabilityDefinition, "InvalidCapabilityDefinition", "Malformed capability declaration", CategoryCapability, SeverityCritical},
	CodeHandlerContractViolation:    {CodeHandlerContractViolation, "HandlerContractViolation", "Handler returned an invalid result", CategoryCapability, SeverityError},
	CodeCapabilityNotFound:          {CodeCapabilityNotFound, "CapabilityNotFound", "Capability not registered", CategoryNotFound, SeverityError},

	CodeTransportError:       {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeTransportSetupFailed: {CodeTransportSetupFailed, "TransportSetupFailed", "Transport failed to start", CategoryTransport, SeverityCritical},
	CodeConnectionLost:       {CodeConnectionLost, "ConnectionLost", "Connection lost", CategoryTransport, SeverityError},

	CodeValidationError:  {CodeValidationError, "ValidationError", "Validation error", CategoryValidation, SeverityError},
	CodeMissingParameter: {CodeMissingParameter, "MissingParameter", "Required parameter missing", CategoryValidation, SeverityError},
	CodeInvalidParameter: {CodeInvalidParameter, "InvalidParameter", "Invalid parameter value", CategoryValidation, SeverityError},

	CodeProtocolError:   {CodeProtocolError, "ProtocolError", "Protocol error", CategoryProtocol, SeverityError},
	CodeVersionMismatch: {CodeVersionMismatch, "VersionMismatch", "Protocol version mismatch", CategoryProtocol, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryInternal
}

// GetErrorCodeSeverity returns the severity of an error code
func GetErrorCodeSeverity(code int) Severity {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Severity
	}
	return SeverityError
}
