package errors

import "fmt"

// InvalidCapabilityDefinition reports a malformed capability declaration
// discovered at registration time. These are fatal to startup.
func InvalidCapabilityDefinition(category, name, reason string) HostError {
	return Newf(
		CodeInvalidCapabilityDefinition,
		CategoryCapability,
		SeverityCritical,
		"invalid %s definition %q: %s", category, name, reason,
	).WithContext(&Context{
		Component: "registry",
		Operation: "register",
	})
}

// HandlerContractViolation reports a handler that broke its result
// contract, such as returning nil where content is required.
func HandlerContractViolation(category, name, reason string) HostError {
	return Newf(
		CodeHandlerContractViolation,
		CategoryCapability,
		SeverityError,
		"%s handler %q violated its contract: %s", category, name, reason,
	).WithContext(&Context{
		Component: "registry",
		Operation: "invoke",
	})
}

// CapabilityNotFound reports a request for an unregistered capability.
func CapabilityNotFound(category, name string) HostError {
	return Newf(
		CodeCapabilityNotFound,
		CategoryNotFound,
		SeverityError,
		"%s not found: %s", category, name,
	)
}

// TransportSetupFailed reports a transport that failed to start.
func TransportSetupFailed(transport string, cause error) HostError {
	return Wrap(
		cause,
		CodeTransportSetupFailed,
		fmt.Sprintf("failed to start %s transport", transport),
		CategoryTransport,
		SeverityCritical,
	).WithContext(&Context{
		Component: transport,
		Operation: "start",
	})
}

// SessionNotFound reports a message routed to an unknown session.
func SessionNotFound(sessionID string) HostError {
	return Newf(
		CodeSessionNotFound,
		CategoryNotFound,
		SeverityError,
		"session not found: %s", sessionID,
	).WithContext(&Context{
		SessionID: sessionID,
		Component: "stream_adapter",
	})
}

// ServiceUnavailable reports a request received before the server
// finished initializing its transports.
func ServiceUnavailable(detail string) HostError {
	err := New(
		CodeServiceUnavailable,
		"service unavailable",
		CategoryInternal,
		SeverityError,
	)
	if detail != "" {
		err = err.WithDetail(detail)
	}
	return err
}

// MissingParameter reports a required parameter that was not supplied.
func MissingParameter(name string) HostError {
	return Newf(
		CodeMissingParameter,
		CategoryValidation,
		SeverityError,
		"missing required parameter: %s", name,
	)
}

// InvalidParameter reports a parameter whose value failed validation.
func InvalidParameter(name string, reason string) HostError {
	return Newf(
		CodeInvalidParameter,
		CategoryValidation,
		SeverityError,
		"invalid parameter %q: %s", name, reason,
	)
}

// ResourceNotFound reports a read for a URI no registered resource matches.
func ResourceNotFound(uri string) HostError {
	return Newf(
		CodeResourceNotFound,
		CategoryNotFound,
		SeverityError,
		"resource not found: %s", uri,
	)
}

// MethodNotFound reports an unknown JSON-RPC method.
func MethodNotFound(method string) HostError {
	return Newf(
		CodeMethodNotFound,
		CategoryProtocol,
		SeverityError,
		"method not found: %s", method,
	).WithContext(&Context{
		Method: method,
	})
}

// TransportError wraps a generic transport failure.
func TransportError(transport string, cause error) HostError {
	return Wrap(
		cause,
		CodeTransportError,
		fmt.Sprintf("%s transport error", transport),
		CategoryTransport,
		SeverityError,
	).WithContext(&Context{
		Component: transport,
	})
}

// InternalError wraps an unexpected failure during an operation.
func InternalError(operation string, cause error) HostError {
	message := "internal error"
	if operation != "" {
		message = fmt.Sprintf("internal error during %s", operation)
	}

	err := Wrap(cause, CodeInternalError, message, CategoryInternal, SeverityError)
	if operation != "" {
		err = err.WithContext(&Context{Operation: operation})
	}
	return err
}
