package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelhost/mcp-host-go/pkg/protocol"
)

// ToJSONRPCResponse converts any error to a JSON-RPC error response
func ToJSONRPCResponse(err error, requestID interface{}) (*protocol.Response, error) {
	if err == nil {
		return nil, fmt.Errorf("cannot create error response from nil error")
	}

	if hostErr, ok := AsHostError(err); ok {
		return protocol.NewErrorResponse(requestID, protocol.ErrorCode(hostErr.Code()), hostErr.Message(), hostErr.Data())
	}

	return protocol.NewErrorResponse(requestID, protocol.InternalError, err.Error(), nil)
}

// ToJSONRPCError converts any error to a JSON-RPC error object
func ToJSONRPCError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	if hostErr, ok := AsHostError(err); ok {
		return &protocol.Error{
			Code:    protocol.ErrorCode(hostErr.Code()),
			Message: hostErr.Message(),
			Data:    hostErr.Data(),
		}
	}

	return &protocol.Error{
		Code:    protocol.InternalError,
		Message: err.Error(),
	}
}

// FromJSONRPCError converts a JSON-RPC error object to a HostError
func FromJSONRPCError(rpcErr *protocol.Error) HostError {
	if rpcErr == nil {
		return nil
	}

	code := int(rpcErr.Code)
	err := New(code, rpcErr.Message, GetErrorCodeCategory(code), GetErrorCodeSeverity(code))
	if rpcErr.Data != nil {
		err = err.WithData(rpcErr.Data)
	}
	return err
}

// HTTPStatus maps an error to the HTTP status code the stream adapter
// reports for it. Unknown errors map to 500.
func HTTPStatus(err error) int {
	hostErr, ok := AsHostError(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch hostErr.Code() {
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeSessionNotFound, CodeSessionClosed:
		return http.StatusNotFound
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams,
		CodeMissingParameter, CodeInvalidParameter, CodeValidationError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ConvertStandardError converts common Go errors to appropriate host errors
func ConvertStandardError(err error) HostError {
	if err == nil {
		return nil
	}

	if hostErr, ok := AsHostError(err); ok {
		return hostErr
	}

	if _, ok := err.(*json.SyntaxError); ok {
		return New(CodeParseError, "invalid JSON", CategoryProtocol, SeverityError)
	}

	if _, ok := err.(*json.UnmarshalTypeError); ok {
		return New(CodeInvalidParams, "invalid parameter type", CategoryValidation, SeverityError)
	}

	return Wrap(err, CodeInternalError, "internal error", CategoryInternal, SeverityError)
}
