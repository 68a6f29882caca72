// Package mcperr provides the error taxonomy for the protocol server. Every
// failure is one of exactly two shapes: a ProtocolError, which becomes a
// JSON-RPC error object, or a ToolError, which becomes a successful envelope
// with isError set. Keeping the two as distinct types makes it impossible to
// map an unknown-tool condition into a business error or vice versa.
package mcperr

import (
	"errors"
	"fmt"

	"github.com/officekit/workspace-mcp/pkg/protocol"
)

// ProtocolError is a JSON-RPC level fault: malformed input, an unknown
// method, or an unknown tool name. It is answered with an error envelope.
type ProtocolError struct {
	Code    protocol.ErrorCode
	Message string
	Data    interface{}
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

// ToolError is a business failure raised inside a tool handler: a missing
// argument, an upstream API rejection, anything the handler could not
// complete. It is surfaced inline to the conversation, never as a transport
// fault, and the process keeps serving.
type ToolError struct {
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ToolError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// Parse creates the error for a line that is not valid JSON.
func Parse(cause error) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.ParseError,
		Message: "parse error",
		Data:    cause.Error(),
	}
}

// UnknownMethod creates the error for an unsupported method name.
func UnknownMethod(method string) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.MethodNotFound,
		Message: fmt.Sprintf("method not found: %s", method),
	}
}

// UnknownTool creates the error for a tools/call naming an unregistered
// tool. This superficially resembles a failed call but is a protocol fault:
// the client asked for something the registry never advertised.
func UnknownTool(name string) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.InvalidParams,
		Message: fmt.Sprintf("unknown tool: %s", name),
	}
}

// UnknownPrompt creates the error for a prompts/get naming an unregistered
// prompt.
func UnknownPrompt(name string) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.InvalidParams,
		Message: fmt.Sprintf("unknown prompt: %s", name),
	}
}

// InvalidParams creates the error for structurally invalid parameters.
func InvalidParams(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.InvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}

// Internal creates the error for a server-side fault while shaping a
// response.
func Internal(cause error) *ProtocolError {
	return &ProtocolError{
		Code:    protocol.InternalError,
		Message: "internal error",
		Data:    cause.Error(),
	}
}

// Toolf creates a business error with a formatted user-facing message.
func Toolf(format string, args ...interface{}) *ToolError {
	return &ToolError{Message: fmt.Sprintf(format, args...)}
}

// WrapTool wraps an upstream failure as a business error, keeping only the
// message text for the client while preserving the cause for the diagnostic
// log.
func WrapTool(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: err}
}

// MissingArgument creates the business error for a required tool argument
// the client did not supply. Argument validation is each handler's job; the
// core never enforces schemas.
func MissingArgument(name string) *ToolError {
	return &ToolError{Message: fmt.Sprintf("missing required argument: %s", name)}
}

// AsProtocol reports whether err is a protocol-level fault.
func AsProtocol(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
