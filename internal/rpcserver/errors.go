package rpcserver

import (
	"errors"
	"fmt"

	"github.com/amanmcp/mnemo/internal/merrors"
)

// Custom JSON-RPC error codes, reserved in the -32000..-32099 range per
// spec.md §6.3.
const (
	ErrCodeNotFound      = -32001
	ErrCodeEmbedderError = -32002

	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// ToolError is a JSON-RPC error with a numeric code, returned by tool
// handlers for isError:true responses.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds an invalid-arguments error for a tool call.
func NewInvalidParamsError(msg string) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewResourceNotFoundError builds a not-found error for an unknown memory id.
func NewResourceNotFoundError(id string) *ToolError {
	return &ToolError{Code: ErrCodeNotFound, Message: fmt.Sprintf("memory %q not found", id)}
}

// MapError converts an internal error into a ToolError with an appropriate
// code.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}

	switch merrors.KindOf(err) {
	case merrors.KindNotFound:
		return &ToolError{Code: ErrCodeNotFound, Message: err.Error()}
	case merrors.KindEmbedder:
		return &ToolError{Code: ErrCodeEmbedderError, Message: err.Error()}
	case merrors.KindInvalid:
		return &ToolError{Code: ErrCodeInvalidParams, Message: err.Error()}
	default:
		var memErr *merrors.MemError
		if errors.As(err, &memErr) {
			return &ToolError{Code: ErrCodeInternalError, Message: memErr.Error()}
		}
		return &ToolError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}
