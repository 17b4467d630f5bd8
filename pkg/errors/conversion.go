package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

// ToResponse converts any error into a JSON-RPC error response for id.
// MCPErrors keep their message; gateway-only codes become InternalError.
func ToResponse(id interface{}, err error) *protocol.Response {
	if err == nil {
		return nil
	}
	mcpErr := ConvertStandardError(err)
	return protocol.NewErrorResponse(id, protocol.ErrorCode(WireCode(mcpErr.Code())), mcpErr.Message())
}

// FromJSONRPCError converts a JSON-RPC error returned by an upstream server
func FromJSONRPCError(jsonrpcErr *protocol.Error) MCPError {
	if jsonrpcErr == nil {
		return nil
	}
	code := int(jsonrpcErr.Code)
	category := CategoryInternal
	if info, ok := GetErrorCodeInfo(code); ok {
		category = info.Category
	}
	return NewError(code, jsonrpcErr.Message, category, SeverityError).WithData(jsonrpcErr.Data)
}

// ConvertStandardError converts common Go errors to appropriate MCP errors
func ConvertStandardError(err error) MCPError {
	if err == nil {
		return nil
	}

	// Check if it's already an MCPError
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, CodeInternalError, MsgTimeout, CategoryTimeout, SeverityError)
	}

	var syntaxErr *json.SyntaxError
	if stderrors.As(err, &syntaxErr) {
		return WrapError(err, CodeParseError, err.Error(), CategoryProtocol, SeverityError)
	}

	return WrapError(err, CodeInternalError, err.Error(), CategoryInternal, SeverityError)
}
