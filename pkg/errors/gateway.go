package errors

import (
	"errors"
	"fmt"
)

// Client-visible messages. Clients match on these strings, keep them stable.
const (
	MsgInvalidAccessKey = "Invalid accessKey."
	MsgTimeout          = "Timeout."
	MsgTryAgain         = "Internal server error. Try again."
)

// InvalidAccessKey is returned when a request's accessKey does not match
// the configured one.
func InvalidAccessKey() MCPError {
	return NewError(CodeInternalError, MsgInvalidAccessKey, CategoryAuth, SeverityWarning).
		WithData(map[string]interface{}{"reason": GetErrorCodeName(CodeUnauthorized)})
}

// PromptNotFound reports a prompts/get for a name no server provides.
func PromptNotFound(name string) MCPError {
	return NewError(CodeInvalidParams, fmt.Sprintf("No prompt name of \"%s\".", name), CategoryNotFound, SeverityWarning)
}

// MethodDidNotWork reports a callable method whose target is absent from
// the function table.
func MethodDidNotWork(method string) MCPError {
	return NewError(CodeInternalError, fmt.Sprintf("%s didn't work.", method), CategoryNotFound, SeverityError).
		WithContext(&Context{Method: method})
}

// HandlerFailed wraps an error raised by a registered handler. The handler's
// own text becomes the client-visible message.
func HandlerFailed(method string, cause error) MCPError {
	msg := "handler failed"
	if cause != nil {
		msg = cause.Error()
	}
	return WrapError(cause, CodeInternalError, msg, CategoryHandler, SeverityError).
		WithContext(&Context{Method: method, Component: "router", Operation: "invoke"})
}

// ErrLockTimeout is returned when the server lock could not be acquired.
var ErrLockTimeout = NewError(CodeLockTimeout, MsgTimeout, CategoryConcurrency, SeverityError)

// IsLockTimeout reports whether err is, or wraps, a lock timeout.
func IsLockTimeout(err error) bool {
	return IsCode(err, CodeLockTimeout)
}

// PlanEmpty is returned when the planner produced no tasks.
func PlanEmpty() MCPError {
	return NewError(CodePlanningFailed, MsgTryAgain, CategoryPlanning, SeverityError)
}

// OracleFailed wraps a language model call failure.
func OracleFailed(operation string, cause error) MCPError {
	err := WrapError(cause, CodeOracleError, fmt.Sprintf("language model call failed during %s", operation), CategoryPlanning, SeverityError).
		WithContext(&Context{Component: "oracle", Operation: operation})
	if cause != nil {
		err = err.WithDetail(cause.Error())
	}
	return err
}

// NoServerInitialized is returned when every configured MCP server failed to
// initialize.
func NoServerInitialized(count int) MCPError {
	return NewErrorf(CodeConnectionFailed, CategoryTransport, SeverityCritical, "none of %d MCP servers initialized", count)
}

// ConfigurationMissing reports a required setting that was not provided.
func ConfigurationMissing(key string) MCPError {
	return NewErrorf(CodeConfigError, CategoryConfiguration, SeverityCritical, "missing required setting %q", key)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
