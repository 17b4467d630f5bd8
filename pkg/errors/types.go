// Package errors classifies gateway failures. Every error carries a
// JSON-RPC code, a category for logs and metrics, and the request context it
// happened in; ToResponse turns any of them into a client envelope.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category groups errors by the part of the gateway that raised them
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuth          Category = "auth"
	CategoryNotFound      Category = "not_found"
	CategoryTransport     Category = "transport"
	CategoryHandler       Category = "handler"
	CategoryInternal      Category = "internal"
	CategoryTimeout       Category = "timeout"
	CategoryProtocol      Category = "protocol"
	CategoryConcurrency   Category = "concurrency"
	CategoryPlanning      Category = "planning"
	CategoryConfiguration Category = "configuration"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context locates an error: which request, which method, which upstream.
type Context struct {
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MCPError is implemented by every error this package creates. The With
// methods return modified copies.
type MCPError interface {
	error
	Unwrap() error

	Code() int
	// Message is what a client sees; Error adds the details.
	Message() string
	Details() string
	Data() interface{}
	Category() Category
	Severity() Severity
	Context() *Context

	WithContext(ctx *Context) MCPError
	WithDetail(detail string) MCPError
	WithData(data interface{}) MCPError
}

type gatewayError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	ctx      *Context
	cause    error
}

func newGatewayError(cause error, code int, message string, category Category, severity Severity) *gatewayError {
	return &gatewayError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    cause,
		ctx:      &Context{Timestamp: time.Now()},
	}
}

func (e *gatewayError) Error() string {
	if e.details == "" {
		return e.message
	}
	return e.message + ": " + e.details
}

func (e *gatewayError) Code() int          { return e.code }
func (e *gatewayError) Message() string    { return e.message }
func (e *gatewayError) Details() string    { return e.details }
func (e *gatewayError) Data() interface{}  { return e.data }
func (e *gatewayError) Category() Category { return e.category }
func (e *gatewayError) Severity() Severity { return e.severity }
func (e *gatewayError) Context() *Context  { return e.ctx }
func (e *gatewayError) Unwrap() error      { return e.cause }

func (e *gatewayError) clone() *gatewayError {
	c := *e
	return &c
}

// WithContext replaces the context. A zero timestamp keeps the time the
// error was created; a nil ctx changes nothing.
func (e *gatewayError) WithContext(ctx *Context) MCPError {
	c := e.clone()
	if ctx == nil {
		return c
	}
	nctx := *ctx
	if nctx.Timestamp.IsZero() {
		nctx.Timestamp = time.Now()
		if e.ctx != nil && !e.ctx.Timestamp.IsZero() {
			nctx.Timestamp = e.ctx.Timestamp
		}
	}
	c.ctx = &nctx
	return c
}

// WithDetail appends to the details, separated by "; "
func (e *gatewayError) WithDetail(detail string) MCPError {
	c := e.clone()
	if c.details == "" {
		c.details = detail
	} else {
		c.details += "; " + detail
	}
	return c
}

func (e *gatewayError) WithData(data interface{}) MCPError {
	c := e.clone()
	c.data = data
	return c
}

type errorJSON struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Category Category    `json:"category"`
	Severity Severity    `json:"severity"`
	Details  string      `json:"details,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Context  *Context    `json:"context,omitempty"`
	Cause    string      `json:"cause,omitempty"`
}

// MarshalJSON is used when errors are written to the diagnostic trail
func (e *gatewayError) MarshalJSON() ([]byte, error) {
	out := errorJSON{
		Code:     e.code,
		Message:  e.message,
		Category: e.category,
		Severity: e.severity,
		Details:  e.details,
		Data:     e.data,
		Context:  e.ctx,
	}
	if e.cause != nil {
		out.Cause = e.cause.Error()
	}
	return json.Marshal(out)
}

// NewError creates an error with no cause
func NewError(code int, message string, category Category, severity Severity) MCPError {
	return newGatewayError(nil, code, message, category, severity)
}

func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) MCPError {
	return newGatewayError(nil, code, fmt.Sprintf(format, args...), category, severity)
}

// WrapError classifies err. The message replaces err's text for clients;
// err stays reachable through Unwrap.
func WrapError(err error, code int, message string, category Category, severity Severity) MCPError {
	return newGatewayError(err, code, message, category, severity)
}

// AsMCPError finds the first MCPError in err's chain
func AsMCPError(err error) (MCPError, bool) {
	var mcpErr MCPError
	if err != nil && errors.As(err, &mcpErr) {
		return mcpErr, true
	}
	return nil, false
}

func IsCategory(err error, category Category) bool {
	mcpErr, ok := AsMCPError(err)
	return ok && mcpErr.Category() == category
}

func IsCode(err error, code int) bool {
	mcpErr, ok := AsMCPError(err)
	return ok && mcpErr.Code() == code
}
