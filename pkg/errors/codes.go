package errors

// JSON-RPC 2.0 Standard Error Codes
// These mirror protocol.ErrorCode as plain ints
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

// Gateway error codes. These never reach a client as-is: the router folds
// them into CodeInternalError envelopes, they exist to classify failures in
// logs and metrics.
const (
	CodeUnauthorized     int = -32100 // accessKey did not match
	CodeLockTimeout      int = -32301 // server lock not acquired in time
	CodeTransportError   int = -32500 // upstream MCP server unreachable or non-200
	CodeConnectionFailed int = -32501 // no upstream initialized
	CodeCircuitOpen      int = -32502 // upstream host tripped the circuit breaker
	CodePlanningFailed   int = -32350 // planner produced no tasks
	CodeOracleError      int = -32652 // language model call failed
	CodeConfigError      int = -32650 // required setting missing
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

	CodeUnauthorized:     {CodeUnauthorized, "Unauthorized", "Access key rejected", CategoryAuth, SeverityWarning},
	CodeLockTimeout:      {CodeLockTimeout, "LockTimeout", "Server lock not acquired", CategoryConcurrency, SeverityError},
	CodeTransportError:   {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeConnectionFailed: {CodeConnectionFailed, "ConnectionFailed", "No MCP server initialized", CategoryTransport, SeverityCritical},
	CodeCircuitOpen:      {CodeCircuitOpen, "CircuitOpen", "Circuit breaker is open", CategoryTransport, SeverityError},
	CodePlanningFailed:   {CodePlanningFailed, "PlanningFailed", "No plan produced", CategoryPlanning, SeverityError},
	CodeOracleError:      {CodeOracleError, "OracleError", "Language model error", CategoryPlanning, SeverityError},
	CodeConfigError:      {CodeConfigError, "ConfigurationError", "Configuration error", CategoryConfiguration, SeverityCritical},
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

// WireCode returns the code a client sees for code. Codes outside the
// JSON-RPC standard range are reported as CodeInternalError.
func WireCode(code int) int {
	switch code {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeInternalError:
		return code
	}
	return CodeInternalError
}
