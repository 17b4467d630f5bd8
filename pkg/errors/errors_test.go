package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

func TestMCPErrorInterface(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		wantCode int
		wantMsg  string
		wantCat  Category
	}{
		{
			name:     "invalid access key",
			err:      InvalidAccessKey(),
			wantCode: CodeInternalError,
			wantMsg:  "Invalid accessKey.",
			wantCat:  CategoryAuth,
		},
		{
			name:     "prompt not found",
			err:      PromptNotFound("greet"),
			wantCode: CodeInvalidParams,
			wantMsg:  `No prompt name of "greet".`,
			wantCat:  CategoryNotFound,
		},
		{
			name:     "method did not work",
			err:      MethodDidNotWork("tools/call"),
			wantCode: CodeInternalError,
			wantMsg:  "tools/call didn't work.",
			wantCat:  CategoryNotFound,
		},
		{
			name:     "handler failed",
			err:      HandlerFailed("tools/call", fmt.Errorf("boom")),
			wantCode: CodeInternalError,
			wantMsg:  "boom",
			wantCat:  CategoryHandler,
		},
		{
			name:     "plan empty",
			err:      PlanEmpty(),
			wantCode: CodePlanningFailed,
			wantMsg:  "Internal server error. Try again.",
			wantCat:  CategoryPlanning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %v, want %v", got, tt.wantCode)
			}
			if got := tt.err.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Category(); got != tt.wantCat {
				t.Errorf("Category() = %v, want %v", got, tt.wantCat)
			}
			if tt.err.Context() == nil {
				t.Error("Context() should never return nil")
			}
		})
	}
}

func TestErrorContext(t *testing.T) {
	err := PromptNotFound("x")

	withCtx := err.WithContext(&Context{RequestID: "123", Method: "prompts/get"})
	if got := withCtx.Context().RequestID; got != "123" {
		t.Errorf("RequestID = %q, want 123", got)
	}
	if withCtx.Context().Timestamp.IsZero() {
		t.Error("WithContext() should stamp a timestamp")
	}
	if err.Context().RequestID != "" {
		t.Error("Original error was modified by WithContext()")
	}
}

func TestErrorChaining(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := WrapError(cause, CodeInternalError, "wrapped error", CategoryInternal, SeverityError)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	outer := fmt.Errorf("router: %w", err)
	if !IsCategory(outer, CategoryInternal) {
		t.Error("IsCategory() should see through fmt wrapping")
	}
	if !Is(outer, cause) {
		t.Error("Is() should find the root cause")
	}
}

func TestErrorDetails(t *testing.T) {
	err := HandlerFailed("tools/call", fmt.Errorf("boom")).WithDetail("first").WithDetail("second")
	if got, want := err.Error(), "boom: first; second"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := err.Message(); got != "boom" {
		t.Errorf("Message() = %q, want boom", got)
	}
}

func TestErrorSerialization(t *testing.T) {
	err := MethodDidNotWork("resources/read").WithDetail("uri file:///a")

	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal() error = %v", jerr)
	}
	var out map[string]interface{}
	if jerr := json.Unmarshal(data, &out); jerr != nil {
		t.Fatalf("Unmarshal() error = %v", jerr)
	}
	if out["message"] != "resources/read didn't work." {
		t.Errorf("message = %v", out["message"])
	}
	if out["category"] != string(CategoryNotFound) {
		t.Errorf("category = %v", out["category"])
	}
	if out["details"] != "uri file:///a" {
		t.Errorf("details = %v", out["details"])
	}
}

func TestToResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode protocol.ErrorCode
		wantMsg  string
	}{
		{"standard code kept", PromptNotFound("p"), protocol.InvalidParams, `No prompt name of "p".`},
		{"gateway code folded", ErrLockTimeout, protocol.InternalError, "Timeout."},
		{"plain error", fmt.Errorf("plain"), protocol.InternalError, "plain"},
		{"deadline", context.DeadlineExceeded, protocol.InternalError, "Timeout."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ToResponse(7, tt.err)
			if resp.ID != 7 {
				t.Errorf("ID = %v, want 7", resp.ID)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
		})
	}

	if ToResponse(1, nil) != nil {
		t.Error("ToResponse(nil) should be nil")
	}
}

func TestFromJSONRPCError(t *testing.T) {
	err := FromJSONRPCError(&protocol.Error{Code: protocol.MethodNotFound, Message: "nope"})
	if err.Code() != CodeMethodNotFound || err.Category() != CategoryProtocol {
		t.Errorf("got code %d category %s", err.Code(), err.Category())
	}
	if FromJSONRPCError(nil) != nil {
		t.Error("FromJSONRPCError(nil) should be nil")
	}
}

func TestFetchFailed(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		cause     error
		retryable bool
		category  Category
	}{
		{"unreachable", 0, fmt.Errorf("connection refused"), true, CategoryTransport},
		{"not found", 404, nil, false, CategoryTransport},
		{"throttled", 429, nil, true, CategoryTransport},
		{"unavailable", 503, nil, true, CategoryTransport},
		{"cancelled", 0, context.Canceled, false, CategoryTransport},
		{"deadline", 0, context.DeadlineExceeded, true, CategoryTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FetchFailed("initialize", "http://mcp.local", tt.status, tt.cause)
			if err.Category() != tt.category {
				t.Errorf("Category() = %v, want %v", err.Category(), tt.category)
			}
			if got := IsRetryableError(err); got != tt.retryable {
				t.Errorf("IsRetryableError() = %v, want %v", got, tt.retryable)
			}
			if err.Context().Endpoint != "http://mcp.local" {
				t.Errorf("Context().Endpoint = %q", err.Context().Endpoint)
			}
		})
	}

	if IsRetryableError(fmt.Errorf("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestLockTimeout(t *testing.T) {
	wrapped := fmt.Errorf("serve: %w", ErrLockTimeout)
	if !IsLockTimeout(wrapped) {
		t.Error("IsLockTimeout() should match wrapped lock timeout")
	}
	if IsLockTimeout(fmt.Errorf("other")) {
		t.Error("IsLockTimeout() matched unrelated error")
	}
}

func TestErrorRegistry(t *testing.T) {
	for _, code := range []int{CodeParseError, CodeUnauthorized, CodeLockTimeout, CodePlanningFailed} {
		if _, ok := GetErrorCodeInfo(code); !ok {
			t.Errorf("code %d not registered", code)
		}
	}
	if got := GetErrorCodeName(12345); got != "UnknownError" {
		t.Errorf("GetErrorCodeName(unknown) = %q", got)
	}
	if WireCode(CodeTransportError) != CodeInternalError {
		t.Error("WireCode() should fold gateway codes")
	}
}

func BenchmarkErrorCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = MethodDidNotWork("tools/call").WithContext(&Context{RequestID: "1"})
	}
}
