// Package oracle defines the language model contract used by the planner
// and a Gemini implementation of it.
//
// An Oracle answers one Request: a system instruction, the conversation so
// far, the new user turn and optional function-calling constraints. The
// Response carries either text or a single function call, plus the history
// extended with the user and model turns. Executing the call and appending
// its result is left to the caller (see History.AppendFunctionResponse).
package oracle

import (
	"context"
	"encoding/json"
)

// DefaultModel is the model used when a request names none
const DefaultModel = "models/gemini-2.0-flash"

// Conversation roles
const (
	RoleUser     = "user"
	RoleModel    = "model"
	RoleFunction = "function"
)

// Part is one piece of a turn
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// TextPart returns a text part
func TextPart(s string) Part {
	return Part{Text: s}
}

// Blob is inline binary data, base64 encoded
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// FunctionCall is a model's request to run a function
type FunctionCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse carries a function's result back to the model
type FunctionResponse struct {
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// Content is one turn of a conversation
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// History is a conversation, oldest turn first
type History []Content

// Clone returns a copy that shares no slices with h
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, c := range h {
		out[i] = Content{Role: c.Role, Parts: append([]Part(nil), c.Parts...)}
	}
	return out
}

// Append returns h extended with c. h itself is not modified.
func (h History) Append(c ...Content) History {
	out := h.Clone()
	return append(out, c...)
}

// AppendFunctionResponse returns h extended with a function turn reporting
// content as the result of name
func (h History) AppendFunctionResponse(name string, content interface{}) History {
	return h.Append(Content{
		Role: RoleFunction,
		Parts: []Part{{FunctionResponse: &FunctionResponse{
			Name:     name,
			Response: map[string]interface{}{"name": name, "content": content},
		}}},
	})
}

// FunctionDeclaration describes a callable to the model. Parameters is a
// JSON schema object.
type FunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// Function calling modes
const (
	ModeAuto = "AUTO"
	ModeAny  = "ANY"
	ModeNone = "NONE"
)

// ToolConfig constrains function calling
type ToolConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

// ForceFunction allows exactly one function and requires a call to it
func ForceFunction(name string) *ToolConfig {
	return &ToolConfig{Mode: ModeAny, AllowedFunctionNames: []string{name}}
}

// Request is one model call
type Request struct {
	Model             string
	SystemInstruction string
	History           History
	// Query is the new user turn
	Query      []Part
	Functions  []FunctionDeclaration
	ToolConfig *ToolConfig

	// ResponseMIMEType and ResponseSchema constrain a text answer, for
	// example to a JSON array
	ResponseMIMEType string
	ResponseSchema   map[string]interface{}
}

// Response is the model's answer
type Response struct {
	Text         string
	FunctionCall *FunctionCall
	// History is the request history plus the user and model turns
	History History
}

// Decode unmarshals a JSON text answer into v
func (r *Response) Decode(v interface{}) error {
	return json.Unmarshal([]byte(r.Text), v)
}

// Oracle answers model requests
type Oracle interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a function to the Oracle interface
type Func func(ctx context.Context, req *Request) (*Response, error)

// Generate calls f
func (f Func) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
