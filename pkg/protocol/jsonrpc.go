package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	JSONRPCVersion = "2.0"

	// NoID is echoed back as the id of requests that did not carry one
	NoID = "No ID"
)

// ErrorCode is a JSON-RPC 2.0 error code
type ErrorCode int

const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

var errEmptyMessage = errors.New("empty message")

// Request is a JSON-RPC request as received by the router or sent by the
// client. Decoding remembers whether "id" and "method" were present, so an
// absent id can be told apart from an explicit null.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`

	hasID     bool
	hasMethod bool
}

// NewRequest builds an outgoing request. params may be nil, a
// json.RawMessage, or anything encoding/json accepts.
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	raw, err := rawParams(params)
	if err != nil {
		return nil, fmt.Errorf("%s params: %w", method, err)
	}
	return &Request{
		JSONRPC:   JSONRPCVersion,
		ID:        id,
		Method:    method,
		Params:    raw,
		hasID:     true,
		hasMethod: true,
	}, nil
}

type wireRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  *string         `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// UnmarshalJSON keeps numeric ids as json.Number so they are echoed back
// byte for byte. "params": null decodes as no params.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Request{JSONRPC: w.JSONRPC}
	if string(w.Params) != "null" {
		out.Params = w.Params
	}
	if w.Method != nil {
		out.Method, out.hasMethod = *w.Method, true
	}
	if len(w.ID) > 0 {
		dec := json.NewDecoder(bytes.NewReader(w.ID))
		dec.UseNumber()
		if err := dec.Decode(&out.ID); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		out.hasID = true
	}
	*r = out
	return nil
}

func (r *Request) HasID() bool     { return r.hasID }
func (r *Request) HasMethod() bool { return r.hasMethod }

// ResponseID is the id a reply to r carries: r's own id, null included,
// or NoID when the member was missing.
func (r *Request) ResponseID() interface{} {
	if r.hasID {
		return r.ID
	}
	return NoID
}

// NormalizeMethod folds a method or function name to the key used in the
// router's and planner's tables. The mapping does not depend on locale.
func NormalizeMethod(method string) string {
	return cases.Lower(language.Und).String(method)
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set
// on responses the gateway builds; upstream servers are not trusted to
// follow that.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func NewResponse(id interface{}, result interface{}) (*Response, error) {
	raw, err := rawParams(result)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: raw}, nil
}

func NewErrorResponse(id interface{}, code ErrorCode, message string) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}

// Clone deep-copies r. Catalog templates are cloned before an id is
// stamped on them or placeholders are substituted.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := *r
	if r.Result != nil {
		c.Result = append(json.RawMessage(nil), r.Result...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}

// HasResult reports whether Result is present and not null
func (r *Response) HasResult() bool {
	return len(r.Result) > 0 && string(r.Result) != "null"
}

// Notification is a request without an id. The client sends
// notifications/initialized this way.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func NewNotification(method string, params interface{}) (*Notification, error) {
	raw, err := rawParams(params)
	if err != nil {
		return nil, fmt.Errorf("%s params: %w", method, err)
	}
	return &Notification{JSONRPC: JSONRPCVersion, Method: method, Params: raw}, nil
}

// Error is the error member of a response
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// DecodeMessage decodes a POST body holding one request object or an array
// of them; batch reports the array form. An array element that is not a
// request object decodes as a request with no method, which the router
// skips without a reply.
func DecodeMessage(data []byte) (reqs []*Request, batch bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, errEmptyMessage
	}

	if data[0] != '[' {
		req := new(Request)
		if err := json.Unmarshal(data, req); err != nil {
			return nil, false, err
		}
		return []*Request{req}, false, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, true, err
	}
	reqs = make([]*Request, len(elems))
	for i, elem := range elems {
		req := new(Request)
		if json.Unmarshal(elem, req) != nil {
			*req = Request{}
		}
		reqs[i] = req
	}
	return reqs, true, nil
}

func rawParams(v interface{}) (json.RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(v)
}
