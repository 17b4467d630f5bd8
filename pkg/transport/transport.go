package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Call is one HTTP request of a fan-out
type Call struct {
	URL    string
	Method string // defaults to POST
	Header http.Header
	Body   []byte

	// Label names the call in metrics and spans, usually the JSON-RPC method
	Label string
}

// Reply is the outcome of one Call
type Reply struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// OK reports whether the call returned HTTP 200
func (r Reply) OK() bool {
	return r.Err == nil && r.StatusCode == http.StatusOK
}

// Fetcher performs calls concurrently. The returned slice has one Reply per
// call at the call's index.
type Fetcher interface {
	FetchAll(ctx context.Context, calls []Call) []Reply
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, calls []Call) []Reply

// FetchAll calls f
func (f FetcherFunc) FetchAll(ctx context.Context, calls []Call) []Reply {
	return f(ctx, calls)
}

// PostJSON builds a POST call carrying v as its JSON body
func PostJSON(url string, v interface{}, label string) (Call, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Call{}, fmt.Errorf("marshal %s body: %w", label, err)
	}
	return Call{
		URL:    url,
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
		Label:  label,
	}, nil
}
