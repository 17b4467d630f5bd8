package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// FetchData describes a failed POST to an MCP server or the model endpoint.
type FetchData struct {
	Label      string `json:"label,omitempty"`
	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Retryable  bool   `json:"retryable"`
}

// FetchFailed classifies a fan-out call that did not come back 200. A zero
// status means no response was read at all.
func FetchFailed(label, url string, status int, cause error) MCPError {
	var msg string
	switch {
	case status > 0:
		msg = fmt.Sprintf("%s: %s returned %d", label, url, status)
	case cause != nil:
		msg = fmt.Sprintf("%s: %s unreachable", label, url)
	default:
		msg = fmt.Sprintf("%s: %s failed", label, url)
	}

	category := CategoryTransport
	if stderrors.Is(cause, context.DeadlineExceeded) {
		category = CategoryTimeout
	}

	err := WrapError(cause, CodeTransportError, msg, category, SeverityError).
		WithData(&FetchData{
			Label:      label,
			URL:        url,
			StatusCode: status,
			Retryable:  retryableStatus(status, cause),
		}).
		WithContext(&Context{Endpoint: url, Component: "fetcher", Operation: label})
	if cause != nil {
		err = err.WithDetail(cause.Error())
	}
	return err
}

// cancelled calls are never retried, the caller has gone away
func retryableStatus(status int, cause error) bool {
	if stderrors.Is(cause, context.Canceled) {
		return false
	}
	switch status {
	case 0, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= http.StatusInternalServerError
}

// IsRetryableError reports whether another attempt at the failed call may
// succeed.
func IsRetryableError(err error) bool {
	mcpErr, ok := AsMCPError(err)
	if !ok {
		return false
	}
	if data, ok := mcpErr.Data().(*FetchData); ok {
		return data.Retryable
	}
	return mcpErr.Category() == CategoryTimeout
}
