// Package transport sends the HTTP calls the gateway client fans out to
// MCP servers.
//
// A Fetcher takes a slice of Calls and returns one Reply per call, in the
// same order, whatever order the responses arrived in. HTTPFetcher runs the
// calls concurrently up to a limit, bounds each with a timeout and can retry
// retryable failures (network errors, 408, 429 and 5xx) with exponential
// backoff behind a per-host circuit breaker:
//
//	f := transport.NewHTTPFetcher(
//	    transport.WithConcurrency(8),
//	    transport.WithTimeout(60*time.Second),
//	    transport.WithRetry(transport.RetryConfig{MaxRetries: 2}),
//	)
//	call, _ := transport.PostJSON(url, req, "initialize")
//	replies := f.FetchAll(ctx, []transport.Call{call})
//	if replies[0].OK() {
//	    // decode replies[0].Body
//	}
//
// A Reply never carries a Go error for an HTTP status; Err is set only when
// no response was received.
package transport
