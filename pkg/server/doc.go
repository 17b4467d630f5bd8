// Package server answers MCP JSON-RPC requests from an aggregated catalog.
//
// A Router holds a catalog.Source. For every body it aggregates the current
// items into response and function tables and resolves each request:
//
//   - a static entry is returned as-is, with "{{key}}" placeholders in
//     prompt messages replaced by params.arguments
//   - a named entry (prompts/get) is looked up by params.name or params.uri
//   - a function entry (tools/call, resources/read) invokes the handler
//     addressed by params.name, or params.uri without arguments
//   - any other method gets no reply
//
// Batches are answered with an array of the non-empty replies, or nothing
// when every element was dropped.
//
// # Locking
//
// Lifecycle methods (initialize, notifications/initialized and the three
// list methods) always run under the router's Lock; with WithUseLock(true),
// the default, every request does. Waiting is bounded by
// DefaultLockTimeout. When it elapses Handle returns ErrLockTimeout, which
// HTTPHandler turns into a 503 rather than a JSON-RPC error.
//
// # HTTP
//
//	src, _ := catalog.NewWatchedSource("catalogs/**/*.yaml", catalog.NewHandlerRegistry(), logger)
//	router, err := server.NewRouter(src, server.WithAccessKey("sample"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", server.NewHTTPHandler(router))
//
// Clients POST to "/?accessKey=sample". "/healthz" reports liveness and,
// with WithHTTPMetrics, "/metrics" serves Prometheus metrics.
package server
