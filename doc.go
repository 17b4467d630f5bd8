// Package mcp is a JSON-RPC gateway for the Model Context Protocol.
//
// The gateway has two halves. The server side answers MCP requests from a
// declarative catalog of items: initialize results, tool, resource and
// prompt lists, and prompt templates. Duplicate declarations are merged and
// bound handlers are invoked by name. The client side connects to any
// number of remote MCP servers over HTTP, turns what they offer into
// callable functions, and lets a reasoning model plan and execute a goal
// over them.
//
// # Overview
//
// The gateway consists of several sub-packages:
//
//   - pkg/protocol: JSON-RPC 2.0 envelopes and MCP message shapes
//   - pkg/catalog: catalog items, aggregation and YAML catalog files
//   - pkg/server: the request router, its lock and the HTTP handler
//   - pkg/transport: concurrent HTTP fan-out with retries
//   - pkg/client: session bootstrap against remote MCP servers
//   - pkg/oracle: the reasoning model contract and a Gemini client
//   - pkg/planner: plan, execute and summarize a goal
//   - pkg/diagnostics: the per-request diagnostic trail
//
// # Serving a Catalog
//
//	registry := mcp.NewHandlerRegistry()
//	items, err := mcp.LoadCatalog("catalog.yaml", registry)
//	if err != nil {
//	    // Handle error
//	}
//
//	router, err := mcp.NewRouter(catalog.StaticSource(items),
//	    mcp.WithAccessKey("sample"),
//	    mcp.WithTieBreak(mcp.TieBreakLonger),
//	)
//	if err != nil {
//	    // Handle error
//	}
//	http.ListenAndServe(":8080", mcp.NewHTTPHandler(router))
//
// # Asking a Question
//
//	fetcher := mcp.NewFetcher()
//	session, err := mcp.NewBootstrapper(fetcher, urls).Bootstrap(ctx)
//	if err != nil {
//	    // Handle error
//	}
//
//	gemini, err := mcp.NewGemini(apiKey, oracle.WithFetcher(fetcher))
//	if err != nil {
//	    // Handle error
//	}
//	exec, err := mcp.NewPlanner(gemini, session)
//	if err != nil {
//	    // Handle error
//	}
//	result, err := exec.Run(ctx, "What is on my calendar today?")
//
// The mcpgw command in cmd/mcpgw wires both halves from a config file.
package mcp
