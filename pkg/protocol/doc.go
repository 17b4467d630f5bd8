// Package protocol defines the wire types spoken by the gateway.
//
// The gateway speaks JSON-RPC 2.0 carrying Model Context Protocol (MCP)
// methods. This package contains the Go type definitions for the envelopes
// and for the MCP payloads the gateway understands.
//
// # Package Organization
//
//   - jsonrpc.go: request, response, notification and error envelopes, the
//     standard error codes and single-or-batch message decoding
//   - mcp.go: method names, the lifecycle method set, initialize payloads
//   - tools.go, prompts.go, resources.go: descriptor and result shapes
//   - content.go: content blocks shared by tool, prompt and resource results
//
// # Batches
//
// A request body is either one JSON object or a JSON array of objects.
// DecodeMessage reports which form was received so that the response can be
// returned in the same form:
//
//	reqs, batch, err := protocol.DecodeMessage(body)
//	if err != nil {
//	    // reply with a ParseError envelope
//	}
//	for _, r := range reqs {
//	    if !r.HasMethod() {
//	        continue
//	    }
//	    // dispatch r.Method
//	}
//
// Method names are matched case-insensitively; NormalizeMethod lowercases
// them the way the router expects.
package protocol
