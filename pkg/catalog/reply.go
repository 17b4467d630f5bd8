package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/mcp-gateway/pkg/protocol"
)

type replyKind int

const (
	replyText replyKind = iota
	replyResult
	replyEnvelope
)

// Reply is what a Handler returns
type Reply struct {
	kind     replyKind
	text     string
	result   interface{}
	envelope *protocol.Response
}

// Text replies with a single text content block
func Text(s string) Reply {
	return Reply{kind: replyText, text: s}
}

// Result replies with v as the JSON-RPC result
func Result(v interface{}) Reply {
	return Reply{kind: replyResult, result: v}
}

// Envelope replies with a complete response. Only the id is replaced.
func Envelope(resp *protocol.Response) Reply {
	return Reply{kind: replyEnvelope, envelope: resp}
}

// Response renders the reply as a response carrying id
func (r Reply) Response(id interface{}) (*protocol.Response, error) {
	switch r.kind {
	case replyText:
		return protocol.NewResponse(id, protocol.TextResult(r.text))
	case replyResult:
		if raw, ok := r.result.(json.RawMessage); ok && len(raw) == 0 {
			return nil, fmt.Errorf("empty result")
		}
		return protocol.NewResponse(id, r.result)
	case replyEnvelope:
		if r.envelope == nil {
			return nil, fmt.Errorf("nil envelope")
		}
		resp := r.envelope.Clone()
		resp.JSONRPC = protocol.JSONRPCVersion
		resp.ID = id
		return resp, nil
	}
	return nil, fmt.Errorf("unknown reply kind %d", r.kind)
}
